// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package gic

import (
	"testing"
	"unsafe"

	"github.com/usbarmory/tamago-rpi/internal/reg"
)

// newHarness backs a GIC with two plain Go byte buffers standing in for the
// distributor and CPU-interface MMIO windows, so register reads/writes land
// on ordinary heap memory instead of real hardware.
func newHarness() *GIC {
	distributor := make([]byte, 0x1000)
	cpuInterface := make([]byte, 0x100)

	return &GIC{
		DistributorBase:  uintptr(unsafe.Pointer(&distributor[0])),
		CPUInterfaceBase: uintptr(unsafe.Pointer(&cpuInterface[0])),
	}
}

func TestInitPrimaryConfiguresTimerPPI(t *testing.T) {
	g := newHarness()

	g.InitPrimary()

	snap := g.TimerIRQSnapshot()

	if !snap.Enabled {
		t.Error("expected timer PPI to be enabled after InitPrimary")
	}

	if !snap.Group1 {
		t.Error("expected timer PPI to be configured as Group-1")
	}

	if !snap.LevelTriggered {
		t.Error("expected timer PPI to be configured level-triggered")
	}

	if snap.Priority != priorityNonSecureHalf {
		t.Errorf("priority = 0x%02x, want 0x%02x", snap.Priority, priorityNonSecureHalf)
	}

	if snap.CTLR&0b11 != 0b11 {
		t.Errorf("GICC_CTLR = 0x%x, want low two bits set", snap.CTLR)
	}

	if snap.PMR != 0xFF {
		t.Errorf("GICC_PMR = 0x%x, want 0xff", snap.PMR)
	}
}

func TestInitSecondaryRequiresPrimary(t *testing.T) {
	g := newHarness()

	if err := g.InitSecondary(); err != ErrDistributorNotInitialized {
		t.Fatalf("InitSecondary before InitPrimary: err = %v, want ErrDistributorNotInitialized", err)
	}

	g.InitPrimary()

	if err := g.InitSecondary(); err != nil {
		t.Fatalf("InitSecondary after InitPrimary: unexpected error %v", err)
	}

	snap := g.TimerIRQSnapshot()
	if !snap.Enabled {
		t.Error("expected timer PPI still enabled after InitSecondary")
	}
}

func TestForceTimerIRQSetsPending(t *testing.T) {
	g := newHarness()
	g.InitPrimary()

	g.ForceTimerIRQ()

	if !g.TimerIRQSnapshot().Pending {
		t.Error("expected timer PPI pending after ForceTimerIRQ")
	}
}

func TestAcknowledgeAndEndOfInterrupt(t *testing.T) {
	g := newHarness()
	g.InitPrimary()

	id := g.Acknowledge()
	g.EndOfInterrupt(id)

	if got := reg.Read(g.CPUInterfaceBase + GICC_EOIR); got != id {
		t.Fatalf("GICC_EOIR readback = %d, want %d", got, id)
	}
}

func TestSpuriousIRQConstant(t *testing.T) {
	if SpuriousIRQ != 0x3FF {
		t.Fatalf("SpuriousIRQ = 0x%x, want 0x3ff", SpuriousIRQ)
	}
}
