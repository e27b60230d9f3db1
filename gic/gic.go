// GIC-400 interrupt controller driver
// https://github.com/usbarmory/tamago-rpi
//
// IP: ARM Generic Interrupt Controller version 2.0 (GIC-400)
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package gic drives the distributor and CPU interface of a GIC-400,
// configured for exactly one PPI: the per-core generic-timer interrupt
// (INTID 30).
package gic

import (
	"errors"

	"github.com/usbarmory/tamago-rpi/internal/reg"
)

// Distributor register offsets (ARM IHI 0048B.b, table 4-1).
const (
	GICD_CTLR       = 0x0000
	GICD_IGROUPR    = 0x0080
	GICD_ISENABLER  = 0x0100
	GICD_ISPENDR    = 0x0200
	GICD_ICPENDR    = 0x0280
	GICD_ISACTIVER  = 0x0300
	GICD_IPRIORITYR = 0x0400
	GICD_ICFGR      = 0x0C00

	gicdCtlrEnableGrp0 = 0
	gicdCtlrEnableGrp1 = 1
)

// CPU interface register offsets (ARM IHI 0048B.b, table 4-2).
const (
	GICC_CTLR = 0x0000
	GICC_PMR  = 0x0004
	GICC_BPR  = 0x0008
	GICC_IAR  = 0x000C
	GICC_EOIR = 0x0010

	giccCtlrEnableGrp0       = 0
	giccCtlrEnableGrp1       = 1
	giccCtlrFIQBypDisGrp1    = 2
	giccCtlrIRQBypDisGrp1    = 3

	// SpuriousIRQ is the INTID returned by GICC_IAR when no interrupt is
	// pending.
	SpuriousIRQ = 0x3FF
)

// TimerPPI is the INTID of the per-core generic-timer private peripheral
// interrupt this controller is dedicated to.
const TimerPPI = 30

const priorityNonSecureHalf = 0x80

// ErrDistributorNotInitialized is returned by InitSecondary when the
// distributor has not yet been brought up by InitPrimary.
var ErrDistributorNotInitialized = errors.New("gic: distributor not initialized")

// GIC represents one GIC-400 instance, addressed through its distributor
// and CPU-interface base addresses taken from the FDT summary.
type GIC struct {
	DistributorBase  uintptr
	CPUInterfaceBase uintptr

	distributorEnabled bool
}

func (g *GIC) configurePPI(id int) {
	n := uintptr(id / 32)
	bit := id % 32

	reg.Clear(g.DistributorBase+GICD_ICPENDR+4*n, bit)
	reg.Set(g.DistributorBase+GICD_IGROUPR+4*n, bit)

	prioAddr := g.DistributorBase + GICD_IPRIORITYR + uintptr(id)
	reg.SetN(prioAddr, 0, 0xff, priorityNonSecureHalf)

	cfgAddr := g.DistributorBase + GICD_ICFGR + 4*uintptr(id/16)
	cfgShift := (id % 16) * 2
	reg.SetN(cfgAddr, cfgShift, 0b11, 0b10) // level-triggered

	reg.Set(g.DistributorBase+GICD_ISENABLER+4*n, bit)
}

func (g *GIC) armCPUInterface() {
	reg.Write(g.CPUInterfaceBase+GICC_CTLR, 0)
	reg.Write(g.CPUInterfaceBase+GICC_PMR, 0xFF)
	reg.Write(g.CPUInterfaceBase+GICC_BPR, 0)

	ctlr := uint32(1<<giccCtlrEnableGrp0 | 1<<giccCtlrEnableGrp1 |
		1<<giccCtlrFIQBypDisGrp1 | 1<<giccCtlrIRQBypDisGrp1)
	reg.Write(g.CPUInterfaceBase+GICC_CTLR, ctlr)
}

// InitPrimary configures the distributor for the timer PPI and arms this
// core's CPU interface. It must be called exactly once, from the boot core,
// before any secondary core calls InitSecondary.
func (g *GIC) InitPrimary() {
	reg.Write(g.DistributorBase+GICD_CTLR, 0)

	g.configurePPI(TimerPPI)

	reg.Set(g.DistributorBase+GICD_CTLR, gicdCtlrEnableGrp0)
	reg.Set(g.DistributorBase+GICD_CTLR, gicdCtlrEnableGrp1)
	g.distributorEnabled = true

	g.armCPUInterface()
}

// InitSecondary re-runs the banked PPI configuration and CPU-interface
// arming for the calling core. It returns ErrDistributorNotInitialized if
// InitPrimary has not yet run.
func (g *GIC) InitSecondary() error {
	if !g.distributorEnabled {
		return ErrDistributorNotInitialized
	}

	g.configurePPI(TimerPPI)
	g.armCPUInterface()

	return nil
}

// Snapshot is the debug view of the timer PPI's distributor/CPU-interface
// state, as read back from hardware.
type Snapshot struct {
	Pending        bool
	Enabled        bool
	Active         bool
	Group1         bool
	LevelTriggered bool
	Priority       uint32
	CTLR           uint32
	PMR            uint32
}

// TimerIRQSnapshot reads back ISPENDR/ISENABLER/ISACTIVER/IGROUPR/ICFGR/
// IPRIORITYR/CTLR/PMR for the timer PPI.
func (g *GIC) TimerIRQSnapshot() Snapshot {
	n := uintptr(TimerPPI / 32)
	bit := TimerPPI % 32

	cfgAddr := g.DistributorBase + GICD_ICFGR + 4*uintptr(TimerPPI/16)
	cfgShift := (TimerPPI % 16) * 2

	return Snapshot{
		Pending:        reg.Get(g.DistributorBase+GICD_ISPENDR+4*n, bit, 1) == 1,
		Enabled:        reg.Get(g.DistributorBase+GICD_ISENABLER+4*n, bit, 1) == 1,
		Active:         reg.Get(g.DistributorBase+GICD_ISACTIVER+4*n, bit, 1) == 1,
		Group1:         reg.Get(g.DistributorBase+GICD_IGROUPR+4*n, bit, 1) == 1,
		LevelTriggered: reg.Get(cfgAddr, cfgShift, 0b11) == 0b10,
		Priority:       reg.Get(g.DistributorBase+GICD_IPRIORITYR+uintptr(TimerPPI), 0, 0xff),
		CTLR:           reg.Read(g.CPUInterfaceBase + GICC_CTLR),
		PMR:            reg.Read(g.CPUInterfaceBase + GICC_PMR),
	}
}

// ForceTimerIRQ sets the timer PPI's ISPENDR bit to generate a diagnostic
// edge, for debug use only. It does not touch the generic timer itself;
// the local timer is not re-armed by this call.
func (g *GIC) ForceTimerIRQ() {
	n := uintptr(TimerPPI / 32)
	bit := TimerPPI % 32
	reg.Set(g.DistributorBase+GICD_ISPENDR+4*n, bit)
}

// Acknowledge reads GICC_IAR, returning the signaled INTID (SpuriousIRQ if
// none is pending).
func (g *GIC) Acknowledge() uint32 {
	return reg.Get(g.CPUInterfaceBase+GICC_IAR, 0, 0x3ff)
}

// EndOfInterrupt writes the acknowledged INTID back to GICC_EOIR.
func (g *GIC) EndOfInterrupt(id uint32) {
	reg.SetN(g.CPUInterfaceBase+GICC_EOIR, 0, 0x3ff, id)
}
