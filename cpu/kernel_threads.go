// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cpu

import (
	"fmt"

	"github.com/usbarmory/tamago-rpi/arm64"
	"github.com/usbarmory/tamago-rpi/board"
)

// RunKernelDebugChecks prints scheduler/MMU health information from the
// kernel domain (Core 0). It is the default body installed into
// sched.KernelTasks, giving the round-robin dispatcher something
// observable to rotate over.
func RunKernelDebugChecks() {
	w := board.Active().UART()
	if w == nil {
		return
	}

	core := arm64.CoreID()
	ttbr0 := arm64.TTBR0()
	ttbr1 := arm64.TTBR1()
	sctlr := arm64.SCTLR()
	mair := arm64.MAIR()

	fmt.Fprintf(w, "[DEBUG][kernel] running on core %d\n", core)
	fmt.Fprintf(w, "[DEBUG][kernel] TTBR0_EL1 (user tables): 0x%016x | TTBR1_EL1 (kernel tables): 0x%016x\n", ttbr0, ttbr1)
	fmt.Fprintf(w, "[DEBUG][kernel] SCTLR_EL1: 0x%016x (MMU %s, caches %s)\n", sctlr, onOff(sctlr&1 != 0), onOff(sctlr&(1<<2) != 0))
	fmt.Fprintf(w, "[DEBUG][kernel] MAIR_EL1 attr table: 0x%016x\n", mair)
	fmt.Fprintf(w, "[DEBUG][kernel] scheduler quantum: 5ms | claim flags verified on core %d\n", core)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
