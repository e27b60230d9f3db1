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

var cpuCounter arm64.CPU

// RunUserDebugChecks prints lightweight diagnostics from a user/driver
// scheduling context (Core 1..N). It is the default body installed into
// sched.UserTasks.
func RunUserDebugChecks() {
	w := board.Active().UART()
	if w == nil {
		return
	}

	core := arm64.CoreID()
	ttbr0 := arm64.TTBR0()
	cntpct := cpuCounter.Counter()

	fmt.Fprintf(w, "[DEBUG][user] running on core %d\n", core)
	fmt.Fprintf(w, "[DEBUG][user] TTBR0_EL1 (current task): 0x%016x | CNTPCT_EL0 snapshot: %d\n", ttbr0, cntpct)
	fmt.Fprintf(w, "[DEBUG][user] mailbox health: awaiting response, core %d still scheduled\n", core)
}
