// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cpu

import "strings"

// ReleaserFor picks the secondary-core release mechanism matching the
// active board: Raspberry Pi boards use the mailbox spin table directly,
// QEMU's raspi4b machine model emulates that same spin table closely enough
// to reuse it, and QEMU's virt machine model only understands PSCI.
func ReleaserFor(boardName string) Releaser {
	if strings.Contains(boardName, "QEMU virt") {
		return QEMUPSCIReleaser{}
	}

	return RPiReleaser{}
}

// BringUpSecondaryCores releases cores 1..coreCount-1 of boardName through
// whichever mechanism it expects, all jumping to entry (or each releaser's
// own default if entry is zero). It returns the errors encountered for any
// core that failed to start; the boot core keeps running kernel tasks with
// however many cores did come up.
func BringUpSecondaryCores(boardName string, coreCount int, entry uintptr) []error {
	return StartSecondaryCores(ReleaserFor(boardName), coreCount, entry)
}
