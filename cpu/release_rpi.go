// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cpu

import (
	"sync/atomic"
	"unsafe"

	"github.com/usbarmory/tamago-rpi/arm64"
)

// DefaultCoreEntry is the physical address secondary cores spin-wait to
// jump to on Raspberry Pi boards, matching the kernel's load address.
const DefaultCoreEntry = 0x80000

const (
	spinTableBase   = 0x40000000
	spinTableStride = 0x10
	releaseOffset   = 0x8
)

// RPiReleaser brings up secondary cores through the Raspberry Pi mailbox
// spin table: each core polls its release slot (entry+0x8) at address
// spinTableBase+core*spinTableStride and jumps to the value written to
// entry+0x0 once the release slot reads zero.
type RPiReleaser struct{}

// ReleaseCore writes entry (or DefaultCoreEntry if zero) to core's spin
// table slot, clears its release word, and sends an event to wake it from
// WFE. Core 0 is always running and is a no-op.
func (RPiReleaser) ReleaseCore(core int, entry uintptr) error {
	if core <= 0 {
		return nil
	}

	if entry == 0 {
		entry = DefaultCoreEntry
	}

	entryAddr := uintptr(spinTableBase) + uintptr(core)*spinTableStride
	releaseAddr := entryAddr + releaseOffset

	// The spin table lives in plain RAM, not a peripheral register, and is
	// 64 bits wide: write it directly rather than through internal/reg,
	// which is scoped to 32-bit MMIO registers.
	write64(entryAddr, uint64(entry))
	arm64.DSB()
	arm64.ISB()
	write64(releaseAddr, 0)
	arm64.DSB()
	sev()

	return nil
}

// defined in barrier.s
func sev()

func write64(addr uintptr, val uint64) {
	p := (*uint64)(unsafe.Pointer(addr))
	atomic.StoreUint64(p, val)
}
