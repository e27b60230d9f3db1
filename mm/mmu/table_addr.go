// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mmu

import "unsafe"

// tablePhys returns a page table's address as the kernel sees it. Before the
// MMU is enabled, TamaGo's bare-metal runtime gives every Go pointer its
// physical address directly (there is no other mapping in effect yet), so
// converting the pointer is sufficient; it is never dereferenced as an
// integer anywhere except to extract or rebuild a table pointer.
func tablePhys(t *pageTable) uint64 {
	return uint64(uintptr(unsafe.Pointer(t)))
}

func tableAt(phys uint64) *pageTable {
	return (*pageTable)(unsafe.Pointer(uintptr(phys)))
}
