// ARM64 processor support
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

import (
	"unsafe"
)

// Exception vector table layout. Each slot reserves a 0x20-byte instruction
// window; only the head opcode is seeded; the rest of the slot stays
// zeroed, which is fine since every used slot is a single-instruction
// branch.
const (
	VectorTableWords      = 512
	vectorSlotStrideWords = 0x20 / 4

	slotSyncEL1t = 0
	slotIRQEL1t  = 1
	slotFIQEL1t  = 2
	slotSErrEL1t = 3
	slotSyncEL1h = 4
	slotIRQEL1h  = 5
	slotFIQEL1h  = 6
	slotSErrEL1h = 7

	// branchSelf is "B #0", an infinite self-branch: the silent-hang
	// default for every vector but the one a board patches.
	branchSelf = 0x14000000

	// branchLinkOpcode is "BL" with a zero imm26, patched at construction
	// time with the displacement to the handler.
	branchLinkOpcode = 0x94000000

	imm26Mask = 0x03ffffff
)

// VectorTable is the AArch64 exception vector table installed into
// VBAR_EL1 (2 KiB-aligned per the architecture). Every slot other than the
// EL1h IRQ entry self-branches; the IRQ slot is patched at construction
// time to branch to the handler passed to NewVectorTable.
type VectorTable struct {
	words [VectorTableWords]uint32
}

// defined in vector.s
func set_vbar(addr uintptr)

// NewVectorTable builds a vector table whose EL1h IRQ slot branches to
// irqHandler; every other slot self-branches (see DefaultExceptionHandler
// for boards that want one of those patched to a diagnostic trampoline
// instead).
func NewVectorTable(irqHandler func()) *VectorTable {
	vt := &VectorTable{}

	for _, slot := range []int{slotSyncEL1t, slotIRQEL1t, slotFIQEL1t, slotSErrEL1t, slotSyncEL1h, slotFIQEL1h, slotSErrEL1h} {
		vt.words[slot*vectorSlotStrideWords] = branchSelf
	}

	slotAddr := uintptr(unsafe.Pointer(&vt.words[slotIRQEL1h*vectorSlotStrideWords]))
	vt.words[slotIRQEL1h*vectorSlotStrideWords] = branchLinkOpcode | encodeBranchImm26(slotAddr, vectorAddr(irqHandler))

	return vt
}

// vectorAddr extracts the entry address of a Go func value, the same trick
// tamago's own exception vector code uses to turn an ExceptionHandler into
// a jump target.
func vectorAddr(fn func()) uintptr {
	return **(**uintptr)(unsafe.Pointer(&fn))
}

// encodeBranchImm26 computes the imm26 field of a B/BL instruction at
// address from that targets address to.
func encodeBranchImm26(from, to uintptr) uint32 {
	delta := int64(to) - int64(from)
	return uint32(delta>>2) & imm26Mask
}

// Install writes VBAR_EL1 to point at this table. Must run once per core,
// before IRQs are unmasked on that core.
func (vt *VectorTable) Install() {
	set_vbar(uintptr(unsafe.Pointer(&vt.words[0])))
}
