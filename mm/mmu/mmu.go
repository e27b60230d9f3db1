// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mmu builds 3-level, 64 KiB-granule AArch64 translation tables and
// programs the system registers that enable the MMU.
package mmu

import (
	"errors"
	"fmt"
)

const (
	entriesPerTable = page / 8 // 8192 64-bit descriptors per table
	page            = 64 * 1024
	pageMask        = uint64(page) - 1

	pageShift = 16
	levelBits = 13
	levelMask = uint64(1)<<levelBits - 1
)

const (
	descValid     = 1
	descType      = 1 << 1
	descAF        = 1 << 10
	descSHShift   = 8
	descAPShift   = 6
	descAttrShift = 2
	descPXN       = uint64(1) << 53
	descUXN       = uint64(1) << 54
)

// MAIR attribute-index slots.
const (
	AttrDevice = 0
	AttrNormal = 1
)

const (
	mairDeviceNGnRE = 0x04
	mairNormalWB    = 0xFF
)

// MAIRValue is the value Enable programs into MAIR_EL1.
func MAIRValue() uint64 {
	return uint64(mairNormalWB)<<(AttrNormal*8) | uint64(mairDeviceNGnRE)<<(AttrDevice*8)
}

// MemType selects the MAIR attribute index for a mapping.
type MemType int

const (
	Normal MemType = iota
	Device
)

// Shareability encodes the descriptor's SH field.
type Shareability int

const (
	NonShareable Shareability = iota
	InnerShareable
)

// AccessPermissions encodes the descriptor's AP field.
type AccessPermissions int

const (
	KernelReadWrite AccessPermissions = iota
	KernelReadOnly
	UserReadWrite
	UserReadOnly
)

// Attrs is the attribute set applied to every page in a MapIdentity or
// MapRange call.
type Attrs struct {
	MemType      MemType
	Shareability Shareability
	Access       AccessPermissions
	ExecuteNever bool
}

func (a Attrs) attrIndex() uint64 {
	if a.MemType == Device {
		return AttrDevice
	}
	return AttrNormal
}

func (a Attrs) shareabilityBits() uint64 {
	if a.Shareability == InnerShareable {
		return 0b11
	}
	return 0b00
}

func (a Attrs) accessBits() uint64 {
	switch a.Access {
	case KernelReadOnly:
		return 0b10
	case UserReadWrite:
		return 0b01
	case UserReadOnly:
		return 0b11
	default:
		return 0b00
	}
}

// DefaultKernelRW is Normal/InnerShareable/KernelRW/executable.
func DefaultKernelRW() Attrs {
	return Attrs{MemType: Normal, Shareability: InnerShareable, Access: KernelReadWrite}
}

// Errors returned by the table builder.
var (
	ErrUnalignedAddress = errors.New("mmu: unaligned address")
	ErrUnalignedSize    = errors.New("mmu: unaligned size")
)

// AlreadyMappedError reports a double-map attempt at a specific VA.
type AlreadyMappedError struct {
	VA uint64
}

func (e *AlreadyMappedError) Error() string {
	return fmt.Sprintf("mmu: already mapped: 0x%x", e.VA)
}

// pageTable is one level of the translation hierarchy: 8192 descriptor
// words, granule-aligned.
type pageTable struct {
	entries [entriesPerTable]uint64
}

// KernelTables owns a root table and every child table it allocates while
// servicing MapRange calls. Tables live exactly as long as the KernelTables
// that owns them; there is no freeing.
type KernelTables struct {
	root  *pageTable
	owned []*pageTable
}

// NewTables allocates a fresh, empty root table.
func NewTables() *KernelTables {
	return &KernelTables{root: &pageTable{}}
}

// RootPhys returns the physical address of the root table. Because this
// kernel runs with the identity mapping before the MMU is enabled, the
// virtual address of a Go-allocated table doubles as its physical address.
func (t *KernelTables) RootPhys() uint64 {
	return tablePhys(t.root)
}

// MapIdentity maps physStart to itself for size bytes.
func (t *KernelTables) MapIdentity(physStart, size uint64, attrs Attrs) error {
	return t.MapRange(physStart, physStart, size, attrs)
}

// MapRange maps [virtStart, virtStart+size) to phys, page by page. All three
// arguments must be granule-multiples.
func (t *KernelTables) MapRange(virtStart, physStart, size uint64, attrs Attrs) error {
	if virtStart&pageMask != 0 {
		return fmt.Errorf("%w: 0x%x", ErrUnalignedAddress, virtStart)
	}
	if physStart&pageMask != 0 {
		return fmt.Errorf("%w: 0x%x", ErrUnalignedAddress, physStart)
	}
	if size&pageMask != 0 {
		return fmt.Errorf("%w: %d", ErrUnalignedSize, size)
	}

	pageCount := size / page

	for i := uint64(0); i < pageCount; i++ {
		va := virtStart + i*page
		pa := physStart + i*page

		if err := t.mapSinglePage(va, pa, attrs); err != nil {
			return err
		}
	}

	return nil
}

func (t *KernelTables) mapSinglePage(virt, phys uint64, attrs Attrs) error {
	l1 := levelIndex(virt, 2)
	l2 := levelIndex(virt, 1)
	l3 := levelIndex(virt, 0)

	l2Table := t.ensureChildTable(&t.root.entries[l1])
	l3Table := t.ensureChildTable(&l2Table.entries[l2])

	if l3Table.entries[l3]&descValid != 0 {
		return &AlreadyMappedError{VA: virt}
	}

	l3Table.entries[l3] = buildPageDescriptor(phys, attrs)

	return nil
}

// ensureChildTable returns the table referenced by entry, allocating and
// installing a fresh one (owned by t) if the entry is not yet valid.
func (t *KernelTables) ensureChildTable(entry *uint64) *pageTable {
	if *entry&descValid == 0 {
		table := &pageTable{}
		t.owned = append(t.owned, table)

		phys := tablePhys(table)
		*entry = (phys &^ pageMask) | descType | descValid

		return table
	}

	phys := *entry &^ pageMask
	return tableAt(phys)
}

// Translate returns the physical address mapped to virt, or ok=false if
// virt was never mapped.
func (t *KernelTables) Translate(virt uint64) (phys uint64, ok bool) {
	l1 := levelIndex(virt, 2)
	l2 := levelIndex(virt, 1)
	l3 := levelIndex(virt, 0)

	l1Entry := t.root.entries[l1]
	l2Table, ok := entryTable(l1Entry)
	if !ok {
		return 0, false
	}

	l2Entry := l2Table.entries[l2]
	l3Table, ok := entryTable(l2Entry)
	if !ok {
		return 0, false
	}

	l3Entry := l3Table.entries[l3]
	if l3Entry&descValid == 0 {
		return 0, false
	}

	base := l3Entry &^ pageMask
	offset := virt & pageMask

	return base + offset, true
}

// DumpMapping renders the L1/L2/L3 descriptor chain for virt, for debug
// logging. It never panics on an unmapped or partially-mapped address.
func (t *KernelTables) DumpMapping(virt uint64) string {
	l1 := levelIndex(virt, 2)
	l2 := levelIndex(virt, 1)
	l3 := levelIndex(virt, 0)

	l1Entry := t.root.entries[l1]
	out := fmt.Sprintf("VA 0x%x L1[%d]=0x%x", virt, l1, l1Entry)

	l2Table, ok := entryTable(l1Entry)
	if !ok {
		return out
	}

	l2Entry := l2Table.entries[l2]
	out += fmt.Sprintf(" L2[%d]=0x%x", l2, l2Entry)

	l3Table, ok := entryTable(l2Entry)
	if !ok {
		return out
	}

	l3Entry := l3Table.entries[l3]
	out += fmt.Sprintf(" L3[%d]=0x%x", l3, l3Entry)

	return out
}

func entryTable(entry uint64) (*pageTable, bool) {
	if entry&descValid == 0 || entry&descType == 0 {
		return nil, false
	}
	return tableAt(entry &^ pageMask), true
}

func levelIndex(addr uint64, level uint) int {
	shift := uint64(pageShift) + uint64(level)*levelBits
	return int((addr >> shift) & levelMask)
}

func buildPageDescriptor(phys uint64, attrs Attrs) uint64 {
	desc := (phys &^ pageMask) | descValid | descType | descAF
	desc |= attrs.attrIndex() << descAttrShift
	desc |= attrs.shareabilityBits() << descSHShift
	desc |= attrs.accessBits() << descAPShift

	if attrs.ExecuteNever {
		desc |= descPXN | descUXN
	}

	return desc
}
