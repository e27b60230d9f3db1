// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package page implements a physical page allocator over fixed-size
// granules. It never frees: once a span is reserved or allocated it stays
// reserved for the lifetime of the kernel, matching the one-shot boot-time
// reservation lifecycle of the rest of the memory subsystem.
package page

const (
	// Size is the granule size in bytes, matching the MMU's 64 KiB
	// translation granule.
	Size = 64 * 1024

	mask = uint64(Size) - 1
)

func alignDown(v uint64) uint64 {
	return v &^ mask
}

func alignUp(v uint64) uint64 {
	if v&mask == 0 {
		return v
	}
	return alignDown(v) + uint64(Size)
}

// RAMRegion is one memory bank as reported by firmware.
type RAMRegion struct {
	Start uint64
	Size  uint64
}

// End returns the exclusive end address of the region.
func (r RAMRegion) End() uint64 {
	return r.Start + r.Size
}

// segment is a free, granule-aligned span of physical memory.
type segment struct {
	start uint64
	size  uint64
}

func (s segment) end() uint64 {
	return s.start + s.size
}

// ReservationKind classifies why a span was taken out of the free list.
type ReservationKind int

const (
	KernelImage ReservationKind = iota
	EmergencyPool
	FirmwareArtifact
	Custom
)

func (k ReservationKind) String() string {
	switch k {
	case KernelImage:
		return "kernel-image"
	case EmergencyPool:
		return "emergency-pool"
	case FirmwareArtifact:
		return "firmware-artifact"
	default:
		return "custom"
	}
}

// ReservedRegion is a granule-aligned span removed from the free list.
type ReservedRegion struct {
	Start uint64
	Size  uint64
	Kind  ReservationKind
	Tag   string // set when Kind == Custom
}

// Allocator manages physical RAM as a free list of granule-aligned segments
// plus the regions carved out of it.
type Allocator struct {
	free     []segment
	reserved []ReservedRegion
}

// FromRegions builds an Allocator from the RAM regions reported by firmware.
// Each region is aligned inward to the granule; a region that collapses to
// nothing after alignment is discarded.
func FromRegions(regions []RAMRegion) *Allocator {
	a := &Allocator{}

	for _, r := range regions {
		start := alignUp(r.Start)
		end := alignDown(r.End())

		if end <= start {
			continue
		}

		a.free = append(a.free, segment{start: start, size: end - start})
	}

	return a
}

// ReserveSpan aligns [start, start+size) outward to the granule, carves it
// out of every intersecting free segment, and records the reservation. It
// returns false if size is zero or the aligned span does not intersect any
// free segment.
func (a *Allocator) ReserveSpan(start, size uint64, kind ReservationKind) (ReservedRegion, bool) {
	return a.reserveSpanTagged(start, size, kind, "")
}

// ReserveSpanTagged is ReserveSpan with a Custom kind's tag attached.
func (a *Allocator) ReserveSpanTagged(start, size uint64, tag string) (ReservedRegion, bool) {
	return a.reserveSpanTagged(start, size, Custom, tag)
}

func (a *Allocator) reserveSpanTagged(start, size uint64, kind ReservationKind, tag string) (ReservedRegion, bool) {
	if size == 0 {
		return ReservedRegion{}, false
	}

	alignedStart := alignDown(start)
	alignedEnd := alignUp(start + size)

	if alignedEnd <= alignedStart {
		return ReservedRegion{}, false
	}

	if !a.carveFreeSegments(alignedStart, alignedEnd) {
		return ReservedRegion{}, false
	}

	region := ReservedRegion{
		Start: alignedStart,
		Size:  alignedEnd - alignedStart,
		Kind:  kind,
		Tag:   tag,
	}
	a.reserved = append(a.reserved, region)

	return region, true
}

// AllocateContiguous first-fits page granules out of the free list.
func (a *Allocator) AllocateContiguous(pageCount int, kind ReservationKind) (ReservedRegion, bool) {
	if pageCount <= 0 {
		return ReservedRegion{}, false
	}

	bytes := uint64(pageCount) * uint64(Size)

	for idx := range a.free {
		seg := &a.free[idx]

		if seg.size < bytes {
			continue
		}

		start := seg.start
		seg.start += bytes
		seg.size -= bytes

		if seg.size == 0 {
			a.free = append(a.free[:idx], a.free[idx+1:]...)
		}

		region := ReservedRegion{Start: start, Size: bytes, Kind: kind}
		a.reserved = append(a.reserved, region)

		return region, true
	}

	return ReservedRegion{}, false
}

// TotalFreeBytes sums the size of every remaining free segment.
func (a *Allocator) TotalFreeBytes() uint64 {
	var total uint64
	for _, s := range a.free {
		total += s.size
	}
	return total
}

// ReservedRegions returns the regions reserved so far, in reservation order.
func (a *Allocator) ReservedRegions() []ReservedRegion {
	return a.reserved
}

// carveFreeSegments removes [start, end) from every intersecting free
// segment, splitting, truncating, or removing segments as needed. It
// reports whether any segment was touched.
func (a *Allocator) carveFreeSegments(start, end uint64) bool {
	modified := false
	idx := 0

	for idx < len(a.free) {
		seg := a.free[idx]
		segStart := seg.start
		segEnd := seg.end()

		if end <= segStart || start >= segEnd {
			idx++
			continue
		}

		modified = true

		switch {
		case start <= segStart && end >= segEnd:
			a.free = append(a.free[:idx], a.free[idx+1:]...)
			continue

		case start <= segStart && end < segEnd:
			a.free[idx].start = end
			a.free[idx].size = segEnd - end
			idx++

		case start > segStart && end >= segEnd:
			a.free[idx].size = start - segStart
			idx++

		default:
			tail := segment{start: end, size: segEnd - end}
			a.free[idx].size = start - segStart
			a.free = append(a.free[:idx+1], append([]segment{tail}, a.free[idx+1:]...)...)
			return modified
		}
	}

	return modified
}
