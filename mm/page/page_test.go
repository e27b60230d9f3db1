// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package page

import "testing"

func TestReserveAndAllocate(t *testing.T) {
	a := FromRegions([]RAMRegion{{Start: 0x0000_0000, Size: 0x2000_0000}})

	img, ok := a.ReserveSpan(0x0008_0000, 0x0004_0000, KernelImage)
	if !ok {
		t.Fatalf("expected KernelImage reservation to succeed")
	}
	if img.Start != 0x0008_0000 || img.Size != 0x0004_0000 {
		t.Fatalf("unexpected KernelImage reservation: %+v", img)
	}

	pool, ok := a.AllocateContiguous(160, EmergencyPool)
	if !ok {
		t.Fatalf("expected EmergencyPool allocation to succeed")
	}
	if pool.Size != 160*Size {
		t.Fatalf("unexpected EmergencyPool size: %d", pool.Size)
	}

	wantFree := uint64(0x2000_0000 - 0x00A4_0000)
	if got := a.TotalFreeBytes(); got != wantFree {
		t.Fatalf("total free bytes = 0x%X, want 0x%X", got, wantFree)
	}

	if len(a.ReservedRegions()) != 2 {
		t.Fatalf("expected 2 reserved regions, got %d", len(a.ReservedRegions()))
	}
}

func TestReserveSpanZeroSize(t *testing.T) {
	a := FromRegions([]RAMRegion{{Start: 0, Size: Size}})

	if _, ok := a.ReserveSpan(0, 0, KernelImage); ok {
		t.Fatalf("expected zero-size reservation to fail")
	}
}

func TestFromRegionsDiscardsEmptyAfterAlignment(t *testing.T) {
	a := FromRegions([]RAMRegion{{Start: 10, Size: 20}})

	if a.TotalFreeBytes() != 0 {
		t.Fatalf("expected sub-granule region to be discarded, got %d free bytes", a.TotalFreeBytes())
	}
}

func TestCarveSplitsSegment(t *testing.T) {
	a := FromRegions([]RAMRegion{{Start: 0, Size: 4 * Size}})

	// Carve a span strictly inside the free segment, leaving head and tail.
	if _, ok := a.ReserveSpan(Size, Size, Custom); !ok {
		t.Fatalf("expected mid-segment reservation to succeed")
	}

	if got, want := a.TotalFreeBytes(), uint64(3*Size); got != want {
		t.Fatalf("total free bytes = %d, want %d", got, want)
	}

	if len(a.free) != 2 {
		t.Fatalf("expected free list to split into 2 segments, got %d", len(a.free))
	}
}

func TestAllocateContiguousExhaustsFreeList(t *testing.T) {
	a := FromRegions([]RAMRegion{{Start: 0, Size: Size}})

	if _, ok := a.AllocateContiguous(1, KernelImage); !ok {
		t.Fatalf("expected single-page allocation to succeed")
	}

	if _, ok := a.AllocateContiguous(1, KernelImage); ok {
		t.Fatalf("expected second allocation to fail once free list is exhausted")
	}
}
