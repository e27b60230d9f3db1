// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mmu

import (
	"errors"
	"testing"
	"unsafe"
)

func TestMapIdentityThenTranslateRoundTrips(t *testing.T) {
	tables := NewTables()

	const base = 0x40000000
	const size = 4 * page

	if err := tables.MapIdentity(base, size, DefaultKernelRW()); err != nil {
		t.Fatalf("MapIdentity: %v", err)
	}

	for _, off := range []uint64{0, page, 3*page + 0x100} {
		virt := base + off
		phys, ok := tables.Translate(virt)
		if !ok {
			t.Fatalf("Translate(0x%x) reported unmapped", virt)
		}
		if phys != virt {
			t.Errorf("Translate(0x%x) = 0x%x, want identity 0x%x", virt, phys, virt)
		}
	}
}

func TestTranslateUnmappedAddressReportsNotOK(t *testing.T) {
	tables := NewTables()

	if _, ok := tables.Translate(0x90000000); ok {
		t.Error("Translate on an empty table set should report unmapped")
	}
}

func TestMapRangeRejectsDoubleMapping(t *testing.T) {
	tables := NewTables()

	const va = 0x40000000

	if err := tables.MapRange(va, va, page, DefaultKernelRW()); err != nil {
		t.Fatalf("first MapRange: %v", err)
	}

	err := tables.MapRange(va, va, page, DefaultKernelRW())

	var already *AlreadyMappedError
	if !errors.As(err, &already) {
		t.Fatalf("second MapRange error = %v, want *AlreadyMappedError", err)
	}
	if already.VA != va {
		t.Errorf("AlreadyMappedError.VA = 0x%x, want 0x%x", already.VA, va)
	}
}

func TestMapRangeRejectsUnalignedArguments(t *testing.T) {
	tables := NewTables()

	if err := tables.MapRange(1, 0, page, DefaultKernelRW()); !errors.Is(err, ErrUnalignedAddress) {
		t.Errorf("unaligned virt error = %v, want ErrUnalignedAddress", err)
	}

	if err := tables.MapRange(0, 1, page, DefaultKernelRW()); !errors.Is(err, ErrUnalignedAddress) {
		t.Errorf("unaligned phys error = %v, want ErrUnalignedAddress", err)
	}

	if err := tables.MapRange(0, 0, page+1, DefaultKernelRW()); !errors.Is(err, ErrUnalignedSize) {
		t.Errorf("unaligned size error = %v, want ErrUnalignedSize", err)
	}
}

func TestRootPhysMatchesIdentityAssumption(t *testing.T) {
	tables := NewTables()

	if tables.RootPhys() == 0 {
		t.Error("RootPhys of a freshly allocated table set should not be zero")
	}

	if got, want := tables.RootPhys(), uint64(uintptr(unsafe.Pointer(tables.root))); got != want {
		t.Errorf("RootPhys = 0x%x, want the root table's own address 0x%x", got, want)
	}
}

func TestFingerprintChangesWithTableContent(t *testing.T) {
	a := NewTables()
	b := NewTables()

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("two empty table sets should fingerprint identically")
	}

	if err := a.MapIdentity(0x40000000, page, DefaultKernelRW()); err != nil {
		t.Fatalf("MapIdentity: %v", err)
	}

	if a.Fingerprint() == b.Fingerprint() {
		t.Error("fingerprint did not change after mapping a new page")
	}
}

func TestFingerprintIsDeterministic(t *testing.T) {
	tables := NewTables()
	tables.MapIdentity(0x40000000, page, DefaultKernelRW())

	first := tables.Fingerprint()
	second := tables.Fingerprint()

	if first != second {
		t.Errorf("Fingerprint is not stable across calls: %q != %q", first, second)
	}
}
