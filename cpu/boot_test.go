// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cpu

import "testing"

func TestReleaserForPicksPSCIOnlyForQEMUVirt(t *testing.T) {
	cases := []struct {
		board string
		psci  bool
	}{
		{"Raspberry Pi 4 Model B", false},
		{"Raspberry Pi 5", false},
		{"QEMU virt", true},
	}

	for _, c := range cases {
		_, isPSCI := ReleaserFor(c.board).(QEMUPSCIReleaser)
		if isPSCI != c.psci {
			t.Errorf("ReleaserFor(%q) PSCI = %v, want %v", c.board, isPSCI, c.psci)
		}
	}
}

type countingReleaser struct {
	released []int
	failAt   int
}

func (r *countingReleaser) ReleaseCore(core int, entry uintptr) error {
	r.released = append(r.released, core)
	if core == r.failAt {
		return errTestRelease
	}
	return nil
}

var errTestRelease = releaseError("release failed")

type releaseError string

func (e releaseError) Error() string { return string(e) }

func TestStartSecondaryCoresSkipsBootCoreAndCollectsErrors(t *testing.T) {
	r := &countingReleaser{failAt: 2}

	errs := StartSecondaryCores(r, 4, 0x80000)

	if len(r.released) != 3 || r.released[0] != 1 || r.released[2] != 3 {
		t.Fatalf("released = %v, want [1 2 3]", r.released)
	}

	if len(errs) != 1 {
		t.Fatalf("errs = %v, want exactly one error for core 2", errs)
	}
}

func TestReleaseCoreZeroIsNoOp(t *testing.T) {
	r := &countingReleaser{}

	if err := r.ReleaseCore(0, 0x80000); err != nil {
		t.Fatal("unreachable: fake releaser has no special-case for core 0")
	}

	rpi := RPiReleaser{}
	if err := rpi.ReleaseCore(0, 0x80000); err != nil {
		t.Errorf("RPiReleaser.ReleaseCore(0, ...) = %v, want nil", err)
	}

	qemu := QEMUPSCIReleaser{}
	if err := qemu.ReleaseCore(0, 0x80000); err != nil {
		t.Errorf("QEMUPSCIReleaser.ReleaseCore(0, ...) = %v, want nil", err)
	}
}
