// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import "testing"

func TestPCBLifecycle(t *testing.T) {
	var p PCB

	if p.State != StateCreated {
		t.Fatalf("zero-value PCB state = %v, want %v", p.State, StateCreated)
	}

	p.MarkAssigned(7, 0x40000, 5, 0)
	if p.State != StateAssigned || p.PID != 7 || p.PC != 0x40000 {
		t.Errorf("after MarkAssigned: state=%v pid=%d pc=0x%x", p.State, p.PID, p.PC)
	}
	if p.ClaimFlag != 1 {
		t.Errorf("ClaimFlag = %d after MarkAssigned, want 1", p.ClaimFlag)
	}

	p.MarkRunning(2)
	if p.State != StateRunning || !p.IsRunning || p.OwnerCore != 2 {
		t.Errorf("after MarkRunning: state=%v running=%v core=%d", p.State, p.IsRunning, p.OwnerCore)
	}

	p.MarkIdle()
	if p.State != StateAssigned || p.IsRunning {
		t.Errorf("after MarkIdle: state=%v running=%v", p.State, p.IsRunning)
	}
	if p.ClaimFlag != 0 {
		t.Errorf("ClaimFlag = %d after MarkIdle, want 0", p.ClaimFlag)
	}

	p.Terminate(42)
	if p.State != StateTerminated || p.ExitCode != 42 {
		t.Errorf("after Terminate: state=%v exitCode=%d", p.State, p.ExitCode)
	}
}

func TestPCBClaimReleaseExcludesDoubleClaim(t *testing.T) {
	var p PCB

	if !p.Claim() {
		t.Fatal("first Claim on a free PCB should succeed")
	}

	if p.Claim() {
		t.Fatal("second Claim on an already-claimed PCB should fail")
	}

	p.Release()

	if !p.Claim() {
		t.Fatal("Claim after Release should succeed")
	}
}

func TestKernelProcessTableRegisterAndWithSlot(t *testing.T) {
	var table KernelProcessTable
	table.RegisterTask(0, 0x80000, 1, 0xdead0000, "kernel-task-0", 0x1000, 0x2000, 0x3c5)

	ok := table.WithSlot(0, func(p *PCB) {
		if p.State != StateAssigned {
			t.Errorf("registered task state = %v, want Assigned", p.State)
		}
		if p.SP != 0x2000 {
			t.Errorf("SP = 0x%x, want 0x2000", p.SP)
		}
		if string(p.BinaryPath[:13]) != "kernel-task-0" {
			t.Errorf("BinaryPath = %q, want kernel-task-0", p.BinaryPath[:13])
		}
	})
	if !ok {
		t.Fatal("WithSlot(0) reported out of range")
	}

	if table.WithSlot(KernelPCBCount, func(*PCB) {}) {
		t.Error("WithSlot should reject an out-of-range slot")
	}
}

func TestUserProcessTableRegisterSetsOwnerCoreAndStack(t *testing.T) {
	var table UserProcessTable
	table.RegisterTask(1, 0x90000, 3, 0xbeef0000, "user-task-1", 0x4000, 0x8000, 0x3c0)

	ok := table.WithSlot(1, func(p *PCB) {
		if p.OwnerCore != 1 {
			t.Errorf("OwnerCore = %d, want 1", p.OwnerCore)
		}
		if p.UserStackSize != 0x4000 {
			t.Errorf("UserStackSize = 0x%x, want 0x4000", p.UserStackSize)
		}
		if p.TTBR0 != 0xbeef0000 {
			t.Errorf("TTBR0 = 0x%x, want 0xbeef0000", p.TTBR0)
		}
	})
	if !ok {
		t.Fatal("WithSlot(1) reported out of range")
	}
}

func TestPackageLevelProcessTableHelpers(t *testing.T) {
	WithKernelProcessTable(func(t *KernelProcessTable) {
		t.RegisterTask(0, 0x1000, 0, 0, "k0", 0, 0x1000, 0)
	})

	if !WithKernelProcess(0, func(p *PCB) {
		if p.State != StateAssigned {
			t.Errorf("state = %v, want Assigned", p.State)
		}
	}) {
		t.Fatal("WithKernelProcess(0) reported out of range")
	}

	if WithKernelProcess(KernelPCBCount, func(*PCB) {}) {
		t.Error("WithKernelProcess should reject an out-of-range slot")
	}

	if WithUserProcess(UserPCBCount, func(*PCB) {}) {
		t.Error("WithUserProcess should reject an out-of-range slot")
	}
}
