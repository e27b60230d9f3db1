// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import "testing"

func resetTaskIdx() {
	for i := range CurrentTaskIdx {
		CurrentTaskIdx[i] = 0
	}
}

func TestRoundRobinWrapKernelCore(t *testing.T) {
	resetTaskIdx()

	var last uint32
	for i := 0; i < 7; i++ {
		var ok bool
		_, ok = advanceTaskIndex(0)
		if !ok {
			t.Fatal("advanceTaskIndex(0) reported out of range")
		}
		last = CurrentTaskIdx[0]
	}

	if last != 1 {
		t.Errorf("CurrentTaskIdx[0] after 7 IRQs = %d, want 1", last)
	}
}

func TestRoundRobinWrapUserCore(t *testing.T) {
	resetTaskIdx()

	for i := 0; i < 7; i++ {
		if _, ok := advanceTaskIndex(2); !ok {
			t.Fatal("advanceTaskIndex(2) reported out of range")
		}
	}

	if got := CurrentTaskIdx[2]; got != 1 {
		t.Errorf("CurrentTaskIdx[2] after 7 IRQs = %d, want 1", got)
	}
}

func TestAdvanceTaskIndexReturnsPostAdvanceSlot(t *testing.T) {
	resetTaskIdx()

	idx, ok := advanceTaskIndex(0)
	if !ok || idx != 1 {
		t.Fatalf("first advance on core 0 = (%d, %v), want (1, true)", idx, ok)
	}

	idx, ok = advanceTaskIndex(0)
	if !ok || idx != 0 {
		t.Fatalf("second advance on core 0 = (%d, %v), want (0, true) after wrap", idx, ok)
	}

	idx, ok = advanceTaskIndex(0)
	if !ok || idx != 1 {
		t.Fatalf("third advance on core 0 = (%d, %v), want (1, true)", idx, ok)
	}
}

func TestAdvanceTaskIndexRejectsOutOfRangeCore(t *testing.T) {
	if _, ok := advanceTaskIndex(MaxCores); ok {
		t.Error("expected out-of-range core to report !ok")
	}
}
