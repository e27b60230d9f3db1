// ARM64 processor support
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package arm64 provides support for ARMv8-A architecture specific
// operations: generic timer programming, cache/TLB/MMU register access, and
// core exit.
//
// The following architectures/cores are supported/tested:
//   - ARMv8-A / Cortex-A72 (Raspberry Pi 4/5), Cortex-A53-class (QEMU virt)
//
// This package is only meant to be used with `GOOS=tamago GOARCH=arm64` as
// supported by the TamaGo framework for bare metal Go, see
// https://github.com/usbarmory/tamago.
package arm64

import (
	"runtime"
)

// CPU instance. One is constructed per core and carries that core's generic
// timer calibration.
type CPU struct {
	// Timer multiplier
	TimerMultiplier float64
	// Timer offset in nanoseconds
	TimerOffset int64
}

// defined in arm64.s
func exit(int32)

// Init registers the core's exit trampoline with the runtime. The vector
// table and MMU are brought up separately (see packages sched and mmu) once
// the Go heap is available, which is later than this function runs.
func (cpu *CPU) Init() {
	runtime.Exit = exit
}
