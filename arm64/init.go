// ARM64 processor support
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

import (
	_ "unsafe"
)

// Init takes care of the lower level initialization triggered before runtime
// setup (pre World start).
//
// Unlike tamago's stock boards, this kernel does not bring the MMU up here:
// building the 3-level table tree (package mmu) allocates from the Go heap,
// which is not yet available this early. The MMU comes up once the runtime
// world has started, from cmd/kernel's main after mm.Build (see mmu.Enable).
//
//go:linkname Init runtime/goos.Hwinit0
func Init() {
	fp_enable()
}
