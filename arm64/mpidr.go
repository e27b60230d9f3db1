// ARM64 processor support
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

// defined in mpidr.s
func read_mpidr() uint64

// CoreID returns this core's Affinity Level 0 field from MPIDR_EL1, the
// same core index the scheduler's IRQ handler uses to pick between the
// kernel- and user-task tables.
func CoreID() uint32 {
	return uint32(read_mpidr() & 0xff)
}
