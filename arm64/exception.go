// ARM64 processor support
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

import (
	"github.com/usbarmory/tamago-rpi/internal/exception"
)

var isThrowing bool

// defined in exception.s
func read_el() uint64

// DefaultExceptionHandler prints the exception level and a best-effort
// symbolized PC before panicking. The vector table installed by package
// sched leaves the synchronous/FIQ/SError slots self-branching (a silent
// hang, per the boot-time error policy); this handler exists for boards
// that patch one of those slots to a diagnostic trampoline instead.
func DefaultExceptionHandler(pc uintptr) {
	if isThrowing {
		exit(0)
	}

	isThrowing = true

	print("EL", int(read_el()&0b1100)>>2, " exception\n")
	exception.Throw(pc)
}

// SystemExceptionHandler is invoked by a board's diagnostic vector slot, if
// it installs one.
var SystemExceptionHandler = DefaultExceptionHandler
