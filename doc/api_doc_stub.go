// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// stub for pkg.go.dev coverage
//go:build !tamago

// Package doc describes the runtime hooks this kernel links into the
// modified `GOOS=tamago` Go runtime, as required to boot on bare-metal
// AArch64 (Raspberry Pi 4/5, QEMU virt).
//
// These hooks are the contract between the freestanding Go runtime and the
// kernel's own early-boot assembly and drivers. In this tree only Hwinit0 is
// provided, by [arm64] (arm64.Init, linked with `go:linkname` as
// `runtime/goos.Hwinit0`); the other hooks below are not defined under
// [arm64] or [cpu].
//
// This package exists for documentation purposes only; it is never built
// under `GOOS=tamago` and the functions/variables below have no bodies here.
//
// [arm64]: https://github.com/usbarmory/tamago-rpi/tree/main/arm64
// [cpu]: https://github.com/usbarmory/tamago-rpi/tree/main/cpu
package doc

// Hwinit0, linked as runtime.hwinit0, runs before World start: it may not
// allocate. On this kernel it is arm64.Init, which enables floating-point
// access (CPACR_EL1.FPEN) and nothing else.
//
//	//go:linkname Hwinit0 runtime.hwinit0
//
//go:linkname Hwinit0 runtime.hwinit0
func Hwinit0()

// Hwinit1, linked as runtime.hwinit1, runs early in runtime setup, after
// World start. This kernel does not define it: FDT parsing, table building
// and MMU enablement run from cmd/kernel's main instead.
//
//	//go:linkname Hwinit1 runtime.hwinit1
//
//go:linkname Hwinit1 runtime.hwinit1
func Hwinit1()

// Printk, linked as runtime.printk, writes a single character to the
// console. This kernel does not define it; console output is written to
// the PL011 UART driver directly.
//
//	//go:linkname Printk runtime.printk
//
//go:linkname Printk runtime.printk
func Printk(c byte)

// Nanotime, linked as runtime.nanotime1, returns the system time in
// nanoseconds, read from the AArch64 generic timer's physical counter.
//
//	//go:linkname Nanotime runtime.nanotime1
//
//go:linkname Nanotime runtime.nanotime1
func Nanotime() int64

// RamStart, linked as runtime.ramStart, is the start address of the memory
// available to the runtime allocator, including the code segment.
//
//	//go:linkname RamStart runtime.ramStart
//
//go:linkname RamStart runtime.ramStart
var RamStart uint

// RamSize, linked as runtime.ramSize, is the total size of the memory
// available to the runtime allocator.
//
//	//go:linkname RamSize runtime.ramSize
//
//go:linkname RamSize runtime.ramSize
var RamSize uint

// RamStackOffset, linked as runtime.ramStackOffset, is the negative offset
// from the end of available memory reserved for stack allocation.
//
//	//go:linkname RamStackOffset runtime.ramStackOffset
//
//go:linkname RamStackOffset runtime.ramStackOffset
var RamStackOffset uint
