// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mmu

import (
	"errors"

	"github.com/usbarmory/tamago-rpi/arm64"
)

// ErrGranuleUnsupported is returned by Enable when the CPU does not
// advertise 64 KiB translation-granule support.
var ErrGranuleUnsupported = errors.New("mmu: 64 KiB translation granule not supported")

// ErrUnalignedTTBR is returned by Enable when ttbrPhys is not granule-aligned.
var ErrUnalignedTTBR = errors.New("mmu: TTBR base address not 64 KiB aligned")

// tcr bit positions (ARMv8-A TCR_EL1, two-half encoding).
const (
	tcrT0SZShift   = 0
	tcrEPD0        = 1 << 7
	tcrIRGN0Shift  = 8
	tcrORGN0Shift  = 10
	tcrSH0Shift    = 12
	tcrTG0Shift    = 14
	tcrT1SZShift   = 16
	tcrA1          = 1 << 22
	tcrEPD1        = 1 << 23
	tcrIRGN1Shift  = 24
	tcrORGN1Shift  = 26
	tcrSH1Shift    = 28
	tcrTG1Shift    = 30
	tcrIPSShift    = 32
	tcrTBI0        = 1 << 37
	tcrTBI1        = 1 << 38

	rgnWriteBackRAWA = 0b01
	shInner          = 0b11
	tg64KiB0         = 0b01 // TG0 encoding for 64 KiB granule
	tg64KiB1         = 0b11 // TG1 encoding for 64 KiB granule
	ips40Bit         = 0b010
	vaBits           = 48
)

// tcrValue builds the TCR_EL1 value the spec mandates: TBI for both halves,
// 40-bit IPS, 64 KiB granule for both halves, inner-shareable,
// inner/outer write-back read/write-allocate, both EPD walks enabled,
// T0SZ = T1SZ = 64 - 48 = 16.
func tcrValue() uint64 {
	tsz := uint64(64 - vaBits)

	var v uint64
	v |= tsz << tcrT0SZShift
	v |= uint64(rgnWriteBackRAWA) << tcrIRGN0Shift
	v |= uint64(rgnWriteBackRAWA) << tcrORGN0Shift
	v |= uint64(shInner) << tcrSH0Shift
	v |= uint64(tg64KiB0) << tcrTG0Shift

	v |= tsz << tcrT1SZShift
	v |= tcrA1
	v |= uint64(rgnWriteBackRAWA) << tcrIRGN1Shift
	v |= uint64(rgnWriteBackRAWA) << tcrORGN1Shift
	v |= uint64(shInner) << tcrSH1Shift
	v |= uint64(tg64KiB1) << tcrTG1Shift

	v |= uint64(ips40Bit) << tcrIPSShift
	v |= tcrTBI0
	v |= tcrTBI1

	// both EPD bits cleared (0 means "walks enabled"): do nothing for
	// tcrEPD0/tcrEPD1, they are only referenced for documentation.
	_ = tcrEPD0
	_ = tcrEPD1

	return v
}

// Enable programs MAIR/TTBR0/TTBR1/TCR for ttbrPhys and turns the MMU and
// caches on, per section 4.4. It is idempotent: if SCTLR.M is already set it
// returns nil without reprogramming anything.
func Enable(ttbrPhys uint64) error {
	if ttbrPhys&pageMask != 0 {
		return ErrUnalignedTTBR
	}

	if arm64.MMUEnabled() {
		return nil
	}

	if !arm64.SupportsGranule64KiB() {
		return ErrGranuleUnsupported
	}

	arm64.SetMAIR(MAIRValue())
	arm64.SetTTBR0(ttbrPhys)
	arm64.SetTTBR1(ttbrPhys)
	arm64.SetTCR(tcrValue())

	arm64.DSB()
	arm64.ISB()

	arm64.InvalidateInstructionCache()
	arm64.DSB()
	arm64.ISB()

	arm64.InvalidateTLB()
	arm64.DSB()
	arm64.ISB()

	arm64.EnableMMUAndCaches()
	arm64.DSB()
	arm64.ISB()

	return nil
}
