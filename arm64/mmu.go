// ARM64 processor support
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

// defined in mmu.s
func read_sctlr() uint64
func write_sctlr(val uint64)
func read_id_aa64mmfr0() uint64
func read_mair() uint64
func write_mair(val uint64)
func read_ttbr0() uint64
func write_ttbr0(val uint64)
func read_ttbr1() uint64
func write_ttbr1(val uint64)
func write_tcr(val uint64)
func dsb_ish()
func isb()
func ic_iallu()
func tlbi_vmalle1()

const (
	sctlrM = 1 << 0
	sctlrC = 1 << 2
	sctlrI = 1 << 12

	idAA64MMFR0TGran64Shift = 24
	idAA64MMFR0TGran64Mask  = 0xf
	// TGran64 field value indicating 64 KiB granule is supported.
	tGran64Supported = 0x0
)

// MMUEnabled reports whether SCTLR_EL1.M is already set.
func MMUEnabled() bool {
	return read_sctlr()&sctlrM != 0
}

// SupportsGranule64KiB reports whether ID_AA64MMFR0_EL1.TGran64 advertises
// support for the 64 KiB translation granule.
func SupportsGranule64KiB() bool {
	field := (read_id_aa64mmfr0() >> idAA64MMFR0TGran64Shift) & idAA64MMFR0TGran64Mask
	return field == tGran64Supported
}

// MAIR returns the current MAIR_EL1 value.
func MAIR() uint64 {
	return read_mair()
}

// SetMAIR programs MAIR_EL1.
func SetMAIR(val uint64) {
	write_mair(val)
}

// TTBR0 returns the current TTBR0_EL1 value.
func TTBR0() uint64 {
	return read_ttbr0()
}

// SetTTBR0 programs TTBR0_EL1 with a granule-aligned table base.
func SetTTBR0(phys uint64) {
	write_ttbr0(phys)
}

// TTBR1 returns the current TTBR1_EL1 value.
func TTBR1() uint64 {
	return read_ttbr1()
}

// SetTTBR1 programs TTBR1_EL1 with a granule-aligned table base.
func SetTTBR1(phys uint64) {
	write_ttbr1(phys)
}

// SCTLR returns the current SCTLR_EL1 value.
func SCTLR() uint64 {
	return read_sctlr()
}

// SetTCR programs TCR_EL1.
func SetTCR(val uint64) {
	write_tcr(val)
}

// DSB executes a data synchronization barrier, inner-shareable domain.
func DSB() {
	dsb_ish()
}

// ISB executes an instruction synchronization barrier.
func ISB() {
	isb()
}

// InvalidateInstructionCache executes `ic iallu`.
func InvalidateInstructionCache() {
	ic_iallu()
}

// InvalidateTLB executes `tlbi vmalle1`.
func InvalidateTLB() {
	tlbi_vmalle1()
}

// EnableMMUAndCaches sets SCTLR_EL1.{M,C,I}.
func EnableMMUAndCaches() {
	write_sctlr(read_sctlr() | sctlrM | sctlrC | sctlrI)
}
