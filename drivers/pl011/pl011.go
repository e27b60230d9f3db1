// PL011 UART driver
// https://github.com/usbarmory/tamago-rpi
//
// IP: ARM PrimeCell UART (PL011)
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pl011 drives the PrimeCell UART found on Raspberry Pi boards,
// in 8N1 mode with both FIFOs enabled.
package pl011

import (
	"sync"

	"github.com/usbarmory/tamago-rpi/bits"
	"github.com/usbarmory/tamago-rpi/internal/reg"
)

// Register offsets (PrimeCell UART (PL011) Technical Reference Manual r1p5).
const (
	UARTx_DR   = 0x00
	UARTx_FR   = 0x18
	UARTx_IBRD = 0x24
	UARTx_FBRD = 0x28
	UARTx_LCRH = 0x2c
	UARTx_CR   = 0x30
	UARTx_ICR  = 0x44

	FR_TXFE = 7
	FR_TXFF = 5
	FR_RXFE = 4
	FR_BUSY = 3

	LCRH_WLEN = 5
	LCRH_FEN  = 4

	CR_RXE    = 9
	CR_TXE    = 8
	CR_UARTEN = 0

	// DefaultBaudrate is the UART speed this driver programs at Init,
	// matching the board's config.txt-fixed 48 MHz UART clock.
	DefaultBaudrate = 921600
)

// UART represents a PL011 serial port instance.
type UART struct {
	sync.Mutex

	// Base is the PL011 instance's MMIO base address, normally taken
	// from the FDT summary's UART peripheral base.
	Base uintptr

	// Clock is the UART reference clock in Hz (48 MHz on Raspberry
	// Pi boards with the default config.txt).
	Clock uint32

	// Baudrate is the programmed line speed.
	Baudrate uint32

	dr   uintptr
	fr   uintptr
	ibrd uintptr
	fbrd uintptr
	lcrh uintptr
	cr   uintptr
	icr  uintptr

	charsWritten int
	charsRead    int
}

// Init programs the baud rate divisors, 8N1 framing and FIFO mode, then
// enables the transmitter and receiver.
func (hw *UART) Init() {
	hw.Lock()
	defer hw.Unlock()

	if hw.Baudrate == 0 {
		hw.Baudrate = DefaultBaudrate
	}

	hw.dr = hw.Base + UARTx_DR
	hw.fr = hw.Base + UARTx_FR
	hw.ibrd = hw.Base + UARTx_IBRD
	hw.fbrd = hw.Base + UARTx_FBRD
	hw.lcrh = hw.Base + UARTx_LCRH
	hw.cr = hw.Base + UARTx_CR
	hw.icr = hw.Base + UARTx_ICR

	hw.flush()

	// disable the UART while reprogramming it
	reg.Write(hw.cr, 0)
	// clear all pending interrupts
	reg.Write(hw.icr, 0x7ff)

	integer, fractional := BaudDivisors(hw.Clock, hw.Baudrate)

	reg.Write(hw.ibrd, integer)
	reg.Write(hw.fbrd, fractional)

	// IBRD/FBRD only take effect on the LCR_H write that follows them
	var lcrh uint32
	bits.SetN(&lcrh, LCRH_WLEN, 0b11, 0b11) // 8 data bits
	bits.Set(&lcrh, LCRH_FEN)               // FIFOs enabled
	reg.Write(hw.lcrh, lcrh)

	var cr uint32
	bits.Set(&cr, CR_UARTEN)
	bits.Set(&cr, CR_TXE)
	bits.Set(&cr, CR_RXE)
	reg.Write(hw.cr, cr)
}

// BaudDivisors computes the IBRD/FBRD divisor pair for a given reference
// clock and target baud rate.
//
// integer = clock / (16 * baud)
// fractional = round((clock mod (16*baud)) * 64 / (16*baud))
func BaudDivisors(clock uint32, baud uint32) (integer uint32, fractional uint32) {
	denominator := uint64(16) * uint64(baud)
	c := uint64(clock)

	integer = uint32(c / denominator)
	remainder := c % denominator
	fractional = uint32(((remainder * 64) + (denominator / 2)) / denominator)

	return integer, fractional & 0x3f
}

func (hw *UART) txFull() bool {
	return reg.Get(hw.fr, FR_TXFF, 1) == 1
}

func (hw *UART) rxEmpty() bool {
	return reg.Get(hw.fr, FR_RXFE, 1) == 1
}

func (hw *UART) busy() bool {
	return reg.Get(hw.fr, FR_BUSY, 1) == 1
}

// flush blocks until the last queued character has left the TX shift
// register.
func (hw *UART) flush() {
	for hw.busy() {
	}
}

// Tx transmits a single character, spinning while the TX FIFO is full.
func (hw *UART) Tx(c byte) {
	for hw.txFull() {
	}

	reg.Write(hw.dr, uint32(c))
	hw.charsWritten++
}

// Rx receives a single character if the RX FIFO is non-empty.
func (hw *UART) Rx() (c byte, valid bool) {
	if hw.rxEmpty() {
		return 0, false
	}

	c = byte(reg.Read(hw.dr))
	hw.charsRead++

	return c, true
}

// Write transmits buf one character at a time.
func (hw *UART) Write(buf []byte) (int, error) {
	for _, c := range buf {
		hw.Tx(c)
	}

	return len(buf), nil
}

// Read fills buf with available received characters, stopping at the first
// gap in the RX FIFO.
func (hw *UART) Read(buf []byte) (n int, err error) {
	var valid bool

	for n = 0; n < len(buf); n++ {
		buf[n], valid = hw.Rx()

		if !valid {
			break
		}
	}

	return n, nil
}

// WriteChar transmits a single character (write_char).
func (hw *UART) WriteChar(c byte) {
	hw.Tx(c)
}

// Flush blocks until the last queued character has left the TX shift
// register (flush). Exported wrapper around the unexported busy-spin used
// internally by Init before reprogramming the line.
func (hw *UART) Flush() {
	hw.flush()
}

// ReadChar blocks until the RX FIFO has a character, then returns it,
// converting a carriage return to a line feed (read_char).
func (hw *UART) ReadChar() byte {
	for hw.rxEmpty() {
	}

	c, _ := hw.Rx()

	if c == '\r' {
		return '\n'
	}

	return c
}

// ClearRx discards any characters currently queued in the RX FIFO without
// blocking (clear_rx).
func (hw *UART) ClearRx() {
	for {
		if _, valid := hw.Rx(); !valid {
			return
		}
	}
}

// CharsWritten returns the running count of characters transmitted since
// Init (chars_written).
func (hw *UART) CharsWritten() int {
	return hw.charsWritten
}

// CharsRead returns the running count of characters received since Init
// (chars_read).
func (hw *UART) CharsRead() int {
	return hw.charsRead
}
