// Board driver selection
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package board selects, among the boards compiled into this binary, the
// one whose board-specific driver matches the firmware-provided FDT
// summary, and tracks it as the process-wide active driver.
package board

import (
	"errors"
	"sync/atomic"

	"github.com/usbarmory/tamago-rpi/fdt"
	"github.com/usbarmory/tamago-rpi/internal/lock"
)

// Driver is what every board-specific package must implement. Each board
// package registers its instance with Register from its own init(),
// mirroring the teacher's blank-import SoC registration convention.
type Driver interface {
	// Matches reports whether this driver's board matches the hardware
	// described by summary.
	Matches(summary fdt.Summary) bool

	// Init brings up the board's UART and GPIO; it touches MMIO and
	// must only ever run once.
	Init(summary fdt.Summary) error

	// BoardName is the human-readable board name.
	BoardName() string

	// DefaultCoreCount is the number of cores expected on the board.
	DefaultCoreCount() int

	// UART returns the console UART brought up by Init.
	UART() Console
}

// Console is the surface the active driver's UART must expose, matching
// spec.md's documented console capability set: write_char/write_fmt/flush
// (via Write, satisfying io.Writer for fmt.Fprintf) plus read_char/
// clear_rx/chars_written/chars_read.
type Console interface {
	// Write transmits p one character at a time (write_char, write_fmt
	// via fmt.Fprintf against this io.Writer).
	Write(p []byte) (int, error)

	// WriteChar transmits a single character, spinning while the TX FIFO
	// is full (write_char).
	WriteChar(c byte)

	// Flush blocks until the last queued character has left the TX shift
	// register (flush).
	Flush()

	// ReadChar blocks until a character is available and returns it,
	// converting CR to LF (read_char).
	ReadChar() byte

	// ClearRx discards any characters currently queued in the RX FIFO
	// without blocking (clear_rx).
	ClearRx()

	// CharsWritten returns the running count of characters transmitted
	// since Init (chars_written).
	CharsWritten() int

	// CharsRead returns the running count of characters received since
	// Init (chars_read).
	CharsRead() int
}

var registered []Driver

// Register adds a board driver to the set Select chooses among. It is
// called from each board package's init(), before Select ever runs.
func Register(d Driver) {
	registered = append(registered, d)
}

// ErrNoMatch is returned by Select when no registered driver matches the
// FDT summary.
var ErrNoMatch = errors.New("board: unsupported DTB, no matching board driver registered")

// ErrAlreadyInitialized is returned by Select on any call after the first.
var ErrAlreadyInitialized = errors.New("board: drivers already initialized")

var initDone uint32

var active = lock.New[Driver](nil)

// Select iterates the registered board drivers in registration order,
// picks the first one whose Matches reports true, runs its Init exactly
// once, and records it as the active driver. It is safe to call only
// once; subsequent calls return ErrAlreadyInitialized.
func Select(summary fdt.Summary) (Driver, error) {
	if !atomic.CompareAndSwapUint32(&initDone, 0, 1) {
		return nil, ErrAlreadyInitialized
	}

	for _, d := range registered {
		if d.Matches(summary) {
			if err := d.Init(summary); err != nil {
				return nil, err
			}

			active.With(func(v *Driver) { *v = d })

			return d, nil
		}
	}

	return nil, ErrNoMatch
}

// Active returns the currently selected board driver, or nil if Select has
// not yet succeeded.
func Active() Driver {
	return active.Get()
}

// BoardName returns the active driver's name, or "unknown" if none is
// selected yet.
func BoardName() string {
	if d := Active(); d != nil {
		return d.BoardName()
	}
	return "unknown"
}

// DefaultCoreCount returns the active driver's core-count hint, or 1 if no
// driver is selected yet.
func DefaultCoreCount() int {
	if d := Active(); d != nil {
		return d.DefaultCoreCount()
	}
	return 1
}
