// BCM283x/BCM2711 GPIO support
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package gpio drives the Raspberry Pi GPIO function-select and pull
// registers, enough to route the PL011 UART pins to their alternate
// function for console output.
package gpio

import (
	"fmt"

	"github.com/usbarmory/tamago-rpi/internal/reg"
)

const (
	gpfsel0    = 0x00
	gpset0     = 0x1c
	gpclr0     = 0x28
	gplev0     = 0x34
	gpioPUPPDN = 0xe4
)

// Function represents the function-select mode of a GPIO line.
type Function uint32

const (
	FunctionInput Function = 0
	FunctionOutput Function = 1
	FunctionAlt0   Function = 4
	FunctionAlt1   Function = 5
	FunctionAlt2   Function = 6
	FunctionAlt3   Function = 7
	FunctionAlt4   Function = 3
	FunctionAlt5   Function = 2
)

// Pull represents the pull-up/pull-down/no-resistor state of a GPIO line
// on the BCM2711 GPIO_PUP_PDN_CNTRL_REGx interface.
type Pull uint32

const (
	PullNone Pull = 0
	PullUp   Pull = 1
	PullDown Pull = 2
)

// Controller represents one GPIO controller instance, addressed through
// its MMIO base taken from the FDT summary.
type Controller struct {
	Base uintptr
}

// Line represents a single GPIO pin on a Controller.
type Line struct {
	ctrl *Controller
	num  int
}

// Line returns the GPIO line for the given pin number (0-57 on BCM2711).
func (c *Controller) Line(num int) (*Line, error) {
	if num < 0 || num > 57 {
		return nil, fmt.Errorf("gpio: invalid line number %d", num)
	}

	return &Line{ctrl: c, num: num}, nil
}

// SelectFunction programs the line's function-select field.
func (l *Line) SelectFunction(fn Function) {
	addr := l.ctrl.Base + gpfsel0 + 4*uintptr(l.num/10)
	shift := uint32((l.num % 10) * 3)

	val := reg.Read(addr)
	val &= ^(uint32(0x7) << shift)
	val |= (uint32(fn) << shift)
	reg.Write(addr, val)
}

// SetPull programs the line's pull resistor state.
func (l *Line) SetPull(p Pull) {
	addr := l.ctrl.Base + gpioPUPPDN + 4*uintptr(l.num/16)
	shift := uint32((l.num % 16) * 2)

	val := reg.Read(addr)
	val &= ^(uint32(0x3) << shift)
	val |= (uint32(p) << shift)
	reg.Write(addr, val)
}

// High drives the line high (only meaningful when configured as output).
func (l *Line) High() {
	addr := l.ctrl.Base + gpset0 + 4*uintptr(l.num/32)
	reg.Write(addr, 1<<uint32(l.num%32))
}

// Low drives the line low (only meaningful when configured as output).
func (l *Line) Low() {
	addr := l.ctrl.Base + gpclr0 + 4*uintptr(l.num/32)
	reg.Write(addr, 1<<uint32(l.num%32))
}

// Value reads back the line's level.
func (l *Line) Value() bool {
	addr := l.ctrl.Base + gplev0 + 4*uintptr(l.num/32)
	shift := uint32(l.num % 32)
	return (reg.Read(addr)>>shift)&1 != 0
}

// ConfigurePL011UART routes GPIO14 (TXD0) and GPIO15 (RXD0) to alternate
// function 0 (UART0) with pull-up enabled, the wiring used by every
// Raspberry Pi board this kernel targets.
func (c *Controller) ConfigurePL011UART() error {
	txd, err := c.Line(14)
	if err != nil {
		return err
	}

	rxd, err := c.Line(15)
	if err != nil {
		return err
	}

	txd.SelectFunction(FunctionAlt0)
	rxd.SelectFunction(FunctionAlt0)

	txd.SetPull(PullUp)
	rxd.SetPull(PullUp)

	return nil
}
