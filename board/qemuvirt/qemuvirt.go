// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package qemuvirt is the board driver for QEMU's "virt" machine, used in
// PSCI-bring-up mode rather than the Raspberry Pi mailbox spin-table path.
// It registers itself with the board package on import.
package qemuvirt

import (
	"errors"
	"strings"

	"github.com/usbarmory/tamago-rpi/board"
	"github.com/usbarmory/tamago-rpi/drivers/gpio"
	"github.com/usbarmory/tamago-rpi/drivers/pl011"
	"github.com/usbarmory/tamago-rpi/fdt"
)

type driver struct {
	uart *pl011.UART
}

func init() {
	board.Register(&driver{})
}

func (d *driver) Matches(summary fdt.Summary) bool {
	if strings.Contains(summary.Model, "linux,dummy-virt") {
		return true
	}
	for _, compat := range summary.Compatibles {
		if strings.Contains(compat, "linux,dummy-virt") {
			return true
		}
	}
	return false
}

func (d *driver) Init(summary fdt.Summary) error {
	uartBase := summary.Peripherals.UARTPL011
	if uartBase == 0 {
		return errors.New("qemuvirt: DTB did not provide a PL011 UART base address")
	}

	// The virt machine's platform bus has no GPIO pin muxing to program;
	// its PL011 is wired directly, so a missing GPIO base is not an error.
	if gpioBase := summary.Peripherals.GPIO; gpioBase != 0 {
		ctrl := &gpio.Controller{Base: uintptr(gpioBase)}
		if err := ctrl.ConfigurePL011UART(); err != nil {
			return err
		}
	}

	d.uart = &pl011.UART{
		Base:     uintptr(uartBase),
		Clock:    24000000,
		Baudrate: pl011.DefaultBaudrate,
	}
	d.uart.Init()

	return nil
}

func (d *driver) BoardName() string {
	return "QEMU virt"
}

func (d *driver) DefaultCoreCount() int {
	return 4
}

func (d *driver) UART() board.Console {
	return d.uart
}
