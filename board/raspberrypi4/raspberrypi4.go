// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package raspberrypi4 is the board driver for the Raspberry Pi 4 Model B,
// registering itself with the board package on import.
package raspberrypi4

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
	if strings.Contains(summary.Model, "Raspberry Pi 4") {
		return true
	}
	for _, compat := range summary.Compatibles {
		if strings.Contains(compat, "raspberrypi,4") {
			return true
		}
	}
	return false
}

func (d *driver) Init(summary fdt.Summary) error {
	uartBase := summary.Peripherals.UARTPL011
	if uartBase == 0 {
		return errors.New("raspberrypi4: DTB did not provide a PL011 UART base address")
	}

	gpioBase := summary.Peripherals.GPIO
	if gpioBase == 0 {
		return errors.New("raspberrypi4: DTB did not provide a GPIO base address")
	}

	ctrl := &gpio.Controller{Base: uintptr(gpioBase)}
	if err := ctrl.ConfigurePL011UART(); err != nil {
		return err
	}

	d.uart = &pl011.UART{
		Base:     uintptr(uartBase),
		Clock:    48000000,
		Baudrate: pl011.DefaultBaudrate,
	}
	d.uart.Init()

	return nil
}

func (d *driver) BoardName() string {
	return "Raspberry Pi 4 Model B"
}

func (d *driver) DefaultCoreCount() int {
	return 4
}

func (d *driver) UART() board.Console {
	return d.uart
}
