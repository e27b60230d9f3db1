// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm64
// +build tamago,arm64

// Command kernel is the boot entrypoint: parse the firmware device tree,
// select and initialize the matching board driver, build the memory
// manager and enable the MMU, bring up the interrupt controller and
// secondary cores, and hand off to the scheduler.
package main

import (
	"fmt"
	"log"

	"github.com/usbarmory/tamago-rpi/arm64"
	"github.com/usbarmory/tamago-rpi/board"
	_ "github.com/usbarmory/tamago-rpi/board/qemuvirt"
	_ "github.com/usbarmory/tamago-rpi/board/raspberrypi4"
	_ "github.com/usbarmory/tamago-rpi/board/raspberrypi5"
	"github.com/usbarmory/tamago-rpi/cpu"
	"github.com/usbarmory/tamago-rpi/fdt"
	"github.com/usbarmory/tamago-rpi/gic"
	"github.com/usbarmory/tamago-rpi/mm"
	"github.com/usbarmory/tamago-rpi/mm/mmu"
	"github.com/usbarmory/tamago-rpi/sched"
)

// configuredDTBAddr is the physical address this kernel probes for a valid
// FDT blob, per the firmware contract (kernel loaded at 0x80000). The same
// fixed address is probed on every board this kernel targets.
const configuredDTBAddr = 0x44000000

// kernelImageStart/kernelImageEnd bound the kernel's own load image, the
// RPi convention load address through a fixed 1 MiB budget.
const (
	kernelImageStart = 0x80000
	kernelImageEnd   = 0x180000
)

func fallbackSummary() fdt.Summary {
	return fdt.Fallback(fdt.Peripherals{
		MMIOStart:        0xFE000000,
		UARTPL011:        0xFE201000,
		GPIO:             0xFE200000,
		GICDistributor:   0xFF841000,
		GICRedistributor: 0xFF842000,
		LocalINTC:        0xFF800000,
	})
}

func main() {
	log.SetFlags(0)

	summary, err := fdt.Parse(configuredDTBAddr)
	if err != nil {
		log.Printf("fdt: %v, falling back to hard-coded summary", err)
		summary = fallbackSummary()
	}

	drv, err := board.Select(summary)
	if err != nil {
		log.Fatalf("board: %v", err)
	}

	fmt.Fprintf(drv.UART(), "-- %s -------------------------------------------------\n", drv.BoardName())

	manager, notes := mm.Build(summary, kernelImageStart, kernelImageEnd)
	for _, n := range notes {
		fmt.Fprintf(drv.UART(), "mm: %s\n", n)
	}

	if err := mmu.Enable(manager.KernelTTBR1()); err != nil {
		fmt.Fprintf(drv.UART(), "mmu: %v, continuing with MMU off\n", err)
	}

	fmt.Fprintf(drv.UART(), "mm: %d bytes free across %d RAM region(s)\n",
		manager.TotalFreeBytes(), len(summary.MemoryRegions))

	controller := &gic.GIC{
		DistributorBase:  uintptr(summary.Peripherals.GICDistributor),
		CPUInterfaceBase: uintptr(summary.Peripherals.GICRedistributor),
	}
	controller.InitPrimary()

	sched.KernelTasks[0] = cpu.RunKernelDebugChecks
	sched.UserTasks[0] = cpu.RunUserDebugChecks

	coreCount := drv.DefaultCoreCount()
	for _, releaseErr := range cpu.BringUpSecondaryCores(drv.BoardName(), coreCount, cpu.DefaultCoreEntry) {
		fmt.Fprintf(drv.UART(), "cpu: %v\n", releaseErr)
	}

	sched.Init(controller)

	fmt.Fprintf(drv.UART(), "-- scheduler running, core %d armed -------------------\n", arm64.CoreID())

	select {}
}
