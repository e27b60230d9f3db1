// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sched implements the timer-IRQ-driven per-core round-robin
// dispatcher: a fixed kernel-task table run exclusively by the boot core, a
// fixed user-task table run by every other core, and the PCB tables a
// future preemptive design would park context into.
package sched

import (
	"github.com/usbarmory/tamago-rpi/arm64"
	"github.com/usbarmory/tamago-rpi/gic"
)

// Scheduler/timer configuration constants.
const (
	MaxCores       = 4
	MaxKernelTasks = 2
	MaxUserTasks   = 3
)

// CurrentTaskIdx holds the slot most recently dispatched on each core; the
// next IRQ on that core advances it before dispatching. It is mutated
// only by dispatch running on core c; see the shared-resource policy: this
// is per-core state, never touched by another core.
var CurrentTaskIdx [MaxCores]uint32

// KernelTasks is the fixed task table Core 0 (kernel domain) rotates
// through on every timer IRQ. Overwrite entries before calling Init to
// install real kernel task bodies.
var KernelTasks [MaxKernelTasks]func()

// UserTasks is the fixed task table cores 1..MaxCores-1 (user/driver
// domain) rotate through on every timer IRQ. Overwrite entries before
// calling Init to install real user/driver task bodies.
var UserTasks [MaxUserTasks]func()

var (
	timerCPU   arm64.CPU
	controller *gic.GIC
	vectorTbl  *arm64.VectorTable
)

// defined in trampoline.s
func schedulerTrampoline()

// Init installs the exception vector table on the calling core, arms the
// generic timer for a 5 ms quantum, and unmasks IRQs. g must already have
// completed init_primary/init_secondary for this core. It is safe to call
// once per core (Core 0 first, to build the shared vector table; every
// other core reuses it).
func Init(g *gic.GIC) {
	controller = g

	if vectorTbl == nil {
		vectorTbl = arm64.NewVectorTable(schedulerTrampoline)
	}
	vectorTbl.Install()

	timerCPU.ArmQuantum()
	timerCPU.EnableInterrupts()
}

// dispatch is the Go-level body of the IRQ trampoline: acknowledge the
// pending interrupt, advance this core's round-robin index over the task
// table matching its domain, run the selected task body to completion
// (cooperative dispatch only, no preemption — tasks are ordinary function
// bodies without suspension points), re-arm the timer for the next
// quantum, and signal end-of-interrupt.
func dispatch() {
	id := controller.Acknowledge()

	core := arm64.CoreID()
	idx, ok := advanceTaskIndex(core)

	if ok {
		if core == 0 {
			if task := KernelTasks[idx]; task != nil {
				task()
			}
		} else if task := UserTasks[idx]; task != nil {
			task()
		}
	}

	timerCPU.ArmQuantum()
	controller.EndOfInterrupt(id)
}

// advanceTaskIndex loads CURRENT_TASK_IDX[core], clamps modulo
// MaxKernelTasks on core 0 or MaxUserTasks elsewhere, stores the result
// back, and returns the just-stored, post-advance index (the slot to
// dispatch this IRQ) along with whether core was in range — mirroring the
// store-then-reload-then-index sequence of the grounding scheduler_irq_handler.
func advanceTaskIndex(core uint32) (idx uint32, ok bool) {
	if int(core) >= MaxCores {
		return 0, false
	}

	idx = CurrentTaskIdx[core]

	if core == 0 {
		idx = (idx + 1) % MaxKernelTasks
	} else {
		idx = (idx + 1) % MaxUserTasks
	}

	CurrentTaskIdx[core] = idx

	return idx, true
}
