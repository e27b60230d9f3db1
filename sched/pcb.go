// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import (
	"sync/atomic"

	"github.com/usbarmory/tamago-rpi/internal/lock"
)

// Kernel and user PCB table sizes, independent of MaxKernelTasks/
// MaxUserTasks: those bound the demo task-function tables the dispatcher
// rotates over, these bound the process/thread accounting tables.
const (
	KernelPCBCount = 3
	UserPCBCount   = 5
)

// ProcessState is one of the lifecycle states a PCB can be in.
type ProcessState uint32

const (
	StateCreated ProcessState = iota
	StateAssigned
	StateRunning
	StateSleeping
	StateWaitingSyscall
	StateZombie
	StateTerminated
)

func (s ProcessState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAssigned:
		return "assigned"
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateWaitingSyscall:
		return "waiting-syscall"
	case StateZombie:
		return "zombie"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ContextFrame is the register snapshot a preemptive switch would restore:
// the 30 general-purpose registers the trampoline preserves, the saved
// stack pointer, program counter, and processor state. RegisterTask seeds
// its SP/PC/SPSR; SnapshotContext updates the PCB's own PC/SPSREL1/SPEL0
// fields, not this frame. dispatch does not consume it: it only ever runs
// tasks cooperatively to completion.
type ContextFrame struct {
	GPRegs [30]uint64
	SP     uint64
	PC     uint64
	SPSR   uint64
}

// SyscallRequest is the inline mailbox slot a task would populate before
// trapping into the kernel.
type SyscallRequest struct {
	Valid       bool
	Number      uint32
	Argc        uint32
	Args        [6]uint64
	PID         uint64
	TimestampNs int64
}

// SyscallResponse is the inline mailbox slot the kernel would populate in
// reply to a SyscallRequest.
type SyscallResponse struct {
	Valid      bool
	ReturnCode int64
	Data       [4]uint64
	Errno      int32
	Flags      uint32
}

// PCB is a Process Control Block: the full state of one schedulable task,
// kernel or user. ClaimFlag is the sole field safe to touch concurrently
// from more than one core (via Claim/Release); every other field is
// mutated exclusively by whichever core currently owns the task's
// lifecycle step.
type PCB struct {
	PID      uint64
	UID      uint32
	GID      uint32
	Priority uint32
	State    ProcessState

	// ClaimFlag is 0 (free) or 1 (claimed); touched only via Claim/Release.
	ClaimFlag uint32

	OwnerCore uint8
	IsRunning bool

	PC       uint64
	SP       uint64
	LR       uint64
	PSTATE   uint64
	SPSREL1  uint64
	TPIDREL0 uint64

	Registers [30]uint64
	SPEL0     uint64

	// FPRegisters holds the 32 128-bit SIMD/FP registers V0..V31 as
	// low/high uint64 halves.
	FPRegisters [32][2]uint64
	FPCR        uint64
	FPSR        uint64

	TTBR0                uint64
	PageTablePermissions  uint32
	KernelStackBase       uint64
	KernelStackTop        uint64
	KernelStackGuardPage  uint64
	KernelStackChunks     uint32
	UserStackBase         uint64
	UserStackSize         uint64

	BinaryPath     [256]byte
	ArgvKernelCopy [1024]byte
	Argc           uint64

	ExitCode      int32
	CPUTimeMs     uint64
	CreationTime  uint64
	SignalPending uint64

	MailboxRequest  SyscallRequest
	MailboxResponse SyscallResponse

	Context ContextFrame
}

// reset clears the PCB back to its zero, Terminated state.
func (p *PCB) reset() {
	*p = PCB{State: StateTerminated}
}

// Claim atomically moves a free (ClaimFlag==0) PCB to claimed. It is the
// sole cross-core synchronization primitive over the PCB tables.
func (p *PCB) Claim() bool {
	return atomic.CompareAndSwapUint32(&p.ClaimFlag, 0, 1)
}

// Release marks the PCB free again.
func (p *PCB) Release() {
	atomic.StoreUint32(&p.ClaimFlag, 0)
}

// MarkAssigned resets the PCB and assigns it pid/entry/priority/ttbr0 as a
// fresh task ready to run, moving Terminated -> Assigned. ClaimFlag is
// published last, a release-ordered handoff to whichever core dispatches
// it next.
func (p *PCB) MarkAssigned(pid uint64, entry uintptr, priority uint32, ttbr0 uint64) {
	p.reset()
	p.PID = pid
	p.Priority = priority
	p.State = StateAssigned
	p.PC = uint64(entry)
	p.LR = uint64(entry)
	p.IsRunning = false
	p.TTBR0 = ttbr0
	p.SPEL0 = 0
	atomic.StoreUint32(&p.ClaimFlag, 1)
}

// MarkRunning moves Assigned -> Running on the given core.
func (p *PCB) MarkRunning(coreID uint8) {
	p.OwnerCore = coreID
	p.State = StateRunning
	p.IsRunning = true
	atomic.StoreUint32(&p.ClaimFlag, 1)
}

// MarkIdle moves Running -> Assigned and frees the claim.
func (p *PCB) MarkIdle() {
	p.IsRunning = false
	p.State = StateAssigned
	atomic.StoreUint32(&p.ClaimFlag, 0)
}

// Terminate moves any state -> Terminated and frees the claim.
func (p *PCB) Terminate(exitCode int32) {
	p.IsRunning = false
	p.ExitCode = exitCode
	p.State = StateTerminated
	atomic.StoreUint32(&p.ClaimFlag, 0)
}

// SnapshotContext records a trap-time PC/SPSR/SP_EL0 triple, the minimal
// state a future preemptive scheduler would need to resume this task.
func (p *PCB) SnapshotContext(pc, spsr, spEl0 uint64) {
	p.PC = pc
	p.SPSREL1 = spsr
	p.SPEL0 = spEl0
}

func copyName(dst []byte, name string) {
	n := copy(dst, name)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// KernelProcessTable is the fixed-size PCB table for kernel-domain tasks.
type KernelProcessTable struct {
	entries [KernelPCBCount]PCB
}

func newKernelProcessTable() KernelProcessTable {
	var t KernelProcessTable
	for i := range t.entries {
		t.entries[i].State = StateTerminated
	}
	return t
}

// RegisterTask installs a kernel task into slot, mirroring the boot-time
// population of the kernel PCB table.
func (t *KernelProcessTable) RegisterTask(slot int, entry uintptr, priority uint32, ttbr1Phys uint64, name string, stackBase, stackTop, initialSPSR uint64) {
	if slot < 0 || slot >= len(t.entries) {
		return
	}

	pcb := &t.entries[slot]
	pcb.MarkAssigned(uint64(slot+1), entry, priority, 0)
	pcb.KernelStackGuardPage = ttbr1Phys
	pcb.KernelStackBase = stackBase
	pcb.KernelStackTop = stackTop
	pcb.SP = stackTop
	pcb.PC = uint64(entry)
	pcb.LR = uint64(entry)
	pcb.SPSREL1 = initialSPSR
	pcb.OwnerCore = 0
	copyName(pcb.BinaryPath[:], name)
	atomic.StoreUint32(&pcb.ClaimFlag, 0)
	pcb.Context = ContextFrame{SP: stackTop, PC: uint64(entry), SPSR: initialSPSR}
}

// WithSlot invokes fn with exclusive access to the slot-th PCB, reporting
// whether slot was in range.
func (t *KernelProcessTable) WithSlot(slot int, fn func(*PCB)) bool {
	if slot < 0 || slot >= len(t.entries) {
		return false
	}
	fn(&t.entries[slot])
	return true
}

// UserProcessTable is the fixed-size PCB table for user/driver-domain tasks.
type UserProcessTable struct {
	entries [UserPCBCount]PCB
}

func newUserProcessTable() UserProcessTable {
	var t UserProcessTable
	for i := range t.entries {
		t.entries[i].State = StateTerminated
	}
	return t
}

// RegisterTask installs a user task into slot, mirroring the boot-time
// population of the user PCB table.
func (t *UserProcessTable) RegisterTask(slot int, entry uintptr, priority uint32, ttbr0Phys uint64, name string, stackBase, stackTop, initialSPSR uint64) {
	if slot < 0 || slot >= len(t.entries) {
		return
	}

	pcb := &t.entries[slot]
	pcb.MarkAssigned(0x1000+uint64(slot), entry, priority, ttbr0Phys)
	pcb.UserStackBase = stackBase
	pcb.UserStackSize = stackTop - stackBase
	pcb.TPIDREL0 = uint64(slot)
	pcb.SP = stackTop
	pcb.PC = uint64(entry)
	pcb.LR = uint64(entry)
	pcb.SPSREL1 = initialSPSR
	pcb.OwnerCore = 1
	copyName(pcb.BinaryPath[:], name)
	atomic.StoreUint32(&pcb.ClaimFlag, 0)
	pcb.Context = ContextFrame{SP: stackTop, PC: uint64(entry), SPSR: initialSPSR}
}

// WithSlot invokes fn with exclusive access to the slot-th PCB, reporting
// whether slot was in range.
func (t *UserProcessTable) WithSlot(slot int, fn func(*PCB)) bool {
	if slot < 0 || slot >= len(t.entries) {
		return false
	}
	fn(&t.entries[slot])
	return true
}

var (
	kernelTable = lock.New(newKernelProcessTable())
	userTable   = lock.New(newUserProcessTable())
)

// WithKernelProcessTable runs fn with exclusive access to the kernel PCB
// table, the single-core early-boot null-lock discipline documented for
// the scheduler's global state.
func WithKernelProcessTable(fn func(t *KernelProcessTable)) {
	kernelTable.With(fn)
}

// WithUserProcessTable runs fn with exclusive access to the user PCB table.
func WithUserProcessTable(fn func(t *UserProcessTable)) {
	userTable.With(fn)
}

// WithKernelProcess runs fn against the slot-th kernel PCB, reporting
// whether slot was in range.
func WithKernelProcess(slot int, fn func(*PCB)) bool {
	var ok bool
	WithKernelProcessTable(func(t *KernelProcessTable) {
		ok = t.WithSlot(slot, fn)
	})
	return ok
}

// WithUserProcess runs fn against the slot-th user PCB, reporting whether
// slot was in range.
func WithUserProcess(slot int, fn func(*PCB)) bool {
	var ok bool
	WithUserProcessTable(func(t *UserProcessTable) {
		ok = t.WithSlot(slot, fn)
	})
	return ok
}
