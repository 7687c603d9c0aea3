// Package process owns the process table: a fixed array of process
// control blocks that doubles as the storage arena for the scheduler's
// ready queue. Nothing here allocates a PCB on the heap; every process
// handle is an index into the array, and the array's own Next field is
// the ready-queue link, so enqueueing a process costs nothing beyond
// writing an index.
package process

import (
	"aceos/internal/pmm"
	"aceos/internal/vmm"
)

// MaxProcesses bounds the process table, matching the fixed PCB arena
// the original kernel carries.
const MaxProcesses = 32

// State is a process's scheduling state.
type State uint8

const (
	StateUnused State = iota
	StateRunning
	StateReady
	StateBlocked
	StateTerminated
)

// Priority selects a process's time slice.
type Priority uint8

const (
	PriorityHigh Priority = iota
	PriorityNormal
	PriorityLow
)

// timeSliceTicks maps a Priority to the number of 1ms PIT ticks its time
// slice lasts: 50/100/200, matching the original's millisecond values
// at the kernel's fixed 1kHz tick rate.
var timeSliceTicks = [...]uint32{
	PriorityHigh:   50,
	PriorityNormal: 100,
	PriorityLow:    200,
}

// Index identifies a slot in the process table. None (-1) is the
// "no process" sentinel used everywhere a C version would have used a
// NULL process_t*, including the ready-queue's Next link.
type Index int32

// None is the zero-value sentinel meaning "no process".
const None Index = -1

// Context is the CPU register snapshot captured at the last time this
// process was interrupted or yielded, restored verbatim on the next
// dispatch. Unlike the original's save_context/load_context, which zero
// every field, this is filled from the real idt.Frame the scheduler was
// entered with.
type Context struct {
	EAX, EBX, ECX, EDX uint32
	ESI, EDI           uint32
	ESP, EBP           uint32
	EIP                uint32
	EFlags             uint32
}

// PCB is one process control block.
type PCB struct {
	PID, ParentPID uint32
	Name           string
	State          State
	Priority       Priority

	Ctx Context

	PageDir     vmm.AddressSpace
	KernelStack pmm.Frame
	UserStack   pmm.Frame
	UserStackVA uint32
	HeapStart   uint32
	HeapEnd     uint32

	TimeSlice  uint32
	TimeUsed   uint32
	TotalTime  uint32

	CurrentDirectory string
	CreationTime     uint32
	ExitCode         int32

	// Next links this PCB into the scheduler's ready queue; it is the
	// array itself, not a separate list node, serving as storage arena.
	Next Index
}

var (
	table  [MaxProcesses]PCB
	nextPID uint32 = 1
	current Index = None
)

// Init resets the table and installs PID 0 as the running kernel
// process, with no page directory of its own (it runs in the kernel's
// address space).
func Init() {
	for i := range table {
		table[i] = PCB{}
	}
	table[0] = PCB{
		PID:              0,
		ParentPID:        0,
		Name:             "kernel",
		State:            StateRunning,
		Priority:         PriorityHigh,
		TimeSlice:        timeSliceTicks[PriorityHigh],
		CurrentDirectory: "/",
		Next:             None,
	}
	current = 0
	nextPID = 1
}

func allocPID() uint32 {
	pid := nextPID
	nextPID++
	if nextPID >= MaxProcesses {
		nextPID = 1
	}
	return pid
}

// Create allocates a PCB for a new process, sets up its address space
// and stacks, and returns its table index. ok is false if the table is
// full or memory setup failed; any partially-built state is rolled
// back in that case.
func Create(name string, entryPoint uint32, priority Priority) (idx Index, ok bool) {
	slot := Index(-1)
	for i := 1; i < MaxProcesses; i++ {
		if table[i].State == StateUnused {
			slot = Index(i)
			break
		}
	}
	if slot == None {
		return None, false
	}

	as, asOK := vmm.New()
	if !asOK {
		return None, false
	}
	kernelStack, ksOK := pmm.AllocFrame()
	if !ksOK {
		return None, false
	}
	userStack, usOK := pmm.AllocFrame()
	if !usOK {
		pmm.FreeFrame(kernelStack)
		return None, false
	}

	const userVirtualBase = 0x40000000
	const processStackSize = 4096
	userStackVA := uint32(userVirtualBase + 0x10000)
	as.Map(userStackVA, userStack.Addr(), vmm.FlagPresent|vmm.FlagWritable|vmm.FlagUser)

	cwd := "/"
	if current != None {
		cwd = table[current].CurrentDirectory
	}

	table[slot] = PCB{
		PID:         allocPID(),
		ParentPID:   parentPID(),
		Name:        name,
		State:       StateReady,
		Priority:    priority,
		TimeSlice:   timeSliceTicks[priority],
		PageDir:     as,
		KernelStack: kernelStack,
		UserStack:   userStack,
		UserStackVA: userStackVA,
		HeapStart:   userVirtualBase + 0x20000,
		HeapEnd:     userVirtualBase + 0x100000,
		Ctx: Context{
			EIP:    entryPoint,
			ESP:    userStackVA + processStackSize - 4,
			EBP:    userStackVA + processStackSize - 4,
			EFlags: 0x202,
		},
		CurrentDirectory: cwd,
		Next:             None,
	}
	return slot, true
}

func parentPID() uint32 {
	if current == None {
		return 0
	}
	return table[current].PID
}

// Destroy frees a process's stacks and marks its slot unused. PID 0,
// the kernel process, can never be destroyed.
func Destroy(idx Index) {
	if idx == None || idx == 0 {
		return
	}
	p := &table[idx]
	if p.State == StateUnused {
		return
	}
	pmm.FreeFrame(p.KernelStack)
	if frame, ok := p.PageDir.Unmap(p.UserStackVA); ok {
		pmm.FreeFrame(frame)
	} else {
		pmm.FreeFrame(p.UserStack)
	}
	*p = PCB{}
}

// Get returns a pointer to the PCB at idx for the scheduler to mutate
// directly; callers outside process and scheduler should prefer the
// read-only accessors below.
func Get(idx Index) *PCB { return &table[idx] }

// Current returns the index of the currently running process.
func Current() Index { return current }

// SetCurrent updates which process is considered running; only the
// scheduler package should call this.
func SetCurrent(idx Index) { current = idx }

// ByPID searches the table for a live process with the given PID.
func ByPID(pid uint32) (Index, bool) {
	for i := range table {
		if table[i].State != StateUnused && table[i].PID == pid {
			return Index(i), true
		}
	}
	return None, false
}

// Exit marks the current process terminated with the given exit code.
// The kernel process (PID 0) cannot exit.
func Exit(code int32) {
	if current == None || current == 0 {
		return
	}
	p := &table[current]
	p.ExitCode = code
	p.State = StateTerminated
}
