// Package scheduler drives preemptive round-robin multitasking over the
// process table. The ready queue is intrusive: it is nothing but a
// head/tail pair of process.Index values threaded through each PCB's own
// Next field, so enqueueing or dequeuing never allocates.
package scheduler

import (
	"aceos/internal/idt"
	"aceos/internal/pit"
	"aceos/internal/process"
	"aceos/internal/vmm"
)

type queue struct {
	head, tail process.Index
	count      uint32
}

// Stats mirrors the counters the original scheduler tracks for its
// debug printout.
type Stats struct {
	TotalProcesses  uint32
	ContextSwitches uint32
	TimeSlices      uint32
	IdleTicks       uint32
}

var (
	ready   queue
	stats   Stats
	enabled bool
)

// Init resets the ready queue and statistics and enables scheduling.
// Call after process.Init.
func Init() {
	ready = queue{head: process.None, tail: process.None}
	stats = Stats{}
	enabled = true
	pit.SetTickHook(Tick)
}

// Add enqueues idx as ready to run.
func Add(idx process.Index) {
	if idx == process.None || !enabled {
		return
	}
	p := process.Get(idx)
	p.State = process.StateReady
	p.Next = process.None

	if ready.tail != process.None {
		process.Get(ready.tail).Next = idx
		ready.tail = idx
	} else {
		ready.head = idx
		ready.tail = idx
	}
	ready.count++
	stats.TotalProcesses++
}

// Remove pulls idx out of the ready queue wherever it sits, a no-op if
// it isn't queued.
func Remove(idx process.Index) {
	if idx == process.None || !enabled || ready.count == 0 {
		return
	}
	cur := ready.head
	prev := process.None
	for cur != process.None {
		if cur == idx {
			if prev != process.None {
				process.Get(prev).Next = process.Get(cur).Next
			} else {
				ready.head = process.Get(cur).Next
			}
			if cur == ready.tail {
				ready.tail = prev
			}
			ready.count--
			process.Get(cur).Next = process.None
			return
		}
		prev = cur
		cur = process.Get(cur).Next
	}
}

func popNext() process.Index {
	if ready.count == 0 {
		return process.None
	}
	next := ready.head
	ready.head = process.Get(next).Next
	if ready.head == process.None {
		ready.tail = process.None
	}
	ready.count--
	process.Get(next).Next = process.None
	return next
}

// Schedule picks the next ready process and switches to it, saving the
// outgoing process's register context from f and loading the incoming
// process's context into f so the IRET that follows resumes the new
// process instead of the old one. A nil f means the call didn't happen
// from within a trap (e.g. a voluntary yield from kernel code with no
// frame to rewrite), in which case no registers are saved or restored.
// The address space is switched only when the incoming process runs in
// a different one from the outgoing process.
func Schedule(f *idt.Frame) {
	if !enabled {
		return
	}
	next := popNext()
	if next == process.None {
		cur := process.Current()
		if cur != process.None && process.Get(cur).State == process.StateRunning {
			return
		}
		stats.IdleTicks++
		return
	}

	prev := process.Current()
	if prev != process.None {
		p := process.Get(prev)
		if p.State == process.StateRunning {
			if f != nil {
				saveContext(p, f)
			}
			if p.State != process.StateTerminated {
				Add(prev)
			}
		}
	}

	process.SetCurrent(next)
	np := process.Get(next)
	np.State = process.StateRunning
	np.TimeUsed = 0
	stats.ContextSwitches++

	if f != nil {
		loadContext(np, f)
	}
	if as := addressSpaceOf(next); prev == process.None || addressSpaceOf(prev) != as {
		vmm.Switch(as)
	}
}

// addressSpaceOf returns the address space idx runs in. The kernel
// process (slot 0) has no page directory of its own and runs in the
// kernel's.
func addressSpaceOf(idx process.Index) vmm.AddressSpace {
	if idx == 0 {
		return vmm.Kernel()
	}
	return process.Get(idx).PageDir
}

func saveContext(p *process.PCB, f *idt.Frame) {
	p.Ctx = process.Context{
		EAX: f.EAX, EBX: f.EBX, ECX: f.ECX, EDX: f.EDX,
		ESI: f.ESI, EDI: f.EDI,
		EIP: f.EIP, EFlags: f.EFlags,
	}
}

func loadContext(p *process.PCB, f *idt.Frame) {
	f.EAX, f.EBX, f.ECX, f.EDX = p.Ctx.EAX, p.Ctx.EBX, p.Ctx.ECX, p.Ctx.EDX
	f.ESI, f.EDI = p.Ctx.ESI, p.Ctx.EDI
	f.EIP, f.EFlags = p.Ctx.EIP, p.Ctx.EFlags
}

// Tick is the PIT tick hook: it accounts time for the running process
// and preempts it once its slice is exhausted.
func Tick(f *idt.Frame) {
	if !enabled {
		return
	}
	cur := process.Current()
	if cur == process.None {
		return
	}
	stats.TimeSlices++
	p := process.Get(cur)
	p.TimeUsed++
	p.TotalTime++
	if p.TimeUsed >= p.TimeSlice {
		Schedule(f)
	}
}

// Yield voluntarily gives up the remainder of the current time slice.
func Yield(f *idt.Frame) {
	if !enabled {
		return
	}
	Schedule(f)
}

// GetStats snapshots the scheduler's counters, adding the live ready
// queue depth the original recomputes on every print.
func GetStats() (s Stats, readyCount uint32) {
	return stats, ready.count
}
