// Package pit programs PIT channel 0 for the 1kHz timer tick that
// drives wall-clock time, per-tick callbacks, and (via a
// registered hook, never a direct import) the scheduler's preemption
// decision.
package pit

import (
	"aceos/internal/arch"
	"aceos/internal/idt"
	"aceos/internal/pic"
)

// TickHook is called on every PIT tick with the trapped interrupt frame,
// letting the scheduler both account CPU time and, if a time slice
// expired, rewrite the frame in place before IRET resumes a different
// process.
type TickHook func(f *idt.Frame)

const (
	commandPort = 0x43
	channel0    = 0x40
	inputClock  = 1193180

	channelSelect0 = 0x00
	accessLoHiByte = 0x30
	modeSquareWave = 0x06

	// Frequency is the tick rate the kernel always programs the PIT to;
	// every tick-counted deadline (sleep, time slices) assumes 1ms ticks.
	Frequency = 1000

	maxCallbacks = 10
)

var (
	ticks       uint32
	seconds     uint32
	minutes     uint32
	hours       uint32
	days        uint32
	callbacks   [maxCallbacks]func()
	numCallback int
	tickHook    TickHook
)

// Init programs the PIT for Frequency and wires IRQ0 through the idt
// package. Must run after idt.Init and pic.Init.
func Init() {
	setFrequency(Frequency)
	idt.RegisterIRQ(0, handleTick)
}

func setFrequency(freq uint32) {
	divisor := inputClock / freq
	arch.Out8(commandPort, channelSelect0|accessLoHiByte|modeSquareWave)
	arch.Out8(channel0, uint8(divisor&0xFF))
	arch.Out8(channel0, uint8((divisor>>8)&0xFF))
}

func handleTick(irq uint8, f *idt.Frame) {
	ticks++
	if ticks%Frequency == 0 {
		advanceClock()
	}
	for i := 0; i < numCallback; i++ {
		if callbacks[i] != nil {
			callbacks[i]()
		}
	}
	if tickHook != nil {
		tickHook(f)
	}
	pic.SendEOI(irq)
}

func advanceClock() {
	seconds++
	if seconds >= 60 {
		seconds = 0
		minutes++
	}
	if minutes >= 60 {
		minutes = 0
		hours++
	}
	if hours >= 24 {
		hours = 0
		days++
	}
}

// Ticks returns the number of PIT ticks since Init; at Frequency=1000
// this is milliseconds of uptime.
func Ticks() uint32 { return ticks }

// Uptime returns the wall-clock time accumulated since Init.
func Uptime() (d, h, m, s uint32) {
	return days, hours, minutes, seconds
}

// RegisterCallback appends fn to the list invoked on every tick, up to
// maxCallbacks; additional registrations past that are dropped.
func RegisterCallback(fn func()) {
	if numCallback >= maxCallbacks {
		return
	}
	callbacks[numCallback] = fn
	numCallback++
}

// SetTickHook installs the single hook the scheduler uses to drive
// preemption. Kept distinct from RegisterCallback so pit has exactly one
// privileged consumer and an unbounded list of best-effort ones.
func SetTickHook(fn TickHook) { tickHook = fn }
