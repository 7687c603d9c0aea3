// Package serial drives the 16550 UART at COM1: polled transmit, the
// kernel's debug log sink, and an IRQ4-fed ring buffer for received
// bytes. Framing of received bytes into higher-level messages is left
// to whatever reads the buffer.
package serial

import (
	"aceos/internal/arch"
	"aceos/internal/idt"
	"aceos/internal/pic"
)

const (
	com1 = 0x3F8

	regData       = 0
	regIntEnable  = 1
	regFIFOCtrl   = 2
	regLineCtrl   = 3
	regModemCtrl  = 4
	regLineStatus = 5

	lsrDataReady    = 0x01
	lsrTHREmpty     = 0x20
	dlabEnable      = 0x80
	baudDivisor3    = 0x03 // 38400 baud
	lineMode8N1     = 0x03
	fifoEnableClear = 0xC7
	modemRTSDSRIRQ  = 0x0B

	bufferSize = 256
	irqLine    = 4
)

var (
	rxBuffer        [bufferSize]byte
	rxHead, rxTail  uint32
	initialized     bool
)

// Init programs the UART for 38400 8N1 with FIFOs enabled and wires its
// receive interrupt (IRQ4) through the idt package. Boot runs it first,
// before idt.Init and pic.Init: RegisterIRQ only fills the handler
// table, and pic.Init restores the mask bits it finds, so IRQ4 stays
// unmasked.
func Init() {
	arch.Out8(com1+regIntEnable, 0x00)

	arch.Out8(com1+regLineCtrl, dlabEnable)
	arch.Out8(com1+regData, baudDivisor3)
	arch.Out8(com1+regIntEnable, 0x00)

	arch.Out8(com1+regLineCtrl, lineMode8N1)
	arch.Out8(com1+regFIFOCtrl, fifoEnableClear)
	arch.Out8(com1+regModemCtrl, modemRTSDSRIRQ)
	arch.Out8(com1+regIntEnable, 0x01)

	idt.RegisterIRQ(irqLine, handleInterrupt)
	pic.ClearMask(irqLine)

	rxHead, rxTail = 0, 0
	initialized = true

	WriteString("serial port initialized - aceos debugging enabled\r\n")
}

func transmitEmpty() bool {
	return arch.In8(com1+regLineStatus)&lsrTHREmpty != 0
}

// WriteByte blocks until the transmit holding register is empty, then
// sends c.
func WriteByte(c byte) {
	for !transmitEmpty() {
	}
	arch.Out8(com1+regData, c)
}

// WriteString writes every byte of s, a no-op before Init so early boot
// code can log unconditionally without a nil check at every call site.
func WriteString(s string) {
	if !initialized {
		return
	}
	for i := 0; i < len(s); i++ {
		WriteByte(s[i])
	}
}

// Write implements io.Writer so the serial port can be handed to
// fmt.Fprintf and similar formatting helpers as the kernel's log sink.
func Write(p []byte) (int, error) {
	if !initialized {
		return len(p), nil
	}
	for _, b := range p {
		WriteByte(b)
	}
	return len(p), nil
}

func handleInterrupt(irq uint8, f *idt.Frame) {
	data := arch.In8(com1 + regData)
	push(data)
	WriteByte(data) // local echo
	pic.SendEOI(irq)
}

func push(c byte) {
	next := (rxHead + 1) % bufferSize
	if next != rxTail {
		rxBuffer[rxHead] = c
		rxHead = next
	}
	// buffer full: character dropped, matching the original's behavior
}

// Pop removes and returns the oldest received byte; ok is false if the
// buffer is empty.
func Pop() (c byte, ok bool) {
	if rxHead == rxTail {
		return 0, false
	}
	c = rxBuffer[rxTail]
	rxTail = (rxTail + 1) % bufferSize
	return c, true
}

// Empty reports whether the receive buffer has no pending bytes.
func Empty() bool { return rxHead == rxTail }
