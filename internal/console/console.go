// Package console is the single STDOUT/STDERR/STDIN sink every process
// shares: a VGA text-mode screen is out of scope for this kernel, so the
// console is the serial port wearing a file-descriptor-shaped interface.
// Reads and writes against fd 0/1/2 always succeed against it.
package console

import "aceos/internal/serial"

// Write sends p to the serial port and always reports the full length
// written, matching a console device that cannot back-pressure the one
// CPU this kernel runs on.
func Write(p []byte) (int, error) {
	return serial.Write(p)
}

// ReadByte returns the oldest buffered input byte, ok is false if none
// is pending yet.
func ReadByte() (c byte, ok bool) {
	return serial.Pop()
}

// Empty reports whether there is no buffered input waiting to be read.
func Empty() bool {
	return serial.Empty()
}
