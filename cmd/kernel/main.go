// Command kernel is aceos's entry point: it brings every subsystem up
// in dependency order, then idles on HLT waiting for the timer and
// keyboard interrupts to drive the rest of the machine.
//
// The bootloader hands off with paging off, interrupts off, and a flat
// GDT already loaded; everything from here on is this package's job.
package main

import (
	"aceos/internal/arch"
	"aceos/internal/ata"
	"aceos/internal/console"
	"aceos/internal/fs"
	"aceos/internal/heap"
	"aceos/internal/idt"
	"aceos/internal/keyboard"
	"aceos/internal/pic"
	"aceos/internal/pit"
	"aceos/internal/pmm"
	"aceos/internal/process"
	"aceos/internal/scheduler"
	"aceos/internal/serial"
	"aceos/internal/syscall"
	"aceos/internal/vmm"
)

// initialHeapSize is how much of the kernel heap arena main claims at
// boot; a process asking for more than this through sbrk-style growth
// is out of scope for this kernel.
const initialHeapSize = 16 * 1024 * 1024

func main() {
	serial.Init()
	serial.WriteString("aceos booting\r\n")

	idt.Init()
	serial.WriteString("idt initialized\r\n")

	pic.Init()
	serial.WriteString("pic remapped\r\n")

	pmm.Init()
	serial.WriteString("pmm initialized: " + pmm.Stats() + "\r\n")

	if err := vmm.Init(); err != nil {
		abortBoot(err.Error())
	}
	serial.WriteString("vmm initialized, kernel address space built\r\n")

	heap.Init(initialHeapSize)
	serial.WriteString("heap initialized\r\n")

	pit.Init()
	serial.WriteString("pit programmed for 1kHz tick\r\n")

	ata.Init()
	serial.WriteString("ata drives probed\r\n")

	process.Init()
	scheduler.Init()
	serial.WriteString("process table and scheduler initialized\r\n")

	keyboard.Init()
	serial.WriteString("keyboard initialized\r\n")

	fs.Init()
	serial.WriteString("filesystem initialized\r\n")

	syscall.SetConsoleWriter(func(p []byte) { console.Write(p) })
	syscall.Init()
	serial.WriteString("syscall gate installed at int 0x80\r\n")

	vmm.EnablePaging()
	serial.WriteString("paging enabled\r\n")

	idleLoop()
}

// idleLoop parks the boot process on HLT between interrupts. The timer
// tick drives the scheduler, the keyboard and serial IRQ handlers fill
// their ring buffers, and nothing here needs to poll either.
func idleLoop() {
	arch.Sti()
	for {
		arch.Hlt()
	}
}

// abortBoot prints a fatal diagnostic and halts the machine for good;
// there is no supervisor to restart a kernel that fails this early.
func abortBoot(message string) {
	serial.WriteString("FATAL: " + message + "\r\n")
	arch.Cli()
	for {
		arch.Hlt()
	}
}
