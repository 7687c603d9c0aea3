// Package arch is the single unsafe boundary between the kernel and the
// bare 32-bit x86 CPU. Every other package talks to hardware only through
// these functions; nothing outside this package issues IN/OUT, touches
// CR0/CR3, or flips the interrupt flag directly.
//
// The functions declared here have no Go bodies. Their implementations
// live in arch_386.s as Plan 9 assembly and are linked in at build time,
// the same split package idt uses for its entry stubs and its own LIDT
// in idt_386.s.
package arch

// In8 reads a byte from an I/O port.
func In8(port uint16) uint8

// Out8 writes a byte to an I/O port.
func Out8(port uint16, value uint8)

// In16 reads a 16-bit word from an I/O port.
func In16(port uint16) uint16

// Out16 writes a 16-bit word to an I/O port.
func Out16(port uint16, value uint16)

// In32 reads a 32-bit dword from an I/O port.
func In32(port uint16) uint32

// Out32 writes a 32-bit dword to an I/O port.
func Out32(port uint16, value uint32)

// IOWait burns a little I/O bus time so a slow device (the PICs, the PIT)
// has settled before the next port access. Historically this writes to
// the unused port 0x80.
func IOWait()

// Cli clears the interrupt flag.
func Cli()

// Sti sets the interrupt flag.
func Sti()

// Hlt halts the CPU until the next interrupt.
func Hlt()

// AreInterruptsEnabled reports the current state of EFLAGS.IF.
func AreInterruptsEnabled() bool

// LoadGDT loads the GDT register from a 6-byte GDTR descriptor
// (2-byte limit followed by a 4-byte linear base) and reloads every
// segment register from the flat selectors the kernel's GDT defines.
func LoadGDT(gdtr uintptr)

// LoadIDT loads the IDT register from a 6-byte IDTR descriptor.
func LoadIDT(idtr uintptr)

// LoadCR3 sets the page-directory base register, switching the active
// address space.
func LoadCR3(physDir uint32)

// ReadCR2 reads the faulting address left by the CPU on a page fault.
func ReadCR2() uint32

// ReadCR3 reads the current page-directory base.
func ReadCR3() uint32

// EnablePagingCR0 sets CR0.PG, turning on paging. The caller must have
// already loaded a CR3 whose low 4 MiB identity-maps the running kernel.
func EnablePagingCR0()

// InvalidatePage flushes a single TLB entry for the given virtual address.
func InvalidatePage(va uint32)

// FlushTLB reloads CR3 with its current value, flushing every
// non-global TLB entry. Used where a per-page invlpg is unavailable.
func FlushTLB()
