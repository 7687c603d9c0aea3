// Package vmm implements 32-bit two-level x86 paging: a page directory
// of 1024 entries, each pointing at a page table of 1024 entries, each
// mapping one 4KiB frame. Physical memory is treated as identity
// accessible throughout (the kernel's own page directory identity-maps
// its first 4MiB, and every page table vmm allocates is read and
// written through its physical address before and after paging is
// turned on); this single-address-space kernel never runs a second
// address space that outlives the first, so there is no case where a
// page table ends up unreachable from the currently loaded directory.
package vmm

import (
	"fmt"
	"unsafe"

	"aceos/internal/arch"
	"aceos/internal/bitfield"
	"aceos/internal/pmm"
)

const (
	entriesPerTable = 1024

	// KernelVirtualBase is where the kernel's own image is mapped in
	// every address space, in addition to its identity mapping.
	KernelVirtualBase = 0xC0000000
)

// PageFlags packs the attribute bits of a page directory or page table
// entry the same way a PTE packs them on real hardware: present,
// writable, user-accessible, accessed, dirty and a 20-bit frame index,
// described declaratively instead of by hand-rolled shift constants.
type PageFlags struct {
	Present  bool   `bitfield:",1"`
	Writable bool   `bitfield:",1"`
	User     bool   `bitfield:",1"`
	Reserved uint32 `bitfield:",2"`
	Accessed bool   `bitfield:",1"`
	Dirty    bool   `bitfield:",1"`
	Reserved2 uint32 `bitfield:",2"`
	Available uint32 `bitfield:",3"`
	Frame    uint32 `bitfield:",20"`
}

var pageFlagsConfig = &bitfield.Config{NumBits: 32}

func encodeEntry(f PageFlags) uint32 {
	packed, err := bitfield.Pack(f, pageFlagsConfig)
	if err != nil {
		// A malformed entry is a programming error in this package,
		// not a runtime condition callers can recover from.
		panic(err)
	}
	return uint32(packed)
}

func decodeEntry(raw uint32) PageFlags {
	var f PageFlags
	if err := bitfield.Unpack(uint64(raw), &f); err != nil {
		panic(err)
	}
	return f
}

// Page flag convenience constants mirroring the legacy bit values so
// callers outside this package (process.Create, for one) can build a flags word without importing the struct layout.
const (
	FlagPresent  = 0x001
	FlagWritable = 0x002
	FlagUser     = 0x004
)

// AddressSpace is a typed handle to one page directory's physical
// frame, replacing a raw page_directory_t* with something that can't be
// dereferenced by accident outside this package.
type AddressSpace struct {
	dirFrame pmm.Frame
}

var kernel AddressSpace

// Kernel returns the address space every process starts from before
// any process-private mappings are added.
func Kernel() AddressSpace { return kernel }

func dirPtr(f pmm.Frame) *[entriesPerTable]uint32 {
	return (*[entriesPerTable]uint32)(unsafe.Pointer(uintptr(f.Addr())))
}

func tablePtr(physAddr uint32) *[entriesPerTable]uint32 {
	return (*[entriesPerTable]uint32)(unsafe.Pointer(uintptr(physAddr)))
}

func pdIndex(vaddr uint32) uint32 { return vaddr >> 22 }
func ptIndex(vaddr uint32) uint32 { return (vaddr >> 12) & 0x3FF }
func pageAlign(addr uint32) uint32 { return addr &^ (pmm.PageSize - 1) }

// Init builds the kernel's own address space: identity-maps the first
// 4MiB so the kernel keeps running across the transition, then mirrors
// that same physical range at KernelVirtualBase. It fails only if pmm
// has no frame left for the page directory itself, which this early in
// boot means physical memory was misdetected or is too small to run on.
func Init() error {
	frame, ok := pmm.AllocFrame()
	if !ok {
		return fmt.Errorf("vmm: no frame available for kernel page directory")
	}
	kernel = AddressSpace{dirFrame: frame}
	dir := dirPtr(frame)
	for i := range dir {
		dir[i] = 0
	}

	for addr := uint32(0); addr < 0x400000; addr += pmm.PageSize {
		kernel.Map(addr, addr, FlagPresent|FlagWritable)
	}
	for addr := uint32(0); addr < 0x400000; addr += pmm.PageSize {
		kernel.Map(KernelVirtualBase+addr, addr, FlagPresent|FlagWritable)
	}
	return nil
}

// New allocates a fresh address space whose upper window (everything at
// or above KernelVirtualBase) is copied from the kernel's own directory,
// so every process shares the same kernel mapping without being able to
// alter the other's lower, process-private half.
func New() (AddressSpace, bool) {
	frame, ok := pmm.AllocFrame()
	if !ok {
		return AddressSpace{}, false
	}
	as := AddressSpace{dirFrame: frame}
	dir := dirPtr(frame)
	kdir := dirPtr(kernel.dirFrame)
	for i := range dir {
		if uint32(i) >= pdIndex(KernelVirtualBase) {
			dir[i] = kdir[i]
		} else {
			dir[i] = 0
		}
	}
	return as, true
}

// Map installs a mapping from vaddr to paddr in as, allocating a new
// page table on demand. flags is the bitwise-OR of the Flag* constants.
// A missing frame for a new page table silently drops the mapping, the
// same "out of memory, give up" behavior as the original.
func (as AddressSpace) Map(vaddr, paddr, flags uint32) {
	vaddr = pageAlign(vaddr)
	paddr = pageAlign(paddr)

	dir := dirPtr(as.dirFrame)
	pdi, pti := pdIndex(vaddr), ptIndex(vaddr)

	pde := decodeEntry(dir[pdi])
	if !pde.Present {
		tableFrame, ok := pmm.AllocFrame()
		if !ok {
			return
		}
		table := tablePtr(tableFrame.Addr())
		for i := range table {
			table[i] = 0
		}
		pde = PageFlags{Present: true, Writable: true, User: flags&FlagUser != 0, Frame: tableFrame.Addr() >> 12}
		dir[pdi] = encodeEntry(pde)
	}

	table := tablePtr(pde.Frame << 12)
	pte := PageFlags{
		Present:  flags&FlagPresent != 0,
		Writable: flags&FlagWritable != 0,
		User:     flags&FlagUser != 0,
		Frame:    paddr >> 12,
	}
	table[pti] = encodeEntry(pte)

	arch.InvalidatePage(vaddr)
}

// Unmap removes vaddr's mapping, if any, and returns the pmm frame that
// backed it so the caller can decide whether to free it. ok is false
// when nothing was mapped, or when the page lies below pmm.MemoryStart
// and so has no pmm frame.
func (as AddressSpace) Unmap(vaddr uint32) (pmm.Frame, bool) {
	vaddr = pageAlign(vaddr)
	dir := dirPtr(as.dirFrame)
	pdi, pti := pdIndex(vaddr), ptIndex(vaddr)

	pde := decodeEntry(dir[pdi])
	if !pde.Present {
		return 0, false
	}
	table := tablePtr(pde.Frame << 12)
	pte := decodeEntry(table[pti])
	if !pte.Present {
		return 0, false
	}
	table[pti] = 0
	arch.InvalidatePage(vaddr)
	paddr := pte.Frame << 12
	if paddr < pmm.MemoryStart {
		return 0, false
	}
	return pmm.Frame((paddr - pmm.MemoryStart) / pmm.PageSize), true
}

// Translate resolves vaddr to its physical address in as, reporting ok
// false when the page isn't present.
func (as AddressSpace) Translate(vaddr uint32) (paddr uint32, ok bool) {
	dir := dirPtr(as.dirFrame)
	pdi, pti := pdIndex(vaddr), ptIndex(vaddr)
	offset := vaddr & 0xFFF

	pde := decodeEntry(dir[pdi])
	if !pde.Present {
		return 0, false
	}
	table := tablePtr(pde.Frame << 12)
	pte := decodeEntry(table[pti])
	if !pte.Present {
		return 0, false
	}
	return (pte.Frame << 12) | offset, true
}

// Switch loads as as the active address space.
func Switch(as AddressSpace) {
	arch.LoadCR3(as.dirFrame.Addr())
}

// EnablePaging switches to the kernel address space and turns CR0.PG on.
// Must run after Init.
func EnablePaging() {
	Switch(kernel)
	arch.EnablePagingCR0()
}
