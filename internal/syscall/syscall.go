// Package syscall is the kernel side of the INT 0x80 gate: it reads the
// EAX/EBX/ECX/EDX/ESI/EDI argument convention out of the trapped frame,
// dispatches to one of a fixed table of handlers, and writes the return
// value (or a negated errno) back into EAX.
//
// The errno values are the usual POSIX/Linux numbers. The syscall
// numbers are this kernel's own fixed assignment (0 exit, 1 read,
// 2 write, ...); they are not the Linux i386 numbers, so a libc built
// for Linux needs a translation table to call them.
package syscall

import (
	"aceos/internal/fs"
	"aceos/internal/heap"
	"aceos/internal/idt"
	"aceos/internal/pit"
	"aceos/internal/process"
	"aceos/internal/scheduler"
	"unsafe"
)

// Syscall numbers: this kernel's fixed assignment, not the Linux i386
// numbering.
const (
	SysExit   = 0
	SysRead   = 1
	SysWrite  = 2
	SysOpen   = 3
	SysClose  = 4
	SysMalloc = 5
	SysFree   = 6
	SysGetpid = 7
	SysSleep  = 8
	SysChdir  = 13
	SysGetcwd = 14
	SysMkdir  = 15
	SysRmdir  = 16
	SysUnlink = 17
	SysStat   = 18
	SysTime   = 19
)

// Errno values, frozen to their POSIX numbers.
const (
	ENOENT  = 2
	EBADF   = 9
	ENOMEM  = 12
	EACCES  = 13
	EFAULT  = 14
	EEXIST  = 17
	ENOTDIR = 20
	EISDIR  = 21
	EINVAL  = 22
	ERANGE  = 34
)

var counts [256]uint32

// Init wires the syscall gate into the IDT.
func Init() {
	idt.RegisterSyscall(handle)
}

// handle is INT 0x80's entry point: f.EAX holds the syscall number on
// entry and the result (or -errno) on return.
func handle(f *idt.Frame) {
	num := f.EAX
	if num < uint32(len(counts)) {
		counts[num]++
	}
	switch num {
	case SysExit:
		sysExit(f)
	case SysRead:
		sysRead(f)
	case SysWrite:
		sysWrite(f)
	case SysOpen:
		sysOpen(f)
	case SysClose:
		sysClose(f)
	case SysMalloc:
		sysMalloc(f)
	case SysFree:
		sysFree(f)
	case SysGetpid:
		sysGetpid(f)
	case SysSleep:
		sysSleep(f)
	case SysChdir:
		sysChdir(f)
	case SysGetcwd:
		sysGetcwd(f)
	case SysMkdir:
		sysMkdir(f)
	case SysRmdir:
		sysRmdir(f)
	case SysUnlink:
		sysUnlink(f)
	case SysStat:
		sysStat(f)
	case SysTime:
		sysTime(f)
	default:
		f.EAX = errno(EINVAL)
	}
}

func errno(e uint32) uint32 { return uint32(-int32(e)) }

// readCString copies up to max bytes starting at a user-space address,
// stopping at the first NUL. The kernel runs with physical memory
// identity-mapped, so a user virtual address backed by a mapped page is
// dereferenceable directly; an unmapped address means a bad pointer was
// passed, and the caller should fault out instead of reading garbage.
func readCString(addr uint32, max int) (string, bool) {
	if addr == 0 {
		return "", false
	}
	ptr := unsafe.Pointer(uintptr(addr))
	buf := unsafe.Slice((*byte)(ptr), max)
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), true
		}
	}
	return "", false
}

func writeBytes(addr uint32, data []byte) {
	if addr == 0 || len(data) == 0 {
		return
	}
	ptr := unsafe.Pointer(uintptr(addr))
	dst := unsafe.Slice((*byte)(ptr), len(data))
	copy(dst, data)
}

func readBytes(addr uint32, n int) []byte {
	if addr == 0 || n <= 0 {
		return nil
	}
	ptr := unsafe.Pointer(uintptr(addr))
	return unsafe.Slice((*byte)(ptr), n)
}

func sysExit(f *idt.Frame) {
	process.Exit(int32(f.EBX))
	// process_exit marks the PCB TERMINATED then reschedules so control
	// never returns to the exiting process.
	scheduler.Schedule(f)
	f.EAX = 0
}

func sysRead(f *idt.Frame) {
	fd, addr, count := f.EBX, f.ECX, f.EDX
	if fd != 0 {
		f.EAX = errno(EBADF)
		return
	}
	// Only stdin (fd 0) is wired, and the kernel has no line-buffered
	// keyboard-to-process path yet, so reads return nothing available
	// rather than blocking the only CPU this kernel ever runs on.
	_ = addr
	_ = count
	f.EAX = 0
}

func sysWrite(f *idt.Frame) {
	fd, addr, count := f.EBX, f.ECX, f.EDX
	if fd != 1 && fd != 2 {
		f.EAX = errno(EBADF)
		return
	}
	data := readBytes(addr, int(count))
	if data == nil && count != 0 {
		f.EAX = errno(EFAULT)
		return
	}
	writeToConsole(data)
	f.EAX = count
}

// writeToConsole is the syscall layer's one hook into text output;
// wired at boot to whatever implements the console package's Writer.
var writeToConsole = func(p []byte) {}

// SetConsoleWriter installs the function sysWrite hands its bytes to, so
// this package doesn't import the console package directly.
func SetConsoleWriter(w func(p []byte)) { writeToConsole = w }

func sysOpen(f *idt.Frame) {
	pathAddr, flags := f.EBX, f.ECX
	path, ok := readCString(pathAddr, fs.MaxPathLen)
	if !ok {
		f.EAX = errno(EFAULT)
		return
	}
	const oCreat = 0x40
	if _, exists := fs.Find(path); !exists {
		if flags&oCreat == 0 {
			f.EAX = errno(ENOENT)
			return
		}
		if err := fs.Create(path); err != nil {
			f.EAX = errno(ENOMEM)
			return
		}
	}
	f.EAX = 3
}

func sysClose(f *idt.Frame) {
	f.EAX = 0
}

func sysMalloc(f *idt.Frame) {
	size := f.EBX
	ptr := heap.Malloc(size)
	if ptr == nil {
		f.EAX = errno(ENOMEM)
		return
	}
	f.EAX = uint32(uintptr(ptr))
}

func sysFree(f *idt.Frame) {
	addr := f.EBX
	if addr == 0 {
		f.EAX = 0
		return
	}
	heap.Free(unsafe.Pointer(uintptr(addr)))
	f.EAX = 0
}

func sysGetpid(f *idt.Frame) {
	cur := process.Current()
	if cur == process.None {
		f.EAX = 0
		return
	}
	f.EAX = process.Get(cur).PID
}

func sysSleep(f *idt.Frame) {
	// Sleep returns 0 at once: there is no wait, and the requested
	// duration in EBX is not read.
	f.EAX = 0
}

func sysChdir(f *idt.Frame) {
	pathAddr := f.EBX
	path, ok := readCString(pathAddr, fs.MaxPathLen)
	if !ok {
		f.EAX = errno(EFAULT)
		return
	}
	if path != "/" {
		if _, exists := fs.Find(path); !exists {
			f.EAX = errno(ENOENT)
			return
		}
		st, _ := fs.Stat(path)
		if st.Type != fs.TypeDirectory {
			f.EAX = errno(ENOTDIR)
			return
		}
	}
	cur := process.Current()
	if cur != process.None {
		process.Get(cur).CurrentDirectory = path
	}
	f.EAX = 0
}

func sysGetcwd(f *idt.Frame) {
	bufAddr, size := f.EBX, f.ECX
	cur := process.Current()
	cwd := "/"
	if cur != process.None {
		cwd = process.Get(cur).CurrentDirectory
	}
	if uint32(len(cwd)+1) > size {
		f.EAX = errno(ERANGE)
		return
	}
	writeBytes(bufAddr, append([]byte(cwd), 0))
	f.EAX = bufAddr
}

func sysMkdir(f *idt.Frame) {
	pathAddr := f.EBX
	path, ok := readCString(pathAddr, fs.MaxPathLen)
	if !ok {
		f.EAX = errno(EFAULT)
		return
	}
	if err := fs.Mkdir(path); err != nil {
		if _, exists := fs.Find(path); exists {
			f.EAX = errno(EEXIST)
			return
		}
		f.EAX = errno(ENOENT)
		return
	}
	f.EAX = 0
}

func sysRmdir(f *idt.Frame) {
	pathAddr := f.EBX
	path, ok := readCString(pathAddr, fs.MaxPathLen)
	if !ok {
		f.EAX = errno(EFAULT)
		return
	}
	st, err := fs.Stat(path)
	if err != nil {
		f.EAX = errno(ENOENT)
		return
	}
	if st.Type != fs.TypeDirectory {
		f.EAX = errno(ENOTDIR)
		return
	}
	if err := fs.Delete(path); err != nil {
		f.EAX = errno(EINVAL)
		return
	}
	f.EAX = 0
}

func sysUnlink(f *idt.Frame) {
	pathAddr := f.EBX
	path, ok := readCString(pathAddr, fs.MaxPathLen)
	if !ok {
		f.EAX = errno(EFAULT)
		return
	}
	st, err := fs.Stat(path)
	if err != nil {
		f.EAX = errno(ENOENT)
		return
	}
	if st.Type == fs.TypeDirectory {
		f.EAX = errno(EISDIR)
		return
	}
	if err := fs.Delete(path); err != nil {
		f.EAX = errno(EINVAL)
		return
	}
	f.EAX = 0
}

func sysStat(f *idt.Frame) {
	pathAddr, bufAddr := f.EBX, f.ECX
	path, ok := readCString(pathAddr, fs.MaxPathLen)
	if !ok {
		f.EAX = errno(EFAULT)
		return
	}
	e, err := fs.Stat(path)
	if err != nil {
		f.EAX = errno(ENOENT)
		return
	}
	isDir := uint32(0)
	if e.Type == fs.TypeDirectory {
		isDir = 1
	}
	writeBytes(bufAddr, packStat(e.Size, isDir))
	f.EAX = 0
}

func packStat(size, isDir uint32) []byte {
	b := make([]byte, 8)
	b[0] = byte(size)
	b[1] = byte(size >> 8)
	b[2] = byte(size >> 16)
	b[3] = byte(size >> 24)
	b[4] = byte(isDir)
	return b
}

func sysTime(f *idt.Frame) {
	f.EAX = pit.Ticks() / pit.Frequency
}

// Counts reports per-syscall invocation counters for the debug console.
func Counts() [256]uint32 { return counts }
