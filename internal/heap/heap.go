// Package heap is the kernel's dynamic memory allocator: a doubly
// linked free list of magic-guarded blocks, best-fit placement, split on
// allocation and coalesce on free. It backs both the kernel's own
// internal allocations and the malloc/free syscalls processes issue.
package heap

import (
	"fmt"
	"unsafe"
)

const (
	magicAllocated = 0xABCDEF00
	magicFree      = 0x12345678

	// MinAllocSize is the smallest block size malloc ever hands back;
	// anything smaller is rounded up so a freed block is always big
	// enough to be split out of later without degenerating into slivers.
	MinAllocSize = 32

	alignTo = 8
)

type block struct {
	size  uint32
	free  bool
	magic uint32
	next  *block
	prev  *block
}

var headerSize = uint32(unsafe.Sizeof(block{}))

var (
	arena       []byte
	first       *block
	totalSize   uint32
	freeSize    uint32
	blocksAlloc uint32
	blocksFree  uint32
	initialized bool
)

// Init carves a heap of size bytes out of a freshly allocated Go byte
// slice. The arena is not placed at a fixed physical window, on real
// hardware or in a host test; this is what lets the same allocator run
// unchanged in both.
func Init(size uint32) {
	arena = make([]byte, size+16)
	base := uintptr(unsafe.Pointer(&arena[0]))
	aligned := alignUp(uint32(base), 16)
	offset := aligned - uint32(base)
	usable := size

	first = (*block)(unsafe.Pointer(&arena[offset]))
	first.size = usable - headerSize
	first.free = true
	first.magic = magicFree
	first.next = nil
	first.prev = nil

	totalSize = usable
	freeSize = usable - headerSize
	blocksAlloc = 0
	blocksFree = 1
	initialized = true
}

func alignUp(v, to uint32) uint32 { return (v + to - 1) &^ (to - 1) }

// Malloc returns a pointer to a zero-initialized-by-no-one block of at
// least size bytes, or nil if no free block is large enough.
func Malloc(size uint32) unsafe.Pointer {
	if !initialized || size == 0 {
		return nil
	}
	size = alignUp(size, alignTo)
	if size < MinAllocSize {
		size = MinAllocSize
	}

	b := findBestFit(size)
	if b == nil {
		return nil
	}
	splitBlock(b, size)

	b.free = false
	b.magic = magicAllocated
	blocksAlloc++
	blocksFree--
	freeSize -= size + headerSize

	return userPtr(b)
}

// Calloc is Malloc followed by a zero fill, rejecting the nmemb*size
// overflow the same way the libc function must.
func Calloc(nmemb, size uint32) unsafe.Pointer {
	if nmemb == 0 || size == 0 {
		return nil
	}
	total := nmemb * size
	if total/nmemb != size {
		return nil
	}
	ptr := Malloc(total)
	if ptr == nil {
		return nil
	}
	zero := unsafe.Slice((*byte)(ptr), total)
	for i := range zero {
		zero[i] = 0
	}
	return ptr
}

// Realloc grows or shrinks the allocation at ptr to size bytes,
// preserving contents up to the smaller of the old and new sizes.
// A nil ptr behaves like Malloc; a zero size behaves like Free.
func Realloc(ptr unsafe.Pointer, size uint32) unsafe.Pointer {
	if ptr == nil {
		return Malloc(size)
	}
	if size == 0 {
		Free(ptr)
		return nil
	}

	b := blockFromPtr(ptr)
	if b.magic != magicAllocated {
		return nil
	}

	size = alignUp(size, alignTo)
	if size < MinAllocSize {
		size = MinAllocSize
	}
	if size <= b.size {
		return ptr
	}

	newPtr := Malloc(size)
	if newPtr == nil {
		return nil
	}
	src := unsafe.Slice((*byte)(ptr), b.size)
	dst := unsafe.Slice((*byte)(newPtr), b.size)
	copy(dst, src)
	Free(ptr)
	return newPtr
}

// Free releases the block at ptr. If its guard magic does not read as
// allocated (corrupted, or the block was already freed) Free returns
// without changing anything; nothing is logged.
func Free(ptr unsafe.Pointer) {
	if ptr == nil || !initialized {
		return
	}
	b := blockFromPtr(ptr)
	if b.magic != magicAllocated {
		return
	}
	b.free = true
	b.magic = magicFree
	blocksAlloc--
	blocksFree++
	freeSize += b.size + headerSize
	mergeFreeBlocks(b)
}

func findBestFit(size uint32) *block {
	var best *block
	bestSize := ^uint32(0)
	for cur := first; cur != nil; cur = cur.next {
		if cur.free && cur.size >= size && cur.size < bestSize {
			best = cur
			bestSize = cur.size
			if cur.size == size {
				break
			}
		}
	}
	return best
}

func splitBlock(b *block, size uint32) {
	if b.size < size+headerSize {
		return
	}
	remaining := b.size - size - headerSize
	if remaining < MinAllocSize {
		return
	}

	newBlockPtr := unsafe.Add(unsafe.Pointer(b), uintptr(headerSize+size))
	nb := (*block)(newBlockPtr)
	nb.size = remaining
	nb.free = true
	nb.magic = magicFree
	nb.next = b.next
	nb.prev = b
	if b.next != nil {
		b.next.prev = nb
	}
	b.next = nb
	b.size = size
	blocksFree++
}

func mergeFreeBlocks(b *block) {
	if b.next != nil && b.next.free {
		next := b.next
		b.size += headerSize + next.size
		b.next = next.next
		if next.next != nil {
			next.next.prev = b
		}
		blocksFree--
	}
	if b.prev != nil && b.prev.free {
		prev := b.prev
		prev.size += headerSize + b.size
		prev.next = b.next
		if b.next != nil {
			b.next.prev = prev
		}
		blocksFree--
	}
}

func userPtr(b *block) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(b), uintptr(headerSize))
}

func blockFromPtr(ptr unsafe.Pointer) *block {
	return (*block)(unsafe.Add(ptr, -uintptr(headerSize)))
}

// Stats reports the allocator's bookkeeping counters.
type Stats struct {
	TotalSize      uint32
	FreeSize       uint32
	BlocksAlloc    uint32
	BlocksFree     uint32
	UsagePercent   uint32
}

// GetStats snapshots the current allocator counters.
func GetStats() Stats {
	usage := uint32(0)
	if totalSize > 0 {
		usage = (totalSize - freeSize) * 100 / totalSize
	}
	return Stats{
		TotalSize:    totalSize,
		FreeSize:     freeSize,
		BlocksAlloc:  blocksAlloc,
		BlocksFree:   blocksFree,
		UsagePercent: usage,
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("heap: %d/%d bytes free, %d alloc / %d free blocks (%d%% used)",
		s.FreeSize, s.TotalSize, s.BlocksAlloc, s.BlocksFree, s.UsagePercent)
}

// Validate walks the free list checking every block's guard magic and
// bounds, bailing out past 10000 blocks on the assumption a corrupted
// next pointer has formed a cycle. It reports the first error found, if
// any.
func Validate() error {
	if !initialized {
		return fmt.Errorf("heap: not initialized")
	}
	count := 0
	lo := uintptr(unsafe.Pointer(&arena[0]))
	hi := lo + uintptr(len(arena))
	for cur := first; cur != nil; cur = cur.next {
		count++
		addr := uintptr(unsafe.Pointer(cur))
		if addr < lo || addr+uintptr(headerSize)+uintptr(cur.size) > hi {
			return fmt.Errorf("heap: block %d at 0x%x lies outside the arena", count, addr)
		}
		wantMagic := uint32(magicAllocated)
		if cur.free {
			wantMagic = magicFree
		}
		if cur.magic != wantMagic {
			return fmt.Errorf("heap: corrupt magic in block %d: got 0x%x want 0x%x", count, cur.magic, wantMagic)
		}
		if count > 10000 {
			return fmt.Errorf("heap: possible cycle in free list after %d blocks", count)
		}
	}
	return nil
}
