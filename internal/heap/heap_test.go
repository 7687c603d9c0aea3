package heap

import (
	"testing"
	"unsafe"
)

func TestMallocFreeRoundTrip(t *testing.T) {
	Init(64 * 1024)

	p := Malloc(128)
	if p == nil {
		t.Fatal("Malloc returned nil on a fresh heap")
	}
	if err := Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	Free(p)
	if err := Validate(); err != nil {
		t.Fatalf("Validate after free: %v", err)
	}
}

func TestMallocBelowMinimumIsRoundedUp(t *testing.T) {
	Init(64 * 1024)
	before := GetStats()
	p := Malloc(1)
	if p == nil {
		t.Fatal("Malloc(1) returned nil")
	}
	after := GetStats()
	used := before.FreeSize - after.FreeSize
	if used < MinAllocSize {
		t.Fatalf("allocation consumed %d bytes, want at least MinAllocSize=%d", used, MinAllocSize)
	}
}

func TestFreeCoalescesAdjacentBlocks(t *testing.T) {
	Init(64 * 1024)
	a := Malloc(256)
	b := Malloc(256)
	c := Malloc(256)
	if a == nil || b == nil || c == nil {
		t.Fatal("setup allocations failed")
	}

	statsBeforeFree := GetStats()
	Free(a)
	Free(b) // should merge with a, its now-free predecessor; c is still allocated
	stats := GetStats()
	if stats.BlocksFree >= statsBeforeFree.BlocksFree+2 {
		t.Fatalf("expected coalescing to limit free block growth, got %d free blocks", stats.BlocksFree)
	}
	if err := Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDoubleFreeDoesNotCorruptStats(t *testing.T) {
	Init(64 * 1024)
	p := Malloc(64)
	Free(p)
	before := GetStats()
	Free(p) // magic is now magicFree, not magicAllocated: must be a no-op
	after := GetStats()
	if before != after {
		t.Fatalf("double free changed stats: %+v -> %+v", before, after)
	}
}

func TestCallocZerosMemoryAndRejectsOverflow(t *testing.T) {
	Init(64 * 1024)
	p := Calloc(16, 16)
	if p == nil {
		t.Fatal("Calloc(16,16) returned nil")
	}
	bytes := unsafe.Slice((*byte)(p), 256)
	for i, b := range bytes {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, b)
		}
	}

	huge := ^uint32(0)
	if Calloc(huge, 2) != nil {
		t.Fatal("Calloc did not reject an overflowing nmemb*size")
	}
}

func TestReallocGrowPreservesData(t *testing.T) {
	Init(64 * 1024)
	p := Malloc(32)
	data := unsafe.Slice((*byte)(p), 32)
	for i := range data {
		data[i] = byte(i)
	}

	grown := Realloc(p, 256)
	if grown == nil {
		t.Fatal("Realloc(grow) returned nil")
	}
	grownData := unsafe.Slice((*byte)(grown), 32)
	for i := range grownData {
		if grownData[i] != byte(i) {
			t.Fatalf("byte %d = %d after grow, want %d", i, grownData[i], byte(i))
		}
	}
}

func TestMallocReturnsNilWhenExhausted(t *testing.T) {
	Init(256)
	var ptrs []unsafe.Pointer
	for i := 0; i < 1000; i++ {
		p := Malloc(32)
		if p == nil {
			break
		}
		ptrs = append(ptrs, p)
	}
	if Malloc(32) != nil {
		t.Fatal("Malloc succeeded on an exhausted heap")
	}
	if len(ptrs) == 0 {
		t.Fatal("heap of 256 bytes allocated nothing")
	}
}
