package scheduler

import (
	"testing"

	"aceos/internal/process"
)

func resetQueue() {
	ready = queue{head: process.None, tail: process.None}
	stats = Stats{}
	enabled = true
}

func TestAddAndPopPreservesFIFOOrder(t *testing.T) {
	process.Init()
	resetQueue()

	idxA, _ := process.ByPID(0)
	_ = idxA
	// Seed three ready slots directly; Create() touches real hardware
	// (vmm/pmm) this test doesn't need.
	process.Get(1).State = process.StateUnused
	process.Get(2).State = process.StateUnused
	process.Get(3).State = process.StateUnused

	Add(1)
	Add(2)
	Add(3)

	if ready.count != 3 {
		t.Fatalf("ready.count = %d, want 3", ready.count)
	}

	order := []process.Index{popNext(), popNext(), popNext()}
	want := []process.Index{1, 2, 3}
	for i, idx := range order {
		if idx != want[i] {
			t.Fatalf("pop order[%d] = %d, want %d", i, idx, want[i])
		}
	}
	if ready.head != process.None || ready.tail != process.None {
		t.Fatal("queue should be empty after draining all entries")
	}
}

func TestRemoveFromMiddle(t *testing.T) {
	process.Init()
	resetQueue()
	Add(1)
	Add(2)
	Add(3)

	Remove(2)
	if ready.count != 2 {
		t.Fatalf("ready.count = %d, want 2", ready.count)
	}

	got := []process.Index{popNext(), popNext()}
	if got[0] != 1 || got[1] != 3 {
		t.Fatalf("after removing 2, got order %v, want [1 3]", got)
	}
}

func TestRemoveTailUpdatesTail(t *testing.T) {
	process.Init()
	resetQueue()
	Add(1)
	Add(2)
	Remove(2)
	if ready.tail != 1 {
		t.Fatalf("ready.tail = %d, want 1 after removing the old tail", ready.tail)
	}
}

func TestTickAccountsTimeWithoutExpiringSlice(t *testing.T) {
	process.Init()
	resetQueue()
	process.SetCurrent(0)
	process.Get(0).TimeSlice = 100
	process.Get(0).TimeUsed = 0

	Tick(nil)

	if process.Get(0).TimeUsed != 1 {
		t.Fatalf("TimeUsed = %d, want 1", process.Get(0).TimeUsed)
	}
	if stats.TimeSlices != 1 {
		t.Fatalf("stats.TimeSlices = %d, want 1", stats.TimeSlices)
	}
}

func TestPopNextOnEmptyQueueIsNone(t *testing.T) {
	process.Init()
	resetQueue()
	if popNext() != process.None {
		t.Fatal("popNext on an empty queue should return None")
	}
}
