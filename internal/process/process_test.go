package process

import "testing"

func TestInitCreatesKernelProcess(t *testing.T) {
	Init()
	k := Get(0)
	if k.PID != 0 || k.Name != "kernel" || k.State != StateRunning {
		t.Fatalf("kernel PCB = %+v, want pid=0 name=kernel state=Running", k)
	}
	if Current() != 0 {
		t.Fatalf("Current() = %d, want 0", Current())
	}
}

func TestAllocPIDWrapsAroundSkippingZero(t *testing.T) {
	Init()
	seen := map[uint32]bool{}
	var last uint32
	for i := 0; i < MaxProcesses*2; i++ {
		pid := allocPID()
		if pid == 0 {
			t.Fatal("allocPID returned 0, which is reserved for the kernel process")
		}
		last = pid
		seen[pid] = true
	}
	_ = last
	if len(seen) == 0 || len(seen) > MaxProcesses-1 {
		t.Fatalf("allocPID produced %d distinct values, want at most %d", len(seen), MaxProcesses-1)
	}
}

func TestByPIDFindsLiveProcessOnly(t *testing.T) {
	Init()
	table[5] = PCB{PID: 99, State: StateReady, Next: None}

	idx, ok := ByPID(99)
	if !ok || idx != 5 {
		t.Fatalf("ByPID(99) = (%d, %v), want (5, true)", idx, ok)
	}

	table[5].State = StateUnused
	if _, ok := ByPID(99); ok {
		t.Fatal("ByPID found a PID in an unused slot")
	}
}

func TestExitCannotTerminateKernelProcess(t *testing.T) {
	Init()
	Exit(7)
	if Get(0).State != StateRunning {
		t.Fatal("Exit terminated the kernel process")
	}
}

func TestExitMarksCurrentProcessTerminated(t *testing.T) {
	Init()
	table[3] = PCB{PID: 42, State: StateRunning, Next: None}
	SetCurrent(3)
	Exit(5)
	if Get(3).State != StateTerminated || Get(3).ExitCode != 5 {
		t.Fatalf("process 3 = %+v, want Terminated with exit code 5", Get(3))
	}
}

func TestDestroyNeverTouchesKernelProcess(t *testing.T) {
	Init()
	Destroy(0)
	if Get(0).State != StateRunning || Get(0).Name != "kernel" {
		t.Fatal("Destroy(0) altered the kernel process")
	}
}

func TestTimeSliceByPriority(t *testing.T) {
	cases := []struct {
		p    Priority
		want uint32
	}{
		{PriorityHigh, 50},
		{PriorityNormal, 100},
		{PriorityLow, 200},
	}
	for _, tc := range cases {
		if got := timeSliceTicks[tc.p]; got != tc.want {
			t.Errorf("timeSliceTicks[%v] = %d, want %d", tc.p, got, tc.want)
		}
	}
}
