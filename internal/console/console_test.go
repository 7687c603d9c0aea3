package console

import "testing"

// Before serial.Init runs (never the case in a hosted test, since Init
// touches real port I/O), Write is a no-op that still reports success so
// early boot logging never needs a readiness check.
func TestWriteSucceedsBeforeSerialInit(t *testing.T) {
	n, err := Write([]byte("hello"))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if n != 5 {
		t.Fatalf("Write returned n=%d, want 5", n)
	}
}

func TestEmptyBeforeAnyInput(t *testing.T) {
	if !Empty() {
		t.Fatal("Empty() should report true before any input is received")
	}
	if _, ok := ReadByte(); ok {
		t.Fatal("ReadByte should report nothing pending before any input")
	}
}
