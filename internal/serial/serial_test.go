package serial

import "testing"

func resetBuffer() {
	rxHead, rxTail = 0, 0
	for i := range rxBuffer {
		rxBuffer[i] = 0
	}
}

func TestPushPopOrdering(t *testing.T) {
	resetBuffer()
	push('a')
	push('b')
	push('c')

	for _, want := range []byte{'a', 'b', 'c'} {
		got, ok := Pop()
		if !ok {
			t.Fatalf("Pop() reported empty before draining %c", want)
		}
		if got != want {
			t.Fatalf("Pop() = %c, want %c", got, want)
		}
	}
	if _, ok := Pop(); ok {
		t.Fatal("Pop() succeeded on an empty buffer")
	}
}

func TestEmpty(t *testing.T) {
	resetBuffer()
	if !Empty() {
		t.Fatal("fresh buffer should be empty")
	}
	push('x')
	if Empty() {
		t.Fatal("buffer should not be empty after a push")
	}
}

func TestFullBufferDropsChars(t *testing.T) {
	resetBuffer()
	for i := 0; i < bufferSize+10; i++ {
		push(byte('a' + i%26))
	}
	count := 0
	for {
		if _, ok := Pop(); !ok {
			break
		}
		count++
	}
	if count != bufferSize-1 {
		t.Fatalf("drained %d bytes, want %d (one slot always kept empty to distinguish full from empty)", count, bufferSize-1)
	}
}
