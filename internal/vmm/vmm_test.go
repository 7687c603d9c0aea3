package vmm

import "testing"

func TestEncodeDecodeEntryRoundTrip(t *testing.T) {
	cases := []PageFlags{
		{},
		{Present: true, Writable: true, User: true, Frame: 0xFFFFF},
		{Present: true, Accessed: true, Dirty: true, Frame: 0x12345},
		{Present: false, Writable: true, Frame: 0},
	}
	for _, f := range cases {
		raw := encodeEntry(f)
		got := decodeEntry(raw)
		if got != f {
			t.Fatalf("decodeEntry(encodeEntry(%+v)) = %+v, want round-trip", f, got)
		}
	}
}

func TestEncodeEntryPacksFrameIntoHighBits(t *testing.T) {
	raw := encodeEntry(PageFlags{Present: true, Frame: 0xABCDE})
	if raw&1 == 0 {
		t.Fatal("Present bit not set in encoded entry")
	}
	if raw>>12 != 0xABCDE {
		t.Fatalf("Frame bits = 0x%x, want 0xABCDE", raw>>12)
	}
}

func TestPdIndex(t *testing.T) {
	cases := []struct {
		vaddr uint32
		want  uint32
	}{
		{0x00000000, 0},
		{0x00400000, 1},
		{0xC0000000, 768},
		{0xFFFFFFFF, 1023},
	}
	for _, tc := range cases {
		if got := pdIndex(tc.vaddr); got != tc.want {
			t.Errorf("pdIndex(0x%x) = %d, want %d", tc.vaddr, got, tc.want)
		}
	}
}

func TestPtIndex(t *testing.T) {
	cases := []struct {
		vaddr uint32
		want  uint32
	}{
		{0x00000000, 0},
		{0x00000FFF, 0},
		{0x00001000, 1},
		{0x003FF000, 0x3FF},
		{0x00400000, 0},
	}
	for _, tc := range cases {
		if got := ptIndex(tc.vaddr); got != tc.want {
			t.Errorf("ptIndex(0x%x) = %d, want %d", tc.vaddr, got, tc.want)
		}
	}
}

func TestPageAlign(t *testing.T) {
	cases := []struct {
		addr uint32
		want uint32
	}{
		{0x00001000, 0x00001000},
		{0x00001001, 0x00001000},
		{0x00001FFF, 0x00001000},
		{0x00000000, 0x00000000},
		{0x40010123, 0x40010000},
	}
	for _, tc := range cases {
		if got := pageAlign(tc.addr); got != tc.want {
			t.Errorf("pageAlign(0x%x) = 0x%x, want 0x%x", tc.addr, got, tc.want)
		}
	}
}
