package zx

import (
	"testing"
)

func TestNewSingleFragmentIsZeroCopy(t *testing.T) {
	src := []byte{1, 2, 3}
	b := New(src)
	src[0] = 0xFF
	got, err := b.GetByte(0)
	if err != nil {
		t.Fatalf("GetByte: %v", err)
	}
	if got != 0xFF {
		t.Errorf("expected single-fragment buffer to alias its source, got %#x", got)
	}
}

func TestNewMultiFragmentConcatenates(t *testing.T) {
	b := New([]byte{1, 2}, []byte{3}, []byte{4, 5})
	if b.BitLength() != 5*8 {
		t.Fatalf("BitLength() = %d, want %d", b.BitLength(), 5*8)
	}
	for i, want := range []byte{1, 2, 3, 4, 5} {
		got, err := b.GetByte(i)
		if err != nil {
			t.Fatalf("GetByte(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("GetByte(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestGetByteZeroExtends(t *testing.T) {
	b := New([]byte{0xAA, 0xBB})
	test := func(i int, want byte) {
		t.Run("", func(t *testing.T) {
			got, err := b.GetByte(i)
			if err != nil {
				t.Fatalf("GetByte(%d): %v", i, err)
			}
			if got != want {
				t.Errorf("GetByte(%d) = %#x, want %#x", i, got, want)
			}
		})
	}
	test(0, 0xAA)
	test(1, 0xBB)
	test(2, 0)
	test(1000, 0)
}

func TestGetByteNegativeIndexIsUsageError(t *testing.T) {
	b := New([]byte{1})
	if _, err := b.GetByte(-1); err == nil {
		t.Fatal("expected usage error for negative index")
	}
}

func TestGetUnsignedSlice(t *testing.T) {
	b := New([]byte{0x01, 0x02, 0x03})

	got, err := b.GetUnsignedSlice(0, 3)
	if err != nil {
		t.Fatalf("GetUnsignedSlice: %v", err)
	}
	want := []byte{0x01, 0x02, 0x03}
	if string(got) != string(want) {
		t.Errorf("GetUnsignedSlice(0,3) = %v, want %v", got, want)
	}

	got, err = b.GetUnsignedSlice(2, 6)
	if err != nil {
		t.Fatalf("GetUnsignedSlice: %v", err)
	}
	want = []byte{0x03, 0, 0, 0}
	if string(got) != string(want) {
		t.Errorf("GetUnsignedSlice(2,6) = %v, want %v (right-zero-padded)", got, want)
	}

	got, err = b.GetUnsignedSlice(10, 12)
	if err != nil {
		t.Fatalf("GetUnsignedSlice: %v", err)
	}
	want = []byte{0, 0}
	if string(got) != string(want) {
		t.Errorf("GetUnsignedSlice(10,12) = %v, want %v (fully out of range)", got, want)
	}

	if _, err := b.GetUnsignedSlice(3, 1); err == nil {
		t.Error("expected usage error when left > right")
	}
}

func TestForkBytes(t *testing.T) {
	b := New([]byte{0x01, 0x02, 0x03, 0x04, 0x05})

	frags, err := b.ForkBytes(1, 3)
	if err != nil {
		t.Fatalf("ForkBytes: %v", err)
	}
	if len(frags) != 1 {
		t.Fatalf("expected a single fragment, got %d", len(frags))
	}
	want := []byte{0x02, 0x03, 0x04}
	if string(frags[0]) != string(want) {
		t.Errorf("ForkBytes(1,3) = %v, want %v", frags[0], want)
	}

	if _, err := b.ForkBytes(3, 3); err == nil {
		t.Error("expected usage error when offset+length exceeds buffer length")
	}
}
