package bitstream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchAlignedRoundTrip(t *testing.T) {
	s := NewSerializer(7)
	s.AddAlignedU8(0x12)
	s.AddAlignedU16(0x3456)
	s.AddAlignedU32(0x789ABCDE)

	d := NewDeserializer(s.Buffer())
	u8, err := d.FetchAlignedU8()
	require.NoError(t, err)
	require.EqualValues(t, 0x12, u8)

	u16, err := d.FetchAlignedU16()
	require.NoError(t, err)
	require.EqualValues(t, 0x3456, u16)

	u32, err := d.FetchAlignedU32()
	require.NoError(t, err)
	require.EqualValues(t, 0x789ABCDE, u32)
}

func TestFetchImplicitlyZeroExtends(t *testing.T) {
	d := NewDeserializer([]byte{0xAA})
	u8, err := d.FetchAlignedU8()
	require.NoError(t, err)
	require.EqualValues(t, 0xAA, u8)

	// Nothing left in the source: this must still succeed, reading zero.
	u32, err := d.FetchAlignedU32()
	require.NoError(t, err)
	require.EqualValues(t, 0, u32)
	require.Equal(t, 40, d.ConsumedBitLength())
	require.Equal(t, -32, d.RemainingBitLength())
}

func TestFetchSignedTwosComplement(t *testing.T) {
	d := NewDeserializer([]byte{0xFF}) // -1 as an 8-bit two's complement value
	x, err := d.FetchAlignedI8()
	require.NoError(t, err)
	require.EqualValues(t, -1, x)
}

func TestFetchUnalignedSignedArbitraryWidth(t *testing.T) {
	s := NewSerializer(2)
	s.AddUnalignedBit(true)
	s.AddUnalignedSigned(-5, 5) // five-bit two's complement of -5
	d := NewDeserializer(s.Buffer())
	bit, err := d.FetchUnalignedBit()
	require.NoError(t, err)
	require.True(t, bit)
	v, err := d.FetchUnalignedSigned(5)
	require.NoError(t, err)
	require.EqualValues(t, -5, v)
}

func TestFetchAlignedArrayOfBits(t *testing.T) {
	s := NewSerializer(1)
	s.AddAlignedArrayOfBits([]bool{true, false, true, true, false})
	d := NewDeserializer(s.Buffer())
	bits, err := d.FetchAlignedArrayOfBits(5)
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, true, true, false}, bits)
}

func TestForkBytesHasIndependentZeroExtensionHorizon(t *testing.T) {
	// The fork covers the first 4 of 6 source bytes: it reads those 4, and
	// a read past its window returns zero rather than the parent's 0x05.
	// The parent's cursor is not moved by the fork.
	m := NewDeserializer([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})
	f, err := m.ForkBytes(4)
	require.NoError(t, err)

	bs, err := f.FetchAlignedBytes(4)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, bs)

	past, err := f.FetchAlignedU8()
	require.NoError(t, err)
	require.EqualValues(t, 0, past)

	m.SkipBits(4 * 8)
	rest, err := m.FetchAlignedBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x05, 0x06}, rest)
}

func TestForkBytesTruncatesNestedTrailingData(t *testing.T) {
	// The fork sees only the bytes it was given; data belonging to the
	// parent beyond the fork's window must not leak into it.
	m := NewDeserializer([]byte{0xAA, 0xBB, 0xCC, 0xDD})
	f, err := m.ForkBytes(2)
	require.NoError(t, err)

	u32, err := f.FetchAlignedU32()
	require.NoError(t, err)
	require.EqualValues(t, 0x0000BBAA, u32, "bytes past the fork's 2-byte window must zero-extend, not read CC DD")
}

func TestForkBytesRejectsOversizeRequest(t *testing.T) {
	d := NewDeserializer([]byte{0x01, 0x02})
	_, err := d.ForkBytes(10)
	require.Error(t, err)
}

func TestForkBytesRejectsUnalignedCursor(t *testing.T) {
	d := NewDeserializer([]byte{0x01, 0x02})
	_, err := d.FetchUnalignedBit()
	require.NoError(t, err)
	_, err = d.ForkBytes(1)
	require.Error(t, err)
}

func TestMultiFragmentSourceIsConcatenated(t *testing.T) {
	d := NewDeserializer([]byte{0x01, 0x02}, []byte{0x03, 0x04})
	u32, err := d.FetchAlignedU32()
	require.NoError(t, err)
	require.EqualValues(t, 0x04030201, u32)
}

func TestFloat16RoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 0.5, 65504, -65504}
	for _, c := range cases {
		s := NewSerializer(2)
		s.AddAlignedF16(c)
		d := NewDeserializer(s.Buffer())
		got, err := d.FetchAlignedF16()
		require.NoError(t, err)
		require.InDelta(t, c, got, 1e-2, "round trip of %v", c)
	}
}
