// Package bitstream implements the write and read halves of the DSDL
// bit-level serialization format: little-endian, byte-padded at the
// outer boundary, with arbitrary bit-width primitives (1-64 bits),
// IEEE-754 binary16/32/64 floats, and two's-complement signed integers.
//
// # Key Features
//
//   - Fast paths for byte-aligned fields, slow paths for everything else
//   - Implicit zero extension on the read side: a read past the end of
//     the source buffer returns zero rather than failing
//   - Fork support: a Serializer fork aliases its parent's backing array;
//     a Deserializer fork gets its own independent zero-extension horizon
//
// # Dependencies
//
//   - github.com/pkg/errors: construction of usage errors (programmer
//     mistakes such as a negative cardinal or an unaligned fork), kept
//     distinct from FormatErr (bad input data)
//
// # Scope
//
// This package has no notion of a schema, a type model, or a delimiter
// header. It serializes and deserializes primitives and byte blocks at
// whatever bit offset it's told to; assembling those into a composite
// type is the job of the dsdl package and of generated (or, here,
// hand-written) per-type code.
package bitstream

import (
	"encoding/binary"
	"math"
)

const extraBufferCapacity = 1 // one spare byte for unaligned writes that spill across a byte boundary

// Serializer accumulates a DSDL serialized representation into a
// fixed-size backing array. All methods that accept an unsigned value
// implicitly truncate it to the requested width; signed values are never
// range-checked (DSDL forbids truncating a signed field, so the caller
// must saturate before calling). Passing a negative value to an unsigned
// writer is a usage error.
type Serializer struct {
	buf       []byte
	bitOffset int
}

// NewSerializer allocates a Serializer backed by size+1 zeroed bytes. The
// extra byte absorbs unaligned writes whose high fragment spills into the
// byte after the requested size; callers size buffers to the type's
// extent in bytes.
func NewSerializer(size int) *Serializer {
	return &Serializer{buf: make([]byte, size+extraBufferCapacity)}
}

// CurrentBitLength returns the number of bits written so far.
func (s *Serializer) CurrentBitLength() int {
	return s.bitOffset
}

// Buffer returns the meaningful prefix of the backing array: ceil(bits/8)
// bytes, zero-bit-padded to the next byte boundary.
func (s *Serializer) Buffer() []byte {
	return s.buf[:(s.bitOffset+7)/8]
}

func (s *Serializer) byteOffset() int {
	return s.bitOffset / 8
}

// SkipBits advances the cursor without writing anything. Used for padding
// and for reserving space written separately, e.g. by a forked Serializer.
func (s *Serializer) SkipBits(n int) {
	s.bitOffset += n
}

// PadToAlignment writes zero bits until the cursor is aligned to a bits.
func (s *Serializer) PadToAlignment(bits int) {
	for s.bitOffset%bits != 0 {
		s.AddUnalignedBit(false)
	}
}

// ForkBytes creates a child Serializer sharing this Serializer's backing
// array starting at the current (byte-aligned) cursor, sized to exactly
// size+1 bytes. It is intended for delimited serialization: fork at the
// point the nested object goes, skip the delimiter header's width,
// serialize the nested object through the fork, then serialize the real
// header value and skip the parent past the fragment the fork wrote.
//
// Forking at an unaligned offset, or requesting more space than remains
// in the parent buffer, is a usage error.
func (s *Serializer) ForkBytes(size int) (*Serializer, error) {
	if s.bitOffset%8 != 0 {
		return nil, usageErrorf("bitstream: cannot fork unaligned serializer at bit offset %d", s.bitOffset)
	}
	remaining := s.buf[s.byteOffset():]
	needed := size + extraBufferCapacity
	if len(remaining) < needed {
		return nil, usageErrorf(
			"bitstream: forked buffer of %d bytes exceeds %d bytes remaining in parent", size, len(remaining)-extraBufferCapacity)
	}
	return &Serializer{buf: remaining[:needed]}, nil
}

//
// Fast paths: byte-aligned fixed-width primitives.
//

func (s *Serializer) AddAlignedU8(x uint8) {
	s.buf[s.byteOffset()] = x
	s.bitOffset += 8
}

func (s *Serializer) AddAlignedU16(x uint16) {
	binary.LittleEndian.PutUint16(s.buf[s.byteOffset():], x)
	s.bitOffset += 16
}

func (s *Serializer) AddAlignedU32(x uint32) {
	binary.LittleEndian.PutUint32(s.buf[s.byteOffset():], x)
	s.bitOffset += 32
}

func (s *Serializer) AddAlignedU64(x uint64) {
	binary.LittleEndian.PutUint64(s.buf[s.byteOffset():], x)
	s.bitOffset += 64
}

func (s *Serializer) AddAlignedI8(x int8)   { s.AddAlignedU8(uint8(x)) }
func (s *Serializer) AddAlignedI16(x int16) { s.AddAlignedU16(uint16(x)) }
func (s *Serializer) AddAlignedI32(x int32) { s.AddAlignedU32(uint32(x)) }
func (s *Serializer) AddAlignedI64(x int64) { s.AddAlignedU64(uint64(x)) }

func (s *Serializer) AddAlignedF16(x float64) { s.AddAlignedU16(float64ToFloat16Bits(x)) }
func (s *Serializer) AddAlignedF32(x float64) { s.AddAlignedU32(math.Float32bits(saturateToFloat32(x))) }
func (s *Serializer) AddAlignedF64(x float64) { s.AddAlignedU64(math.Float64bits(x)) }

// AddAlignedBytes copies x verbatim; the cursor must already be
// byte-aligned.
func (s *Serializer) AddAlignedBytes(x []byte) {
	copy(s.buf[s.byteOffset():], x)
	s.bitOffset += len(x) * 8
}

// AddAlignedArrayOfBits packs bools LSB-first within each byte, starting
// from a byte-aligned cursor.
func (s *Serializer) AddAlignedArrayOfBits(x []bool) {
	packed := packBitsLittle(x)
	s.AddAlignedBytes(packed)
	s.bitOffset -= len(packed)*8 - len(x)
}

//
// Less specialized: aligned but non-standard bit width.
//

// AddAlignedUnsigned truncates value to bitLength bits and writes it from
// a byte-aligned cursor. A negative value is a usage error.
func (s *Serializer) AddAlignedUnsigned(value int64, bitLength int) error {
	if value < 0 {
		return usageErrorf("bitstream: AddAlignedUnsigned called with negative value %d", value)
	}
	bs := unsignedToBytes(uint64(value), bitLength)
	s.AddAlignedBytes(bs)
	s.bitOffset -= len(bs)*8 - bitLength
	return nil
}

// AddAlignedSigned writes the bitLength-bit two's-complement
// representation of value from a byte-aligned cursor.
func (s *Serializer) AddAlignedSigned(value int64, bitLength int) {
	u := value
	if u < 0 {
		u += int64(1) << uint(bitLength)
	}
	_ = s.AddAlignedUnsigned(u, bitLength) // u is non-negative by construction
}

//
// Slowest: no alignment assumption.
//

// AddUnalignedBit writes a single bit at the current cursor, which may
// land anywhere within a byte.
func (s *Serializer) AddUnalignedBit(x bool) {
	if x {
		s.buf[s.byteOffset()] |= 1 << uint(s.bitOffset%8)
	}
	s.bitOffset++
}

// AddUnalignedBytes writes value at the current (possibly unaligned)
// cursor using Ben Dyer's unaligned bit-copy algorithm: the source is
// known to be byte-aligned, so each source byte splits across at most two
// destination bytes.
func (s *Serializer) AddUnalignedBytes(value []byte) {
	if s.bitOffset%8 == 0 {
		s.AddAlignedBytes(value)
		return
	}
	left := uint(s.bitOffset % 8)
	right := 8 - left
	for _, b := range value {
		s.buf[s.byteOffset()] |= (b << left) & 0xFF
		s.bitOffset += 8
		s.buf[s.byteOffset()] = b >> right
	}
}

// AddUnalignedUnsigned is the unaligned counterpart of
// AddAlignedUnsigned: it writes ceil(bitLength/8) bytes then backtracks
// the cursor by the padding bits that spilled past bitLength.
func (s *Serializer) AddUnalignedUnsigned(value int64, bitLength int) error {
	if value < 0 {
		return usageErrorf("bitstream: AddUnalignedUnsigned called with negative value %d", value)
	}
	bs := unsignedToBytes(uint64(value), bitLength)
	s.AddUnalignedBytes(bs)
	s.bitOffset -= len(bs)*8 - bitLength
	return nil
}

// AddUnalignedSigned writes the bitLength-bit two's-complement
// representation of value at the current unaligned cursor.
func (s *Serializer) AddUnalignedSigned(value int64, bitLength int) {
	u := value
	if u < 0 {
		u += int64(1) << uint(bitLength)
	}
	_ = s.AddUnalignedUnsigned(u, bitLength)
}

func (s *Serializer) AddUnalignedArrayOfBits(x []bool) {
	packed := packBitsLittle(x)
	s.AddUnalignedBytes(packed)
	s.bitOffset -= len(packed)*8 - len(x)
}

func (s *Serializer) AddUnalignedF16(x float64) { _ = s.addUnalignedU16(float64ToFloat16Bits(x)) }
func (s *Serializer) AddUnalignedF32(x float64) {
	_ = s.addUnalignedU32(math.Float32bits(saturateToFloat32(x)))
}
func (s *Serializer) AddUnalignedF64(x float64) { _ = s.addUnalignedU64(math.Float64bits(x)) }

func (s *Serializer) addUnalignedU16(x uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], x)
	s.AddUnalignedBytes(b[:])
	return nil
}

func (s *Serializer) addUnalignedU32(x uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], x)
	s.AddUnalignedBytes(b[:])
	return nil
}

func (s *Serializer) addUnalignedU64(x uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], x)
	s.AddUnalignedBytes(b[:])
	return nil
}

//
// Standard-primitive arrays: one memcpy-equivalent call per element type,
// aligned and unaligned. Go's type system makes the "dtype restriction"
// structural: there is no bool or generic-object overload in this family.
//

func (s *Serializer) AddAlignedArrayOfU8(x []uint8)   { s.AddAlignedBytes(x) }
func (s *Serializer) AddUnalignedArrayOfU8(x []uint8) { s.AddUnalignedBytes(x) }

func (s *Serializer) AddAlignedArrayOfU16(x []uint16) {
	for _, v := range x {
		s.AddAlignedU16(v)
	}
}

func (s *Serializer) AddUnalignedArrayOfU16(x []uint16) {
	for _, v := range x {
		_ = s.addUnalignedU16(v)
	}
}

func (s *Serializer) AddAlignedArrayOfU32(x []uint32) {
	for _, v := range x {
		s.AddAlignedU32(v)
	}
}

func (s *Serializer) AddUnalignedArrayOfU32(x []uint32) {
	for _, v := range x {
		_ = s.addUnalignedU32(v)
	}
}

func (s *Serializer) AddAlignedArrayOfU64(x []uint64) {
	for _, v := range x {
		s.AddAlignedU64(v)
	}
}

func (s *Serializer) AddUnalignedArrayOfU64(x []uint64) {
	for _, v := range x {
		_ = s.addUnalignedU64(v)
	}
}

func (s *Serializer) AddAlignedArrayOfF64(x []float64) {
	for _, v := range x {
		s.AddAlignedF64(v)
	}
}

func (s *Serializer) AddUnalignedArrayOfF64(x []float64) {
	for _, v := range x {
		s.AddUnalignedF64(v)
	}
}

// saturateToFloat32 maps an overflowing magnitude to a signed infinity
// instead of letting the narrowing conversion produce NaN/garbage.
func saturateToFloat32(x float64) float32 {
	if math.IsNaN(x) {
		return float32(math.NaN())
	}
	if x > math.MaxFloat32 {
		return float32(math.Inf(1))
	}
	if x < -math.MaxFloat32 {
		return float32(math.Inf(-1))
	}
	return float32(x)
}

// unsignedToBytes returns value, masked to bitLength bits, as exactly
// ceil(bitLength/8) little-endian bytes.
func unsignedToBytes(value uint64, bitLength int) []byte {
	if bitLength < 64 {
		value &= (uint64(1) << uint(bitLength)) - 1
	}
	n := (bitLength + 7) / 8
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = byte(value)
		value >>= 8
	}
	return out
}

// packBitsLittle packs x LSB-first into bytes, matching numpy's
// packbits(bitorder="little"): bit i of the input lands in bit (i%8) of
// output byte i/8.
func packBitsLittle(x []bool) []byte {
	out := make([]byte, (len(x)+7)/8)
	for i, b := range x {
		if b {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}
