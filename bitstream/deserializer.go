package bitstream

import (
	"encoding/binary"
	"math"

	"github.com/dsdl-codec/canard/zx"
)

// Deserializer reconstructs primitive values from a serialized
// representation, implementing the implicit zero extension rule
// throughout: any fetch that runs past the end of the source returns
// zero bits rather than failing. Deserializer itself never raises
// FormatErr; a generated deserialization routine raises it when the
// values it fetches violate a schema-level constraint.
type Deserializer struct {
	buf       *zx.Buffer
	bitOffset int
}

// NewDeserializer wraps the given ordered fragments. A single fragment is
// referenced directly; multiple fragments are concatenated once.
func NewDeserializer(fragments ...[]byte) *Deserializer {
	return &Deserializer{buf: zx.New(fragments...)}
}

// ConsumedBitLength returns the number of bits fetched so far.
func (d *Deserializer) ConsumedBitLength() int {
	return d.bitOffset
}

// RemainingBitLength returns the number of bits left in the source. It
// goes negative once the cursor has advanced past the end, which is the
// normal and expected state while zero-extending.
func (d *Deserializer) RemainingBitLength() int {
	return d.buf.BitLength() - d.bitOffset
}

func (d *Deserializer) byteOffset() int {
	return d.bitOffset / 8
}

// SkipBits advances the cursor without reading anything. n must be
// non-negative.
func (d *Deserializer) SkipBits(n int) error {
	if n < 0 {
		return usageErrorf("bitstream: SkipBits called with negative length %d", n)
	}
	d.bitOffset += n
	return nil
}

// PadToAlignment advances the cursor to the next multiple of bits without
// reading anything (padding bits carry no information on the read side).
func (d *Deserializer) PadToAlignment(bits int) {
	for d.bitOffset%bits != 0 {
		d.bitOffset++
	}
}

// ForkBytes creates a child Deserializer with an independent
// zero-extension horizon covering exactly size bytes starting at the
// current (byte-aligned) cursor. This is the read-side counterpart of
// Serializer.ForkBytes, used to deserialize a delimited nested object:
// the caller reads the delimiter header first and must ensure size does
// not exceed RemainingBitLength()/8 before calling.
//
// Forking at an unaligned offset, or requesting more bytes than remain,
// is a usage error -- the delimiter-header bounds check belongs to the
// caller, before this call.
func (d *Deserializer) ForkBytes(size int) (*Deserializer, error) {
	if d.bitOffset%8 != 0 {
		return nil, usageErrorf("bitstream: cannot fork unaligned deserializer at bit offset %d", d.bitOffset)
	}
	remaining := d.RemainingBitLength()
	if remaining < 0 || remaining/8 < size {
		return nil, usageErrorf(
			"bitstream: forked buffer of %d bytes exceeds %d bytes remaining", size, remaining/8)
	}
	fragments, err := d.buf.ForkBytes(d.byteOffset(), size)
	if err != nil {
		return nil, err
	}
	return &Deserializer{buf: zx.New(fragments...)}, nil
}

//
// Fast paths: byte-aligned fixed-width primitives.
//

func (d *Deserializer) FetchAlignedU8() (uint8, error) {
	b, err := d.buf.GetByte(d.byteOffset())
	d.bitOffset += 8
	return b, err
}

func (d *Deserializer) FetchAlignedU16() (uint16, error) {
	bs, err := d.buf.GetUnsignedSlice(d.byteOffset(), d.byteOffset()+2)
	d.bitOffset += 16
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(bs), nil
}

func (d *Deserializer) FetchAlignedU32() (uint32, error) {
	bs, err := d.buf.GetUnsignedSlice(d.byteOffset(), d.byteOffset()+4)
	d.bitOffset += 32
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(bs), nil
}

func (d *Deserializer) FetchAlignedU64() (uint64, error) {
	bs, err := d.buf.GetUnsignedSlice(d.byteOffset(), d.byteOffset()+8)
	d.bitOffset += 64
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(bs), nil
}

func (d *Deserializer) FetchAlignedI8() (int8, error) {
	x, err := d.FetchAlignedU8()
	return int8(x), err
}

func (d *Deserializer) FetchAlignedI16() (int16, error) {
	x, err := d.FetchAlignedU16()
	return int16(x), err
}

func (d *Deserializer) FetchAlignedI32() (int32, error) {
	x, err := d.FetchAlignedU32()
	return int32(x), err
}

func (d *Deserializer) FetchAlignedI64() (int64, error) {
	x, err := d.FetchAlignedU64()
	return int64(x), err
}

func (d *Deserializer) FetchAlignedF16() (float64, error) {
	x, err := d.FetchAlignedU16()
	return float16BitsToFloat64(x), err
}

func (d *Deserializer) FetchAlignedF32() (float64, error) {
	x, err := d.FetchAlignedU32()
	return float64(math.Float32frombits(x)), err
}

func (d *Deserializer) FetchAlignedF64() (float64, error) {
	x, err := d.FetchAlignedU64()
	return math.Float64frombits(x), err
}

// FetchAlignedBytes returns exactly count bytes from a byte-aligned
// cursor, zero-extended past the end of the source.
func (d *Deserializer) FetchAlignedBytes(count int) ([]byte, error) {
	if count < 0 {
		return nil, usageErrorf("bitstream: FetchAlignedBytes called with negative count %d", count)
	}
	out, err := d.buf.GetUnsignedSlice(d.byteOffset(), d.byteOffset()+count)
	d.bitOffset += count * 8
	return out, err
}

// FetchAlignedArrayOfBits unpacks count bools LSB-first from a
// byte-aligned cursor.
func (d *Deserializer) FetchAlignedArrayOfBits(count int) ([]bool, error) {
	if count < 0 {
		return nil, usageErrorf("bitstream: FetchAlignedArrayOfBits called with negative count %d", count)
	}
	bs, err := d.buf.GetUnsignedSlice(d.byteOffset(), d.byteOffset()+(count+7)/8)
	d.bitOffset += count
	if err != nil {
		return nil, err
	}
	return unpackBitsLittle(bs, count), nil
}

//
// Less specialized: aligned but non-standard bit width.
//

// FetchAlignedUnsigned reads a bitLength-bit unsigned value from a
// byte-aligned cursor.
func (d *Deserializer) FetchAlignedUnsigned(bitLength int) (uint64, error) {
	if bitLength < 1 {
		return 0, usageErrorf("bitstream: FetchAlignedUnsigned called with non-positive bit length %d", bitLength)
	}
	bs, err := d.buf.GetUnsignedSlice(d.byteOffset(), d.byteOffset()+(bitLength+7)/8)
	d.bitOffset += bitLength
	if err != nil {
		return 0, err
	}
	return unsignedFromBytes(bs, bitLength), nil
}

// FetchAlignedSigned reads a bitLength-bit two's-complement value from a
// byte-aligned cursor.
func (d *Deserializer) FetchAlignedSigned(bitLength int) (int64, error) {
	u, err := d.FetchAlignedUnsigned(bitLength)
	return signExtend(u, bitLength), err
}

//
// Slowest: no alignment assumption.
//

// FetchUnalignedBit reads a single bit at the current cursor.
func (d *Deserializer) FetchUnalignedBit() (bool, error) {
	b, err := d.buf.GetByte(d.byteOffset())
	mask := byte(1) << uint(d.bitOffset%8)
	d.bitOffset++
	return b&mask == mask, err
}

// FetchUnalignedBytes is the unaligned counterpart of
// FetchAlignedBytes, using Ben Dyer's unaligned bit-copy algorithm: the
// destination is byte-aligned, so each output byte combines the tail of
// one source byte with the head of the next.
func (d *Deserializer) FetchUnalignedBytes(count int) ([]byte, error) {
	if count < 0 {
		return nil, usageErrorf("bitstream: FetchUnalignedBytes called with negative count %d", count)
	}
	if count == 0 {
		return []byte{}, nil
	}
	if d.bitOffset%8 == 0 {
		return d.FetchAlignedBytes(count)
	}
	right := uint(d.bitOffset % 8)
	left := 8 - right
	out := make([]byte, count)
	for i := 0; i < count; i++ {
		lo, err := d.buf.GetByte(d.byteOffset())
		if err != nil {
			return nil, err
		}
		hi, err := d.buf.GetByte(d.byteOffset() + 1)
		if err != nil {
			return nil, err
		}
		out[i] = (lo >> right) | ((hi << left) & 0xFF)
		d.bitOffset += 8
	}
	return out, nil
}

// FetchUnalignedUnsigned reads a bitLength-bit unsigned value at the
// current unaligned cursor, backtracking past the padding bits the
// byte-granular fetch spilled beyond bitLength.
func (d *Deserializer) FetchUnalignedUnsigned(bitLength int) (uint64, error) {
	if bitLength < 1 {
		return 0, usageErrorf("bitstream: FetchUnalignedUnsigned called with non-positive bit length %d", bitLength)
	}
	byteLength := (bitLength + 7) / 8
	bs, err := d.FetchUnalignedBytes(byteLength)
	if err != nil {
		return 0, err
	}
	d.bitOffset -= byteLength*8 - bitLength
	return unsignedFromBytes(bs, bitLength), nil
}

// FetchUnalignedSigned reads a bitLength-bit two's-complement value at
// the current unaligned cursor.
func (d *Deserializer) FetchUnalignedSigned(bitLength int) (int64, error) {
	u, err := d.FetchUnalignedUnsigned(bitLength)
	return signExtend(u, bitLength), err
}

func (d *Deserializer) FetchUnalignedArrayOfBits(count int) ([]bool, error) {
	if count < 0 {
		return nil, usageErrorf("bitstream: FetchUnalignedArrayOfBits called with negative count %d", count)
	}
	byteCount := (count + 7) / 8
	bs, err := d.FetchUnalignedBytes(byteCount)
	if err != nil {
		return nil, err
	}
	d.bitOffset -= byteCount*8 - count
	return unpackBitsLittle(bs, count), nil
}

func (d *Deserializer) FetchUnalignedF16() (float64, error) {
	bs, err := d.FetchUnalignedBytes(2)
	if err != nil {
		return 0, err
	}
	return float16BitsToFloat64(binary.LittleEndian.Uint16(bs)), nil
}

func (d *Deserializer) FetchUnalignedF32() (float64, error) {
	bs, err := d.FetchUnalignedBytes(4)
	if err != nil {
		return 0, err
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(bs))), nil
}

func (d *Deserializer) FetchUnalignedF64() (float64, error) {
	bs, err := d.FetchUnalignedBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(bs)), nil
}

//
// Standard-primitive arrays.
//

func (d *Deserializer) FetchAlignedArrayOfU8(count int) ([]uint8, error) {
	return d.FetchAlignedBytes(count)
}

func (d *Deserializer) FetchUnalignedArrayOfU8(count int) ([]uint8, error) {
	return d.FetchUnalignedBytes(count)
}

func (d *Deserializer) FetchAlignedArrayOfU16(count int) ([]uint16, error) {
	out := make([]uint16, count)
	for i := range out {
		v, err := d.FetchAlignedU16()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *Deserializer) FetchAlignedArrayOfF64(count int) ([]float64, error) {
	out := make([]float64, count)
	for i := range out {
		v, err := d.FetchAlignedF64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// signExtend interprets u as the two's-complement representation of a
// bitLength-bit signed integer.
func signExtend(u uint64, bitLength int) int64 {
	if bitLength >= 64 {
		return int64(u)
	}
	signBit := uint64(1) << uint(bitLength-1)
	if u&signBit != 0 {
		return int64(u) - (int64(1) << uint(bitLength))
	}
	return int64(u)
}

// unsignedFromBytes is the inverse of unsignedToBytes: x must have at
// least ceil(bitLength/8) bytes, little-endian, with any bits beyond
// bitLength in the final byte ignored.
func unsignedFromBytes(x []byte, bitLength int) uint64 {
	numBytes := (bitLength + 7) / 8
	last := numBytes - 1
	var out uint64
	for i := 0; i < last; i++ {
		out |= uint64(x[i]) << uint(i*8)
	}
	msbBits := bitLength % 8
	var msbMask byte = 0xFF
	if msbBits != 0 {
		msbMask = byte(1<<uint(msbBits)) - 1
	}
	out |= uint64(x[last]&msbMask) << uint(last*8)
	return out
}

// unpackBitsLittle is the inverse of packBitsLittle: bit i of the output
// comes from bit (i%8) of input byte i/8.
func unpackBitsLittle(bs []byte, count int) []bool {
	out := make([]bool, count)
	for i := range out {
		out[i] = bs[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}
