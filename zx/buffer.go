// Package zx implements the zero-extending read-side byte buffer used by
// the DSDL bit-stream codec: a source is a read-only view over one or more
// byte fragments in which any read past the end of the data yields zero
// bytes instead of failing. This is what lets the Deserializer implement
// the implicit-zero-extension and implicit-truncation rules required by
// the wire format without ever touching an error path on the read side.
package zx

import (
	"github.com/pkg/errors"
)

// Buffer is a contiguous, read-only byte source with an implicit
// zero-extension horizon: reads at or beyond Len() succeed and return
// zero. It does not support fragmented storage internally; fragments
// supplied at construction are concatenated once, up front.
type Buffer struct {
	data []byte
}

// New wraps the given ordered fragments in a zero-extending Buffer. If
// exactly one fragment is supplied it is referenced directly with no
// copy; otherwise the fragments are concatenated into one contiguous
// region.
func New(fragments ...[]byte) *Buffer {
	if len(fragments) == 1 {
		return &Buffer{data: fragments[0]}
	}
	total := 0
	for _, f := range fragments {
		total += len(f)
	}
	data := make([]byte, 0, total)
	for _, f := range fragments {
		data = append(data, f...)
	}
	return &Buffer{data: data}
}

// BitLength returns the total number of bits in the source.
func (b *Buffer) BitLength() int {
	return len(b.data) * 8
}

// Len returns the total number of bytes in the source.
func (b *Buffer) Len() int {
	return len(b.data)
}

// GetByte returns the byte at index i, or zero if i is beyond the end of
// the source. A negative index is a usage error: the end of a
// zero-extended buffer is undefined in that direction.
func (b *Buffer) GetByte(i int) (byte, error) {
	if i < 0 {
		return 0, errors.Errorf("zx: byte index %d may not be negative", i)
	}
	if i >= len(b.data) {
		return 0, nil
	}
	return b.data[i], nil
}

// GetUnsignedSlice returns exactly right-left bytes starting at left,
// right-padded with zeros if the source is shorter than right. It never
// fails for in-order indices; left > right is a usage error.
func (b *Buffer) GetUnsignedSlice(left, right int) ([]byte, error) {
	if left < 0 || right < left {
		return nil, errors.Errorf("zx: invalid slice bounds [%d:%d]", left, right)
	}
	count := right - left
	out := make([]byte, count)
	if left >= len(b.data) {
		return out, nil
	}
	end := right
	if end > len(b.data) {
		end = len(b.data)
	}
	copy(out, b.data[left:end])
	return out, nil
}

// ForkBytes returns a single-fragment view over exactly length bytes
// starting at offset. It is a usage error for offset+length to exceed the
// source length: the caller (a delimiter-header check in a generated
// deserialization routine) must have already validated the requested
// length against the remaining buffer before forking.
func (b *Buffer) ForkBytes(offset, length int) ([][]byte, error) {
	if offset < 0 || length < 0 || offset+length > len(b.data) {
		return nil, errors.Errorf(
			"zx: invalid fork: offset (%d) + length (%d) > %d", offset, length, len(b.data))
	}
	return [][]byte{b.data[offset : offset+length]}, nil
}
