// Package dsdl provides the top-level serialize/deserialize façade used
// by generated (or, absent a code generator, hand-written) per-type
// code. It knows nothing about bit widths or alignment; it only knows
// how to drive a Composite through a Serializer or Deserializer and how
// to turn a caught FormatErr into "no instance", per the top-level
// contract described for pyuavcan.dsdl.serialize/deserialize.
package dsdl

import (
	"log/slog"

	"github.com/dsdl-codec/canard/bitstream"
)

// Composite is implemented by every DSDL composite type's Go
// representation. ExtentBytes reports the maximum possible size of this
// type's serialized representation, used to size the backing buffer
// before serialization begins.
type Composite interface {
	Serialize(ser *bitstream.Serializer) error
	ExtentBytes() int
}

// Deserializable is satisfied by a pointer to a type implementing
// Composite's read side. Go generics have no way to call a method on a
// type parameter unless the constraint names it on the pointer, hence
// the two-parameter shape of Deserialize below.
type Deserializable[T any] interface {
	*T
	Composite
	DeserializeFrom(des *bitstream.Deserializer) error
}

// Serialize encodes obj into one or more byte fragments. The backing
// buffer is sized to obj.ExtentBytes(); the result always contains at
// least one fragment, even for a zero-length type.
func Serialize(obj Composite) ([][]byte, error) {
	ser := bitstream.NewSerializer(obj.ExtentBytes())
	if err := obj.Serialize(ser); err != nil {
		return nil, err
	}
	return [][]byte{ser.Buffer()}, nil
}

// Deserialize reconstructs a T from fragments. A FormatErr raised by T's
// deserialization routine -- meaning the input is not a valid serialized
// representation of T -- is caught and reported as (zero value, false)
// rather than propagated, mirroring the top-level deserialize() contract:
// malformed input yields "no instance", not a crash. Any other error
// (a usage error from the bitstream layer, indicating a bug in the
// deserialization routine itself rather than bad input) propagates via
// panic, since it is never expected to occur at steady state.
func Deserialize[T any, PT Deserializable[T]](fragments ...[]byte) (T, bool) {
	var zero T
	des := bitstream.NewDeserializer(fragments...)
	var obj T
	pt := PT(&obj)
	err := pt.DeserializeFrom(des)
	if err == nil {
		return obj, true
	}
	if fe, ok := err.(*bitstream.FormatErr); ok {
		slog.Default().Info("dsdl: discarding invalid serialized representation", "error", fe)
		return zero, false
	}
	panic(err)
}
