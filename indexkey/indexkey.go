// Package indexkey provides byte representations for index keys (the
// type parameter I of tinybase.Index[T, I]). Index keys are always
// compared and persisted by their raw bytes, never through the general
// value codec — two equal keys must produce equal byte slices.
package indexkey

import (
	"encoding/binary"
	"math"

	"golang.org/x/exp/constraints"
)

// Key is the byte representation contract every index key type must
// satisfy, mirroring spec's as_ref_bytes(I) -> &[u8].
type Key interface {
	Bytes() []byte
}

// StringKey is an index key backed by a string, keyed by its UTF-8 bytes.
type StringKey string

// Bytes implements Key.
func (k StringKey) Bytes() []byte { return []byte(k) }

// BytesKey is an index key already in its byte form.
type BytesKey []byte

// Bytes implements Key.
func (k BytesKey) Bytes() []byte { return []byte(k) }

// Numeric constrains the element types NumberKey accepts, mirroring
// Acksell-bezos's val.Numeric constraint for constant key values.
type Numeric interface {
	constraints.Integer | constraints.Float
}

// NumberKey is a generic numeric index key. Integers are encoded as a
// fixed-width big-endian value; floats are encoded via their IEEE-754 bit
// pattern. Both give byte-deterministic, equality-comparable keys.
type NumberKey[T Numeric] struct {
	Value T
}

// Number constructs a NumberKey.
func Number[T Numeric](v T) NumberKey[T] {
	return NumberKey[T]{Value: v}
}

// Bytes implements Key.
func (k NumberKey[T]) Bytes() []byte {
	switch v := any(k.Value).(type) {
	case float32:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, math.Float32bits(v))
		return buf
	case float64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(v))
		return buf
	default:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(k.Value))
		return buf
	}
}
