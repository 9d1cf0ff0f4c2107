// Package codec implements the value encoding contract TinyBase's core
// consumes: byte-deterministic, round-tripping Encode/Decode for user
// values, record ids, and id lists.
package codec

import (
	"bytes"

	"github.com/google/uuid"
	mpcodec "github.com/hashicorp/go-msgpack/v2/codec"
)

// handle configures the msgpack encoding used across the package. A single
// shared handle keeps encode/decode symmetric without per-call setup, the
// same way hashicorp/nomad holds one package-level *codec.MsgpackHandle
// for its RPC and snapshot codecs. Canonical mode sorts map keys so equal
// maps encode to equal bytes.
var handle = func() *mpcodec.MsgpackHandle {
	h := &mpcodec.MsgpackHandle{}
	h.Canonical = true
	return h
}()

// Codec encodes and decodes values of any type to and from bytes. Two
// equal values must always encode to equal byte slices.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// Msgpack is the default Codec, backed by
// github.com/hashicorp/go-msgpack/v2.
type Msgpack struct{}

// New returns the default msgpack-backed Codec.
func New() Codec { return Msgpack{} }

// Encode serializes v with msgpack.
func (Msgpack) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := mpcodec.NewEncoder(&buf, handle).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes data into v, which must be a pointer.
func (Msgpack) Decode(data []byte, v any) error {
	return mpcodec.NewDecoder(bytes.NewReader(data), handle).Decode(v)
}

// EncodeID serializes a record id. IDs are encoded raw (not through
// msgpack) since uuid.UUID's 16-byte array representation is already
// fixed-width and byte-deterministic.
func EncodeID(id uuid.UUID) []byte {
	b := make([]byte, 16)
	copy(b, id[:])
	return b
}

// DecodeID parses bytes produced by EncodeID.
func DecodeID(data []byte) (uuid.UUID, error) {
	return uuid.FromBytes(data)
}

// EncodeIDList serializes an ordered list of record ids, used as the
// value stored under an index bucket key.
func EncodeIDList(ids []uuid.UUID) ([]byte, error) {
	return Msgpack{}.Encode(ids)
}

// DecodeIDList deserializes bytes produced by EncodeIDList.
func DecodeIDList(data []byte) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := (Msgpack{}).Decode(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
