// Package msgpack provides a MessagePack codec for object payloads.
//
// Payloads are deterministic: map keys are written in sorted order, so
// saving the same state twice yields identical files.
package msgpack

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zoobzio/archivable"
)

// msgpackCodec implements archivable.Codec for MessagePack.
type msgpackCodec struct {
	compact bool
}

// New returns a MessagePack codec that writes integers in their smallest encoding.
func New() archivable.Codec {
	return &msgpackCodec{compact: true}
}

// Wide returns a MessagePack codec that keeps the full width of integer types.
func Wide() archivable.Codec {
	return &msgpackCodec{}
}

// ContentType returns the MIME type for MessagePack.
func (c *msgpackCodec) ContentType() string {
	return "application/msgpack"
}

// Marshal encodes v as MessagePack with sorted map keys.
func (c *msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(c.compact)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes MessagePack data into v.
func (c *msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.NewDecoder(bytes.NewReader(data)).Decode(v)
}
