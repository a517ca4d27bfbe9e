// Package json provides a JSON codec implementation.
package json

import (
	"encoding/json"
	"strings"

	"github.com/zoobzio/archivable"
)

// jsonCodec implements archivable.Codec for JSON.
type jsonCodec struct {
	indent string
}

// New returns a compact JSON codec.
func New() archivable.Codec {
	return &jsonCodec{}
}

// Indent returns a JSON codec that indents output by the given number of spaces.
func Indent(spaces int) archivable.Codec {
	return &jsonCodec{indent: strings.Repeat(" ", max(spaces, 0))}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	if c.indent != "" {
		return json.MarshalIndent(v, "", c.indent)
	}
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
