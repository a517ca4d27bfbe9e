// Package yaml provides a YAML codec, suited to readable configuration
// snapshots as well as object payloads.
package yaml

import (
	"bytes"

	"github.com/zoobzio/archivable"
	"gopkg.in/yaml.v3"
)

// yamlCodec implements archivable.Codec for YAML.
type yamlCodec struct {
	indent int
}

// New returns a YAML codec indenting nested blocks by two spaces.
func New() archivable.Codec {
	return &yamlCodec{indent: 2}
}

// Indent returns a YAML codec indenting nested blocks by the given number
// of spaces. Values below two fall back to two.
func Indent(spaces int) archivable.Codec {
	return &yamlCodec{indent: max(spaces, 2)}
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as a single YAML document.
func (c *yamlCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(c.indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes YAML data into v.
func (c *yamlCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}
