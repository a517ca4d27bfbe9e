// Package snapshot encodes configuration snapshots with a structured-data codec.
//
// Values the codec cannot represent natively are first rewritten by a
// Fallback. The Default fallback turns numeric arrays into nested number
// sequences, sets into sorted sequences and complex numbers into pairs.
package snapshot

import (
	"encoding"
	"encoding/json"
	"reflect"
	"strings"
)

// Marshaler encodes a snapshot. Every archivable.Codec satisfies it.
type Marshaler interface {
	Marshal(v any) ([]byte, error)
}

// Fallback rewrites a value into one the codec can represent.
// It returns false when it does not handle the value.
type Fallback func(v reflect.Value) (any, bool)

// Chain tries each fallback in order and uses the first that handles the value.
func Chain(fallbacks ...Fallback) Fallback {
	return func(v reflect.Value) (any, bool) {
		for _, fb := range fallbacks {
			if fb == nil {
				continue
			}
			if out, ok := fb(v); ok {
				return out, true
			}
		}
		return nil, false
	}
}

// Encode normalizes values with fb and marshals them with m.
func Encode(m Marshaler, values map[string]any, fb Fallback) ([]byte, error) {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = Normalize(v, fb)
	}
	return m.Marshal(out)
}

// Normalize walks v and applies fb to every nested value it can reach
// through pointers, interfaces, string-keyed maps, slices, arrays and struct
// fields. Structs become maps keyed by their json field names, with embedded
// structs flattened; structs that marshal themselves are kept as they are.
// Values fb does not handle are returned unchanged.
func Normalize(v any, fb Fallback) any {
	return normalize(reflect.ValueOf(v), fb)
}

func normalize(v reflect.Value, fb Fallback) any {
	if !v.IsValid() {
		return nil
	}
	if fb != nil && v.CanInterface() {
		if out, ok := fb(v); ok {
			return out
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return normalize(v.Elem(), fb)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		if v.Type().Key().Kind() != reflect.String {
			return v.Interface()
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value(), fb)
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		return normalizeSeq(v, fb)
	case reflect.Array:
		return normalizeSeq(v, fb)
	case reflect.Struct:
		if selfMarshaling(v.Type()) {
			return v.Interface()
		}
		out := make(map[string]any, v.NumField())
		normalizeStruct(v, fb, out)
		return out
	default:
		return v.Interface()
	}
}

func normalizeSeq(v reflect.Value, fb Fallback) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = normalize(v.Index(i), fb)
	}
	return out
}

func normalizeStruct(v reflect.Value, fb Fallback, out map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := v.Field(i)

		if sf.Anonymous && name == "" {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv, et = fv.Elem(), et.Elem()
			}
			if et.Kind() == reflect.Struct && !selfMarshaling(et) {
				normalizeStruct(fv, fb, out)
				continue
			}
		}

		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if strings.Contains(opts, "omitempty") && fv.IsZero() {
			continue
		}
		out[name] = normalize(fv, fb)
	}
}

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// selfMarshaling reports whether values of t control their own encoding.
func selfMarshaling(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return t.Implements(jsonMarshalerType) || pt.Implements(jsonMarshalerType) ||
		t.Implements(textMarshalerType) || pt.Implements(textMarshalerType)
}

// jsonMarshaler writes indented, human-readable JSON.
type jsonMarshaler struct {
	indent string
}

// JSON returns a Marshaler producing JSON indented by the given number of spaces.
// Zero produces compact output.
func JSON(indent int) Marshaler {
	return &jsonMarshaler{indent: strings.Repeat(" ", max(indent, 0))}
}

func (m *jsonMarshaler) Marshal(v any) ([]byte, error) {
	if m.indent == "" {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", m.indent)
}
