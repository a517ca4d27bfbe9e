package snapshot

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
)

// NDArray is a dense numeric array: a shape plus its elements in row-major order.
// Flat must return a slice.
type NDArray interface {
	Shape() []int
	Flat() any
}

// Default returns the fallback for numeric arrays, sets and complex numbers.
func Default() Fallback {
	return Chain(Arrays, Sets, Complex)
}

// Arrays converts an NDArray into nested sequences following its shape.
// The element kind of the flat slice decides the conversion: integer kinds
// become int64 or uint64, float kinds become float64, anything else is kept.
func Arrays(v reflect.Value) (any, bool) {
	a, ok := v.Interface().(NDArray)
	if !ok {
		return nil, false
	}
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, false
	}

	flat := reflect.ValueOf(a.Flat())
	if flat.Kind() != reflect.Slice && flat.Kind() != reflect.Array {
		return nil, false
	}

	elems := make([]any, flat.Len())
	for i := range elems {
		elems[i] = plainNumber(flat.Index(i))
	}

	shape := a.Shape()
	if product(shape) != len(elems) {
		return elems, true
	}
	if len(shape) == 0 {
		if len(elems) == 1 {
			return elems[0], true
		}
		return elems, true
	}
	out, _ := reshape(elems, shape)
	return out, true
}

func plainNumber(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	default:
		return v.Interface()
	}
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return -1
		}
		n *= d
	}
	return n
}

// reshape nests elems according to shape and returns the unconsumed rest.
func reshape(elems []any, shape []int) ([]any, []any) {
	if len(shape) == 1 {
		return elems[:shape[0]], elems[shape[0]:]
	}
	out := make([]any, shape[0])
	for i := range out {
		out[i], elems = reshape(elems, shape[1:])
	}
	return out, elems
}

// Sets converts a map with empty-struct values into a sorted sequence of its keys.
func Sets(v reflect.Value) (any, bool) {
	if v.Kind() != reflect.Map || v.Type().Elem().Size() != 0 || v.Type().Elem().Kind() != reflect.Struct {
		return nil, false
	}
	if v.IsNil() {
		return []any{}, true
	}

	keys := v.MapKeys()
	slices.SortFunc(keys, compareValues)

	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k.Interface()
	}
	return out, true
}

// compareValues orders set members of basic kinds and falls back to their
// printed form for anything else.
func compareValues(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.String:
		return cmp.Compare(a.String(), b.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	default:
		return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
	}
}

// Complex converts complex numbers into [real, imag] pairs.
func Complex(v reflect.Value) (any, bool) {
	switch v.Kind() {
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		return []float64{real(c), imag(c)}, true
	default:
		return nil, false
	}
}
