package snapshot

import (
	"fmt"
	"slices"

	"golang.org/x/exp/constraints"
)

// Number is the element constraint of Array.
type Number interface {
	constraints.Integer | constraints.Float
}

// Array is a minimal dense n-dimensional numeric array implementing NDArray.
type Array[E Number] struct {
	shape []int
	data  []E
}

// NewArray wraps data with the given shape. Without a shape the array is
// one-dimensional. The product of the shape must equal len(data).
func NewArray[E Number](data []E, shape ...int) (Array[E], error) {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	if n := product(shape); n != len(data) {
		return Array[E]{}, fmt.Errorf("shape %v does not match %d elements", shape, len(data))
	}
	return Array[E]{shape: slices.Clone(shape), data: slices.Clone(data)}, nil
}

// Shape returns a copy of the array dimensions.
func (a Array[E]) Shape() []int { return slices.Clone(a.shape) }

// Flat returns a copy of the elements in row-major order.
func (a Array[E]) Flat() any { return slices.Clone(a.data) }

// Len returns the number of elements.
func (a Array[E]) Len() int { return len(a.data) }
