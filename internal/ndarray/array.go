package ndarray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Array is an n-dimensional array stored as a row-major, little-endian byte buffer.
//
// Arrays are treated as values: constructors copy their input and Bytes returns a view
// that callers must not modify.
type Array struct {
	dtype DataType
	shape Shape
	data  []byte
}

// New creates a zero-filled array with the given shape and element type.
func New(shape Shape, dtype DataType) (*Array, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("unsupported dtype %d", dtype)
	}
	size, err := dtype.ByteSize(shape)
	if err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Array{
		dtype: dtype,
		shape: shape.Clone(),
		data:  make([]byte, size),
	}, nil
}

// FromBytes creates an array from little-endian element bytes.
// The length of data must equal shape.NumElements() * dtype.Size().
func FromBytes(shape Shape, dtype DataType, data []byte) (*Array, error) {
	a, err := New(shape, dtype)
	if err != nil {
		return nil, err
	}
	if len(data) != len(a.data) {
		return nil, fmt.Errorf("data length %d does not match %s%s (%d bytes)",
			len(data), dtype, shape, len(a.data))
	}
	copy(a.data, data)
	return a, nil
}

// FromSlice creates an array of the given shape holding a copy of values.
func FromSlice[T Element](shape Shape, values []T) (*Array, error) {
	a, err := New(shape, dataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	if len(values) != shape.NumElements() {
		return nil, fmt.Errorf("got %d values for shape %s", len(values), shape)
	}
	putValues(a.data, values)
	return a, nil
}

// Vector creates a one-dimensional array holding a copy of values.
func Vector[T Element](values []T) *Array {
	a, err := FromSlice(Shape{len(values)}, values)
	if err != nil {
		// A vector shape always matches its values.
		panic(err)
	}
	return a
}

// Values returns a copy of the array elements as []T.
// It fails if T does not match the array's dtype.
func Values[T Element](a *Array) ([]T, error) {
	want := dataTypeOf[T]()
	if a.dtype != want {
		return nil, fmt.Errorf("array dtype is %s, not %s", a.dtype, want)
	}
	out := make([]T, a.NumElements())
	getValues(a.data, out)
	return out, nil
}

// DType returns the element type.
func (a *Array) DType() DataType {
	return a.dtype
}

// Shape returns a copy of the array's shape.
func (a *Array) Shape() Shape {
	return a.shape.Clone()
}

// NumElements returns the total number of elements.
func (a *Array) NumElements() int {
	return a.shape.NumElements()
}

// ByteSize returns the size of the element buffer in bytes.
func (a *Array) ByteSize() int {
	return len(a.data)
}

// Bytes returns the little-endian element buffer.
// WARNING: this is the backing storage; do not modify it.
func (a *Array) Bytes() []byte {
	return a.data
}

// Clone returns a deep copy of the array.
func (a *Array) Clone() *Array {
	data := make([]byte, len(a.data))
	copy(data, a.data)
	return &Array{dtype: a.dtype, shape: a.shape.Clone(), data: data}
}

// Equal reports whether both arrays have the same dtype, shape and element bits.
// NaN elements compare equal when their bit patterns match.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.dtype == b.dtype && a.shape.Equal(b.shape) && bytes.Equal(a.data, b.data)
}

// String summarizes the array without printing its elements.
func (a *Array) String() string {
	return fmt.Sprintf("array(dtype=%s, shape=%s)", a.dtype, a.shape)
}

func putValues[T Element](dst []byte, values []T) {
	le := binary.LittleEndian
	for i, v := range values {
		switch x := any(v).(type) {
		case float32:
			le.PutUint32(dst[i*4:], math.Float32bits(x))
		case float64:
			le.PutUint64(dst[i*8:], math.Float64bits(x))
		case int32:
			le.PutUint32(dst[i*4:], uint32(x)) //nolint:gosec // G115: bit reinterpretation
		case int64:
			le.PutUint64(dst[i*8:], uint64(x)) //nolint:gosec // G115: bit reinterpretation
		case uint8:
			dst[i] = x
		case bool:
			if x {
				dst[i] = 1
			}
		}
	}
}

func getValues[T Element](src []byte, out []T) {
	le := binary.LittleEndian
	for i := range out {
		var v any
		switch any(out[i]).(type) {
		case float32:
			v = math.Float32frombits(le.Uint32(src[i*4:]))
		case float64:
			v = math.Float64frombits(le.Uint64(src[i*8:]))
		case int32:
			v = int32(le.Uint32(src[i*4:])) //nolint:gosec // G115: bit reinterpretation
		case int64:
			v = int64(le.Uint64(src[i*8:])) //nolint:gosec // G115: bit reinterpretation
		case uint8:
			v = src[i]
		case bool:
			v = src[i] != 0
		}
		out[i] = v.(T)
	}
}
