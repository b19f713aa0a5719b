// Package ndarray provides the typed numeric arrays stored inside model payloads.
//
// An Array is a dtype-tagged, row-major, little-endian byte buffer with an explicit shape.
// Keeping the bytes in their on-disk layout means encoding and decoding never pass values
// through a textual form, so float values round-trip bit for bit.
package ndarray

import (
	"fmt"
	"math"
)

// Element is a constraint for the Go types an Array can hold.
type Element interface {
	float32 | float64 | int32 | int64 | uint8 | bool
}

// DataType is the runtime element type of an Array.
type DataType int

// Supported element types.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
	Bool
)

// Size returns the byte size of one element.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Uint8, Bool:
		return 1
	default:
		return 0
	}
}

// String returns the canonical name used in payload headers.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// ByteSize returns the buffer size of an array of this type with the given shape.
// It fails when the shape is invalid or the size does not fit in an int.
func (dt DataType) ByteSize(shape Shape) (int, error) {
	size := dt.Size()
	if size == 0 {
		return 0, fmt.Errorf("unsupported dtype %d", dt)
	}
	if err := shape.Validate(); err != nil {
		return 0, err
	}
	n := shape.NumElements()
	if n > math.MaxInt/size {
		return 0, fmt.Errorf("%s%s exceeds the maximum array size", dt, shape)
	}
	return n * size, nil
}

// Valid reports whether dt is one of the supported element types.
func (dt DataType) Valid() bool {
	return dt.Size() > 0
}

// ParseDataType converts a canonical dtype name back to a DataType.
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "uint8":
		return Uint8, nil
	case "bool":
		return Bool, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q", s)
	}
}

// dataTypeOf infers the DataType of a generic element type.
func dataTypeOf[T Element]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case bool:
		return Bool
	default:
		panic(fmt.Sprintf("ndarray: unsupported element type %T", zero))
	}
}
