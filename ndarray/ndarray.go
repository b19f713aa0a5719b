// Copyright 2025 The modelstore Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ndarray provides the typed numeric arrays stored in model payloads.
//
// Arrays carry an explicit element type and shape and keep their values in a
// little-endian byte buffer, so a saved array restores bit for bit.
//
//	a, err := ndarray.FromSlice(ndarray.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
//	v, err := ndarray.Values[float32](a)
package ndarray

import "github.com/JIMMY-KSU/modelstore/internal/ndarray"

// Array is a typed n-dimensional array.
type Array = ndarray.Array

// Shape lists array dimensions.
type Shape = ndarray.Shape

// DataType is the element type of an array.
type DataType = ndarray.DataType

// Element constrains the Go types an array can hold.
type Element = ndarray.Element

// Supported element types.
const (
	Float32 DataType = ndarray.Float32
	Float64 DataType = ndarray.Float64
	Int32   DataType = ndarray.Int32
	Int64   DataType = ndarray.Int64
	Uint8   DataType = ndarray.Uint8
	Bool    DataType = ndarray.Bool
)

// New creates a zero-filled array.
func New(shape Shape, dtype DataType) (*Array, error) {
	return ndarray.New(shape, dtype)
}

// FromBytes wraps little-endian element bytes.
func FromBytes(shape Shape, dtype DataType, data []byte) (*Array, error) {
	return ndarray.FromBytes(shape, dtype, data)
}

// FromSlice copies values into an array of the given shape.
func FromSlice[T Element](shape Shape, values []T) (*Array, error) {
	return ndarray.FromSlice(shape, values)
}

// Vector creates a one-dimensional array.
func Vector[T Element](values []T) *Array {
	return ndarray.Vector(values)
}

// Values copies the elements out as a []T. T must match the array's element type.
func Values[T Element](a *Array) ([]T, error) {
	return ndarray.Values[T](a)
}

// ParseDataType parses a dtype name such as "float32".
func ParseDataType(s string) (DataType, error) {
	return ndarray.ParseDataType(s)
}
