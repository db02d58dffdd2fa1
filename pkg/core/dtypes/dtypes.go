// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

// Package dtypes includes the DType enum for all data types supported by the
// aggregation engine.
//
// The tag set is closed: the reduction wire protocol only ever carries these
// seven element encodings, and the dispatch layer treats any other value as a
// protocol error.
//
// It includes converters to/from Go native types and some constraint interfaces
// to be used with generics (Supported, Number, GoFloat).
package dtypes

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/x448/float16"
)

// DType is an enum representing the element type of a buffer.
type DType int32

const (
	// InvalidDType is the zero value, to serve as default. It is not a valid tag.
	InvalidDType DType = iota

	// Float16 is the IEEE 754 binary16 half-precision encoding.
	// It has no native arithmetic in Go, so it is stored as float16.Float16 and
	// converted to float32 around any arithmetic.
	Float16

	// Float32 is the IEEE 754 binary32 single-precision type.
	Float32

	// Float64 is the IEEE 754 binary64 double-precision type.
	Float64

	// Int8 is a signed 8-bit integer.
	Int8

	// Uint8 is an unsigned 8-bit integer.
	Uint8

	// Int32 is a signed 32-bit integer.
	Int32

	// Int64 is a signed 64-bit integer.
	Int64
)

// MapOfNames to their dtypes. It includes the short aliases used by the wire
// protocol. It is also later initialized to include the lower-case version of
// the names.
var MapOfNames = map[string]DType{
	"InvalidDType": InvalidDType,
	"Float16":      Float16,
	"F16":          Float16,
	"Float32":      Float32,
	"F32":          Float32,
	"Float64":      Float64,
	"F64":          Float64,
	"Int8":         Int8,
	"S8":           Int8,
	"Uint8":        Uint8,
	"U8":           Uint8,
	"Int32":        Int32,
	"S32":          Int32,
	"Int64":        Int64,
	"S64":          Int64,
}

func init() {
	// Add a mapping to the lower-case version of the names.
	keys := make([]string, 0, len(MapOfNames))
	for key := range MapOfNames {
		keys = append(keys, key)
	}
	for _, key := range keys {
		lowerKey := strings.ToLower(key)
		if lowerKey == key {
			continue
		}
		if _, found := MapOfNames[lowerKey]; found {
			continue
		}
		MapOfNames[lowerKey] = MapOfNames[key]
	}
}

// String implements fmt.Stringer.
func (dtype DType) String() string {
	switch dtype {
	case Float16:
		return "Float16"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Int8:
		return "Int8"
	case Uint8:
		return "Uint8"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case InvalidDType:
		return "InvalidDType"
	}
	return "DType(INVALID)"
}

// Size returns the number of bytes of one element of the given DType.
// It panics on an invalid tag, since that indicates a protocol error and there
// is no valid recovery.
func (dtype DType) Size() int {
	switch dtype {
	case Float16:
		return 2
	case Float32:
		return 4
	case Float64:
		return 8
	case Int8, Uint8:
		return 1
	case Int32:
		return 4
	case Int64:
		return 8
	}
	exceptions.Panicf("unknown dtype %q (%d) in DType.Size", dtype, int32(dtype))
	panic(nil) // Never reached.
}

// Bits returns the number of bits of one element of the given DType.
func (dtype DType) Bits() int {
	return dtype.Size() * 8
}

// IsFloat returns whether dtype is one of the floating-point tags.
func (dtype DType) IsFloat() bool {
	return dtype == Float16 || dtype == Float32 || dtype == Float64
}

// IsInt returns whether dtype is one of the integer tags.
func (dtype DType) IsInt() bool {
	return dtype == Int8 || dtype == Uint8 || dtype == Int32 || dtype == Int64
}

// IsSupported returns whether dtype is a member of the closed tag set.
func (dtype DType) IsSupported() bool {
	return dtype.IsFloat() || dtype.IsInt()
}

// FromGenericsType returns the DType enum for the given element type.
// It returns InvalidDType for types outside the closed set.
func FromGenericsType[T Supported]() DType {
	var t T
	switch (any(t)).(type) {
	case float16.Float16:
		return Float16
	case float32:
		return Float32
	case float64:
		return Float64
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int32:
		return Int32
	case int64:
		return Int64
	}
	return InvalidDType
}

// Supported lists the Go types the engine knows how to aggregate.
// Used as traits for generics.
//
// Float16 is represented by float16.Float16, which has no native arithmetic:
// kernels convert it to float32 around any computation.
type Supported interface {
	float16.Float16 | float32 | float64 | int8 | uint8 | int32 | int64
}

// Number represents the Go native numeric types corresponding to supported
// DTypes. Used as a generics constraint.
//
// It doesn't include float16.Float16 because it is not a native number type.
type Number interface {
	float32 | float64 | int8 | uint8 | int32 | int64
}

// GoFloat represents the continuous Go numeric types supported by the engine.
type GoFloat interface {
	float32 | float64
}
