// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

// Package fp16 implements the bit-level conversion between the IEEE 754
// binary16 (half-precision) encoding and float32.
//
// The conversion pair Decode/Encode is pure and independent of any batching, so
// the scalar and the batched (accelerated) code paths of the engine can be
// checked for equivalence in isolation. Encode rounds to nearest-even, matching
// hardware float conversion instructions and the x448/float16 library used by
// the scalar path.
package fp16

import "math"

const (
	signMask     = 0x8000
	exponentMask = 0x7C00
	mantissaMask = 0x03FF
	exponentBias = 15
	mantissaBits = 10
)

// BatchSize is the number of elements the batched conversion helpers process
// per call.
const BatchSize = 8

// accelerated gates the batched kernels. It defaults to the platform detection
// and can be overridden (mostly by tests) with SetAccelerated.
var accelerated = detectBatchKernels()

// Accelerated reports whether the batched conversion kernels should be used.
func Accelerated() bool {
	return accelerated
}

// SetAccelerated overrides the batched-kernel gate and returns the previous
// setting. It is not safe to call concurrently with running kernels; it is
// meant for tests and for process setup.
func SetAccelerated(enabled bool) bool {
	prev := accelerated
	accelerated = enabled
	return prev
}

// Decode converts half-precision bits to the exactly equal float32 value.
//
// Every binary16 value is representable in binary32, so Decode is exact:
// subnormals are normalized, infinities map to infinities and NaNs map to
// quiet NaNs with the payload preserved.
func Decode(bits uint16) float32 {
	sign := uint32(bits&signMask) << 16
	exp := (bits & exponentMask) >> mantissaBits
	man := uint32(bits & mantissaMask)
	switch exp {
	case 0:
		if man == 0 {
			return math.Float32frombits(sign) // Signed zero.
		}
		// Subnormal: normalize until the implicit leading bit surfaces, then
		// drop it and rebias the exponent by the shift count.
		shift := uint32(0)
		for man&0x400 == 0 {
			man <<= 1
			shift++
		}
		man &= mantissaMask
		return math.Float32frombits(sign | (113-shift)<<23 | man<<13)
	case 0x1F:
		if man == 0 {
			return math.Float32frombits(sign | 0x7F800000) // Infinity.
		}
		return math.Float32frombits(sign | 0x7FC00000 | man<<13) // Quiet NaN.
	}
	return math.Float32frombits(sign | (uint32(exp)+112)<<23 | man<<13)
}

// Encode converts a float32 value to half-precision bits, rounding to
// nearest-even. Values beyond the binary16 range become infinities, values
// below half the smallest subnormal become signed zeros.
func Encode(f float32) uint16 {
	b := math.Float32bits(f)
	sign := uint16(b>>16) & signMask
	exp := int32(b>>23) & 0xFF
	man := b & 0x7FFFFF
	if exp == 0xFF {
		if man == 0 {
			return sign | exponentMask // Infinity.
		}
		nan := uint16(man >> 13)
		if nan == 0 {
			nan = 1 // Keep the NaN from collapsing into an infinity.
		}
		return sign | exponentMask | 0x0200 | nan
	}
	e := exp - 127 + exponentBias
	if e >= 0x1F {
		return sign | exponentMask // Overflow to infinity.
	}
	if e <= 0 {
		if e < -10 {
			return sign // Underflow to signed zero.
		}
		// Subnormal result: shift the implicit leading bit into the mantissa,
		// rounding to nearest-even.
		man |= 0x800000
		shift := uint32(14 - e)
		half := man >> shift
		rem := man & (1<<shift - 1)
		tie := uint32(1) << (shift - 1)
		if rem > tie || (rem == tie && half&1 == 1) {
			half++
		}
		return sign | uint16(half)
	}
	// Normal result: drop 13 mantissa bits, rounding to nearest-even. A
	// mantissa carry propagates into the exponent field, which rounds up into
	// the next binade, or to infinity at the top of the range.
	half := uint32(e)<<10 | man>>13
	rem := man & 0x1FFF
	if rem > 0x1000 || (rem == 0x1000 && half&1 == 1) {
		half++
	}
	return sign | uint16(half)
}

// DecodeBatch8 converts 8 half-precision elements at once.
//
// The unrolled fixed-size form keeps the loop body free of bounds checks and
// lets the compiler vectorize the conversions.
func DecodeBatch8(dst *[8]float32, src *[8]uint16) {
	dst[0] = Decode(src[0])
	dst[1] = Decode(src[1])
	dst[2] = Decode(src[2])
	dst[3] = Decode(src[3])
	dst[4] = Decode(src[4])
	dst[5] = Decode(src[5])
	dst[6] = Decode(src[6])
	dst[7] = Decode(src[7])
}

// EncodeBatch8 converts 8 float32 elements at once, rounding each to
// nearest-even.
func EncodeBatch8(dst *[8]uint16, src *[8]float32) {
	dst[0] = Encode(src[0])
	dst[1] = Encode(src[1])
	dst[2] = Encode(src[2])
	dst[3] = Encode(src[3])
	dst[4] = Encode(src[4])
	dst[5] = Encode(src[5])
	dst[6] = Encode(src[6])
	dst[7] = Encode(src[7])
}
