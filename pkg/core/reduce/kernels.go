// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

package reduce

import "github.com/hamidralmasi/tensorreduce/pkg/core/dtypes"

// Elementwise arithmetic kernels, generic over the native element types.
// Every element's update is independent of every other element's, so the
// kernels partition the element range across the worker pool with no
// cross-partition synchronization.
//
// The scaled kernels keep the reference narrowing semantics: alpha is a
// float32 whatever the element type, the scaled term for integer types is
// computed in float32, and the store back to T truncates toward zero rather
// than rounding. Callers scaling integer buffers by fractional alphas get
// truncation; this is compatibility-sensitive and deliberate.

// integerConstraints are the native integer element types.
type integerConstraints interface {
	int8 | uint8 | int32 | int64
}

// copyBytes copies len(dst) bytes from src in parallel chunks; any chunk
// remainder is byte-wise by construction. The result is byte-identical to the
// source.
func (r *Reducer) copyBytes(dst, src []byte) {
	src = src[:len(dst)]
	r.parallelFor(len(dst), func(start, end int) {
		copy(dst[start:end], src[start:end])
	})
}

// sumSlice accumulates src into dst elementwise: dst[i] += src[i].
func sumSlice[T dtypes.Number](r *Reducer, dst, src []T) {
	src = src[:len(dst)]
	r.parallelFor(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = dst[i] + src[i]
		}
	})
}

// sumScaledFloat accumulates alpha*src into dst for the native float types,
// with alpha widened to the element type.
func sumScaledFloat[T dtypes.GoFloat](r *Reducer, dst, src []T, alpha float32) {
	src = src[:len(dst)]
	a := T(alpha)
	r.parallelFor(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = dst[i] + a*src[i]
		}
	})
}

// sumScaledInt accumulates alpha*src into dst for the integer types: the
// update is computed in float32 and truncated back to T on the store.
func sumScaledInt[T integerConstraints](r *Reducer, dst, src []T, alpha float32) {
	src = src[:len(dst)]
	r.parallelFor(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = T(float32(dst[i]) + alpha*float32(src[i]))
		}
	})
}

// combineSlice writes src1+src2 elementwise into dst. dst must alias neither
// source.
func combineSlice[T dtypes.Number](r *Reducer, dst, src1, src2 []T) {
	src1 = src1[:len(dst)]
	src2 = src2[:len(dst)]
	r.parallelFor(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = src1[i] + src2[i]
		}
	})
}

// combineScaledFloat writes src1+alpha*src2 into dst for the native float
// types.
func combineScaledFloat[T dtypes.GoFloat](r *Reducer, dst, src1, src2 []T, alpha float32) {
	src1 = src1[:len(dst)]
	src2 = src2[:len(dst)]
	a := T(alpha)
	r.parallelFor(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = src1[i] + a*src2[i]
		}
	})
}

// combineScaledInt writes src1+alpha*src2 into dst for the integer types,
// computed in float32 and truncated back to T on the store.
func combineScaledInt[T integerConstraints](r *Reducer, dst, src1, src2 []T, alpha float32) {
	src1 = src1[:len(dst)]
	src2 = src2[:len(dst)]
	r.parallelFor(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = T(float32(src1[i]) + alpha*float32(src2[i]))
		}
	})
}
