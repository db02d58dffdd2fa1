// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

package reduce

import (
	"github.com/x448/float16"

	"github.com/hamidralmasi/tensorreduce/internal/fp16"
)

// Float16 has no native arithmetic unit: every operation decodes the operands
// to float32, computes in float32, and encodes the result back to
// half-precision (round-to-nearest-even on the narrowing).
//
// Two code paths exist. When fp16.Accelerated() reports the batched conversion
// kernels are available, whole batches of fp16.BatchSize elements are
// unpacked, combined and repacked at once; the batch remainder, and everything
// when the batched kernels are unavailable, goes through the per-element
// scalar conversion. The two paths produce bitwise-identical results.

// binaryFloat16 applies opFn elementwise over the float32-decoded operands and
// stores the half-precision encoded results into dst:
// dst[i] = encode(opFn(decode(src1[i]), decode(src2[i]))).
//
// src2 (or src1) may alias dst for in-place accumulation: both operands of an
// element are read before its result is stored.
func (r *Reducer) binaryFloat16(dst, src1, src2 []float16.Float16, opFn func(a, b float32) float32) {
	src1 = src1[:len(dst)]
	src2 = src2[:len(dst)]
	r.parallelFor(len(dst), func(start, end int) {
		i := start
		if fp16.Accelerated() {
			var ha, hb [fp16.BatchSize]uint16
			var a, b, out [fp16.BatchSize]float32
			for ; i+fp16.BatchSize <= end; i += fp16.BatchSize {
				packHalfBatch(&ha, src1[i:])
				packHalfBatch(&hb, src2[i:])
				fp16.DecodeBatch8(&a, &ha)
				fp16.DecodeBatch8(&b, &hb)
				for k := range out {
					out[k] = opFn(a[k], b[k])
				}
				fp16.EncodeBatch8(&ha, &out)
				unpackHalfBatch(dst[i:], &ha)
			}
		}
		for ; i < end; i++ {
			dst[i] = float16.Fromfloat32(opFn(src1[i].Float32(), src2[i].Float32()))
		}
	})
}

// sumFloat16 accumulates src into dst: dst[i] += src[i].
func (r *Reducer) sumFloat16(dst, src []float16.Float16) {
	r.binaryFloat16(dst, src, dst, func(in, inout float32) float32 {
		return inout + in
	})
}

// sumScaledFloat16 accumulates alpha*src into dst: dst[i] += alpha*src[i].
func (r *Reducer) sumScaledFloat16(dst, src []float16.Float16, alpha float32) {
	r.binaryFloat16(dst, src, dst, func(in, inout float32) float32 {
		return inout + in*alpha
	})
}

// combineFloat16 writes src1+src2 into dst.
func (r *Reducer) combineFloat16(dst, src1, src2 []float16.Float16) {
	r.binaryFloat16(dst, src1, src2, func(a, b float32) float32 {
		return a + b
	})
}

// combineScaledFloat16 writes src1+alpha*src2 into dst.
func (r *Reducer) combineScaledFloat16(dst, src1, src2 []float16.Float16, alpha float32) {
	r.binaryFloat16(dst, src1, src2, func(a, b float32) float32 {
		return a + b*alpha
	})
}

func packHalfBatch(dst *[fp16.BatchSize]uint16, src []float16.Float16) {
	for k := range dst {
		dst[k] = uint16(src[k])
	}
}

func unpackHalfBatch(dst []float16.Float16, src *[fp16.BatchSize]uint16) {
	for k := range src {
		dst[k] = float16.Float16(src[k])
	}
}
