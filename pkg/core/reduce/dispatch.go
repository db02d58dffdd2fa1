// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

package reduce

import (
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"

	"github.com/hamidralmasi/tensorreduce/pkg/core/dtypes"
)

// The dispatch layer resolves the runtime DType tag to a concrete element type
// and forwards to the matching monomorphized kernel over a reinterpretation of
// the untyped buffers.
//
// An unrecognized tag fails fatally (exceptions.Panicf): it signals a
// protocol mismatch between caller and engine, not a runtime condition to
// recover from. Shape and length violations, by contrast, are validated up
// front and returned as invalid-argument errors instead of corrupting memory.

// checkPair validates the preconditions shared by the elementwise operations:
// dst's byte length must be a whole number of elements and src must cover it.
func checkPair(op string, dst, src []byte, dtype dtypes.DType) error {
	if dtype.IsSupported() && len(dst)%dtype.Size() != 0 {
		return errors.Errorf("reduce.%s: destination length %d is not a multiple of the %s element width %d",
			op, len(dst), dtype, dtype.Size())
	}
	if len(src) < len(dst) {
		return errors.Errorf("reduce.%s: source length %d shorter than destination length %d",
			op, len(src), len(dst))
	}
	return nil
}

// checkWorkerMatrix validates the preconditions of the worker-matrix
// aggregators: src must hold numWorkers contiguous contributions of len(dst)
// bytes each.
func checkWorkerMatrix(op string, dst, src []byte, dtype dtypes.DType, numWorkers int) error {
	if numWorkers < 1 {
		return errors.Errorf("reduce.%s: numWorkers must be >= 1, got %d", op, numWorkers)
	}
	if dtype.IsSupported() && len(dst)%dtype.Size() != 0 {
		return errors.Errorf("reduce.%s: destination length %d is not a multiple of the %s element width %d",
			op, len(dst), dtype, dtype.Size())
	}
	if len(src) < numWorkers*len(dst) {
		return errors.Errorf("reduce.%s: source length %d shorter than %d workers * %d bytes",
			op, len(src), numWorkers, len(dst))
	}
	return nil
}

// checkNoAlias rejects a destination that shares memory with a source buffer.
func checkNoAlias(op string, dst, src1, src2 []byte) error {
	if buffersOverlap(dst, src1) || buffersOverlap(dst, src2) {
		return errors.Errorf("reduce.%s: destination must not alias either source", op)
	}
	return nil
}

// Copy copies len(dst) bytes from src into dst, in parallel chunks. The
// destination is byte-identical to the source afterwards, whatever the element
// type.
func (r *Reducer) Copy(dst, src []byte) error {
	if len(src) < len(dst) {
		return errors.Errorf("reduce.Copy: source length %d shorter than destination length %d", len(src), len(dst))
	}
	r.copyBytes(dst, src)
	return nil
}

// Sum accumulates src into dst elementwise: dst[i] += src[i].
func (r *Reducer) Sum(dst, src []byte, dtype dtypes.DType) error {
	if err := checkPair("Sum", dst, src, dtype); err != nil {
		return err
	}
	switch dtype {
	case dtypes.Float32:
		sumSlice(r, bufferOf[float32](dst), bufferOf[float32](src))
	case dtypes.Float64:
		sumSlice(r, bufferOf[float64](dst), bufferOf[float64](src))
	case dtypes.Float16:
		r.sumFloat16(bufferOf[float16.Float16](dst), bufferOf[float16.Float16](src))
	case dtypes.Uint8:
		sumSlice(r, bufferOf[uint8](dst), bufferOf[uint8](src))
	case dtypes.Int32:
		sumSlice(r, bufferOf[int32](dst), bufferOf[int32](src))
	case dtypes.Int8:
		sumSlice(r, bufferOf[int8](dst), bufferOf[int8](src))
	case dtypes.Int64:
		sumSlice(r, bufferOf[int64](dst), bufferOf[int64](src))
	default:
		exceptions.Panicf("reduce.Sum: unsupported data type: %s", dtype)
	}
	return nil
}

// SumScaled accumulates a scaled source into dst: dst[i] += alpha*src[i].
// alpha is a float32 whatever the element type; for integer element types the
// update is computed in float32 and truncated (not rounded) on the store.
func (r *Reducer) SumScaled(dst, src []byte, dtype dtypes.DType, alpha float32) error {
	if err := checkPair("SumScaled", dst, src, dtype); err != nil {
		return err
	}
	switch dtype {
	case dtypes.Float32:
		sumScaledFloat(r, bufferOf[float32](dst), bufferOf[float32](src), alpha)
	case dtypes.Float64:
		sumScaledFloat(r, bufferOf[float64](dst), bufferOf[float64](src), alpha)
	case dtypes.Float16:
		r.sumScaledFloat16(bufferOf[float16.Float16](dst), bufferOf[float16.Float16](src), alpha)
	case dtypes.Uint8:
		sumScaledInt(r, bufferOf[uint8](dst), bufferOf[uint8](src), alpha)
	case dtypes.Int32:
		sumScaledInt(r, bufferOf[int32](dst), bufferOf[int32](src), alpha)
	case dtypes.Int8:
		sumScaledInt(r, bufferOf[int8](dst), bufferOf[int8](src), alpha)
	case dtypes.Int64:
		sumScaledInt(r, bufferOf[int64](dst), bufferOf[int64](src), alpha)
	default:
		exceptions.Panicf("reduce.SumScaled: unsupported data type: %s", dtype)
	}
	return nil
}

// Combine writes src1+src2 elementwise into dst. dst must alias neither
// source.
func (r *Reducer) Combine(dst, src1, src2 []byte, dtype dtypes.DType) error {
	if err := checkPair("Combine", dst, src1, dtype); err != nil {
		return err
	}
	if err := checkPair("Combine", dst, src2, dtype); err != nil {
		return err
	}
	if err := checkNoAlias("Combine", dst, src1, src2); err != nil {
		return err
	}
	switch dtype {
	case dtypes.Float32:
		combineSlice(r, bufferOf[float32](dst), bufferOf[float32](src1), bufferOf[float32](src2))
	case dtypes.Float64:
		combineSlice(r, bufferOf[float64](dst), bufferOf[float64](src1), bufferOf[float64](src2))
	case dtypes.Float16:
		r.combineFloat16(bufferOf[float16.Float16](dst), bufferOf[float16.Float16](src1), bufferOf[float16.Float16](src2))
	case dtypes.Uint8:
		combineSlice(r, bufferOf[uint8](dst), bufferOf[uint8](src1), bufferOf[uint8](src2))
	case dtypes.Int32:
		combineSlice(r, bufferOf[int32](dst), bufferOf[int32](src1), bufferOf[int32](src2))
	case dtypes.Int8:
		combineSlice(r, bufferOf[int8](dst), bufferOf[int8](src1), bufferOf[int8](src2))
	case dtypes.Int64:
		combineSlice(r, bufferOf[int64](dst), bufferOf[int64](src1), bufferOf[int64](src2))
	default:
		exceptions.Panicf("reduce.Combine: unsupported data type: %s", dtype)
	}
	return nil
}

// CombineScaled writes src1+alpha*src2 elementwise into dst. dst must alias
// neither source. Integer element types follow the SumScaled truncation
// semantics.
func (r *Reducer) CombineScaled(dst, src1, src2 []byte, dtype dtypes.DType, alpha float32) error {
	if err := checkPair("CombineScaled", dst, src1, dtype); err != nil {
		return err
	}
	if err := checkPair("CombineScaled", dst, src2, dtype); err != nil {
		return err
	}
	if err := checkNoAlias("CombineScaled", dst, src1, src2); err != nil {
		return err
	}
	switch dtype {
	case dtypes.Float32:
		combineScaledFloat(r, bufferOf[float32](dst), bufferOf[float32](src1), bufferOf[float32](src2), alpha)
	case dtypes.Float64:
		combineScaledFloat(r, bufferOf[float64](dst), bufferOf[float64](src1), bufferOf[float64](src2), alpha)
	case dtypes.Float16:
		r.combineScaledFloat16(bufferOf[float16.Float16](dst), bufferOf[float16.Float16](src1), bufferOf[float16.Float16](src2), alpha)
	case dtypes.Uint8:
		combineScaledInt(r, bufferOf[uint8](dst), bufferOf[uint8](src1), bufferOf[uint8](src2), alpha)
	case dtypes.Int32:
		combineScaledInt(r, bufferOf[int32](dst), bufferOf[int32](src1), bufferOf[int32](src2), alpha)
	case dtypes.Int8:
		combineScaledInt(r, bufferOf[int8](dst), bufferOf[int8](src1), bufferOf[int8](src2), alpha)
	case dtypes.Int64:
		combineScaledInt(r, bufferOf[int64](dst), bufferOf[int64](src1), bufferOf[int64](src2), alpha)
	default:
		exceptions.Panicf("reduce.CombineScaled: unsupported data type: %s", dtype)
	}
	return nil
}

// SumSerial reduces a worker-major matrix into dst single-threaded:
// dst[i] = sum_j src[j,i], accumulated in float32 whatever the element type.
// src holds numWorkers contiguous contributions of len(dst) bytes each.
//
// Float16 is not supported by the worker-matrix aggregators.
func (r *Reducer) SumSerial(dst, src []byte, dtype dtypes.DType, numWorkers int) error {
	if err := checkWorkerMatrix("SumSerial", dst, src, dtype, numWorkers); err != nil {
		return err
	}
	if klog.V(2).Enabled() {
		klog.Infof("reduce.SumSerial: %s across %d workers", humanize.IBytes(uint64(len(dst))), numWorkers)
	}
	switch dtype {
	case dtypes.Float32:
		sumSerialSlice(bufferOf[float32](dst), bufferOf[float32](src), numWorkers)
	case dtypes.Float64:
		sumSerialSlice(bufferOf[float64](dst), bufferOf[float64](src), numWorkers)
	case dtypes.Uint8:
		sumSerialSlice(bufferOf[uint8](dst), bufferOf[uint8](src), numWorkers)
	case dtypes.Int32:
		sumSerialSlice(bufferOf[int32](dst), bufferOf[int32](src), numWorkers)
	case dtypes.Int8:
		sumSerialSlice(bufferOf[int8](dst), bufferOf[int8](src), numWorkers)
	case dtypes.Int64:
		sumSerialSlice(bufferOf[int64](dst), bufferOf[int64](src), numWorkers)
	default:
		exceptions.Panicf("reduce.SumSerial: unsupported data type: %s", dtype)
	}
	return nil
}

// Median writes dst[i] = numWorkers * median_j(src[j,i]) for a worker-major
// matrix src. Even worker counts take the real mean of the two central order
// statistics; the numWorkers scale factor normalizes the median to the
// magnitude of a plain sum.
//
// Float16 is not supported by the worker-matrix aggregators.
func (r *Reducer) Median(dst, src []byte, dtype dtypes.DType, numWorkers int) error {
	if err := checkWorkerMatrix("Median", dst, src, dtype, numWorkers); err != nil {
		return err
	}
	if klog.V(2).Enabled() {
		klog.Infof("reduce.Median: %s across %d workers", humanize.IBytes(uint64(len(dst))), numWorkers)
	}
	switch dtype {
	case dtypes.Float32:
		medianSlice(bufferOf[float32](dst), bufferOf[float32](src), numWorkers)
	case dtypes.Float64:
		medianSlice(bufferOf[float64](dst), bufferOf[float64](src), numWorkers)
	case dtypes.Uint8:
		medianSlice(bufferOf[uint8](dst), bufferOf[uint8](src), numWorkers)
	case dtypes.Int32:
		medianSlice(bufferOf[int32](dst), bufferOf[int32](src), numWorkers)
	case dtypes.Int8:
		medianSlice(bufferOf[int8](dst), bufferOf[int8](src), numWorkers)
	case dtypes.Int64:
		medianSlice(bufferOf[int64](dst), bufferOf[int64](src), numWorkers)
	default:
		exceptions.Panicf("reduce.Median: unsupported data type: %s", dtype)
	}
	return nil
}

// RobustHybrid writes the Byzantine-robust blend
// dst[i] = (1-alpha)*sum_j(src[j,i]) + alpha*numWorkers*median_j(src[j,i])
// for a worker-major matrix src. alpha in [0,1] controls trust in the robust
// statistic: 0 degenerates to SumSerial, 1 to Median.
//
// With simulateByzantine set, one worker index is drawn uniformly at random
// for the call and that worker's contribution at every element is replaced by
// an independent N(0, sigma) sample before the blend, modeling a single
// adversarial participant. Use SetRandSource for deterministic draws in tests.
//
// Float16 is not supported by the worker-matrix aggregators.
func (r *Reducer) RobustHybrid(dst, src []byte, dtype dtypes.DType, numWorkers int, alpha, sigma float32, simulateByzantine bool) error {
	if err := checkWorkerMatrix("RobustHybrid", dst, src, dtype, numWorkers); err != nil {
		return err
	}
	if alpha < 0 || alpha > 1 {
		return errors.Errorf("reduce.RobustHybrid: alpha must be in [0,1], got %v", alpha)
	}
	if klog.V(2).Enabled() {
		klog.Infof("reduce.RobustHybrid: %s across %d workers, alpha=%v sigma=%v byzantine=%v",
			humanize.IBytes(uint64(len(dst))), numWorkers, alpha, sigma, simulateByzantine)
	}
	byzantineIdx := -1
	if simulateByzantine {
		// The shared random source is the only cross-call mutable state; hold
		// its lock for the duration of the (single-threaded) kernel.
		r.rngMu.Lock()
		defer r.rngMu.Unlock()
		byzantineIdx = r.rng.Intn(numWorkers)
	}
	switch dtype {
	case dtypes.Float32:
		hybridSlice(bufferOf[float32](dst), bufferOf[float32](src), numWorkers, alpha, sigma, byzantineIdx, r.rng)
	case dtypes.Float64:
		hybridSlice(bufferOf[float64](dst), bufferOf[float64](src), numWorkers, alpha, sigma, byzantineIdx, r.rng)
	case dtypes.Uint8:
		hybridSlice(bufferOf[uint8](dst), bufferOf[uint8](src), numWorkers, alpha, sigma, byzantineIdx, r.rng)
	case dtypes.Int32:
		hybridSlice(bufferOf[int32](dst), bufferOf[int32](src), numWorkers, alpha, sigma, byzantineIdx, r.rng)
	case dtypes.Int8:
		hybridSlice(bufferOf[int8](dst), bufferOf[int8](src), numWorkers, alpha, sigma, byzantineIdx, r.rng)
	case dtypes.Int64:
		hybridSlice(bufferOf[int64](dst), bufferOf[int64](src), numWorkers, alpha, sigma, byzantineIdx, r.rng)
	default:
		exceptions.Panicf("reduce.RobustHybrid: unsupported data type: %s", dtype)
	}
	return nil
}
