// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

package reduce

import (
	"math/rand"
	"slices"

	"github.com/hamidralmasi/tensorreduce/pkg/core/dtypes"
)

// Worker-matrix aggregators. The source buffer is a worker-major matrix:
// worker j's contribution to element i lives at src[j*n+i], where n is the
// element count of the destination. All three aggregators run single-threaded
// per call; output elements never share mutable state, so parallelizing across
// elements would be valid, but the per-element sort dominates and the callers
// invoke these on the latency-insensitive coordinator path.

// sumSerialSlice reduces the worker-major matrix into dst:
// dst[i] = sum_j src[j*n+i], accumulated in float32 whatever the element type,
// then narrowed to T on the store.
func sumSerialSlice[T dtypes.Number](dst, src []T, numWorkers int) {
	n := len(dst)
	for i := 0; i < n; i++ {
		var sum float32
		for j := 0; j < numWorkers; j++ {
			sum += float32(src[j*n+i])
		}
		dst[i] = T(sum)
	}
}

// medianOfSorted returns the median of a sorted, non-empty sequence. Even
// lengths take the real mean of the two central order statistics.
func medianOfSorted[T dtypes.Number](sorted []T) float64 {
	h := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (float64(sorted[h-1]) + float64(sorted[h])) / 2
	}
	return float64(sorted[h])
}

// medianSlice writes dst[i] = numWorkers * median_j(src[j*n+i]).
//
// The numWorkers scale factor keeps the median at the magnitude of a plain
// sum, so callers can average the result with the same divisor whichever
// aggregation rule they picked.
func medianSlice[T dtypes.Number](dst, src []T, numWorkers int) {
	n := len(dst)
	scratch := make([]T, numWorkers)
	for i := 0; i < n; i++ {
		for j := 0; j < numWorkers; j++ {
			scratch[j] = src[j*n+i]
		}
		slices.Sort(scratch)
		dst[i] = T(float64(numWorkers) * medianOfSorted(scratch))
	}
}

// hybridSlice writes the Byzantine-robust blend
// dst[i] = (1-alpha)*sum_j(src[j,i]) + alpha*numWorkers*median_j(src[j,i]).
//
// The sum term is accumulated in float32 so alpha=0 degenerates to exactly
// sumSerialSlice; the median term is computed as in medianSlice so alpha=1
// degenerates to exactly the scaled median.
//
// When byzantineIdx >= 0, that worker's contribution at every element is
// replaced with a fresh N(0, sigma) sample before sorting, modeling a single
// worker injecting unstructured noise. rng is only consulted in that case, and
// the caller holds the engine's rng lock for the duration of the call.
func hybridSlice[T dtypes.Number](dst, src []T, numWorkers int, alpha, sigma float32, byzantineIdx int, rng *rand.Rand) {
	n := len(dst)
	scratch := make([]T, numWorkers)
	for i := 0; i < n; i++ {
		for j := 0; j < numWorkers; j++ {
			if j == byzantineIdx {
				scratch[j] = T(rng.NormFloat64() * float64(sigma))
			} else {
				scratch[j] = src[j*n+i]
			}
		}
		slices.Sort(scratch)
		var sum float32
		for _, v := range scratch {
			sum += float32(v)
		}
		med := medianOfSorted(scratch)
		dst[i] = T(float64(1-alpha)*float64(sum) + float64(alpha)*float64(numWorkers)*med)
	}
}
