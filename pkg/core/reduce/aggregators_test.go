// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

package reduce

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamidralmasi/tensorreduce/pkg/core/dtypes"
)

func TestSumSerial(t *testing.T) {
	r := New(nil, 4)

	// 3 workers, 2 elements each, worker-major.
	src := []float32{
		1, 10, // worker 0
		2, 20, // worker 1
		3, 30, // worker 2
	}
	dst := make([]float32, 2)
	require.NoError(t, r.SumSerial(bytesOf(dst), bytesOf(src), dtypes.Float32, 3))
	assert.Equal(t, []float32{6, 60}, dst)

	// Integer types accumulate in float32 and narrow on the store.
	srcI8 := []int8{40, 41, 42}
	dstI8 := make([]int8, 1)
	require.NoError(t, r.SumSerial(bytesOf(dstI8), bytesOf(srcI8), dtypes.Int8, 3))
	assert.Equal(t, []int8{123}, dstI8)
}

func TestMedian_OneWorkerIsIdentity(t *testing.T) {
	r := New(nil, 4)
	src := []float64{3.5, -1.25, 0, 1e12}
	dst := make([]float64, len(src))
	require.NoError(t, r.Median(bytesOf(dst), bytesOf(src), dtypes.Float64, 1))
	assert.Equal(t, src, dst)
}

func TestMedian_OddWorkerCount(t *testing.T) {
	r := New(nil, 4)
	// Per-element contributions [1,5,9]: median 5, scaled by 3 workers -> 15.
	src := []float32{
		1, 9,
		5, 1,
		9, 5,
	}
	dst := make([]float32, 2)
	require.NoError(t, r.Median(bytesOf(dst), bytesOf(src), dtypes.Float32, 3))
	assert.Equal(t, []float32{15, 15}, dst)
}

func TestMedian_EvenWorkerCount(t *testing.T) {
	r := New(nil, 4)
	// Contributions [1,2,3,4]: median (2+3)/2 = 2.5, scaled by 4 -> 10.
	src := []float32{1, 2, 3, 4}
	dst := make([]float32, 1)
	require.NoError(t, r.Median(bytesOf(dst), bytesOf(src), dtypes.Float32, 4))
	assert.Equal(t, []float32{10}, dst)

	// The tie-break is the real mean even for integer types.
	srcI32 := []int32{1, 2, 3, 4}
	dstI32 := make([]int32, 1)
	require.NoError(t, r.Median(bytesOf(dstI32), bytesOf(srcI32), dtypes.Int32, 4))
	assert.Equal(t, []int32{10}, dstI32)
}

func TestRobustHybrid_AlphaZeroMatchesSumSerial(t *testing.T) {
	r := New(nil, 4)
	rng := rand.New(rand.NewSource(21))
	const numWorkers, n = 5, 64

	// Small integer-valued floats keep the float32 accumulation exact, so the
	// two operations must agree bitwise.
	src := make([]float32, numWorkers*n)
	for i := range src {
		src[i] = float32(rng.Intn(201) - 100)
	}
	want := make([]float32, n)
	got := make([]float32, n)
	require.NoError(t, r.SumSerial(bytesOf(want), bytesOf(src), dtypes.Float32, numWorkers))
	require.NoError(t, r.RobustHybrid(bytesOf(got), bytesOf(src), dtypes.Float32, numWorkers, 0, 1, false))
	assert.Equal(t, want, got)
}

func TestRobustHybrid_AlphaOneMatchesMedian(t *testing.T) {
	r := New(nil, 4)
	rng := rand.New(rand.NewSource(22))
	const numWorkers, n = 4, 64

	src := make([]float32, numWorkers*n)
	for i := range src {
		src[i] = float32(rng.NormFloat64() * 10)
	}
	want := make([]float32, n)
	got := make([]float32, n)
	require.NoError(t, r.Median(bytesOf(want), bytesOf(src), dtypes.Float32, numWorkers))
	require.NoError(t, r.RobustHybrid(bytesOf(got), bytesOf(src), dtypes.Float32, numWorkers, 1, 1, false))
	assert.Equal(t, want, got)
}

func TestRobustHybrid_DisabledSimulationIsReproducible(t *testing.T) {
	r := New(nil, 4)
	rng := rand.New(rand.NewSource(23))
	const numWorkers, n = 3, 32

	src := make([]float64, numWorkers*n)
	for i := range src {
		src[i] = rng.NormFloat64()
	}
	first := make([]float64, n)
	second := make([]float64, n)
	require.NoError(t, r.RobustHybrid(bytesOf(first), bytesOf(src), dtypes.Float64, numWorkers, 0.5, 2, false))
	require.NoError(t, r.RobustHybrid(bytesOf(second), bytesOf(src), dtypes.Float64, numWorkers, 0.5, 2, false))
	assert.Equal(t, first, second)
}

func TestRobustHybrid_ByzantineWorkerVaries(t *testing.T) {
	r := New(nil, 4)

	// One element, four workers with well-separated values. Replacing
	// different workers with near-zero noise yields different scaled medians,
	// so across many calls more than one output value must show up.
	src := []float32{1000, 2000, 3000, 4000}
	dst := make([]float32, 1)
	seen := make(map[float32]bool)
	for call := 0; call < 200; call++ {
		require.NoError(t, r.RobustHybrid(bytesOf(dst), bytesOf(src), dtypes.Float32, 4, 1, 1e-3, true))
		seen[dst[0]] = true
	}
	assert.Greater(t, len(seen), 1, "the Byzantine worker index never varied across 200 calls")
}

func TestRobustHybrid_DeterministicWithInjectedSource(t *testing.T) {
	const numWorkers, n = 4, 16
	rng := rand.New(rand.NewSource(24))
	src := make([]float32, numWorkers*n)
	for i := range src {
		src[i] = float32(rng.NormFloat64() * 5)
	}

	run := func() []float32 {
		r := New(nil, 4)
		r.SetRandSource(rand.NewSource(77))
		dst := make([]float32, n)
		require.NoError(t, r.RobustHybrid(bytesOf(dst), bytesOf(src), dtypes.Float32, numWorkers, 0.25, 3, true))
		return dst
	}
	assert.Equal(t, run(), run())
}

func TestWorkerMatrixOps_Float16Unsupported(t *testing.T) {
	r := New(nil, 4)
	dst := make([]byte, 4)
	src := make([]byte, 8)
	assert.Panics(t, func() { _ = r.SumSerial(dst, src, dtypes.Float16, 2) })
	assert.Panics(t, func() { _ = r.Median(dst, src, dtypes.Float16, 2) })
	assert.Panics(t, func() { _ = r.RobustHybrid(dst, src, dtypes.Float16, 2, 0.5, 1, false) })
}
