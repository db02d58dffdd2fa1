// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

// Package reduce implements the CPU tensor aggregation engine: the arithmetic
// that combines numeric buffers contributed by distributed workers into a
// single result buffer.
//
// A Reducer is constructed once per process (or per local reduction group) and
// its operations are pure functions of their inputs plus the thread budget
// fixed at construction. Buffers are always owned by the caller: the engine
// only reads and writes within the supplied lengths, for the duration of a
// single call.
//
// Buffers are raw []byte regions tagged with a dtypes.DType. The caller
// guarantees the bytes actually contain elements of the declared type and are
// aligned for it; the destination slice defines the byte extent of every
// operation.
package reduce

import (
	"math/rand"
	"os"
	"strconv"
	"sync"
	"time"
	"unsafe"

	"k8s.io/klog/v2"

	"github.com/hamidralmasi/tensorreduce/internal/workerspool"
	"github.com/hamidralmasi/tensorreduce/pkg/core/comm"
	"github.com/hamidralmasi/tensorreduce/pkg/core/dtypes"
)

// DefaultNumThreads is the thread budget used when the constructor is given no
// override.
const DefaultNumThreads = 4

// NumThreadsEnvVar names the environment variable read by NumThreadsFromEnv.
const NumThreadsEnvVar = "TENSORREDUCE_NUM_THREADS"

// NumThreadsFromEnv reads the thread-budget override from the environment.
// It returns 0 (meaning "use the default") when the variable is unset or not a
// positive integer.
//
// This belongs to the caller's configuration-loading boundary: the engine
// itself never consults the environment. Pass the result to New.
func NumThreadsFromEnv() int {
	value := os.Getenv(NumThreadsEnvVar)
	if value == "" {
		return 0
	}
	numThreads, err := strconv.Atoi(value)
	if err != nil || numThreads <= 0 {
		klog.Warningf("reduce: ignoring %s=%q, not a positive integer", NumThreadsEnvVar, value)
		return 0
	}
	return numThreads
}

// Reducer is the aggregation engine. Construct it with New.
//
// All operations are synchronous, bounded-time computations. The engine does no
// buffer-level synchronization of its own: callers invoking concurrent
// operations on the same destination buffer must serialize externally.
type Reducer struct {
	comm       comm.Group
	workers    *workerspool.Pool
	numThreads int

	// rngMu guards rng, the only cross-call shared mutable state: the random
	// source used by the adversary-simulation mode of RobustHybrid.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a Reducer.
//
// group is the optional peer-group handle, used only to read the local rank and
// coordinator of the reduction group (see IsRoot); it may be nil for engines
// that aggregate without a topology. numThreads is the parallel-kernel thread
// budget; values <= 0 fall back to DefaultNumThreads.
func New(group comm.Group, numThreads int) *Reducer {
	if numThreads <= 0 {
		numThreads = DefaultNumThreads
	}
	r := &Reducer{
		comm:       group,
		workers:    workerspool.New(numThreads),
		numThreads: numThreads,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if group != nil {
		klog.V(1).Infof("reduce: engine for rank %d of group size %d (root %d), %d threads",
			group.LocalRank(), group.LocalSize(), group.Root(), numThreads)
	} else {
		klog.V(1).Infof("reduce: engine without peer group, %d threads", numThreads)
	}
	return r
}

// NumThreads returns the thread budget the engine was constructed with.
func (r *Reducer) NumThreads() int {
	return r.numThreads
}

// IsRoot returns whether this process is the coordinator of the engine's peer
// group. It returns false for engines constructed without a group.
func (r *Reducer) IsRoot() bool {
	if r.comm == nil {
		return false
	}
	return r.comm.Root() == r.comm.LocalRank()
}

// SetRandSource replaces the random source used by the adversary-simulation
// mode of RobustHybrid. It exists so tests can make the simulation
// deterministic; the default source is time-seeded.
func (r *Reducer) SetRandSource(src rand.Source) {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	r.rng = rand.New(src)
}

// minParallelElements is the element count below which partitioning across
// workers costs more than it saves and kernels run inline.
const minParallelElements = 1 << 10

// parallelFor partitions [0, n) across the thread budget and runs fn on each
// partition, returning when all partitions completed. Partitions never share
// mutable state, so no ordering between them is guaranteed or needed.
func (r *Reducer) parallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if !r.workers.IsEnabled() || r.numThreads == 1 || n < minParallelElements {
		fn(0, n)
		return
	}
	chunk := (n + r.numThreads - 1) / r.numThreads
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		start, end := start, min(start+chunk, n)
		wg.Add(1)
		r.workers.WaitToStart(func() {
			defer wg.Done()
			fn(start, end)
		})
	}
	wg.Wait()
}

// bufferOf reinterprets a raw byte buffer as a slice of element type T sharing
// the same underlying memory. Any trailing bytes beyond a whole number of
// elements are not included.
//
// The caller guarantees the buffer is aligned for T.
func bufferOf[T dtypes.Supported](buf []byte) []T {
	var t T
	n := len(buf) / int(unsafe.Sizeof(t))
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(buf))), n)
}

// buffersOverlap reports whether two byte buffers share any memory.
func buffersOverlap(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	aStart := uintptr(unsafe.Pointer(unsafe.SliceData(a)))
	bStart := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return aStart < bStart+uintptr(len(b)) && bStart < aStart+uintptr(len(a))
}
