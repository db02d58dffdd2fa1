// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool provides the bounded pool of workers shared by the
// engine's data-parallel kernels.
//
// The parallelism budget is fixed when the pool is created: the engine is
// configured once per process and the kernels partition their element ranges
// against a stable thread count.
package workerspool

import "sync"

// Pool limits how many kernel partitions run concurrently.
type Pool struct {
	// maxParallelism is the limit of tasks running at once. 0 disables
	// parallelism: tasks run inline in the caller.
	maxParallelism int

	mu         sync.Mutex
	cond       sync.Cond // Signaled whenever numRunning is decreased.
	numRunning int
}

// New returns a Pool that runs at most maxParallelism tasks concurrently.
// A maxParallelism of 0 disables parallelism: every task runs inline.
func New(maxParallelism int) *Pool {
	if maxParallelism < 0 {
		maxParallelism = 0
	}
	w := &Pool{maxParallelism: maxParallelism}
	w.cond = sync.Cond{L: &w.mu}
	return w
}

// IsEnabled returns whether parallelism is enabled (maxParallelism != 0).
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// MaxParallelism returns the concurrent task limit the pool was created with.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// WaitToStart waits until there is a worker available and then runs task on a
// separate goroutine. If parallelism is disabled it runs the task inline and
// returns when it is finished.
//
// It's up to the caller to synchronize the end of the task's execution, e.g.
// with a sync.WaitGroup.
func (w *Pool) WaitToStart(task func()) {
	if w.maxParallelism == 0 {
		task()
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.numRunning >= w.maxParallelism {
		w.cond.Wait()
	}
	w.numRunning++
	go func() {
		task()
		w.mu.Lock()
		w.numRunning--
		w.cond.Signal()
		w.mu.Unlock()
	}()
}
