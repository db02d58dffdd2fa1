// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

//go:build arm64

package fp16

// detectBatchKernels reports whether the batched conversion kernels are worth
// using on this platform. On arm64 the unrolled batches vectorize well.
func detectBatchKernels() bool {
	return true
}
