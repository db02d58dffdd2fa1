// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

//go:build !amd64 && !arm64

package fp16

// detectBatchKernels returns false on platforms where the batched conversion
// kernels have not been benchmarked; the per-element scalar path is used for
// everything instead.
func detectBatchKernels() bool {
	return false
}
