// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

package comm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticGroup(t *testing.T) {
	g, err := NewStaticGroup(2, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, g.LocalRank())
	assert.Equal(t, 4, g.LocalSize())
	assert.Equal(t, 0, g.Root())

	_, err = NewStaticGroup(0, 0)
	assert.Error(t, err)
	_, err = NewStaticGroup(4, 4)
	assert.Error(t, err)
	_, err = NewStaticGroup(-1, 4)
	assert.Error(t, err)
}
