// Copyright 2024-2026 The TensorReduce Authors. SPDX-License-Identifier: Apache-2.0

// Package comm defines the peer-group handle the aggregation engine is
// constructed with.
//
// The engine only ever reads local rank, group size and the coordinator rank
// from it, to decide local roles (leaf vs. coordinator). Topology discovery and
// the transport that delivers worker buffers live entirely outside this module.
package comm

import "github.com/pkg/errors"

// Group describes the local peer group of one reduction participant.
//
// Implementations carry no arithmetic and the engine never issues network
// calls through them.
type Group interface {
	// LocalRank is the rank of this process within the group, in [0, LocalSize).
	LocalRank() int

	// LocalSize is the number of participants in the group.
	LocalSize() int

	// Root is the rank of the group's coordinator.
	Root() int
}

// StaticGroup is a fixed-membership Group, used by engines constructed without
// a live topology and by tests.
type StaticGroup struct {
	rank, size, root int
}

var _ Group = (*StaticGroup)(nil)

// NewStaticGroup creates a StaticGroup with the coordinator at rank 0.
func NewStaticGroup(rank, size int) (*StaticGroup, error) {
	if size < 1 {
		return nil, errors.Errorf("comm.NewStaticGroup: group size must be >= 1, got %d", size)
	}
	if rank < 0 || rank >= size {
		return nil, errors.Errorf("comm.NewStaticGroup: rank %d outside group of size %d", rank, size)
	}
	return &StaticGroup{rank: rank, size: size}, nil
}

// LocalRank implements Group.
func (g *StaticGroup) LocalRank() int { return g.rank }

// LocalSize implements Group.
func (g *StaticGroup) LocalSize() int { return g.size }

// Root implements Group.
func (g *StaticGroup) Root() int { return g.root }
