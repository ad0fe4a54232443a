// Copyright 2024 The RCForest Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package forest pairs trees with samplers into components and fans
// updates and traversals across them, sequentially or in parallel.
package forest

import (
	"fmt"

	"github.com/cutforest/rcforest"
	"github.com/cutforest/rcforest/core"
	"github.com/cutforest/rcforest/pointstore"
)

// Store is the subset of pointstore.Store a Component needs: admitting
// points and decrementing references. Declared structurally so tests can
// substitute a fake.
type Store interface {
	core.PointSource
	Admit(p rcforest.Point, seqIdx int64) (rcforest.Handle, error)
	DecRef(h rcforest.Handle) (int, error)
}

// Component pairs one tree with one sampler and the point store they
// share, per spec §4.F.
type Component struct {
	Tree    *core.Tree
	Store   Store
	Sampler rcforest.Sampler

	seqToPoint  map[int64]rcforest.Point
	lastChanged bool
}

// NewComponent constructs a Component over an already-built tree and
// store, using sampler as its accept/evict policy.
func NewComponent(tree *core.Tree, store Store, sampler rcforest.Sampler) *Component {
	return &Component{
		Tree:       tree,
		Store:      store,
		Sampler:    sampler,
		seqToPoint: make(map[int64]rcforest.Point),
	}
}

// Update asks the sampler for a decision on admitting point at seqIdx and
// carries it out: reject (no-op), accept (admit+insert), or accept+evict
// (delete the previously sampled point first, then admit+insert). It
// reports whether the component's state changed.
func (c *Component) Update(point rcforest.Point, seqIdx int64) (bool, error) {
	decision := c.Sampler.Decide(seqIdx)
	switch decision.Outcome {
	case rcforest.Reject:
		c.lastChanged = false
		return false, nil
	case rcforest.Accept:
		changed, err := c.insert(point, seqIdx)
		c.lastChanged = changed
		return changed, err
	case rcforest.AcceptEvict:
		evicted, ok := c.seqToPoint[decision.EvictedSeqIdx]
		if !ok {
			c.lastChanged = false
			return false, fmt.Errorf("forest: Component.Update: no point recorded at evicted seqIdx %d: %w", decision.EvictedSeqIdx, rcforest.ErrSequenceNotFound)
		}
		if err := c.Tree.DeletePoint(evicted, decision.EvictedSeqIdx); err != nil {
			c.lastChanged = false
			return false, fmt.Errorf("forest: Component.Update: evicting seqIdx %d: %w", decision.EvictedSeqIdx, err)
		}
		delete(c.seqToPoint, decision.EvictedSeqIdx)
		changed, err := c.insert(point, seqIdx)
		c.lastChanged = changed
		return changed, err
	default:
		c.lastChanged = false
		return false, fmt.Errorf("forest: Component.Update: unrecognized sampler outcome %d", decision.Outcome)
	}
}

func (c *Component) insert(point rcforest.Point, seqIdx int64) (bool, error) {
	h, err := c.Store.Admit(point, seqIdx)
	if err != nil {
		return false, fmt.Errorf("forest: Component.insert: admit: %w", err)
	}
	if err := c.Tree.AddPoint(h, seqIdx); err != nil {
		if _, decErr := c.Store.DecRef(h); decErr != nil {
			return false, fmt.Errorf("forest: Component.insert: AddPoint failed (%w) and rollback DecRef also failed: %v", err, decErr)
		}
		return false, fmt.Errorf("forest: Component.insert: AddPoint: %w", err)
	}
	c.seqToPoint[seqIdx] = append(rcforest.Point(nil), point...)
	return true, nil
}

// LastUpdateChanged reports whether the most recent Update call changed
// this component's state, per spec §4.F's observability requirement.
func (c *Component) LastUpdateChanged() bool { return c.lastChanged }
