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

package forest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cutforest/rcforest"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// UpdateResult is the outcome of one external Update call, per spec §9's
// resolved executor contract: (point, seqNum) -> UpdateResult.
type UpdateResult struct {
	SeqIdx            int64
	ComponentsChanged []bool
}

// AnyChanged reports whether at least one component changed state.
func (r UpdateResult) AnyChanged() bool {
	for _, c := range r.ComponentsChanged {
		if c {
			return true
		}
	}
	return false
}

// Executor fans updates and traversals out across a fixed set of
// components, either sequentially or over a bounded worker pool. Both
// modes share this type. Traversals are free generic functions, since Go
// methods cannot carry their own type parameters: those in sequential.go
// always run sequentially, and TraverseParallel/TraverseMultiParallel in
// parallel.go always fan out under the configured worker limit.
type Executor struct {
	cfg        config
	components []*Component

	mu           sync.Mutex
	totalUpdates int64
}

// NewExecutor constructs an Executor over components, defaulting to
// sequential execution.
func NewExecutor(components []*Component, opts ...Option) *Executor {
	cfg := config{parallelism: DefaultParallelism}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Executor{cfg: cfg, components: components}
}

// Components returns the executor's component list, for callers building
// per-component visitor factories.
func (e *Executor) Components() []*Component { return e.components }

// TotalUpdates returns the forest-wide monotonic update counter.
func (e *Executor) TotalUpdates() int64 {
	return atomic.LoadInt64(&e.totalUpdates)
}

// Update clean-copies point, assigns it the next strictly-monotonic
// sequence index, and submits (point, seqIdx) to every component —
// sequentially, or fanned out over the worker pool when configured for
// parallel execution. Per-component side effects are unordered; the
// sequence index itself is assigned exactly once per external call.
func (e *Executor) Update(point rcforest.Point) (UpdateResult, error) {
	clean := rcforest.CleanCopy(point)

	e.mu.Lock()
	e.totalUpdates++
	seqIdx := e.totalUpdates
	e.mu.Unlock()

	changed := make([]bool, len(e.components))

	if !e.cfg.parallel || len(e.components) <= 1 {
		for i, c := range e.components {
			ok, err := c.Update(clean, seqIdx)
			if err != nil {
				e.warnf("forest: component %d rejected seqIdx %d: %v", i, seqIdx, err)
				return UpdateResult{}, fmt.Errorf("forest: Executor.Update: component %d: %w", i, err)
			}
			changed[i] = ok
		}
		return UpdateResult{SeqIdx: seqIdx, ComponentsChanged: changed}, nil
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.parallelism)
	for i, c := range e.components {
		i, c := i, c
		g.Go(func() error {
			ok, err := c.Update(clean, seqIdx)
			if err != nil {
				e.warnf("forest: component %d rejected seqIdx %d: %v", i, seqIdx, err)
				return fmt.Errorf("component %d: %w", i, err)
			}
			changed[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return UpdateResult{}, fmt.Errorf("forest: Executor.Update: %w", err)
	}
	return UpdateResult{SeqIdx: seqIdx, ComponentsChanged: changed}, nil
}

func (e *Executor) warnf(format string, args ...any) {
	klog.Warningf(format, args...)
}
