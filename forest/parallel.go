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

	"github.com/cutforest/rcforest"
	"github.com/cutforest/rcforest/core"
	"golang.org/x/sync/errgroup"
)

// TraverseParallel runs one traversal per component concurrently, bounded
// by e's configured worker limit, then, once all have finished, folds the
// results with accumulate in component-list order. Components complete in
// whatever order the pool schedules them; accumulate is expected to be
// associative and commutative, as for any parallel traversal.
func TraverseParallel[R any](e *Executor, point rcforest.Point, factory core.VisitorFactory[R], initial R, accumulate Accumulator[R]) (R, error) {
	results := make([]R, len(e.components))

	var g errgroup.Group
	g.SetLimit(e.cfg.parallelism)
	for i, c := range e.components {
		i, c := i, c
		g.Go(func() error {
			r, err := core.Traverse(c.Tree, point, factory)
			if err != nil {
				return fmt.Errorf("component %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var zero R
		return zero, fmt.Errorf("forest: TraverseParallel: %w", err)
	}

	acc := initial
	for _, r := range results {
		acc = accumulate(acc, r)
	}
	return acc, nil
}

// TraverseMultiParallel is TraverseParallel's multi-visitor counterpart.
func TraverseMultiParallel[R any](e *Executor, point rcforest.Point, factory core.MultiVisitorFactory[R], initial R, accumulate Accumulator[R]) (R, error) {
	results := make([]R, len(e.components))

	var g errgroup.Group
	g.SetLimit(e.cfg.parallelism)
	for i, c := range e.components {
		i, c := i, c
		g.Go(func() error {
			r, err := core.TraverseMulti(c.Tree, point, factory)
			if err != nil {
				return fmt.Errorf("component %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var zero R
		return zero, fmt.Errorf("forest: TraverseMultiParallel: %w", err)
	}

	acc := initial
	for _, r := range results {
		acc = accumulate(acc, r)
	}
	return acc, nil
}
