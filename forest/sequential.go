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
)

// Traverse builds one visitor per component via factory, runs each
// component's tree traversal in turn, and folds the results left to
// right with accumulate, starting from initial. If e is configured for
// parallel execution this still runs sequentially — use TraverseParallel
// for the fanned-out variant.
func Traverse[R any](e *Executor, point rcforest.Point, factory core.VisitorFactory[R], initial R, accumulate Accumulator[R]) (R, error) {
	acc := initial
	for i, c := range e.components {
		r, err := core.Traverse(c.Tree, point, factory)
		if err != nil {
			return acc, fmt.Errorf("forest: Traverse: component %d: %w", i, err)
		}
		acc = accumulate(acc, r)
	}
	return acc, nil
}

// TraverseMulti is Traverse's multi-visitor counterpart.
func TraverseMulti[R any](e *Executor, point rcforest.Point, factory core.MultiVisitorFactory[R], initial R, accumulate Accumulator[R]) (R, error) {
	acc := initial
	for i, c := range e.components {
		r, err := core.TraverseMulti(c.Tree, point, factory)
		if err != nil {
			return acc, fmt.Errorf("forest: TraverseMulti: component %d: %w", i, err)
		}
		acc = accumulate(acc, r)
	}
	return acc, nil
}

// TraverseConverging visits components in order, stopping as soon as the
// accumulator reports convergence — a sequential-only optimization: the
// parallel executor has no meaningful notion of "remaining" components
// once a batch of traversals is already in flight.
func TraverseConverging[R any](e *Executor, point rcforest.Point, factory core.VisitorFactory[R], initial R, accumulator ConvergingAccumulator[R]) (R, error) {
	acc := initial
	for i, c := range e.components {
		r, err := core.Traverse(c.Tree, point, factory)
		if err != nil {
			return acc, fmt.Errorf("forest: TraverseConverging: component %d: %w", i, err)
		}
		acc = accumulator.Accumulate(acc, r)
		if accumulator.IsConverged(acc) {
			break
		}
	}
	return acc, nil
}

// Collect is the streaming/collector-style alternative to Traverse. It
// folds each component's result in order with c.Accumulate and does not
// use c.Combine.
func Collect[R, A, F any](e *Executor, point rcforest.Point, factory core.VisitorFactory[R], c Collector[R, A, F]) (F, error) {
	var zero F
	acc := c.Supply()
	for i, comp := range e.components {
		r, err := core.Traverse(comp.Tree, point, factory)
		if err != nil {
			return zero, fmt.Errorf("forest: Collect: component %d: %w", i, err)
		}
		acc = c.Accumulate(acc, r)
	}
	return c.Finish(acc), nil
}
