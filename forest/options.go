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

// DefaultParallelism is the worker limit TraverseParallel and
// TraverseMultiParallel use on an Executor built without WithParallel.
const DefaultParallelism = 4

// Option configures an Executor at construction time.
type Option func(*config)

type config struct {
	parallel    bool
	parallelism int
}

// WithParallel selects the parallel executor, bounding its worker pool at
// limit (clamped to at least 1). Each parallel call starts its own
// errgroup with that limit and waits for it; the Executor keeps no
// long-lived pool and has no shutdown step.
func WithParallel(limit int) Option {
	return func(c *config) {
		c.parallel = true
		if limit < 1 {
			limit = 1
		}
		c.parallelism = limit
	}
}

// WithSequential selects the sequential executor (the default).
func WithSequential() Option {
	return func(c *config) { c.parallel = false }
}
