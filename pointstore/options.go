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

// Package pointstore implements the reference-counted, compactable arena of
// fixed-dimension vectors shared by a forest's trees, including the
// internal-shingling coordinate-reuse path and the self-describing
// serialized state format.
package pointstore

// Option configures a Store at construction time.
type Option func(*config)

type config struct {
	shingleSize              int
	capacity                 int
	directLocationMap        bool
	internalShinglingEnabled bool
	rotationEnabled          bool
	dynamicResizingEnabled   bool
	reuseCacheSize           int
}

const defaultReuseCacheSize = 1024

// WithCapacity sets the initial number of handle slots. Defaults to 256.
func WithCapacity(c int) Option {
	return func(cfg *config) { cfg.capacity = c }
}

// WithShingleSize sets the stride s (must divide the store's dimension)
// used when internal shingling is enabled. Defaults to 1.
func WithShingleSize(s int) Option {
	return func(cfg *config) { cfg.shingleSize = s }
}

// WithDirectLocationMap sets the direct-location-map flag, which is kept in
// the store's configuration and carried through State. The store uses the
// same packed-array layout and compaction whether or not it is set.
func WithDirectLocationMap(enabled bool) Option {
	return func(cfg *config) { cfg.directLocationMap = enabled }
}

// WithInternalShingling enables admitting adjacent-in-time vectors by
// reusing an existing handle (and incrementing its reference count)
// instead of allocating a new slot, per spec's internal-shingling design.
func WithInternalShingling(enabled bool) Option {
	return func(cfg *config) { cfg.internalShinglingEnabled = enabled }
}

// WithRotation sets the rotation flag, which is kept in the store's
// configuration and carried through State. Stored vectors are not rotated:
// Admit and Get behave the same whether or not it is set.
func WithRotation(enabled bool) Option {
	return func(cfg *config) { cfg.rotationEnabled = enabled }
}

// WithDynamicResizing allows the store to grow its backing arrays rather
// than fail with CapacityExceeded once capacity is exhausted.
func WithDynamicResizing(enabled bool) Option {
	return func(cfg *config) { cfg.dynamicResizingEnabled = enabled }
}

// WithReuseCacheSize bounds the shingle-reuse LRU cache's entry count.
func WithReuseCacheSize(n int) Option {
	return func(cfg *config) { cfg.reuseCacheSize = n }
}
