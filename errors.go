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

package rcforest

import "errors"

// Sentinel errors returned by core, pointstore and forest. Callers should
// use errors.Is against these rather than comparing strings; call sites
// wrap them with fmt.Errorf("...: %w", err) to add context.
var (
	// ErrInvalidDimension is returned when a point's length does not match
	// the dimension fixed for a tree or point store.
	ErrInvalidDimension = errors.New("rcforest: invalid dimension")

	// ErrInvalidPoint is returned when an insert is attempted with a NaN
	// coordinate. NaN is only permitted in query paths (imputation).
	ErrInvalidPoint = errors.New("rcforest: invalid point (NaN in insert)")

	// ErrCapacityExceeded is returned by a point store with no free slot
	// and dynamic resizing disabled.
	ErrCapacityExceeded = errors.New("rcforest: point store capacity exceeded")

	// ErrPointNotFound is returned when deletePoint cannot find the exact
	// point in the tree.
	ErrPointNotFound = errors.New("rcforest: point not found")

	// ErrSequenceNotFound is returned when deletePoint's seqIdx is absent
	// from the matching leaf's multiset.
	ErrSequenceNotFound = errors.New("rcforest: sequence index not found at leaf")

	// ErrEmptyTree is returned by traverse/traverseMulti on a null root.
	ErrEmptyTree = errors.New("rcforest: traversal on empty tree")

	// ErrPrecisionMismatch is returned by the state mapper when a
	// persisted state carries an unsupported precision tag.
	ErrPrecisionMismatch = errors.New("rcforest: precision mismatch")

	// ErrCacheState indicates a structural tree operation (AddPoint,
	// DeletePoint) was attempted while a traversal was live on the same
	// tree. It signals a programming error in the caller.
	ErrCacheState = errors.New("rcforest: structural operation during live traversal")
)
