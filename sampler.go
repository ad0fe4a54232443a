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

// Outcome is the verdict a Sampler returns for a candidate sequence index.
type Outcome int

const (
	// Reject means the point is not admitted; no state changes.
	Reject Outcome = iota
	// Accept means the point should be admitted and inserted.
	Accept
	// AcceptEvict means the point should be admitted and inserted, and the
	// point previously occupying EvictedSeqIdx should be deleted first.
	AcceptEvict
)

// Decision is the result of a Sampler's policy evaluation for one external
// update. It is produced by an external reservoir-sampling policy (time-
// decayed weighted reservoir, or any other accept/evict oracle) that this
// module treats as a pluggable collaborator — the sampler's internal
// bookkeeping (weights, decay, capacity) is out of scope for this core.
type Decision struct {
	Outcome Outcome
	// EvictedSeqIdx is only meaningful when Outcome == AcceptEvict: the
	// sequence index of the point the sampler has chosen to evict to make
	// room for the incoming one.
	EvictedSeqIdx int64
}

// Sampler is the external reservoir accept/evict oracle a Component pairs
// with one tree. Implementations decide, given a new sequence index,
// whether (and what) to evict in order to admit the corresponding point.
type Sampler interface {
	// Decide returns the sampler's verdict for admitting the point at
	// seqIdx. It must be safe to call exactly once per external update,
	// in increasing seqIdx order, from a single goroutine.
	Decide(seqIdx int64) Decision
}
