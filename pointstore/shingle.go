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

package pointstore

import (
	"strconv"

	"github.com/cutforest/rcforest"
)

// reuseEntry records which handle currently backs a given window, and at
// what sequence index it was last admitted — used to break ties toward
// the most recent adjacent-in-time vector, per spec §4.C.
type reuseEntry struct {
	handle rcforest.Handle
	seqIdx int64
}

// reuseShingle looks up an existing handle for a window bitwise-equal to
// clean. The LRU cache naturally prefers the most recently recorded
// window for a given key, satisfying the most-recent tie-break spec
// requires without extra bookkeeping.
func (s *Store) reuseShingle(clean rcforest.Point, seqIdx int64) (rcforest.Handle, bool) {
	key := shingleKey(clean)
	e, ok := s.reuseCache.Get(key)
	if !ok {
		return rcforest.InvalidHandle, false
	}
	if s.locationList[e.handle] == locInfeasible {
		// The cached handle was since evicted by DecRef; treat as a miss
		// so the caller allocates a fresh slot.
		s.reuseCache.Remove(key)
		return rcforest.InvalidHandle, false
	}
	return e.handle, true
}

// recordShingle records that handle h now backs the window clean, admitted
// at seqIdx, for future reuse lookups.
func (s *Store) recordShingle(clean rcforest.Point, seqIdx int64, h rcforest.Handle) {
	s.reuseCache.Add(shingleKey(clean), reuseEntry{handle: h, seqIdx: seqIdx})
}

// shingleKey renders a point to an exact, round-trippable string key. The
// 'b' format (binary exponent) avoids any precision loss that a decimal
// format could introduce, which matters because reuse must be exact
// bitwise equality, not approximate.
func shingleKey(p rcforest.Point) string {
	buf := make([]byte, 0, 24*len(p))
	for _, v := range p {
		buf = strconv.AppendFloat(buf, v, 'b', -1, 64)
		buf = append(buf, ',')
	}
	return string(buf)
}
