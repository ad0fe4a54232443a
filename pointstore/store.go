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
	"fmt"

	"github.com/cutforest/rcforest"
	lru "github.com/hashicorp/golang-lru/v2"
)

// locInfeasible marks a handle slot as unused, mirroring spec's INFEASIBLE
// location sentinel.
const locInfeasible = -1

// Store is the reference-counted, compactable arena of fixed-dimension
// vectors a forest's trees resolve handles through.
//
// The on-disk/production optimization where internally-shingled windows
// physically overlap in the backing array (storing only the trailing s
// floats of each new admission) is not performed here: each admitted
// window is stored in full. Spec §4.C calls the overlapping layout an
// implementation mechanic; the contract it must honor — admit() reusing a
// handle for a bitwise-equivalent adjacent window, with refCount
// incremented and ties broken toward the most recent sequence index — is
// implemented exactly. See DESIGN.md for the full rationale.
type Store struct {
	dimension int
	cfg       config

	raw                   []float64
	currentStoreCapacity  int
	startOfFreeSegment    int

	locationList []int
	refCount     []int
	freeHandles  []rcforest.Handle

	// lastTimeStamp is the most recently admitted sequence index, or -1 if
	// nothing has been admitted yet. Persisted per spec §6's PointStoreState
	// "lastTimeStamp" field.
	lastTimeStamp int64
	knownShingle  []float64
	reuseCache    *lru.Cache[string, reuseEntry]
}

// NewStore constructs an empty store over dimension-length points.
func NewStore(dimension int, opts ...Option) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("pointstore: NewStore: %w", rcforest.ErrInvalidDimension)
	}
	cfg := config{
		shingleSize:    1,
		capacity:       256,
		reuseCacheSize: defaultReuseCacheSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.shingleSize <= 0 || dimension%cfg.shingleSize != 0 {
		return nil, fmt.Errorf("pointstore: NewStore: shingleSize %d does not divide dimension %d", cfg.shingleSize, dimension)
	}
	s := &Store{
		dimension:            dimension,
		cfg:                  cfg,
		currentStoreCapacity: cfg.capacity,
		raw:                  make([]float64, cfg.capacity*dimension),
		lastTimeStamp:        -1,
	}
	if cfg.internalShinglingEnabled {
		cache, err := lru.New[string, reuseEntry](cfg.reuseCacheSize)
		if err != nil {
			return nil, fmt.Errorf("pointstore: NewStore: building reuse cache: %w", err)
		}
		s.reuseCache = cache
	}
	return s, nil
}

// Dimension returns the store's fixed point length.
func (s *Store) Dimension() int { return s.dimension }

// Admit returns a handle for a vector bitwise-equal (after a clean copy
// mapping -0.0 to +0.0) to point, admitted at seqIdx. When internal
// shingling is enabled an existing handle may be reused; otherwise a
// fresh slot is allocated. Fails with ErrCapacityExceeded when no free
// slot exists and dynamic resizing is disabled.
func (s *Store) Admit(point rcforest.Point, seqIdx int64) (rcforest.Handle, error) {
	if len(point) != s.dimension {
		return rcforest.InvalidHandle, fmt.Errorf("pointstore: Admit: point dim %d != store dim %d: %w", len(point), s.dimension, rcforest.ErrInvalidDimension)
	}
	if rcforest.HasNaN(point) {
		return rcforest.InvalidHandle, fmt.Errorf("pointstore: Admit: %w", rcforest.ErrInvalidPoint)
	}
	clean := rcforest.CleanCopy(point)

	if s.cfg.internalShinglingEnabled {
		s.knownShingle = append(s.knownShingle[:0], clean...)
		if h, ok := s.reuseShingle(clean, seqIdx); ok {
			s.refCount[h]++
			s.recordShingle(clean, seqIdx, h)
			s.lastTimeStamp = seqIdx
			return h, nil
		}
	}

	h, err := s.allocHandle()
	if err != nil {
		return rcforest.InvalidHandle, err
	}
	if s.startOfFreeSegment >= s.currentStoreCapacity {
		// Reclaim the backing storage of freed handles before failing or
		// growing.
		s.Compact()
	}
	slot, err := s.allocSlot()
	if err != nil {
		s.freeHandles = append(s.freeHandles, h)
		return rcforest.InvalidHandle, err
	}
	copy(s.raw[slot*s.dimension:(slot+1)*s.dimension], clean)
	s.locationList[h] = slot
	s.refCount[h] = 1

	if s.cfg.internalShinglingEnabled {
		s.recordShingle(clean, seqIdx, h)
	}
	s.lastTimeStamp = seqIdx
	return h, nil
}

func (s *Store) allocHandle() (rcforest.Handle, error) {
	if n := len(s.freeHandles); n > 0 {
		h := s.freeHandles[n-1]
		s.freeHandles = s.freeHandles[:n-1]
		return h, nil
	}
	if len(s.locationList) >= s.cfg.capacity {
		if !s.cfg.dynamicResizingEnabled {
			return rcforest.InvalidHandle, fmt.Errorf("pointstore: allocHandle: %w", rcforest.ErrCapacityExceeded)
		}
		s.cfg.capacity *= 2
	}
	h := rcforest.Handle(len(s.locationList))
	s.locationList = append(s.locationList, locInfeasible)
	s.refCount = append(s.refCount, 0)
	return h, nil
}

func (s *Store) allocSlot() (int, error) {
	if s.startOfFreeSegment >= s.currentStoreCapacity {
		if !s.cfg.dynamicResizingEnabled {
			return 0, fmt.Errorf("pointstore: allocSlot: %w", rcforest.ErrCapacityExceeded)
		}
		s.growRaw()
	}
	slot := s.startOfFreeSegment
	s.startOfFreeSegment++
	return slot, nil
}

func (s *Store) growRaw() {
	newCap := s.currentStoreCapacity * 2
	if newCap == 0 {
		newCap = 16
	}
	grown := make([]float64, newCap*s.dimension)
	copy(grown, s.raw)
	s.raw = grown
	s.currentStoreCapacity = newCap
}

// IncRef increments handle's reference count, returning the new count.
func (s *Store) IncRef(h rcforest.Handle) (int, error) {
	if err := s.checkHandle(h); err != nil {
		return 0, err
	}
	s.refCount[h]++
	return s.refCount[h], nil
}

// DecRef decrements handle's reference count, freeing its slot once the
// count reaches zero, and returns the new count.
func (s *Store) DecRef(h rcforest.Handle) (int, error) {
	if err := s.checkHandle(h); err != nil {
		return 0, err
	}
	if s.refCount[h] <= 0 {
		return 0, fmt.Errorf("pointstore: DecRef: handle %d already free: %w", h, rcforest.ErrPointNotFound)
	}
	s.refCount[h]--
	if s.refCount[h] == 0 {
		s.locationList[h] = locInfeasible
		s.freeHandles = append(s.freeHandles, h)
	}
	return s.refCount[h], nil
}

// RefCount reports handle's current reference count.
func (s *Store) RefCount(h rcforest.Handle) (int, error) {
	if err := s.checkHandle(h); err != nil {
		return 0, err
	}
	return s.refCount[h], nil
}

// Get returns a copy of the dimension-length point handle refers to.
func (s *Store) Get(h rcforest.Handle) (rcforest.Point, error) {
	if err := s.checkHandle(h); err != nil {
		return nil, err
	}
	slot := s.locationList[h]
	if slot == locInfeasible {
		return nil, fmt.Errorf("pointstore: Get: handle %d: %w", h, rcforest.ErrPointNotFound)
	}
	out := make(rcforest.Point, s.dimension)
	copy(out, s.raw[slot*s.dimension:(slot+1)*s.dimension])
	return out, nil
}

func (s *Store) checkHandle(h rcforest.Handle) error {
	if int(h) < 0 || int(h) >= len(s.locationList) {
		return fmt.Errorf("pointstore: handle %d out of range [0,%d): %w", h, len(s.locationList), rcforest.ErrPointNotFound)
	}
	return nil
}

// Compact moves live runs leftward in the backing array, preserving the
// relative order and identity of live handles, and shrinks
// startOfFreeSegment to the new live length. It must not be called while
// a tree is mid-traversal against this store.
func (s *Store) Compact() {
	// owner[slot] is 1 + the live handle stored at slot, or 0 for a hole.
	// Walking slots in offset order means a move never overwrites a live
	// slot that has not been moved yet.
	owner := make([]int, s.startOfFreeSegment)
	for h, slot := range s.locationList {
		if slot != locInfeasible {
			owner[slot] = h + 1
		}
	}
	write := 0
	for slot, o := range owner {
		if o == 0 {
			continue
		}
		if slot != write {
			copy(s.raw[write*s.dimension:(write+1)*s.dimension], s.raw[slot*s.dimension:(slot+1)*s.dimension])
			s.locationList[o-1] = write
		}
		write++
	}
	s.startOfFreeSegment = write
}

// ValidPrefix returns the smallest k such that every handle >= k is free,
// used by the state mapper to truncate serialized arrays.
func (s *Store) ValidPrefix() int {
	k := len(s.locationList)
	for k > 0 && s.refCount[k-1] == 0 {
		k--
	}
	return k
}

// Capacity returns the current handle-slot capacity.
func (s *Store) Capacity() int { return s.cfg.capacity }
