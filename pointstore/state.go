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
	"encoding/binary"
	"fmt"

	"github.com/cutforest/rcforest"
	lru "github.com/hashicorp/golang-lru/v2"
)

// PrecisionFloat64 is the only precision tag this package writes or
// accepts; spec reserves FLOAT_32 for a future implementation.
const PrecisionFloat64 = "FLOAT_64"

// State is the opaque, versioned, self-describing persisted form of a
// Store, per spec §4.H. Compressed selects delta+varint packing for the
// index arrays; Store always holds raw, uncompressed doubles.
type State struct {
	Dimensions               int
	ShingleSize              int
	Capacity                 int
	IndexCapacity            int
	CurrentStoreCapacity     int
	DirectLocationMap        bool
	InternalShinglingEnabled bool
	RotationEnabled          bool
	DynamicResizingEnabled   bool
	StartOfFreeSegment       int
	Precision                string
	Compressed               bool
	RefCount                 []byte
	LocationList             []byte
	Store                    []float64
	InternalShingle          []float64
	LastTimeStamp            int64
}

// ToState compacts s and captures its persisted form. compressed selects
// delta+varint encoding for the refCount and locationList arrays.
func ToState(s *Store, compressed bool) *State {
	s.Compact()
	prefix := s.ValidPrefix()

	st := &State{
		Dimensions:               s.dimension,
		ShingleSize:              s.cfg.shingleSize,
		Capacity:                 s.cfg.capacity,
		IndexCapacity:            len(s.locationList),
		CurrentStoreCapacity:     s.currentStoreCapacity,
		DirectLocationMap:        s.cfg.directLocationMap,
		InternalShinglingEnabled: s.cfg.internalShinglingEnabled,
		RotationEnabled:          s.cfg.rotationEnabled,
		DynamicResizingEnabled:   s.cfg.dynamicResizingEnabled,
		StartOfFreeSegment:       s.startOfFreeSegment,
		Precision:                PrecisionFloat64,
		Compressed:               compressed,
	}
	if compressed {
		st.RefCount = deltaVarintEncode(s.refCount[:prefix])
		st.LocationList = deltaVarintEncode(s.locationList[:prefix])
	} else {
		st.RefCount = plainEncode(s.refCount[:prefix])
		st.LocationList = plainEncode(s.locationList[:prefix])
	}
	st.Store = append([]float64(nil), s.raw[:s.startOfFreeSegment*s.dimension]...)
	if s.cfg.internalShinglingEnabled {
		st.InternalShingle = append([]float64(nil), s.knownShingle...)
	}
	st.LastTimeStamp = s.lastTimeStamp
	return st
}

// ToModel reconstructs a Store from its persisted state.
func ToModel(st *State) (*Store, error) {
	if st.Precision != PrecisionFloat64 {
		return nil, fmt.Errorf("pointstore: ToModel: precision %q: %w", st.Precision, rcforest.ErrPrecisionMismatch)
	}

	locationList := make([]int, st.IndexCapacity)
	for i := range locationList {
		locationList[i] = locInfeasible
	}
	refCount := make([]int, st.IndexCapacity)

	var decodedLoc, decodedRef []int
	var err error
	if st.Compressed {
		decodedLoc, err = deltaVarintDecode(st.LocationList)
		if err != nil {
			return nil, fmt.Errorf("pointstore: ToModel: decoding locationList: %w", err)
		}
		decodedRef, err = deltaVarintDecode(st.RefCount)
		if err != nil {
			return nil, fmt.Errorf("pointstore: ToModel: decoding refCount: %w", err)
		}
	} else {
		decodedLoc = plainDecode(st.LocationList)
		decodedRef = plainDecode(st.RefCount)
	}
	copy(locationList, decodedLoc)
	copy(refCount, decodedRef)

	raw := make([]float64, st.CurrentStoreCapacity*st.Dimensions)
	copy(raw, st.Store)

	s := &Store{
		dimension: st.Dimensions,
		cfg: config{
			shingleSize:              st.ShingleSize,
			capacity:                 st.Capacity,
			directLocationMap:        st.DirectLocationMap,
			internalShinglingEnabled: st.InternalShinglingEnabled,
			rotationEnabled:          st.RotationEnabled,
			dynamicResizingEnabled:   st.DynamicResizingEnabled,
			reuseCacheSize:           defaultReuseCacheSize,
		},
		raw:                  raw,
		currentStoreCapacity: st.CurrentStoreCapacity,
		startOfFreeSegment:   st.StartOfFreeSegment,
		locationList:         locationList,
		refCount:             refCount,
		lastTimeStamp:        st.LastTimeStamp,
	}
	for h, rc := range refCount {
		if rc == 0 {
			s.freeHandles = append(s.freeHandles, rcforest.Handle(h))
		}
	}
	if s.cfg.internalShinglingEnabled {
		cache, err := lru.New[string, reuseEntry](s.cfg.reuseCacheSize)
		if err != nil {
			return nil, fmt.Errorf("pointstore: ToModel: building reuse cache: %w", err)
		}
		s.reuseCache = cache
		s.knownShingle = append([]float64(nil), st.InternalShingle...)
	}
	return s, nil
}

// plainEncode packs ints as fixed-width little-endian int64s.
func plainEncode(xs []int) []byte {
	out := make([]byte, 8*len(xs))
	for i, x := range xs {
		binary.LittleEndian.PutUint64(out[i*8:], uint64(int64(x)))
	}
	return out
}

func plainDecode(b []byte) []int {
	out := make([]int, len(b)/8)
	for i := range out {
		out[i] = int(int64(binary.LittleEndian.Uint64(b[i*8:])))
	}
	return out
}

// deltaVarintEncode packs xs as zigzag-varint deltas from the previous
// element (first element delta'd from zero), which compresses well for
// the locationList/refCount arrays' typically-small, slowly-changing
// values.
func deltaVarintEncode(xs []int) []byte {
	buf := make([]byte, 0, len(xs)*2)
	var prev int64
	scratch := make([]byte, binary.MaxVarintLen64)
	for _, x := range xs {
		delta := int64(x) - prev
		n := binary.PutVarint(scratch, delta)
		buf = append(buf, scratch[:n]...)
		prev = int64(x)
	}
	return buf
}

func deltaVarintDecode(b []byte) ([]int, error) {
	var out []int
	var prev int64
	for len(b) > 0 {
		delta, n := binary.Varint(b)
		if n <= 0 {
			return nil, fmt.Errorf("pointstore: deltaVarintDecode: malformed varint")
		}
		b = b[n:]
		prev += delta
		out = append(out, int(prev))
	}
	return out, nil
}
