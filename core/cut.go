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

package core

import (
	"errors"
	"math"

	"github.com/cutforest/rcforest"
)

// Cut is a (dimension, value) split: x is on the left iff x[Dim] <= Value.
// Ties go left; this is a fixed policy that traversal and insertion both
// depend on.
type Cut struct {
	Dim   int
	Value float64
}

// LeftOf reports whether p falls on the left side of c.
func (c Cut) LeftOf(p rcforest.Point) bool {
	return p[c.Dim] <= c.Value
}

// errDegenerateBox is returned internally when randomCut is asked to cut a
// zero-range box; such a box cannot be split. Tree.insert handles an equal
// point before any cut is drawn, so Tree.splitAt reports this as an error.
var errDegenerateBox = errors.New("core: degenerate box has no cut")

// randomCut draws a cut on box using rng, following spec's random-cut
// construction: scale a uniform draw by the box's total range, then walk
// dimensions accumulating width until the running sum exceeds the scaled
// draw.
func randomCut(rng RNG, box BoundingBox) (Cut, error) {
	total := box.TotalRange()
	if total <= 0 {
		return Cut{}, errDegenerateBox
	}
	u := rng.NextFloat64()
	t := u * total
	var prefix float64
	d := box.Dimension()
	for k := 0; k < d; k++ {
		width := box.Max(k) - box.Min(k)
		if prefix+width > t {
			value := box.Min(k) + (t - prefix)
			if value >= box.Max(k) {
				value = box.Max(k)
				// clip strictly below max so leftOf splits something
				value = prevFloat(value)
			}
			if value < box.Min(k) {
				value = box.Min(k)
			}
			return Cut{Dim: k, Value: value}, nil
		}
		prefix += width
	}
	// Floating point rounding can leave t fractionally past the last
	// dimension's prefix sum; fall back to the final non-degenerate
	// dimension found.
	for k := d - 1; k >= 0; k-- {
		if box.Max(k) > box.Min(k) {
			return Cut{Dim: k, Value: prevFloat(box.Max(k))}, nil
		}
	}
	return Cut{}, errDegenerateBox
}

// prevFloat returns the largest representable float64 strictly less than
// v, used to keep a cut value inside [min, max) as spec requires.
func prevFloat(v float64) float64 {
	if v == 0 {
		return -math.SmallestNonzeroFloat64
	}
	bits := math.Float64bits(v)
	if v > 0 {
		bits--
	} else {
		bits++
	}
	return math.Float64frombits(bits)
}
