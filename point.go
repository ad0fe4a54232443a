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

import "math"

// Point is a fixed-dimension vector of 64-bit floats. The dimension is an
// invariant of the enclosing forest/tree/point store; nothing in this type
// enforces it.
type Point []float64

// Handle is an opaque non-negative index into a point store. It is stable
// across compactions from a tree's perspective.
type Handle int32

// InvalidHandle is the sentinel returned where no handle applies.
const InvalidHandle Handle = -1

// CleanCopy returns a copy of p with every -0.0 coordinate coerced to +0.0.
// This mirrors the forest executor's clean-copy step: a point received from
// a caller must not leak the sign of a negative zero into equality
// comparisons or box bookkeeping elsewhere in the tree.
func CleanCopy(p Point) Point {
	out := make(Point, len(p))
	for i, v := range p {
		if v == 0 {
			out[i] = 0
		} else {
			out[i] = v
		}
	}
	return out
}

// HasNaN reports whether p contains any NaN coordinate. Inserts must reject
// such points (ErrInvalidPoint); query paths use NaN as a "missing"
// marker and are expected to call this only for insert validation.
func HasNaN(p Point) bool {
	for _, v := range p {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Equal reports whether a and b have the same length and are bitwise equal
// after clean-copying (so -0.0 and +0.0 compare equal). NaN never equals
// NaN under this definition, matching IEEE-754 semantics used throughout
// the tree's point-identity checks.
func Equal(a, b Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
