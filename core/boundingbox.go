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
	"fmt"

	"github.com/cutforest/rcforest"
)

// BoundingBox is an axis-aligned min/max box over a finite set of points.
// It is treated as a value type: every operation returns a new box rather
// than mutating the receiver. The tree's bounding-box cache keeps its own
// mutable working copies internally (see node.go) and only ever exposes
// BoundingBox values to visitors.
type BoundingBox struct {
	min, max rcforest.Point
}

// NewBoundingBox builds the degenerate box [p, p].
func NewBoundingBox(p rcforest.Point) BoundingBox {
	min := make(rcforest.Point, len(p))
	max := make(rcforest.Point, len(p))
	copy(min, p)
	copy(max, p)
	return BoundingBox{min: min, max: max}
}

// Dimension returns the box's dimensionality.
func (b BoundingBox) Dimension() int { return len(b.min) }

// Min returns the i-th coordinate of the box's minimum corner.
func (b BoundingBox) Min(i int) float64 { return b.min[i] }

// Max returns the i-th coordinate of the box's maximum corner.
func (b BoundingBox) Max(i int) float64 { return b.max[i] }

// MergedWithPoint returns the smallest box enclosing b and p.
func (b BoundingBox) MergedWithPoint(p rcforest.Point) (BoundingBox, error) {
	if len(p) != len(b.min) {
		return BoundingBox{}, fmt.Errorf("core: merge point dim %d != box dim %d: %w", len(p), len(b.min), rcforest.ErrInvalidDimension)
	}
	min := make(rcforest.Point, len(b.min))
	max := make(rcforest.Point, len(b.max))
	for i := range b.min {
		min[i] = minF(b.min[i], p[i])
		max[i] = maxF(b.max[i], p[i])
	}
	return BoundingBox{min: min, max: max}, nil
}

// MergedWith returns the smallest box enclosing b and other.
func (b BoundingBox) MergedWith(other BoundingBox) (BoundingBox, error) {
	if other.Dimension() != b.Dimension() {
		return BoundingBox{}, fmt.Errorf("core: merge box dim %d != box dim %d: %w", other.Dimension(), b.Dimension(), rcforest.ErrInvalidDimension)
	}
	min := make(rcforest.Point, len(b.min))
	max := make(rcforest.Point, len(b.max))
	for i := range b.min {
		min[i] = minF(b.min[i], other.min[i])
		max[i] = maxF(b.max[i], other.max[i])
	}
	return BoundingBox{min: min, max: max}, nil
}

// Contains reports whether p lies within b on every dimension.
func (b BoundingBox) Contains(p rcforest.Point) bool {
	if len(p) != len(b.min) {
		return false
	}
	for i := range b.min {
		if p[i] < b.min[i] || p[i] > b.max[i] {
			return false
		}
	}
	return true
}

// ContainsBox reports whether other is entirely enclosed by b.
func (b BoundingBox) ContainsBox(other BoundingBox) bool {
	if other.Dimension() != b.Dimension() {
		return false
	}
	for i := range b.min {
		if other.min[i] < b.min[i] || other.max[i] > b.max[i] {
			return false
		}
	}
	return true
}

// TotalRange returns sum_i (max[i]-min[i]), always >= 0.
func (b BoundingBox) TotalRange() float64 {
	var sum float64
	for i := range b.min {
		sum += b.max[i] - b.min[i]
	}
	return sum
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
