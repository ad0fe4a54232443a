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

package visitors

import (
	"github.com/cutforest/rcforest"
	"github.com/cutforest/rcforest/core"
)

// ImputeVisitor imputes a query point's missing (NaN) coordinates by
// forking at every cut along a missing dimension and keeping whichever
// branch's leaf lies closest, in the observed coordinates, to the query.
// Its result is that leaf's stored point, observed coordinates included.
type ImputeVisitor struct {
	query   rcforest.Point
	missing map[int]bool

	found    bool
	bestDist float64
	best     rcforest.Point
}

// ImputeVisitorFactory builds a fresh ImputeVisitor for query, treating
// the dimensions in missing as unknown (query must hold NaN there).
func ImputeVisitorFactory(query rcforest.Point, missing []int) core.MultiVisitorFactory[rcforest.Point] {
	missingSet := make(map[int]bool, len(missing))
	for _, d := range missing {
		missingSet[d] = true
	}
	return func() core.MultiVisitor[rcforest.Point] {
		return &ImputeVisitor{query: query, missing: missingSet}
	}
}

func (v *ImputeVisitor) Accept(n core.NodeView, depth int) {}

func (v *ImputeVisitor) AcceptLeaf(n core.NodeView, depth int) {
	p, err := n.LeafPoint()
	if err != nil {
		return
	}
	d := observedDistance(v.query, p, v.missing)
	if !v.found || d < v.bestDist {
		v.found = true
		v.bestDist = d
		v.best = p
	}
}

func (v *ImputeVisitor) GetResult() rcforest.Point { return v.best }

// Trigger forks whenever the cut is on a dimension the query is missing:
// neither branch can be ruled out without the real coordinate.
func (v *ImputeVisitor) Trigger(n core.NodeView) bool {
	return v.missing[n.Cut().Dim]
}

func (v *ImputeVisitor) NewCopy() core.MultiVisitor[rcforest.Point] {
	return &ImputeVisitor{query: v.query, missing: v.missing}
}

func (v *ImputeVisitor) Combine(other core.MultiVisitor[rcforest.Point]) {
	o, ok := other.(*ImputeVisitor)
	if !ok || !o.found {
		return
	}
	if !v.found || o.bestDist < v.bestDist {
		v.found = true
		v.bestDist = o.bestDist
		v.best = o.best
	}
}

// observedDistance returns the squared Euclidean distance between a and b
// restricted to dimensions not in missing.
func observedDistance(a, b rcforest.Point, missing map[int]bool) float64 {
	var sum float64
	for i := range a {
		if missing[i] {
			continue
		}
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
