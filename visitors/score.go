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

// Package visitors provides the concrete single- and multi-visitor
// implementations a forest is actually queried with: anomaly scoring and
// missing-coordinate imputation.
package visitors

import (
	"math"

	"github.com/cutforest/rcforest/core"
)

// AnomalyScoreVisitor estimates one tree's contribution to a point's
// anomaly score from its root-to-leaf path: nodes near the root, whose
// mass reflects how much of the tree's history a point's path diverges
// from, are weighted against the node's depth so a point isolated high up
// in a sparse region scores higher than one nestled deep among many
// duplicates.
type AnomalyScoreVisitor struct {
	sum   float64
	count int
}

// NewAnomalyScoreVisitor returns a fresh visitor for one traversal.
func NewAnomalyScoreVisitor() *AnomalyScoreVisitor { return &AnomalyScoreVisitor{} }

// AnomalyScoreVisitorFactory builds a fresh AnomalyScoreVisitor, for use
// with core.Traverse or a forest executor's Traverse.
func AnomalyScoreVisitorFactory() core.Visitor[float64] { return NewAnomalyScoreVisitor() }

func (v *AnomalyScoreVisitor) Accept(n core.NodeView, depth int) {
	v.accumulate(n.Mass(), depth)
}

func (v *AnomalyScoreVisitor) AcceptLeaf(n core.NodeView, depth int) {
	v.accumulate(n.Mass(), depth)
}

func (v *AnomalyScoreVisitor) accumulate(mass, depth int) {
	v.sum += math.Log2(float64(mass)+1) / math.Log2(float64(depth)+2)
	v.count++
}

// GetResult returns the path's average depth-weighted log-mass term, the
// tree's contribution to the point's overall forest anomaly score.
func (v *AnomalyScoreVisitor) GetResult() float64 {
	if v.count == 0 {
		return 0
	}
	return v.sum / float64(v.count)
}
