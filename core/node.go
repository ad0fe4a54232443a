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

import "github.com/cutforest/rcforest"

// nodeID indexes into Tree.nodes. Representing parent/left/right as
// indices into a flat arena (rather than pointer-chasing structs) avoids a
// reference cycle in the ownership graph and keeps traversal cache
// friendly, per the design notes: the parent back-link is a relation for
// lookup, never an ownership edge.
type nodeID int32

// noNode is the sentinel for "no such node".
const noNode nodeID = -1

// node is a tagged variant: either an internal split node (cut, cached or
// absent box, two children) or a leaf (point handle, sequence-index
// multiset). isLeaf is the discriminant. Leaves and internals share the
// same id space so the parent back-pointer is uniform.
type node struct {
	isLeaf bool

	// internal-node fields
	cut       Cut
	boxCached bool
	box       BoundingBox
	left      nodeID
	right     nodeID

	// leaf fields
	handle  rcforest.Handle
	seqIdxs []int64

	// shared fields
	parent nodeID
	mass   int
	com    rcforest.Point // nil when centerOfMass is disabled
}

// removeSeq deletes seqIdx from the leaf's multiset, reporting whether it
// was present.
func (n *node) removeSeq(seqIdx int64) bool {
	for i, s := range n.seqIdxs {
		if s == seqIdx {
			n.seqIdxs = append(n.seqIdxs[:i], n.seqIdxs[i+1:]...)
			return true
		}
	}
	return false
}

// hasSeq reports whether seqIdx is present in the leaf's multiset.
func (n *node) hasSeq(seqIdx int64) bool {
	for _, s := range n.seqIdxs {
		if s == seqIdx {
			return true
		}
	}
	return false
}

func boxEqual(a, b BoundingBox) bool {
	if a.Dimension() != b.Dimension() {
		return false
	}
	for i := 0; i < a.Dimension(); i++ {
		if a.Min(i) != b.Min(i) || a.Max(i) != b.Max(i) {
			return false
		}
	}
	return true
}

// comAfterAdd returns the updated center-of-mass after adding p (weight 1)
// to a subtree that previously had center-of-mass oldCom and mass oldMass.
func comAfterAdd(oldCom rcforest.Point, oldMass int, p rcforest.Point) rcforest.Point {
	newMass := oldMass + 1
	out := make(rcforest.Point, len(p))
	if oldCom == nil {
		copy(out, p)
		return out
	}
	for i := range p {
		out[i] = (oldCom[i]*float64(oldMass) + p[i]) / float64(newMass)
	}
	return out
}

// comAfterRemove returns the updated center-of-mass after removing one
// occurrence of p (weight 1) from a subtree that previously had
// center-of-mass oldCom, mass oldMass (>1, since mass reaching zero means
// the subtree itself is gone and has no center-of-mass).
func comAfterRemove(oldCom rcforest.Point, oldMass int, p rcforest.Point) rcforest.Point {
	newMass := oldMass - 1
	out := make(rcforest.Point, len(p))
	for i := range p {
		out[i] = (oldCom[i]*float64(oldMass) - p[i]) / float64(newMass)
	}
	return out
}
