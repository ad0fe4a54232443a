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

// nodeView is the concrete NodeView backed directly by a tree's arena.
type nodeView struct {
	t  *Tree
	id nodeID
}

func (v nodeView) IsLeaf() bool { return v.t.nodes[v.id].isLeaf }

func (v nodeView) Cut() Cut { return v.t.nodes[v.id].cut }

func (v nodeView) Box() (BoundingBox, error) { return v.t.boxOf(v.id) }

func (v nodeView) Mass() int { return v.t.nodes[v.id].mass }

func (v nodeView) LeafPoint() (rcforest.Point, error) {
	n := &v.t.nodes[v.id]
	return v.t.store.Get(n.handle)
}

func (v nodeView) LeafHandle() rcforest.Handle { return v.t.nodes[v.id].handle }

func (v nodeView) CenterOfMass() rcforest.Point { return v.t.nodes[v.id].com }

func (v nodeView) SequenceIndexes() []int64 { return v.t.nodes[v.id].seqIdxs }

func (v nodeView) LeftOf(p rcforest.Point) bool { return v.t.nodes[v.id].cut.LeftOf(p) }

// Root returns a view of the tree's root, or ok=false for an empty tree.
// It exists mainly to let tests and debugging tools walk a tree's shape
// without a full traversal.
func (t *Tree) Root() (view NodeView, ok bool) {
	if t.root == noNode {
		return nil, false
	}
	return nodeView{t: t, id: t.root}, true
}

// Children returns v's left and right child views. ok is false if v is not
// a NodeView produced by t, or if v is a leaf.
func (t *Tree) Children(v NodeView) (left, right NodeView, ok bool) {
	nv, isOurs := v.(nodeView)
	if !isOurs || nv.t != t || nv.IsLeaf() {
		return nil, nil, false
	}
	n := &t.nodes[nv.id]
	return nodeView{t: t, id: n.left}, nodeView{t: t, id: n.right}, true
}

// Traverse walks root-to-leaf along point's path, calling visitorFactory's
// visitor at every internal node and finally at the leaf, per spec §4.D.
func Traverse[R any](t *Tree, point rcforest.Point, factory VisitorFactory[R]) (R, error) {
	var zero R
	if t.root == noNode {
		return zero, rcforest.ErrEmptyTree
	}
	if len(point) != t.dimension {
		return zero, fmt.Errorf("core: Traverse: point dim %d != tree dim %d: %w", len(point), t.dimension, rcforest.ErrInvalidDimension)
	}
	t.inTraversal = true
	defer func() { t.inTraversal = false }()

	v := factory()
	depth := 0
	cur := t.root
	for {
		n := &t.nodes[cur]
		view := nodeView{t: t, id: cur}
		if n.isLeaf {
			v.AcceptLeaf(view, depth)
			return v.GetResult(), nil
		}
		v.Accept(view, depth)
		if n.cut.LeftOf(point) {
			cur = n.left
		} else {
			cur = n.right
		}
		depth++
	}
}

// TraverseMulti walks point's path with forking at nodes the visitor
// chooses to Trigger on, per spec §4.D's multi-visitor protocol.
func TraverseMulti[R any](t *Tree, point rcforest.Point, factory MultiVisitorFactory[R]) (R, error) {
	var zero R
	if t.root == noNode {
		return zero, rcforest.ErrEmptyTree
	}
	if len(point) != t.dimension {
		return zero, fmt.Errorf("core: TraverseMulti: point dim %d != tree dim %d: %w", len(point), t.dimension, rcforest.ErrInvalidDimension)
	}
	t.inTraversal = true
	defer func() { t.inTraversal = false }()

	v := factory()
	result, err := traverseMultiAt[R](t, t.root, 0, point, v)
	if err != nil {
		return zero, err
	}
	return result.GetResult(), nil
}

func traverseMultiAt[R any](t *Tree, cur nodeID, depth int, point rcforest.Point, v MultiVisitor[R]) (MultiVisitor[R], error) {
	n := &t.nodes[cur]
	view := nodeView{t: t, id: cur}
	if n.isLeaf {
		v.AcceptLeaf(view, depth)
		return v, nil
	}
	v.Accept(view, depth)
	if !v.Trigger(view) {
		var next nodeID
		if n.cut.LeftOf(point) {
			next = n.left
		} else {
			next = n.right
		}
		return traverseMultiAt[R](t, next, depth+1, point, v)
	}
	other := v.NewCopy()
	left, err := traverseMultiAt[R](t, n.left, depth+1, point, v)
	if err != nil {
		return nil, err
	}
	right, err := traverseMultiAt[R](t, n.right, depth+1, point, other)
	if err != nil {
		return nil, err
	}
	left.Combine(right)
	return left, nil
}
