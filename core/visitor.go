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

// NodeView is the read-only facade a visitor sees at each step of a
// traversal. It is backed directly by the tree's arena; it must not be
// retained past the traversal call that produced it.
type NodeView interface {
	// IsLeaf reports whether this view is of a leaf.
	IsLeaf() bool
	// Cut returns the node's cut. Only meaningful when !IsLeaf().
	Cut() Cut
	// Box returns the node's bounding box, computed on demand when not
	// cached. For a leaf it is the degenerate box of the leaf's point.
	Box() (BoundingBox, error)
	// Mass returns the subtree occurrence count.
	Mass() int
	// LeafPoint returns the leaf's resolved point. Only meaningful when
	// IsLeaf().
	LeafPoint() (rcforest.Point, error)
	// LeafHandle returns the leaf's point handle. Only meaningful when
	// IsLeaf().
	LeafHandle() rcforest.Handle
	// CenterOfMass returns the subtree's mass-weighted centroid, or nil
	// if the tree was not configured to track it.
	CenterOfMass() rcforest.Point
	// SequenceIndexes returns the leaf's sequence-index multiset, or nil
	// if the tree does not store them or this view is not a leaf.
	SequenceIndexes() []int64
	// LeftOf reports whether p falls on the left side of this node's
	// cut. Only meaningful when !IsLeaf().
	LeftOf(p rcforest.Point) bool
}

// Visitor computes a result R by walking root-to-leaf.
type Visitor[R any] interface {
	// Accept is called at every internal node on the path, in root-to-leaf
	// order, with the node's depth (root is depth 0).
	Accept(n NodeView, depth int)
	// AcceptLeaf is called once, at the path's terminal leaf.
	AcceptLeaf(n NodeView, depth int)
	// GetResult returns the visitor's final value.
	GetResult() R
}

// VisitorFactory builds a fresh Visitor for one traversal call.
type VisitorFactory[R any] func() Visitor[R]

// MultiVisitor additionally supports forking at nodes whose cut the query
// cannot resolve to one side (e.g. a missing/NaN coordinate).
type MultiVisitor[R any] interface {
	Visitor[R]
	// Trigger reports whether the traversal should fork at n: if true,
	// NewCopy is called and each copy descends into one child; if false,
	// a single copy (the receiver) descends into the child on the
	// query's side.
	Trigger(n NodeView) bool
	// NewCopy returns an independent copy of the visitor's current state,
	// used to explore the other branch after a fork.
	NewCopy() MultiVisitor[R]
	// Combine merges other (the result of exploring the forked branch)
	// into the receiver. Called after both forked branches return.
	Combine(other MultiVisitor[R])
}

// MultiVisitorFactory builds a fresh MultiVisitor for one traversal call.
type MultiVisitorFactory[R any] func() MultiVisitor[R]
