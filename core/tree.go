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

// Package core implements the random cut tree: incremental insert/delete,
// the bounding-box cache discipline, and the visitor traversal protocol
// described by the forest specification.
package core

import (
	"fmt"

	"github.com/cutforest/rcforest"
	"k8s.io/klog/v2"
)

// PointSource resolves a handle to its point. pointstore.Store implements
// this structurally; core does not import pointstore to avoid a cycle —
// the forest package wires the two together.
type PointSource interface {
	Get(h rcforest.Handle) (rcforest.Point, error)
}

// Option configures a Tree at construction time.
type Option func(*config)

type config struct {
	dimension                int
	centerOfMassEnabled      bool
	storeSequenceIndexes     bool
	boundingBoxCacheFraction float64
}

// WithCenterOfMass enables mass-weighted centroid tracking at every
// internal node.
func WithCenterOfMass(enabled bool) Option {
	return func(c *config) { c.centerOfMassEnabled = enabled }
}

// WithStoreSequenceIndexes enables the per-leaf sequence-index multiset.
func WithStoreSequenceIndexes(enabled bool) Option {
	return func(c *config) { c.storeSequenceIndexes = enabled }
}

// WithBoundingBoxCacheFraction sets the fraction (clamped to [0,1]) of
// internal nodes, closest to the root in BFS order, that cache their box.
func WithBoundingBoxCacheFraction(f float64) Option {
	return func(c *config) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c.boundingBoxCacheFraction = f
	}
}

// Tree is a random cut tree over points resolved through store. It is not
// safe for concurrent use: per spec, a single component serializes all
// operations on its tree.
type Tree struct {
	dimension int
	store     PointSource
	rng       RNG
	cfg       config

	nodes    []node
	freeList []nodeID
	root     nodeID

	internalCount int
	inTraversal   bool
}

// NewTree constructs an empty tree of the given dimension, resolving
// points through store and drawing cuts from rng.
func NewTree(dimension int, store PointSource, rng RNG, opts ...Option) *Tree {
	cfg := config{
		dimension:                dimension,
		boundingBoxCacheFraction: 1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Tree{
		dimension: dimension,
		store:     store,
		rng:       rng,
		cfg:       cfg,
		root:      noNode,
	}
}

// SetBoundingBoxCacheFraction changes the cache budget and immediately
// retargets which nodes cache their box.
func (t *Tree) SetBoundingBoxCacheFraction(f float64) {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	t.cfg.boundingBoxCacheFraction = f
	t.retargetBoundingBoxCache()
}

// IsEmpty reports whether the tree holds no points.
func (t *Tree) IsEmpty() bool { return t.root == noNode }

// Size returns the root's mass, or 0 for an empty tree.
func (t *Tree) Size() int {
	if t.root == noNode {
		return 0
	}
	return t.nodes[t.root].mass
}

func (t *Tree) allocLeaf(h rcforest.Handle, seqIdx int64, p rcforest.Point) nodeID {
	n := node{
		isLeaf: true,
		handle: h,
		parent: noNode,
		mass:   1,
	}
	if t.cfg.storeSequenceIndexes {
		n.seqIdxs = []int64{seqIdx}
	}
	if t.cfg.centerOfMassEnabled {
		n.com = append(rcforest.Point(nil), p...)
	}
	return t.alloc(n)
}

func (t *Tree) allocInternal(cut Cut, box BoundingBox, left, right nodeID, mass int, com rcforest.Point) nodeID {
	n := node{
		isLeaf:    false,
		cut:       cut,
		box:       box,
		boxCached: true,
		left:      left,
		right:     right,
		parent:    noNode,
		mass:      mass,
		com:       com,
	}
	id := t.alloc(n)
	t.nodes[left].parent = id
	t.nodes[right].parent = id
	t.internalCount++
	return id
}

func (t *Tree) alloc(n node) nodeID {
	if l := len(t.freeList); l > 0 {
		id := t.freeList[l-1]
		t.freeList = t.freeList[:l-1]
		t.nodes[id] = n
		return id
	}
	t.nodes = append(t.nodes, n)
	return nodeID(len(t.nodes) - 1)
}

func (t *Tree) freeNode(id nodeID) {
	if !t.nodes[id].isLeaf {
		t.internalCount--
	}
	t.nodes[id] = node{}
	t.freeList = append(t.freeList, id)
}

// boxOf returns id's bounding box: the cached value if present, otherwise
// computed by merging descendant boxes (leaves resolve to their degenerate
// point box through the point store).
func (t *Tree) boxOf(id nodeID) (BoundingBox, error) {
	n := &t.nodes[id]
	if n.isLeaf {
		p, err := t.store.Get(n.handle)
		if err != nil {
			return BoundingBox{}, err
		}
		return NewBoundingBox(p), nil
	}
	if n.boxCached {
		return n.box, nil
	}
	lb, err := t.boxOf(n.left)
	if err != nil {
		return BoundingBox{}, err
	}
	rb, err := t.boxOf(n.right)
	if err != nil {
		return BoundingBox{}, err
	}
	return lb.MergedWith(rb)
}

// retargetBoundingBoxCache recomputes, in BFS order from the root, which
// internal nodes cache their box, honoring the current cache-fraction
// budget. Called after every structural change (split/collapse) and
// whenever the fraction is changed at runtime.
func (t *Tree) retargetBoundingBoxCache() {
	if t.root == noNode {
		return
	}
	budget := int(t.cfg.boundingBoxCacheFraction * float64(t.internalCount))
	queue := []nodeID{t.root}
	kept := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := &t.nodes[id]
		if n.isLeaf {
			continue
		}
		if kept < budget {
			box, err := t.boxOf(id)
			if err != nil {
				klog.Warningf("core: retargetBoundingBoxCache: boxOf(%d): %v", id, err)
				n.boxCached = false
			} else {
				n.box = box
				n.boxCached = true
				kept++
			}
		} else {
			n.boxCached = false
		}
		queue = append(queue, n.left, n.right)
	}
}

// AddPoint inserts the point resolved by h at seqIdx, per spec's
// incremental insertion algorithm (§4.D).
func (t *Tree) AddPoint(h rcforest.Handle, seqIdx int64) error {
	if t.inTraversal {
		return rcforest.ErrCacheState
	}
	p, err := t.store.Get(h)
	if err != nil {
		return fmt.Errorf("core: AddPoint: resolve handle %d: %w", h, err)
	}
	if len(p) != t.dimension {
		return fmt.Errorf("core: AddPoint: point dim %d != tree dim %d: %w", len(p), t.dimension, rcforest.ErrInvalidDimension)
	}
	if rcforest.HasNaN(p) {
		return fmt.Errorf("core: AddPoint: %w", rcforest.ErrInvalidPoint)
	}
	if t.root == noNode {
		t.root = t.allocLeaf(h, seqIdx, p)
		return nil
	}
	newRoot, _, err := t.insert(t.root, p, h, seqIdx)
	if err != nil {
		return err
	}
	t.root = newRoot
	t.nodes[t.root].parent = noNode
	t.retargetBoundingBoxCache()
	return nil
}

// insert recursively descends/splits, returning the (possibly new) node id
// occupying this position and whether the subtree's mass grew.
func (t *Tree) insert(cur nodeID, p rcforest.Point, h rcforest.Handle, seqIdx int64) (nodeID, bool, error) {
	n := &t.nodes[cur]
	if n.isLeaf {
		leafPoint, err := t.store.Get(n.handle)
		if err != nil {
			return noNode, false, err
		}
		if rcforest.Equal(leafPoint, p) {
			n.mass++
			if t.cfg.storeSequenceIndexes {
				n.seqIdxs = append(n.seqIdxs, seqIdx)
			}
			if t.cfg.centerOfMassEnabled {
				n.com = comAfterAdd(n.com, n.mass-1, p)
			}
			return cur, true, nil
		}
		return t.splitAt(cur, NewBoundingBox(leafPoint), p, h, seqIdx)
	}

	box, err := t.boxOf(cur)
	if err != nil {
		return noNode, false, err
	}
	merged, err := box.MergedWithPoint(p)
	if err != nil {
		return noNode, false, err
	}
	if boxEqual(merged, box) {
		return t.descend(cur, p, h, seqIdx)
	}
	newCur, split, err := t.splitAt(cur, box, p, h, seqIdx)
	if err != nil {
		return noNode, false, err
	}
	if split {
		return newCur, true, nil
	}
	return t.descend(cur, p, h, seqIdx)
}

// descend moves into the child on p's side of cur's existing cut,
// recurses, and propagates mass/center-of-mass/box-invalidation upward.
func (t *Tree) descend(cur nodeID, p rcforest.Point, h rcforest.Handle, seqIdx int64) (nodeID, bool, error) {
	n := &t.nodes[cur]
	goLeft := n.cut.LeftOf(p)
	childID := n.right
	if goLeft {
		childID = n.left
	}
	newChild, changed, err := t.insert(childID, p, h, seqIdx)
	if err != nil {
		return noNode, false, err
	}
	if goLeft {
		n.left = newChild
	} else {
		n.right = newChild
	}
	t.nodes[newChild].parent = cur
	if changed {
		oldMass := n.mass
		n.mass++
		if t.cfg.centerOfMassEnabled {
			n.com = comAfterAdd(n.com, oldMass, p)
		}
		if !n.boxCached || !n.box.Contains(p) {
			n.boxCached = false
		}
	}
	return cur, changed, nil
}

// splitAt attempts to separate p from the subtree currently at cur (whose
// enclosing box is box) via a freshly drawn cut. If the cut does not
// separate them, split is false and the caller should descend instead.
func (t *Tree) splitAt(cur nodeID, box BoundingBox, p rcforest.Point, h rcforest.Handle, seqIdx int64) (nodeID, bool, error) {
	merged, err := box.MergedWithPoint(p)
	if err != nil {
		return noNode, false, err
	}
	cut, err := randomCut(t.rng, merged)
	if err != nil {
		// Degenerate merge: box and p occupy the same single point on
		// every dimension. This can only happen if cur is a leaf with
		// the same resolved point, which insert() already special-cases,
		// so reaching it here indicates a corrupt arena.
		return noNode, false, fmt.Errorf("core: splitAt: degenerate merge box on distinct points: %v", err)
	}
	pLeft := cut.LeftOf(p)
	var separates bool
	if pLeft {
		separates = box.Min(cut.Dim) > cut.Value
	} else {
		separates = box.Max(cut.Dim) <= cut.Value
	}
	if !separates {
		return noNode, false, nil
	}

	leafID := t.allocLeaf(h, seqIdx, p)
	var left, right nodeID
	if pLeft {
		left, right = leafID, cur
	} else {
		left, right = cur, leafID
	}

	subMass := t.nodes[cur].mass
	var newCom rcforest.Point
	if t.cfg.centerOfMassEnabled {
		subCom := t.subtreeCOM(cur)
		newCom = comAfterAdd(subCom, subMass, p)
	}
	newID := t.allocInternal(cut, merged, left, right, subMass+1, newCom)
	return newID, true, nil
}

// subtreeCOM returns id's center of mass (the leaf's point itself for a
// leaf, since a leaf is its own degenerate centroid).
func (t *Tree) subtreeCOM(id nodeID) rcforest.Point {
	n := &t.nodes[id]
	if n.isLeaf {
		p, err := t.store.Get(n.handle)
		if err != nil {
			klog.Warningf("core: subtreeCOM: resolve handle %d: %v", n.handle, err)
			return nil
		}
		return p
	}
	return n.com
}

// DeletePoint removes one occurrence of point (the one inserted at
// seqIdx), per spec's deletion algorithm (§4.D).
func (t *Tree) DeletePoint(point rcforest.Point, seqIdx int64) error {
	if t.inTraversal {
		return rcforest.ErrCacheState
	}
	if t.root == noNode {
		return fmt.Errorf("core: DeletePoint: %w", rcforest.ErrPointNotFound)
	}
	newRoot, handle, err := t.deleteAt(t.root, point, seqIdx)
	if err != nil {
		return err
	}
	t.root = newRoot
	if t.root != noNode {
		t.nodes[t.root].parent = noNode
	}
	t.retargetBoundingBoxCache()
	if ds, ok := t.store.(interface {
		DecRef(rcforest.Handle) (int, error)
	}); ok {
		if _, err := ds.DecRef(handle); err != nil {
			return fmt.Errorf("core: DeletePoint: decRef handle %d: %w", handle, err)
		}
	}
	return nil
}

// deleteAt recursively locates point, decrements mass, and collapses a
// zero-mass leaf into its sibling, returning the node id that should now
// occupy this position (noNode if this position became empty) and the
// handle whose store reference should be released by the caller.
func (t *Tree) deleteAt(cur nodeID, point rcforest.Point, seqIdx int64) (nodeID, rcforest.Handle, error) {
	n := &t.nodes[cur]
	if n.isLeaf {
		leafPoint, err := t.store.Get(n.handle)
		if err != nil {
			return noNode, rcforest.InvalidHandle, err
		}
		if !rcforest.Equal(leafPoint, point) {
			return noNode, rcforest.InvalidHandle, fmt.Errorf("core: deleteAt: %w", rcforest.ErrPointNotFound)
		}
		if t.cfg.storeSequenceIndexes {
			if !n.removeSeq(seqIdx) {
				return noNode, rcforest.InvalidHandle, fmt.Errorf("core: deleteAt: %w", rcforest.ErrSequenceNotFound)
			}
		}
		handle := n.handle
		n.mass--
		if n.mass > 0 {
			if t.cfg.centerOfMassEnabled {
				// A leaf's com is just its own point; mass changes alone
				// don't change the resolved coordinate, so nothing to
				// recompute here.
				_ = point
			}
			return cur, handle, nil
		}
		t.freeNode(cur)
		return noNode, handle, nil
	}

	box, err := t.boxOf(cur)
	if err != nil {
		return noNode, rcforest.InvalidHandle, err
	}
	if !box.Contains(point) {
		return noNode, rcforest.InvalidHandle, fmt.Errorf("core: deleteAt: %w", rcforest.ErrPointNotFound)
	}
	goLeft := n.cut.LeftOf(point)
	childID, siblingID := n.right, n.left
	if goLeft {
		childID, siblingID = n.left, n.right
	}
	newChild, handle, err := t.deleteAt(childID, point, seqIdx)
	if err != nil {
		return noNode, rcforest.InvalidHandle, err
	}
	if newChild == noNode {
		t.freeNode(cur)
		t.nodes[siblingID].parent = noNode
		return siblingID, handle, nil
	}
	if goLeft {
		n.left = newChild
	} else {
		n.right = newChild
	}
	t.nodes[newChild].parent = cur
	n.mass--
	if t.cfg.centerOfMassEnabled && n.mass > 0 {
		n.com = comAfterRemove(n.com, n.mass+1, point)
	}
	n.boxCached = false
	return cur, handle, nil
}
