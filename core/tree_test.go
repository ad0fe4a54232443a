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
	"math"
	"testing"

	"github.com/cutforest/rcforest"
)

// fakeStore is a minimal PointSource (plus DecRef, which Tree uses
// opportunistically) backed by a plain slice, for tests that don't need a
// real pointstore.Store.
type fakeStore struct {
	points  []rcforest.Point
	refs    []int
	decrefs []rcforest.Handle
}

func (s *fakeStore) admit(p rcforest.Point) rcforest.Handle {
	s.points = append(s.points, append(rcforest.Point(nil), p...))
	s.refs = append(s.refs, 1)
	return rcforest.Handle(len(s.points) - 1)
}

func (s *fakeStore) Get(h rcforest.Handle) (rcforest.Point, error) {
	if int(h) < 0 || int(h) >= len(s.points) {
		return nil, fmt.Errorf("fakeStore: bad handle %d", h)
	}
	return s.points[h], nil
}

func (s *fakeStore) DecRef(h rcforest.Handle) (int, error) {
	s.refs[h]--
	s.decrefs = append(s.decrefs, h)
	return s.refs[h], nil
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func mustBox(t *testing.T, v NodeView) BoundingBox {
	t.Helper()
	b, err := v.Box()
	if err != nil {
		t.Fatalf("Box(): %v", err)
	}
	return b
}

// buildScenario1 constructs the tree from spec §8 scenario 1.
func buildScenario1(t *testing.T) (*Tree, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	rng := NewDeterministicRNG(0.625, 0.5, 0.25)
	tree := NewTree(2, store, rng, WithCenterOfMass(true), WithStoreSequenceIndexes(true))

	inserts := []struct {
		p      rcforest.Point
		seqIdx int64
	}{
		{rcforest.Point{-1, -1}, 1},
		{rcforest.Point{1, 1}, 2},
		{rcforest.Point{-1, 0}, 3},
		{rcforest.Point{0, 1}, 4},
		{rcforest.Point{0, 1}, 5},
	}
	for _, ins := range inserts {
		h := store.admit(ins.p)
		if err := tree.AddPoint(h, ins.seqIdx); err != nil {
			t.Fatalf("AddPoint(%v,%d): %v", ins.p, ins.seqIdx, err)
		}
	}
	return tree, store
}

func TestScenario1Shape(t *testing.T) {
	tree, _ := buildScenario1(t)

	root, ok := tree.Root()
	if !ok {
		t.Fatal("expected non-empty tree")
	}
	if root.IsLeaf() {
		t.Fatal("expected root to be internal")
	}
	if c := root.Cut(); c.Dim != 1 || !near(c.Value, -0.5, 1e-9) {
		t.Fatalf("root cut = %+v, want (dim=1,value=-0.5)", c)
	}
	if root.Mass() != 5 {
		t.Fatalf("root mass = %d, want 5", root.Mass())
	}
	com := root.CenterOfMass()
	if !near(com[0], -0.2, 1e-9) || !near(com[1], 0.4, 1e-9) {
		t.Fatalf("root com = %v, want (-0.2,0.4)", com)
	}

	left, right, ok := tree.Children(root)
	if !ok {
		t.Fatal("expected root to have children")
	}
	if !left.IsLeaf() || left.Mass() != 1 {
		t.Fatalf("left child: leaf=%v mass=%d, want leaf mass 1", left.IsLeaf(), left.Mass())
	}
	lp, err := left.LeafPoint()
	if err != nil || !rcforest.Equal(lp, rcforest.Point{-1, -1}) {
		t.Fatalf("left leaf point = %v, err=%v, want (-1,-1)", lp, err)
	}

	if right.IsLeaf() {
		t.Fatal("expected right child to be internal")
	}
	if c := right.Cut(); c.Dim != 0 || !near(c.Value, 0.5, 1e-9) {
		t.Fatalf("right cut = %+v, want (dim=0,value=0.5)", c)
	}
	if right.Mass() != 4 {
		t.Fatalf("right mass = %d, want 4", right.Mass())
	}
	rcom := right.CenterOfMass()
	if !near(rcom[0], 0.0, 1e-9) || !near(rcom[1], 0.75, 1e-9) {
		t.Fatalf("right com = %v, want (0,0.75)", rcom)
	}

	rleft, rright, ok := tree.Children(right)
	if !ok {
		t.Fatal("expected right child to have children")
	}
	if !rright.IsLeaf() || rright.Mass() != 1 {
		t.Fatalf("right.right: leaf=%v mass=%d, want leaf mass 1", rright.IsLeaf(), rright.Mass())
	}
	rrp, _ := rright.LeafPoint()
	if !rcforest.Equal(rrp, rcforest.Point{1, 1}) {
		t.Fatalf("right.right point = %v, want (1,1)", rrp)
	}

	if rleft.IsLeaf() {
		t.Fatal("expected right.left to be internal")
	}
	if c := rleft.Cut(); c.Dim != 0 || !near(c.Value, -0.5, 1e-9) {
		t.Fatalf("right.left cut = %+v, want (dim=0,value=-0.5)", c)
	}
	if rleft.Mass() != 3 {
		t.Fatalf("right.left mass = %d, want 3", rleft.Mass())
	}
	blcom := rleft.CenterOfMass()
	if !near(blcom[0], -1.0/3, 1e-9) || !near(blcom[1], 2.0/3, 1e-9) {
		t.Fatalf("right.left com = %v, want (-1/3,2/3)", blcom)
	}

	bleft, bright, ok := tree.Children(rleft)
	if !ok {
		t.Fatal("expected right.left to have children")
	}
	if !bleft.IsLeaf() || bleft.Mass() != 1 {
		t.Fatalf("right.left.left mass = %d, want leaf mass 1", bleft.Mass())
	}
	blp, _ := bleft.LeafPoint()
	if !rcforest.Equal(blp, rcforest.Point{-1, 0}) {
		t.Fatalf("right.left.left point = %v, want (-1,0)", blp)
	}

	if !bright.IsLeaf() || bright.Mass() != 2 {
		t.Fatalf("right.left.right mass = %d, want leaf mass 2", bright.Mass())
	}
	brp, _ := bright.LeafPoint()
	if !rcforest.Equal(brp, rcforest.Point{0, 1}) {
		t.Fatalf("right.left.right point = %v, want (0,1)", brp)
	}
	seqs := bright.SequenceIndexes()
	if len(seqs) != 2 || !containsInt64(seqs, 4) || !containsInt64(seqs, 5) {
		t.Fatalf("right.left.right seqIdxs = %v, want {4,5}", seqs)
	}
}

func containsInt64(s []int64, v int64) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func TestScenario2DeleteInnerNode(t *testing.T) {
	tree, _ := buildScenario1(t)
	if err := tree.DeletePoint(rcforest.Point{-1, 0}, 3); err != nil {
		t.Fatalf("DeletePoint: %v", err)
	}
	root, _ := tree.Root()
	if root.Mass() != 4 {
		t.Fatalf("root mass after delete = %d, want 4", root.Mass())
	}
	_, right, _ := tree.Children(root)
	box := mustBox(t, right)
	if !near(box.Min(0), 0, 1e-9) || !near(box.Min(1), 1, 1e-9) || !near(box.Max(0), 1, 1e-9) || !near(box.Max(1), 1, 1e-9) {
		t.Fatalf("right box = [%v,%v .. %v,%v], want [0,1 .. 1,1]", box.Min(0), box.Min(1), box.Max(0), box.Max(1))
	}
	com := right.CenterOfMass()
	if !near(com[0], 1.0/3, 1e-9) || !near(com[1], 1.0, 1e-9) {
		t.Fatalf("right com = %v, want (1/3,1)", com)
	}
}

func TestScenario3DeleteRootChild(t *testing.T) {
	tree, _ := buildScenario1(t)
	if err := tree.DeletePoint(rcforest.Point{1, 1}, 2); err != nil {
		t.Fatalf("DeletePoint: %v", err)
	}
	root, _ := tree.Root()
	box := mustBox(t, root)
	if !near(box.Min(0), -1, 1e-9) || !near(box.Min(1), -1, 1e-9) || !near(box.Max(0), 0, 1e-9) || !near(box.Max(1), 1, 1e-9) {
		t.Fatalf("root box = [%v,%v .. %v,%v], want [-1,-1 .. 0,1]", box.Min(0), box.Min(1), box.Max(0), box.Max(1))
	}
}

func TestAddThenDeleteIsNoop(t *testing.T) {
	store := &fakeStore{}
	rng := NewDeterministicRNG(0.1, 0.9, 0.4, 0.6, 0.3)
	tree := NewTree(2, store, rng, WithStoreSequenceIndexes(true))

	h1 := store.admit(rcforest.Point{0, 0})
	h2 := store.admit(rcforest.Point{5, 5})
	if err := tree.AddPoint(h1, 1); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddPoint(h2, 2); err != nil {
		t.Fatal(err)
	}
	if err := tree.DeletePoint(rcforest.Point{5, 5}, 2); err != nil {
		t.Fatal(err)
	}
	root, ok := tree.Root()
	if !ok || !root.IsLeaf() || root.Mass() != 1 {
		t.Fatalf("expected single-leaf tree after delete, ok=%v leaf=%v mass=%d", ok, root.IsLeaf(), root.Mass())
	}
	if store.refs[h2] != 0 {
		t.Fatalf("refCount for evicted handle = %d, want 0", store.refs[h2])
	}
}

func TestDeleteAbsentPointFails(t *testing.T) {
	tree, _ := buildScenario1(t)
	if err := tree.DeletePoint(rcforest.Point{9, 9}, 1); err == nil {
		t.Fatal("expected error deleting absent point")
	}
}

func TestAlternatingNearIdenticalAddDelete(t *testing.T) {
	store := &fakeStore{}
	rng := NewRNG(42)
	tree := NewTree(1, store, rng, WithStoreSequenceIndexes(true))

	a := rcforest.Point{48.08}
	b := rcforest.Point{48.08000000000001}
	ha := store.admit(a)
	hb := store.admit(b)
	if err := tree.AddPoint(ha, 1); err != nil {
		t.Fatalf("initial add a: %v", err)
	}
	if err := tree.AddPoint(hb, 2); err != nil {
		t.Fatalf("initial add b: %v", err)
	}
	for i := 0; i < 10000; i++ {
		if err := tree.DeletePoint(b, 2); err != nil {
			t.Fatalf("iter %d: delete b: %v", i, err)
		}
		if err := tree.AddPoint(hb, 2); err != nil {
			t.Fatalf("iter %d: re-add b: %v", i, err)
		}
		if err := checkInvariants(tree); err != nil {
			t.Fatalf("iter %d: invariant violated: %v", i, err)
		}
	}
}

// checkInvariants walks the whole tree verifying spec §8's structural
// invariants: mass additivity, box containment, and left/right cut
// partitioning.
func checkInvariants(t *Tree) error {
	root, ok := t.Root()
	if !ok {
		return nil
	}
	return walkInvariants(t, root)
}

func walkInvariants(t *Tree, v NodeView) error {
	if v.IsLeaf() {
		if v.Mass() < 1 {
			return fmt.Errorf("leaf mass %d < 1", v.Mass())
		}
		return nil
	}
	left, right, ok := t.Children(v)
	if !ok {
		return fmt.Errorf("internal node missing children")
	}
	if v.Mass() != left.Mass()+right.Mass() {
		return fmt.Errorf("mass %d != left %d + right %d", v.Mass(), left.Mass(), right.Mass())
	}
	box, err := v.Box()
	if err != nil {
		return err
	}
	lbox, err := left.Box()
	if err != nil {
		return err
	}
	rbox, err := right.Box()
	if err != nil {
		return err
	}
	if !box.ContainsBox(lbox) || !box.ContainsBox(rbox) {
		return fmt.Errorf("box does not contain both children's boxes")
	}
	if c := v.Cut(); lbox.Max(c.Dim) > c.Value || rbox.Min(c.Dim) <= c.Value {
		return fmt.Errorf("children not partitioned by cut %+v", c)
	}
	if err := walkInvariants(t, left); err != nil {
		return err
	}
	return walkInvariants(t, right)
}
