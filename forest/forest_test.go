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

package forest

import (
	"testing"

	"github.com/cutforest/rcforest"
	"github.com/cutforest/rcforest/core"
	"github.com/cutforest/rcforest/pointstore"
)

// alwaysAccept is a trivial Sampler that admits every point and never
// evicts, for tests that only care about the executor/component wiring.
type alwaysAccept struct{}

func (alwaysAccept) Decide(seqIdx int64) rcforest.Decision {
	return rcforest.Decision{Outcome: rcforest.Accept}
}

// evictFirst accepts every point but, starting from the second call,
// evicts the very first sequence index it saw.
type evictFirst struct {
	first   int64
	primed  bool
}

func (e *evictFirst) Decide(seqIdx int64) rcforest.Decision {
	if !e.primed {
		e.first = seqIdx
		e.primed = true
		return rcforest.Decision{Outcome: rcforest.Accept}
	}
	return rcforest.Decision{Outcome: rcforest.AcceptEvict, EvictedSeqIdx: e.first}
}

func newComponent(t *testing.T, sampler rcforest.Sampler) *Component {
	t.Helper()
	store, err := pointstore.NewStore(2, pointstore.WithCapacity(64))
	if err != nil {
		t.Fatal(err)
	}
	tree := core.NewTree(2, store, core.NewRNG(7), core.WithCenterOfMass(true))
	return NewComponent(tree, store, sampler)
}

func TestExecutorUpdateSequential(t *testing.T) {
	c1 := newComponent(t, alwaysAccept{})
	c2 := newComponent(t, alwaysAccept{})
	ex := NewExecutor([]*Component{c1, c2})

	res, err := ex.Update(rcforest.Point{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.SeqIdx != 1 {
		t.Fatalf("SeqIdx = %d, want 1", res.SeqIdx)
	}
	if !res.AnyChanged() {
		t.Fatal("expected at least one component to change")
	}
	if c1.Tree.Size() != 1 || c2.Tree.Size() != 1 {
		t.Fatalf("expected both trees to hold 1 point, got %d and %d", c1.Tree.Size(), c2.Tree.Size())
	}

	res2, err := ex.Update(rcforest.Point{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if res2.SeqIdx != 2 {
		t.Fatalf("SeqIdx = %d, want 2", res2.SeqIdx)
	}
}

func TestExecutorUpdateParallel(t *testing.T) {
	components := make([]*Component, 5)
	for i := range components {
		components[i] = newComponent(t, alwaysAccept{})
	}
	ex := NewExecutor(components, WithParallel(3))

	for i := 0; i < 20; i++ {
		if _, err := ex.Update(rcforest.Point{float64(i), float64(-i)}); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	for i, c := range components {
		if c.Tree.Size() != 20 {
			t.Fatalf("component %d size = %d, want 20", i, c.Tree.Size())
		}
	}
}

func TestComponentAcceptEvict(t *testing.T) {
	sampler := &evictFirst{}
	c := newComponent(t, sampler)

	changed, err := c.Update(rcforest.Point{1, 1}, 1)
	if err != nil || !changed {
		t.Fatalf("first update: changed=%v err=%v", changed, err)
	}
	changed, err = c.Update(rcforest.Point{2, 2}, 2)
	if err != nil || !changed {
		t.Fatalf("second (evicting) update: changed=%v err=%v", changed, err)
	}
	if c.Tree.Size() != 1 {
		t.Fatalf("tree size = %d, want 1 after evict+insert", c.Tree.Size())
	}
	if !c.LastUpdateChanged() {
		t.Fatal("LastUpdateChanged() = false, want true")
	}
}

func TestTraverseSumMass(t *testing.T) {
	c1 := newComponent(t, alwaysAccept{})
	c2 := newComponent(t, alwaysAccept{})
	ex := NewExecutor([]*Component{c1, c2})

	for i := 0; i < 3; i++ {
		if _, err := ex.Update(rcforest.Point{float64(i), float64(i)}); err != nil {
			t.Fatal(err)
		}
	}

	factory := func() core.Visitor[int] { return &massVisitor{} }
	total, err := Traverse[int](ex, rcforest.Point{0, 0}, factory, 0, func(acc, next int) int { return acc + next })
	if err != nil {
		t.Fatal(err)
	}
	if total != 6 {
		t.Fatalf("total mass = %d, want 6 (2 components x root mass 3)", total)
	}
}

// massVisitor returns the root's mass, ignoring the query path entirely.
type massVisitor struct{ rootMass int }

func (v *massVisitor) Accept(n core.NodeView, depth int) {
	if depth == 0 {
		v.rootMass = n.Mass()
	}
}
func (v *massVisitor) AcceptLeaf(n core.NodeView, depth int) {
	if depth == 0 {
		v.rootMass = n.Mass()
	}
}
func (v *massVisitor) GetResult() int { return v.rootMass }
