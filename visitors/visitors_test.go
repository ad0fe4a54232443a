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
	"fmt"
	"math"
	"testing"

	"github.com/cutforest/rcforest"
	"github.com/cutforest/rcforest/core"
)

// fakeStore is a minimal core.PointSource for tests in this package.
type fakeStore struct {
	points []rcforest.Point
}

func (s *fakeStore) admit(p rcforest.Point) rcforest.Handle {
	s.points = append(s.points, append(rcforest.Point(nil), p...))
	return rcforest.Handle(len(s.points) - 1)
}

func (s *fakeStore) Get(h rcforest.Handle) (rcforest.Point, error) {
	if int(h) < 0 || int(h) >= len(s.points) {
		return nil, fmt.Errorf("fakeStore: bad handle %d", h)
	}
	return s.points[h], nil
}

func buildScenario1Tree(t *testing.T) (*core.Tree, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	rng := core.NewDeterministicRNG(0.625, 0.5, 0.25)
	tree := core.NewTree(2, store, rng, core.WithCenterOfMass(true), core.WithStoreSequenceIndexes(true))

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

func TestAnomalyScoreVisitorScenario1(t *testing.T) {
	tree, _ := buildScenario1Tree(t)
	got, err := core.Traverse(tree, rcforest.Point{0, 1}, AnomalyScoreVisitorFactory)
	if err != nil {
		t.Fatal(err)
	}
	// Path masses root->leaf: 5, 4, 3, 2 at depths 0..3.
	want := (math.Log2(6)/math.Log2(2) +
		math.Log2(5)/math.Log2(3) +
		math.Log2(4)/math.Log2(4) +
		math.Log2(3)/math.Log2(5)) / 4
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestImputeVisitorScenario1(t *testing.T) {
	tree, store := buildScenario1Tree(t)

	factory := ImputeVisitorFactory(rcforest.Point{0, math.NaN()}, []int{1})
	got, err := core.TraverseMulti(tree, rcforest.Point{0, math.NaN()}, factory)
	if err != nil {
		t.Fatal(err)
	}
	if !rcforest.Equal(got, rcforest.Point{0, 1}) {
		t.Fatalf("impute((0,NaN)) = %v, want (0,1)", got)
	}

	h := store.admit(rcforest.Point{0, 0.75})
	if err := tree.AddPoint(h, 6); err != nil {
		t.Fatalf("AddPoint((0,0.75),6): %v", err)
	}

	factory2 := ImputeVisitorFactory(rcforest.Point{1, math.NaN()}, []int{1})
	got2, err := core.TraverseMulti(tree, rcforest.Point{1, math.NaN()}, factory2)
	if err != nil {
		t.Fatal(err)
	}
	if !rcforest.Equal(got2, rcforest.Point{1, 1}) {
		t.Fatalf("impute((1,NaN)) after insert = %v, want (1,1)", got2)
	}
}
