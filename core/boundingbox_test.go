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
	"errors"
	"testing"

	"github.com/cutforest/rcforest"
)

func TestBoundingBoxMerge(t *testing.T) {
	b := NewBoundingBox(rcforest.Point{0, 0})
	b, err := b.MergedWithPoint(rcforest.Point{1, -1})
	if err != nil {
		t.Fatalf("MergedWithPoint: %v", err)
	}
	if b.Min(0) != 0 || b.Max(0) != 1 || b.Min(1) != -1 || b.Max(1) != 0 {
		t.Fatalf("unexpected box: min=(%v,%v) max=(%v,%v)", b.Min(0), b.Min(1), b.Max(0), b.Max(1))
	}
	if got, want := b.TotalRange(), 2.0; got != want {
		t.Fatalf("TotalRange() = %v, want %v", got, want)
	}
	if !b.Contains(rcforest.Point{0.5, -0.5}) {
		t.Fatalf("expected box to contain (0.5,-0.5)")
	}
	if b.Contains(rcforest.Point{2, 0}) {
		t.Fatalf("expected box not to contain (2,0)")
	}
}

func TestBoundingBoxDimensionMismatch(t *testing.T) {
	b := NewBoundingBox(rcforest.Point{0, 0})
	if _, err := b.MergedWithPoint(rcforest.Point{1}); !errors.Is(err, rcforest.ErrInvalidDimension) {
		t.Fatalf("expected ErrInvalidDimension, got %v", err)
	}
}

func TestRandomCutDegenerateBox(t *testing.T) {
	b := NewBoundingBox(rcforest.Point{3, 3})
	rng := NewDeterministicRNG(0.5)
	if _, err := randomCut(rng, b); !errors.Is(err, errDegenerateBox) {
		t.Fatalf("expected errDegenerateBox, got %v", err)
	}
}

func TestRandomCutDistribution(t *testing.T) {
	box, err := NewBoundingBox(rcforest.Point{0, 0}).MergedWithPoint(rcforest.Point{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	// box: dim0 width 1, dim1 width 3, total range 4.
	counts := make([]int, 2)
	const n = 100000
	src := &linearRNG{}
	for i := 0; i < n; i++ {
		cut, err := randomCut(src, box)
		if err != nil {
			t.Fatal(err)
		}
		counts[cut.Dim]++
	}
	// dim0 share should be ~0.25, dim1 ~0.75.
	got0 := float64(counts[0]) / n
	if got0 < 0.2 || got0 > 0.3 {
		t.Fatalf("dim0 share = %v, want ~0.25", got0)
	}
}

// linearRNG sweeps [0,1) deterministically across calls, giving a uniform
// empirical distribution without pulling in a full PRNG for the test.
type linearRNG struct{ i int }

func (l *linearRNG) NextFloat64() float64 {
	const steps = 100000
	v := float64(l.i%steps) / float64(steps)
	l.i++
	return v
}
