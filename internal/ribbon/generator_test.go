/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ribbon

import (
	"errors"
	"math"
	"testing"

	"riversim/internal/geom"
	"riversim/internal/region"
	"riversim/internal/river"
)

func params(width float64) region.Params {
	p := region.DefaultParams()
	p.RiverWidth = width
	return p
}

// unitSquare returns the unit square with a source at (0.5, 0) and the
// tree initialized from it.
func unitSquare(t *testing.T) (*region.Region, region.Sources, *river.Tree) {
	t.Helper()
	reg := region.New()
	sources := reg.MakeRectangular(1, 1, 0.5)
	init, err := reg.SourcesIdsPointsAndAngles(sources)
	if err != nil {
		t.Fatal(err)
	}
	tree := river.NewTree()
	if err := tree.Initialize(init); err != nil {
		t.Fatal(err)
	}
	return reg, sources, tree
}

func grow(t *testing.T, tree *river.Tree, id int, steps int, ds float64) {
	t.Helper()
	b, err := tree.Branch(id)
	if err != nil {
		t.Fatal(err)
	}
	for range steps {
		if err := b.AddPolar(geom.Polar{R: ds}, 100); err != nil {
			t.Fatal(err)
		}
	}
}

func assertClosedSequential(t *testing.T, b region.Boundary) {
	t.Helper()
	if len(b.Lines) != len(b.Vertices) {
		t.Fatalf("lines = %d, vertices = %d", len(b.Lines), len(b.Vertices))
	}
}

func TestSingleSegmentRibbon(t *testing.T) {
	reg, sources, tree := unitSquare(t)
	grow(t, tree, 1, 1, 0.1)

	rb, err := RiversBoundary(tree, 1, params(1e-3))
	if err != nil {
		t.Fatal(err)
	}
	want := []geom.Point{{X: 0.5 - 5e-4, Y: 0}, {X: 0.5, Y: 0.1}, {X: 0.5 + 5e-4, Y: 0}}
	if len(rb.Vertices) != len(want) {
		t.Fatalf("ribbon vertices = %v, want %v", rb.Vertices, want)
	}
	for i, w := range want {
		if rb.Vertices[i].DistanceTo(w) > 1e-12 {
			t.Fatalf("ribbon vertex %d = %v, want %v", i, rb.Vertices[i], w)
		}
	}
	if len(rb.Lines) != 2 || rb.Lines[1] != (region.Line{P1: 1, P2: 2, BoundaryID: 100}) {
		t.Fatalf("ribbon lines = %+v", rb.Lines)
	}

	b, err := Generate(sources, reg, tree, params(1e-3))
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Vertices) != 7 {
		t.Fatalf("generated vertices = %d, want 7", len(b.Vertices))
	}
	assertClosedSequential(t, b)
	if !b.Vertices[2].Equal(geom.Point{X: 0.5, Y: 0.1}) {
		t.Fatalf("tip should follow the left bank, got %v", b.Vertices[2])
	}
	if n := region.NumOfBoundaryIntersection(b, tree.TipBoundary()); n != 0 {
		t.Fatalf("intersections = %d, want 0", n)
	}
}

func TestUngrownSourceKeepsRegion(t *testing.T) {
	reg, sources, tree := unitSquare(t)
	rb, err := RiversBoundary(tree, 1, params(1e-3))
	if err != nil {
		t.Fatal(err)
	}
	if len(rb.Vertices) != 1 || len(rb.Lines) != 0 {
		t.Fatalf("ungrown ribbon = %+v", rb)
	}
	b, err := Generate(sources, reg, tree, params(1e-3))
	if err != nil {
		t.Fatal(err)
	}
	outer, _ := reg.Boundary(1)
	if len(b.Vertices) != 5 || len(b.Lines) != 5 {
		t.Fatalf("generated sizes = %d/%d, want 5/5", len(b.Vertices), len(b.Lines))
	}
	for i, v := range outer.Vertices {
		if !b.Vertices[i].Equal(v) || b.Lines[i] != outer.Lines[i] {
			t.Fatalf("vertex %d = %v, want the plain rectangle", i, b.Vertices[i])
		}
	}
}

func TestBifurcatedRibbon(t *testing.T) {
	reg, sources, tree := unitSquare(t)
	grow(t, tree, 1, 2, 0.1)
	src, _ := tree.Branch(1)
	tip := src.TipPoint()
	rel, err := tree.AddSubBranches(1,
		river.NewBranch(tip, math.Pi/2+math.Pi/5),
		river.NewBranch(tip, math.Pi/2-math.Pi/5))
	if err != nil {
		t.Fatal(err)
	}
	grow(t, tree, rel.Left, 2, 0.1)
	grow(t, tree, rel.Right, 2, 0.1)

	p := params(1e-3)
	rb, err := RiversBoundary(tree, 1, p)
	if err != nil {
		t.Fatal(err)
	}
	// 2 left + (2+1+2) left child - 1 junction + (2+1+2) right child + 2 right
	if len(rb.Vertices) != 13 || len(rb.Lines) != 12 {
		t.Fatalf("ribbon sizes = %d/%d, want 13/12", len(rb.Vertices), len(rb.Lines))
	}
	l, _ := tree.Branch(rel.Left)
	r, _ := tree.Branch(rel.Right)
	if !rb.Vertices[4].Equal(l.TipPoint()) || !rb.Vertices[8].Equal(r.TipPoint()) {
		t.Fatalf("child tips misplaced: %v, %v", rb.Vertices[4], rb.Vertices[8])
	}

	b, err := Generate(sources, reg, tree, p)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Vertices) != 17 {
		t.Fatalf("generated vertices = %d, want 17", len(b.Vertices))
	}
	assertClosedSequential(t, b)
	if n := region.NumOfBoundaryIntersection(b, tree.TipBoundary()); n != 0 {
		t.Fatalf("intersections = %d, want 0", n)
	}
}

func TestSourcesOnSameBoundaryAreShifted(t *testing.T) {
	reg := region.New()
	sources := reg.MakeRectangular(1, 1, 0.5)
	sources[2] = region.SourceCoord{BoundaryID: 1, VertexPos: 3}
	init, err := reg.SourcesIdsPointsAndAngles(sources)
	if err != nil {
		t.Fatal(err)
	}
	tree := river.NewTree()
	if err := tree.Initialize(init); err != nil {
		t.Fatal(err)
	}
	grow(t, tree, 1, 1, 0.1)
	grow(t, tree, 2, 1, 0.1)

	b, err := Generate(sources, reg, tree, params(1e-3))
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Vertices) != 9 {
		t.Fatalf("generated vertices = %d, want 9", len(b.Vertices))
	}
	assertClosedSequential(t, b)
	corner, _ := tree.Branch(2)
	if !b.Vertices[6].Equal(corner.TipPoint()) {
		t.Fatalf("vertex 6 = %v, want corner river tip %v", b.Vertices[6], corner.TipPoint())
	}
	if sources[2].VertexPos != 3 {
		t.Fatalf("Generate modified the caller's sources")
	}
}

func TestGenerateWithHoles(t *testing.T) {
	reg := region.New()
	sources := reg.MakeRectangularWithHole(1, 1, 0.5)
	init, err := reg.SourcesIdsPointsAndAngles(sources)
	if err != nil {
		t.Fatal(err)
	}
	tree := river.NewTree()
	if err := tree.Initialize(init); err != nil {
		t.Fatal(err)
	}
	grow(t, tree, 1, 1, 0.05)
	before := reg.Clone()
	treeBefore := tree.Clone()

	b, err := Generate(sources, reg, tree, params(1e-3))
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Vertices) != 15 || len(b.Holes) != 2 {
		t.Fatalf("generated = %d vertices, %d holes; want 15, 2", len(b.Vertices), len(b.Holes))
	}
	assertClosedSequential(t, b)
	if !reg.Equal(before) || !tree.Equal(treeBefore) {
		t.Fatalf("Generate mutated its inputs")
	}
}

func TestGenerateErrors(t *testing.T) {
	reg := region.New()
	reg.Set(1, region.Boundary{
		Vertices: []geom.Point{{}, {X: 1}, {X: 1, Y: 1}},
		Lines:    []region.Line{{P1: 0, P2: 1, BoundaryID: 1}, {P1: 1, P2: 2, BoundaryID: 2}},
	})
	var sm *SizeMismatchError
	if _, err := Generate(nil, reg, river.NewTree(), params(1e-3)); !errors.As(err, &sm) {
		t.Fatalf("open region: err = %v, want SizeMismatchError", err)
	}

	reg2, sources, _ := unitSquare(t)
	other := river.NewTree()
	_ = other.AddBranchID(river.NewBranch(geom.Point{}, 0), 2)
	var unk *river.UnknownBranchError
	if _, err := Generate(sources, reg2, other, params(1e-3)); !errors.As(err, &unk) {
		t.Fatalf("missing source branch: err = %v", err)
	}
}

func TestDeepTreeRibbonIsWellFormed(t *testing.T) {
	reg, sources, tree := unitSquare(t)
	grow(t, tree, 1, 3, 0.02)
	id := 1
	for depth := 0; depth < 6; depth++ {
		b, _ := tree.Branch(id)
		a, err := b.TipAngle()
		if err != nil {
			t.Fatal(err)
		}
		rel, err := tree.AddSubBranches(id,
			river.NewBranch(b.TipPoint(), a+0.3),
			river.NewBranch(b.TipPoint(), a-0.3))
		if err != nil {
			t.Fatal(err)
		}
		grow(t, tree, rel.Left, 3, 0.02)
		grow(t, tree, rel.Right, 3, 0.02)
		id = rel.Left
	}
	b, err := Generate(sources, reg, tree, params(1e-5))
	if err != nil {
		t.Fatal(err)
	}
	assertClosedSequential(t, b)
	for i, l := range b.Lines {
		if l.P1 != i || l.P2 != (i+1)%len(b.Vertices) {
			t.Fatalf("line %d = %+v not sequential", i, l)
		}
	}
}
