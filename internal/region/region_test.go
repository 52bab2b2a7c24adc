/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package region

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"riversim/internal/geom"
)

func TestCheck(t *testing.T) {
	r := New()
	if err := r.Check(nil); !errors.Is(err, ErrEmptyRegion) {
		t.Fatalf("empty region: err = %v, want ErrEmptyRegion", err)
	}

	sources := r.MakeRectangularWithHole(1, 1, 0.5)
	if err := r.Check(sources); err != nil {
		t.Fatalf("rectangular with hole: %v", err)
	}

	bad := r.Clone()
	b, _ := bad.Boundary(2)
	b.Lines = b.Lines[:3]
	bad.Set(2, b)
	var ms *MismatchedSizesError
	if err := bad.Check(nil); !errors.As(err, &ms) || ms.BoundaryID != 2 || ms.Vertices != 4 || ms.Lines != 3 {
		t.Fatalf("mismatched: err = %v", err)
	}

	holesOnly := New()
	holesOnly.Set(2, square(1, 1, 0.25, 0.75, 0.5, 6))
	if err := holesOnly.Check(nil); !errors.Is(err, ErrNoOuterBoundary) {
		t.Fatalf("holes only: err = %v, want ErrNoOuterBoundary", err)
	}

	twoOuter := New()
	twoOuter.Set(1, rect())
	twoOuter.Set(7, rect())
	var mo *MultipleOuterBoundariesError
	if err := twoOuter.Check(nil); !errors.As(err, &mo) || mo.Count != 2 {
		t.Fatalf("two outer: err = %v", err)
	}

	dup := sources.Clone()
	dup[9] = SourceCoord{BoundaryID: 2, VertexPos: 1}
	var ds *DuplicateSourceIdError
	if err := r.Check(dup); !errors.As(err, &ds) || ds.OtherID != 2 || ds.SourceID != 9 {
		t.Fatalf("duplicate source: err = %v", err)
	}

	missing := Sources{1: {BoundaryID: 1, VertexPos: 5}}
	var us *UnknownSourceBoundaryError
	if err := r.Check(missing); !errors.As(err, &us) {
		t.Fatalf("missing vertex: err = %v", err)
	}
}

func TestAdjacentVerticesPositions(t *testing.T) {
	cases := []struct{ size, pos, left, right int }{
		{5, 0, 4, 1},
		{5, 2, 1, 3},
		{5, 4, 3, 0},
	}
	for _, c := range cases {
		l, r, err := AdjacentVerticesPositions(c.size, c.pos)
		if err != nil || l != c.left || r != c.right {
			t.Fatalf("AdjacentVerticesPositions(%d, %d) = %d, %d, %v; want %d, %d", c.size, c.pos, l, r, err, c.left, c.right)
		}
	}
	if _, _, err := AdjacentVerticesPositions(5, 5); err == nil {
		t.Fatalf("expected error for position past the end")
	}
}

func TestNormalAngle(t *testing.T) {
	cases := []struct {
		l, c, r geom.Point
		want    float64
	}{
		{geom.Point{X: 0, Y: 0}, geom.Point{X: 1, Y: 0}, geom.Point{X: 2, Y: 0}, math.Pi / 2},
		{geom.Point{X: 0, Y: 0}, geom.Point{X: 1, Y: 0}, geom.Point{X: 1, Y: 1}, 3 * math.Pi / 4},
		{geom.Point{X: 1, Y: 1}, geom.Point{X: 1, Y: 0}, geom.Point{X: 2, Y: 0}, math.Pi / 4},
	}
	for _, c := range cases {
		got, err := NormalAngle(c.l, c.c, c.r)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("NormalAngle(%v, %v, %v) = %v, want %v", c.l, c.c, c.r, got, c.want)
		}
	}
	var dv *geom.DegenerateVectorError
	if _, err := NormalAngle(geom.Point{}, geom.Point{}, geom.Point{X: 1}); !errors.As(err, &dv) {
		t.Fatalf("coincident vertices: err = %v", err)
	}
}

func TestSourcesIdsPointsAndAngles(t *testing.T) {
	r := New()
	sources := r.MakeRectangularWithHole(2, 1, 0.5)
	got, err := r.SourcesIdsPointsAndAngles(sources)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("sources = %d, want 3", len(got))
	}
	s1 := got[1]
	if !s1.Point.Equal(geom.Point{X: 0.5, Y: 0}) || math.Abs(s1.Angle-math.Pi/2) > 1e-12 {
		t.Fatalf("source 1 = %+v, want (0.5, 0) at π/2", s1)
	}
	// hole vertex (0.75w, 0.75h): bisector π/4 turned by π.
	s2 := got[2]
	if !s2.Point.Equal(geom.Point{X: 1.5, Y: 0.75}) || math.Abs(s2.Angle-5*math.Pi/4) > 1e-12 {
		t.Fatalf("source 2 = %+v", s2)
	}
	if holes := r.Holes(); len(holes) != 2 || !holes[1].Equal(geom.Point{X: 1.7, Y: 0.85}) {
		t.Fatalf("holes = %v", holes)
	}
	if _, err := r.SourcesIdsPointsAndAngles(Sources{4: {BoundaryID: 9}}); err == nil {
		t.Fatalf("expected error for unknown boundary")
	}
}

func TestMakeRectangular(t *testing.T) {
	r := New()
	sources := r.MakeRectangular(2, 3, 0.4)
	if len(sources) != 1 || sources[1] != (SourceCoord{1, 1}) {
		t.Fatalf("sources = %v", sources)
	}
	id, b, err := r.OuterBoundary()
	if err != nil || id != 1 {
		t.Fatalf("OuterBoundary = %d, %v", id, err)
	}
	if !b.Vertices[3].Equal(geom.Point{X: 2, Y: 3}) || b.Lines[4] != (Line{4, 0, 5}) {
		t.Fatalf("unexpected rectangle %+v", b)
	}
	if !b.Closed() {
		t.Fatalf("rectangle should be closed")
	}
}

func TestBoundaryConditionsGet(t *testing.T) {
	bc := BoundaryConditions{
		1: {Dirichlet, 0},
		3: {Neumann, 0},
		4: {Neumann, 1},
	}
	n, err := bc.Get(Neumann)
	if err != nil || len(n) != 2 || n[4].Value != 1 {
		t.Fatalf("Get(Neumann) = %v, %v", n, err)
	}
	if _, err := bc.Get(ConditionType(7)); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	r := New()
	sources := r.MakeRectangularWithHole(1, 2, 0.3)
	bc := BoundaryConditions{1: {Dirichlet, 0}, 4: {Neumann, 1}}

	doc := struct {
		Region     *Region            `json:"region"`
		Sources    Sources            `json:"sources"`
		Conditions BoundaryConditions `json:"boundary_conditions"`
	}{r, sources, bc}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	var back struct {
		Region     *Region            `json:"region"`
		Sources    Sources            `json:"sources"`
		Conditions BoundaryConditions `json:"boundary_conditions"`
	}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Region.Equal(r) {
		t.Fatalf("region did not round trip")
	}
	if len(back.Sources) != 3 || back.Sources[3] != (SourceCoord{3, 3}) {
		t.Fatalf("sources = %v", back.Sources)
	}
	if back.Conditions[4] != (BoundaryCondition{Neumann, 1}) {
		t.Fatalf("conditions = %v", back.Conditions)
	}
}

func TestDecodePairs(t *testing.T) {
	m, err := DecodePairs[BoundaryCondition]([]byte(`[[2, {"type": "Neuman", "value": 1.5}]]`))
	if err != nil {
		t.Fatal(err)
	}
	if m[2] != (BoundaryCondition{Neumann, 1.5}) {
		t.Fatalf("legacy spelling = %+v", m[2])
	}
	if _, err := DecodePairs[int]([]byte(`[[1, 2], [1, 3]]`)); err == nil {
		t.Fatalf("expected duplicate key error")
	}
	if _, err := DecodePairs[int]([]byte(`[[1]]`)); err == nil {
		t.Fatalf("expected malformed pair error")
	}
	if m, err := DecodePairs[int]([]byte(`null`)); err != nil || len(m) != 0 {
		t.Fatalf("null = %v, %v", m, err)
	}
}
