/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package region

import (
	"maps"
	"math"
	"slices"

	"riversim/internal/geom"
)

// SourceCoord binds a source to vertex VertexPos of boundary BoundaryID.
type SourceCoord struct {
	BoundaryID int
	VertexPos  int
}

// Sources maps source ids (equal to the ids of the source branches of the
// river tree) to their attachment vertex.
type Sources map[int]SourceCoord

// IDs returns the source ids in ascending order.
func (s Sources) IDs() []int {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns a copy of s.
func (s Sources) Clone() Sources { return maps.Clone(s) }

// SourcePoint is the initial position and growth direction of a source branch.
type SourcePoint struct {
	Point geom.Point
	Angle float64
}

// Region is the static domain: one outer polygon plus optional holes, keyed
// by boundary id.
type Region struct {
	boundaries map[int]Boundary
}

// New returns an empty region.
func New() *Region {
	return &Region{boundaries: make(map[int]Boundary)}
}

// Set stores b under id, replacing any previous boundary.
func (r *Region) Set(id int, b Boundary) {
	if r.boundaries == nil {
		r.boundaries = make(map[int]Boundary)
	}
	r.boundaries[id] = b
}

// Boundary returns the boundary stored under id.
func (r *Region) Boundary(id int) (Boundary, bool) {
	b, ok := r.boundaries[id]
	return b, ok
}

// IDs returns boundary ids in ascending order.
func (r *Region) IDs() []int {
	return slices.Sorted(maps.Keys(r.boundaries))
}

func (r *Region) Len() int { return len(r.boundaries) }

// Clone returns a deep copy of r.
func (r *Region) Clone() *Region {
	c := New()
	for id, b := range r.boundaries {
		c.boundaries[id] = b.Clone()
	}
	return c
}

// Equal reports whether both regions hold equal boundaries under the same ids.
func (r *Region) Equal(o *Region) bool {
	if r.Len() != o.Len() {
		return false
	}
	for id, b := range r.boundaries {
		ob, ok := o.boundaries[id]
		if !ok || !b.Equal(ob) {
			return false
		}
	}
	return true
}

// Check validates the region and, when sources is non-nil, that every source
// attaches to an existing vertex and no vertex carries two sources.
func (r *Region) Check(sources Sources) error {
	if r.Len() == 0 {
		return ErrEmptyRegion
	}
	outer := 0
	for _, id := range r.IDs() {
		b := r.boundaries[id]
		if len(b.Vertices) != len(b.Lines) {
			return &MismatchedSizesError{BoundaryID: id, Vertices: len(b.Vertices), Lines: len(b.Lines)}
		}
		if !b.InnerBoundary {
			outer++
		}
	}
	switch {
	case outer == 0:
		return ErrNoOuterBoundary
	case outer > 1:
		return &MultipleOuterBoundariesError{Count: outer}
	}

	seen := make(map[SourceCoord]int, len(sources))
	for _, sid := range sources.IDs() {
		sc := sources[sid]
		b, ok := r.boundaries[sc.BoundaryID]
		if !ok || sc.VertexPos < 0 || sc.VertexPos >= len(b.Vertices) {
			return &UnknownSourceBoundaryError{SourceID: sid, BoundaryID: sc.BoundaryID, VertexPos: sc.VertexPos}
		}
		if other, dup := seen[sc]; dup {
			return &DuplicateSourceIdError{SourceID: sid, OtherID: other, BoundaryID: sc.BoundaryID, VertexPos: sc.VertexPos}
		}
		seen[sc] = sid
	}
	return nil
}

// OuterBoundary returns the id and value of the first non-inner boundary.
func (r *Region) OuterBoundary() (int, Boundary, error) {
	for _, id := range r.IDs() {
		if b := r.boundaries[id]; !b.InnerBoundary {
			return id, b, nil
		}
	}
	return 0, Boundary{}, ErrNoOuterBoundary
}

// Holes lists the hole marker points of every inner boundary.
func (r *Region) Holes() []geom.Point {
	var holes []geom.Point
	for _, id := range r.IDs() {
		if b := r.boundaries[id]; b.InnerBoundary {
			holes = append(holes, b.Holes...)
		}
	}
	return holes
}

// MakeRectangular replaces the region with a counterclockwise width x height
// rectangle whose bottom edge carries a source vertex at (sourceX, 0).
// Line boundary ids are 1..5 starting at the origin.
func (r *Region) MakeRectangular(width, height, sourceX float64) Sources {
	r.boundaries = map[int]Boundary{1: rectangle(width, height, sourceX, "outer rectangular boundary")}
	return Sources{1: {BoundaryID: 1, VertexPos: 1}}
}

// MakeRectangularWithHole is MakeRectangular plus two square holes, each
// carrying its own source.
func (r *Region) MakeRectangularWithHole(width, height, sourceX float64) Sources {
	r.boundaries = map[int]Boundary{
		1: rectangle(width, height, sourceX, "outer boundary"),
		2: square(width, height, 0.25, 0.75, 0.5, 6),
		3: square(width, height, 0.8, 0.9, 0.85, 10),
	}
	return Sources{
		1: {BoundaryID: 1, VertexPos: 1},
		2: {BoundaryID: 2, VertexPos: 1},
		3: {BoundaryID: 3, VertexPos: 3},
	}
}

func rectangle(width, height, sourceX float64, name string) Boundary {
	return Boundary{
		Vertices: []geom.Point{{X: 0, Y: 0}, {X: sourceX, Y: 0}, {X: width, Y: 0}, {X: width, Y: height}, {X: 0, Y: height}},
		Lines:    []Line{{0, 1, 1}, {1, 2, 2}, {2, 3, 3}, {3, 4, 4}, {4, 0, 5}},
		Name:     name,
	}
}

// square builds a clockwise hole spanning [lo, hi] in relative coordinates
// with marker point at (mid, mid) and line ids firstID..firstID+3.
func square(width, height, lo, hi, mid float64, firstID int) Boundary {
	return Boundary{
		Vertices: []geom.Point{
			{X: lo * width, Y: hi * height},
			{X: hi * width, Y: hi * height},
			{X: hi * width, Y: lo * height},
			{X: lo * width, Y: lo * height},
		},
		Lines: []Line{
			{0, 1, firstID}, {1, 2, firstID + 1}, {2, 3, firstID + 2}, {3, 0, firstID + 3},
		},
		InnerBoundary: true,
		Holes:         []geom.Point{{X: mid * width, Y: mid * height}},
		Name:          "hole",
	}
}

// AdjacentVerticesPositions returns the neighbors of vertex pos in a closed
// polygon of size vertices.
func AdjacentVerticesPositions(size, pos int) (left, right int, err error) {
	if pos < 0 || pos >= size {
		return 0, 0, &PositionOutOfRangeError{Op: "adjacent vertices", Pos: pos, Size: size}
	}
	left, right = pos-1, pos+1
	if pos == size-1 {
		right = 0
	}
	if pos == 0 {
		left = size - 1
	}
	return left, right, nil
}

// NormalAngle returns the outward bisector direction at center for the
// polygon path left -> center -> right, in (-2π, 2π).
func NormalAngle(left, center, right geom.Point) (float64, error) {
	lv := center.Sub(left)
	rv := right.Sub(center)
	rel, err := lv.AngleTo(rv)
	if err != nil {
		return 0, err
	}
	abs, err := lv.Angle()
	if err != nil {
		return 0, err
	}
	a := (math.Pi+rel)/2 + abs
	if a >= 2*math.Pi {
		a -= 2 * math.Pi
	} else if a <= -2*math.Pi {
		a += 2 * math.Pi
	}
	return a, nil
}

// VertexNormalAngle is NormalAngle at vertex pos using its polygon
// neighbors. Hole normals are turned by π.
func VertexNormalAngle(vertices []geom.Point, pos int, inner bool) (float64, error) {
	l, rr, err := AdjacentVerticesPositions(len(vertices), pos)
	if err != nil {
		return 0, err
	}
	a, err := NormalAngle(vertices[l], vertices[pos], vertices[rr])
	if err != nil {
		return 0, err
	}
	if inner {
		a += math.Pi
	}
	if a >= 2*math.Pi {
		a -= 2 * math.Pi
	}
	return a, nil
}

// SourcesIdsPointsAndAngles resolves each source to its vertex and outward
// normal, the input Tree.Initialize expects.
func (r *Region) SourcesIdsPointsAndAngles(sources Sources) (map[int]SourcePoint, error) {
	out := make(map[int]SourcePoint, len(sources))
	for _, sid := range sources.IDs() {
		sc := sources[sid]
		b, ok := r.boundaries[sc.BoundaryID]
		if !ok || sc.VertexPos < 0 || sc.VertexPos >= len(b.Vertices) {
			return nil, &UnknownSourceBoundaryError{SourceID: sid, BoundaryID: sc.BoundaryID, VertexPos: sc.VertexPos}
		}
		angle, err := VertexNormalAngle(b.Vertices, sc.VertexPos, b.InnerBoundary)
		if err != nil {
			return nil, err
		}
		out[sid] = SourcePoint{Point: b.Vertices[sc.VertexPos], Angle: angle}
	}
	return out, nil
}
