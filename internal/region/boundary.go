/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package region models the static domain polygons, their source vertices
// and the boundary operations the river generator builds on: splicing a
// sub-polyline into a polygon, line re-indexing and smoothing.
package region

import (
	"math"
	"slices"

	"riversim/internal/geom"
)

// Line is an edge between two vertex positions tagged with a boundary-condition id.
type Line struct {
	P1         int `json:"p1"`
	P2         int `json:"p2"`
	BoundaryID int `json:"boundary_id"`
}

// Boundary is a polyline or polygon. Closed boundaries have as many lines as
// vertices, with the last line wrapping back to vertex 0.
type Boundary struct {
	Vertices      []geom.Point `json:"vertices"`
	Lines         []Line       `json:"lines"`
	InnerBoundary bool         `json:"inner_boundary,omitempty"`
	Holes         []geom.Point `json:"holes,omitempty"`
	Name          string       `json:"name,omitempty"`
}

// Clone returns a deep copy of b.
func (b Boundary) Clone() Boundary {
	return Boundary{
		Vertices:      slices.Clone(b.Vertices),
		Lines:         slices.Clone(b.Lines),
		InnerBoundary: b.InnerBoundary,
		Holes:         slices.Clone(b.Holes),
		Name:          b.Name,
	}
}

// Equal compares vertices within geom.Eps and everything else exactly.
func (b Boundary) Equal(o Boundary) bool {
	return pointsEqual(b.Vertices, o.Vertices) &&
		slices.Equal(b.Lines, o.Lines) &&
		b.InnerBoundary == o.InnerBoundary &&
		pointsEqual(b.Holes, o.Holes) &&
		b.Name == o.Name
}

func pointsEqual(a, c []geom.Point) bool {
	return slices.EqualFunc(a, c, geom.Point.Equal)
}

// Closed reports whether the last line wraps back to vertex 0.
func (b Boundary) Closed() bool {
	return len(b.Lines) > 0 && b.Lines[len(b.Lines)-1].P2 == 0
}

// Append concatenates o onto b, shifting o's line indices past b's vertices.
func (b *Boundary) Append(o Boundary) {
	size := len(b.Vertices)
	b.Vertices = append(b.Vertices, o.Vertices...)
	for _, l := range o.Lines {
		b.Lines = append(b.Lines, Line{P1: l.P1 + size, P2: l.P2 + size, BoundaryID: l.BoundaryID})
	}
	b.Holes = append(b.Holes, o.Holes...)
}

// ReplaceElement replaces the vertex at pos with the vertices of o and
// re-indexes every line of b accordingly. An empty o leaves b untouched.
func (b *Boundary) ReplaceElement(pos int, o Boundary) error {
	out, _, err := Splice(*b, pos, o)
	if err != nil {
		return err
	}
	*b = out
	return nil
}

// Splice returns a copy of base where the vertex at pos is replaced by the
// vertices of insert, together with the index shift applied to lines lying
// after the insertion point (len(insert.Vertices)-1).
//
// Lines of base are shifted as follows: a line fully right of pos moves both
// ends, a line crossing pos from the left moves its second end, and the line
// closing the loop back over pos moves its first end. Lines of insert are
// placed at position pos of the line list, offset by pos.
func Splice(base Boundary, pos int, insert Boundary) (Boundary, int, error) {
	out := base.Clone()
	if len(insert.Vertices) == 0 {
		return out, 0, nil
	}
	n := len(base.Vertices)
	if pos < 0 || pos > n || (pos == n && n > 0) {
		return out, 0, &PositionOutOfRangeError{Op: "splice", Pos: pos, Size: n}
	}

	vertices := make([]geom.Point, 0, n-1+len(insert.Vertices))
	if n > 0 {
		vertices = append(vertices, base.Vertices[:pos]...)
		vertices = append(vertices, insert.Vertices...)
		vertices = append(vertices, base.Vertices[pos+1:]...)
	} else {
		vertices = append(vertices, insert.Vertices...)
	}
	out.Vertices = vertices

	shift := len(insert.Vertices) - 1
	for i := range out.Lines {
		l := &out.Lines[i]
		switch {
		case l.P1 >= pos && l.P2 > pos:
			l.P1 += shift
			l.P2 += shift
		case l.P1 <= pos && l.P2 > pos:
			l.P2 += shift
		case l.P1 >= pos && l.P2 <= pos:
			l.P1 += shift
		}
	}

	at := min(pos, len(out.Lines))
	inserted := make([]Line, len(insert.Lines))
	for i, l := range insert.Lines {
		inserted[i] = Line{P1: l.P1 + pos, P2: l.P2 + pos, BoundaryID: l.BoundaryID}
	}
	out.Lines = slices.Insert(out.Lines, at, inserted...)
	out.Holes = append(out.Holes, insert.Holes...)
	return out, shift, nil
}

// FixLinesIndices rewrites line endpoints as (0,1),(1,2)... keeping each
// line's boundary id by position. An open boundary ends up with one line
// fewer than vertices; a closed one wraps its last line back to 0.
func (b *Boundary) FixLinesIndices(closed bool) {
	if len(b.Vertices) == 0 {
		b.Lines = nil
		return
	}
	n := len(b.Vertices) - 1
	if closed {
		n = len(b.Vertices)
	}
	old := b.Lines
	lines := make([]Line, n)
	for i := range lines {
		bid := 0
		if i < len(old) {
			bid = old[i].BoundaryID
		}
		lines[i] = Line{P1: i, P2: i + 1, BoundaryID: bid}
	}
	if closed {
		lines[n-1].P2 = 0
	}
	b.Lines = lines
}

// SmoothBoundary drops vertices whose accumulated turning angle, walking
// from the last vertex back to the first, stays below minDegree. Vertices
// within ignoredDistance of the last vertex (measured along the polyline)
// are always kept, as are the first and last vertices.
func (b Boundary) SmoothBoundary(minDegree, ignoredDistance float64) (Boundary, error) {
	if ignoredDistance < 0 {
		return Boundary{}, &InvalidSmoothingError{Param: "ignored_distance", Value: ignoredDistance}
	}
	if math.Abs(minDegree) < geom.Eps || len(b.Vertices) <= 4 || len(b.Lines) == 0 {
		return Boundary{Vertices: slices.Clone(b.Vertices), Lines: slices.Clone(b.Lines)}, nil
	}
	if minDegree < 0 {
		return Boundary{}, &InvalidSmoothingError{Param: "min_degree", Value: minDegree}
	}

	v := b.Vertices
	last := len(v) - 1
	smooth := Boundary{
		Vertices: []geom.Point{v[last]},
		Lines:    []Line{b.Lines[len(b.Lines)-1]},
	}
	var accumDegree, accumDS float64
	for i := last - 1; i > 0; i-- {
		v1 := v[i].Sub(v[i+1])
		v2 := v[i-1].Sub(v[i])
		turn, err := v1.AngleTo(v2)
		if err != nil {
			return Boundary{}, err
		}
		accumDegree += turn * 180 / math.Pi
		accumDS += v1.Norm()
		if math.Abs(accumDegree) >= minDegree-geom.Eps || accumDS <= ignoredDistance {
			accumDegree = 0
			smooth.Vertices = append(smooth.Vertices, v[i])
			smooth.Lines = append(smooth.Lines, b.lineAt(i))
		}
	}
	smooth.Vertices = append(smooth.Vertices, v[0])
	smooth.Lines = append(smooth.Lines, b.Lines[0])

	slices.Reverse(smooth.Vertices)
	slices.Reverse(smooth.Lines)
	smooth.FixLinesIndices(b.Closed())
	return smooth, nil
}

func (b Boundary) lineAt(i int) Line {
	if i < len(b.Lines) {
		return b.Lines[i]
	}
	return b.Lines[len(b.Lines)-1]
}
