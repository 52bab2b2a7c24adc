/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package river holds the growing river network: branches as polylines
// anchored at a source point, and the tree relating parents to the two
// children created at each bifurcation.
package river

import (
	"slices"

	"riversim/internal/geom"
	"riversim/internal/region"
)

// shrinkEps is the tolerance Shrink uses to snap to an existing vertex
// instead of creating a near-zero segment.
const shrinkEps = 5e-7

// Branch is a polyline from a fixed source point to a moving tip. It always
// holds at least the source point. Segment i joins vertex i to vertex i+1
// and carries a boundary-condition id.
type Branch struct {
	vertices    []geom.Point
	lines       []region.Line
	sourceAngle float64
}

// NewBranch returns a branch holding only its source point.
func NewBranch(source geom.Point, angle float64) *Branch {
	return &Branch{vertices: []geom.Point{source}, sourceAngle: angle}
}

// Len returns the number of vertices, source point included.
func (b *Branch) Len() int { return len(b.vertices) }

// Vertices returns the vertex list. Callers must not modify it.
func (b *Branch) Vertices() []geom.Point { return b.vertices }

// Lines returns the segment list. Callers must not modify it.
func (b *Branch) Lines() []region.Line { return b.lines }

// Boundary returns a copy of the branch as an open polyline.
func (b *Branch) Boundary() region.Boundary {
	return region.Boundary{Vertices: slices.Clone(b.vertices), Lines: slices.Clone(b.lines)}
}

func (b *Branch) SourcePoint() geom.Point  { return b.vertices[0] }
func (b *Branch) SourceAngle() float64     { return b.sourceAngle }
func (b *Branch) SetSourceAngle(a float64) { b.sourceAngle = a }
func (b *Branch) TipPoint() geom.Point     { return b.vertices[len(b.vertices)-1] }

// AddAbsolutePoint appends p as the new tip.
func (b *Branch) AddAbsolutePoint(p geom.Point, boundaryID int) *Branch {
	b.vertices = append(b.vertices, p)
	n := len(b.vertices) - 1
	b.lines = append(b.lines, region.Line{P1: n - 1, P2: n, BoundaryID: boundaryID})
	return b
}

// AddAbsolutePolar appends the tip moved by p, p's angle taken as absolute.
func (b *Branch) AddAbsolutePolar(p geom.Polar, boundaryID int) *Branch {
	return b.AddAbsolutePoint(b.TipPoint().AddPolar(p), boundaryID)
}

// AddPoint appends the tip moved by p.
func (b *Branch) AddPoint(p geom.Point, boundaryID int) *Branch {
	return b.AddAbsolutePoint(b.TipPoint().Add(p), boundaryID)
}

// AddPolar appends the tip moved by p, p's angle taken relative to the
// current tip direction.
func (b *Branch) AddPolar(p geom.Polar, boundaryID int) error {
	a, err := b.TipAngle()
	if err != nil {
		return err
	}
	p.Phi += a
	b.AddAbsolutePolar(p, boundaryID)
	return nil
}

// RemoveTipPoint drops the tip vertex and its segment.
func (b *Branch) RemoveTipPoint() error {
	if len(b.vertices) == 1 {
		return ErrCannotRemoveLastPoint
	}
	b.vertices = b.vertices[:len(b.vertices)-1]
	b.lines = b.lines[:len(b.lines)-1]
	return nil
}

// TipVector returns the direction of the last segment.
func (b *Branch) TipVector() (geom.Point, error) {
	if len(b.lines) == 0 {
		return geom.Point{}, &DegenerateBranchError{Op: "tip vector"}
	}
	return b.segment(b.lines[len(b.lines)-1]), nil
}

// Vector returns the direction of segment i.
func (b *Branch) Vector(i int) (geom.Point, error) {
	if i < 0 || i >= len(b.lines) {
		return geom.Point{}, &DegenerateBranchError{Op: "vector", Index: i, Lines: len(b.lines)}
	}
	return b.segment(b.lines[i]), nil
}

func (b *Branch) segment(l region.Line) geom.Point {
	return b.vertices[l.P2].Sub(b.vertices[l.P1])
}

// TipAngle is the direction of the last segment, or the source angle for a
// branch that has not grown yet.
func (b *Branch) TipAngle() (float64, error) {
	if len(b.lines) == 0 {
		return b.sourceAngle, nil
	}
	v, _ := b.TipVector()
	return v.Angle()
}

// Length sums segment lengths.
func (b *Branch) Length() float64 {
	var l float64
	for _, ln := range b.lines {
		l += b.segment(ln).Norm()
	}
	return l
}

// Shrink removes length from the tip. When the cut falls inside a segment
// the tip is moved back along it; a cut within shrinkEps of a vertex snaps
// to that vertex. Shrinking by more than Length leaves the source point.
func (b *Branch) Shrink(length float64) error {
	for length > 0 && b.Length() > 0 {
		tv, err := b.TipVector()
		if err != nil {
			return err
		}
		tip := tv.Norm()
		switch {
		case length < tip-shrinkEps:
			bid := b.lines[len(b.lines)-1].BoundaryID
			_ = b.RemoveTipPoint()
			b.AddPoint(tv.Mul(1-length/tip), bid)
			length = 0
		case length <= tip+shrinkEps:
			_ = b.RemoveTipPoint()
			length = 0
		default:
			_ = b.RemoveTipPoint()
			length -= tip
		}
	}
	return nil
}

// Smooth returns a copy of b with low-curvature vertices removed, see
// region.Boundary.SmoothBoundary.
func (b *Branch) Smooth(minDegree, ignoredDistance float64) (*Branch, error) {
	s, err := b.Boundary().SmoothBoundary(minDegree, ignoredDistance)
	if err != nil {
		return nil, err
	}
	return &Branch{vertices: s.Vertices, lines: s.Lines, sourceAngle: b.sourceAngle}, nil
}

// Clone returns a deep copy of b.
func (b *Branch) Clone() *Branch {
	return &Branch{vertices: slices.Clone(b.vertices), lines: slices.Clone(b.lines), sourceAngle: b.sourceAngle}
}

// Equal compares vertices within geom.Eps, segments and source angle.
func (b *Branch) Equal(o *Branch) bool {
	return slices.EqualFunc(b.vertices, o.vertices, geom.Point.Equal) &&
		slices.Equal(b.lines, o.lines) &&
		b.sourceAngle == o.sourceAngle
}
