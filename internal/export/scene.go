/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"riversim/internal/geom"
	"riversim/internal/model"
	"riversim/internal/region"
	"riversim/internal/ribbon"
	"riversim/internal/river"
)

// Scene is what gets drawn: the generated boundary plus the river tree.
type Scene struct {
	Boundary        region.Boundary
	Tree            *river.Tree
	RiverBoundaryID int
}

// SceneOf generates the boundary of m and wraps it with the model's tree.
func SceneOf(m *model.Model) (Scene, error) {
	if m == nil {
		return Scene{}, fmt.Errorf("model is nil")
	}
	b, err := ribbon.Generate(m.Sources, m.Region, m.Tree, m.RegionParams)
	if err != nil {
		return Scene{}, fmt.Errorf("generate boundary: %w", err)
	}
	return Scene{Boundary: b, Tree: m.Tree, RiverBoundaryID: m.RegionParams.RiverBoundaryID}, nil
}

// Bounds is the bounding rectangle of every boundary vertex and tree point.
func (s Scene) Bounds() r2.Rect {
	r := r2.EmptyRect()
	for _, p := range s.Boundary.Vertices {
		r = r.AddPoint(r2.Point{X: p.X, Y: p.Y})
	}
	if s.Tree != nil {
		for _, id := range s.Tree.IDs() {
			br, _ := s.Tree.Branch(id)
			for _, p := range br.Vertices() {
				r = r.AddPoint(r2.Point{X: p.X, Y: p.Y})
			}
		}
	}
	return r
}

// Affine is a 2D affine transform
// | A C E |
// | B D F |
type Affine struct{ A, B, C, D, E, F float64 }

var Identity = Affine{A: 1, D: 1}

func (m Affine) Mul(n Affine) Affine {
	return Affine{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Affine) Apply(p geom.Point) r2.Point {
	return r2.Point{X: m.A*p.X + m.C*p.Y + m.E, Y: m.B*p.X + m.D*p.Y + m.F}
}

func Translate(tx, ty float64) Affine { return Affine{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine     { return Affine{A: sx, D: sy} }

// Fit maps bounds into a w x h canvas with a uniform scale, keeping margin
// free on every side and flipping y so that model "up" is canvas "up".
func Fit(bounds r2.Rect, w, h, margin float64) Affine {
	if bounds.IsEmpty() {
		return Translate(margin, h-margin).Mul(Scale(1, -1))
	}
	size := bounds.Size()
	aw, ah := w-2*margin, h-2*margin
	k := math.Inf(1)
	if size.X > 0 {
		k = aw / size.X
	}
	if size.Y > 0 {
		k = math.Min(k, ah/size.Y)
	}
	if math.IsInf(k, 1) || k <= 0 {
		k = 1
	}
	c := bounds.Center()
	// center of the model lands at the center of the canvas
	return Translate(w/2, h/2).Mul(Scale(k, -k)).Mul(Translate(-c.X, -c.Y))
}

type segment struct {
	a, b   r2.Point
	stroke Stroke
}

// draw lists are built once per render and shared by every backend.
type drawList struct {
	segments []segment
	tips     []r2.Point
}

func (s Scene) drawList(tf Affine, st Style) drawList {
	var dl drawList
	vs := s.Boundary.Vertices
	for _, l := range s.Boundary.Lines {
		if l.P1 < 0 || l.P1 >= len(vs) || l.P2 < 0 || l.P2 >= len(vs) {
			continue
		}
		dl.segments = append(dl.segments, segment{
			a: tf.Apply(vs[l.P1]), b: tf.Apply(vs[l.P2]),
			stroke: st.lineStroke(l.BoundaryID, s.RiverBoundaryID),
		})
	}
	if s.Tree == nil {
		return dl
	}
	for _, id := range s.Tree.IDs() {
		br, _ := s.Tree.Branch(id)
		pts := br.Vertices()
		for i := 1; i < len(pts); i++ {
			dl.segments = append(dl.segments, segment{a: tf.Apply(pts[i-1]), b: tf.Apply(pts[i]), stroke: st.River})
		}
	}
	for _, p := range s.Tree.TipPoints() {
		dl.tips = append(dl.tips, tf.Apply(p))
	}
	return dl
}
