/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ribbon converts the river tree into mesher input: every branch is
// widened into a thin ribbon polygon, ribbons of a bifurcation are joined at
// the junction, and each source's ribbon is spliced into the region polygon
// at its source vertex.
package ribbon

import (
	"fmt"
	"math"
	"slices"

	"riversim/internal/geom"
	"riversim/internal/region"
	"riversim/internal/river"
)

// SizeMismatchError reports a generated boundary whose line and vertex
// counts differ.
type SizeMismatchError struct {
	Vertices, Lines int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("ribbon: generated boundary has %d vertices but %d lines", e.Vertices, e.Lines)
}

// RiversBoundary returns the open ribbon polyline of branch id and all of
// its descendants: left bank from the source, the tip (or the ribbons of
// both children), then the right bank back to the source. An empty tree
// yields an empty boundary.
func RiversBoundary(tree *river.Tree, id int, p region.Params) (region.Boundary, error) {
	var out region.Boundary
	if tree.Len() == 0 {
		return out, nil
	}
	if err := appendRibbon(&out, tree, id, p); err != nil {
		return region.Boundary{}, err
	}
	return out, nil
}

func appendRibbon(out *region.Boundary, tree *river.Tree, id int, p region.Params) error {
	br, err := tree.Branch(id)
	if err != nil {
		return err
	}
	smooth, err := br.Smooth(p.SmoothnessDegree, p.IgnoredSmoothnessLength)
	if err != nil {
		return fmt.Errorf("ribbon: smoothing branch %d: %w", id, err)
	}
	left, right, err := banks(smooth, p.RiverWidth/2)
	if err != nil {
		return fmt.Errorf("ribbon: branch %d: %w", id, err)
	}

	has, err := tree.HasSubBranches(id)
	if err != nil {
		return err
	}
	if has {
		rel, err := tree.SubBranchesIds(id)
		if err != nil {
			return err
		}
		out.Append(left)
		if err := appendRibbon(out, tree, rel.Left, p); err != nil {
			return err
		}
		// the junction vertex is emitted again by the right child
		out.Vertices = out.Vertices[:len(out.Vertices)-1]
		if err := appendRibbon(out, tree, rel.Right, p); err != nil {
			return err
		}
		out.Append(right)
	} else {
		out.Append(left)
		out.Vertices = append(out.Vertices, smooth.TipPoint())
		out.Append(right)
	}
	out.FixLinesIndices(false)
	return nil
}

// banks offsets every vertex but the tip by half perpendicular to the
// incoming segment; the source vertex uses the source angle. The right bank
// is returned reversed so that left + tip + right winds consistently.
func banks(b *river.Branch, half float64) (left, right region.Boundary, err error) {
	v := b.Vertices()
	n := len(v) - 1
	left.Vertices = make([]geom.Point, n)
	right.Vertices = make([]geom.Point, n)
	for i := range n {
		if i == 0 {
			off := geom.Point{X: half}
			left.Vertices[i] = v[i].Add(off.Rotate(b.SourceAngle() + math.Pi/2))
			right.Vertices[i] = v[i].Add(off.Rotate(b.SourceAngle() - math.Pi/2))
			continue
		}
		seg, err := b.Vector(i - 1)
		if err != nil {
			return left, right, err
		}
		u, err := seg.Normalize()
		if err != nil {
			return left, right, err
		}
		left.Vertices[i] = v[i].Add(u.Rotate(math.Pi / 2).Mul(half))
		right.Vertices[i] = v[i].Add(u.Rotate(-math.Pi / 2).Mul(half))
	}
	slices.Reverse(right.Vertices)
	left.Lines = slices.Clone(b.Lines())
	right.Lines = slices.Clone(b.Lines())
	slices.Reverse(right.Lines)
	return left, right, nil
}

// Generate builds the single closed boundary handed to the mesher: every
// region polygon, in id order, with each source vertex replaced by the
// ribbon of the matching source branch. Region and tree are not modified.
func Generate(sources region.Sources, reg *region.Region, tree *river.Tree, p region.Params) (region.Boundary, error) {
	loc := sources.Clone()
	var final region.Boundary
	for _, bid := range reg.IDs() {
		b, _ := reg.Boundary(bid)
		b = b.Clone()
		for _, sid := range loc.IDs() {
			sc := loc[sid]
			if sc.BoundaryID != bid {
				continue
			}
			rb, err := RiversBoundary(tree, sid, p)
			if err != nil {
				return region.Boundary{}, err
			}
			if err := b.ReplaceElement(sc.VertexPos, rb); err != nil {
				return region.Boundary{}, fmt.Errorf("ribbon: source %d: %w", sid, err)
			}
			if len(rb.Vertices) <= 1 {
				continue
			}
			shift := len(rb.Vertices) - 1
			for oid, oc := range loc {
				if oc.BoundaryID == bid && oc.VertexPos > sc.VertexPos {
					oc.VertexPos += shift
					loc[oid] = oc
				}
			}
		}
		final.Append(b)
	}
	if len(final.Lines) != len(final.Vertices) {
		return final, &SizeMismatchError{Vertices: len(final.Vertices), Lines: len(final.Lines)}
	}
	return final, nil
}
