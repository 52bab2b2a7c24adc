/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package region

import (
	"math"

	"riversim/internal/geom"
)

// NumOfBoundaryIntersection counts pairs of segments, one from tip and one
// from b, that intersect. Identical segments present in both are skipped.
func NumOfBoundaryIntersection(b, tip Boundary) int {
	n := 0
	for _, tl := range tip.Lines {
		p1, q1 := tip.Vertices[tl.P1], tip.Vertices[tl.P2]
		for _, bl := range b.Lines {
			p2, q2 := b.Vertices[bl.P1], b.Vertices[bl.P2]
			if p1.Equal(p2) && q1.Equal(q2) {
				continue
			}
			if geom.DoIntersect(p1, q1, p2, q2) {
				n++
			}
		}
	}
	return n
}

// distanceToLine is the distance from p to the infinite line through a and b.
func distanceToLine(a, b, p geom.Point) float64 {
	return math.Abs((b.X-a.X)*(a.Y-p.Y)-(a.X-p.X)*(b.Y-a.Y)) / a.DistanceTo(b)
}

// DistanceFromPointToBoundary returns the smallest distance from p to the
// lines of b, or +Inf for a boundary without lines.
func DistanceFromPointToBoundary(b Boundary, p geom.Point) float64 {
	d := math.Inf(1)
	for _, l := range b.Lines {
		d = math.Min(d, distanceToLine(b.Vertices[l.P1], b.Vertices[l.P2], p))
	}
	return d
}

// DistanceFromPointsToBoundary is the minimum of DistanceFromPointToBoundary over points.
func DistanceFromPointsToBoundary(b Boundary, points []geom.Point) float64 {
	d := math.Inf(1)
	for _, p := range points {
		d = math.Min(d, DistanceFromPointToBoundary(b, p))
	}
	return d
}
