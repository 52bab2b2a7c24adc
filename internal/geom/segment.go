/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "math"

// shrinkFactor trims each segment at both ends by this fraction of its
// length before testing, so segments that merely share an endpoint do not
// count as intersecting.
const shrinkFactor = 5e-6

// orientation of the ordered triplet (p, q, r):
// 0 collinear, 1 clockwise, 2 counterclockwise.
func orientation(p, q, r Point) int {
	val := (q.Y-p.Y)*(r.X-q.X) - (q.X-p.X)*(r.Y-q.Y)
	switch {
	case val == 0:
		return 0
	case val > 0:
		return 1
	}
	return 2
}

// onSegment reports whether q lies within the bounding box of pr, given
// that p, q and r are collinear. The box is closed so axis-aligned overlaps
// count; the endpoint shrink keeps shared endpoints apart.
func onSegment(p, q, r Point) bool {
	return q.X <= math.Max(p.X, r.X) && q.X >= math.Min(p.X, r.X) &&
		q.Y <= math.Max(p.Y, r.Y) && q.Y >= math.Min(p.Y, r.Y)
}

func shrinkSegment(p, q Point) (Point, Point) {
	d := q.Sub(p).Mul(shrinkFactor)
	return p.Add(d), q.Sub(d)
}

// DoIntersect reports whether segments p1q1 and p2q2 cross or overlap.
// Segments touching only at a shared endpoint are not intersecting.
func DoIntersect(p1, q1, p2, q2 Point) bool {
	p1, q1 = shrinkSegment(p1, q1)
	p2, q2 = shrinkSegment(p2, q2)

	o1 := orientation(p1, q1, p2)
	o2 := orientation(p1, q1, q2)
	o3 := orientation(p2, q2, p1)
	o4 := orientation(p2, q2, q1)

	if o1 != o2 && o3 != o4 {
		return true
	}
	switch {
	case o1 == 0 && onSegment(p1, p2, q1):
		return true
	case o2 == 0 && onSegment(p1, q2, q1):
		return true
	case o3 == 0 && onSegment(p2, p1, q2):
		return true
	case o4 == 0 && onSegment(p2, q1, q2):
		return true
	}
	return false
}
