/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "testing"

func TestDoIntersect(t *testing.T) {
	cases := []struct {
		name           string
		p1, q1, p2, q2 Point
		want           bool
	}{
		{"crossing", Point{0, 0}, Point{1, 1}, Point{1, 0}, Point{0, 1}, true},
		{"collinear adjacent", Point{0, 0}, Point{1, 1}, Point{1, 1}, Point{2, 2}, false},
		{"shared endpoint at angle", Point{0, 0}, Point{1, 0}, Point{1, 0}, Point{1, 1}, false},
		{"parallel", Point{0, 0}, Point{1, 0}, Point{0, 1}, Point{1, 1}, false},
		{"collinear overlap", Point{0, 0}, Point{2, 2}, Point{1, 1}, Point{3, 3}, true},
		{"disjoint collinear", Point{0, 0}, Point{1, 1}, Point{2, 2}, Point{3, 3}, false},
		{"horizontal overlap", Point{0, 0}, Point{2, 0}, Point{1, 0}, Point{3, 0}, true},
		{"vertical overlap", Point{0, 0}, Point{0, 2}, Point{0, 1}, Point{0, 3}, true},
		{"horizontal containment", Point{0, 0}, Point{4, 0}, Point{1, 0}, Point{2, 0}, true},
		{"vertical containment", Point{0, 1}, Point{0, 2}, Point{0, 0}, Point{0, 4}, true},
		{"horizontal adjacent", Point{0, 0}, Point{1, 0}, Point{1, 0}, Point{2, 0}, false},
		{"vertical adjacent", Point{0, 0}, Point{0, 1}, Point{0, 1}, Point{0, 2}, false},
		{"horizontal disjoint", Point{0, 0}, Point{1, 0}, Point{2, 0}, Point{3, 0}, false},
		{"t junction", Point{0, 0}, Point{2, 0}, Point{1, -1}, Point{1, 1}, true},
		{"far apart", Point{0, 0}, Point{1, 0}, Point{5, 5}, Point{6, 7}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DoIntersect(c.p1, c.q1, c.p2, c.q2); got != c.want {
				t.Fatalf("DoIntersect = %v, want %v", got, c.want)
			}
			if got := DoIntersect(c.p2, c.q2, c.p1, c.q1); got != c.want {
				t.Fatalf("DoIntersect swapped = %v, want %v", got, c.want)
			}
		})
	}
}

func TestOrientation(t *testing.T) {
	if o := orientation(Point{0, 0}, Point{1, 0}, Point{2, 0}); o != 0 {
		t.Fatalf("orientation collinear = %d, want 0", o)
	}
	if o := orientation(Point{0, 0}, Point{1, 0}, Point{1, -1}); o != 1 {
		t.Fatalf("orientation clockwise = %d, want 1", o)
	}
	if o := orientation(Point{0, 0}, Point{1, 0}, Point{1, 1}); o != 2 {
		t.Fatalf("orientation counterclockwise = %d, want 2", o)
	}
}
