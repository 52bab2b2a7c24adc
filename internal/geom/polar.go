/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "math"

// Polar is a vector in polar form. Phi is in radians.
type Polar struct {
	R   float64 `json:"r"`
	Phi float64 `json:"phi"`
}

// Point converts pl to Cartesian coordinates.
func (pl Polar) Point() Point {
	s, c := math.Sincos(pl.Phi)
	return Point{pl.R * c, pl.R * s}
}

// ToPolar converts p to polar form. The zero vector maps to the zero Polar.
func ToPolar(p Point) Polar {
	phi, err := p.Angle()
	if err != nil {
		return Polar{}
	}
	return Polar{R: p.Norm(), Phi: phi}
}
