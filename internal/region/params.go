/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package region

// Params controls how river ribbons are cut into the region.
type Params struct {
	SmoothnessDegree        float64 `json:"smoothness_degree"`
	IgnoredSmoothnessLength float64 `json:"ignored_smoothness_length"`
	RiverWidth              float64 `json:"river_width"`
	RiverBoundaryID         int     `json:"river_boundary_id"`
}

// DefaultParams returns the parameters used by every preset.
func DefaultParams() Params {
	return Params{
		SmoothnessDegree:        0.2,
		IgnoredSmoothnessLength: 0.01,
		RiverWidth:              1e-7,
		RiverBoundaryID:         100,
	}
}
