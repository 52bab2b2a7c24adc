/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package model

import "fmt"

type checker struct {
	err      error
	warnings []string
}

func (c *checker) fail(bad bool, name string, v float64, reason string) {
	if bad && c.err == nil {
		c.err = &InvalidParameterError{Name: name, Value: v, Reason: reason}
	}
}

func (c *checker) warn(cond bool, format string, args ...any) {
	if cond {
		c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
	}
}

// CheckParametersConsistency validates every parameter group. It returns
// the first invalid parameter as an *InvalidParameterError together with
// all warnings about values that are legal but unusual.
func (m *Model) CheckParametersConsistency() ([]string, error) {
	var c checker
	o, p, rp := m.Options, m.Params, m.RegionParams
	mp, ip, sp := m.Mesh, m.Integration, m.Solver

	c.fail(o.MaximalRiverHeight < 0, "maximal_river_height", o.MaximalRiverHeight, "must not be negative")
	c.warn(o.MaximalRiverHeight > p.Height, "maximal_river_height %g exceeds region height %g and has no effect", o.MaximalRiverHeight, p.Height)
	c.warn(o.NumberOfBackwardSteps > 30, "number_of_backward_steps %d is very large", o.NumberOfBackwardSteps)
	if o.OutputFileName == "" && c.err == nil {
		c.err = &InvalidParameterError{Name: "output_file_name", Reason: "must not be empty"}
	}

	c.fail(p.Dx < 0 || p.Dx > p.Width, "dx", p.Dx, "must lie in [0, width]")
	c.fail(p.Width < 0, "width", p.Width, "must not be negative")
	c.warn(p.Width > 1000, "width %g is very large", p.Width)
	c.fail(p.Height < 0, "height", p.Height, "must not be negative")
	c.warn(p.Height > 1000, "height %g is very large", p.Height)
	c.fail(p.Ds <= 0, "ds", p.Ds, "must be positive")
	c.warn(p.Ds > 0 && p.Ds < 1e-7, "ds %g is very small", p.Ds)
	c.warn(p.Ds > 1000, "ds %g is very large", p.Ds)
	c.fail(rp.RiverWidth < 0, "river_width", rp.RiverWidth, "must not be negative")
	c.fail(rp.RiverWidth > 0.1*p.Ds, "river_width", rp.RiverWidth, "must not exceed 0.1*ds")
	c.warn(p.BifurcationThreshold > 100 || p.BifurcationThreshold < -100, "|bifurcation_threshold| %g is very large", p.BifurcationThreshold)
	c.fail(p.BifurcationMinDist < 0, "bifurcation_min_dist", p.BifurcationMinDist, "must not be negative")
	if p.BifurcationType < 0 || p.BifurcationType > 3 {
		c.fail(true, "bifurcation_type", float64(p.BifurcationType), "must be 0, 1, 2 or 3")
	}
	if p.GrowthType != 0 && p.GrowthType != 1 {
		c.fail(true, "growth_type", float64(p.GrowthType), "must be 0 or 1")
	}
	c.fail(p.GrowthThreshold < 0, "growth_threshold", p.GrowthThreshold, "must not be negative")
	c.fail(p.GrowthMinDistance < 0, "growth_min_distance", p.GrowthMinDistance, "must not be negative")

	c.fail(mp.Exponant < 0, "mesh exponant", mp.Exponant, "must not be negative")
	c.warn(mp.Exponant > 100, "mesh exponant %g makes the refinement a step function", mp.Exponant)
	c.fail(mp.RefinmentRadius < 0, "mesh refinment_radius", mp.RefinmentRadius, "must not be negative")
	c.fail(mp.MinArea < 0, "mesh min_area", mp.MinArea, "must not be negative")
	c.warn(mp.MinArea < 1e-12, "mesh min_area %g is below what the mesher handles, use static refinement", mp.MinArea)
	c.warn(mp.MinArea > mp.MaxArea, "mesh min_area %g exceeds max_area %g", mp.MinArea, mp.MaxArea)
	c.fail(mp.MinAngle < 0 || mp.MinAngle > 35, "mesh min_angle", mp.MinAngle, "must lie in [0, 35]")
	c.fail(mp.MaxArea < 0, "mesh max_area", mp.MaxArea, "must not be negative")
	c.fail(mp.Sigma < 0, "mesh sigma", mp.Sigma, "must not be negative")
	c.warn(mp.StaticRefinmentSteps >= 5, "mesh static_refinment_steps %d makes runs slow", mp.StaticRefinmentSteps)
	c.fail(mp.Ratio <= 1.38, "mesh ratio", mp.Ratio, "must exceed 1.38")
	c.fail(mp.MaxEdge < 0, "mesh max_edge", mp.MaxEdge, "must not be negative")
	c.fail(mp.MinEdge < 0, "mesh min_edge", mp.MinEdge, "must not be negative")
	c.warn(mp.MaxEdge < 0.001, "mesh max_edge %g is very small", mp.MaxEdge)
	c.fail(mp.MaxEdge < mp.MinEdge, "mesh min_edge", mp.MinEdge, "must not exceed max_edge")

	c.fail(ip.WeightFuncRadius < 0, "integration weight_func_radius", ip.WeightFuncRadius, "must not be negative")
	c.fail(ip.IntegrationRadius < 0, "integration integration_radius", ip.IntegrationRadius, "must not be negative")
	c.fail(ip.Exponant < 0, "integration exponant", ip.Exponant, "must not be negative")

	c.fail(sp.QuadratureDegree < 0, "solver quadrature_degree", float64(sp.QuadratureDegree), "must not be negative")
	c.fail(sp.RefinmentFraction < 0 || sp.RefinmentFraction > 1, "solver refinment_fraction", sp.RefinmentFraction, "must lie in [0, 1]")
	c.warn(sp.AdaptiveRefinmentSteps >= 5, "solver adaptive_refinment_steps %d makes runs slow", sp.AdaptiveRefinmentSteps)
	c.warn(sp.StaticRefinmentSteps >= 5, "solver static_refinment_steps %d makes runs slow", sp.StaticRefinmentSteps)
	c.fail(sp.Tolerance < 0, "solver tolerance", sp.Tolerance, "must not be negative")
	c.warn(sp.Tolerance >= 0 && sp.Tolerance < 1e-13, "solver tolerance %g is very small", sp.Tolerance)
	c.warn(sp.Tolerance > 1e-5, "solver tolerance %g is very large", sp.Tolerance)
	c.warn(sp.NumOfIterations < 2000, "solver num_of_iterations %d is very small", sp.NumOfIterations)
	if sp.RenumberingType < 0 || sp.RenumberingType > 7 {
		c.fail(true, "solver renumbering_type", float64(sp.RenumberingType), "must lie in [0, 7]")
	}
	c.fail(sp.MaxDistance < 0, "solver max_distance", sp.MaxDistance, "must not be negative")

	return c.warnings, c.err
}
