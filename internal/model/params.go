/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package model

import (
	"math"

	"riversim/internal/geom"
)

// SimulationType selects the driver loop.
type SimulationType int

const (
	Forward SimulationType = iota
	Backward
	Test
)

func (s SimulationType) String() string {
	switch s {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Test:
		return "test"
	}
	return "unknown"
}

// ProgramOptions controls how a run is driven and where it is written.
type ProgramOptions struct {
	SimulationType        SimulationType `json:"simulation_type"`
	NumberOfSteps         int            `json:"number_of_steps"`
	MaximalRiverHeight    float64        `json:"maximal_river_height"`
	NumberOfBackwardSteps int            `json:"number_of_backward_steps"`
	NonLinear             bool           `json:"non_linear,omitempty"`
	SaveEachStep          bool           `json:"save_each_step"`
	Verbose               bool           `json:"verbose,omitempty"`
	Debug                 bool           `json:"debug,omitempty"`
	OutputFileName        string         `json:"output_file_name"`
}

// Params are the growth model parameters.
type Params struct {
	Dx                   float64 `json:"dx"`
	Width                float64 `json:"width"`
	Height               float64 `json:"height"`
	Ds                   float64 `json:"ds"`
	Eta                  float64 `json:"eta"`
	BifurcationType      int     `json:"bifurcation_type"`
	BifurcationThreshold float64 `json:"bifurcation_threshold"`
	BifurcationMinDist   float64 `json:"bifurcation_min_dist"`
	BifurcationAngle     float64 `json:"bifurcation_angle"`
	GrowthType           int     `json:"growth_type"`
	GrowthThreshold      float64 `json:"growth_threshold"`
	GrowthMinDistance    float64 `json:"growth_min_distance"`
}

// MeshParams configure the external mesher and its area constraint.
type MeshParams struct {
	RefinmentRadius      float64 `json:"refinment_radius"`
	Exponant             float64 `json:"exponant"`
	Sigma                float64 `json:"sigma"`
	StaticRefinmentSteps int     `json:"static_refinment_steps"`
	MinArea              float64 `json:"min_area"`
	MaxArea              float64 `json:"max_area"`
	MinAngle             float64 `json:"min_angle"`
	MaxEdge              float64 `json:"max_edge"`
	MinEdge              float64 `json:"min_edge"`
	Ratio                float64 `json:"ratio"`
	Eps                  float64 `json:"eps"`
}

// IntegrationParams configure series parameter extraction around tips.
type IntegrationParams struct {
	WeightFuncRadius  float64 `json:"weight_func_radius"`
	IntegrationRadius float64 `json:"integration_radius"`
	Exponant          float64 `json:"exponant"`
	Eps               float64 `json:"eps"`
	NRho              int     `json:"n_rho"`
}

// SolverParams configure the external field solver.
type SolverParams struct {
	FieldValue             float64 `json:"field_value"`
	Tolerance              float64 `json:"tolerance"`
	NumOfIterations        int     `json:"num_of_iterations"`
	AdaptiveRefinmentSteps int     `json:"adaptive_refinment_steps"`
	StaticRefinmentSteps   int     `json:"static_refinment_steps"`
	RefinmentFraction      float64 `json:"refinment_fraction"`
	QuadratureDegree       int     `json:"quadrature_degree"`
	RenumberingType        int     `json:"renumbering_type"`
	MaxDistance            float64 `json:"max_distance"`
}

func DefaultProgramOptions() ProgramOptions {
	return ProgramOptions{
		SimulationType:        Forward,
		NumberOfSteps:         10,
		MaximalRiverHeight:    100,
		NumberOfBackwardSteps: 1,
		OutputFileName:        "simdata",
	}
}

func DefaultParams() Params {
	return Params{
		Dx:                   0.2,
		Width:                1,
		Height:               1,
		Ds:                   0.01,
		Eta:                  1,
		BifurcationType:      1,
		BifurcationThreshold: -0.1,
		BifurcationMinDist:   0.05,
		BifurcationAngle:     math.Pi / 5,
		GrowthType:           1,
		GrowthThreshold:      0,
		GrowthMinDistance:    0.005,
	}
}

func DefaultMeshParams() MeshParams {
	return MeshParams{
		RefinmentRadius:      0.1,
		Exponant:             7,
		Sigma:                1.9,
		StaticRefinmentSteps: 1,
		MinArea:              7e-4,
		MaxArea:              1e5,
		MinAngle:             30,
		MaxEdge:              1,
		MinEdge:              8e-8,
		Ratio:                2.3,
		Eps:                  1e-6,
	}
}

func DefaultIntegrationParams() IntegrationParams {
	return IntegrationParams{
		WeightFuncRadius:  0.01,
		IntegrationRadius: 0.03,
		Exponant:          2,
		Eps:               1e-6,
		NRho:              8,
	}
}

func DefaultSolverParams() SolverParams {
	return SolverParams{
		FieldValue:        1,
		Tolerance:         1e-12,
		NumOfIterations:   6000,
		RefinmentFraction: 0.1,
		QuadratureDegree:  3,
		MaxDistance:       1e-3,
	}
}

// noTipArea is returned by the area constraint when there are no tips.
const noTipArea = 1e7

// AreaConstraint returns the maximal triangle area at (x, y): small near
// any of tips, growing smoothly to MaxArea away from them.
func (mp MeshParams) AreaConstraint(tips []geom.Point) func(x, y float64) float64 {
	tips = append([]geom.Point(nil), tips...)
	return func(x, y float64) float64 {
		area := noTipArea
		for _, tip := range tips {
			r := geom.Point{X: x, Y: y}.DistanceTo(tip)
			e := math.Exp(-math.Pow(r/mp.RefinmentRadius, mp.Exponant) / 2 / mp.Sigma / mp.Sigma)
			area = math.Min(area, mp.MinArea+(mp.MaxArea-mp.MinArea)*(1-e)/(1+e))
		}
		return area
	}
}

// WeightFunction is the radial weight used when integrating series
// parameters around a tip.
func (ip IntegrationParams) WeightFunction(r float64) float64 {
	return math.Exp(-math.Pow(r/ip.WeightFuncRadius, ip.Exponant))
}
