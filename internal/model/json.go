/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package model

import (
	"encoding/json"
	"fmt"

	"riversim/internal/region"
	"riversim/internal/river"
)

type modelJSON struct {
	Options      ProgramOptions            `json:"program_options"`
	Params       Params                    `json:"parameters"`
	RegionParams region.Params             `json:"region_params"`
	Mesh         MeshParams                `json:"mesh"`
	Integration  IntegrationParams         `json:"integration"`
	Solver       SolverParams              `json:"solver"`
	Region       *region.Region            `json:"region"`
	Sources      region.Sources            `json:"sources"`
	Tree         *river.Tree               `json:"rivers"`
	Conditions   region.BoundaryConditions `json:"boundary_conditions"`
	Series       SeriesParameters          `json:"series_parameters"`
	Backward     BackwardRecords           `json:"backward_data"`
	SimData      map[string][]float64      `json:"sim_data,omitempty"`
}

type document struct {
	Model *modelJSON `json:"model"`
}

// MarshalJSON encodes the model as {"model": {...}}.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(document{Model: &modelJSON{
		Options:      m.Options,
		Params:       m.Params,
		RegionParams: m.RegionParams,
		Mesh:         m.Mesh,
		Integration:  m.Integration,
		Solver:       m.Solver,
		Region:       m.Region,
		Sources:      m.Sources,
		Tree:         m.Tree,
		Conditions:   m.Conditions,
		Series:       m.Series,
		Backward:     m.Backward,
		SimData:      m.SimData,
	}})
}

// UnmarshalJSON decodes a {"model": {...}} document. Parameters missing from
// the document keep their defaults.
func (m *Model) UnmarshalJSON(data []byte) error {
	d := New()
	mj := &modelJSON{
		Options:      d.Options,
		Params:       d.Params,
		RegionParams: d.RegionParams,
		Mesh:         d.Mesh,
		Integration:  d.Integration,
		Solver:       d.Solver,
		Region:       d.Region,
		Sources:      d.Sources,
		Tree:         d.Tree,
		Conditions:   d.Conditions,
		Series:       d.Series,
		Backward:     d.Backward,
		SimData:      d.SimData,
	}
	if err := json.Unmarshal(data, &document{Model: mj}); err != nil {
		return fmt.Errorf("model: decode: %w", err)
	}
	*m = Model{
		Options:      mj.Options,
		Params:       mj.Params,
		RegionParams: mj.RegionParams,
		Mesh:         mj.Mesh,
		Integration:  mj.Integration,
		Solver:       mj.Solver,
		Region:       mj.Region,
		Sources:      mj.Sources,
		Tree:         mj.Tree,
		Conditions:   mj.Conditions,
		Series:       mj.Series,
		Backward:     mj.Backward,
		SimData:      mj.SimData,
	}
	if m.Region == nil {
		m.Region = region.New()
	}
	if m.Tree == nil {
		m.Tree = river.NewTree()
	}
	if m.Sources == nil {
		m.Sources = region.Sources{}
	}
	if m.Conditions == nil {
		m.Conditions = region.BoundaryConditions{}
	}
	if m.Series == nil {
		m.Series = SeriesParameters{}
	}
	if m.Backward == nil {
		m.Backward = BackwardRecords{}
	}
	if m.SimData == nil {
		m.SimData = map[string][]float64{}
	}
	return nil
}
