/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package model holds the full state of a river growth run: parameters,
// the region with its sources and boundary conditions, the river tree and
// the data recorded while growing it.
package model

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"riversim/internal/geom"
	"riversim/internal/region"
	"riversim/internal/river"
)

// Preset names accepted by Initialize.
const (
	PresetLaplace           = "laplace"
	PresetPoisson           = "poisson"
	PresetDirichlet         = "dirichlet"
	PresetDirichletWithHole = "dirichlet-hole"
)

// Presets lists the known preset names.
func Presets() []string {
	return []string{PresetLaplace, PresetPoisson, PresetDirichlet, PresetDirichletWithHole}
}

type Model struct {
	Options      ProgramOptions
	Params       Params
	RegionParams region.Params
	Mesh         MeshParams
	Integration  IntegrationParams
	Solver       SolverParams

	Region     *region.Region
	Sources    region.Sources
	Tree       *river.Tree
	Conditions region.BoundaryConditions

	Series   SeriesParameters
	Backward BackwardRecords
	SimData  map[string][]float64
}

// New returns an empty model with default parameters.
func New() *Model {
	m := &Model{
		Options:      DefaultProgramOptions(),
		Params:       DefaultParams(),
		RegionParams: region.DefaultParams(),
		Mesh:         DefaultMeshParams(),
		Integration:  DefaultIntegrationParams(),
		Solver:       DefaultSolverParams(),
	}
	m.Clear()
	return m
}

// Clear drops the geometry and every recorded value but keeps parameters.
func (m *Model) Clear() {
	m.Region = region.New()
	m.Sources = region.Sources{}
	m.Tree = river.NewTree()
	m.Conditions = region.BoundaryConditions{}
	m.Series = SeriesParameters{}
	m.Backward = BackwardRecords{}
	m.SimData = map[string][]float64{}
}

// Initialize sets up the geometry and boundary conditions of a preset.
func (m *Model) Initialize(preset string) error {
	switch preset {
	case PresetLaplace:
		return m.InitializeLaplace()
	case PresetPoisson:
		return m.InitializePoisson()
	case PresetDirichlet:
		return m.InitializeDirichlet()
	case PresetDirichletWithHole:
		return m.InitializeDirichletWithHole()
	}
	return fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
}

func (m *Model) rectangle(field float64, types [5]region.ConditionType, values [5]float64) error {
	m.Clear()
	m.Solver.FieldValue = field
	m.Sources = m.Region.MakeRectangular(m.Params.Width, m.Params.Height, m.Params.Dx)
	for i := range types {
		m.Conditions[i+1] = region.BoundaryCondition{Type: types[i], Value: values[i]}
	}
	m.Conditions[m.RegionParams.RiverBoundaryID] = region.BoundaryCondition{Type: region.Dirichlet, Value: 0}
	return m.Tree.Initialize(map[int]region.SourcePoint{
		1: {Point: geom.Point{X: m.Params.Dx}, Angle: math.Pi / 2},
	})
}

// InitializeLaplace: no source term, unit flux through the top edge.
func (m *Model) InitializeLaplace() error {
	d, n := region.Dirichlet, region.Neumann
	return m.rectangle(0, [5]region.ConditionType{d, d, n, n, n}, [5]float64{0, 0, 0, 1, 0})
}

// InitializePoisson: unit source term, absorbing bottom edge.
func (m *Model) InitializePoisson() error {
	d, n := region.Dirichlet, region.Neumann
	return m.rectangle(1, [5]region.ConditionType{d, d, n, n, n}, [5]float64{})
}

// InitializeDirichlet: unit source term, absorbing everywhere.
func (m *Model) InitializeDirichlet() error {
	d := region.Dirichlet
	return m.rectangle(1, [5]region.ConditionType{d, d, d, d, d}, [5]float64{})
}

// InitializeDirichletWithHole is Laplace-like boundary conditions on the
// outer edge plus two holes, an absorbing one and one held at 1. Every
// boundary carries a source.
func (m *Model) InitializeDirichletWithHole() error {
	m.Clear()
	m.Solver.FieldValue = 1
	m.Sources = m.Region.MakeRectangularWithHole(m.Params.Width, m.Params.Height, m.Params.Dx)
	d, n := region.Dirichlet, region.Neumann
	m.Conditions[1] = region.BoundaryCondition{Type: d}
	m.Conditions[2] = region.BoundaryCondition{Type: d}
	m.Conditions[3] = region.BoundaryCondition{Type: n}
	m.Conditions[4] = region.BoundaryCondition{Type: n, Value: 1}
	m.Conditions[5] = region.BoundaryCondition{Type: n}
	for id := 6; id <= 9; id++ {
		m.Conditions[id] = region.BoundaryCondition{Type: d}
	}
	for id := 10; id <= 13; id++ {
		m.Conditions[id] = region.BoundaryCondition{Type: d, Value: 1}
	}
	m.Conditions[m.RegionParams.RiverBoundaryID] = region.BoundaryCondition{Type: d}

	init, err := m.Region.SourcesIdsPointsAndAngles(m.Sources)
	if err != nil {
		return err
	}
	return m.Tree.Initialize(init)
}

// Validate checks the region against the sources and that every source has
// its branch in the tree.
func (m *Model) Validate() error {
	if err := m.Region.Check(m.Sources); err != nil {
		return err
	}
	for _, id := range m.Sources.IDs() {
		if _, err := m.Tree.Branch(id); err != nil {
			return fmt.Errorf("source %d: %w", id, err)
		}
	}
	return nil
}

// RevertLastStep undoes one growth step: tips lose their last point and the
// values recorded for that step are dropped.
func (m *Model) RevertLastStep() error {
	tips := m.Tree.TipIdsAndPoints()
	if err := m.Tree.RemoveTipPoints(); err != nil {
		return err
	}
	for k, v := range m.SimData {
		if n := len(v); n > 0 {
			m.SimData[k] = v[:n-1]
		}
	}
	m.Series.popLast(tips)
	return nil
}

// RecordSimData appends one value per key for the current step.
func (m *Model) RecordSimData(key string, v float64) {
	m.SimData[key] = append(m.SimData[key], v)
}

// TipsReachedHeight reports whether any tip lies above MaximalRiverHeight.
func (m *Model) TipsReachedHeight() bool {
	return slices.ContainsFunc(m.Tree.TipPoints(), func(p geom.Point) bool {
		return p.Y > m.Options.MaximalRiverHeight
	})
}

// Clone returns a deep copy.
func (m *Model) Clone() *Model {
	c := *m
	c.Region = m.Region.Clone()
	c.Sources = m.Sources.Clone()
	c.Tree = m.Tree.Clone()
	c.Conditions = maps.Clone(m.Conditions)
	c.Series = make(SeriesParameters, len(m.Series))
	for k, h := range m.Series {
		for i := range h {
			h[i] = slices.Clone(h[i])
		}
		c.Series[k] = h
	}
	c.Backward = make(BackwardRecords, len(m.Backward))
	for k, d := range m.Backward {
		cp := *d
		cp.A1, cp.A2, cp.A3 = slices.Clone(d.A1), slices.Clone(d.A2), slices.Clone(d.A3)
		cp.Init, cp.Backward, cp.BackwardForward = slices.Clone(d.Init), slices.Clone(d.Backward), slices.Clone(d.BackwardForward)
		c.Backward[k] = &cp
	}
	c.SimData = make(map[string][]float64, len(m.SimData))
	for k, v := range m.SimData {
		c.SimData[k] = slices.Clone(v)
	}
	return &c
}
