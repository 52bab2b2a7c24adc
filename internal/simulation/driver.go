/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"

	"riversim/internal/geom"
	rlog "riversim/internal/log"
	"riversim/internal/model"
	"riversim/internal/region"
	"riversim/internal/ribbon"
	"riversim/internal/river"
	"riversim/internal/undo"
)

// ErrUnknownSimulationType is returned by Run for a simulation type it
// cannot drive.
var ErrUnknownSimulationType = errors.New("simulation: unknown simulation type")

// maxNonLinearIterations bounds the curvature correction loop of one
// non-linear step.
const maxNonLinearIterations = 100

// Phases reported in StepInfo.
const (
	PhaseForward  = "forward"
	PhaseBackward = "backward"
)

// StepInfo describes a completed step.
type StepInfo struct {
	Phase  string
	Step   int
	Tips   int
	MaxA1  float64
	Series map[int]model.Series
	Cells  int
	DOF    int
}

// Driver runs a model through the external mesher, solver and integrator.
type Driver struct {
	Model      *model.Model
	Mesher     Mesher
	Solver     Solver
	Integrator Integrator

	// OnStep, if set, is called after every completed step. An error
	// aborts the run.
	OnStep func(ctx context.Context, info StepInfo) error

	// History holds a tree snapshot taken before every forward step.
	History *undo.Manager

	log       *slog.Logger
	stopped   bool
	lastCells int
	lastDOF   int
}

// New returns a driver with an unbounded-depth history.
func New(m *model.Model, mesher Mesher, solver Solver, integrator Integrator) *Driver {
	return &Driver{
		Model:      m,
		Mesher:     mesher,
		Solver:     solver,
		Integrator: integrator,
		History:    undo.NewManager(undo.Config{}),
		log:        rlog.WithComponent("simulation"),
	}
}

func (d *Driver) logger() *slog.Logger {
	if d.log == nil {
		d.log = rlog.WithComponent("simulation")
	}
	return d.log
}

// Stopped reports whether the last growth step was rolled back because a
// tip crossed the boundary. Run stops at that point.
func (d *Driver) Stopped() bool { return d.stopped }

// Boundary cuts the current rivers into the region.
func (d *Driver) Boundary() (region.Boundary, error) {
	m := d.Model
	return ribbon.Generate(m.Sources, m.Region, m.Tree, m.RegionParams)
}

// evaluate meshes and solves the current geometry and integrates series
// parameters at every tip.
func (d *Driver) evaluate(ctx context.Context) (map[int]model.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := d.Model
	b, err := d.Boundary()
	if err != nil {
		return nil, fmt.Errorf("boundary generation: %w", err)
	}
	mesh, err := d.Mesher.Triangulate(ctx, b, m.Region.Holes(), m.Mesh.AreaConstraint(m.Tree.TipPoints()))
	if err != nil {
		return nil, fmt.Errorf("mesh generation: %w", err)
	}
	field, err := d.Solver.Solve(ctx, mesh, m.Conditions, m.Solver.FieldValue)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	d.lastCells, d.lastDOF = mesh.Cells(), field.DegreesOfFreedom()

	series := make(map[int]model.Series)
	for _, id := range m.Tree.TipBranchesIds() {
		br, _ := m.Tree.Branch(id)
		angle, err := br.TipAngle()
		if err != nil {
			return nil, err
		}
		s, err := d.Integrator.Integrate(ctx, field, br.TipPoint(), angle, m.Integration.IntegrationRadius)
		if err != nil {
			return nil, fmt.Errorf("integrate tip %d: %w", id, err)
		}
		series[id] = s
	}
	return series, nil
}

// checkIntersections restores before when a new tip segment crosses the
// generated boundary and marks the driver stopped.
func (d *Driver) checkIntersections(before *river.Tree) (bool, error) {
	b, err := d.Boundary()
	if err != nil {
		return false, err
	}
	n := region.NumOfBoundaryIntersection(b, d.Model.Tree.TipBoundary())
	if n == 0 {
		return false, nil
	}
	d.logger().Warn("tip crosses boundary, rolling back growth", slog.Int("intersections", n))
	d.Model.Tree = before
	d.stopped = true
	return true, nil
}

// LinearStep evaluates series parameters once and grows every tip that
// passes the growth test, splitting those that pass the bifurcation test.
// maxA1 > 0 replaces the normalization by the largest a1 of this step.
func (d *Driver) LinearStep(ctx context.Context, maxA1 float64) (map[int]model.Series, error) {
	m := d.Model
	series, err := d.evaluate(ctx)
	if err != nil {
		return nil, err
	}
	if maxA1 <= 0 {
		maxA1 = model.MaxA1(series)
	}
	before := m.Tree.Clone()
	rbid := m.RegionParams.RiverBoundaryID
	for _, id := range slices.Sorted(maps.Keys(series)) {
		s := series[id]
		if !m.QGrowth(s) {
			continue
		}
		br, _ := m.Tree.Branch(id)
		split, err := m.QBifurcateLen(s, br.Length())
		if err != nil {
			return nil, err
		}
		if split {
			angle, err := br.TipAngle()
			if err != nil {
				return nil, err
			}
			left := river.NewBranch(br.TipPoint(), angle+m.Params.BifurcationAngle)
			right := river.NewBranch(br.TipPoint(), angle-m.Params.BifurcationAngle)
			_ = left.AddPolar(geom.Polar{R: m.Params.Ds}, rbid)
			_ = right.AddPolar(geom.Polar{R: m.Params.Ds}, rbid)
			if _, err := m.Tree.AddSubBranches(id, left, right); err != nil {
				return nil, err
			}
			d.logger().Debug("tip bifurcated", slog.Int("branch", id))
			continue
		}
		p, err := m.NextPointScaled(s, br.Length(), maxA1)
		if err != nil {
			return nil, fmt.Errorf("tip %d: %w", id, err)
		}
		if err := br.AddPolar(p, rbid); err != nil {
			return nil, err
		}
	}
	if _, err := d.checkIntersections(before); err != nil {
		return nil, err
	}
	return series, nil
}

// NonLinearStep makes a linear step and then repeats a second, bifurcation
// free half step, flattening the tip curvature it produces until the
// curvature falls below the solver's MaxDistance. The trial half step is
// then discarded.
func (d *Driver) NonLinearStep(ctx context.Context, maxA1First, maxA1Second float64) (map[int]model.Series, error) {
	m := d.Model
	series, err := d.LinearStep(ctx, maxA1First)
	if err != nil || d.stopped {
		return series, err
	}
	for i := 0; i < maxNonLinearIterations; i++ {
		bif := m.Params.BifurcationType
		m.Params.BifurcationType = 0
		_, err := d.LinearStep(ctx, maxA1Second)
		m.Params.BifurcationType = bif
		if err != nil || d.stopped {
			return series, err
		}
		dist := m.Tree.MaximalTipCurvatureDistance()
		d.logger().Debug("non-linear iteration", slog.Int("iteration", i), slog.Float64("curvature", dist))
		if dist < m.Solver.MaxDistance {
			return series, m.Tree.RemoveTipPoints()
		}
		var short *river.ShortTipError
		if err := m.Tree.FlattenTipCurvature(); errors.As(err, &short) {
			return series, m.Tree.RemoveTipPoints()
		} else if err != nil {
			return series, err
		}
		if err := m.Tree.RemoveTipPoints(); err != nil {
			return series, err
		}
	}
	d.logger().Warn("non-linear step did not converge", slog.Int("iterations", maxNonLinearIterations))
	return series, nil
}

// ShrinkStep evaluates series parameters and shortens every growing tip by
// the step it would have grown. Children that shrink away are removed and
// the length of their sibling is recorded on the parent.
func (d *Driver) ShrinkStep(ctx context.Context) (map[int]model.Series, error) {
	m := d.Model
	series, err := d.evaluate(ctx)
	if err != nil {
		return nil, err
	}
	maxA1 := model.MaxA1(series)
	for _, id := range slices.Sorted(maps.Keys(series)) {
		s := series[id]
		if !m.QGrowth(s) {
			continue
		}
		// no short-branch speed limit when shrinking
		p, err := m.NextPointScaled(s, math.Inf(1), maxA1)
		if err != nil {
			return nil, fmt.Errorf("tip %d: %w", id, err)
		}
		br, _ := m.Tree.Branch(id)
		if err := br.Shrink(p.R); err != nil {
			return nil, err
		}
	}
	for _, id := range m.Tree.ZeroLengthTipBranchesIds(0.01 * m.Params.Ds) {
		rel, err := m.Tree.SubBranchesIds(id)
		if err != nil {
			return nil, err
		}
		l, _ := m.Tree.Branch(rel.Left)
		r, _ := m.Tree.Branch(rel.Right)
		m.Backward.SetBranchLengthDiff(id, math.Abs(l.Length()-r.Length()))
		if err := m.Tree.DeleteSubBranches(id); err != nil {
			return nil, err
		}
	}
	return series, nil
}

// BackwardStep shrinks the rivers NumberOfBackwardSteps times, grows them
// back without bifurcations and records how far the regrown tips land from
// where they started. The tree is left in its shrunk state.
func (d *Driver) BackwardStep(ctx context.Context, step int) error {
	m := d.Model
	init, err := undo.Capture(undo.TrackBackward, 2*step, m.Tree)
	if err != nil {
		return err
	}
	d.History.PushSnapshot(init)

	var first map[int]model.Series
	var maxA1s []float64
	for i := 0; i < m.Options.NumberOfBackwardSteps; i++ {
		series, err := d.ShrinkStep(ctx)
		if err != nil {
			return fmt.Errorf("backward shrink %d: %w", i, err)
		}
		maxA1s = append(maxA1s, model.MaxA1(series))
		if len(first) == 0 {
			first = series
		}
	}

	shrunk, err := undo.Capture(undo.TrackBackward, 2*step+1, m.Tree)
	if err != nil {
		return err
	}
	d.History.PushSnapshot(shrunk)

	bif := m.Params.BifurcationType
	m.Params.BifurcationType = 0
	for i := 0; i < m.Options.NumberOfBackwardSteps && !d.stopped; i++ {
		second := -1.0
		if i+1 < len(maxA1s) {
			second = maxA1s[i+1]
		}
		if _, err := d.NonLinearStep(ctx, maxA1s[i], second); err != nil {
			m.Params.BifurcationType = bif
			return fmt.Errorf("backward regrow %d: %w", i, err)
		}
	}
	m.Params.BifurcationType = bif

	forward := m.Tree
	restored, err := shrunk.Tree()
	if err != nil {
		return err
	}
	m.Tree = restored
	initTree, err := init.Tree()
	if err != nil {
		return err
	}
	m.CollectBackwardData(initTree, forward, first)
	return nil
}

// Run checks the parameters and drives NumberOfSteps steps of the
// configured simulation type. Forward runs end early when a tip passes
// MaximalRiverHeight or crosses the boundary.
func (d *Driver) Run(ctx context.Context) error {
	m := d.Model
	warnings, err := m.CheckParametersConsistency()
	for _, w := range warnings {
		d.logger().Warn("parameter check", slog.String("warning", w))
	}
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	d.stopped = false

	switch m.Options.SimulationType {
	case model.Forward, model.Test:
		return d.runForward(ctx)
	case model.Backward:
		return d.runBackward(ctx)
	}
	return fmt.Errorf("%w: %d", ErrUnknownSimulationType, m.Options.SimulationType)
}

func (d *Driver) runForward(ctx context.Context) error {
	m := d.Model
	for step := 0; step < m.Options.NumberOfSteps; step++ {
		if m.TipsReachedHeight() {
			d.logger().Info("tips reached maximal river height", slog.Int("step", step))
			return nil
		}
		grown, err := d.Step(ctx, step)
		if err != nil || !grown {
			return err
		}
	}
	return nil
}

// Step runs forward step number step: it keeps a history snapshot for
// RevertLastStep, grows the tree, records the series and reports the step.
// It returns false when the growth was rolled back.
func (d *Driver) Step(ctx context.Context, step int) (bool, error) {
	m := d.Model
	d.stopped = false
	snap, err := undo.Capture(undo.TrackForward, step, m.Tree)
	if err != nil {
		return false, err
	}
	d.History.PushSnapshot(snap)

	var series map[int]model.Series
	if m.Options.NonLinear {
		series, err = d.NonLinearStep(ctx, -1, -1)
	} else {
		series, err = d.LinearStep(ctx, -1)
	}
	if err != nil {
		return false, fmt.Errorf("step %d: %w", step, err)
	}
	if d.stopped {
		// Undo the whole step; a non-linear step may have kept its first half.
		if snap, ok := d.History.Undo(undo.TrackForward); ok {
			t, err := snap.Tree()
			if err != nil {
				return false, err
			}
			m.Tree = t
		}
		return false, nil
	}
	m.Series.Record(series)
	m.RecordSimData("MeshSize", float64(d.lastCells))
	m.RecordSimData("DegreeOfFreedom", float64(d.lastDOF))
	if err := d.finishStep(ctx, PhaseForward, step, series); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Driver) runBackward(ctx context.Context) error {
	for step := 0; step < d.Model.Options.NumberOfSteps; step++ {
		if err := d.BackwardStep(ctx, step); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		if err := d.finishStep(ctx, PhaseBackward, step, nil); err != nil {
			return err
		}
		if d.stopped {
			return nil
		}
	}
	return nil
}

func (d *Driver) finishStep(ctx context.Context, phase string, step int, series map[int]model.Series) error {
	info := StepInfo{
		Phase:  phase,
		Step:   step,
		Tips:   len(d.Model.Tree.TipBranchesIds()),
		MaxA1:  model.MaxA1(series),
		Series: series,
		Cells:  d.lastCells,
		DOF:    d.lastDOF,
	}
	rlog.WithStep(d.logger(), phase, step).DebugContext(ctx, "step done",
		slog.Int("tips", info.Tips), slog.Float64("max_a1", info.MaxA1))
	if d.OnStep == nil {
		return nil
	}
	return d.OnStep(ctx, info)
}

// RevertLastStep undoes the last forward step, restoring the tree from the
// history when a snapshot is available.
func (d *Driver) RevertLastStep() error {
	if err := d.Model.RevertLastStep(); err != nil {
		return err
	}
	snap, ok := d.History.Undo(undo.TrackForward)
	if !ok {
		return nil
	}
	t, err := snap.Tree()
	if err != nil {
		return err
	}
	d.Model.Tree = t
	return nil
}
