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
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"riversim/internal/geom"
	"riversim/internal/region"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestPresets(t *testing.T) {
	for _, name := range Presets() {
		m := New()
		if err := m.Initialize(name); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := m.Validate(); err != nil {
			t.Fatalf("%s: Validate = %v", name, err)
		}
		if bc, ok := m.Conditions[100]; !ok || bc.Type != region.Dirichlet || bc.Value != 0 {
			t.Fatalf("%s: river condition = %+v", name, bc)
		}
		if _, err := m.CheckParametersConsistency(); err != nil {
			t.Fatalf("%s: check = %v", name, err)
		}
	}

	m := New()
	_ = m.InitializeLaplace()
	if m.Solver.FieldValue != 0 || len(m.Conditions) != 6 || m.Conditions[4] != (region.BoundaryCondition{Type: region.Neumann, Value: 1}) {
		t.Fatalf("laplace: field = %g, conditions = %v", m.Solver.FieldValue, m.Conditions)
	}
	b, err := m.Tree.Branch(1)
	if err != nil {
		t.Fatal(err)
	}
	if !b.SourcePoint().Equal(geom.Point{X: 0.2}) || !near(b.SourceAngle(), math.Pi/2, 1e-15) {
		t.Fatalf("laplace source = %v at %g", b.SourcePoint(), b.SourceAngle())
	}

	_ = m.InitializeDirichletWithHole()
	if m.Tree.Len() != 3 || len(m.Conditions) != 14 || m.Region.Len() != 3 {
		t.Fatalf("hole preset: %d branches, %d conditions, %d boundaries", m.Tree.Len(), len(m.Conditions), m.Region.Len())
	}
	if m.Conditions[12].Value != 1 || m.Conditions[7].Value != 0 {
		t.Fatalf("hole conditions = %v", m.Conditions)
	}

	if err := m.Initialize("spiral"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("unknown preset: err = %v", err)
	}
}

func TestQBifurcate(t *testing.T) {
	cases := []struct {
		typ  int
		a    Series
		want bool
	}{
		{0, Series{1, 0, -5}, false},
		{1, Series{1, 0, -0.2}, true},
		{1, Series{1, 0, 0.2}, false},
		{2, Series{1, 0, 0}, true},
		{2, Series{-1, 0, 0}, false},
		{3, Series{1, 0, -0.2}, true},
		{3, Series{-1, 0, 0.2}, false},
	}
	m := New()
	for _, c := range cases {
		m.Params.BifurcationType = c.typ
		got, err := m.QBifurcate(c.a)
		if err != nil || got != c.want {
			t.Fatalf("type %d %v: QBifurcate = %v, %v; want %v", c.typ, c.a, got, err, c.want)
		}
	}
	m.Params.BifurcationType = 4
	var ut *UnknownTypeError
	if _, err := m.QBifurcate(Series{1, 0, 0}); !errors.As(err, &ut) || ut.Value != 4 {
		t.Fatalf("type 4: err = %v", err)
	}

	m.Params.BifurcationType = 1
	if ok, _ := m.QBifurcateLen(Series{1, 0, -1}, 0.01); ok {
		t.Fatalf("short branch bifurcated")
	}
	if ok, _ := m.QBifurcateLen(Series{1, 0, -1}, 0.05); !ok {
		t.Fatalf("branch at min distance did not bifurcate")
	}
	if m.QGrowth(Series{-1e-9, 0, 0}) || !m.QGrowth(Series{0, 0, 0}) {
		t.Fatalf("QGrowth threshold 0 misbehaves")
	}
}

func TestNextPoint(t *testing.T) {
	m := New()
	m.Params.GrowthType = 0
	p, err := m.NextPoint(Series{1, 0.5, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !near(p.R, 0.01, 1e-15) || !near(p.Phi, -math.Atan(0.1), 1e-15) {
		t.Fatalf("arctan step = %+v", p)
	}

	m.Params.GrowthType = 1
	p, err = m.NextPoint(Series{1, 2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !near(p.R, 0.0006217292775332439, 1e-12) || !near(p.Phi, -0.02492933356770088, 1e-12) {
		t.Fatalf("parabolic step = %+v", p)
	}
	if p, _ := m.NextPoint(Series{1, 0, 0}); p != (geom.Polar{R: 0.01}) {
		t.Fatalf("straight step = %+v", p)
	}

	var ds *DegenerateSeriesError
	if _, err := m.NextPoint(Series{0, 1, 0}); !errors.As(err, &ds) {
		t.Fatalf("a1 = 0: err = %v", err)
	}
	m.Params.GrowthType = 7
	var ut *UnknownTypeError
	if _, err := m.NextPoint(Series{1, 1, 0}); !errors.As(err, &ut) {
		t.Fatalf("growth type 7: err = %v", err)
	}
}

func TestNextPointScaled(t *testing.T) {
	m := New()
	want, _ := m.NextPoint(Series{1, 2, 0})
	got, err := m.NextPointScaled(Series{2, 2, 0}, 1, 2)
	if err != nil || got != want {
		t.Fatalf("scaled = %+v, %v; want %+v", got, err, want)
	}

	long, _ := m.NextPointScaled(Series{1, 0, 0}, 1, 2)
	short, _ := m.NextPointScaled(Series{1, 0, 0}, 0, 2)
	if !near(long.R, 0.005, 1e-15) || !near(short.R, 0.01, 1e-15) {
		t.Fatalf("long = %g, short = %g; want 0.005, 0.01", long.R, short.R)
	}
}

func TestCheckParametersConsistency(t *testing.T) {
	m := New()
	warnings, err := m.CheckParametersConsistency()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("defaults warnings = %v, want only the maximal height note", warnings)
	}

	cases := []struct {
		name  string
		mut   func(m *Model)
		param string
	}{
		{"dx", func(m *Model) { m.Params.Dx = 2 }, "dx"},
		{"river width", func(m *Model) { m.RegionParams.RiverWidth = 0.01 }, "river_width"},
		{"ds", func(m *Model) { m.Params.Ds = 0 }, "ds"},
		{"growth type", func(m *Model) { m.Params.GrowthType = 2 }, "growth_type"},
		{"ratio", func(m *Model) { m.Mesh.Ratio = 1.2 }, "mesh ratio"},
		{"edges", func(m *Model) { m.Mesh.MinEdge = 2 }, "mesh min_edge"},
		{"min angle", func(m *Model) { m.Mesh.MinAngle = 40 }, "mesh min_angle"},
		{"refinement", func(m *Model) { m.Solver.RefinmentFraction = 1.5 }, "solver refinment_fraction"},
		{"renumbering", func(m *Model) { m.Solver.RenumberingType = 8 }, "solver renumbering_type"},
		{"integration", func(m *Model) { m.Integration.Exponant = -1 }, "integration exponant"},
	}
	for _, c := range cases {
		m := New()
		c.mut(m)
		var ip *InvalidParameterError
		if _, err := m.CheckParametersConsistency(); !errors.As(err, &ip) || ip.Name != c.param {
			t.Fatalf("%s: err = %v, want invalid %s", c.name, err, c.param)
		}
	}

	m = New()
	m.Solver.Tolerance = 1e-3
	m.Solver.NumOfIterations = 10
	if w, err := m.CheckParametersConsistency(); err != nil || len(w) != 3 {
		t.Fatalf("warnings = %v, %v; want 3", w, err)
	}
}

func TestAreaConstraint(t *testing.T) {
	mp := DefaultMeshParams()
	f := mp.AreaConstraint(nil)
	if f(0, 0) != noTipArea {
		t.Fatalf("no tips = %g", f(0, 0))
	}
	f = mp.AreaConstraint([]geom.Point{{X: 0, Y: 0}, {X: 5, Y: 5}})
	if got := f(0, 0); !near(got, mp.MinArea, 1e-15) {
		t.Fatalf("at tip = %g, want %g", got, mp.MinArea)
	}
	if got := f(0.1, 0); !near(got, 6914.158851048735, 1e-6) {
		t.Fatalf("at refinement radius = %g", got)
	}
	if got := f(2.5, 2.5); !near(got, mp.MaxArea, 1e-6) {
		t.Fatalf("far away = %g, want %g", got, mp.MaxArea)
	}
}

func TestSeriesRecordAndRevert(t *testing.T) {
	m := New()
	if err := m.InitializeDirichlet(); err != nil {
		t.Fatal(err)
	}
	b, _ := m.Tree.Branch(1)
	b.AddPolar(geom.Polar{R: 0.01}, 100)
	m.Series.Record(map[int]Series{1: {1, 2, 3}})
	m.RecordSimData("MeshSize", 10)

	b.AddPolar(geom.Polar{R: 0.01}, 100)
	m.Series.Record(map[int]Series{1: {4, 5, 6}})
	m.RecordSimData("MeshSize", 20)

	if err := m.RevertLastStep(); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 2 || m.Series.Steps(1) != 1 || len(m.SimData["MeshSize"]) != 1 {
		t.Fatalf("after revert: %d points, %d steps, sim data %v", b.Len(), m.Series.Steps(1), m.SimData)
	}
	if diff := cmp.Diff([3][]float64{{1}, {2}, {3}}, m.Series[1]); diff != "" {
		t.Fatalf("series (-want +got):\n%s", diff)
	}
}

func TestCollectBackwardData(t *testing.T) {
	m := New()
	_ = m.InitializeDirichlet()
	b, _ := m.Tree.Branch(1)
	b.AddPolar(geom.Polar{R: 0.1}, 100)
	init := m.Tree.Clone()

	_ = b.Shrink(0.05)
	forward := m.Tree.Clone()
	fb, _ := forward.Branch(1)
	fb.AddPolar(geom.Polar{R: 0.04}, 100)

	m.CollectBackwardData(init, forward, map[int]Series{1: {1, 2, 3}})
	d := m.Backward[1]
	if d == nil || len(d.Init) != 1 || d.A3[0] != 3 {
		t.Fatalf("backward data = %+v", d)
	}
	if !d.Init[0].Equal(geom.Point{X: 0.2, Y: 0.1}) || !d.Backward[0].Equal(geom.Point{X: 0.2, Y: 0.05}) {
		t.Fatalf("init = %v, backward = %v", d.Init, d.Backward)
	}
	if !near(d.BackwardForward[0].Y, 0.09, 1e-12) {
		t.Fatalf("backward forward = %v", d.BackwardForward)
	}
}

func TestModelJSONRoundTrip(t *testing.T) {
	m := New()
	if err := m.InitializeDirichletWithHole(); err != nil {
		t.Fatal(err)
	}
	m.Params.Eta = 0.75
	m.Options.SimulationType = Backward
	if _, err := m.Tree.GrowTestTree(100, 1, 0.01, 3, 0.1); err != nil {
		t.Fatal(err)
	}
	m.Series.Record(map[int]Series{1: {1, 0.5, -0.1}})
	m.Backward.SetBranchLengthDiff(4, 0.25)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	var back Model
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Params != m.Params || back.Options != m.Options || back.Mesh != m.Mesh || back.Solver != m.Solver {
		t.Fatalf("parameters did not round trip")
	}
	if !back.Region.Equal(m.Region) || !back.Tree.Equal(m.Tree) {
		t.Fatalf("geometry did not round trip")
	}
	if diff := cmp.Diff(m.Sources, back.Sources); diff != "" {
		t.Fatalf("sources (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.Conditions, back.Conditions); diff != "" {
		t.Fatalf("conditions (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.Series, back.Series); diff != "" {
		t.Fatalf("series (-want +got):\n%s", diff)
	}
	if back.Backward[4] == nil || back.Backward[4].BranchLengthDiff != 0.25 {
		t.Fatalf("backward = %v", back.Backward)
	}
}

func TestModelJSONKeepsDefaults(t *testing.T) {
	var m Model
	if err := json.Unmarshal([]byte(`{"model": {"parameters": {"ds": 0.02}}}`), &m); err != nil {
		t.Fatal(err)
	}
	if m.Params.Ds != 0.02 || m.Params.Width != 1 || m.Mesh.Ratio != 2.3 || m.Tree == nil || m.Region == nil {
		t.Fatalf("decoded = %+v", m.Params)
	}
	if err := json.Unmarshal([]byte(`{"model": {"sources": [[1, "x"]]}}`), &m); err == nil {
		t.Fatalf("expected error for malformed source")
	}
}

func TestCloneIsDeep(t *testing.T) {
	m := New()
	_ = m.InitializeLaplace()
	m.Series.Record(map[int]Series{1: {1, 2, 3}})
	c := m.Clone()
	c.Series.Record(map[int]Series{1: {4, 5, 6}})
	b, _ := c.Tree.Branch(1)
	b.AddPolar(geom.Polar{R: 0.1}, 100)
	c.Conditions[1] = region.BoundaryCondition{Type: region.Neumann}

	if m.Series.Steps(1) != 1 || m.Tree.Equal(c.Tree) || m.Conditions[1].Type != region.Dirichlet {
		t.Fatalf("clone shares state with original")
	}
}
