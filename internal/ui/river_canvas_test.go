//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne viewer widget. They are gated behind the
// "fyne" build tag so headless CI does not need Fyne or a display.
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"math"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"riversim/internal/export"
	"riversim/internal/geom"
	"riversim/internal/model"
)

func demoScene(t *testing.T) export.Scene {
	t.Helper()
	m := model.New()
	if err := m.InitializeDirichlet(); err != nil {
		t.Fatalf("InitializeDirichlet: %v", err)
	}
	b, _ := m.Tree.Branch(1)
	b.AddPoint(geom.Point{Y: 0.1}, m.RegionParams.RiverBoundaryID)
	sc, err := export.SceneOf(m)
	if err != nil {
		t.Fatalf("SceneOf: %v", err)
	}
	return sc
}

func almostEqual(a, b, eps float32) bool { return float32(math.Abs(float64(a-b))) <= eps }

func TestRiverCanvasDefaults(t *testing.T) {
	rc := NewRiverCanvas()
	if rc.zoom != 1 || rc.offsetX != 0 || rc.offsetY != 0 {
		t.Fatalf("unexpected initial view: zoom %v offset (%v,%v)", rc.zoom, rc.offsetX, rc.offsetY)
	}
	if sz := rc.PreferredSize(); sz.Width != 800 || sz.Height != 600 {
		t.Fatalf("unexpected PreferredSize: %v", sz)
	}
}

func TestRiverCanvasPanAndZoom(t *testing.T) {
	test.NewApp()
	rc := NewRiverCanvas()
	rc.SetScene(demoScene(t))
	rc.Resize(fyne.NewSize(400, 400))

	origin := rc.toScreen(geom.Point{})
	rc.Dragged(&fyne.DragEvent{Dragged: fyne.Delta{DX: 30, DY: -10}})
	moved := rc.toScreen(geom.Point{})
	if !almostEqual(moved.X-origin.X, 30, 0.01) || !almostEqual(moved.Y-origin.Y, -10, 0.01) {
		t.Fatalf("pan moved origin from %v to %v", origin, moved)
	}

	rc.ResetView()
	center := rc.toScreen(geom.Point{X: 0.5, Y: 0.5})
	if !almostEqual(center.X, 200, 0.01) || !almostEqual(center.Y, 200, 0.01) {
		t.Fatalf("model center at %v, want widget center", center)
	}
	rc.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: 100}})
	if !almostEqual(rc.zoom, 2, 1e-5) {
		t.Fatalf("zoom = %v, want 2", rc.zoom)
	}
	if c := rc.toScreen(geom.Point{X: 0.5, Y: 0.5}); !almostEqual(c.X, 200, 0.01) {
		t.Fatalf("zoom moved the center to %v", c)
	}
	rc.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: -1000}})
	if rc.zoom != 0.2 {
		t.Fatalf("zoom = %v, want clamped 0.2", rc.zoom)
	}
}

func TestSceneSegmentsHighlightBranch(t *testing.T) {
	sc := demoScene(t)
	st := export.DefaultStyle()
	plain := sceneSegments(sc, st, 0)
	if want := len(sc.Boundary.Lines) + 1; len(plain) != want {
		t.Fatalf("segments = %d, want %d", len(plain), want)
	}
	hl := sceneSegments(sc, st, 1)
	last := hl[len(hl)-1]
	if last.width != 3*float32(st.River.Width) {
		t.Fatalf("highlighted width = %v", last.width)
	}
}

func TestRendererLaysOutOneLinePerSegment(t *testing.T) {
	test.NewApp()
	rc := NewRiverCanvas()
	rc.SetScene(demoScene(t))
	r := test.WidgetRenderer(rc).(*riverCanvasRenderer)
	r.Layout(fyne.NewSize(300, 300))
	want := len(sceneSegments(rc.scene, rc.style, 0))
	if len(r.lines) != want || len(r.tips) != 1 {
		t.Fatalf("renderer has %d lines and %d tips, want %d and 1", len(r.lines), len(r.tips), want)
	}
	if len(r.Objects()) != 2+want+1 {
		t.Fatalf("objects = %d", len(r.Objects()))
	}
}
