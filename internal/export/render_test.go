/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r2"

	"riversim/internal/geom"
	"riversim/internal/model"
)

// grownModel is the Dirichlet preset with its source branch grown 0.2 upwards.
func grownModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New()
	if err := m.InitializeDirichlet(); err != nil {
		t.Fatalf("InitializeDirichlet: %v", err)
	}
	b, err := m.Tree.Branch(1)
	if err != nil {
		t.Fatalf("Branch(1): %v", err)
	}
	rid := m.RegionParams.RiverBoundaryID
	b.AddPoint(geom.Point{Y: 0.1}, rid).AddPoint(geom.Point{Y: 0.1}, rid)
	return m
}

func grownScene(t *testing.T) (Scene, *model.Model) {
	t.Helper()
	m := grownModel(t)
	sc, err := SceneOf(m)
	if err != nil {
		t.Fatalf("SceneOf: %v", err)
	}
	return sc, m
}

func TestFitMapsUnitSquare(t *testing.T) {
	bounds := r2.RectFromPoints(r2.Point{}, r2.Point{X: 1, Y: 1})
	tf := Fit(bounds, 100, 100, 10)
	cases := []struct {
		in   geom.Point
		want r2.Point
	}{
		{geom.Point{}, r2.Point{X: 10, Y: 90}},
		{geom.Point{X: 1, Y: 1}, r2.Point{X: 90, Y: 10}},
		{geom.Point{X: 0.5, Y: 0.5}, r2.Point{X: 50, Y: 50}},
	}
	for _, c := range cases {
		got := tf.Apply(c.in)
		if math.Abs(got.X-c.want.X) > 1e-9 || math.Abs(got.Y-c.want.Y) > 1e-9 {
			t.Fatalf("Apply(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFitKeepsAspectRatio(t *testing.T) {
	bounds := r2.RectFromPoints(r2.Point{}, r2.Point{X: 2, Y: 1})
	tf := Fit(bounds, 100, 100, 0)
	a, b := tf.Apply(geom.Point{}), tf.Apply(geom.Point{X: 2, Y: 1})
	if w, h := b.X-a.X, a.Y-b.Y; math.Abs(w-100) > 1e-9 || math.Abs(h-50) > 1e-9 {
		t.Fatalf("fitted size = %gx%g, want 100x50", w, h)
	}
}

func TestFitDegenerateBounds(t *testing.T) {
	p := r2.Point{X: 3, Y: 4}
	tf := Fit(r2.RectFromPoints(p), 100, 60, 5)
	if got := tf.Apply(geom.Point{X: 3, Y: 4}); got != (r2.Point{X: 50, Y: 30}) {
		t.Fatalf("single point lands at %v, want canvas center", got)
	}
	tf = Fit(r2.EmptyRect(), 100, 60, 5)
	if got := tf.Apply(geom.Point{}); got != (r2.Point{X: 5, Y: 55}) {
		t.Fatalf("empty bounds origin = %v, want (5,55)", got)
	}
}

func TestAffineMulAppliesRightFirst(t *testing.T) {
	m := Translate(1, 2).Mul(Scale(2, 3))
	if got := m.Apply(geom.Point{X: 1, Y: 1}); got != (r2.Point{X: 3, Y: 5}) {
		t.Fatalf("Apply = %v, want (3,5)", got)
	}
	if got := Identity.Mul(m); got != m {
		t.Fatalf("Identity.Mul = %v, want %v", got, m)
	}
}

func TestSceneBoundsCoverRegion(t *testing.T) {
	sc, _ := grownScene(t)
	b := sc.Bounds()
	if b.X.Lo != 0 || b.Y.Lo != 0 || b.X.Hi != 1 || b.Y.Hi != 1 {
		t.Fatalf("Bounds = %v, want unit square", b)
	}
}

func TestOptionsHeightFollowsAspect(t *testing.T) {
	bounds := r2.RectFromPoints(r2.Point{}, r2.Point{X: 2, Y: 1})
	o := Options{Width: 420, Margin: 10}.withDefaults(bounds)
	if o.Height != 220 {
		t.Fatalf("Height = %d, want 220", o.Height)
	}
	if o.Style.River.Width != DefaultStyle().River.Width {
		t.Fatalf("style defaults not applied: %+v", o.Style)
	}
}

func TestLineStrokeByBoundaryID(t *testing.T) {
	st := DefaultStyle()
	if got := st.lineStroke(100, 100); got != st.River {
		t.Fatalf("river line stroke = %+v, want %+v", got, st.River)
	}
	if got := st.lineStroke(2, 100).Color; got != st.Palette[1] {
		t.Fatalf("id 2 color = %+v, want %+v", got, st.Palette[1])
	}
	if got := st.lineStroke(1+len(st.Palette), 100).Color; got != st.Palette[0] {
		t.Fatalf("palette does not wrap: %+v", got)
	}
	if got := st.lineStroke(0, 100); got != st.Boundary {
		t.Fatalf("id 0 stroke = %+v, want %+v", got, st.Boundary)
	}
}

func TestSVGDrawsEveryLineAndTip(t *testing.T) {
	sc, _ := grownScene(t)
	var buf bytes.Buffer
	if err := SVG(&buf, sc, Options{Width: 300, Title: "a<b"}); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "<?xml") || !strings.HasSuffix(out, "</svg>\n") {
		t.Fatalf("not an svg document:\n%s", out)
	}
	wantLines := len(sc.Boundary.Lines) + 2
	if got := strings.Count(out, "<line "); got != wantLines {
		t.Fatalf("line count = %d, want %d", got, wantLines)
	}
	if got := strings.Count(out, "<circle "); got != 1 {
		t.Fatalf("tip count = %d, want 1", got)
	}
	if !strings.Contains(out, DefaultStyle().River.Color.hex()) {
		t.Fatalf("river color missing")
	}
	if !strings.Contains(out, "<title>a&lt;b</title>") {
		t.Fatalf("title not escaped")
	}
}

func TestImageStrokesRiver(t *testing.T) {
	sc, m := grownScene(t)
	img := Image(sc, Options{Width: 200, Margin: 16})
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 200 {
		t.Fatalf("image size = %v, want 200x200", img.Bounds())
	}
	b, _ := m.Tree.Branch(1)
	mid := b.SourcePoint().Add(geom.Point{Y: 0.1})
	p := Fit(sc.Bounds(), 200, 200, 16).Apply(mid)
	c := img.RGBAAt(int(p.X), int(p.Y))
	if c.B <= c.R || c.B <= c.G {
		t.Fatalf("pixel at river = %+v, want blue", c)
	}
	if bg := img.RGBAAt(100, 100); bg.R != 255 || bg.G != 255 || bg.B != 255 {
		t.Fatalf("center pixel = %+v, want background", bg)
	}
}

func TestPreviewPNGDecodes(t *testing.T) {
	sc, _ := grownScene(t)
	data, err := PreviewPNG(sc, 64, 48)
	if err != nil {
		t.Fatalf("PreviewPNG: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Fatalf("preview size = %dx%d, want 64x48", cfg.Width, cfg.Height)
	}
}

func TestPDFWritesDocument(t *testing.T) {
	sc, _ := grownScene(t)
	var buf bytes.Buffer
	if err := PDF(&buf, sc, Options{Width: 400}); err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("missing PDF header")
	}
	if err := PDFPages(&bytes.Buffer{}, nil, Options{}); err == nil {
		t.Fatalf("PDFPages without scenes should fail")
	}
}

func TestSceneOfNilModel(t *testing.T) {
	if _, err := SceneOf(nil); err == nil {
		t.Fatalf("SceneOf(nil) should fail")
	}
}
