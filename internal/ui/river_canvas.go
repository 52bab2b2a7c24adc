//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/golang/geo/r2"

	"riversim/internal/export"
	"riversim/internal/geom"
)

// RiverCanvas draws the generated boundary and the river tree of a run.
// The scene is fitted to the widget; wheel zooms and drag pans on top of that.
type RiverCanvas struct {
	widget.BaseWidget

	zoom    float32
	offsetX float32
	offsetY float32

	scene    export.Scene
	style    export.Style
	selected int // highlighted branch id, 0 if none
}

func NewRiverCanvas() *RiverCanvas {
	rc := &RiverCanvas{zoom: 1, style: export.DefaultStyle()}
	rc.ExtendBaseWidget(rc)
	return rc
}

// SetScene replaces the drawn scene and keeps zoom and pan.
func (p *RiverCanvas) SetScene(s export.Scene) {
	p.scene = s
	p.Refresh()
}

// HighlightBranch marks one branch of the tree; 0 clears the highlight.
func (p *RiverCanvas) HighlightBranch(id int) {
	p.selected = id
	p.Refresh()
}

// ResetView drops zoom and pan.
func (p *RiverCanvas) ResetView() {
	p.zoom, p.offsetX, p.offsetY = 1, 0, 0
	p.Refresh()
}

func (p *RiverCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	field := canvas.NewRectangle(p.style.Background.RGBA())
	return &riverCanvasRenderer{rc: p, bg: bg, field: field}
}

// PreferredSize sets a decent default size for the widget.
func (p *RiverCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

// transform maps model coordinates to widget coordinates.
func (p *RiverCanvas) transform(size fyne.Size) export.Affine {
	fit := export.Fit(p.scene.Bounds(), float64(size.Width), float64(size.Height), 16)
	cx, cy := float64(size.Width)/2, float64(size.Height)/2
	zoom := export.Translate(cx+float64(p.offsetX), cy+float64(p.offsetY)).
		Mul(export.Scale(float64(p.zoom), float64(p.zoom))).
		Mul(export.Translate(-cx, -cy))
	return zoom.Mul(fit)
}

func (p *RiverCanvas) toScreen(pt geom.Point) fyne.Position {
	q := p.transform(p.Size()).Apply(pt)
	return fyne.NewPos(float32(q.X), float32(q.Y))
}

func (p *RiverCanvas) Dragged(e *fyne.DragEvent) {
	p.offsetX += e.Dragged.DX
	p.offsetY += e.Dragged.DY
	p.Refresh()
}

func (p *RiverCanvas) DragEnd() {}

func (p *RiverCanvas) Scrolled(e *fyne.ScrollEvent) {
	p.zoom += e.Scrolled.DY * 0.01
	if p.zoom < 0.2 {
		p.zoom = 0.2
	}
	if p.zoom > 50 {
		p.zoom = 50
	}
	p.Refresh()
}

type riverCanvasRenderer struct {
	rc        *RiverCanvas
	bg, field *canvas.Rectangle
	lines     []*canvas.Line
	tips      []*canvas.Circle
	objects   []fyne.CanvasObject
}

func (r *riverCanvasRenderer) Destroy()                     {}
func (r *riverCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *riverCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 150) }
func (r *riverCanvasRenderer) Refresh()                     { r.Layout(r.rc.Size()); canvas.Refresh(r.rc) }

// Layout rebuilds the line objects; the scene is small enough that pooling
// by count is sufficient.
func (r *riverCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	rc := r.rc
	tf := rc.transform(size)
	b := rc.scene.Bounds()
	if !b.IsEmpty() {
		lo := tf.Apply(geom.Point{X: b.X.Lo, Y: b.Y.Hi})
		hi := tf.Apply(geom.Point{X: b.X.Hi, Y: b.Y.Lo})
		r.field.Move(fyne.NewPos(float32(lo.X), float32(lo.Y)))
		r.field.Resize(fyne.NewSize(float32(hi.X-lo.X), float32(hi.Y-lo.Y)))
	}

	segs := sceneSegments(rc.scene, rc.style, rc.selected)
	for len(r.lines) < len(segs) {
		r.lines = append(r.lines, canvas.NewLine(color.Black))
	}
	r.lines = r.lines[:len(segs)]
	for i, s := range segs {
		l := r.lines[i]
		a, c := tf.Apply(s.a), tf.Apply(s.b)
		l.Position1 = fyne.NewPos(float32(a.X), float32(a.Y))
		l.Position2 = fyne.NewPos(float32(c.X), float32(c.Y))
		l.StrokeColor = s.color
		l.StrokeWidth = s.width
	}

	var tips []r2.Point
	if rc.scene.Tree != nil {
		for _, p := range rc.scene.Tree.TipPoints() {
			tips = append(tips, tf.Apply(p))
		}
	}
	for len(r.tips) < len(tips) {
		r.tips = append(r.tips, canvas.NewCircle(rc.style.Tip.RGBA()))
	}
	r.tips = r.tips[:len(tips)]
	rad := float32(rc.style.TipRadius)
	for i, p := range tips {
		r.tips[i].Move(fyne.NewPos(float32(p.X)-rad, float32(p.Y)-rad))
		r.tips[i].Resize(fyne.NewSize(2*rad, 2*rad))
	}

	objs := []fyne.CanvasObject{r.bg, r.field}
	for _, l := range r.lines {
		objs = append(objs, l)
	}
	for _, c := range r.tips {
		objs = append(objs, c)
	}
	r.objects = objs
}

type canvasSegment struct {
	a, b  geom.Point
	color color.Color
	width float32
}

// sceneSegments lists boundary lines in model coordinates followed by tree
// segments; the selected branch is drawn wider.
func sceneSegments(s export.Scene, st export.Style, selected int) []canvasSegment {
	var out []canvasSegment
	vs := s.Boundary.Vertices
	for _, l := range s.Boundary.Lines {
		if l.P1 < 0 || l.P1 >= len(vs) || l.P2 < 0 || l.P2 >= len(vs) {
			continue
		}
		c := st.Boundary.Color
		if l.BoundaryID == s.RiverBoundaryID {
			c = st.River.Color
		} else if l.BoundaryID > 0 {
			c = st.Palette[(l.BoundaryID-1)%len(st.Palette)]
		}
		out = append(out, canvasSegment{a: vs[l.P1], b: vs[l.P2], color: c.RGBA(), width: float32(st.Boundary.Width)})
	}
	if s.Tree == nil {
		return out
	}
	for _, id := range s.Tree.IDs() {
		br, _ := s.Tree.Branch(id)
		w := float32(st.River.Width)
		c := st.River.Color.RGBA()
		if id == selected {
			w *= 3
			c = st.Tip.RGBA()
		}
		pts := br.Vertices()
		for i := 1; i < len(pts); i++ {
			out = append(out, canvasSegment{a: pts[i-1], b: pts[i], color: c, width: w})
		}
	}
	return out
}
