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
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/golang/geo/r2"
	"golang.org/x/image/vector"
)

// Image rasterizes the scene with anti-aliased strokes.
func Image(s Scene, opt Options) *image.RGBA {
	opt, dl := prepare(s, opt)
	img := image.NewRGBA(image.Rect(0, 0, opt.Width, opt.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(opt.Style.Background.RGBA()), image.Point{}, draw.Src)

	z := vector.NewRasterizer(opt.Width, opt.Height)
	for _, sg := range dl.segments {
		if !strokePath(z, sg.a, sg.b, sg.stroke.Width) {
			continue
		}
		z.Draw(img, img.Bounds(), image.NewUniform(sg.stroke.Color.RGBA()), image.Point{})
		z.Reset(opt.Width, opt.Height)
	}
	for _, p := range dl.tips {
		dotPath(z, p, opt.Style.TipRadius)
		z.Draw(img, img.Bounds(), image.NewUniform(opt.Style.Tip.RGBA()), image.Point{})
		z.Reset(opt.Width, opt.Height)
	}
	return img
}

// PNG encodes the rasterized scene.
func PNG(w io.Writer, s Scene, opt Options) error {
	if err := png.Encode(w, Image(s, opt)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PreviewPNG renders a small thumbnail and returns the encoded bytes.
func PreviewPNG(s Scene, w, h int) ([]byte, error) {
	var buf bytes.Buffer
	st := DefaultStyle()
	st.Boundary.Width, st.River.Width, st.TipRadius = 1, 1, 1.5
	if err := PNG(&buf, s, Options{Width: w, Height: h, Margin: 4, Style: st}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// strokePath adds the quad covering a line of the given width from a to b.
// Zero-length segments add nothing and report false.
func strokePath(z *vector.Rasterizer, a, b r2.Point, width float64) bool {
	d := b.Sub(a)
	n := d.Norm()
	if n == 0 {
		return false
	}
	// half-width offset along the normal, at least half a pixel so hairlines stay visible
	hw := math.Max(width/2, 0.5)
	o := d.Ortho().Mul(hw / n)
	moveTo(z, a.Add(o))
	lineTo(z, b.Add(o))
	lineTo(z, b.Sub(o))
	lineTo(z, a.Sub(o))
	z.ClosePath()
	return true
}

// dotPath adds an octagon approximating a disc.
func dotPath(z *vector.Rasterizer, c r2.Point, r float64) {
	for i := 0; i < 8; i++ {
		phi := float64(i) * math.Pi / 4
		p := r2.Point{X: c.X + r*math.Cos(phi), Y: c.Y + r*math.Sin(phi)}
		if i == 0 {
			moveTo(z, p)
			continue
		}
		lineTo(z, p)
	}
	z.ClosePath()
}

func moveTo(z *vector.Rasterizer, p r2.Point) { z.MoveTo(float32(p.X), float32(p.Y)) }
func lineTo(z *vector.Rasterizer, p r2.Point) { z.LineTo(float32(p.X), float32(p.Y)) }
