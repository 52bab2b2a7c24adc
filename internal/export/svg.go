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
	"io"
	"math"

	"github.com/golang/geo/r2"
)

// Options controls the size and look of an export.
// - Width/Height are pixels for SVG and PNG and points for PDF.
// - A zero Height follows the aspect ratio of the scene.
// - Margin is kept free on every side.
type Options struct {
	Width  int
	Height int
	Margin float64
	Style  Style
	Title  string
}

const defaultWidth = 800

func (o Options) withDefaults(bounds r2.Rect) Options {
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	if o.Margin <= 0 {
		o.Margin = 16
	}
	if o.Height <= 0 {
		o.Height = o.Width
		if !bounds.IsEmpty() {
			size := bounds.Size()
			if size.X > 0 && size.Y > 0 {
				inner := float64(o.Width) - 2*o.Margin
				o.Height = int(math.Ceil(inner*size.Y/size.X + 2*o.Margin))
			}
		}
	}
	if o.Title == "" {
		o.Title = "riversim"
	}
	o.Style = o.Style.withDefaults()
	return o
}

// prepare resolves options and the draw list for a scene.
func prepare(s Scene, opt Options) (Options, drawList) {
	bounds := s.Bounds()
	opt = opt.withDefaults(bounds)
	tf := Fit(bounds, float64(opt.Width), float64(opt.Height), opt.Margin)
	return opt, s.drawList(tf, opt.Style)
}

// SVG writes the scene as a standalone SVG document.
func SVG(w io.Writer, s Scene, opt Options) error {
	opt, dl := prepare(s, opt)

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"0 0 %d %d\">\n", opt.Width, opt.Height, opt.Width, opt.Height)
	wf("  <title>%s</title>\n", escText(opt.Title))
	wf("  <rect x=\"0\" y=\"0\" width=\"%d\" height=\"%d\" fill=\"%s\"/>\n", opt.Width, opt.Height, opt.Style.Background.hex())

	wf("  <g fill=\"none\" stroke-linecap=\"round\">\n")
	for _, sg := range dl.segments {
		wf("    <line x1=\"%.3f\" y1=\"%.3f\" x2=\"%.3f\" y2=\"%.3f\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
			sg.a.X, sg.a.Y, sg.b.X, sg.b.Y, sg.stroke.Color.hex(), sg.stroke.Width)
	}
	wf("  </g>\n")

	if len(dl.tips) > 0 {
		wf("  <g fill=\"%s\">\n", opt.Style.Tip.hex())
		for _, p := range dl.tips {
			wf("    <circle cx=\"%.3f\" cy=\"%.3f\" r=\"%g\"/>\n", p.X, p.Y, opt.Style.TipRadius)
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")

	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
