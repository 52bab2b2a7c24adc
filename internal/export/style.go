/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image/color"
)

type Color struct{ R, G, B, A uint8 }

func (c Color) IsZero() bool { return c == Color{} }

// RGBA converts c to a non-premultiplied image color.
func (c Color) RGBA() color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

func (c Color) hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

type Stroke struct {
	Color Color
	Width float64
}

var (
	Black = Color{0, 0, 0, 255}
	White = Color{255, 255, 255, 255}
)

// Style controls colors and stroke widths. Widths are in output units
// (pixels for SVG and PNG, points for PDF).
type Style struct {
	Background Color
	Boundary   Stroke
	River      Stroke
	Tip        Color
	TipRadius  float64
	// Palette colors boundary lines by boundary id. Lines carrying the river
	// boundary id use River instead.
	Palette []Color
}

func DefaultStyle() Style {
	return Style{
		Background: White,
		Boundary:   Stroke{Color: Black, Width: 1.5},
		River:      Stroke{Color: Color{30, 90, 200, 255}, Width: 1.5},
		Tip:        Color{220, 40, 40, 255},
		TipRadius:  2.5,
		Palette: []Color{
			{40, 40, 40, 255},
			{0, 140, 70, 255},
			{200, 120, 0, 255},
			{130, 60, 170, 255},
			{0, 150, 160, 255},
		},
	}
}

// withDefaults fills zero fields from DefaultStyle.
func (s Style) withDefaults() Style {
	d := DefaultStyle()
	if s.Background.IsZero() {
		s.Background = d.Background
	}
	if s.Boundary.Width <= 0 {
		s.Boundary.Width = d.Boundary.Width
	}
	if s.Boundary.Color.IsZero() {
		s.Boundary.Color = d.Boundary.Color
	}
	if s.River.Width <= 0 {
		s.River.Width = d.River.Width
	}
	if s.River.Color.IsZero() {
		s.River.Color = d.River.Color
	}
	if s.Tip.IsZero() {
		s.Tip = d.Tip
	}
	if s.TipRadius <= 0 {
		s.TipRadius = d.TipRadius
	}
	if len(s.Palette) == 0 {
		s.Palette = d.Palette
	}
	return s
}

// lineStroke picks the stroke for a boundary line with the given id.
func (s Style) lineStroke(id, riverID int) Stroke {
	if id == riverID {
		return s.River
	}
	if id <= 0 || len(s.Palette) == 0 {
		return s.Boundary
	}
	return Stroke{Color: s.Palette[(id-1)%len(s.Palette)], Width: s.Boundary.Width}
}
