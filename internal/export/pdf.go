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
	"io"

	"github.com/jung-kurt/gofpdf"
)

// PDF writes the scene as a single-page vector PDF. Units are points.
func PDF(w io.Writer, s Scene, opt Options) error {
	return PDFPages(w, []Scene{s}, opt)
}

// PDFPages writes one page per scene, e.g. the stored steps of a run.
// Every page uses the page size resolved for the first scene.
func PDFPages(w io.Writer, scenes []Scene, opt Options) error {
	if len(scenes) == 0 {
		return fmt.Errorf("no scenes to export")
	}
	first, _ := prepare(scenes[0], opt)
	size := gofpdf.SizeType{Wd: float64(first.Width), Ht: float64(first.Height)}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size})
	pdf.SetTitle(first.Title, false)
	pdf.SetAuthor("riversim", false)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetLineCapStyle("round")

	for i, s := range scenes {
		pageOpt := opt
		pageOpt.Width, pageOpt.Height = first.Width, first.Height
		pageOpt, dl := prepare(s, pageOpt)
		pdf.AddPageFormat("", size)

		setFillColor(pdf, pageOpt.Style.Background)
		pdf.Rect(0, 0, size.Wd, size.Ht, "F")

		for _, sg := range dl.segments {
			setDrawColor(pdf, sg.stroke.Color)
			pdf.SetLineWidth(sg.stroke.Width)
			pdf.Line(sg.a.X, sg.a.Y, sg.b.X, sg.b.Y)
		}
		setFillColor(pdf, pageOpt.Style.Tip)
		for _, p := range dl.tips {
			pdf.Circle(p.X, p.Y, pageOpt.Style.TipRadius, "F")
		}
		if len(scenes) > 1 {
			pdf.SetTextColor(0, 0, 0)
			pdf.Text(4, 10, fmt.Sprintf("%s %d/%d", first.Title, i+1, len(scenes)))
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
