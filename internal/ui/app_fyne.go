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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"riversim/internal/crash"
	"riversim/internal/export"
	applog "riversim/internal/log"
	"riversim/internal/simulation"
	"riversim/internal/storage"
)

// Run starts the Fyne-based viewer for the run in runDir. Steps grown in the
// viewer use the fixed-series integrator and are recorded like CLI runs.
func Run(runDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	var rh *storage.RunHandle
	defer crash.RecoverWith(func() *storage.RunHandle { return rh })

	fyneApp := app.NewWithID("riversim")
	w := fyneApp.NewWindow("riversim")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1100), 800)
	winH := max(prefs.IntWithFallback("window.height", 760), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	rc := NewRiverCanvas()

	var drv *simulation.Driver
	var rec *storage.Recorder
	step := 0

	branchIDs := []int{}
	branchList := widget.NewList(
		func() int { return len(branchIDs) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(branchLabel(rh, branchIDs, int(i)))
		},
	)
	branchList.OnSelected = func(i widget.ListItemID) {
		if int(i) < len(branchIDs) {
			rc.HighlightBranch(branchIDs[i])
		}
	}
	branchList.OnUnselected = func(widget.ListItemID) { rc.HighlightBranch(0) }

	refresh := func() {
		if rh == nil {
			return
		}
		sc, err := export.SceneOf(rh.Model)
		if err != nil {
			status.SetText(fmt.Sprintf("Boundary failed: %v", err))
			l.Error("scene", slog.Any("err", err))
			return
		}
		rc.SetScene(sc)
		branchIDs = rh.Model.Tree.IDs()
		branchList.Refresh()
	}

	a1 := widget.NewEntry()
	a1.SetText("1")
	a2 := widget.NewEntry()
	a2.SetText("0")
	a3 := widget.NewEntry()
	a3.SetText("0")
	series := func() (simulation.FixedSeries, error) {
		var s simulation.FixedSeries
		for i, e := range []*widget.Entry{a1, a2, a3} {
			v, err := strconv.ParseFloat(strings.TrimSpace(e.Text), 64)
			if err != nil {
				return s, fmt.Errorf("a%d: %w", i+1, err)
			}
			s[i] = v
		}
		return s, nil
	}

	open := func(dir string) {
		h, err := openRun(dir, l)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		rh = h
		drv, rec, step = nil, nil, rh.Model.Series.Len()
		addRecentRun(prefs, h.Root)
		w.SetTitle(fmt.Sprintf("riversim: %s", filepath.Base(h.Root)))
		status.SetText(fmt.Sprintf("Opened run: %s", h.Root))
		rc.ResetView()
		refresh()
	}

	growBtn := widget.NewButton("Grow step", func() {
		if rh == nil {
			status.SetText("No run open")
			return
		}
		s, err := series()
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		ctx := context.Background()
		if drv == nil {
			if rec, err = storage.NewRecorder(ctx, rh, "ui"); err != nil {
				dialog.ShowError(err, w)
				return
			}
			drv = simulation.New(rh.Model, simulation.BoundaryMesher{}, simulation.ConstantSolver{}, s)
			drv.OnStep = rec.OnStep
		}
		drv.Integrator = s
		grown, err := drv.Step(ctx, step)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if !grown {
			status.SetText("Growth rolled back: a tip crossed the boundary")
			refresh()
			return
		}
		step++
		status.SetText(fmt.Sprintf("Step %d: %d tips", step, len(rh.Model.Tree.TipBranchesIds())))
		refresh()
	})

	undoBtn := widget.NewButton("Undo", func() {
		if drv == nil {
			return
		}
		if err := drv.RevertLastStep(); err != nil {
			status.SetText(fmt.Sprintf("Undo: %v", err))
			return
		}
		step = max(step-1, 0)
		status.SetText("Reverted last step")
		refresh()
	})

	saveBtn := widget.NewButton("Save", func() {
		if rh == nil {
			return
		}
		if err := storage.Save(rh); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Saved " + rh.RunPath)
	})

	exportBtn := widget.NewButton("Export SVG", func() {
		if rh == nil {
			return
		}
		p, err := export.ExportRun(rh, fmt.Sprintf("view-%03d.svg", step), export.Options{})
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Exported " + p)
	})

	fitBtn := widget.NewButton("Fit", rc.ResetView)

	openBtn := widget.NewButton("Open…", func() {
		dialog.ShowFolderOpen(func(u fyne.ListableURI, err error) {
			if err != nil || u == nil {
				return
			}
			open(u.Path())
		}, w)
	})

	recent := widget.NewSelect(loadRecentRuns(prefs), open)
	recent.PlaceHolder = "Recent runs"

	toolbar := container.NewHBox(openBtn, recent, widget.NewSeparator(),
		widget.NewLabel("a1"), a1, widget.NewLabel("a2"), a2, widget.NewLabel("a3"), a3,
		growBtn, undoBtn, widget.NewSeparator(), saveBtn, exportBtn, fitBtn)
	left := container.NewBorder(widget.NewLabel("Branches"), nil, nil, nil, branchList)
	split := container.NewHSplit(left, rc)
	split.Offset = 0.2
	w.SetContent(container.NewBorder(toolbar, status, nil, nil, split))

	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if rec != nil {
			_ = rec.Finish(context.Background(), nil, drv != nil && drv.Stopped())
		}
	})

	if strings.TrimSpace(runDir) != "" {
		open(runDir)
	}
	w.ShowAndRun()
	return nil
}

func openRun(dir string, l *slog.Logger) (*storage.RunHandle, error) {
	abs, _ := filepath.Abs(dir)
	l.Info("open run", slog.String("root", abs))
	h, err := storage.Open(abs)
	if err != nil {
		return nil, err
	}
	if rebuilt, err := storage.DetectAndRebuildIndex(context.Background(), abs, h.Model); err != nil {
		l.Warn("index check failed", slog.Any("err", err))
	} else if rebuilt {
		l.Info("index rebuilt", slog.String("root", abs))
	}
	return h, nil
}

func branchLabel(rh *storage.RunHandle, ids []int, i int) string {
	if rh == nil || i < 0 || i >= len(ids) {
		return ""
	}
	b, err := rh.Model.Tree.Branch(ids[i])
	if err != nil {
		return ""
	}
	return fmt.Sprintf("#%d  %d pts  %.4g", ids[i], b.Len(), b.Length())
}

// Recent run persistence helpers
const recentPrefsKey = "recent.runs"
const recentMax = 10

func loadRecentRuns(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(s, storage.RunFileName)); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func addRecentRun(p fyne.Preferences, path string) {
	abs, _ := filepath.Abs(path)
	out := []string{abs}
	for _, s := range loadRecentRuns(p) {
		if !strings.EqualFold(s, abs) {
			out = append(out, s)
		}
	}
	if len(out) > recentMax {
		out = out[:recentMax]
	}
	b, _ := json.Marshal(out)
	p.SetString(recentPrefsKey, string(b))
}
