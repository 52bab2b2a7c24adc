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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	applog "riversim/internal/log"
	"riversim/internal/storage"
)

type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts a format name with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	switch f {
	case FormatSVG, FormatPNG, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("unknown format: %q", s)
}

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, error) { return ParseFormat(filepath.Ext(path)) }

// Render writes s in format f.
func Render(w io.Writer, f Format, s Scene, opt Options) error {
	switch f {
	case FormatSVG:
		return SVG(w, s, opt)
	case FormatPNG:
		return PNG(w, s, opt)
	case FormatPDF:
		return PDF(w, s, opt)
	}
	return fmt.Errorf("unknown format: %q", f)
}

// ExportRun renders the current state of a run to outPath. Relative paths
// land under the run's exports folder. The format follows the extension.
func ExportRun(rh *storage.RunHandle, outPath string, opt Options) (string, error) {
	if rh == nil {
		return "", fmt.Errorf("run handle is nil")
	}
	f, err := FormatOf(outPath)
	if err != nil {
		return "", err
	}
	sc, err := SceneOf(rh.Model)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(outPath) {
		outPath = rh.ExportPath(outPath)
	}
	var buf bytes.Buffer
	if err := Render(&buf, f, sc, opt); err != nil {
		return "", err
	}
	if err := writeFile(outPath, buf.Bytes()); err != nil {
		return "", err
	}
	applog.WithComponent("export").Info("exported run", "format", f, "path", outPath,
		"vertices", len(sc.Boundary.Vertices), "lines", len(sc.Boundary.Lines))
	return outPath, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls a batch export of one run.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <run>/exports/<preset>/.
//   - Files are named final.(svg|png|pdf).
//   - The print preset additionally writes history.pdf with one page per
//     stored step snapshot of the latest indexed run, oldest first.
type BatchOptions struct {
	Preset  PresetName
	Formats []Format // empty means preset defaults
	Width   int
	OutDir  string
	// HistoryLimit bounds the pages of history.pdf; 0 uses the index default.
	HistoryLimit int
}

// BatchExport runs exports according to the given preset and returns the
// written paths.
func BatchExport(ctx context.Context, rh *storage.RunHandle, opt BatchOptions) ([]string, error) {
	if rh == nil {
		return nil, fmt.Errorf("run handle is nil")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = rh.ExportPath(baseOut)
	}
	ro := Options{Width: opt.Width}
	if ro.Width <= 0 {
		ro.Width = presetWidth(opt.Preset)
	}

	var written []string
	for _, f := range formats {
		p, err := ExportRun(rh, filepath.Join(baseOut, "final."+string(f)), ro)
		if err != nil {
			return written, fmt.Errorf("%s: %w", f, err)
		}
		written = append(written, p)
	}
	if opt.Preset == PresetPrint {
		p, ok, err := exportHistory(ctx, rh, filepath.Join(baseOut, "history.pdf"), ro, opt.HistoryLimit)
		if err != nil {
			return written, fmt.Errorf("history: %w", err)
		}
		if ok {
			written = append(written, p)
		}
	}
	return written, nil
}

// exportHistory renders the stored step snapshots of the most recent run.
// It reports false when the index holds no snapshots.
func exportHistory(ctx context.Context, rh *storage.RunHandle, path string, opt Options, limit int) (string, bool, error) {
	runs, err := storage.ListRuns(ctx, rh)
	if err != nil || len(runs) == 0 {
		return "", false, err
	}
	snaps, err := storage.ListStepSnapshots(ctx, rh, runs[0].ID, limit)
	if err != nil || len(snaps) == 0 {
		return "", false, err
	}
	slices.Reverse(snaps)

	scenes := make([]Scene, 0, len(snaps))
	for _, s := range snaps {
		tree, err := s.Tree()
		if err != nil {
			return "", false, fmt.Errorf("snapshot %s/%d: %w", s.Phase, s.Step, err)
		}
		m := rh.Model.Clone()
		m.Tree = tree
		sc, err := SceneOf(m)
		if err != nil {
			return "", false, fmt.Errorf("snapshot %s/%d: %w", s.Phase, s.Step, err)
		}
		scenes = append(scenes, sc)
	}
	var buf bytes.Buffer
	opt.Title = fmt.Sprintf("run %d", runs[0].ID)
	if err := PDFPages(&buf, scenes, opt); err != nil {
		return "", false, err
	}
	if err := writeFile(path, buf.Bytes()); err != nil {
		return "", false, err
	}
	return path, true, nil
}

func presetDefaultFormats(p PresetName) []Format {
	switch p {
	case PresetWeb:
		return []Format{FormatPNG, FormatSVG}
	case PresetPrint:
		return []Format{FormatPDF, FormatPNG}
	default:
		return []Format{FormatSVG}
	}
}

func presetWidth(p PresetName) int {
	switch p {
	case PresetPrint:
		return 1600
	default:
		return defaultWidth
	}
}
