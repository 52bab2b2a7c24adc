/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package runpack moves runs between machines as single .zip archives.
package runpack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "riversim/internal/log"
	"riversim/internal/storage"
)

// ManifestName is the human readable file at the archive root.
const ManifestName = "runpack.manifest.txt"

// ErrNoRun is returned by Unpack when the archive carries no run file.
var ErrNoRun = errors.New("runpack: archive has no " + storage.RunFileName)

// Pack zips the run file and the exports folder of the run at runRoot into
// destZip. Index and backups stay behind; they are rebuilt on open.
func Pack(runRoot, destZip string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("runpack"), "pack").With(slog.String("run", runRoot))
	if strings.TrimSpace(runRoot) == "" {
		return 0, errors.New("runRoot is required")
	}
	if strings.TrimSpace(destZip) == "" {
		return 0, errors.New("destZip is required")
	}
	rh, err := storage.Open(runRoot)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	_ = os.Remove(destZip)

	zf, err := os.Create(destZip)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	zw := zip.NewWriter(zf)

	added, err := writePack(zw, rh)
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := zf.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(destZip)
		l.Error("zip build failed", slog.Any("err", err))
		return 0, fmt.Errorf("build zip: %w", err)
	}
	l.Info("run packed", slog.Int("files", added), slog.String("zip", destZip))
	return added, nil
}

func writePack(zw *zip.Writer, rh *storage.RunHandle) (int, error) {
	m := rh.Model
	manifest := fmt.Sprintf("riversim run\nCreated: %s\nRun: %s\nSimulation: %s\nBranches: %d\nTips: %d\n",
		time.Now().Format(time.RFC3339), filepath.Base(rh.Root), m.Options.SimulationType,
		m.Tree.Len(), len(m.Tree.TipBranchesIds()))
	w, err := zw.Create(ManifestName)
	if err != nil {
		return 0, err
	}
	if _, err := io.WriteString(w, manifest); err != nil {
		return 0, err
	}

	if err := addFile(zw, rh.RunPath, storage.RunFileName); err != nil {
		return 0, err
	}
	added := 1
	exports := filepath.Join(rh.Root, storage.ExportsDirName)
	err = filepath.WalkDir(exports, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(rh.Root, path)
		if err != nil {
			return err
		}
		if err := addFile(zw, path, filepath.ToSlash(rel)); err != nil {
			return err
		}
		added++
		return nil
	})
	return added, err
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	fw, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}

// Unpack extracts an archive made by Pack into destRoot and opens the
// result as a run. Existing files are kept; entries escaping destRoot are
// rejected.
func Unpack(srcZip, destRoot string) (*storage.RunHandle, int, error) {
	l := applog.WithOperation(applog.WithComponent("runpack"), "unpack").With(slog.String("run", destRoot))
	if strings.TrimSpace(destRoot) == "" {
		return nil, 0, errors.New("destRoot is required")
	}
	r, err := zip.OpenReader(srcZip)
	if err != nil {
		return nil, 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	hasRun := false
	for _, f := range r.File {
		if f.Name == storage.RunFileName {
			hasRun = true
		}
	}
	if !hasRun {
		return nil, 0, ErrNoRun
	}

	installed := 0
	for _, f := range r.File {
		if f.Name == ManifestName || f.FileInfo().IsDir() {
			continue
		}
		target, err := safeJoin(destRoot, f.Name)
		if err != nil {
			return nil, installed, err
		}
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(f, target); err != nil {
			return nil, installed, err
		}
		installed++
	}
	rh, err := storage.Open(destRoot)
	if err != nil {
		return nil, installed, err
	}
	l.Info("run unpacked", slog.Int("files", installed))
	return rh, installed, nil
}

func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("runpack: illegal entry %q", name)
	}
	return target, nil
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
