/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"riversim/internal/model"
)

const (
	RunFileName    = "run.json"
	BackupsDirName = "backups"
	ExportsDirName = "exports"
)

var standardSubDirs = []string{
	ExportsDirName,
	BackupsDirName,
}

// RunHandle keeps track of a run directory and the model loaded from or
// saved to its run.json.
type RunHandle struct {
	Root    string
	RunPath string
	Model   *model.Model
}

// InitRun creates a run directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders and writes the model transactionally.
func InitRun(root string, m *model.Model) (*RunHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if m == nil {
		return nil, errors.New("model is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	rh := &RunHandle{
		Root:    root,
		RunPath: filepath.Join(root, RunFileName),
		Model:   m,
	}
	if err := Save(rh); err != nil {
		return nil, err
	}
	return rh, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create run root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads an existing run from root. If run.json cannot be read, does not
// match the schema or fails to decode, the latest backup is tried instead.
func Open(root string) (*RunHandle, error) {
	rpath := filepath.Join(root, RunFileName)
	b, err := os.ReadFile(rpath)
	if err == nil {
		var m *model.Model
		if m, err = decodeRun(b); err == nil {
			return &RunHandle{Root: root, RunPath: rpath, Model: m}, nil
		}
	}
	m, berr := openFromLatestBackup(root)
	if berr != nil {
		return nil, fmt.Errorf("open run: %w; backup attempt: %v", err, berr)
	}
	return &RunHandle{Root: root, RunPath: rpath, Model: m}, nil
}

func decodeRun(b []byte) (*model.Model, error) {
	if err := ValidateRun(b); err != nil {
		return nil, err
	}
	m := model.New()
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("parse run: %w", err)
	}
	return m, nil
}

// Save writes the model to run.json with transactional semantics and a
// timestamped backup of the previous document (if present).
func Save(rh *RunHandle) error {
	if rh == nil {
		return errors.New("nil RunHandle")
	}
	if rh.Root == "" || rh.RunPath == "" {
		return errors.New("invalid RunHandle: missing paths")
	}
	if rh.Model == nil {
		return errors.New("invalid RunHandle: no model")
	}
	data, err := json.MarshalIndent(rh.Model, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(rh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	if _, statErr := os.Stat(rh.RunPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", RunFileName, stamp))
		if cerr := copyFile(rh.RunPath, bpath); cerr != nil {
			return fmt.Errorf("backup current run: %w", cerr)
		}
	}

	// Write to a temp file in the same directory, then rename over the target.
	dir := filepath.Dir(rh.RunPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", RunFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp run: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(rh.RunPath); err == nil {
		_ = os.Remove(rh.RunPath)
	}
	if rerr := os.Rename(temp, rh.RunPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace run: %w", rerr)
	}
	return nil
}

// SaveAs writes the run to a new root folder, scaffolding structure if needed, and updates the handle.
func SaveAs(rh *RunHandle, newRoot string) error {
	if rh == nil {
		return errors.New("nil RunHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	rh.Root = newRoot
	rh.RunPath = filepath.Join(newRoot, RunFileName)
	return Save(rh)
}

// ExportPath returns the path of name inside the run's exports folder.
func (rh *RunHandle) ExportPath(name string) string {
	return filepath.Join(rh.Root, ExportsDirName, name)
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// Backups lists the run.json backups in root, oldest first.
func Backups(root string) ([]string, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, RunFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

// openFromLatestBackup tries the backups newest first and returns the
// first one that decodes.
func openFromLatestBackup(root string) (*model.Model, error) {
	candidates, err := Backups(root)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			lastErr = fmt.Errorf("read backup: %w", err)
			continue
		}
		m, err := decodeRun(b)
		if err != nil {
			lastErr = fmt.Errorf("backup %s: %w", filepath.Base(candidates[i]), err)
			continue
		}
		return m, nil
	}
	return nil, lastErr
}

// AutosaveCrashSnapshot writes the in-memory model to a timestamped file in
// backups/ without touching run.json, returning the file path.
func AutosaveCrashSnapshot(rh *RunHandle) (string, error) {
	if rh == nil || rh.Model == nil {
		return "", errors.New("nil RunHandle")
	}
	data, err := json.MarshalIndent(rh.Model, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash snapshot: %w", err)
	}
	bdir := filepath.Join(rh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(bdir, fmt.Sprintf("crash-%s.json", time.Now().Format("20060102-150405.000")))
	if err := writeFileSync(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}
