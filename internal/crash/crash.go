/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI into a crash report next to the
// run's backups plus an emergency save of the run.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "riversim/internal/log"
	"riversim/internal/storage"
	"riversim/internal/telemetry"
	"riversim/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Recover captures a panic, logs an error with stacktrace,
// writes an error report file, and attempts a crash-safe autosave
// of the run document (if a run is open).
//
// Usage: defer crash.Recover(rh)
func Recover(rh *storage.RunHandle) {
	if r := recover(); r != nil {
		handle(rh, r)
	}
}

// RecoverWith is Recover for a run opened after the defer statement; current
// is asked for the handle only when a panic happened.
//
// Usage: defer crash.RecoverWith(func() *storage.RunHandle { return rh })
func RecoverWith(current func() *storage.RunHandle) {
	if r := recover(); r != nil {
		handle(current(), r)
	}
}

func handle(rh *storage.RunHandle, r any) {
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, _ := writeReport(rh, r, stack)
	if rh != nil && rh.Model != nil {
		if path, err := storage.AutosaveCrashSnapshot(rh); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

func writeReport(rh *storage.RunHandle, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if rh != nil && rh.Root != "" {
		dir = filepath.Join(rh.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "riversim crash report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if rh != nil {
		_, _ = fmt.Fprintf(&buf, "RunRoot: %s\n", rh.Root)
		_, _ = fmt.Fprintf(&buf, "RunFile: %s\n", rh.RunPath)
		if m := rh.Model; m != nil {
			_, _ = fmt.Fprintf(&buf, "SimulationType: %s\n", m.Options.SimulationType)
			if m.Tree != nil {
				_, _ = fmt.Fprintf(&buf, "Branches: %d\nTips: %d\n", m.Tree.Len(), len(m.Tree.TipBranchesIds()))
			}
			_, _ = fmt.Fprintf(&buf, "RecordedSteps: %d\n", m.Series.Len())
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()

	// optionally upload the crash report (opt-in via env)
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
