/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

func isolate(t *testing.T) {
	t.Helper()
	keyring.MockInit()
	t.Setenv("RSIM_CONFIG_DIR", t.TempDir())
	t.Setenv("RSIM_TELEMETRY_OPT_IN", "false")
	t.Setenv("RSIM_LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := run(args, &out)
	return code, out.String()
}

func TestUsage(t *testing.T) {
	isolate(t)
	if code, out := runCLI(t); code != exitUsage || !strings.Contains(out, "Usage:") {
		t.Fatalf("run() = %d %q, want usage", code, out)
	}
	if code, _ := runCLI(t, "frobnicate"); code != exitUsage {
		t.Fatalf("unknown command exit = %d, want %d", code, exitUsage)
	}
	if code, _ := runCLI(t, "check"); code != exitUsage {
		t.Fatalf("check without dir exit = %d, want %d", code, exitUsage)
	}
}

func TestVersion(t *testing.T) {
	isolate(t)
	code, out := runCLI(t, "version")
	if code != exitOK || !strings.HasPrefix(out, "riversim ") {
		t.Fatalf("version = %d %q", code, out)
	}
}

func TestInitCheckBoundary(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "run")
	if code, out := runCLI(t, "init", dir, "dirichlet"); code != exitOK {
		t.Fatalf("init exit = %d: %s", code, out)
	}
	code, out := runCLI(t, "check", dir)
	if code != exitOK || !strings.Contains(out, "OK: 1 boundaries, 1 sources, 1 branches") {
		t.Fatalf("check = %d %q", code, out)
	}
	code, out = runCLI(t, "boundary", dir)
	if code != exitOK || !strings.Contains(out, "Intersections: 0") {
		t.Fatalf("boundary = %d %q", code, out)
	}
}

func TestInitUnknownPreset(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "run")
	if code, _ := runCLI(t, "init", dir, "nope"); code != exitError {
		t.Fatalf("init exit = %d, want %d", code, exitError)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("run dir created for unknown preset: %v", err)
	}
}

func TestGrowAndExport(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "run")
	if code, out := runCLI(t, "init", dir); code != exitOK {
		t.Fatalf("init exit = %d: %s", code, out)
	}
	if code, _ := runCLI(t, "grow", dir, "zero"); code != exitUsage {
		t.Fatalf("grow with bad steps exit = %d, want %d", code, exitUsage)
	}
	code, out := runCLI(t, "grow", dir, "2")
	if code != exitOK || !strings.Contains(out, "Steps: 2") {
		t.Fatalf("grow = %d %q", code, out)
	}
	code, out = runCLI(t, "export", dir, "final")
	if code != exitOK {
		t.Fatalf("export = %d %q", code, out)
	}
	if _, err := os.Stat(filepath.Join(dir, "exports", "final.svg")); err != nil {
		t.Fatalf("export file: %v", err)
	}
}

func TestPublishDisabled(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "run")
	if code, out := runCLI(t, "init", dir); code != exitOK {
		t.Fatalf("init exit = %d: %s", code, out)
	}
	code, out := runCLI(t, "publish", dir)
	if code != exitError || !strings.Contains(out, "disabled") {
		t.Fatalf("publish = %d %q", code, out)
	}
}

func TestPackUnpack(t *testing.T) {
	isolate(t)
	base := t.TempDir()
	dir := filepath.Join(base, "run")
	if code, out := runCLI(t, "init", dir); code != exitOK {
		t.Fatalf("init exit = %d: %s", code, out)
	}
	zipPath := filepath.Join(base, "run.zip")
	if code, out := runCLI(t, "pack", dir, zipPath); code != exitOK {
		t.Fatalf("pack = %d %q", code, out)
	}
	copyDir := filepath.Join(base, "copy")
	if code, out := runCLI(t, "unpack", zipPath, copyDir); code != exitOK {
		t.Fatalf("unpack = %d %q", code, out)
	}
	if code, out := runCLI(t, "check", copyDir); code != exitOK {
		t.Fatalf("check of unpacked run = %d %q", code, out)
	}
}

func TestConfigCommands(t *testing.T) {
	isolate(t)
	t.Setenv("RSIM_STEPS", "7")
	code, out := runCLI(t, "config")
	if code != exitOK || !strings.Contains(out, "steps: 7") || !strings.Contains(out, "simulation.steps overridden by RSIM_STEPS") {
		t.Fatalf("config show = %d %q", code, out)
	}
	if code, out := runCLI(t, "config", "password", "s3cret"); code != exitOK {
		t.Fatalf("config password = %d %q", code, out)
	}
	_, out = runCLI(t, "config", "show")
	if !strings.Contains(out, "password stored in keyring") || strings.Contains(out, "s3cret") {
		t.Fatalf("config show after password = %q", out)
	}
	if code, _ := runCLI(t, "config", "forget-password"); code != exitOK {
		t.Fatalf("forget-password exit = %d", code)
	}
	if code, _ := runCLI(t, "config", "bogus"); code != exitUsage {
		t.Fatalf("config bogus exit = %d, want %d", code, exitUsage)
	}
}
