/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zalando/go-keyring"
)

// isolate points the config file and keyring at test-local state.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	keyring.MockInit()
	return dir
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, pw, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Fatalf("Load() mismatch (-want +got):\n%s", diff)
	}
	if pw != "" {
		t.Fatalf("password = %q, want empty", pw)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Defaults()
	cfg.Simulation.Preset = "poisson"
	cfg.Simulation.Steps = 25
	cfg.Export.Format = "pdf"
	cfg.Results = ResultsConfig{Enabled: true, DSN: "postgres://rsim@db.test/results"}
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if strings.Contains(string(data), "s3cret") {
		t.Fatalf("password leaked into yaml:\n%s", data)
	}
	got, pw, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if pw != "s3cret" {
		t.Fatalf("password = %q, want %q", pw, "s3cret")
	}
	if err := ForgetResultsPassword(); err != nil {
		t.Fatalf("ForgetResultsPassword: %v", err)
	}
	if _, pw, _ = Load(); pw != "" {
		t.Fatalf("password after forget = %q, want empty", pw)
	}
	if err := ForgetResultsPassword(); err != nil {
		t.Fatalf("second ForgetResultsPassword: %v", err)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("simulation: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("Load() with broken yaml should fail")
	}
}

func TestEnvOverridesSimulationAndResults(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPreset, "Laplace")
	t.Setenv(EnvSteps, "42")
	t.Setenv(EnvExportFormat, "PNG")
	t.Setenv(EnvResultsDSN, "postgres://db.test/r")
	t.Setenv(EnvResultsEnabled, "yes")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Simulation.Preset != "laplace" || cfg.Simulation.Steps != 42 {
		t.Fatalf("simulation overrides not applied: %#v", cfg.Simulation)
	}
	if cfg.Export.Format != "png" {
		t.Fatalf("Export.Format = %q, want png", cfg.Export.Format)
	}
	if !cfg.Results.Enabled || cfg.Results.DSN != "postgres://db.test/r" {
		t.Fatalf("results overrides not applied: %#v", cfg.Results)
	}
}

func TestInvalidStepsOverrideIgnored(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSteps, "many")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Simulation.Steps != Defaults().Simulation.Steps {
		t.Fatalf("Steps = %d, want default", cfg.Simulation.Steps)
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTelemetryOptIn, "true")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/rsim.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/rsim.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeKeepsDefaultsForZeroFields(t *testing.T) {
	dst := Defaults()
	var src AppConfig
	src.Simulation.SaveEachStep = true
	mergeInto(&dst, &src)
	if dst.Simulation.Steps != 10 || dst.Export.Width != 800 || dst.Simulation.Preset != "dirichlet" {
		t.Fatalf("zero fields overwrote defaults: %#v", dst)
	}
}

func TestEnvOverrideFor(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	if env, ok := EnvOverrideFor("logging.level"); !ok || env != EnvLogLevel {
		t.Fatalf("EnvOverrideFor(logging.level) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("export.width"); ok {
		t.Fatalf("export.width has no env override")
	}
	if _, ok := EnvOverrideFor("results.dsn"); ok {
		t.Fatalf("results.dsn reported overridden without env")
	}
}
