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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

type SimulationConfig struct {
	Preset        string `yaml:"preset"`
	Steps         int    `yaml:"steps"`
	SaveEachStep  bool   `yaml:"save_each_step"`
	KeepSnapshots int    `yaml:"keep_snapshots"`
}

type ExportConfig struct {
	Format      string  `yaml:"format"` // "svg" | "png" | "pdf"
	Width       int     `yaml:"width"`
	StrokeWidth float64 `yaml:"stroke_width"`
}

type ResultsConfig struct {
	Enabled bool `yaml:"enabled"`
	// DSN never carries the password; it lives in the OS keychain.
	DSN string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	General       GeneralConfig    `yaml:"general"`
	Simulation    SimulationConfig `yaml:"simulation"`
	Export        ExportConfig     `yaml:"export"`
	Results       ResultsConfig    `yaml:"results"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Simulation:    SimulationConfig{Preset: "dirichlet", Steps: 10, SaveEachStep: true, KeepSnapshots: 50},
		Export:        ExportConfig{Format: "svg", Width: 800, StrokeWidth: 1.5},
		Results:       ResultsConfig{Enabled: false, DSN: ""},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir      = "RSIM_CONFIG_DIR"
	EnvPreset         = "RSIM_PRESET"
	EnvSteps          = "RSIM_STEPS"
	EnvExportFormat   = "RSIM_EXPORT_FORMAT"
	EnvResultsDSN     = "RSIM_RESULTS_DSN"
	EnvResultsEnabled = "RSIM_RESULTS_ENABLED"
	EnvTelemetryOptIn = "RSIM_TELEMETRY_OPT_IN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "RSIM_LOG_LEVEL"
	EnvLogFormat = "RSIM_LOG_FORMAT"
	EnvLogSource = "RSIM_LOG_SOURCE"
	EnvLogFile   = "RSIM_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService  = "riversim"
	keyringPassword = "results_password"
)

// secretStore abstracts keyring, so we can stub in tests.
var secretStore SecretStore = osKeyring{}

type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements SecretStore using the OS keyring via github.com/zalando/go-keyring.
// A missing entry reads as the empty string.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) {
	v, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (osKeyring) Set(service, key, value string) error { return keyring.Set(service, key, value) }

func (osKeyring) Delete(service, key string) error {
	if err := keyring.Delete(service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Join(dir, "config.yaml"), nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "riversim")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "riversim")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "riversim")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the results database password from keyring (returned separately).
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	pw, _ := secretStore.Get(keyringService, keyringPassword)
	return cfg, pw, nil
}

// Save writes the user config YAML and persists the password into OS keyring (if non-empty).
func Save(cfg AppConfig, password string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := secretStore.Set(keyringService, keyringPassword, password); err != nil {
			return fmt.Errorf("store results password: %w", err)
		}
	}
	return nil
}

// ForgetResultsPassword removes the stored password.
func ForgetResultsPassword() error {
	return secretStore.Delete(keyringService, keyringPassword)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	// simulation
	if strings.TrimSpace(src.Simulation.Preset) != "" {
		dst.Simulation.Preset = strings.ToLower(strings.TrimSpace(src.Simulation.Preset))
	}
	if src.Simulation.Steps > 0 {
		dst.Simulation.Steps = src.Simulation.Steps
	}
	dst.Simulation.SaveEachStep = src.Simulation.SaveEachStep
	if src.Simulation.KeepSnapshots != 0 {
		dst.Simulation.KeepSnapshots = src.Simulation.KeepSnapshots
	}
	// export
	if strings.TrimSpace(src.Export.Format) != "" {
		dst.Export.Format = strings.ToLower(strings.TrimSpace(src.Export.Format))
	}
	if src.Export.Width > 0 {
		dst.Export.Width = src.Export.Width
	}
	if src.Export.StrokeWidth > 0 {
		dst.Export.StrokeWidth = src.Export.StrokeWidth
	}
	// results
	dst.Results.Enabled = src.Results.Enabled
	if strings.TrimSpace(src.Results.DSN) != "" {
		dst.Results.DSN = strings.TrimSpace(src.Results.DSN)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvPreset)); v != "" {
		cfg.Simulation.Preset = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvSteps)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Simulation.Steps = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportFormat)); v != "" {
		cfg.Export.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvResultsDSN)); v != "" {
		cfg.Results.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvResultsEnabled)); v != "" {
		cfg.Results.Enabled = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"simulation.preset":        EnvPreset,
	"simulation.steps":         EnvSteps,
	"export.format":            EnvExportFormat,
	"results.dsn":              EnvResultsDSN,
	"results.enabled":          EnvResultsEnabled,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
// OverridableKeys lists, sorted, the dotted keys EnvOverrideFor knows.
func OverridableKeys() []string {
	keys := make([]string, 0, len(envByKey))
	for k := range envByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func EnvOverrideFor(key string) (string, bool) {
	env, ok := envByKey[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
