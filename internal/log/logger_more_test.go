/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func TestFromEnvAndGetenv(t *testing.T) {
	t.Setenv("RSIM_LOG_LEVEL", "warn")
	t.Setenv("RSIM_LOG_FORMAT", "json")
	t.Setenv("RSIM_LOG_SOURCE", "true")
	// RSIM_LOG_FILE intentionally unset

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}

	// Also verify getenv default fallback when var missing
	if err := os.Unsetenv("SOME_UNSET_VAR"); err != nil {
		t.Fatalf("Unsetenv error: %v", err)
	}
	if v := getenv("SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestConsoleHandler_Behavior(t *testing.T) {
	// Capture output into a buffer
	var buf bytes.Buffer
	h := &consoleHandler{w: &buf, level: slog.LevelWarn}

	// Enabled should filter below WARN
	if h.Enabled(nil, slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(nil, slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	// WithAttrs and WithGroup should accumulate
	h2 := h.WithAttrs([]slog.Attr{slog.String("k", "v")})
	h2 = h2.WithGroup("grp")

	// Build a record and handle it
	r := slog.Record{Time: time.Now(), Level: slog.LevelError, Message: "boom"}
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.Bool("ok", true))
	if err := h2.Handle(nil, r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "boom") || !strings.Contains(out, "k=v") {
		t.Fatalf("output missing expected content: %q", out)
	}
	// Grouped key should appear as prefix
	if !strings.Contains(out, "grp.n=42") {
		t.Fatalf("grouped attr missing or malformed: %q", out)
	}

	if strings.Contains(out, "grp.k=v") {
		t.Fatalf("attr added before the group got its prefix: %q", out)
	}

	if !strings.Contains(out, "ERR") { // levelTag
		t.Fatalf("expected ERR level tag in output: %q", out)
	}
	if !strings.Contains(out, "grp.pi=3.14") {
		t.Fatalf("expected trimmed float: %q", out)
	}
}

func TestRunFromContext(t *testing.T) {
	if _, ok := RunFromContext(context.Background()); ok {
		t.Fatalf("empty context should carry no run")
	}
	if _, ok := RunFromContext(ContextWithRun(context.Background(), "")); ok {
		t.Fatalf("empty run dir should be ignored")
	}
	dir, ok := RunFromContext(ContextWithRun(context.Background(), "runs/x"))
	if !ok || dir != "runs/x" {
		t.Fatalf("RunFromContext = %q, %v", dir, ok)
	}
}

func TestConsoleHandlerSource(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(&consoleHandler{w: &buf, level: slog.LevelInfo, source: true})
	l.Info("here")
	if out := buf.String(); !strings.Contains(out, "src=") || !strings.Contains(out, "logger_more_test.go:") {
		t.Fatalf("missing source location: %q", out)
	}
}

func TestFanoutRespectsEachLevel(t *testing.T) {
	var warn, debug bytes.Buffer
	h := fanout{
		&consoleHandler{w: &warn, level: slog.LevelWarn},
		&consoleHandler{w: &debug, level: slog.LevelDebug},
	}
	l := slog.New(h)
	l.Info("chatty")
	l.Error("loud")
	if strings.Contains(warn.String(), "chatty") || !strings.Contains(warn.String(), "loud") {
		t.Fatalf("warn handler output: %q", warn.String())
	}
	if !strings.Contains(debug.String(), "chatty") || !strings.Contains(debug.String(), "loud") {
		t.Fatalf("debug handler output: %q", debug.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
