/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry posts opt-in run events and crash reports to HTTP
// endpoints. Nothing is sent unless OptIn is set and a URL is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "riversim/internal/log"
	"riversim/internal/version"
)

const (
	queueSize    = 64
	flushTimeout = 500 * time.Millisecond
)

// Config selects the endpoints and request timeout. FromEnv reads
// RSIM_TELEMETRY_OPT_IN, RSIM_TELEMETRY_URL, RSIM_CRASH_UPLOAD_URL,
// RSIM_TELEMETRY_TIMEOUT_MS and RSIM_TELEMETRY_DEBUG.
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
	Debug     bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:     parseBool(os.Getenv("RSIM_TELEMETRY_OPT_IN")),
		EventsURL: strings.TrimSpace(os.Getenv("RSIM_TELEMETRY_URL")),
		CrashURL:  strings.TrimSpace(os.Getenv("RSIM_CRASH_UPLOAD_URL")),
		Timeout:   1500 * time.Millisecond,
		Debug:     os.Getenv("RSIM_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("RSIM_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Client queues events and posts them from a single goroutine. A full queue
// drops the event; send errors are logged at debug level only.
type Client struct {
	cfg     Config
	log     *slog.Logger
	http    *http.Client
	events  chan map[string]any
	pending sync.WaitGroup
	stop    chan struct{}
	once    sync.Once
}

func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		http:   &http.Client{Timeout: cfg.Timeout},
		events: make(chan map[string]any, queueSize),
		stop:   make(chan struct{}),
	}
	go c.run()
	return c
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// NewDefault installs a client built from cfg as the package default.
func NewDefault(cfg Config) {
	c := New(cfg)
	defaultMu.Lock()
	old := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	old.Close()
}

// Default returns the package client, creating one from the environment on
// first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// Enabled reports whether events will be posted.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a named event. props must not carry paths or user text.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	ev := make(map[string]any, len(props)+5)
	for k, v := range props {
		ev[k] = v
	}
	ev["name"] = name
	ev["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	ev["version"] = version.String()
	ev["os"] = runtime.GOOS
	ev["arch"] = runtime.GOARCH

	c.pending.Add(1)
	select {
	case c.events <- ev:
	default:
		c.pending.Done()
	}
}

// Flush waits until queued events are posted, ctx is done or a short
// deadline passes.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(flushTimeout):
	}
}

// Flush drains the default client if one exists.
func Flush(ctx context.Context) {
	defaultMu.Lock()
	c := defaultClient
	defaultMu.Unlock()
	c.Flush(ctx)
}

// Close stops the sender. Queued events that were not posted are dropped.
func (c *Client) Close() {
	if c != nil {
		c.once.Do(func() { close(c.stop) })
	}
}

func (c *Client) run() {
	for {
		select {
		case <-c.stop:
			return
		case ev := <-c.events:
			if b, err := json.Marshal(ev); err == nil {
				c.post(c.cfg.EventsURL, "application/json", b, "event")
			}
			c.pending.Done()
		}
	}
}

func (c *Client) post(url, contentType string, body []byte, kind string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		if c.cfg.Debug {
			c.log.Debug("telemetry post failed", slog.String("kind", kind), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.Debug {
		c.log.Debug("telemetry posted", slog.String("kind", kind), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a rendered crash report in the background.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	b := append([]byte(nil), report...)
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", b, "crash")
}

func UploadCrash(report []byte) { Default().UploadCrash(report) }
