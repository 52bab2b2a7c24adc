/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"riversim/internal/config"
	"riversim/internal/crash"
	"riversim/internal/export"
	applog "riversim/internal/log"
	"riversim/internal/model"
	"riversim/internal/region"
	"riversim/internal/results"
	"riversim/internal/runpack"
	"riversim/internal/simulation"
	"riversim/internal/storage"
	"riversim/internal/telemetry"
	"riversim/internal/ui"
	"riversim/internal/version"
)

// exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "riversim: river network growth on a rectangular region")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  riversim version|-v|--version      Show version")
	_, _ = fmt.Fprintf(w, "  riversim init <dir> [preset]         Create a run at <dir>; presets: %s\n", strings.Join(model.Presets(), ", "))
	_, _ = fmt.Fprintln(w, "  riversim check <dir>                 Check parameters and geometry of a run")
	_, _ = fmt.Fprintln(w, "  riversim boundary <dir>              Generate the boundary and count tip intersections")
	_, _ = fmt.Fprintln(w, "  riversim grow <dir> [steps]          Grow the tree with fixed series parameters, saving each step")
	_, _ = fmt.Fprintln(w, "  riversim export <dir> <file|preset>  Render to .svg/.png/.pdf, or the web/print preset")
	_, _ = fmt.Fprintln(w, "  riversim pack <dir> <zip>            Archive the run file and exports")
	_, _ = fmt.Fprintln(w, "  riversim unpack <zip> <dir>          Restore an archived run into <dir>")
	_, _ = fmt.Fprintln(w, "  riversim publish <dir>               Publish the run to the results database")
	_, _ = fmt.Fprintln(w, "  riversim config [show|save|password <pw>|forget-password]")
	_, _ = fmt.Fprintln(w, "                                       Inspect or persist the user configuration")
	_, _ = fmt.Fprintln(w, "  riversim ui [<dir>]                  Launch the viewer (build with -tags fyne)")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// cli carries what every command needs.
type cli struct {
	out io.Writer
	cfg config.AppConfig
	pw  string
	l   *slog.Logger
	rh  *storage.RunHandle
}

func run(args []string, out io.Writer) int {
	cfg, pw, err := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	c := &cli{out: out, cfg: cfg, pw: pw, l: applog.WithComponent("cli")}
	if err != nil {
		c.l.Warn("config not loaded, using defaults", slog.Any("err", err))
	}
	defer crash.RecoverWith(func() *storage.RunHandle { return c.rh })

	tc := telemetry.FromEnv()
	tc.OptIn = cfg.General.TelemetryOptIn
	telemetry.NewDefault(tc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer telemetry.Flush(ctx)

	c.l.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage(out)
		return exitUsage
	}
	cmd, rest := args[0], args[1:]
	need := func(n int, what string) bool {
		if len(rest) < n {
			_, _ = fmt.Fprintf(out, "%s requires %s\n", cmd, what)
			usage(out)
			return false
		}
		return true
	}

	switch cmd {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(out, "riversim", version.String())
		return exitOK
	case "init":
		if !need(1, "<dir>") {
			return exitUsage
		}
		preset := cfg.Simulation.Preset
		if len(rest) > 1 {
			preset = rest[1]
		}
		return c.report(c.initRun(rest[0], preset))
	case "check":
		if !need(1, "<dir>") {
			return exitUsage
		}
		return c.report(c.check(rest[0]))
	case "boundary":
		if !need(1, "<dir>") {
			return exitUsage
		}
		return c.report(c.boundary(rest[0]))
	case "grow":
		if !need(1, "<dir>") {
			return exitUsage
		}
		steps := 0
		if len(rest) > 1 {
			n, err := strconv.Atoi(rest[1])
			if err != nil || n <= 0 {
				_, _ = fmt.Fprintf(out, "grow: invalid step count %q\n", rest[1])
				return exitUsage
			}
			steps = n
		}
		return c.report(c.grow(ctx, rest[0], steps))
	case "export":
		if !need(2, "<dir> and <file|preset>") {
			return exitUsage
		}
		return c.report(c.export(ctx, rest[0], rest[1]))
	case "pack":
		if !need(2, "<dir> and <zip>") {
			return exitUsage
		}
		n, err := runpack.Pack(rest[0], rest[1])
		if err == nil {
			_, _ = fmt.Fprintf(out, "Packed %d files into %s\n", n, rest[1])
		}
		return c.report(err)
	case "unpack":
		if !need(2, "<zip> and <dir>") {
			return exitUsage
		}
		rh, n, err := runpack.Unpack(rest[0], rest[1])
		if err == nil {
			c.rh = rh
			_, _ = fmt.Fprintf(out, "Unpacked %d files into %s\n", n, rest[1])
		}
		return c.report(err)
	case "publish":
		if !need(1, "<dir>") {
			return exitUsage
		}
		return c.report(c.publish(ctx, rest[0]))
	case "config":
		sub := "show"
		if len(rest) > 0 {
			sub = rest[0]
		}
		return c.configCmd(sub, rest)
	case "ui":
		var dir string
		if len(rest) > 0 {
			dir = rest[0]
		}
		return c.report(ui.Run(dir))
	}
	usage(out)
	return exitUsage
}

func (c *cli) report(err error) int {
	if err == nil {
		return exitOK
	}
	c.l.Error("command failed", slog.Any("err", err))
	_, _ = fmt.Fprintln(c.out, "Error:", err)
	return exitError
}

func (c *cli) open(dir string) error {
	abs, _ := filepath.Abs(dir)
	c.l.Info("open run", slog.String("root", abs))
	h, err := storage.Open(abs)
	if err != nil {
		return err
	}
	c.rh = h
	return nil
}

func (c *cli) initRun(dir, preset string) error {
	abs, _ := filepath.Abs(dir)
	m := model.New()
	if err := m.Initialize(strings.ToLower(preset)); err != nil {
		return err
	}
	m.Options.NumberOfSteps = c.cfg.Simulation.Steps
	m.Options.SaveEachStep = c.cfg.Simulation.SaveEachStep
	c.l.Info("init run", slog.String("root", abs), slog.String("preset", preset))
	h, err := storage.InitRun(abs, m)
	if err != nil {
		return err
	}
	c.rh = h
	_, _ = fmt.Fprintf(c.out, "Created %s run at %s\n", preset, abs)
	return nil
}

func (c *cli) check(dir string) error {
	if err := c.open(dir); err != nil {
		return err
	}
	m := c.rh.Model
	warnings, err := m.CheckParametersConsistency()
	for _, w := range warnings {
		_, _ = fmt.Fprintln(c.out, "warning:", w)
	}
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "OK: %d boundaries, %d sources, %d branches\n", m.Region.Len(), len(m.Sources), m.Tree.Len())
	return nil
}

func (c *cli) boundary(dir string) error {
	if err := c.open(dir); err != nil {
		return err
	}
	sc, err := export.SceneOf(c.rh.Model)
	if err != nil {
		return err
	}
	n := region.NumOfBoundaryIntersection(sc.Boundary, c.rh.Model.Tree.TipBoundary())
	_, _ = fmt.Fprintf(c.out, "Vertices: %d\nLines: %d\nIntersections: %d\n", len(sc.Boundary.Vertices), len(sc.Boundary.Lines), n)
	return nil
}

// growSeries drives CLI runs: every tip grows straight ahead at full speed.
var growSeries = simulation.FixedSeries{1, 0, 0}

func (c *cli) grow(ctx context.Context, dir string, steps int) error {
	if err := c.open(dir); err != nil {
		return err
	}
	rh := c.rh
	m := rh.Model
	ctx = applog.ContextWithRun(ctx, rh.Root)
	if steps > 0 {
		m.Options.NumberOfSteps = steps
	}
	if rebuilt, err := storage.DetectAndRebuildIndex(ctx, rh.Root, m); err != nil {
		return err
	} else if rebuilt {
		c.l.Info("index rebuilt", slog.String("root", rh.Root))
	}

	rec, err := storage.NewRecorder(ctx, rh, fmt.Sprintf("grow %d", m.Options.NumberOfSteps))
	if err != nil {
		return err
	}
	rec.SaveEachStep = true
	rec.KeepSnapshots = c.cfg.Simulation.KeepSnapshots
	rec.PreviewSize = 160
	rec.Preview = func(context.Context) ([]byte, error) {
		sc, err := export.SceneOf(m)
		if err != nil {
			return nil, err
		}
		return export.PreviewPNG(sc, rec.PreviewSize, rec.PreviewSize)
	}

	d := simulation.New(m, simulation.BoundaryMesher{}, simulation.ConstantSolver{}, growSeries)
	hook := telemetry.StepHook(1)
	d.OnStep = func(ctx context.Context, info simulation.StepInfo) error {
		if err := rec.OnStep(ctx, info); err != nil {
			return err
		}
		return hook(ctx, info)
	}

	runErr := d.Run(ctx)
	if err := rec.Finish(ctx, runErr, d.Stopped()); err != nil {
		c.l.Warn("finish run record", slog.Any("err", err))
	}
	telemetry.RunFinished(m.Options.SimulationType.String(), rec.Steps(), m.Tree.Len(), d.Stopped(), runErr)
	if runErr != nil {
		return errors.Join(runErr, storage.Save(rh))
	}
	if err := storage.Save(rh); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "Steps: %d\nBranches: %d\nTips: %d\n", rec.Steps(), m.Tree.Len(), len(m.Tree.TipBranchesIds()))
	if d.Stopped() {
		_, _ = fmt.Fprintln(c.out, "Stopped: a tip reached the boundary")
	}
	return nil
}

func (c *cli) exportOptions() export.Options {
	st := export.DefaultStyle()
	if w := c.cfg.Export.StrokeWidth; w > 0 {
		st.Boundary.Width, st.River.Width = w, w
	}
	return export.Options{Width: c.cfg.Export.Width, Style: st}
}

func (c *cli) export(ctx context.Context, dir, target string) error {
	if err := c.open(dir); err != nil {
		return err
	}
	switch p := export.PresetName(strings.ToLower(target)); p {
	case export.PresetWeb, export.PresetPrint:
		paths, err := export.BatchExport(ctx, c.rh, export.BatchOptions{Preset: p, Width: c.cfg.Export.Width})
		for _, path := range paths {
			_, _ = fmt.Fprintln(c.out, "Exported", path)
		}
		return err
	}
	if filepath.Ext(target) == "" {
		target += "." + c.cfg.Export.Format
	}
	path, err := export.ExportRun(c.rh, target, c.exportOptions())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, "Exported", path)
	return nil
}

func (c *cli) publish(ctx context.Context, dir string) error {
	if !c.cfg.Results.Enabled {
		return fmt.Errorf("results publishing is disabled; set results.enabled or %s", config.EnvResultsEnabled)
	}
	if err := c.open(dir); err != nil {
		return err
	}
	dsn, err := results.WithPassword(c.cfg.Results.DSN, c.pw)
	if err != nil {
		return err
	}
	db, err := results.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	stableID, err := results.StableID(c.rh.Root)
	if err != nil {
		return err
	}
	id, err := results.Publish(ctx, db, stableID, filepath.Base(c.rh.Root), c.rh.Model)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "Published %s as run %d\n", stableID, id)
	return nil
}

func (c *cli) configCmd(sub string, rest []string) int {
	switch sub {
	case "show":
		return c.report(c.showConfig())
	case "save":
		return c.report(c.saveConfig(""))
	case "password":
		if len(rest) < 2 || rest[1] == "" {
			_, _ = fmt.Fprintln(c.out, "config password requires <pw>")
			return exitUsage
		}
		return c.report(c.saveConfig(rest[1]))
	case "forget-password":
		return c.report(config.ForgetResultsPassword())
	}
	_, _ = fmt.Fprintf(c.out, "unknown config command %q\n", sub)
	usage(c.out)
	return exitUsage
}

func (c *cli) showConfig() error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(c.cfg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "# %s\n%s", path, data)
	for _, key := range config.OverridableKeys() {
		if env, ok := config.EnvOverrideFor(key); ok {
			_, _ = fmt.Fprintf(c.out, "# %s overridden by %s\n", key, env)
		}
	}
	if c.pw != "" {
		_, _ = fmt.Fprintln(c.out, "# results password stored in keyring")
	}
	return nil
}

func (c *cli) saveConfig(pw string) error {
	if err := config.Save(c.cfg, pw); err != nil {
		return err
	}
	path, _ := config.ConfigPath()
	_, _ = fmt.Fprintln(c.out, "Saved", path)
	return nil
}
