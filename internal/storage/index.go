/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	applog "riversim/internal/log"
	"riversim/internal/model"
	"riversim/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-run index data under the run root.
	IndexDirName  = ".rsim"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	schemaVersion = 2
)

// Run statuses stored in the runs table.
const (
	RunRunning  = "running"
	RunFinished = "finished"
	RunStopped  = "stopped"
	RunFailed   = "failed"
	RunRebuilt  = "rebuilt"
)

// RunRecord is one simulation invocation recorded in the index.
type RunRecord struct {
	ID         int64
	Label      string
	SimType    string
	Status     string
	Steps      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// IndexPath returns the full path to the run directory's index database file.
func IndexPath(runRoot string) string {
	return filepath.Join(runRoot, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the SQLite index exists at .rsim/index.sqlite,
// opens the database, enables WAL mode, and ensures the schema is current.
// Callers close the returned *sql.DB.
func InitOrOpenIndex(runRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", runRoot),
	)
	if strings.TrimSpace(runRoot) == "" {
		return nil, errors.New("run root is required")
	}
	if err := os.MkdirAll(filepath.Join(runRoot, IndexDirName), 0o755); err != nil {
		l.Error("create .rsim dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .rsim dir: %w", err)
	}

	path := IndexPath(runRoot)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh index starts at schema 1 and migrates forward.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the index.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return cur, nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	cur, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_step_snapshots_run_step ON step_snapshots(run_id, step);`,
				`CREATE INDEX IF NOT EXISTS idx_series_branch ON series(run_id, branch_id, step);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY,
			label       TEXT    NOT NULL DEFAULT '',
			sim_type    TEXT    NOT NULL,
			status      TEXT    NOT NULL,
			steps       INTEGER NOT NULL DEFAULT 0,
			started_at  TEXT    NOT NULL,
			finished_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS step_snapshots (
			id        INTEGER PRIMARY KEY,
			run_id    INTEGER NOT NULL,
			phase     TEXT    NOT NULL,
			step      INTEGER NOT NULL,
			ts        TEXT    NOT NULL,
			tree_blob BLOB    NOT NULL,
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS series (
			run_id    INTEGER NOT NULL,
			step      INTEGER NOT NULL,
			branch_id INTEGER NOT NULL,
			a1        REAL    NOT NULL,
			a2        REAL    NOT NULL,
			a3        REAL    NOT NULL,
			PRIMARY KEY(run_id, step, branch_id),
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS previews (
			id          INTEGER PRIMARY KEY,
			run_id      INTEGER NOT NULL,
			step        INTEGER NOT NULL,
			kind        TEXT    NOT NULL,
			w           INTEGER NOT NULL DEFAULT 0,
			h           INTEGER NOT NULL DEFAULT 0,
			blob        BLOB    NOT NULL,
			size        INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL,
			last_access TEXT,
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_previews_variant ON previews(run_id, step, kind, w, h);`,
		`CREATE INDEX IF NOT EXISTS idx_previews_access ON previews(last_access);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

// BeginRun inserts a running run record and returns its id.
func BeginRun(ctx context.Context, rh *RunHandle, label string) (int64, error) {
	if rh == nil {
		return 0, errors.New("nil RunHandle")
	}
	db, err := InitOrOpenIndex(rh.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	return insertRun(ctx, db, label, rh.Model.Options.SimulationType.String(), RunRunning)
}

func insertRun(ctx context.Context, db *sql.DB, label, simType, status string) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO runs(label, sim_type, status, started_at) VALUES(?,?,?,?)`,
		label, simType, status, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stores the final status and step count of a run.
func FinishRun(ctx context.Context, rh *RunHandle, runID int64, steps int, status string) error {
	if rh == nil {
		return errors.New("nil RunHandle")
	}
	db, err := InitOrOpenIndex(rh.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, `UPDATE runs SET status=?, steps=?, finished_at=? WHERE id=?`,
		status, steps, time.Now().UTC().Format(time.RFC3339Nano), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: no run %d", runID)
	}
	return nil
}

// ListRuns returns all recorded runs, newest first.
func ListRuns(ctx context.Context, rh *RunHandle) ([]RunRecord, error) {
	if rh == nil {
		return nil, errors.New("nil RunHandle")
	}
	db, err := InitOrOpenIndex(rh.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, `SELECT id, label, sim_type, status, steps, started_at, COALESCE(finished_at, '') FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Label, &r.SimType, &r.Status, &r.Steps, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordSeries stores the series parameters of one step.
func RecordSeries(ctx context.Context, rh *RunHandle, runID int64, step int, series map[int]model.Series) error {
	if rh == nil {
		return errors.New("nil RunHandle")
	}
	db, err := InitOrOpenIndex(rh.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return insertSeries(ctx, db, runID, step, series)
}

func insertSeries(ctx context.Context, db *sql.DB, runID int64, step int, series map[int]model.Series) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO series(run_id, step, branch_id, a1, a2, a3) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, id := range slices.Sorted(maps.Keys(series)) {
		s := series[id]
		if _, err := ins.ExecContext(ctx, runID, step, id, s.A1(), s.A2(), s.A3()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert series: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SeriesFor returns the recorded series of one branch in step order.
func SeriesFor(ctx context.Context, rh *RunHandle, runID int64, branchID int) ([]model.Series, error) {
	if rh == nil {
		return nil, errors.New("nil RunHandle")
	}
	db, err := InitOrOpenIndex(rh.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, `SELECT a1, a2, a3 FROM series WHERE run_id=? AND branch_id=? ORDER BY step`, runID, branchID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Series
	for rows.Next() {
		var s model.Series
		if err := rows.Scan(&s[0], &s[1], &s[2]); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds
// the index from m if needed. It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, runRoot string, m *model.Model) (bool, error) {
	path := IndexPath(runRoot)
	db, err := InitOrOpenIndex(runRoot)
	if err != nil {
		backupIndexFile(path)
		removeIndexFiles(path)
		if rbErr := RebuildIndex(ctx, runRoot, m); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM runs LIMIT 1;`); err != nil {
			needs = true
		}
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	removeIndexFiles(path)
	if err := RebuildIndex(ctx, runRoot, m); err != nil {
		return false, err
	}
	return true, nil
}

// RebuildIndex drops the run tables and repopulates them from the series
// parameters stored in the model. Step snapshots and previews are not
// recoverable and start empty.
func RebuildIndex(ctx context.Context, runRoot string, m *model.Model) error {
	db, err := InitOrOpenIndex(runRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TABLE IF EXISTS previews;",
		"DROP TABLE IF EXISTS series;",
		"DROP TABLE IF EXISTS step_snapshots;",
		"DROP TABLE IF EXISTS runs;",
		"UPDATE version SET schema=1 WHERE id=1;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	if err := runMigrations(ctx, db); err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	runID, err := insertRun(ctx, db, "rebuilt from run.json", m.Options.SimulationType.String(), RunRebuilt)
	if err != nil {
		return err
	}
	steps := m.Series.Len()
	for step := range steps {
		if err := insertSeries(ctx, db, runID, step, m.Series.Step(step)); err != nil {
			return err
		}
	}
	_, err = db.ExecContext(ctx, `UPDATE runs SET steps=?, finished_at=? WHERE id=?`, steps, time.Now().UTC().Format(time.RFC3339Nano), runID)
	return err
}

// backupIndexFile copies the current index file into a timestamped backup in .rsim/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

func removeIndexFiles(indexPath string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(indexPath + suffix)
	}
}
