/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package results

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"time"

	applog "riversim/internal/log"
	"riversim/internal/model"
	"riversim/internal/version"
)

// Run is a published run summary.
type Run struct {
	ID          int64
	StableID    string
	Name        string
	SimType     string
	AppVersion  string
	Steps       int
	Branches    int
	Tips        int
	PublishedAt time.Time
}

// StableID derives a run identifier from the absolute run directory so that
// publishing the same directory twice replaces the earlier rows.
func StableID(runRoot string) (string, error) {
	abs, err := filepath.Abs(runRoot)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Base(abs) + "-" + hex.EncodeToString(sum[:6]), nil
}

// Publish writes the summary, series parameters and backward data of m in
// one transaction and returns the database id of the run.
func Publish(ctx context.Context, db *sql.DB, stableID, name string, m *model.Model) (int64, error) {
	if db == nil {
		return 0, errors.New("results: nil db")
	}
	if stableID == "" {
		return 0, errors.New("results: stable id is required")
	}
	params, err := json.Marshal(struct {
		Options model.ProgramOptions `json:"program_options"`
		Params  model.Params         `json:"parameters"`
	}{m.Options, m.Params})
	if err != nil {
		return 0, fmt.Errorf("encode parameters: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	// dialect=PostgreSQL
	err = tx.QueryRowContext(ctx, `INSERT INTO runs(stable_id, name, sim_type, app_version, steps, branches, tips, parameters, published_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (stable_id) DO UPDATE SET name=EXCLUDED.name, sim_type=EXCLUDED.sim_type, app_version=EXCLUDED.app_version,
			steps=EXCLUDED.steps, branches=EXCLUDED.branches, tips=EXCLUDED.tips, parameters=EXCLUDED.parameters, published_at=now()
		RETURNING id`,
		stableID, name, m.Options.SimulationType.String(), version.String(), m.Series.Len(), m.Tree.Len(),
		len(m.Tree.TipBranchesIds()), string(params)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert run: %w", err)
	}
	for _, q := range []string{`DELETE FROM series WHERE run_id=$1`, `DELETE FROM backward_data WHERE run_id=$1`} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return 0, fmt.Errorf("clear run rows: %w", err)
		}
	}

	for step := range m.Series.Len() {
		series := m.Series.Step(step)
		for _, bid := range slices.Sorted(maps.Keys(series)) {
			s := series[bid]
			if _, err := tx.ExecContext(ctx, `INSERT INTO series(run_id, branch_id, step, a1, a2, a3) VALUES($1,$2,$3,$4,$5,$6)`,
				id, bid, step, s.A1(), s.A2(), s.A3()); err != nil {
				return 0, fmt.Errorf("insert series: %w", err)
			}
		}
	}

	for _, bid := range m.Backward.IDs() {
		bd := m.Backward[bid]
		n := min(len(bd.A1), len(bd.Init), len(bd.Backward), len(bd.BackwardForward))
		for i := range n {
			if _, err := tx.ExecContext(ctx, `INSERT INTO backward_data(run_id, branch_id, step, a1, init_x, init_y, backward_x, backward_y, forward_x, forward_y, branch_length_diff)
				VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
				id, bid, i, bd.A1[i], bd.Init[i].X, bd.Init[i].Y, bd.Backward[i].X, bd.Backward[i].Y,
				bd.BackwardForward[i].X, bd.BackwardForward[i].Y, bd.BranchLengthDiff); err != nil {
				return 0, fmt.Errorf("insert backward data: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	applog.WithComponent("results").Info("run published", slog.String("stable_id", stableID), slog.Int64("id", id))
	return id, nil
}

// ListRuns returns up to limit published runs, newest first.
func ListRuns(ctx context.Context, db *sql.DB, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `SELECT id, stable_id, name, sim_type, app_version, steps, branches, tips, published_at
		FROM runs ORDER BY published_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StableID, &r.Name, &r.SimType, &r.AppVersion, &r.Steps, &r.Branches, &r.Tips, &r.PublishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SeriesOf returns the published series of one branch in step order.
func SeriesOf(ctx context.Context, db *sql.DB, runID int64, branchID int) ([]model.Series, error) {
	rows, err := db.QueryContext(ctx, `SELECT a1, a2, a3 FROM series WHERE run_id=$1 AND branch_id=$2 ORDER BY step`, runID, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
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

// Delete removes a published run and its rows.
func Delete(ctx context.Context, db *sql.DB, stableID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM runs WHERE stable_id=$1`, stableID)
	return err
}
