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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"riversim/internal/river"
)

// language=SQL
// dialect=SQLite
const insertStepSnapshotSQL = `INSERT INTO step_snapshots(run_id, phase, step, ts, tree_blob) VALUES (?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestStepSnapshotSQL = `SELECT phase, step, ts, tree_blob FROM step_snapshots WHERE run_id = ? ORDER BY id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listStepSnapshotsSQL = `SELECT phase, step, ts, tree_blob FROM step_snapshots WHERE run_id = ? ORDER BY id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldStepSnapshotsSQL = `DELETE FROM step_snapshots WHERE run_id = ? AND id NOT IN (
	SELECT id FROM step_snapshots WHERE run_id = ? ORDER BY id DESC LIMIT ?
)`

// StepSnapshot is the tree state stored after one driver step.
type StepSnapshot struct {
	Phase string
	Step  int
	TS    time.Time
	Blob  []byte
}

// Tree decodes the snapshot.
func (s StepSnapshot) Tree() (*river.Tree, error) {
	t := river.NewTree()
	if err := json.Unmarshal(s.Blob, t); err != nil {
		return nil, fmt.Errorf("decode step %d snapshot: %w", s.Step, err)
	}
	return t, nil
}

// SaveStepSnapshot persists the tree of one step.
func SaveStepSnapshot(ctx context.Context, rh *RunHandle, runID int64, phase string, step int, tree *river.Tree, ts time.Time) error {
	if rh == nil {
		return errors.New("nil RunHandle")
	}
	blob, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	db, err := InitOrOpenIndex(rh.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertStepSnapshotSQL, runID, phase, step, ts.UTC().Format(time.RFC3339Nano), blob)
	return err
}

// GetLatestStepSnapshot returns the newest snapshot of a run; ok is false
// when the run has none.
func GetLatestStepSnapshot(ctx context.Context, rh *RunHandle, runID int64) (snap StepSnapshot, ok bool, err error) {
	if rh == nil {
		return snap, false, errors.New("nil RunHandle")
	}
	db, err := InitOrOpenIndex(rh.Root)
	if err != nil {
		return snap, false, err
	}
	defer func() { _ = db.Close() }()
	var tsStr string
	err = db.QueryRowContext(ctx, selectLatestStepSnapshotSQL, runID).Scan(&snap.Phase, &snap.Step, &tsStr, &snap.Blob)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, err
	}
	snap.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
	return snap, true, nil
}

// ListStepSnapshots returns up to limit most recent snapshots of a run.
func ListStepSnapshots(ctx context.Context, rh *RunHandle, runID int64, limit int) ([]StepSnapshot, error) {
	if rh == nil {
		return nil, errors.New("nil RunHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(rh.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listStepSnapshotsSQL, runID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []StepSnapshot
	for rows.Next() {
		var s StepSnapshot
		var tsStr string
		if err := rows.Scan(&s.Phase, &s.Step, &tsStr, &s.Blob); err != nil {
			return nil, err
		}
		s.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneOldStepSnapshots keeps at most keepLast snapshots of the run and deletes older ones.
func PruneOldStepSnapshots(ctx context.Context, rh *RunHandle, runID int64, keepLast int) (int64, error) {
	if rh == nil {
		return 0, errors.New("nil RunHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(rh.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOldStepSnapshotsSQL, runID, runID, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
