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
	"fmt"
	"log/slog"
	"time"

	applog "riversim/internal/log"
	"riversim/internal/simulation"
)

// Recorder persists driver progress into a run directory. Its OnStep method
// is meant to be installed as simulation.Driver.OnStep.
type Recorder struct {
	Run   *RunHandle
	RunID int64

	// SaveEachStep rewrites run.json after every step.
	SaveEachStep bool
	// KeepSnapshots bounds the stored step snapshots per run; 0 keeps all.
	KeepSnapshots int
	// Preview, if set, renders a PNG of the current state that is cached
	// with the step.
	Preview     func(ctx context.Context) ([]byte, error)
	PreviewSize int

	steps int
}

// NewRecorder registers a new run in the index.
func NewRecorder(ctx context.Context, rh *RunHandle, label string) (*Recorder, error) {
	id, err := BeginRun(ctx, rh, label)
	if err != nil {
		return nil, err
	}
	return &Recorder{Run: rh, RunID: id, SaveEachStep: rh.Model.Options.SaveEachStep}, nil
}

// Steps reports how many steps were recorded.
func (r *Recorder) Steps() int { return r.steps }

// OnStep stores the tree snapshot and series of a finished step.
func (r *Recorder) OnStep(ctx context.Context, info simulation.StepInfo) error {
	l := applog.WithStep(applog.WithComponent("storage"), info.Phase, info.Step)
	if err := SaveStepSnapshot(ctx, r.Run, r.RunID, info.Phase, info.Step, r.Run.Model.Tree, time.Now()); err != nil {
		return fmt.Errorf("step snapshot: %w", err)
	}
	if len(info.Series) > 0 {
		if err := RecordSeries(ctx, r.Run, r.RunID, info.Step, info.Series); err != nil {
			return fmt.Errorf("step series: %w", err)
		}
	}
	if r.KeepSnapshots > 0 {
		if n, err := PruneOldStepSnapshots(ctx, r.Run, r.RunID, r.KeepSnapshots); err != nil {
			l.Warn("prune snapshots failed", slog.Any("err", err))
		} else if n > 0 {
			l.Debug("pruned snapshots", slog.Int64("deleted", n))
		}
	}
	if r.Preview != nil {
		key := PreviewKey{RunID: r.RunID, Step: info.Step, Kind: PreviewKindPNG, W: r.PreviewSize, H: r.PreviewSize}
		if _, err := GetOrCreatePreview(ctx, r.Run.Root, key, r.Preview); err != nil {
			l.Warn("preview failed", slog.Any("err", err))
		}
	}
	if r.SaveEachStep {
		if err := Save(r.Run); err != nil {
			return err
		}
	}
	r.steps++
	return nil
}

// Finish closes the run record with a status derived from the run error.
func (r *Recorder) Finish(ctx context.Context, runErr error, stopped bool) error {
	status := RunFinished
	switch {
	case runErr != nil:
		status = RunFailed
	case stopped:
		status = RunStopped
	}
	return FinishRun(ctx, r.Run, r.RunID, r.steps, status)
}
