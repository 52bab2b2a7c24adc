/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps a bounded history of encoded river tree states so a
// simulation can step back to an earlier tree.
package undo

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"riversim/internal/river"
)

// Tracks separate histories of one run.
const (
	TrackForward  = 0
	TrackBackward = 1
)

// Snapshot is an encoded tree captured at the start of a step.
// Blob content is opaque to the manager; size is estimated as len(Blob).
type Snapshot struct {
	Track int
	Step  int
	Blob  []byte
	TS    time.Time
}

// Capture encodes t as a snapshot of step on track.
func Capture(track, step int, t *river.Tree) (Snapshot, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return Snapshot{}, fmt.Errorf("undo: encode tree: %w", err)
	}
	return Snapshot{Track: track, Step: step, Blob: b, TS: time.Now()}, nil
}

// Tree decodes the snapshot.
func (s Snapshot) Tree() (*river.Tree, error) {
	t := river.NewTree()
	if err := json.Unmarshal(s.Blob, t); err != nil {
		return nil, fmt.Errorf("undo: decode tree of step %d: %w", s.Step, err)
	}
	return t, nil
}

// Config controls memory and depth caps.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerTrack limits number of snapshots per track kept in memory (0 means unlimited).
	MaxPerTrack int
}

// Manager provides an in-memory undo/redo stack per track.
// It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-track stacks
	undo map[int][]Snapshot
	redo map[int][]Snapshot
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 * 1024 * 1024 // 64 MiB
	}
	return &Manager{cfg: cfg, undo: make(map[int][]Snapshot), redo: make(map[int][]Snapshot)}
}

// PushSnapshot records a snapshot. A snapshot of the same step as the last
// one on its track replaces it. Clears the redo stack of that track.
func (m *Manager) PushSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.Track]
	if n := len(stack); n > 0 && stack[n-1].Step == s.Step {
		m.totalBytes += len(s.Blob) - len(stack[n-1].Blob)
		stack[n-1] = s
	} else {
		stack = append(stack, s)
		m.totalBytes += len(s.Blob)
	}
	m.undo[s.Track] = stack
	m.redo[s.Track] = nil
	m.enforceCapsLocked(s.Track)
}

// Peek returns the newest snapshot of track without removing it.
func (m *Manager) Peek(track int) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[track]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	return stack[len(stack)-1], true
}

// Undo pops from the track undo stack and pushes to redo stack, returning the snapshot.
func (m *Manager) Undo(track int) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[track]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[track] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[track] = append(m.redo[track], s)
	return s, true
}

// Redo pops from redo and pushes back to undo.
func (m *Manager) Redo(track int) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[track]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[track] = r[:len(r)-1]
	m.undo[track] = append(m.undo[track], s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(track)
	return s, true
}

// ClearTrack drops both stacks of a track.
func (m *Manager) ClearTrack(track int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[track] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, track)
	delete(m.redo, track)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, tracks int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tracks = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, tracks, totalSnapshots
}

func (m *Manager) enforceCapsLocked(track int) {
	if m.cfg.MaxPerTrack > 0 {
		stack := m.undo[track]
		if len(stack) > m.cfg.MaxPerTrack {
			toDrop := len(stack) - m.cfg.MaxPerTrack
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[track] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all tracks
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestTrack := 0
		found := false
		var oldestTS time.Time
		for tr, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestTrack, oldestTS, found = tr, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestTrack]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestTrack] = stack[1:]
		if len(m.undo[oldestTrack]) == 0 {
			delete(m.undo, oldestTrack)
		}
	}
}
