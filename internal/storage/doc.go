/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements run persistence and indexing.
// It handles create/open/save for the run document (run.json) with transactional writes and timestamped backups,
// validating documents against an embedded JSON Schema before decoding.
// It also manages the per-run embedded SQLite index at <run>/.rsim/index.sqlite holding run records,
// per-step tree snapshots, series parameters and rendered previews.
// The index is derived data and can be rebuilt from run.json.
package storage
