/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package model

import (
	"maps"
	"slices"

	"riversim/internal/geom"
	"riversim/internal/region"
	"riversim/internal/river"
)

// Series holds the series parameters a1, a2, a3 evaluated at one tip.
type Series [3]float64

func (s Series) A1() float64 { return s[0] }
func (s Series) A2() float64 { return s[1] }
func (s Series) A3() float64 { return s[2] }

// MaxA1 returns the largest a1 over all tips, or 0 when there are none.
func MaxA1(series map[int]Series) float64 {
	var m float64
	for _, s := range series {
		m = max(m, s.A1())
	}
	return m
}

// SeriesParameters is the per-branch history of recorded series
// parameters: one slice per coefficient, one entry per step.
type SeriesParameters map[int][3][]float64

// Record appends one step of series parameters.
func (sp SeriesParameters) Record(series map[int]Series) {
	for id, s := range series {
		h := sp[id]
		for i := range s {
			h[i] = append(h[i], s[i])
		}
		sp[id] = h
	}
}

// popLast drops the newest entry of every listed branch.
func (sp SeriesParameters) popLast(ids map[int]geom.Point) {
	for id, h := range sp {
		if _, ok := ids[id]; !ok {
			continue
		}
		for i := range h {
			if n := len(h[i]); n > 0 {
				h[i] = h[i][:n-1]
			}
		}
		sp[id] = h
	}
}

// Steps returns the number of recorded steps of branch id.
func (sp SeriesParameters) Steps(id int) int { return len(sp[id][0]) }

// Len returns the number of steps of the longest history.
func (sp SeriesParameters) Len() int {
	n := 0
	for id := range sp {
		n = max(n, sp.Steps(id))
	}
	return n
}

// Step returns the series of step i in [0, Len()). Branches created during
// the run have shorter histories that end at the last step.
func (sp SeriesParameters) Step(i int) map[int]Series {
	n := sp.Len()
	out := make(map[int]Series)
	for id, h := range sp {
		if j := i - (n - len(h[0])); j >= 0 && j < len(h[0]) {
			out[id] = Series{h[0][j], h[1][j], h[2][j]}
		}
	}
	return out
}

func (sp SeriesParameters) MarshalJSON() ([]byte, error) {
	return region.EncodePairs(sp)
}

func (sp *SeriesParameters) UnmarshalJSON(data []byte) error {
	m, err := region.DecodePairs[[3][]float64](data)
	if err != nil {
		return err
	}
	*sp = m
	return nil
}

// BackwardData collects, per tip, what a backward run measured: the
// series parameters at the start and the tip positions before the
// backward steps, after them, and after growing forward again.
type BackwardData struct {
	A1               []float64    `json:"a1"`
	A2               []float64    `json:"a2"`
	A3               []float64    `json:"a3"`
	Init             []geom.Point `json:"init"`
	Backward         []geom.Point `json:"backward"`
	BackwardForward  []geom.Point `json:"backward_forward"`
	BranchLengthDiff float64      `json:"branch_length_diff"`
}

// BackwardRecords maps branch ids to their backward data.
type BackwardRecords map[int]*BackwardData

func (br BackwardRecords) get(id int) *BackwardData {
	d, ok := br[id]
	if !ok {
		d = &BackwardData{}
		br[id] = d
	}
	return d
}

// IDs returns the branch ids in ascending order.
func (br BackwardRecords) IDs() []int { return slices.Sorted(maps.Keys(br)) }

func (br BackwardRecords) MarshalJSON() ([]byte, error) {
	return region.EncodePairs(br)
}

func (br *BackwardRecords) UnmarshalJSON(data []byte) error {
	m, err := region.DecodePairs[*BackwardData](data)
	if err != nil {
		return err
	}
	*br = m
	return nil
}

// SetBranchLengthDiff stores the length difference of the two children of
// id at the moment one of them shrank away.
func (br BackwardRecords) SetBranchLengthDiff(id int, diff float64) {
	br.get(id).BranchLengthDiff = diff
}

// CollectBackwardData appends the series parameters of a backward run and,
// for every tip alive in init, backwardForward and the current tree, its
// three tip positions.
func (m *Model) CollectBackwardData(init, backwardForward *river.Tree, series map[int]Series) {
	for _, id := range slices.Sorted(maps.Keys(series)) {
		d, s := m.Backward.get(id), series[id]
		d.A1 = append(d.A1, s.A1())
		d.A2 = append(d.A2, s.A2())
		d.A3 = append(d.A3, s.A3())
	}
	final := backwardForward.TipIdsAndPoints()
	cur := m.Tree.TipIdsAndPoints()
	tips := init.TipIdsAndPoints()
	for _, id := range slices.Sorted(maps.Keys(tips)) {
		f, okF := final[id]
		c, okC := cur[id]
		if !okF || !okC {
			continue
		}
		d := m.Backward.get(id)
		d.Init = append(d.Init, tips[id])
		d.Backward = append(d.Backward, c)
		d.BackwardForward = append(d.BackwardForward, f)
	}
}
