/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package river

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"riversim/internal/geom"
	"riversim/internal/region"
)

type branchJSON struct {
	Vertices    []geom.Point  `json:"vertices"`
	Lines       []region.Line `json:"lines"`
	SourceAngle float64       `json:"source_angle"`
}

func (b *Branch) MarshalJSON() ([]byte, error) {
	lines := b.lines
	if lines == nil {
		lines = []region.Line{}
	}
	return json.Marshal(branchJSON{Vertices: b.vertices, Lines: lines, SourceAngle: b.sourceAngle})
}

func (b *Branch) UnmarshalJSON(data []byte) error {
	var v branchJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v.Vertices) == 0 {
		return fmt.Errorf("river: branch without source point")
	}
	if len(v.Lines) != len(v.Vertices)-1 {
		return fmt.Errorf("river: branch has %d vertices but %d lines", len(v.Vertices), len(v.Lines))
	}
	for i, l := range v.Lines {
		if l.P1 != i || l.P2 != i+1 {
			return fmt.Errorf("river: branch line %d joins %d-%d", i, l.P1, l.P2)
		}
	}
	b.vertices, b.lines, b.sourceAngle = v.Vertices, v.Lines, v.SourceAngle
	if len(b.lines) == 0 {
		b.lines = nil
	}
	return nil
}

func (r Relation) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Left, r.Right})
}

func (r *Relation) UnmarshalJSON(data []byte) error {
	var v [2]int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	r.Left, r.Right = v[0], v[1]
	return nil
}

type idBranch struct {
	ID     int     `json:"id"`
	Branch *Branch `json:"branch"`
}

type treeJSON struct {
	Branches  []idBranch      `json:"branches"`
	Relations json.RawMessage `json:"relations"`
}

// MarshalJSON encodes the tree as
// {"branches": [{"id", "branch"}], "relations": [[parent, [left, right]]]}.
func (t *Tree) MarshalJSON() ([]byte, error) {
	v := treeJSON{Branches: []idBranch{}}
	for _, id := range t.IDs() {
		v.Branches = append(v.Branches, idBranch{ID: id, Branch: t.branches[id]})
	}
	rel, err := region.EncodePairs(t.relations)
	if err != nil {
		return nil, err
	}
	v.Relations = rel
	return json.Marshal(v)
}

// UnmarshalJSON decodes the layout written by MarshalJSON and validates ids
// and relations.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var v treeJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	out := NewTree()
	for _, ib := range v.Branches {
		if ib.Branch == nil {
			return fmt.Errorf("river: branch %d is null", ib.ID)
		}
		if err := out.AddBranchID(ib.Branch, ib.ID); err != nil {
			return err
		}
	}
	if len(v.Relations) > 0 {
		rel, err := region.DecodePairs[Relation](v.Relations)
		if err != nil {
			return fmt.Errorf("river: relations: %w", err)
		}
		for parent, r := range rel {
			for _, id := range []int{parent, r.Left, r.Right} {
				if _, ok := out.branches[id]; !ok {
					return fmt.Errorf("river: relation %d: %w", parent, &UnknownBranchError{ID: id})
				}
			}
		}
		if err := checkRelations(rel); err != nil {
			return err
		}
		out.relations = rel
	}
	*t = *out
	return nil
}

// checkRelations requires every child to have exactly one parent, no branch
// to be its own ancestor; every chain of parents then ends at a source.
func checkRelations(rel map[int]Relation) error {
	parentOf := make(map[int]int, 2*len(rel))
	for _, parent := range slices.Sorted(maps.Keys(rel)) {
		r := rel[parent]
		if r.Left == r.Right {
			return &InvalidRelationError{Parent: parent, Child: r.Left, Reason: "left and right are the same branch"}
		}
		for _, child := range []int{r.Left, r.Right} {
			if child == parent {
				return &InvalidRelationError{Parent: parent, Child: child, Reason: "branch is its own child"}
			}
			if other, ok := parentOf[child]; ok {
				return &InvalidRelationError{Parent: parent, Child: child, Reason: fmt.Sprintf("child already belongs to %d", other)}
			}
			parentOf[child] = parent
		}
	}
	for _, child := range slices.Sorted(maps.Keys(parentOf)) {
		id := child
		for range len(parentOf) + 1 {
			p, ok := parentOf[id]
			if !ok {
				break
			}
			if p == child {
				return &InvalidRelationError{Parent: parentOf[child], Child: child, Reason: "branch is its own ancestor"}
			}
			id = p
		}
	}
	return nil
}
