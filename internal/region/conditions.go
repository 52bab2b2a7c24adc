/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package region

import (
	"fmt"
	"maps"
	"slices"
)

// ConditionType selects the kind of boundary condition.
type ConditionType int

const (
	Dirichlet ConditionType = iota
	Neumann
)

func (t ConditionType) String() string {
	switch t {
	case Dirichlet:
		return "Dirichlet"
	case Neumann:
		return "Neumann"
	}
	return fmt.Sprintf("ConditionType(%d)", int(t))
}

func (t ConditionType) MarshalText() ([]byte, error) {
	if t != Dirichlet && t != Neumann {
		return nil, fmt.Errorf("region: unknown boundary condition type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText also accepts the legacy spelling "Neuman".
func (t *ConditionType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Dirichlet":
		*t = Dirichlet
	case "Neumann", "Neuman":
		*t = Neumann
	default:
		return fmt.Errorf("region: unknown boundary condition type %q", string(b))
	}
	return nil
}

// BoundaryCondition is the condition applied on lines with a given boundary id.
type BoundaryCondition struct {
	Type  ConditionType `json:"type"`
	Value float64       `json:"value"`
}

// BoundaryConditions maps line boundary ids to conditions.
type BoundaryConditions map[int]BoundaryCondition

// Get returns the subset of conditions of type t.
func (bc BoundaryConditions) Get(t ConditionType) (BoundaryConditions, error) {
	if t != Dirichlet && t != Neumann {
		return nil, fmt.Errorf("region: unknown boundary condition type %d", int(t))
	}
	out := BoundaryConditions{}
	for id, c := range bc {
		if c.Type == t {
			out[id] = c
		}
	}
	return out, nil
}

// IDs returns the boundary ids in ascending order.
func (bc BoundaryConditions) IDs() []int {
	return slices.Sorted(maps.Keys(bc))
}
