/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package region

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// EncodePairs encodes an int-keyed map as [[key, value], ...] in key order,
// the layout used for every id-keyed collection in run documents.
func EncodePairs[V any](m map[int]V) ([]byte, error) {
	pairs := make([][2]any, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		pairs = append(pairs, [2]any{k, m[k]})
	}
	return json.Marshal(pairs)
}

// DecodePairs is the inverse of EncodePairs. Duplicate keys are rejected.
func DecodePairs[V any](data []byte) (map[int]V, error) {
	out := make(map[int]V)
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return out, nil
	}
	var raw [][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for i, p := range raw {
		if len(p) != 2 {
			return nil, fmt.Errorf("pair %d: want 2 elements, got %d", i, len(p))
		}
		var k int
		if err := json.Unmarshal(p[0], &k); err != nil {
			return nil, fmt.Errorf("pair %d key: %w", i, err)
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("pair %d: duplicate key %d", i, k)
		}
		var v V
		if err := json.Unmarshal(p[1], &v); err != nil {
			return nil, fmt.Errorf("pair %d value: %w", i, err)
		}
		out[k] = v
	}
	return out, nil
}

func (r *Region) MarshalJSON() ([]byte, error) {
	return EncodePairs(r.boundaries)
}

func (r *Region) UnmarshalJSON(data []byte) error {
	m, err := DecodePairs[Boundary](data)
	if err != nil {
		return fmt.Errorf("region: %w", err)
	}
	r.boundaries = m
	return nil
}

func (sc SourceCoord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{sc.BoundaryID, sc.VertexPos})
}

func (sc *SourceCoord) UnmarshalJSON(data []byte) error {
	var v [2]int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	sc.BoundaryID, sc.VertexPos = v[0], v[1]
	return nil
}

func (s Sources) MarshalJSON() ([]byte, error) {
	return EncodePairs(map[int]SourceCoord(s))
}

func (s *Sources) UnmarshalJSON(data []byte) error {
	m, err := DecodePairs[SourceCoord](data)
	if err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	*s = m
	return nil
}

func (bc BoundaryConditions) MarshalJSON() ([]byte, error) {
	return EncodePairs(map[int]BoundaryCondition(bc))
}

func (bc *BoundaryConditions) UnmarshalJSON(data []byte) error {
	m, err := DecodePairs[BoundaryCondition](data)
	if err != nil {
		return fmt.Errorf("boundary conditions: %w", err)
	}
	*bc = m
	return nil
}
