/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package model

import (
	"errors"
	"fmt"
)

// ErrUnknownPreset is returned by Initialize for a preset name it does not know.
var ErrUnknownPreset = errors.New("model: unknown preset")

// InvalidParameterError reports a parameter outside its admissible range.
type InvalidParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("model: invalid %s = %g: %s", e.Name, e.Value, e.Reason)
}

// UnknownTypeError reports an unsupported bifurcation or growth type.
type UnknownTypeError struct {
	Param string
	Value int
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("model: unknown %s %d", e.Param, e.Value)
}

// DegenerateSeriesError is returned when series parameters cannot produce
// a finite growth step.
type DegenerateSeriesError struct {
	A1, A2 float64
}

func (e *DegenerateSeriesError) Error() string {
	return fmt.Sprintf("model: no finite growth step for a1 = %g, a2 = %g", e.A1, e.A2)
}
