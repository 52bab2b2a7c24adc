/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package region

import (
	"errors"
	"fmt"
)

// ErrEmptyRegion is returned by Check when the region holds no boundaries.
var ErrEmptyRegion = errors.New("region: no boundaries")

// ErrNoOuterBoundary is returned when every boundary of a region is inner.
var ErrNoOuterBoundary = errors.New("region: no outer boundary")

// MismatchedSizesError reports a closed boundary whose vertex and line counts differ.
type MismatchedSizesError struct {
	BoundaryID int
	Vertices   int
	Lines      int
}

func (e *MismatchedSizesError) Error() string {
	return fmt.Sprintf("region: boundary %d has %d vertices but %d lines", e.BoundaryID, e.Vertices, e.Lines)
}

// MultipleOuterBoundariesError reports more than one non-inner boundary.
type MultipleOuterBoundariesError struct {
	Count int
}

func (e *MultipleOuterBoundariesError) Error() string {
	return fmt.Sprintf("region: only one outer boundary allowed, got %d", e.Count)
}

// DuplicateSourceIdError reports two sources attached to the same boundary vertex.
type DuplicateSourceIdError struct {
	SourceID   int
	OtherID    int
	BoundaryID int
	VertexPos  int
}

func (e *DuplicateSourceIdError) Error() string {
	return fmt.Sprintf("region: sources %d and %d both attach to vertex %d of boundary %d",
		e.OtherID, e.SourceID, e.VertexPos, e.BoundaryID)
}

// UnknownSourceBoundaryError reports a source whose boundary or vertex does not exist.
type UnknownSourceBoundaryError struct {
	SourceID   int
	BoundaryID int
	VertexPos  int
}

func (e *UnknownSourceBoundaryError) Error() string {
	return fmt.Sprintf("region: source %d refers to missing vertex %d of boundary %d", e.SourceID, e.VertexPos, e.BoundaryID)
}

// PositionOutOfRangeError reports a vertex position past the end of a vertex list.
type PositionOutOfRangeError struct {
	Op   string
	Pos  int
	Size int
}

func (e *PositionOutOfRangeError) Error() string {
	return fmt.Sprintf("region: %s: position %d out of range for %d vertices", e.Op, e.Pos, e.Size)
}

// InvalidSmoothingError reports a negative smoothing parameter.
type InvalidSmoothingError struct {
	Param string
	Value float64
}

func (e *InvalidSmoothingError) Error() string {
	return fmt.Sprintf("region: smoothing parameter %s must be >= 0, got %g", e.Param, e.Value)
}
