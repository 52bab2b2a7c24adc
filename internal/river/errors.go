/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package river

import (
	"errors"
	"fmt"
)

// ErrCannotRemoveLastPoint is returned when removing the source point of a branch.
var ErrCannotRemoveLastPoint = errors.New("river: cannot remove the source point of a branch")

// DegenerateBranchError reports a direction query on a branch without the
// segment it needs.
type DegenerateBranchError struct {
	Op    string
	Index int
	Lines int
}

func (e *DegenerateBranchError) Error() string {
	if e.Op == "vector" {
		return fmt.Sprintf("river: vector %d requested from branch with %d segments", e.Index, e.Lines)
	}
	return fmt.Sprintf("river: %s: branch has no segments", e.Op)
}

// DuplicateIdError reports an AddBranch with an id already in use.
type DuplicateIdError struct{ ID int }

func (e *DuplicateIdError) Error() string {
	return fmt.Sprintf("river: branch %d already exists", e.ID)
}

// InvalidIdError reports a branch id below 1.
type InvalidIdError struct{ ID int }

func (e *InvalidIdError) Error() string {
	return fmt.Sprintf("river: invalid branch id %d, ids start at 1", e.ID)
}

// UnknownBranchError reports an id that names no branch of the tree.
type UnknownBranchError struct{ ID int }

func (e *UnknownBranchError) Error() string {
	return fmt.Sprintf("river: branch %d does not exist", e.ID)
}

// AlreadyBifurcatedError reports AddSubBranches on a branch that has children.
type AlreadyBifurcatedError struct{ ID int }

func (e *AlreadyBifurcatedError) Error() string {
	return fmt.Sprintf("river: branch %d already has sub-branches", e.ID)
}

// NotBifurcatedError reports a children query on a tip branch.
type NotBifurcatedError struct{ ID int }

func (e *NotBifurcatedError) Error() string {
	return fmt.Sprintf("river: branch %d has no sub-branches", e.ID)
}

// NoParentError reports a parent query on a source branch.
type NoParentError struct{ ID int }

func (e *NoParentError) Error() string {
	return fmt.Sprintf("river: branch %d has no parent, it is a source branch", e.ID)
}

// NoAdjacentError reports a branch whose sibling cannot be resolved.
type NoAdjacentError struct{ ID int }

func (e *NoAdjacentError) Error() string {
	return fmt.Sprintf("river: branch %d has no adjacent branch", e.ID)
}

// ShortTipError reports a tip branch with too few points for a curvature operation.
type ShortTipError struct {
	ID     int
	Points int
}

func (e *ShortTipError) Error() string {
	return fmt.Sprintf("river: tip branch %d has %d points, at least 3 needed", e.ID, e.Points)
}

// LengthMismatchError reports bulk growth inputs of different lengths.
type LengthMismatchError struct {
	IDs, Values, BoundaryIDs int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("river: %d ids, %d values and %d boundary ids", e.IDs, e.Values, e.BoundaryIDs)
}

// InvalidRelationError reports bifurcation relations that do not form a
// forest rooted at source branches.
type InvalidRelationError struct {
	Parent, Child int
	Reason        string
}

func (e *InvalidRelationError) Error() string {
	return fmt.Sprintf("river: relation %d -> %d: %s", e.Parent, e.Child, e.Reason)
}
