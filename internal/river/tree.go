/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package river

import (
	"maps"
	"math"
	"slices"

	"riversim/internal/geom"
	"riversim/internal/region"
)

// Relation names the two children created when a branch bifurcates.
type Relation struct {
	Left, Right int
}

// Tree is a forest of branches keyed by id (ids start at 1) plus the
// bifurcation relations parent -> (left, right). A branch is a tip when it
// has no relation entry and a source when it is nobody's child.
type Tree struct {
	branches  map[int]*Branch
	relations map[int]Relation
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{branches: make(map[int]*Branch), relations: make(map[int]Relation)}
}

func (t *Tree) init() {
	if t.branches == nil {
		t.branches = make(map[int]*Branch)
	}
	if t.relations == nil {
		t.relations = make(map[int]Relation)
	}
}

// Len returns the number of branches.
func (t *Tree) Len() int { return len(t.branches) }

// IDs returns every branch id in ascending order.
func (t *Tree) IDs() []int { return slices.Sorted(maps.Keys(t.branches)) }

// Branch returns the branch stored under id. The result is owned by the tree.
func (t *Tree) Branch(id int) (*Branch, error) {
	b, ok := t.branches[id]
	if !ok {
		return nil, &UnknownBranchError{ID: id}
	}
	return b, nil
}

// Relations returns a copy of the bifurcation relations.
func (t *Tree) Relations() map[int]Relation { return maps.Clone(t.relations) }

// Clear removes all branches and relations.
func (t *Tree) Clear() {
	t.branches = make(map[int]*Branch)
	t.relations = make(map[int]Relation)
}

// Initialize replaces the tree with one unbranched branch per source.
func (t *Tree) Initialize(sources map[int]region.SourcePoint) error {
	t.Clear()
	for _, id := range slices.Sorted(maps.Keys(sources)) {
		s := sources[id]
		if err := t.AddBranchID(NewBranch(s.Point, s.Angle), id); err != nil {
			return err
		}
	}
	return nil
}

// GenerateNewID returns the smallest positive id not in use.
func (t *Tree) GenerateNewID() int {
	next := 1
	for _, id := range t.IDs() {
		if id != next {
			return next
		}
		next++
	}
	return next
}

// AddBranch stores b under a freshly generated id and returns it.
func (t *Tree) AddBranch(b *Branch) int {
	id := t.GenerateNewID()
	t.init()
	t.branches[id] = b
	return id
}

// AddBranchID stores b under id.
func (t *Tree) AddBranchID(b *Branch, id int) error {
	if _, ok := t.branches[id]; ok {
		return &DuplicateIdError{ID: id}
	}
	if id < 1 {
		return &InvalidIdError{ID: id}
	}
	t.init()
	t.branches[id] = b
	return nil
}

// AddSubBranches bifurcates parent into left and right.
func (t *Tree) AddSubBranches(parent int, left, right *Branch) (Relation, error) {
	has, err := t.HasSubBranches(parent)
	if err != nil {
		return Relation{}, err
	}
	if has {
		return Relation{}, &AlreadyBifurcatedError{ID: parent}
	}
	rel := Relation{Left: t.AddBranch(left)}
	rel.Right = t.AddBranch(right)
	t.relations[parent] = rel
	return rel, nil
}

func (t *Tree) deleteBranch(id int) {
	delete(t.branches, id)
	delete(t.relations, id)
}

// DeleteSubBranches removes both children of parent and all their
// descendants, then the relation entry of parent.
func (t *Tree) DeleteSubBranches(parent int) error {
	rel, err := t.SubBranchesIds(parent)
	if err != nil {
		return err
	}
	for _, child := range []int{rel.Left, rel.Right} {
		if _, ok := t.relations[child]; ok {
			if err := t.DeleteSubBranches(child); err != nil {
				return err
			}
		}
		t.deleteBranch(child)
	}
	delete(t.relations, parent)
	return nil
}

// HasSubBranches reports whether id has bifurcated.
func (t *Tree) HasSubBranches(id int) (bool, error) {
	if _, ok := t.branches[id]; !ok {
		return false, &UnknownBranchError{ID: id}
	}
	_, ok := t.relations[id]
	return ok, nil
}

// SubBranchesIds returns the children of id.
func (t *Tree) SubBranchesIds(id int) (Relation, error) {
	has, err := t.HasSubBranches(id)
	if err != nil {
		return Relation{}, err
	}
	if !has {
		return Relation{}, &NotBifurcatedError{ID: id}
	}
	return t.relations[id], nil
}

func (t *Tree) parentOf(id int) (int, bool) {
	for parent, rel := range t.relations {
		if rel.Left == id || rel.Right == id {
			return parent, true
		}
	}
	return 0, false
}

// ParentBranchId returns the parent of id.
func (t *Tree) ParentBranchId(id int) (int, error) {
	if _, ok := t.branches[id]; !ok {
		return 0, &UnknownBranchError{ID: id}
	}
	parent, ok := t.parentOf(id)
	if !ok {
		return 0, &NoParentError{ID: id}
	}
	return parent, nil
}

// HasParentBranch reports whether id was created by a bifurcation.
func (t *Tree) HasParentBranch(id int) (bool, error) {
	if _, ok := t.branches[id]; !ok {
		return false, &UnknownBranchError{ID: id}
	}
	_, ok := t.parentOf(id)
	return ok, nil
}

// IsSourceBranch reports whether id has no parent.
func (t *Tree) IsSourceBranch(id int) (bool, error) {
	has, err := t.HasParentBranch(id)
	return !has, err
}

// AdjacentBranchId returns the sibling of id.
func (t *Tree) AdjacentBranchId(id int) (int, error) {
	parent, err := t.ParentBranchId(id)
	if err != nil {
		return 0, err
	}
	rel := t.relations[parent]
	var sibling int
	switch id {
	case rel.Left:
		sibling = rel.Right
	case rel.Right:
		sibling = rel.Left
	}
	if _, ok := t.branches[sibling]; !ok {
		return 0, &NoAdjacentError{ID: id}
	}
	return sibling, nil
}

// SourceBranchesIds returns every branch without a parent, ascending.
func (t *Tree) SourceBranchesIds() []int {
	var ids []int
	for _, id := range t.IDs() {
		if _, ok := t.parentOf(id); !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// TipBranchesIds returns every branch without children, ascending.
func (t *Tree) TipBranchesIds() []int {
	var ids []int
	for _, id := range t.IDs() {
		if _, ok := t.relations[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// TipPoints returns the tip point of every tip branch, in TipBranchesIds order.
func (t *Tree) TipPoints() []geom.Point {
	ids := t.TipBranchesIds()
	pts := make([]geom.Point, len(ids))
	for i, id := range ids {
		pts[i] = t.branches[id].TipPoint()
	}
	return pts
}

// TipIdsAndPoints maps tip branch ids to their tip points.
func (t *Tree) TipIdsAndPoints() map[int]geom.Point {
	m := make(map[int]geom.Point)
	for _, id := range t.TipBranchesIds() {
		m[id] = t.branches[id].TipPoint()
	}
	return m
}

// TipBoundary collects the last segment of every grown tip branch as
// disjoint lines, the input of the growth intersection check.
func (t *Tree) TipBoundary() region.Boundary {
	var b region.Boundary
	for _, id := range t.TipBranchesIds() {
		br := t.branches[id]
		n := br.Len()
		if n < 2 {
			continue
		}
		i := len(b.Vertices)
		b.Vertices = append(b.Vertices, br.vertices[n-2], br.vertices[n-1])
		b.Lines = append(b.Lines, region.Line{P1: i, P2: i + 1, BoundaryID: br.lines[len(br.lines)-1].BoundaryID})
	}
	return b
}

// ZeroLengthTipBranchesIds returns, sorted and without duplicates, the
// parents of tip branches not longer than threshold.
func (t *Tree) ZeroLengthTipBranchesIds(threshold float64) []int {
	var ids []int
	for _, id := range t.TipBranchesIds() {
		parent, ok := t.parentOf(id)
		if ok && t.branches[id].Length() <= threshold {
			ids = append(ids, parent)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func tipCurvature(b *Branch) (mid, avg geom.Point) {
	n := b.Len() - 1
	return b.vertices[n-1], b.vertices[n].Midpoint(b.vertices[n-2])
}

// MaximalTipCurvatureDistance returns the largest distance, over tip
// branches with at least three points, between the second-to-last point
// and the midpoint of its neighbors.
func (t *Tree) MaximalTipCurvatureDistance() float64 {
	var d float64
	for _, id := range t.TipBranchesIds() {
		b := t.branches[id]
		if b.Len() < 3 {
			continue
		}
		mid, avg := tipCurvature(b)
		d = math.Max(d, mid.DistanceTo(avg))
	}
	return d
}

// FlattenTipCurvature moves the second-to-last point of every tip branch
// to the midpoint of its neighbors.
func (t *Tree) FlattenTipCurvature() error {
	ids := t.TipBranchesIds()
	for _, id := range ids {
		if n := t.branches[id].Len(); n < 3 {
			return &ShortTipError{ID: id, Points: n}
		}
	}
	for _, id := range ids {
		b := t.branches[id]
		_, avg := tipCurvature(b)
		b.vertices[b.Len()-2] = avg
	}
	return nil
}

// RemoveTipPoints undoes one growth step: every tip loses its last point,
// and a child reduced to its source point takes its sibling with it.
func (t *Tree) RemoveTipPoints() error {
	var emptied []int
	for _, id := range t.TipBranchesIds() {
		b := t.branches[id]
		if b.Len() >= 2 {
			_ = b.RemoveTipPoint()
		}
		if b.Len() == 1 {
			emptied = append(emptied, id)
		}
	}
	for _, id := range emptied {
		if _, ok := t.branches[id]; !ok {
			continue
		}
		parent, ok := t.parentOf(id)
		if !ok {
			continue
		}
		if err := t.DeleteSubBranches(parent); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) bulk(ids []int, n, nb int, add func(b *Branch, i int) error) error {
	if len(ids) != n || len(ids) != nb {
		return &LengthMismatchError{IDs: len(ids), Values: n, BoundaryIDs: nb}
	}
	for i, id := range ids {
		b, ok := t.branches[id]
		if !ok {
			return &UnknownBranchError{ID: id}
		}
		if err := add(b, i); err != nil {
			return err
		}
	}
	return nil
}

// AddPoints moves each listed branch tip by the matching point.
func (t *Tree) AddPoints(ids []int, points []geom.Point, boundaryIDs []int) error {
	return t.bulk(ids, len(points), len(boundaryIDs), func(b *Branch, i int) error {
		b.AddPoint(points[i], boundaryIDs[i])
		return nil
	})
}

// AddPolars grows each listed branch by a polar step relative to its tip direction.
func (t *Tree) AddPolars(ids []int, polars []geom.Polar, boundaryIDs []int) error {
	return t.bulk(ids, len(polars), len(boundaryIDs), func(b *Branch, i int) error {
		return b.AddPolar(polars[i], boundaryIDs[i])
	})
}

// AddAbsolutePolars grows each listed branch by a polar step with absolute angle.
func (t *Tree) AddAbsolutePolars(ids []int, polars []geom.Polar, boundaryIDs []int) error {
	return t.bulk(ids, len(polars), len(boundaryIDs), func(b *Branch, i int) error {
		b.AddAbsolutePolar(polars[i], boundaryIDs[i])
		return nil
	})
}

// GrowTestTree grows branchID by n steps of (ds, dalpha), then bifurcates it
// at ±π/4 and grows both children the same way. An empty tree is first
// initialized with branch branchID at the origin pointing up.
func (t *Tree) GrowTestTree(boundaryID, branchID int, ds float64, n int, dalpha float64) (Relation, error) {
	if t.Len() == 0 {
		if err := t.Initialize(map[int]region.SourcePoint{branchID: {Angle: math.Pi / 2}}); err != nil {
			return Relation{}, err
		}
	}
	has, err := t.HasSubBranches(branchID)
	if err != nil {
		return Relation{}, err
	}
	if has {
		return Relation{}, &AlreadyBifurcatedError{ID: branchID}
	}
	src := t.branches[branchID]
	step := geom.Polar{R: ds, Phi: dalpha}
	for range n {
		if err := src.AddPolar(step, boundaryID); err != nil {
			return Relation{}, err
		}
	}
	tipAngle, err := src.TipAngle()
	if err != nil {
		return Relation{}, err
	}
	left := NewBranch(src.TipPoint(), tipAngle+math.Pi/4)
	right := NewBranch(src.TipPoint(), tipAngle-math.Pi/4)
	for range n {
		if err := left.AddPolar(step, boundaryID); err != nil {
			return Relation{}, err
		}
		if err := right.AddPolar(step, boundaryID); err != nil {
			return Relation{}, err
		}
	}
	return t.AddSubBranches(branchID, left, right)
}

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	c := NewTree()
	for id, b := range t.branches {
		c.branches[id] = b.Clone()
	}
	maps.Copy(c.relations, t.relations)
	return c
}

// Equal reports whether both trees have the same relations and equal branches.
func (t *Tree) Equal(o *Tree) bool {
	if len(t.branches) != len(o.branches) || !maps.Equal(t.relations, o.relations) {
		return false
	}
	for id, b := range t.branches {
		ob, ok := o.branches[id]
		if !ok || !b.Equal(ob) {
			return false
		}
	}
	return true
}
