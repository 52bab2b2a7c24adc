/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package simulation drives river growth: it cuts the rivers into the
// region, hands the result to an external mesher, solver and integrator,
// and grows, splits or shrinks tips from the returned series parameters.
package simulation

import (
	"context"

	"riversim/internal/geom"
	"riversim/internal/model"
	"riversim/internal/region"
)

// Mesh is a triangulation produced by a Mesher.
type Mesh interface {
	Cells() int
}

// Mesher triangulates a closed boundary with holes. area returns the
// maximal triangle area at a point.
type Mesher interface {
	Triangulate(ctx context.Context, boundary region.Boundary, holes []geom.Point, area func(x, y float64) float64) (Mesh, error)
}

// Field is a scalar field solved on a Mesh.
type Field interface {
	DegreesOfFreedom() int
}

// Solver solves the field equation with source term fieldValue.
type Solver interface {
	Solve(ctx context.Context, mesh Mesh, conditions region.BoundaryConditions, fieldValue float64) (Field, error)
}

// Integrator extracts the series parameters a1, a2, a3 of field around a
// tip, in the frame of the tip direction.
type Integrator interface {
	Integrate(ctx context.Context, field Field, tip geom.Point, tipAngle, radius float64) (model.Series, error)
}

// IntegratorFunc adapts a function to Integrator.
type IntegratorFunc func(ctx context.Context, field Field, tip geom.Point, tipAngle, radius float64) (model.Series, error)

func (f IntegratorFunc) Integrate(ctx context.Context, field Field, tip geom.Point, tipAngle, radius float64) (model.Series, error) {
	return f(ctx, field, tip, tipAngle, radius)
}
