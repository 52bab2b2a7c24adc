/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package simulation

import (
	"context"

	"riversim/internal/geom"
	"riversim/internal/model"
	"riversim/internal/region"
)

// boundaryMesh stands in for a triangulation: one cell per boundary line.
type boundaryMesh struct {
	cells   int
	minArea float64
}

func (m boundaryMesh) Cells() int { return m.cells }

// BoundaryMesher is a Mesher that does not triangulate. It reports one
// cell per boundary line and samples the area constraint at the vertices.
type BoundaryMesher struct{}

func (BoundaryMesher) Triangulate(ctx context.Context, b region.Boundary, _ []geom.Point, area func(x, y float64) float64) (Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := boundaryMesh{cells: len(b.Lines), minArea: -1}
	for _, v := range b.Vertices {
		if a := area(v.X, v.Y); m.minArea < 0 || a < m.minArea {
			m.minArea = a
		}
	}
	return m, nil
}

type constantField struct{ dof int }

func (f constantField) DegreesOfFreedom() int { return f.dof }

// ConstantSolver is a Solver returning a field with one degree of freedom
// per mesh cell and no values.
type ConstantSolver struct{}

func (ConstantSolver) Solve(ctx context.Context, mesh Mesh, _ region.BoundaryConditions, _ float64) (Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return constantField{dof: mesh.Cells()}, nil
}

// FixedSeries is an Integrator returning the same series parameters for
// every tip. It drives the test simulation type.
type FixedSeries model.Series

func (s FixedSeries) Integrate(ctx context.Context, _ Field, _ geom.Point, _, _ float64) (model.Series, error) {
	return model.Series(s), ctx.Err()
}
