/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the 2D primitives of the river geometry engine: points,
// polar vectors, affine transforms and the segment intersection predicate.
package geom

import (
	"fmt"
	"math"
)

// Eps is the absolute tolerance used for point equality and degenerate-vector checks.
const Eps = 1e-13

// DegenerateVectorError is returned when a direction is requested from a
// vector whose norm is below Eps.
type DegenerateVectorError struct {
	Op string
	P  Point
}

func (e *DegenerateVectorError) Error() string {
	return fmt.Sprintf("geom: %s: degenerate vector (%g, %g)", e.Op, e.P.X, e.P.Y)
}

// Point is a Cartesian 2D vector.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point          { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point          { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Mul(k float64) Point        { return Point{p.X * k, p.Y * k} }
func (p Point) Div(k float64) Point        { return Point{p.X / k, p.Y / k} }
func (p Point) Dot(q Point) float64        { return p.X*q.X + p.Y*q.Y }
func (p Point) Cross(q Point) float64      { return p.X*q.Y - q.X*p.Y }
func (p Point) Norm() float64              { return math.Hypot(p.X, p.Y) }
func (p Point) String() string             { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }
func (p Point) AddPolar(q Polar) Point     { return p.Add(q.Point()) }
func (p Point) Midpoint(q Point) Point     { return p.Add(q).Div(2) }
func (p Point) DistanceTo(q Point) float64 { return p.Sub(q).Norm() }

// Equal reports component-wise equality within Eps.
func (p Point) Equal(q Point) bool {
	return math.Abs(p.X-q.X) < Eps && math.Abs(p.Y-q.Y) < Eps
}

// Rotate rotates p counterclockwise by phi radians.
func (p Point) Rotate(phi float64) Point {
	s, c := math.Sincos(phi)
	return Point{p.X*c - p.Y*s, p.X*s + p.Y*c}
}

// Normalize returns the unit vector in the direction of p.
func (p Point) Normalize() (Point, error) {
	n := p.Norm()
	if n < Eps {
		return Point{}, &DegenerateVectorError{Op: "normalize", P: p}
	}
	return Point{p.X / n, p.Y / n}, nil
}

// Angle returns the direction of p in (-π, π].
func (p Point) Angle() (float64, error) {
	n := p.Norm()
	if n < Eps {
		return 0, &DegenerateVectorError{Op: "angle", P: p}
	}
	phi := acosClamped(p.X / n)
	if p.Y < 0 {
		phi = -phi
	}
	return phi, nil
}

// AngleTo returns the signed angle that rotates p onto q, in (-π, π].
// The sign follows the cross product of p and q.
func (p Point) AngleTo(q Point) (float64, error) {
	n, qn := p.Norm(), q.Norm()
	if n < Eps {
		return 0, &DegenerateVectorError{Op: "angle", P: p}
	}
	if qn < Eps {
		return 0, &DegenerateVectorError{Op: "angle", P: q}
	}
	phi := acosClamped(p.Dot(q) / n / qn)
	if p.Cross(q) < 0 {
		phi = -phi
	}
	return phi, nil
}

func acosClamped(x float64) float64 {
	switch {
	case x > 1:
		return 0
	case x < -1:
		return math.Pi
	}
	return math.Acos(x)
}
