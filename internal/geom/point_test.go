/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"errors"
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestPointArithmetic(t *testing.T) {
	p := Point{1, 2}
	q := Point{3, -1}
	if got := p.Add(q); !got.Equal(Point{4, 1}) {
		t.Fatalf("Add = %v, want (4, 1)", got)
	}
	if got := p.Sub(q); !got.Equal(Point{-2, 3}) {
		t.Fatalf("Sub = %v, want (-2, 3)", got)
	}
	if got := p.Mul(2).Div(4); !got.Equal(Point{0.5, 1}) {
		t.Fatalf("Mul/Div = %v, want (0.5, 1)", got)
	}
	if got := p.Dot(q); got != 1 {
		t.Fatalf("Dot = %v, want 1", got)
	}
	if got := (Point{3, 4}).Norm(); got != 5 {
		t.Fatalf("Norm = %v, want 5", got)
	}
}

func TestRotateCounterclockwise(t *testing.T) {
	got := Point{1, 0}.Rotate(math.Pi / 2)
	if !got.Equal(Point{0, 1}) {
		t.Fatalf("Rotate(π/2) = %v, want (0, 1)", got)
	}
	got = Point{1, 1}.Rotate(-math.Pi)
	if !got.Equal(Point{-1, -1}) {
		t.Fatalf("Rotate(-π) = %v, want (-1, -1)", got)
	}
}

func TestAngle(t *testing.T) {
	cases := []struct {
		p    Point
		want float64
	}{
		{Point{1, 0}, 0},
		{Point{0, 1}, math.Pi / 2},
		{Point{-1, 0}, math.Pi},
		{Point{0, -2}, -math.Pi / 2},
		{Point{-1, -1}, -3 * math.Pi / 4},
	}
	for _, c := range cases {
		got, err := c.p.Angle()
		if err != nil {
			t.Fatalf("Angle(%v): %v", c.p, err)
		}
		if !near(got, c.want) {
			t.Fatalf("Angle(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestAngleTo(t *testing.T) {
	a, err := Point{1, 0}.AngleTo(Point{0, 1})
	if err != nil || !near(a, math.Pi/2) {
		t.Fatalf("AngleTo = %v, %v; want π/2", a, err)
	}
	a, err = Point{0, 1}.AngleTo(Point{1, 0})
	if err != nil || !near(a, -math.Pi/2) {
		t.Fatalf("AngleTo = %v, %v; want -π/2", a, err)
	}
	a, err = Point{1, 0}.AngleTo(Point{-3, 0})
	if err != nil || !near(a, math.Pi) {
		t.Fatalf("AngleTo antiparallel = %v, %v; want π", a, err)
	}
}

func TestDegenerateVector(t *testing.T) {
	var dv *DegenerateVectorError
	if _, err := (Point{}).Normalize(); !errors.As(err, &dv) {
		t.Fatalf("Normalize zero: err = %v, want DegenerateVectorError", err)
	}
	if _, err := (Point{1e-14, 0}).Angle(); !errors.As(err, &dv) {
		t.Fatalf("Angle tiny: err = %v, want DegenerateVectorError", err)
	}
	if _, err := (Point{1, 0}).AngleTo(Point{}); !errors.As(err, &dv) {
		t.Fatalf("AngleTo zero: err = %v, want DegenerateVectorError", err)
	}
}

func TestEqualAbsoluteEps(t *testing.T) {
	if !(Point{1, 1}).Equal(Point{1 + 1e-14, 1 - 1e-14}) {
		t.Fatalf("points within eps should be equal")
	}
	if (Point{1, 1}).Equal(Point{1 + 1e-12, 1}) {
		t.Fatalf("points beyond eps should differ")
	}
}

func TestPolarRoundTrip(t *testing.T) {
	pl := Polar{R: 2, Phi: 3 * math.Pi / 4}
	back := ToPolar(pl.Point())
	if !near(back.R, pl.R) || !near(back.Phi, pl.Phi) {
		t.Fatalf("ToPolar(Point()) = %+v, want %+v", back, pl)
	}
	if got := ToPolar(Point{}); got != (Polar{}) {
		t.Fatalf("ToPolar(0) = %+v, want zero", got)
	}
	if got := (Point{1, 1}).AddPolar(Polar{}); !got.Equal(Point{1, 1}) {
		t.Fatalf("AddPolar(0) = %v, want (1, 1)", got)
	}
}
