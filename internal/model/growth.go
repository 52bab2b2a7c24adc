/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package model

import (
	"math"

	"riversim/internal/geom"
)

// QBifurcate decides whether a tip with series parameters a splits.
//
//	type 0: never
//	type 1: a3/a1 <= threshold
//	type 2: a1 >= threshold
//	type 3: both of the above
func (m *Model) QBifurcate(a Series) (bool, error) {
	thr := m.Params.BifurcationThreshold
	switch m.Params.BifurcationType {
	case 0:
		return false, nil
	case 1:
		return a.A3()/a.A1() <= thr, nil
	case 2:
		return a.A1() >= thr, nil
	case 3:
		return a.A3()/a.A1() <= thr && a.A1() >= thr, nil
	}
	return false, &UnknownTypeError{Param: "bifurcation type", Value: m.Params.BifurcationType}
}

// QBifurcateLen is QBifurcate restricted to branches at least
// BifurcationMinDist long.
func (m *Model) QBifurcateLen(a Series, branchLength float64) (bool, error) {
	ok, err := m.QBifurcate(a)
	if err != nil {
		return false, err
	}
	return ok && branchLength >= m.Params.BifurcationMinDist, nil
}

// QGrowth reports whether a tip grows at all.
func (m *Model) QGrowth(a Series) bool {
	return a.A1() >= m.Params.GrowthThreshold
}

// NextPoint returns the growth step relative to the tip direction.
func (m *Model) NextPoint(a Series) (geom.Polar, error) {
	return m.nextPoint(a, m.Params.Eta)
}

// NextPointScaled normalizes a1 by maxA1 and grows at constant speed while
// the branch is shorter than GrowthMinDistance.
func (m *Model) NextPointScaled(a Series, branchLength, maxA1 float64) (geom.Polar, error) {
	a[0] /= maxA1
	eta := m.Params.Eta
	if branchLength < m.Params.GrowthMinDistance {
		eta = 0
	}
	return m.nextPoint(a, eta)
}

func (m *Model) nextPoint(a Series, eta float64) (geom.Polar, error) {
	if !(a.A1() > 0) {
		return geom.Polar{}, &DegenerateSeriesError{A1: a.A1(), A2: a.A2()}
	}
	beta := a.A2() / a.A1()
	dl := m.Params.Ds * math.Pow(a.A1(), eta)

	var p geom.Polar
	switch m.Params.GrowthType {
	case 0:
		p = geom.Polar{R: dl, Phi: -math.Atan(2 * beta * math.Sqrt(dl))}
	case 1:
		if math.Abs(beta) < geom.Eps {
			return geom.Polar{R: dl}, nil
		}
		b2 := beta * beta
		dy := 1 / b2 / 9 * (math.Pow(13.5*dl/b2+1, 2./3.) - 1)
		dx := 2 * math.Sqrt(math.Pow(dy, 3)/b2+math.Pow(dy, 4)/(b2*beta))
		p = geom.ToPolar(geom.Point{X: dx, Y: dy}.Rotate(-math.Pi / 2))
	default:
		return geom.Polar{}, &UnknownTypeError{Param: "growth type", Value: m.Params.GrowthType}
	}
	if math.IsNaN(p.R) || math.IsInf(p.R, 0) || math.IsNaN(p.Phi) {
		return geom.Polar{}, &DegenerateSeriesError{A1: a.A1(), A2: a.A2()}
	}
	return p, nil
}
