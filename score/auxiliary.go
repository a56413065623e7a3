// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package score

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/kortschak/msdeconv/isotope"
)

// PositionScore is a position score in [0, 1] rewarding two observed
// positions (m/z or RT) lying close together
// relative to tol, saturating smoothly rather than stepping at tol/2.
func PositionScore(p1, p2, tol float64) float64 {
	if tol <= 0 {
		if p1 == p2 {
			return 1
		}
		return 0
	}
	d := math.Abs(p1 - p2)
	half := tol / 2
	switch {
	case d <= half:
		return 0.9 + 0.1*(half-d)/half
	case d <= tol:
		return 0.9 * (tol - d) / half
	default:
		return 0
	}
}

// ObservedPattern is the per-peak observation of an isotope fit attempt,
// parallel in length to the theoretical isotope.Pattern it was matched
// against. PeakIndex[i] == -1 means "not found"; -2 means "removed to
// improve fit".
type ObservedPattern struct {
	SpectrumIndex []int
	PeakIndex     []int
	Intensity     []float64
	MZScore       []float64
	TheoreticalMZ []float64
}

// IsotopeCosineResult is the outcome of scoring an ObservedPattern
// against a theoretical isotope.Pattern.
type IsotopeCosineResult struct {
	Score   float64
	Begin   int // inclusive start of the accepted sub-range
	End     int // exclusive end of the accepted sub-range
	Removed []int
}

// IsotopeCosine is the Pearson correlation between theoretical and
// observed intensity vectors, searched over all
// sub-ranges [b..size-e] with 0<=b<=theo.OptionalBegin and
// 0<=e<=theo.OptionalEnd, the core (non-optional) peaks always required
// present, improving on the core-range baseline only by at least
// optionalFitImprovement (a percentage, e.g. 2.0 for 2%). A cap of
// minIsotopeFit prevents a trivial perfect fit for size-2 ranges.
func IsotopeCosine(theo isotope.Pattern, obs ObservedPattern, optionalFitImprovement, minIsotopeFit float64) IsotopeCosineResult {
	n := theo.Size()
	if n == 0 || len(obs.Intensity) != n {
		return IsotopeCosineResult{}
	}

	coreLo, coreHi := theo.OptionalBegin, n-theo.OptionalEnd
	for i := coreLo; i < coreHi; i++ {
		if obs.PeakIndex[i] < 0 {
			// A required core peak is missing: no sub-range can be
			// valid.
			return IsotopeCosineResult{}
		}
	}

	best := IsotopeCosineResult{Begin: coreLo, End: coreHi, Score: pearson(theo.Intensities[coreLo:coreHi], obs.Intensity[coreLo:coreHi])}
	if coreHi-coreLo == 2 && best.Score > minIsotopeFit {
		best.Score = minIsotopeFit
	}
	for b := 0; b <= theo.OptionalBegin; b++ {
		for e := 0; e <= theo.OptionalEnd; e++ {
			lo, hi := b, n-e
			if hi-lo < 2 {
				continue
			}
			allPresent := true
			for i := lo; i < hi; i++ {
				if obs.PeakIndex[i] < 0 {
					allPresent = false
					break
				}
			}
			if !allPresent {
				continue
			}
			sc := pearson(theo.Intensities[lo:hi], obs.Intensity[lo:hi])
			if hi-lo == 2 && sc > minIsotopeFit {
				sc = minIsotopeFit
			}
			if sc > best.Score*(1+optionalFitImprovement/100) {
				best = IsotopeCosineResult{Begin: lo, End: hi, Score: sc}
			}
		}
	}

	for i := 0; i < n; i++ {
		if i < best.Begin || i >= best.End {
			if obs.PeakIndex[i] >= 0 {
				best.Removed = append(best.Removed, i)
			}
		}
	}
	return best
}

// pearson computes the Pearson correlation coefficient between a and b,
// treating a NaN result (e.g. from a constant vector) as 0.
func pearson(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	c := stat.Correlation(a, b, nil)
	if math.IsNaN(c) {
		return 0
	}
	return c
}
