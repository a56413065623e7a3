// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package score

import (
	"math"

	"github.com/kortschak/msdeconv/isotope"
	"github.com/kortschak/msdeconv/spectrum"
)

// IsotopeFitter performs the best-offset isotope alignment of an
// accepted seed peak against the averagine model: every plausible
// placement of the seed within the theoretical pattern is tried, and
// the one scoring highest under the isotope cosine wins.
type IsotopeFitter struct {
	Model *isotope.Model

	MZTolerance            float64
	OptionalFitImprovement float64
	MinIsotopeFit          float64
	MinFitScore            float64
}

// FitResult is one accepted isotope fit: the theoretical pattern used,
// the observed peaks matched against it, the winning sub-range score
// and the isotopologue index (within the theoretical pattern, and
// within the accepted sub-range) carrying the greatest observed
// intensity - the anchor trace of the mass trace extension step.
type FitResult struct {
	Pattern     isotope.Pattern
	Observed    ObservedPattern
	Cosine      IsotopeCosineResult
	AnchorIndex int
	SeedIndex   int
}

// TheoreticalMZ returns the theoretical m/z of isotopologue idx, given
// the seed peak's own m/z and its placement (SeedIndex) in the pattern.
func (r FitResult) TheoreticalMZ(seedMZ float64, charge int, idx int) float64 {
	return seedMZ + float64(idx-r.SeedIndex)/float64(charge)
}

// Fit runs the seed's isotope fit: it estimates the neutral mass from
// the seed peak and charge, then tries every placement of the seed peak
// within the resulting theoretical pattern, keeping the placement whose
// 3-spectrum-searched observed pattern scores highest. It reports false
// if no placement keeps the seed peak present in the observed pattern,
// or the best score falls below MinFitScore.
func (f IsotopeFitter) Fit(m *spectrum.Map, specIdx, peakIdx, charge int) (FitResult, bool) {
	sp := m.Spectrum(specIdx)
	seed := sp.Peaks[peakIdx]
	mass := (seed.MZ - spectrum.ProtonMass) * float64(charge)
	pat := f.Model.Get(mass)
	if pat.Size() == 0 {
		return FitResult{}, false
	}

	var best FitResult
	haveBest := false
	for k := 0; k < pat.Size(); k++ {
		obs := f.search(m, specIdx, peakIdx, seed, charge, pat, k)
		if obs.PeakIndex[k] != peakIdx || obs.SpectrumIndex[k] != specIdx {
			// The seed itself must remain identified at placement k.
			continue
		}
		res := IsotopeCosine(pat, obs, f.OptionalFitImprovement, f.MinIsotopeFit)
		if res.Score <= 0 {
			continue
		}
		if !haveBest || res.Score > best.Cosine.Score {
			best = FitResult{Pattern: pat, Observed: obs, Cosine: res, SeedIndex: k}
			haveBest = true
		}
	}
	if !haveBest || best.Cosine.Score < f.MinFitScore {
		return FitResult{}, false
	}
	best.AnchorIndex = mostIntenseObserved(best.Observed, best.Cosine)
	return best, true
}

// search builds the observed pattern for pat assuming the seed peak
// occupies isotopologue index k, using the same 3-spectrum
// nearest-peak search as IsotopePatternScorer.
func (f IsotopeFitter) search(m *spectrum.Map, specIdx, peakIdx int, seed spectrum.Peak, charge int, pat isotope.Pattern, k int) ObservedPattern {
	obs := ObservedPattern{
		SpectrumIndex: make([]int, pat.Size()),
		PeakIndex:     make([]int, pat.Size()),
		Intensity:     make([]float64, pat.Size()),
		MZScore:       make([]float64, pat.Size()),
		TheoreticalMZ: make([]float64, pat.Size()),
	}
	for i := range obs.PeakIndex {
		obs.PeakIndex[i] = -1
	}

	for idx := 0; idx < pat.Size(); idx++ {
		targetMZ := seed.MZ + float64(idx-k)/float64(charge)
		obs.TheoreticalMZ[idx] = targetMZ

		if idx == k {
			obs.SpectrumIndex[idx] = specIdx
			obs.PeakIndex[idx] = peakIdx
			obs.Intensity[idx] = float64(seed.Intensity)
			obs.MZScore[idx] = 1
			continue
		}

		bestSpec, bestPeak, bestDist := -1, -1, math.Inf(1)
		for d := -1; d <= 1; d++ {
			j := specIdx + d
			if j < 0 || j >= m.Len() {
				continue
			}
			neighbor := m.Spectrum(j)
			ni := neighbor.FindNearest(targetMZ)
			if ni < 0 {
				continue
			}
			dist := math.Abs(neighbor.Peaks[ni].MZ - targetMZ)
			if dist <= f.MZTolerance && dist < bestDist {
				bestSpec, bestPeak, bestDist = j, ni, dist
			}
		}
		if bestSpec >= 0 {
			p := m.Spectrum(bestSpec).Peaks[bestPeak]
			obs.SpectrumIndex[idx] = bestSpec
			obs.PeakIndex[idx] = bestPeak
			obs.Intensity[idx] = float64(p.Intensity)
			obs.MZScore[idx] = PositionScore(p.MZ, targetMZ, f.MZTolerance)
		}
	}
	return obs
}

// mostIntenseObserved returns the index, within the accepted sub-range,
// of the peak with greatest observed intensity.
func mostIntenseObserved(obs ObservedPattern, cr IsotopeCosineResult) int {
	best, bestInt := cr.Begin, -1.0
	for i := cr.Begin; i < cr.End; i++ {
		if obs.PeakIndex[i] < 0 {
			continue
		}
		if obs.Intensity[i] > bestInt {
			best, bestInt = i, obs.Intensity[i]
		}
	}
	return best
}
