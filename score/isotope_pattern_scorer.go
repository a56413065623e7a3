// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package score

import (
	"math"

	"github.com/kortschak/msdeconv/isotope"
	"github.com/kortschak/msdeconv/spectrum"
)

// IsotopePatternScorer computes, per peak and per candidate charge, the
// isotope cosine evidence that the peak belongs to an isotope pattern
// of that charge.
type IsotopePatternScorer struct {
	Model *isotope.Model

	ChargeLow, ChargeHigh  int
	MZTolerance            float64
	OptionalFitImprovement float64
	MinIsotopeFit          float64
}

// Score fills in the per-charge PatternScore track of every spectrum in
// m.
func (s IsotopePatternScorer) Score(m *spectrum.Map) {
	for c := s.ChargeLow; c <= s.ChargeHigh; c++ {
		for i := 0; i < m.Len(); i++ {
			sp := m.Spectrum(i)
			for pi, p := range sp.Peaks {
				s.scoreOne(m, i, pi, p, c)
			}
		}
	}
}

func (s IsotopePatternScorer) scoreOne(m *spectrum.Map, specIdx, peakIdx int, p spectrum.Peak, charge int) {
	mass := p.MZ * float64(charge)
	pat := s.Model.Get(mass)
	if pat.Size() == 0 {
		return
	}
	kStar := pat.MostAbundantIndex()

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

	seedFound := false
	for idx := 0; idx < pat.Size(); idx++ {
		targetMZ := p.MZ + float64(idx-kStar)/float64(charge)
		obs.TheoreticalMZ[idx] = targetMZ

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
			if dist <= s.MZTolerance && dist < bestDist {
				bestSpec, bestPeak, bestDist = j, ni, dist
			}
		}
		if bestSpec >= 0 {
			obs.SpectrumIndex[idx] = bestSpec
			obs.PeakIndex[idx] = bestPeak
			obs.Intensity[idx] = float64(m.Spectrum(bestSpec).Peaks[bestPeak].Intensity)
			obs.MZScore[idx] = PositionScore(m.Spectrum(bestSpec).Peaks[bestPeak].MZ, targetMZ, s.MZTolerance)
			if bestSpec == specIdx && bestPeak == peakIdx {
				seedFound = true
			}
		}
	}
	if !seedFound {
		return
	}

	res := IsotopeCosine(pat, obs, s.OptionalFitImprovement, s.MinIsotopeFit)
	if res.Score <= 0 {
		return
	}
	for idx := res.Begin; idx < res.End; idx++ {
		if obs.PeakIndex[idx] < 0 {
			continue
		}
		track := m.Spectrum(obs.SpectrumIndex[idx]).PatternScore(charge)
		if track == nil {
			continue
		}
		if res.Score > track[obs.PeakIndex[idx]] {
			track[obs.PeakIndex[idx]] = res.Score
		}
	}
}
