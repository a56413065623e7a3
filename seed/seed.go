// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package seed enumerates feature-finding seeds from the per-peak score
// triples computed by package score, optionally overlaid with a
// user-supplied seed list.
package seed

import (
	"math"
	"sort"

	"github.com/kortschak/msdeconv/score"
	"github.com/kortschak/msdeconv/spectrum"
)

// Seed is a candidate feature-construction starting point: a peak and a
// charge hypothesis that passed the seed acceptance test.
type Seed struct {
	SpectrumIndex int
	PeakIndex     int
	Charge        int
	MZ            float64
	RT            float64
	Intensity     float32
}

// UserSeed is a caller-supplied (rt, mz) hint, required to be sorted by
// MZ ascending.
type UserSeed struct {
	MZ float64
	RT float64
}

// Selector enumerates seeds across an entire Map.
type Selector struct {
	ChargeLow, ChargeHigh int

	// SeedMinScore gates automatic-mode seed emission.
	SeedMinScore float64

	// UserSeedMinScore and the tolerances gate user-seed-mode emission.
	UserSeeds        []UserSeed
	UserSeedMinScore float64
	UserMZTolerance  float64
	UserRTTolerance  float64
}

// ComputeOverallScores fills in the per-charge OverallScore track of
// every local-maximum peak in m: cbrt(trace_score * intensity_score *
// pattern_score_c).
func (sel Selector) ComputeOverallScores(m *spectrum.Map) {
	for i := 0; i < m.Len(); i++ {
		sp := m.Spectrum(i)
		traceScore := sp.Track(spectrum.TraceScore)
		intensityScore := sp.Track(spectrum.IntensityScore)
		localMax := sp.Track(spectrum.LocalMax)
		for c := sel.ChargeLow; c <= sel.ChargeHigh; c++ {
			pattern := sp.PatternScore(c)
			overall := sp.OverallScore(c)
			if pattern == nil || overall == nil {
				continue
			}
			for pi := range sp.Peaks {
				if !score.IsLocalMax(localMax[pi]) {
					continue
				}
				overall[pi] = cbrt(traceScore[pi] * intensityScore[pi] * pattern[pi])
			}
		}
	}
}

func cbrt(x float64) float64 { return math.Cbrt(x) }

// Emit returns every seed in m that passes the configured acceptance
// test, sorted by descending intensity: in automatic mode (no user
// seeds), overall_c >= SeedMinScore; in user-seed mode, additionally a
// user seed must lie within tolerance.
func (sel Selector) Emit(m *spectrum.Map) []Seed {
	var seeds []Seed
	userMode := len(sel.UserSeeds) > 0
	minScore := sel.SeedMinScore
	if userMode {
		minScore = sel.UserSeedMinScore
	}

	for i := 0; i < m.Len(); i++ {
		sp := m.Spectrum(i)
		localMax := sp.Track(spectrum.LocalMax)
		for pi, p := range sp.Peaks {
			if !score.IsLocalMax(localMax[pi]) {
				continue
			}
			for c := sel.ChargeLow; c <= sel.ChargeHigh; c++ {
				overall := sp.OverallScore(c)
				if overall == nil || overall[pi] < minScore {
					continue
				}
				if userMode && !sel.matchesUserSeed(p.MZ, sp.RT) {
					continue
				}
				seeds = append(seeds, Seed{
					SpectrumIndex: i,
					PeakIndex:     pi,
					Charge:        c,
					MZ:            p.MZ,
					RT:            sp.RT,
					Intensity:     p.Intensity,
				})
			}
		}
	}

	sort.SliceStable(seeds, func(i, j int) bool { return seeds[i].Intensity > seeds[j].Intensity })
	return seeds
}

func (sel Selector) matchesUserSeed(mz, rt float64) bool {
	lo := sort.Search(len(sel.UserSeeds), func(i int) bool { return sel.UserSeeds[i].MZ >= mz-sel.UserMZTolerance })
	for i := lo; i < len(sel.UserSeeds) && sel.UserSeeds[i].MZ < mz+sel.UserMZTolerance; i++ {
		u := sel.UserSeeds[i]
		if math.Abs(u.MZ-mz) < sel.UserMZTolerance && math.Abs(u.RT-rt) < sel.UserRTTolerance {
			return true
		}
	}
	return false
}
