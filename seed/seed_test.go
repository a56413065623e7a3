// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package seed_test

import (
	"testing"

	"github.com/kortschak/msdeconv/seed"
	"github.com/kortschak/msdeconv/spectrum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oneSpectrumMap(mzs []float64, intensities []float32, chargeLo, chargeHi int) (*spectrum.Map, *spectrum.Spectrum) {
	peaks := make([]spectrum.Peak, len(mzs))
	for i, mz := range mzs {
		peaks[i] = spectrum.Peak{MZ: mz, Intensity: intensities[i]}
	}
	sp := spectrum.NewSpectrum(1.0, 1, "scan=1", peaks, chargeLo, chargeHi)
	return spectrum.NewMap([]*spectrum.Spectrum{sp}), sp
}

func TestComputeOverallScoresOnlyTouchesLocalMaxima(t *testing.T) {
	m, sp := oneSpectrumMap([]float64{100, 200}, []float32{10, 20}, 2, 2)

	traceScore := sp.Track(spectrum.TraceScore)
	intensityScore := sp.Track(spectrum.IntensityScore)
	localMax := sp.Track(spectrum.LocalMax)
	pattern := sp.PatternScore(2)

	traceScore[0], intensityScore[0], pattern[0] = 0.8, 0.8, 0.8
	localMax[0] = 1 // peak 0 is a local max

	traceScore[1], intensityScore[1], pattern[1] = 0.9, 0.9, 0.9
	// peak 1 is not a local max; localMax[1] stays 0.

	sel := seed.Selector{ChargeLow: 2, ChargeHigh: 2}
	sel.ComputeOverallScores(m)

	overall := sp.OverallScore(2)
	assert.InDelta(t, 0.8, overall[0], 1e-9)
	assert.Equal(t, 0.0, overall[1], "non-local-max peaks keep a zero overall score")
}

func TestEmitAutomaticModeFiltersByMinScore(t *testing.T) {
	m, sp := oneSpectrumMap([]float64{100, 200}, []float32{10, 20}, 2, 2)
	localMax := sp.Track(spectrum.LocalMax)
	localMax[0] = 1
	localMax[1] = 1
	sp.OverallScore(2)[0] = 0.9
	sp.OverallScore(2)[1] = 0.1

	sel := seed.Selector{ChargeLow: 2, ChargeHigh: 2, SeedMinScore: 0.5}
	seeds := sel.Emit(m)

	require.Len(t, seeds, 1)
	assert.Equal(t, 0, seeds[0].PeakIndex)
}

func TestEmitSortsByDescendingIntensity(t *testing.T) {
	m, sp := oneSpectrumMap([]float64{100, 200}, []float32{5, 50}, 2, 2)
	localMax := sp.Track(spectrum.LocalMax)
	localMax[0] = 1
	localMax[1] = 1
	sp.OverallScore(2)[0] = 0.9
	sp.OverallScore(2)[1] = 0.9

	sel := seed.Selector{ChargeLow: 2, ChargeHigh: 2, SeedMinScore: 0.1}
	seeds := sel.Emit(m)

	require.Len(t, seeds, 2)
	assert.Equal(t, float32(50), seeds[0].Intensity)
	assert.Equal(t, float32(5), seeds[1].Intensity)
}

func TestEmitUserSeedModeRequiresProximity(t *testing.T) {
	m, sp := oneSpectrumMap([]float64{100, 200}, []float32{10, 10}, 2, 2)
	localMax := sp.Track(spectrum.LocalMax)
	localMax[0] = 1
	localMax[1] = 1
	sp.OverallScore(2)[0] = 0.9
	sp.OverallScore(2)[1] = 0.9

	sel := seed.Selector{
		ChargeLow: 2, ChargeHigh: 2,
		UserSeeds:        []seed.UserSeed{{MZ: 100.01, RT: 1.0}},
		UserSeedMinScore: 0.1,
		UserMZTolerance:  0.1,
		UserRTTolerance:  0.5,
	}
	seeds := sel.Emit(m)

	require.Len(t, seeds, 1)
	assert.Equal(t, 0, seeds[0].PeakIndex)
}
