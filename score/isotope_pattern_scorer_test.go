// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package score_test

import (
	"testing"

	"github.com/kortschak/msdeconv/isotope"
	"github.com/kortschak/msdeconv/score"
	"github.com/kortschak/msdeconv/spectrum"
	"github.com/stretchr/testify/assert"
)

func isotopeModel() *isotope.Model {
	return isotope.NewModel(isotope.Config{
		Abundance12C:                98.93,
		Abundance14N:                99.632,
		MassWindowWidth:             25,
		IntensityPercentage:         10,
		IntensityPercentageOptional: 0.1,
	})
}

func isotopeSpectrum(charge int, monoMZ float64, n int) *spectrum.Spectrum {
	var peaks []spectrum.Peak
	for i := 0; i < n; i++ {
		mz := monoMZ + float64(i)*spectrum.IsotopeSpacing/float64(charge)
		peaks = append(peaks, spectrum.Peak{MZ: mz, Intensity: float32(1000 / float64(i+1))})
	}
	return spectrum.NewSpectrum(1, 1, "scan", peaks, charge, charge)
}

func TestIsotopePatternScorerScoresSeedPeak(t *testing.T) {
	sp := isotopeSpectrum(2, 500.0, 5)
	m := spectrum.NewMap([]*spectrum.Spectrum{sp})

	s := score.IsotopePatternScorer{
		Model:                  isotopeModel(),
		ChargeLow:              2,
		ChargeHigh:             2,
		MZTolerance:            0.02,
		OptionalFitImprovement: 0.05,
		MinIsotopeFit:          0.5,
	}
	s.Score(m)

	track := m.Spectrum(0).PatternScore(2)
	assert.Greater(t, track[0], 0.0)
}

func TestIsotopePatternScorerLeavesUnrelatedChargeUnscored(t *testing.T) {
	sp := isotopeSpectrum(2, 500.0, 5)
	m := spectrum.NewMap([]*spectrum.Spectrum{sp})

	s := score.IsotopePatternScorer{
		Model:                  isotopeModel(),
		ChargeLow:              2,
		ChargeHigh:             2,
		MZTolerance:            0.02,
		OptionalFitImprovement: 0.05,
		MinIsotopeFit:          0.5,
	}
	s.Score(m)

	// Charge 6's track for this spectrum was never initialized in the
	// chargeLo..chargeHi range requested of NewSpectrum, but a disjoint
	// charge on the scorer itself should simply be skipped, not panic.
	assert.NotPanics(t, func() {
		s2 := s
		s2.ChargeLow, s2.ChargeHigh = 6, 6
		s2.Score(m)
	})
}
