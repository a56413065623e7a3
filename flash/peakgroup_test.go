// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flash_test

import (
	"math"
	"testing"

	"github.com/kortschak/msdeconv/flash"
	"github.com/kortschak/msdeconv/isotope"
	"github.com/kortschak/msdeconv/spectrum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultModel() *isotope.Model {
	return isotope.NewModel(isotope.Config{
		Abundance12C:                98.93,
		Abundance14N:                99.632,
		MassWindowWidth:             25,
		IntensityPercentage:         10,
		IntensityPercentageOptional: 0.1,
	})
}

func peakGroupFromMass(mass float64, charges []int) flash.PeakGroup {
	g := flash.PeakGroup{Mass: mass, MinCharge: charges[0], MaxCharge: charges[len(charges)-1]}
	for _, c := range charges {
		mz := mass/float64(c) + spectrum.ProtonMass
		g.Peaks = append(g.Peaks, flash.HarmonicPeak{MZ: mz, Intensity: 1000, Charge: c})
	}
	return g
}

func TestDeconvScorerIntensitySumsPeaks(t *testing.T) {
	g := peakGroupFromMass(1000, []int{2, 3})
	assert.Equal(t, 2000.0, g.Intensity())
}

func TestDeconvScorerScoreRejectsEmptyPeaks(t *testing.T) {
	g := flash.PeakGroup{Mass: 1000}
	s := flash.DeconvScorer{Model: defaultModel(), MinIsotopeCosine: 0.5, MinChargeDistScore: 1}

	ok := s.Score(&g)
	assert.False(t, ok)
}

func TestDeconvScorerScoreRejectsShortChargeRun(t *testing.T) {
	g := peakGroupFromMass(1000, []int{2, 3})
	s := flash.DeconvScorer{
		Model:                            defaultModel(),
		MinContinuousChargePeakPairCount: 3,
		MinIsotopeCosine:                 0,
		MinChargeDistScore:               -100,
	}

	ok := s.Score(&g)
	assert.False(t, ok)
}

func TestDeconvScorerChargeDistScoreWalksOutwardFromMode(t *testing.T) {
	// Charges 2..6, intensity strictly decaying away from the mode at
	// charge 4: every step on both sides is monotone non-increasing, so
	// the outward walk scores +1 four times.
	g := flash.PeakGroup{Mass: 1000, MinCharge: 2, MaxCharge: 6}
	intensity := map[int]float32{2: 50, 3: 200, 4: 1000, 5: 300, 6: 20}
	for c := 2; c <= 6; c++ {
		mz := 1000/float64(c) + spectrum.ProtonMass
		g.Peaks = append(g.Peaks, flash.HarmonicPeak{MZ: mz, Intensity: intensity[c], Charge: c})
	}

	s := flash.DeconvScorer{
		Model:                            defaultModel(),
		MinContinuousChargePeakPairCount: 1,
		MinContinuousIsotopeCount:        1,
		MinIsotopeCosine:                 0,
		MinChargeDistScore:               -100,
	}
	s.Score(&g)

	assert.Equal(t, int32(4), g.ChargeDistScore)
}

// syntheticEnvelope builds a full averagine isotope envelope, at every
// charge in chargeLo..chargeHi, for a species of the given neutral mass,
// weighted across charges by a Gaussian mode centered on modeCharge so
// the charge distribution is unimodal.
func syntheticEnvelope(model *isotope.Model, mass float64, chargeLo, chargeHi, modeCharge int) []flash.SpectrumPeak {
	pat := model.Get(mass)
	var peaks []flash.SpectrumPeak
	idx := 0
	for c := chargeLo; c <= chargeHi; c++ {
		d := float64(c - modeCharge)
		weight := math.Exp(-(d * d) / 50)
		for i, inten := range pat.Intensities {
			mz := (mass+float64(i)*spectrum.IsotopeSpacing)/float64(c) + spectrum.ProtonMass
			peaks = append(peaks, flash.SpectrumPeak{
				PeakIndex: idx,
				MZ:        mz,
				Intensity: float32(weight * inten * 1000),
			})
			idx++
		}
	}
	return peaks
}

func TestFlashDeconvRecoversMonoisotopicMassAcrossChargeLadder(t *testing.T) {
	model := defaultModel()
	const trueMass = 10000.0

	peaks := syntheticEnvelope(model, trueMass, 5, 20, 12)

	e := flash.NewEngine(flash.Config{
		MinCharge:                        1,
		MaxCharge:                        30,
		MinMass:                          1000,
		MaxMass:                          100000,
		TolerancePPM:                     10,
		MinContinuousChargePeakPairCount: 3,
		NumOverlappedScans:               2,
	})
	groups := e.ProcessSpectrum(peaks, 0)
	require.NotEmpty(t, groups)

	var best *flash.PeakGroup
	for i := range groups {
		if best == nil || math.Abs(groups[i].Mass-trueMass) < math.Abs(best.Mass-trueMass) {
			best = &groups[i]
		}
	}
	require.NotNil(t, best)

	s := flash.DeconvScorer{
		Model:                            model,
		MinContinuousChargePeakPairCount: 3,
		MinContinuousIsotopeCount:        3,
		MinIsotopeCosine:                 0.9,
		MinChargeDistScore:               10,
	}
	ok := s.Score(best)

	assert.True(t, ok)
	assert.InDelta(t, trueMass, best.MonoMass, 1)
	assert.GreaterOrEqual(t, best.IsotopeCosine, 0.9)
	assert.GreaterOrEqual(t, best.ChargeDistScore, int32(10))
}
