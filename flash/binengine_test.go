// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flash_test

import (
	"testing"

	"github.com/kortschak/msdeconv/flash"
	"github.com/kortschak/msdeconv/spectrum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multiChargeEnvelope(mass float64, charges ...int) []flash.SpectrumPeak {
	peaks := make([]flash.SpectrumPeak, len(charges))
	for i, c := range charges {
		mz := mass/float64(c) + spectrum.ProtonMass
		peaks[i] = flash.SpectrumPeak{PeakIndex: i, MZ: mz, Intensity: 1000}
	}
	return peaks
}

func testConfig() flash.Config {
	return flash.Config{
		MinCharge:                        1,
		MaxCharge:                        10,
		MinMass:                          100,
		MaxMass:                          100000,
		TolerancePPM:                     10,
		MinContinuousChargePeakPairCount: 2,
		NumOverlappedScans:               2,
	}
}

func TestProcessSpectrumEmptyReturnsNil(t *testing.T) {
	e := flash.NewEngine(testConfig())
	groups := e.ProcessSpectrum(nil, 0)
	assert.Nil(t, groups)
}

func TestProcessSpectrumFindsMassFromChargeLadder(t *testing.T) {
	e := flash.NewEngine(testConfig())
	peaks := multiChargeEnvelope(5000, 2, 3, 4, 5)

	groups := e.ProcessSpectrum(peaks, 0)
	require.NotEmpty(t, groups)

	var found bool
	for _, g := range groups {
		if g.Mass > 4995 && g.Mass < 5005 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestProcessSpectrumCarriesOverAcrossScans(t *testing.T) {
	e := flash.NewEngine(testConfig())
	peaks := multiChargeEnvelope(5000, 2, 3, 4, 5)

	first := e.ProcessSpectrum(peaks, 0)
	require.NotEmpty(t, first)

	// A weaker ladder on the next scan, below the continuous-pair
	// threshold alone, should still qualify via the carry-over union.
	weak := multiChargeEnvelope(5000, 2, 3)
	second := e.ProcessSpectrum(weak, 1)
	assert.NotEmpty(t, second)
}
