// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spectrum_test

import (
	"math"
	"testing"

	"github.com/kortschak/msdeconv/spectrum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peaks(mzs ...float64) []spectrum.Peak {
	out := make([]spectrum.Peak, len(mzs))
	for i, mz := range mzs {
		out[i] = spectrum.Peak{MZ: mz, Intensity: 100}
	}
	return out
}

func TestSpectrumTracksAreZeroedAndSeparate(t *testing.T) {
	s := spectrum.NewSpectrum(1.0, 1, "scan=1", peaks(100, 200, 300), 1, 3)
	require.Equal(t, 3, s.Len())

	it := s.Track(spectrum.IntensityScore)
	it[0] = 0.5
	tt := s.Track(spectrum.TraceScore)
	assert.Equal(t, 0.0, tt[0], "tracks must not alias each other")

	assert.NotNil(t, s.PatternScore(2))
	assert.Nil(t, s.PatternScore(5), "charge outside configured range returns nil")
}

func TestFindNearest(t *testing.T) {
	s := spectrum.NewSpectrum(1.0, 1, "scan=1", peaks(100, 200, 300), 1, 1)
	assert.Equal(t, 0, s.FindNearest(90))
	assert.Equal(t, 1, s.FindNearest(210))
	assert.Equal(t, 2, s.FindNearest(1000))
	assert.Equal(t, 0, s.FindNearest(150), "tie goes to the lower index")
}

func TestFindNearestEmptySpectrum(t *testing.T) {
	s := spectrum.NewSpectrum(1.0, 1, "scan=1", nil, 1, 1)
	assert.Equal(t, -1, s.FindNearest(100))
}

func TestMapBoundsAndSpectrumIndexAtRT(t *testing.T) {
	specs := []*spectrum.Spectrum{
		spectrum.NewSpectrum(1.0, 1, "1", peaks(100, 110), 1, 1),
		spectrum.NewSpectrum(2.0, 1, "2", peaks(95, 120), 1, 1),
		spectrum.NewSpectrum(3.0, 1, "3", peaks(105), 1, 1),
	}
	m := spectrum.NewMap(specs)

	assert.Equal(t, 1.0, m.MinRT())
	assert.Equal(t, 3.0, m.MaxRT())
	assert.Equal(t, 95.0, m.MinMZ())
	assert.Equal(t, 120.0, m.MaxMZ())

	assert.Equal(t, 1, m.SpectrumIndexAtRT(2.1))
	assert.Equal(t, 0, m.SpectrumIndexAtRT(0))
	assert.Equal(t, 2, m.SpectrumIndexAtRT(100))
}

func TestAreaIterVisitsOnlyTheWindow(t *testing.T) {
	specs := []*spectrum.Spectrum{
		spectrum.NewSpectrum(1.0, 1, "1", peaks(100, 200), 1, 1),
		spectrum.NewSpectrum(2.0, 1, "2", peaks(100, 250), 1, 1),
		spectrum.NewSpectrum(5.0, 1, "3", peaks(100), 1, 1),
	}
	m := spectrum.NewMap(specs)

	var seen []spectrum.AreaPeak
	m.AreaIter(0.5, 2.5, 90, 210, func(ap spectrum.AreaPeak) { seen = append(seen, ap) })

	require.Len(t, seen, 2)
	assert.Equal(t, 0, seen[0].SpectrumIndex)
	assert.Equal(t, 1, seen[1].SpectrumIndex)
}

func TestLogMzPeakMassRoundTrip(t *testing.T) {
	mz := 501.0
	charge := int16(2)
	p := spectrum.NewLogMzPeak(0, 0, spectrum.Peak{MZ: mz, Intensity: 10}, charge, 0)

	wantLogMZ := math.Log(mz - spectrum.ProtonMass)
	assert.InDelta(t, wantLogMZ, p.LogMZ, 1e-12)

	wantMass := math.Exp(p.LogMZ) * float64(charge)
	assert.InDelta(t, wantMass, p.Mass(), 1e-9)
}

func TestLogMzPeakMassShiftsWithIsotopeIndex(t *testing.T) {
	base := spectrum.NewLogMzPeak(0, 0, spectrum.Peak{MZ: 501, Intensity: 10}, 2, 0)
	next := spectrum.NewLogMzPeak(0, 1, spectrum.Peak{MZ: 501.5, Intensity: 10}, 2, 1)
	assert.InDelta(t, base.Mass(), next.Mass(), 0.01, "isotope index 1 should land near the same neutral mass")
}
