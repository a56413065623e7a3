// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package score_test

import (
	"testing"

	"github.com/kortschak/msdeconv/score"
	"github.com/kortschak/msdeconv/spectrum"
	"github.com/stretchr/testify/assert"
)

func gridMap() *spectrum.Map {
	var specs []*spectrum.Spectrum
	for i := 0; i < 10; i++ {
		var peaks []spectrum.Peak
		for j := 0; j < 10; j++ {
			peaks = append(peaks, spectrum.Peak{MZ: 100 + float64(j)*50, Intensity: float32((j + 1) * 100)})
		}
		specs = append(specs, spectrum.NewSpectrum(float64(i), 1, "scan", peaks, 1, 1))
	}
	return spectrum.NewMap(specs)
}

func TestLocalIntensityScorerHighIntensityScoresHigherThanLow(t *testing.T) {
	m := gridMap()
	s := score.NewLocalIntensityScorer(m, 4)

	low := s.Score(5, 100, 50)
	high := s.Score(5, 100, 900)
	assert.Less(t, low, high)
}

func TestLocalIntensityScorerIsBoundedToUnitInterval(t *testing.T) {
	m := gridMap()
	s := score.NewLocalIntensityScorer(m, 4)

	v := s.Score(5, 550, 1e9)
	assert.LessOrEqual(t, v, 1.0)
	assert.GreaterOrEqual(t, v, 0.0)
}

func TestLocalIntensityScorerClampsBinCountBelowOne(t *testing.T) {
	m := gridMap()
	// Must not panic with a degenerate bin count.
	assert.NotPanics(t, func() {
		score.NewLocalIntensityScorer(m, 0)
	})
}
