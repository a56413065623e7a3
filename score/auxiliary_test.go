// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package score_test

import (
	"testing"

	"github.com/kortschak/msdeconv/isotope"
	"github.com/kortschak/msdeconv/score"
	"github.com/stretchr/testify/assert"
)

func TestPositionScoreExact(t *testing.T) {
	assert.Equal(t, 1.0, score.PositionScore(100, 100, 0.1))
}

func TestPositionScoreWithinHalfTolerance(t *testing.T) {
	got := score.PositionScore(100, 100.02, 0.1)
	assert.Greater(t, got, 0.9)
	assert.LessOrEqual(t, got, 1.0)
}

func TestPositionScoreBeyondTolerance(t *testing.T) {
	assert.Equal(t, 0.0, score.PositionScore(100, 101, 0.1))
}

func TestPositionScoreZeroToleranceMismatch(t *testing.T) {
	assert.Equal(t, 0.0, score.PositionScore(100, 100.001, 0))
}

func TestIsotopeCosinePerfectMatch(t *testing.T) {
	theo := isotope.Pattern{Intensities: []float64{1, 0.6, 0.3}, OptionalBegin: 0, OptionalEnd: 0}
	obs := score.ObservedPattern{
		PeakIndex: []int{0, 1, 2},
		Intensity: []float64{1, 0.6, 0.3},
	}
	res := score.IsotopeCosine(theo, obs, 2.0, 0.95)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Equal(t, 0, res.Begin)
	assert.Equal(t, 3, res.End)
}

func TestIsotopeCosineMissingCorePeakFails(t *testing.T) {
	theo := isotope.Pattern{Intensities: []float64{1, 0.6, 0.3}, OptionalBegin: 0, OptionalEnd: 0}
	obs := score.ObservedPattern{
		PeakIndex: []int{0, -1, 2},
		Intensity: []float64{1, 0, 0.3},
	}
	res := score.IsotopeCosine(theo, obs, 2.0, 0.95)
	assert.Equal(t, 0.0, res.Score)
}

func TestIsotopeCosineDropsOptionalPeakToImproveFit(t *testing.T) {
	// The optional trailing peak is noisy; dropping it should improve
	// the score enough to clear optionalFitImprovement, and the dropped
	// index should be reported in Removed.
	theo := isotope.Pattern{Intensities: []float64{1, 0.6, 0.3}, OptionalBegin: 0, OptionalEnd: 1}
	obs := score.ObservedPattern{
		PeakIndex: []int{0, 1, 2},
		Intensity: []float64{1, 0.6, 5.0},
	}
	res := score.IsotopeCosine(theo, obs, 2.0, 0.95)
	assert.Equal(t, 0, res.Begin)
	assert.Equal(t, 2, res.End)
	assert.Contains(t, res.Removed, 2)
}

func TestIsotopeCosineEmptyPatternReturnsZero(t *testing.T) {
	res := score.IsotopeCosine(isotope.Pattern{}, score.ObservedPattern{}, 2.0, 0.95)
	assert.Equal(t, score.IsotopeCosineResult{}, res)
}
