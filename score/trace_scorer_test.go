// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package score_test

import (
	"testing"

	"github.com/kortschak/msdeconv/score"
	"github.com/kortschak/msdeconv/spectrum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantTraceMap(n int, mz float64, intensity float32) *spectrum.Map {
	specs := make([]*spectrum.Spectrum, n)
	for i := 0; i < n; i++ {
		specs[i] = spectrum.NewSpectrum(float64(i), 1, "scan", []spectrum.Peak{{MZ: mz, Intensity: intensity}}, 1, 1)
	}
	return spectrum.NewMap(specs)
}

func TestTraceScorerSkipsEdgeSpectra(t *testing.T) {
	m := constantTraceMap(7, 500, 100)
	ts := score.TraceScorer{MinSpectra: 2, TraceTolerance: 0.01}
	ts.Score(m)

	// First and last MinSpectra scans are left untouched (zero trace
	// score, local_max unset).
	edge := m.Spectrum(0).Track(spectrum.TraceScore)
	assert.Equal(t, 0.0, edge[0])
}

func TestTraceScorerGivesHighScoreForStableTrace(t *testing.T) {
	m := constantTraceMap(7, 500, 100)
	ts := score.TraceScorer{MinSpectra: 2, TraceTolerance: 0.01}
	ts.Score(m)

	mid := m.Spectrum(3)
	traceScore := mid.Track(spectrum.TraceScore)
	require.Len(t, traceScore, 1)
	assert.InDelta(t, 1.0, traceScore[0], 1e-9)

	localMax := mid.Track(spectrum.LocalMax)
	assert.True(t, score.IsLocalMax(localMax[0]))
}

func TestTraceScorerFlagsNonMaximumWhenNeighborStronger(t *testing.T) {
	m := constantTraceMap(7, 500, 100)
	// Bump one neighbor's intensity above the center peak so the center
	// is no longer the local maximum.
	m.Spectrum(2).Peaks[0].Intensity = 1000

	ts := score.TraceScorer{MinSpectra: 2, TraceTolerance: 0.01}
	ts.Score(m)

	localMax := m.Spectrum(3).Track(spectrum.LocalMax)
	assert.False(t, score.IsLocalMax(localMax[0]))
}

func TestIsLocalMaxInterpretsTrackValue(t *testing.T) {
	assert.True(t, score.IsLocalMax(1))
	assert.False(t, score.IsLocalMax(0))
}
