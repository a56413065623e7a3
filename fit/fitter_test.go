// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fit_test

import (
	"math"
	"testing"

	"github.com/kortschak/msdeconv/fit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussObservations(height, x0, sigma float64, n int) []fit.Observation {
	obs := make([]fit.Observation, n)
	for i := 0; i < n; i++ {
		rt := x0 - 3*sigma + float64(i)*(6*sigma)/float64(n-1)
		z := (rt - x0) / sigma
		intensity := height * math.Exp(-0.5*z*z)
		obs[i] = fit.Observation{TraceIndex: 0, RT: rt, Intensity: intensity, TheoWeight: 1}
	}
	return obs
}

func TestFitRecoversGaussParameters(t *testing.T) {
	obs := gaussObservations(1000, 50, 2, 25)
	f := fit.NewFitter(fit.Gauss, 0)
	err := f.Fit(obs, 200)
	require.NoError(t, err)

	assert.InDelta(t, 1000, f.Height(), 5)
	assert.InDelta(t, 50, f.Center(), 0.05)
	assert.InDelta(t, 2, f.Sigma(), 0.05)
	assert.Equal(t, 0.0, f.Tau())
}

func TestFitEmptyObservationsErrors(t *testing.T) {
	f := fit.NewFitter(fit.Gauss, 0)
	err := f.Fit(nil, 50)
	assert.Error(t, err)
}

func TestGaussFWHM(t *testing.T) {
	obs := gaussObservations(1000, 50, 2, 25)
	f := fit.NewFitter(fit.Gauss, 0)
	require.NoError(t, f.Fit(obs, 200))

	want := 2 * math.Sqrt(2*math.Ln2) * 2
	assert.InDelta(t, want, f.FWHM(), 0.2)
}

func TestGaussAreaMatchesAnalyticForm(t *testing.T) {
	obs := gaussObservations(1000, 50, 2, 25)
	f := fit.NewFitter(fit.Gauss, 0)
	require.NoError(t, f.Fit(obs, 200))

	want := f.Height() * f.Sigma() * math.Sqrt(2*math.Pi)
	assert.InDelta(t, want, f.Area(), 1)
}

func TestCheckMaximalAndMinimalRTSpan(t *testing.T) {
	obs := gaussObservations(1000, 50, 2, 25)
	f := fit.NewFitter(fit.Gauss, 0)
	require.NoError(t, f.Fit(obs, 200))

	assert.True(t, f.CheckMaximalRTSpan(0.01, 1))
	assert.False(t, f.CheckMaximalRTSpan(100, 1))

	assert.True(t, f.CheckMinimalRTSpan([2]float64{49.9, 50.1}, 100))
	assert.False(t, f.CheckMinimalRTSpan([2]float64{0, 100}, 0.01))
}

func TestEGHFitRecoversSymmetricGaussAsSpecialCase(t *testing.T) {
	obs := gaussObservations(1000, 50, 2, 25)
	f := fit.NewFitter(fit.EGH, 0)
	require.NoError(t, f.Fit(obs, 300))

	assert.InDelta(t, 50, f.Center(), 0.2)
	assert.InDelta(t, 0, f.Tau(), 0.5)
}
