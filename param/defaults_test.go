// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param_test

import (
	"testing"

	"github.com/kortschak/msdeconv/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFinderDefaultsResolve(t *testing.T) {
	tr := param.NewFeatureFinderDefaults()

	chargeLow, err := tr.Int("isotopic_pattern:charge_low")
	require.NoError(t, err)
	assert.Equal(t, 1, chargeLow)

	shape, err := tr.GetString("feature:rt_shape")
	require.NoError(t, err)
	assert.Equal(t, "symmetric", shape)

	reportedMZ, err := tr.GetString("feature:reported_mz")
	require.NoError(t, err)
	assert.Equal(t, "monoisotopic", reportedMZ)
}

func TestFeatureFinderDefaultsOverride(t *testing.T) {
	tr := param.NewFeatureFinderDefaults()
	require.NoError(t, tr.Set("feature:rt_shape", param.Value{S: "asymmetric"}))
	shape, err := tr.GetString("feature:rt_shape")
	require.NoError(t, err)
	assert.Equal(t, "asymmetric", shape)

	assert.Error(t, tr.Set("feature:rt_shape", param.Value{S: "triangular"}))
}

func TestFlashDeconvDefaultsResolve(t *testing.T) {
	tr := param.NewFlashDeconvDefaults()

	minC, err := tr.Int("minC")
	require.NoError(t, err)
	assert.Equal(t, 1, minC)

	scans, err := tr.Int("num_overlapped_scans")
	require.NoError(t, err)
	assert.Equal(t, 10, scans)
}
