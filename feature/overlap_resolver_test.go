// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package feature_test

import (
	"testing"

	"github.com/kortschak/msdeconv/feature"
	"github.com/kortschak/msdeconv/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hullBox(rtLo, rtHi, mzLo, mzHi float64) [][]trace.Vec {
	return [][]trace.Vec{{{X: rtLo, Y: mzLo}, {X: rtHi, Y: mzHi}}}
}

func TestResolveKeepsNonOverlappingFeatures(t *testing.T) {
	a := &feature.Feature{RT: 10, MZ: 500, Intensity: 100, Charge: 2, ConvexHulls: hullBox(9, 11, 499.9, 500.1)}
	b := &feature.Feature{RT: 50, MZ: 800, Intensity: 50, Charge: 2, ConvexHulls: hullBox(49, 51, 799.9, 800.1)}

	r := feature.OverlapResolver{MaxIntersection: 0.35}
	survivors := r.Resolve([]*feature.Feature{a, b})

	require.Len(t, survivors, 2)
}

func TestResolveMergesSameChargeOverlap(t *testing.T) {
	strong := &feature.Feature{RT: 10, MZ: 500, Intensity: 100, Charge: 2, OverallQuality: 0.9, ConvexHulls: hullBox(8, 12, 499.99, 500.01)}
	weak := &feature.Feature{RT: 10, MZ: 500.005, Intensity: 10, Charge: 2, OverallQuality: 0.5, ConvexHulls: hullBox(8, 12, 499.99, 500.01)}

	r := feature.OverlapResolver{MaxIntersection: 0.1}
	survivors := r.Resolve([]*feature.Feature{strong, weak})

	require.Len(t, survivors, 1)
	assert.Equal(t, 100.0, survivors[0].Intensity)
	require.Len(t, survivors[0].Subordinates, 1)
}

func TestResolveKeepsTrueChargeOverHarmonic(t *testing.T) {
	// charge 2 is a harmonic of the true charge-4 feature at the same
	// location: the charge-4 feature should survive regardless of
	// intensity.
	harmonic := &feature.Feature{RT: 10, MZ: 500, Intensity: 1000, Charge: 2, ConvexHulls: hullBox(8, 12, 499.99, 500.01)}
	trueCharge := &feature.Feature{RT: 10, MZ: 500.002, Intensity: 10, Charge: 4, ConvexHulls: hullBox(8, 12, 499.99, 500.01)}

	r := feature.OverlapResolver{MaxIntersection: 0.1}
	survivors := r.Resolve([]*feature.Feature{harmonic, trueCharge})

	require.Len(t, survivors, 1)
	assert.Equal(t, 4, survivors[0].Charge)
}

func TestResolveSortsSurvivorsByIntensityDescending(t *testing.T) {
	a := &feature.Feature{RT: 1, MZ: 100, Intensity: 5, Charge: 1, ConvexHulls: hullBox(0, 2, 99.9, 100.1)}
	b := &feature.Feature{RT: 1, MZ: 900, Intensity: 500, Charge: 1, ConvexHulls: hullBox(0, 2, 899.9, 900.1)}

	r := feature.OverlapResolver{MaxIntersection: 0.35}
	survivors := r.Resolve([]*feature.Feature{a, b})

	require.Len(t, survivors, 2)
	assert.Equal(t, 500.0, survivors[0].Intensity)
}
