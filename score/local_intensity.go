// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package score implements the per-peak evidence scorers shared by the
// feature finder's seed selection stage: local intensity significance,
// same-mass-trace evidence across adjacent spectra, and isotope-pattern
// evidence per candidate charge.
package score

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kortschak/msdeconv/spectrum"
)

// nQuantiles is the number of vigintile points stored per cell: 0%, 5%,
// ..., 100%.
const nQuantiles = 21

// LocalIntensityScorer divides a Map into an N x N grid of RT x m/z
// cells and, for each cell, records 21 quantiles of the intensities of
// the peaks that fall in it. Score looks up an inverse-distance-weighted
// (over the four surrounding cells),
// vigintile-interpolated significance in [0, 1] for an arbitrary
// (rt, mz, intensity) triple.
type LocalIntensityScorer struct {
	bins int

	rtLo, rtHi float64
	mzLo, mzHi float64

	// quantiles[r][c] holds nQuantiles ascending values, zero for an
	// empty cell.
	quantiles [][][]float64
}

// NewLocalIntensityScorer builds the quantile grid for m, using bins
// cells per axis (intensity:bins).
func NewLocalIntensityScorer(m *spectrum.Map, bins int) *LocalIntensityScorer {
	if bins < 1 {
		bins = 1
	}
	s := &LocalIntensityScorer{
		bins: bins,
		rtLo: m.MinRT(), rtHi: m.MaxRT(),
		mzLo: m.MinMZ(), mzHi: m.MaxMZ(),
	}
	s.quantiles = make([][][]float64, bins)
	buckets := make([][][]float64, bins)
	for r := 0; r < bins; r++ {
		s.quantiles[r] = make([][]float64, bins)
		buckets[r] = make([][]float64, bins)
	}

	for i := 0; i < m.Len(); i++ {
		sp := m.Spectrum(i)
		r := s.rtCell(sp.RT)
		for _, p := range sp.Peaks {
			c := s.mzCell(p.MZ)
			buckets[r][c] = append(buckets[r][c], float64(p.Intensity))
		}
	}

	for r := 0; r < bins; r++ {
		for c := 0; c < bins; c++ {
			vals := buckets[r][c]
			if len(vals) == 0 {
				s.quantiles[r][c] = make([]float64, nQuantiles)
				continue
			}
			sort.Float64s(vals)
			qs := make([]float64, nQuantiles)
			for k := 0; k < nQuantiles; k++ {
				p := float64(k) / float64(nQuantiles-1)
				qs[k] = stat.Quantile(p, stat.LinInterp, vals, nil)
			}
			s.quantiles[r][c] = qs
		}
	}
	return s
}

func (s *LocalIntensityScorer) rtFrac(rt float64) float64 {
	if s.rtHi == s.rtLo {
		return 0
	}
	f := (rt - s.rtLo) / (s.rtHi - s.rtLo)
	return clamp01(f)
}

func (s *LocalIntensityScorer) mzFrac(mz float64) float64 {
	if s.mzHi == s.mzLo {
		return 0
	}
	f := (mz - s.mzLo) / (s.mzHi - s.mzLo)
	return clamp01(f)
}

func (s *LocalIntensityScorer) rtCell(rt float64) int {
	return clampIdx(int(s.rtFrac(rt)*float64(s.bins)), s.bins)
}

func (s *LocalIntensityScorer) mzCell(mz float64) int {
	return clampIdx(int(s.mzFrac(mz)*float64(s.bins)), s.bins)
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Score returns a significance in [0, 1] for a peak of the given
// intensity observed at (rt, mz). The map is doubled so each peak lies
// between four half-bin centers, weights to those four
// neighbor cells are Euclidean in normalized bin units, and within each
// cell a vigintile-interpolated score is computed before the weighted
// average is taken.
func (s *LocalIntensityScorer) Score(rt, mz float64, intensity float64) float64 {
	n := float64(s.bins)
	fr := s.rtFrac(rt) * n
	fc := s.mzFrac(mz) * n

	// Fractional position within the doubled grid: each peak sits
	// between the centers of up to 4 neighboring cells, offset by half
	// a cell.
	rPos := fr - 0.5
	cPos := fc - 0.5

	rl := clampIdx(int(math.Floor(rPos)), s.bins)
	rh := clampIdx(rl+1, s.bins)
	cl := clampIdx(int(math.Floor(cPos)), s.bins)
	ch := clampIdx(cl+1, s.bins)

	type neighbor struct {
		r, c   int
		dr, dc float64
	}
	neighbors := [4]neighbor{
		{rl, cl, rPos - float64(rl), cPos - float64(cl)},
		{rl, ch, rPos - float64(rl), cPos - float64(ch)},
		{rh, cl, rPos - float64(rh), cPos - float64(cl)},
		{rh, ch, rPos - float64(rh), cPos - float64(ch)},
	}

	var weights [4]float64
	var sumW float64
	for i, nb := range neighbors {
		d := math.Hypot(nb.dr, nb.dc)
		w := 1 / (1 + d)
		weights[i] = w
		sumW += w
	}
	if sumW == 0 {
		sumW = 1
	}

	var total float64
	for i, nb := range neighbors {
		cellScore := cellScore(s.quantiles[nb.r][nb.c], intensity)
		total += weights[i] / sumW * cellScore
	}
	return clamp01(total)
}

// cellScore applies vigintile interpolation within one cell's 21-point
// quantile table.
func cellScore(q []float64, intensity float64) float64 {
	if len(q) == 0 {
		return 0
	}
	if q[0] == 0 && allZero(q) {
		return 0
	}
	i := sort.Search(len(q), func(i int) bool { return q[i] >= intensity })
	switch {
	case i == 0:
		if q[0] == 0 {
			return 0
		}
		return clamp01(0.05 * intensity / q[0])
	case i == len(q):
		return 1
	default:
		qLo, qHi := q[i-1], q[i]
		frac := 0.0
		if qHi > qLo {
			frac = (intensity - qLo) / (qHi - qLo)
		}
		return clamp01(0.05*float64(i-1) + 0.05*frac)
	}
}

func allZero(q []float64) bool {
	for _, v := range q {
		if v != 0 {
			return false
		}
	}
	return true
}
