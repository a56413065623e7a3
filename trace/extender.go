// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"github.com/kortschak/msdeconv/score"
	"github.com/kortschak/msdeconv/spectrum"
)

// Extender performs the bidirectional, slope-bounded extension of a mass
// trace outward from a seed peak.
type Extender struct {
	Map *spectrum.Map

	MinSpectra         int
	MaxMissing         int
	BaseSlopeBound     float64
	MZTolerance        float64
	PatternTolerance   float64
	OverallScoreCutoff float64 // typically 0.01
}

// boundary is an optional hard RT window that, when crossed, terminates
// extension immediately and doubles the slope bound in effect while it
// is active.
type boundary struct {
	has        bool
	rtLo, rtHi float64
}

// extendOneDirection walks from (specIdx, mz) in direction dir (+1 or
// -1), returning the appended points in RT order away from the start.
func (e Extender) extendOneDirection(specIdx int, startMZ float64, charge int, dir int, b boundary) []Point {
	slopeBound := e.BaseSlopeBound
	if b.has {
		slopeBound *= 2
	}

	var deltas []float64
	var out []Point
	lastInt := -1.0
	mz := startMZ
	missing := 0

	for {
		j := specIdx + dir
		if j < 0 || j >= e.Map.Len() {
			break
		}
		sp := e.Map.Spectrum(j)
		if b.has && (sp.RT < b.rtLo || sp.RT > b.rtHi) {
			break
		}

		pi := sp.FindNearest(mz)
		ok := pi >= 0
		if ok {
			overall := sp.OverallScore(charge)
			if overall != nil && overall[pi] < e.OverallScoreCutoff {
				ok = false
			}
			if ok && score.PositionScore(sp.Peaks[pi].MZ, mz, e.MZTolerance) == 0 {
				ok = false
			}
		}
		if !ok {
			missing++
			if missing > e.MaxMissing {
				break
			}
			specIdx = j
			continue
		}

		p := sp.Peaks[pi]
		out = append(out, Point{RT: sp.RT, Ref: PeakRef{SpectrumIndex: j, PeakIndex: pi}, MZ: p.MZ, Intensity: p.Intensity})
		mz = p.MZ
		missing = 0

		if lastInt > 0 {
			delta := (float64(p.Intensity) - lastInt) / lastInt
			deltas = append(deltas, delta)
			if len(deltas) > e.MinSpectra-1 {
				deltas = deltas[len(deltas)-(e.MinSpectra-1):]
			}
		}
		lastInt = float64(p.Intensity)

		if len(deltas) >= e.MinSpectra-1 {
			if mean(deltas) > slopeBound {
				n := e.MinSpectra - 1
				if n > len(out) {
					n = len(out)
				}
				out = out[:len(out)-n]
				break
			}
		}
		specIdx = j
	}

	if dir < 0 {
		reverseInPlace(out)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func reverseInPlace(pts []Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// ExtendAnchor extends the anchor isotopologue (the one with maximum
// observed intensity in the accepted isotope fit) bidirectionally from
// its start spectrum/peak, with no RT boundary.
func (e Extender) ExtendAnchor(specIdx, peakIdx int, charge int) *MassTrace {
	sp := e.Map.Spectrum(specIdx)
	seed := sp.Peaks[peakIdx]

	before := e.extendOneDirection(specIdx, seed.MZ, charge, -1, boundary{})
	after := e.extendOneDirection(specIdx, seed.MZ, charge, +1, boundary{})

	pts := make([]Point, 0, len(before)+1+len(after))
	pts = append(pts, before...)
	pts = append(pts, Point{RT: sp.RT, Ref: PeakRef{SpectrumIndex: specIdx, PeakIndex: peakIdx}, MZ: seed.MZ, Intensity: seed.Intensity})
	pts = append(pts, after...)
	return &MassTrace{Points: pts}
}

// ExtendNonAnchor locates the local-maximum peak nearest theoreticalMZ
// within MinSpectra scans of seedSpecIdx (searching within
// PatternTolerance), then runs two extensions bounded to [rtLo, rtHi].
// It returns nil if no suitable local maximum is found near the seed.
func (e Extender) ExtendNonAnchor(seedSpecIdx int, theoreticalMZ float64, charge int, rtLo, rtHi float64) *MassTrace {
	bestSpec, bestPeak, bestInt := -1, -1, float32(-1)
	lo := seedSpecIdx - e.MinSpectra
	if lo < 0 {
		lo = 0
	}
	hi := seedSpecIdx + e.MinSpectra
	if hi >= e.Map.Len() {
		hi = e.Map.Len() - 1
	}
	for j := lo; j <= hi; j++ {
		sp := e.Map.Spectrum(j)
		pi := sp.FindNearest(theoreticalMZ)
		if pi < 0 {
			continue
		}
		p := sp.Peaks[pi]
		if absf(p.MZ-theoreticalMZ) > e.PatternTolerance {
			continue
		}
		if p.Intensity > bestInt {
			bestSpec, bestPeak, bestInt = j, pi, p.Intensity
		}
	}
	if bestSpec < 0 {
		return nil
	}

	seedSp := e.Map.Spectrum(bestSpec)
	seed := seedSp.Peaks[bestPeak]
	b := boundary{has: true, rtLo: rtLo, rtHi: rtHi}
	before := e.extendOneDirection(bestSpec, seed.MZ, charge, -1, b)
	after := e.extendOneDirection(bestSpec, seed.MZ, charge, +1, b)

	pts := make([]Point, 0, len(before)+1+len(after))
	pts = append(pts, before...)
	pts = append(pts, Point{RT: seedSp.RT, Ref: PeakRef{SpectrumIndex: bestSpec, PeakIndex: bestPeak}, MZ: seed.MZ, Intensity: seed.Intensity})
	pts = append(pts, after...)
	return &MassTrace{Points: pts}
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// BuildBundle extends every isotopologue of a seed's accepted pattern
// around the anchor, enforcing a no-gap rule: a failed non-anchor
// trace before the anchor discards all earlier traces; a failed
// non-anchor trace after the anchor halts further extension.
func (e Extender) BuildBundle(anchorSpecIdx, anchorPeakIdx, anchorIsotopeIndex, charge int, theoreticalMZOf func(isotopeIndex int) float64, size int) *Bundle {
	anchor := e.ExtendAnchor(anchorSpecIdx, anchorPeakIdx, charge)
	anchor.IsotopeIndex = anchorIsotopeIndex
	rtLo, rtHi := anchor.RTBounds()

	traces := make([]*MassTrace, size)
	traces[anchorIsotopeIndex] = anchor

	for idx := anchorIsotopeIndex - 1; idx >= 0; idx-- {
		t := e.ExtendNonAnchor(anchorSpecIdx, theoreticalMZOf(idx), charge, rtLo, rtHi)
		if t == nil || !t.Valid() {
			// Discard this and every earlier (more monoisotopic-ward)
			// trace: no gaps are permitted on the monoisotopic side.
			for j := 0; j <= idx; j++ {
				traces[j] = nil
			}
			break
		}
		t.IsotopeIndex = idx
		traces[idx] = t
	}

	for idx := anchorIsotopeIndex + 1; idx < size; idx++ {
		t := e.ExtendNonAnchor(anchorSpecIdx, theoreticalMZOf(idx), charge, rtLo, rtHi)
		if t == nil || !t.Valid() {
			// Halt: no gaps are permitted after the anchor.
			break
		}
		t.IsotopeIndex = idx
		traces[idx] = t
	}

	var kept []*MassTrace
	maxTrace := 0
	for _, t := range traces {
		if t == nil {
			continue
		}
		if t.IsotopeIndex == anchorIsotopeIndex {
			maxTrace = len(kept)
		}
		kept = append(kept, t)
	}
	return &Bundle{Traces: kept, MaxTrace: maxTrace}
}
