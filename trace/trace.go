// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trace implements mass traces - one isotopologue's elution
// profile across consecutive spectra - their bundling into MassTraces,
// bidirectional extension, and convex hull geometry.
package trace

import (
	"math"

	"github.com/kortschak/msdeconv/spectrum"
)

// PeakRef is a non-owning reference to a peak in a Map.
type PeakRef struct {
	SpectrumIndex int
	PeakIndex     int
}

// Point is one (rt, peak) element of a MassTrace.
type Point struct {
	RT        float64
	Ref       PeakRef
	MZ        float64
	Intensity float32
}

// MassTrace is the ordered set of peaks, one per spectrum, that make up
// a single isotopologue's elution profile.
type MassTrace struct {
	IsotopeIndex int
	Points       []Point
}

// Valid reports whether t has the minimum 3 peaks required to be usable.
func (t *MassTrace) Valid() bool { return len(t.Points) >= 3 }

// AvgMZ is the intensity-weighted mean m/z of t's points.
func (t *MassTrace) AvgMZ() float64 {
	var num, den float64
	for _, p := range t.Points {
		w := float64(p.Intensity)
		num += w * p.MZ
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// MaxPeak returns the highest-intensity point of t.
func (t *MassTrace) MaxPeak() Point {
	best := t.Points[0]
	for _, p := range t.Points[1:] {
		if p.Intensity > best.Intensity {
			best = p
		}
	}
	return best
}

// RTBounds returns the [min, max] retention time spanned by t.
func (t *MassTrace) RTBounds() (lo, hi float64) {
	lo, hi = t.Points[0].RT, t.Points[0].RT
	for _, p := range t.Points[1:] {
		if p.RT < lo {
			lo = p.RT
		}
		if p.RT > hi {
			hi = p.RT
		}
	}
	return lo, hi
}

// Hull returns the convex hull of t's (RT, m/z) point cloud.
func (t *MassTrace) Hull() []Vec {
	pts := make([]Vec, len(t.Points))
	for i, p := range t.Points {
		pts[i] = Vec{X: p.RT, Y: p.MZ}
	}
	return ConvexHull(pts)
}

// Width is the RT extent of t: its maximum minus its minimum retention
// time.
func (t *MassTrace) Width() float64 {
	lo, hi := t.RTBounds()
	return hi - lo
}

// Bundle is a MassTraces bundle: the set of isotopologue traces that
// together make up one feature candidate, plus the shared baseline
// intensity and the index of the theoretically most-abundant trace.
type Bundle struct {
	Traces   []*MassTrace
	Baseline float64
	MaxTrace int
}

// Valid reports whether b has at least 2 traces and seedMZ lies within
// tol of some trace's AvgMZ.
func (b *Bundle) Valid(seedMZ, tol float64) bool {
	if len(b.Traces) < 2 {
		return false
	}
	for _, t := range b.Traces {
		if math.Abs(t.AvgMZ()-seedMZ) <= tol {
			return true
		}
	}
	return false
}

// RTBounds is the union of all traces' RT bounds.
func (b *Bundle) RTBounds() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, t := range b.Traces {
		tl, th := t.RTBounds()
		if tl < lo {
			lo = tl
		}
		if th > hi {
			hi = th
		}
	}
	return lo, hi
}

// PeakIntensity looks up the intensity of ref in m, for callers that
// only carry a PeakRef.
func PeakIntensity(m *spectrum.Map, ref PeakRef) float32 {
	return m.Spectrum(ref.SpectrumIndex).Peaks[ref.PeakIndex].Intensity
}
