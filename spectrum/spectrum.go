// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spectrum holds the immutable-coordinate, mutable-score data
// model shared by the feature finder and FLASHDeconv: centroided peaks,
// spectra carrying parallel per-peak score tracks, and an ordered map of
// spectra over retention time. Parsing of the concrete file formats that
// populate a Map (mzML and friends) is an external collaborator's job;
// this package only defines the in-memory shape and the read/write
// contracts that collaborator and the scoring packages agree on.
package spectrum

import (
	"math"
	"sort"
)

// ProtonMass is the mass of a proton in daltons, used throughout to
// convert between m/z and neutral mass.
const ProtonMass = 1.00727646688

// IsotopeSpacing is the nominal mass difference between adjacent
// isotopologues of a typical organic ion, used as the default isotope
// step in m/z-space searches.
const IsotopeSpacing = 1.00335

// Peak is the atom of input: an m/z-intensity pair. Once read from a
// Spectrum it is immutable.
type Peak struct {
	MZ        float64
	Intensity float32
}

// ScoreTrack names one of the parallel per-peak float arrays carried by
// a Spectrum.
type ScoreTrack int

const (
	TraceScore ScoreTrack = iota
	IntensityScore
	LocalMax
	numFixedTracks
)

// Precursor describes an MSn spectrum's precursor ion.
type Precursor struct {
	MZ     float64
	Charge int
}

// Spectrum is an ordered (by m/z) sequence of centroided peaks together
// with a fixed-shape set of parallel per-peak score arrays. Per-charge
// tracks (PatternScore, OverallScore) are addressed separately since
// their count depends on the configured charge range.
type Spectrum struct {
	RT        float64
	MSLevel   uint8
	NativeID  string
	Precursor *Precursor

	Peaks []Peak

	tracks       [numFixedTracks][]float64
	patternScore map[int][]float64
	overallScore map[int][]float64
	chargeLo     int
	chargeHi     int
}

// NewSpectrum returns a Spectrum over peaks, sorted by m/z, with every
// score array zero-initialized for the charge range [chargeLo, chargeHi].
// peaks must already be sorted by m/z; NewSpectrum does not re-sort them
// since the external I/O collaborator is required to hand over centroided
// peaks in m/z order.
func NewSpectrum(rt float64, msLevel uint8, nativeID string, peaks []Peak, chargeLo, chargeHi int) *Spectrum {
	s := &Spectrum{
		RT:       rt,
		MSLevel:  msLevel,
		NativeID: nativeID,
		Peaks:    peaks,
		chargeLo: chargeLo,
		chargeHi: chargeHi,
	}
	for i := range s.tracks {
		s.tracks[i] = make([]float64, len(peaks))
	}
	s.patternScore = make(map[int][]float64, chargeHi-chargeLo+1)
	s.overallScore = make(map[int][]float64, chargeHi-chargeLo+1)
	for c := chargeLo; c <= chargeHi; c++ {
		s.patternScore[c] = make([]float64, len(peaks))
		s.overallScore[c] = make([]float64, len(peaks))
	}
	return s
}

// Len is the peak count.
func (s *Spectrum) Len() int { return len(s.Peaks) }

// Track returns the named fixed score array, indexable in parallel with
// Peaks.
func (s *Spectrum) Track(t ScoreTrack) []float64 { return s.tracks[t] }

// PatternScore returns the per-charge isotope pattern score array for
// charge c, or nil if c is outside the spectrum's configured range.
func (s *Spectrum) PatternScore(c int) []float64 { return s.patternScore[c] }

// OverallScore returns the per-charge overall (seed) score array for
// charge c, or nil if c is outside the spectrum's configured range.
func (s *Spectrum) OverallScore(c int) []float64 { return s.overallScore[c] }

// Charges returns the inclusive [lo, hi] charge range this spectrum's
// per-charge tracks were allocated for.
func (s *Spectrum) Charges() (lo, hi int) { return s.chargeLo, s.chargeHi }

// FindNearest returns the index of the peak whose m/z is closest to mz,
// or -1 if the spectrum has no peaks. Peaks are assumed sorted by m/z.
func (s *Spectrum) FindNearest(mz float64) int {
	if len(s.Peaks) == 0 {
		return -1
	}
	i := sort.Search(len(s.Peaks), func(i int) bool { return s.Peaks[i].MZ >= mz })
	switch {
	case i == 0:
		return 0
	case i == len(s.Peaks):
		return len(s.Peaks) - 1
	default:
		if mz-s.Peaks[i-1].MZ <= s.Peaks[i].MZ-mz {
			return i - 1
		}
		return i
	}
}

// Map is an ordered-by-RT sequence of spectra with immutable coordinates
// and mutable score arrays. A Map owns its spectra.
type Map struct {
	spectra []*Spectrum
}

// NewMap returns a Map over spectra, which must already be in ascending
// RT order.
func NewMap(spectra []*Spectrum) *Map {
	return &Map{spectra: spectra}
}

// Len is the spectrum count.
func (m *Map) Len() int { return len(m.spectra) }

// Spectrum returns the i-th spectrum in RT order.
func (m *Map) Spectrum(i int) *Spectrum { return m.spectra[i] }

// MinRT and MaxRT are the retention time bounds of the map. They panic on
// an empty map, a programmer-error precondition.
func (m *Map) MinRT() float64 { return m.spectra[0].RT }
func (m *Map) MaxRT() float64 { return m.spectra[len(m.spectra)-1].RT }

// MinMZ and MaxMZ scan every spectrum for the global m/z bounds.
func (m *Map) MinMZ() float64 {
	lo := m.spectra[0].Peaks[0].MZ
	for _, s := range m.spectra {
		if len(s.Peaks) > 0 && s.Peaks[0].MZ < lo {
			lo = s.Peaks[0].MZ
		}
	}
	return lo
}

func (m *Map) MaxMZ() float64 {
	hi := m.spectra[0].Peaks[len(m.spectra[0].Peaks)-1].MZ
	for _, s := range m.spectra {
		if n := len(s.Peaks); n > 0 && s.Peaks[n-1].MZ > hi {
			hi = s.Peaks[n-1].MZ
		}
	}
	return hi
}

// SpectrumIndexAtRT returns the index of the spectrum whose RT is closest
// to rt.
func (m *Map) SpectrumIndexAtRT(rt float64) int {
	i := sort.Search(len(m.spectra), func(i int) bool { return m.spectra[i].RT >= rt })
	switch {
	case i == 0:
		return 0
	case i == len(m.spectra):
		return len(m.spectra) - 1
	default:
		if rt-m.spectra[i-1].RT <= m.spectra[i].RT-rt {
			return i - 1
		}
		return i
	}
}

// AreaPeak is one peak yielded by an area iteration, annotated with its
// owning spectrum and peak index so callers can update score tracks.
type AreaPeak struct {
	SpectrumIndex int
	PeakIndex     int
	RT            float64
	Peak          Peak
}

// AreaIter calls fn for every peak whose (rt, mz) lies within the closed
// rectangle [rtLo, rtHi] x [mzLo, mzHi], in RT then m/z order.
func (m *Map) AreaIter(rtLo, rtHi, mzLo, mzHi float64, fn func(AreaPeak)) {
	lo := sort.Search(len(m.spectra), func(i int) bool { return m.spectra[i].RT >= rtLo })
	for i := lo; i < len(m.spectra); i++ {
		s := m.spectra[i]
		if s.RT > rtHi {
			break
		}
		start := sort.Search(len(s.Peaks), func(j int) bool { return s.Peaks[j].MZ >= mzLo })
		for j := start; j < len(s.Peaks) && s.Peaks[j].MZ <= mzHi; j++ {
			fn(AreaPeak{SpectrumIndex: i, PeakIndex: j, RT: s.RT, Peak: s.Peaks[j]})
		}
	}
}

// LogMzPeak is a peak lifted into log-m/z space under a charge and
// isotope-index hypothesis, as used by the FLASHDeconv bin engine.
// SpectrumIndex/PeakIndex are a non-owning reference into the Map that
// must outlive the deconvolution batch.
type LogMzPeak struct {
	SpectrumIndex int
	PeakIndex     int
	MZ            float64
	Intensity     float32
	LogMZ         float64
	Charge        int16
	IsotopeIndex  int16
}

// NewLogMzPeak lifts p (at the given charge and isotope index) into
// log-m/z space: log_mz = ln(mz - protonMass).
func NewLogMzPeak(spectrumIndex, peakIndex int, p Peak, charge, isotopeIndex int16) LogMzPeak {
	return LogMzPeak{
		SpectrumIndex: spectrumIndex,
		PeakIndex:     peakIndex,
		MZ:            p.MZ,
		Intensity:     p.Intensity,
		LogMZ:         logMZ(p.MZ),
		Charge:        charge,
		IsotopeIndex:  isotopeIndex,
	}
}

func logMZ(mz float64) float64 {
	return math.Log(mz - ProtonMass)
}

// Mass is the derived neutral monoisotopic-shifted mass of the peak:
// exp(log_mz)*charge - isotope_index*IsotopeSpacing.
func (p LogMzPeak) Mass() float64 {
	return math.Exp(p.LogMZ)*float64(p.Charge) - float64(p.IsotopeIndex)*IsotopeSpacing
}
