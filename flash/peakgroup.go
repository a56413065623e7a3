// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flash

import (
	"math"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/kortschak/msdeconv/isotope"
	"github.com/kortschak/msdeconv/spectrum"
)

// maxIsotopeExtend bounds bidirectional isotopologue recruitment when no
// explicit MaxIsotopeCount is configured, guarding against runaway
// extension through a dense, noisy spectrum.
const maxIsotopeExtend = 50

// HarmonicPeak is one m/z peak recruited into a PeakGroup: its source
// peak index, observed m/z, intensity, the charge hypothesis that placed
// it there and its isotopologue index relative to the group's
// monoisotopic peak.
type HarmonicPeak struct {
	PeakIndex    int
	MZ           float64
	Intensity    float32
	Charge       int
	IsotopeIndex int
}

// PeakGroup is one deconvolved mass: every observed peak recruited under
// any qualifying charge, plus the scores computed over it by
// DeconvScorer.
type PeakGroup struct {
	SpecIndex int
	Mass      float64
	MonoMass  float64
	MinCharge int
	MaxCharge int

	Peaks []HarmonicPeak

	IsotopeCosine   float64
	ChargeDistScore int32
	SNR             float64
	QScore          float64
}

// Intensity sums every recruited peak's intensity.
func (g *PeakGroup) Intensity() float64 {
	var s float64
	for _, p := range g.Peaks {
		s += float64(p.Intensity)
	}
	return s
}

// extractPeakGroups walks the set mass bins and, for each, recruits the
// highest-intensity anchor peak under every qualifying charge and
// extends it to its isotopologues in both directions, clearing any
// isotopologue's own, differently-mapped mass bin from massBins and
// union so the same observed peak cannot seed two competing groups.
func (e *Engine) extractPeakGroups(st *spectrumState, massBins *bitset.BitSet, union *bitset.BitSet, chargeRange map[int][2]int, specIndex int) []PeakGroup {
	maxExtend := e.cfg.MaxIsotopeCount
	if maxExtend <= 0 {
		maxExtend = maxIsotopeExtend
	}

	var groups []PeakGroup
	for mi, cr := range chargeRange {
		if !massBins.Test(uint(mi)) {
			continue
		}
		mass := math.Exp(e.valueOf(mi, st.massMin))
		if mass < e.cfg.MinMass || mass > e.cfg.MaxMass {
			continue
		}

		g := PeakGroup{
			SpecIndex: specIndex,
			Mass:      mass,
			MinCharge: cr[0],
			MaxCharge: cr[1],
		}
		minOffset := 0
		for charge := cr[0]; charge <= cr[1]; charge++ {
			j := charge - e.cfg.MinCharge
			if j < 0 || j >= len(e.filter) {
				continue
			}
			off := e.binOffset(j, st.mzMin, st.massMin)
			anchorBin := uint(mi - off)
			anchorIdx, ok := st.mzBinOf[anchorBin]
			if !ok {
				continue
			}

			mzNatural := mass/float64(charge) + spectrum.ProtonMass
			step := spectrum.IsotopeSpacing / (float64(charge) * mzNatural)

			recruited := []HarmonicPeak{peakAt(st.peaks[anchorIdx], charge, 0)}
			groupMin := 0

			for k := 1; k <= maxExtend; k++ {
				idx, ok := e.nearestPeak(st, st.logMZ[anchorIdx]+step*float64(k))
				if !ok {
					break
				}
				recruited = append(recruited, peakAt(st.peaks[idx], charge, k))
				e.clearForeignBin(st, idx, off, mi, massBins, union)
			}
			for k := -1; k >= -maxExtend; k-- {
				idx, ok := e.nearestPeak(st, st.logMZ[anchorIdx]+step*float64(k))
				if !ok {
					break
				}
				recruited = append(recruited, peakAt(st.peaks[idx], charge, k))
				e.clearForeignBin(st, idx, off, mi, massBins, union)
				if k < groupMin {
					groupMin = k
				}
			}

			g.Peaks = append(g.Peaks, recruited...)
			if groupMin < minOffset {
				minOffset = groupMin
			}
		}
		if len(g.Peaks) == 0 {
			continue
		}
		if minOffset != 0 {
			for i := range g.Peaks {
				g.Peaks[i].IsotopeIndex -= minOffset
			}
		}
		sort.Slice(g.Peaks, func(i, j int) bool {
			if g.Peaks[i].Charge != g.Peaks[j].Charge {
				return g.Peaks[i].Charge < g.Peaks[j].Charge
			}
			return g.Peaks[i].IsotopeIndex < g.Peaks[j].IsotopeIndex
		})
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Mass < groups[j].Mass })
	return groups
}

func peakAt(p SpectrumPeak, charge, isotopeIndex int) HarmonicPeak {
	return HarmonicPeak{
		PeakIndex:    p.PeakIndex,
		MZ:           p.MZ,
		Intensity:    p.Intensity,
		Charge:       charge,
		IsotopeIndex: isotopeIndex,
	}
}

// nearestPeak returns the index, into st.peaks, of the set m/z bin
// closest to targetLogMZ within one binWidth tolerance window, searching
// the bin that target falls into and its immediate neighbors.
func (e *Engine) nearestPeak(st *spectrumState, targetLogMZ float64) (int, bool) {
	tol := 2 / e.binWidth
	targetBin := e.binOf(targetLogMZ, st.mzMin)
	best := -1
	bestDiff := math.Inf(1)
	for d := -1; d <= 1; d++ {
		b := targetBin + d
		if b < 0 || uint(b) >= st.mzBins.Len() || !st.mzBins.Test(uint(b)) {
			continue
		}
		idx := st.mzBinOf[uint(b)]
		diff := math.Abs(st.logMZ[idx] - targetLogMZ)
		if diff < bestDiff {
			bestDiff, best = diff, idx
		}
	}
	if best < 0 || bestDiff > tol {
		return 0, false
	}
	return best, true
}

// clearForeignBin clears the mass bin that peak idx would map to under
// charge offset off, if it differs from the group's own mass bin mi,
// from both massBins and the prior-scan union so that an isotopologue
// recruited into one group cannot also seed a competing group of its
// own.
func (e *Engine) clearForeignBin(st *spectrumState, idx, off, mi int, massBins, union *bitset.BitSet) {
	pBin := uint(e.binOf(st.logMZ[idx], st.mzMin))
	mi2 := int(pBin) + off
	if mi2 == mi {
		return
	}
	if mi2 >= 0 && uint(mi2) < massBins.Len() {
		massBins.Clear(uint(mi2))
	}
	if union != nil && mi2 >= 0 && uint(mi2) < union.Len() {
		union.Clear(uint(mi2))
	}
}

// DeconvScorer computes the isotope-cosine and charge-distribution
// scores that qualify and rank PeakGroups, and assigns MonoMass from the
// offset-aligned isotope envelope.
type DeconvScorer struct {
	Model *isotope.Model

	MinContinuousChargePeakPairCount int
	MinContinuousIsotopeCount        int

	MinIsotopeCosine   float64
	MinChargeDistScore int32
}

// Score qualifies g by the longest continuous run of nonzero per-charge
// and per-isotope intensity, then computes IsotopeCosine (searching for
// the best-aligned offset against the averagine model and shifting every
// peak's IsotopeIndex accordingly), ChargeDistScore and MonoMass,
// reporting whether g clears both score thresholds.
func (s DeconvScorer) Score(g *PeakGroup) bool {
	if len(g.Peaks) == 0 {
		return false
	}

	ic := s.chargeIntensities(g)
	if longestNonzeroRun(ic) < s.MinContinuousChargePeakPairCount {
		return false
	}
	ii := s.isotopeIntensities(g)
	if longestNonzeroRun(ii) < s.MinContinuousIsotopeCount {
		return false
	}

	cos, bestOffset := s.isotopeCosine(g.Mass, ii)
	g.IsotopeCosine = cos
	if bestOffset != 0 {
		for i := range g.Peaks {
			g.Peaks[i].IsotopeIndex -= bestOffset
		}
	}
	g.ChargeDistScore = chargeDistScore(ic)
	g.MonoMass = monoisotopicMass(g.Peaks)

	return g.IsotopeCosine >= s.MinIsotopeCosine && g.ChargeDistScore >= s.MinChargeDistScore
}

// chargeIntensities returns summed intensity per charge, indexed from
// g.MinCharge.
func (s DeconvScorer) chargeIntensities(g *PeakGroup) []float64 {
	if g.MaxCharge < g.MinCharge {
		return nil
	}
	ic := make([]float64, g.MaxCharge-g.MinCharge+1)
	for _, p := range g.Peaks {
		i := p.Charge - g.MinCharge
		if i >= 0 && i < len(ic) {
			ic[i] += float64(p.Intensity)
		}
	}
	return ic
}

// isotopeIntensities returns summed intensity per isotope index, indexed
// from 0 (the group's current, pre-offset-search monoisotope guess).
func (s DeconvScorer) isotopeIntensities(g *PeakGroup) []float64 {
	maxIdx := 0
	for _, p := range g.Peaks {
		if p.IsotopeIndex > maxIdx {
			maxIdx = p.IsotopeIndex
		}
	}
	ii := make([]float64, maxIdx+1)
	for _, p := range g.Peaks {
		if p.IsotopeIndex >= 0 && p.IsotopeIndex < len(ii) {
			ii[p.IsotopeIndex] += float64(p.Intensity)
		}
	}
	return ii
}

// longestNonzeroRun returns the length of the longest run of
// consecutive nonzero entries in v.
func longestNonzeroRun(v []float64) int {
	best, cur := 0, 0
	for _, x := range v {
		if x != 0 {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

// isotopeCosine searches offsets f in [-(mostAbundantIndex)+1, 3] for the
// alignment of observed against the averagine pattern for mass that
// maximizes cosine similarity, returning the best score and the offset
// that achieved it.
func (s DeconvScorer) isotopeCosine(mass float64, observed []float64) (float64, int) {
	pat := s.Model.Get(mass)
	if pat.Size() == 0 || len(observed) == 0 {
		return 0, 0
	}
	kStar := pat.MostAbundantIndex()
	lo, hi := -kStar+1, 3
	if lo > hi {
		lo = hi
	}

	bestScore := -1.0
	bestOffset := 0
	for f := lo; f <= hi; f++ {
		c := cosineAt(observed, pat.Intensities, f)
		if c > bestScore {
			bestScore, bestOffset = c, f
		}
	}
	return bestScore, bestOffset
}

// cosineAt computes cosine similarity between theo and observed shifted
// by f: theo[i] is compared against observed[i+f], treating any
// out-of-range observed index as zero.
func cosineAt(observed, theo []float64, f int) float64 {
	var dot, no, nt float64
	for i, tv := range theo {
		var ov float64
		j := i + f
		if j >= 0 && j < len(observed) {
			ov = observed[j]
		}
		dot += ov * tv
		no += ov * ov
		nt += tv * tv
	}
	if no == 0 || nt == 0 {
		return 0
	}
	return dot / math.Sqrt(no*nt)
}

// monoisotopicMass returns the neutral monoisotopic mass implied by the
// highest-intensity recruited peak: its neutral mass minus
// isotope_index isotope spacings.
func monoisotopicMass(peaks []HarmonicPeak) float64 {
	if len(peaks) == 0 {
		return 0
	}
	best := peaks[0]
	for _, p := range peaks[1:] {
		if p.Intensity > best.Intensity {
			best = p
		}
	}
	neutral := (best.MZ - spectrum.ProtonMass) * float64(best.Charge)
	return neutral - float64(best.IsotopeIndex)*spectrum.IsotopeSpacing
}

// chargeDistScore walks outward from the charge with maximum summed
// intensity, scoring +1 per monotonically non-increasing step, -1 per
// anti-monotone step and -2 per zero-intensity charge.
func chargeDistScore(ic []float64) int32 {
	if len(ic) == 0 {
		return 0
	}
	m := 0
	for i, v := range ic {
		if v > ic[m] {
			m = i
		}
	}

	var score int32
	prev := ic[m]
	for i := m + 1; i < len(ic); i++ {
		cur := ic[i]
		switch {
		case cur == 0:
			score -= 2
		case cur <= prev:
			score++
		default:
			score--
		}
		prev = cur
	}
	prev = ic[m]
	for i := m - 1; i >= 0; i-- {
		cur := ic[i]
		switch {
		case cur == 0:
			score -= 2
		case cur <= prev:
			score++
		default:
			score--
		}
		prev = cur
	}
	return score
}
