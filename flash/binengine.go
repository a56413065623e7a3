// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flash implements the FLASHDeconv logarithmic-binning core:
// charge hypotheses become constant integer offsets in log-mass bin
// space, so charge deconvolution reduces to shifted-bitset
// intersections, with harmonic-artifact suppression and cross-spectrum
// bin carry-over.
package flash

import (
	"math"

	"github.com/bits-and-blooms/bitset"

	"github.com/kortschak/msdeconv/spectrum"
)

// harmonics are the denominators searched for half-charge (and
// third/fifth/seventh-charge) artifact suppression.
var harmonics = [4]int{2, 3, 5, 7}

// Config collects FLASHBinEngine's tunables, bound from the
// FLASHDeconv section of the parameter registry.
type Config struct {
	MinCharge, MaxCharge             int
	MinMass, MaxMass                 float64
	TolerancePPM                     float64
	MinContinuousChargePeakPairCount int
	NumOverlappedScans               int
	MaxIsotopeCount                  int // 0 = use the engine's internal guard
}

// Engine holds the per-run state of the FLASHDeconv bin engine: the
// charge/harmonic offset tables (fixed once MinCharge/MaxCharge/tol are
// known) and the ring buffer of prior-spectrum mass bin masks used for
// cross-spectrum carry-over.
type Engine struct {
	cfg Config

	binWidth float64 // 2 / tolerance-as-fraction

	// filter[j] = ln(1/(j+MinCharge)), descending and negative.
	filter []float64

	ring []carryOver
}

type carryOver struct {
	bins    *bitset.BitSet
	massMin float64
}

// NewEngine builds an Engine for cfg. bin_width = 2/tolerance, where
// tolerance is expressed as a fraction (ppm/1e6).
func NewEngine(cfg Config) *Engine {
	tolFraction := cfg.TolerancePPM / 1e6
	e := &Engine{
		cfg:      cfg,
		binWidth: 2 / tolFraction,
	}
	n := cfg.MaxCharge - cfg.MinCharge + 1
	e.filter = make([]float64, n)
	for j := 0; j < n; j++ {
		e.filter[j] = math.Log(1 / float64(j+cfg.MinCharge))
	}
	return e
}

// binOf returns round((v - vMin) * binWidth), the generic bin index
// formula shared by both log-m/z and log-mass spaces.
func (e *Engine) binOf(v, vMin float64) int {
	return int(math.Round((v - vMin) * e.binWidth))
}

// valueOf inverts binOf: the value at the center of bin b.
func (e *Engine) valueOf(b int, vMin float64) float64 {
	return vMin + float64(b)/e.binWidth
}

// binOffset returns, for charge index j (0-based from MinCharge), the
// bin offset added to an m/z bin index to reach the corresponding
// candidate mass bin: round((mzMin - filter[j] - massMin) * binWidth).
func (e *Engine) binOffset(j int, mzMin, massMin float64) int {
	return int(math.Round((mzMin - e.filter[j] - massMin) * e.binWidth))
}

// harmonicBinOffset returns hBinOffset[j][k]: floor((filter[j] -
// ln(1/(j - 0.5/h + MinCharge))) * binWidth), locating where a 1/h-th
// harmonic of charge index j would fall in the m/z bitset.
func (e *Engine) harmonicBinOffset(j, h int) int {
	charge := float64(j + e.cfg.MinCharge)
	denom := charge - 0.5/float64(h)
	if denom <= 0 {
		return 0
	}
	return int(math.Floor((e.filter[j] - math.Log(1/denom)) * e.binWidth))
}

// SpectrumPeak is the minimal per-peak input the bin engine needs: m/z,
// intensity and its index in the source spectrum.
type SpectrumPeak struct {
	PeakIndex int
	MZ        float64
	Intensity float32
}

// spectrumState is the per-call working state for one ProcessSpectrum
// invocation: the log-m/z bin positions of every input peak, plus the
// mzMin/massMin this spectrum is keyed against.
type spectrumState struct {
	peaks []SpectrumPeak
	logMZ []float64
	mzMin float64

	massMin float64

	mzBins  *bitset.BitSet
	mzBinOf map[uint]int // mzBin -> index into peaks, highest-intensity peak in that bin
}

// ProcessSpectrum runs the full per-spectrum pipeline: build the log-m/z
// bitset, qualify and select mass bins per charge
// (including harmonic suppression and the prior-scan union), and extract
// peak groups. It returns the peak groups found and updates the engine's
// carry-over ring buffer.
func (e *Engine) ProcessSpectrum(peaks []SpectrumPeak, specIndex int) []PeakGroup {
	if len(peaks) == 0 {
		return nil
	}
	st := e.buildMzBins(peaks)
	st.massMin = math.Log(e.cfg.MinMass)

	continuous, noncontinuous, hasHarmony, minCharge, maxCharge := e.qualifyMassBins(st)
	union := e.unionMask(st.massMin)
	massBins, massChargeRange := e.selectMassBins(st, continuous, noncontinuous, hasHarmony, minCharge, maxCharge, union)

	groups := e.extractPeakGroups(st, massBins, union, massChargeRange, specIndex)

	e.pushCarryOver(massBins, st.massMin)
	return groups
}

func (e *Engine) buildMzBins(peaks []SpectrumPeak) *spectrumState {
	mzMin := peaks[0].MZ
	mzMax := peaks[0].MZ
	for _, p := range peaks {
		if p.MZ < mzMin {
			mzMin = p.MZ
		}
		if p.MZ > mzMax {
			mzMax = p.MZ
		}
	}
	logMin := math.Log(mzMin - spectrum.ProtonMass)
	logMax := math.Log(mzMax - spectrum.ProtonMass)
	nBins := e.binOf(logMax, logMin) + 2

	st := &spectrumState{
		peaks:   peaks,
		logMZ:   make([]float64, len(peaks)),
		mzMin:   logMin,
		mzBins:  bitset.New(uint(nBins)),
		mzBinOf: make(map[uint]int, len(peaks)),
	}
	for i, p := range peaks {
		lm := math.Log(p.MZ - spectrum.ProtonMass)
		st.logMZ[i] = lm
		b := uint(e.binOf(lm, logMin))
		st.mzBins.Set(b)
		if cur, ok := st.mzBinOf[b]; !ok || p.Intensity > peaks[cur].Intensity {
			st.mzBinOf[b] = i
		}
	}
	return st
}

type massBinState struct {
	prevCharge           int
	continuousPairs      int
	noncontinuousPairs   int
	hasHarmony           bool
	minCharge, maxCharge int
}

// qualifyMassBins implements the "initial mass bin qualification" step:
// for every set m/z bin and every charge hypothesis, accumulate
// continuous/noncontinuous charge-pair counts into the candidate mass
// bin, permanently disqualifying any bin where a harmonic artifact is
// detected.
func (e *Engine) qualifyMassBins(st *spectrumState) (map[int]*massBinState, map[int]bool, map[int]bool, map[int]int, map[int]int) {
	states := make(map[int]*massBinState)

	nCharges := len(e.filter)
	for mzBin := uint(0); mzBin < st.mzBins.Len(); mzBin++ {
		if !st.mzBins.Test(mzBin) {
			continue
		}
		for j := 0; j < nCharges; j++ {
			off := e.binOffset(j, st.mzMin, st.massMin)
			mi := int(mzBin) + off

			s, ok := states[mi]
			if !ok {
				s = &massBinState{prevCharge: -1}
				states[mi] = s
			}
			if s.hasHarmony {
				continue
			}

			if s.prevCharge == j-1 {
				harmonic := false
				for _, h := range harmonics {
					ho := e.harmonicBinOffset(j, h)
					target := int(mzBin) - ho
					for d := -2; d <= 2; d++ {
						b := target + d
						if b >= 0 && uint(b) < st.mzBins.Len() && st.mzBins.Test(uint(b)) {
							harmonic = true
							break
						}
					}
					if harmonic {
						break
					}
				}
				if harmonic {
					s.hasHarmony = true
					continue
				}
				s.continuousPairs++
			} else if s.prevCharge >= 0 {
				s.noncontinuousPairs++
			}
			s.prevCharge = j
			if s.minCharge == 0 || j+e.cfg.MinCharge < s.minCharge {
				s.minCharge = j + e.cfg.MinCharge
			}
			if j+e.cfg.MinCharge > s.maxCharge {
				s.maxCharge = j + e.cfg.MinCharge
			}
		}
	}

	qualified := make(map[int]bool)
	hasHarmony := make(map[int]bool)
	minC := make(map[int]int)
	maxC := make(map[int]int)
	for mi, s := range states {
		hasHarmony[mi] = s.hasHarmony
		minC[mi] = s.minCharge
		maxC[mi] = s.maxCharge
		if !s.hasHarmony && s.continuousPairs >= e.cfg.MinContinuousChargePeakPairCount {
			qualified[mi] = true
		}
	}
	return states, qualified, hasHarmony, minC, maxC
}

// selectMassBins implements "final mass bin selection": for each set m/z
// bin, among the candidate mass bins that are either initially qualified
// or present in the prior-scan union, keep the single one maximizing
// continuous-noncontinuous pairs.
func (e *Engine) selectMassBins(st *spectrumState, states map[int]*massBinState, qualified map[int]bool, hasHarmony map[int]bool, minC, maxC map[int]int, union *bitset.BitSet) (*bitset.BitSet, map[int][2]int) {
	best := make(map[int]int) // mzBin -> best mass bin
	bestScore := make(map[int]int)

	nCharges := len(e.filter)
	for mzBin := uint(0); mzBin < st.mzBins.Len(); mzBin++ {
		if !st.mzBins.Test(mzBin) {
			continue
		}
		haveBest := false
		var bestMi, bestSc int
		for j := 0; j < nCharges; j++ {
			off := e.binOffset(j, st.mzMin, st.massMin)
			mi := int(mzBin) + off
			s, ok := states[mi]
			if !ok {
				continue
			}
			inUnion := union != nil && mi >= 0 && uint(mi) < union.Len() && union.Test(uint(mi))
			if !qualified[mi] && !inUnion {
				continue
			}
			sc := s.continuousPairs - s.noncontinuousPairs
			if !haveBest || sc > bestSc {
				haveBest, bestMi, bestSc = true, mi, sc
			}
		}
		if haveBest {
			best[int(mzBin)] = bestMi
			bestScore[int(mzBin)] = bestSc
		}
	}

	maxBin := 0
	for _, mi := range best {
		if mi+1 > maxBin {
			maxBin = mi + 1
		}
	}
	massBins := bitset.New(uint(maxBin))
	chargeRange := make(map[int][2]int)
	for _, mi := range best {
		massBins.Set(uint(mi))
		chargeRange[mi] = [2]int{minC[mi], maxC[mi]}
	}
	return massBins, chargeRange
}

// unionMask shifts every ring-buffer entry's mass bin set by the bin
// delta between the current spectrum's massMin and the entry's, and ORs
// them all together.
func (e *Engine) unionMask(currentMassMin float64) *bitset.BitSet {
	var union *bitset.BitSet
	for _, c := range e.ring {
		shift := int(math.Round((currentMassMin - c.massMin) * e.binWidth))
		shifted := shiftBitset(c.bins, shift)
		if union == nil {
			union = shifted
		} else {
			union = union.Union(shifted)
		}
	}
	return union
}

// shiftBitset returns a new bitset with every set bit of b moved by
// shift positions; Set grows the result automatically as needed.
func shiftBitset(b *bitset.BitSet, shift int) *bitset.BitSet {
	out := &bitset.BitSet{}
	for i, e := b.NextSet(0); e; i, e = b.NextSet(i + 1) {
		ni := int(i) + shift
		if ni < 0 {
			continue
		}
		out.Set(uint(ni))
	}
	return out
}

// pushCarryOver records the current spectrum's mass bin set for future
// cross-spectrum reinforcement, trimming the ring to NumOverlappedScans
// entries.
func (e *Engine) pushCarryOver(massBins *bitset.BitSet, massMin float64) {
	e.ring = append(e.ring, carryOver{bins: massBins.Clone(), massMin: massMin})
	if n := e.cfg.NumOverlappedScans; n > 0 && len(e.ring) > n {
		e.ring = e.ring[len(e.ring)-n:]
	}
}
