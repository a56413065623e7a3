// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package isotope precomputes averagine-based theoretical isotope
// distributions, binned by mass, trimmed to a core/optional boundary and
// normalized to a unit maximum, as consumed by the per-charge isotope
// pattern scorer, the isotope fitter and the FLASHDeconv scorer.
package isotope

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/combin"
)

// averagine is the average mass and elemental composition of an
// "average" amino acid residue, per Senko et al. Carbon dominates the
// isotope envelope; nitrogen contributes a smaller correction.
const (
	averagineDaltonsPerResidue = 111.1254
	carbonPerResidue           = 4.9384
	nitrogenPerResidue         = 1.3577
)

// Pattern is a trimmed, normalized theoretical isotope distribution.
type Pattern struct {
	Intensities   []float64
	OptionalBegin int
	OptionalEnd   int
	MaxValue      float64
	TrimmedLeft   int
}

// Size is the number of isotopologues retained after trimming.
func (p Pattern) Size() int { return len(p.Intensities) }

// MostAbundantIndex returns the index of the largest intensity.
func (p Pattern) MostAbundantIndex() int {
	best := 0
	for i, v := range p.Intensities {
		if v > p.Intensities[best] {
			best = i
		}
	}
	return best
}

// Model generates and caches averagine isotope patterns bucketed by
// mass, one bucket per mass_window_width daltons.
type Model struct {
	abundance12C float64
	abundance14N float64
	windowWidth  float64
	intensityPct float64
	optionalPct  float64
	maxIsotopes  int

	cache map[int]Pattern
}

// Config collects the averagine model's parameters, bound from the
// isotopic_pattern:* section of the parameter registry.
type Config struct {
	Abundance12C                float64
	Abundance14N                float64
	MassWindowWidth             float64
	IntensityPercentage         float64
	IntensityPercentageOptional float64
	MaxIsotopes                 int
}

// NewModel returns a Model that lazily builds and caches one trimmed
// pattern per mass bucket.
func NewModel(cfg Config) *Model {
	if cfg.MaxIsotopes <= 0 {
		cfg.MaxIsotopes = 100
	}
	return &Model{
		abundance12C: cfg.Abundance12C / 100,
		abundance14N: cfg.Abundance14N / 100,
		windowWidth:  cfg.MassWindowWidth,
		intensityPct: cfg.IntensityPercentage / 100,
		optionalPct:  cfg.IntensityPercentageOptional / 100,
		maxIsotopes:  cfg.MaxIsotopes,
		cache:        make(map[int]Pattern),
	}
}

// bucket returns the mass_window_width bucket index for mass.
func (m *Model) bucket(mass float64) int {
	return int(math.Floor(mass / m.windowWidth))
}

// Get returns the trimmed, normalized pattern for the bucket containing
// mass, generating and caching it on first use.
func (m *Model) Get(mass float64) Pattern {
	b := m.bucket(mass)
	if p, ok := m.cache[b]; ok {
		return p
	}
	bucketMass := (float64(b) + 0.5) * m.windowWidth
	raw := m.generate(bucketMass)
	p := trim(raw, m.intensityPct, m.optionalPct)
	m.cache[b] = p
	return p
}

// generate builds the raw (untrimmed) averagine isotope envelope for
// mass by convolving binomial carbon-13 and nitrogen-15 incorporation
// distributions, truncated to at most maxIsotopes terms.
func (m *Model) generate(mass float64) []float64 {
	residues := mass / averagineDaltonsPerResidue
	nCarbon := int(math.Round(residues * carbonPerResidue))
	nNitrogen := int(math.Round(residues * nitrogenPerResidue))
	if nCarbon < 1 {
		nCarbon = 1
	}

	c := binomialPMF(nCarbon, 1-m.abundance12C, m.maxIsotopes)
	n := binomialPMF(nNitrogen, 1-m.abundance14N, m.maxIsotopes)
	env := convolve(c, n)
	if len(env) > m.maxIsotopes {
		env = env[:m.maxIsotopes]
	}
	return env
}

// binomialPMF returns P(X=k) for k=0..min(n,maxLen-1), X ~ Binomial(n, p),
// using gonum/stat/combin for the binomial coefficient.
func binomialPMF(n int, p float64, maxLen int) []float64 {
	out := make([]float64, 0, maxLen)
	for k := 0; k <= n && len(out) < maxLen; k++ {
		logP := combin.LogGeneralizedBinomial(float64(n), float64(k)) +
			float64(k)*math.Log(p) + float64(n-k)*math.Log(1-p)
		out = append(out, math.Exp(logP))
	}
	return out
}

// convolve returns the discrete convolution of a and b, i.e. the
// distribution of the sum of two independent integer random variables.
func convolve(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		if av == 0 {
			continue
		}
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

// trim drops both tails of raw at intensityPctOptional (relative to the
// maximum), normalizes the remainder to max=1, and records how many of
// the retained peaks at each end fall below intensityPct (the optional
// boundary counts).
func trim(raw []float64, intensityPct, intensityPctOptional float64) Pattern {
	if len(raw) == 0 {
		return Pattern{}
	}
	max := floats.Max(raw)
	if max == 0 {
		return Pattern{Intensities: []float64{1}}
	}

	lo, hi := 0, len(raw)-1
	for lo < hi && raw[lo]/max < intensityPctOptional {
		lo++
	}
	for hi > lo && raw[hi]/max < intensityPctOptional {
		hi--
	}

	kept := make([]float64, hi-lo+1)
	for i := range kept {
		kept[i] = raw[lo+i] / max
	}

	optBegin, optEnd := 0, 0
	for optBegin < len(kept) && kept[optBegin] < intensityPct {
		optBegin++
	}
	for optEnd < len(kept) && kept[len(kept)-1-optEnd] < intensityPct {
		optEnd++
	}

	return Pattern{
		Intensities:   kept,
		OptionalBegin: optBegin,
		OptionalEnd:   optEnd,
		MaxValue:      1,
		TrimmedLeft:   lo,
	}
}
