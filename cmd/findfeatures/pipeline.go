// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/kortschak/msdeconv/feature"
	"github.com/kortschak/msdeconv/fit"
	"github.com/kortschak/msdeconv/isotope"
	"github.com/kortschak/msdeconv/score"
	"github.com/kortschak/msdeconv/seed"
	"github.com/kortschak/msdeconv/spectrum"
	"github.com/kortschak/msdeconv/trace"
)

// abortReason names why a seed was not turned into a feature, used to
// key the run's summary report.
type abortReason string

const (
	reasonNoPatternFit   abortReason = "low isotope fit"
	reasonNoBundle       abortReason = "no mass trace bundle"
	reasonFitFailed      abortReason = "rt profile fit failed"
	reasonAnchorRejected abortReason = "anchor trace rejected"
	reasonGateRejected   abortReason = "quality gate rejected"
)

// seedOutcome is the early-return sum type that replaces the original
// exception-based abort(seed, reason) control flow: exactly one of
// Feature or Reason is set.
type seedOutcome struct {
	Feature *feature.Feature
	Reason  abortReason
}

// config collects every component's bound parameters for one pipeline
// run, assembled from a param.Tree by the caller.
type config struct {
	localIntensityBins int

	traceMinSpectra int
	traceTolerance  float64

	chargeLow, chargeHigh  int
	mzTolerance            float64
	optionalFitImprovement float64
	minIsotopeFit          float64

	seedMinScore float64

	extendMaxMissing int
	extendSlopeBound float64

	fitMaxIterations int
	rtShape          fit.Shape

	gate feature.Gate

	overlapMaxIntersection float64
}

// runPipeline executes the full seed-and-extend pipeline over m and
// returns the surviving top-level features, plus a count of aborted
// seeds keyed by reason.
func runPipeline(m *spectrum.Map, model *isotope.Model, cfg config) ([]*feature.Feature, map[abortReason]int) {
	li := score.NewLocalIntensityScorer(m, cfg.localIntensityBins)
	for i := 0; i < m.Len(); i++ {
		sp := m.Spectrum(i)
		intensity := sp.Track(spectrum.IntensityScore)
		for pi, p := range sp.Peaks {
			intensity[pi] = li.Score(sp.RT, p.MZ, float64(p.Intensity))
		}
	}

	ts := score.TraceScorer{MinSpectra: cfg.traceMinSpectra, TraceTolerance: cfg.traceTolerance}
	ts.Score(m)

	ips := score.IsotopePatternScorer{
		Model:                  model,
		ChargeLow:              cfg.chargeLow,
		ChargeHigh:             cfg.chargeHigh,
		MZTolerance:            cfg.mzTolerance,
		OptionalFitImprovement: cfg.optionalFitImprovement,
		MinIsotopeFit:          cfg.minIsotopeFit,
	}
	ips.Score(m)

	sel := seed.Selector{ChargeLow: cfg.chargeLow, ChargeHigh: cfg.chargeHigh, SeedMinScore: cfg.seedMinScore}
	sel.ComputeOverallScores(m)
	seeds := sel.Emit(m)

	fitter := score.IsotopeFitter{
		Model:                  model,
		MZTolerance:            cfg.mzTolerance,
		OptionalFitImprovement: cfg.optionalFitImprovement,
		MinIsotopeFit:          cfg.minIsotopeFit,
		MinFitScore:            cfg.minIsotopeFit,
	}

	ext := trace.Extender{
		Map:                m,
		MinSpectra:         cfg.traceMinSpectra,
		MaxMissing:         cfg.extendMaxMissing,
		BaseSlopeBound:     cfg.extendSlopeBound,
		MZTolerance:        cfg.traceTolerance,
		PatternTolerance:   cfg.mzTolerance,
		OverallScoreCutoff: 0.01,
	}

	counts := make(map[abortReason]int)
	var accepted []*feature.Feature
	for _, s := range seeds {
		out := processSeed(m, model, fitter, ext, cfg, s)
		if out.Feature != nil {
			accepted = append(accepted, out.Feature)
			continue
		}
		counts[out.Reason]++
	}

	resolver := feature.OverlapResolver{MaxIntersection: cfg.overlapMaxIntersection}
	return resolver.Resolve(accepted), counts
}

func processSeed(m *spectrum.Map, model *isotope.Model, fitter score.IsotopeFitter, ext trace.Extender, cfg config, s seed.Seed) seedOutcome {
	fr, ok := fitter.Fit(m, s.SpectrumIndex, s.PeakIndex, s.Charge)
	if !ok {
		return seedOutcome{Reason: reasonNoPatternFit}
	}

	seedMZOf := m.Spectrum(s.SpectrumIndex).Peaks[s.PeakIndex].MZ
	theoMZOf := func(idx int) float64 { return fr.TheoreticalMZ(seedMZOf, s.Charge, idx) }

	anchorSpec, anchorPeak := fr.Observed.SpectrumIndex[fr.AnchorIndex], fr.Observed.PeakIndex[fr.AnchorIndex]
	bundle := ext.BuildBundle(anchorSpec, anchorPeak, fr.AnchorIndex, s.Charge, theoMZOf, fr.Pattern.Size())
	if bundle == nil || len(bundle.Traces) == 0 {
		return seedOutcome{Reason: reasonNoBundle}
	}

	regionLo, regionHi := bundle.RTBounds()
	obs := make([]fit.Observation, 0)
	weights := make([]float64, len(bundle.Traces))
	for i, t := range bundle.Traces {
		w := fr.Pattern.Intensities[t.IsotopeIndex]
		weights[i] = w
		for _, p := range t.Points {
			obs = append(obs, fit.Observation{TraceIndex: i, RT: p.RT, Intensity: float64(p.Intensity), TheoWeight: w})
		}
	}

	f := fit.NewFitter(cfg.rtShape, 0)
	if err := f.Fit(obs, cfg.fitMaxIterations); err != nil {
		return seedOutcome{Reason: reasonFitFailed}
	}

	cr, err := cfg.gate.Crop(bundle, f, weights)
	if err != nil {
		return seedOutcome{Reason: reasonAnchorRejected}
	}

	if err := cfg.gate.Accept(cr, f, seedMZOf, cfg.traceTolerance, regionHi-regionLo); err != nil {
		return seedOutcome{Reason: reasonGateRejected}
	}

	maxTheo := fr.Pattern.Intensities[bundle.Traces[bundle.MaxTrace].IsotopeIndex]
	built := cfg.gate.Construct(cr, f, s.Charge, maxTheo, float64(fr.Pattern.TrimmedLeft))
	return seedOutcome{Feature: built}
}
