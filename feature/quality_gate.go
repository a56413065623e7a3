// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package feature

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/kortschak/msdeconv/fit"
	"github.com/kortschak/msdeconv/spectrum"
	"github.com/kortschak/msdeconv/trace"
)

// Gate crops a mass-trace bundle to the fitted profile's RT window,
// scores and possibly prunes traces, and runs the final multi-criteria
// acceptance check.
type Gate struct {
	MinTraceScore   float64
	MinFeatureScore float64
	MinRTSpan       float64
	MaxRTSpan       float64
	ReportedMZ      string // "maximum", "average" or "monoisotopic"
}

// ErrAnchorRejected is returned when the anchor trace itself fails the
// per-trace score test, aborting the whole feature.
var ErrAnchorRejected = errors.New("feature: anchor trace score too low")

// ErrNoSeedContainment is returned when, after cropping, the bundle no
// longer contains the seed m/z within tolerance.
var ErrNoSeedContainment = errors.New("feature: seed not contained in cropped bundle")

// ErrCenterOutsideEnvelope is returned when the fit center falls outside
// the cropped RT envelope.
var ErrCenterOutsideEnvelope = errors.New("feature: fit center outside cropped envelope")

// ErrSpanTooNarrow is returned when the cropped envelope covers less
// than MinRTSpan of the fitted width.
var ErrSpanTooNarrow = errors.New("feature: cropped RT span too narrow relative to fitted width")

// ErrSpanTooWide is returned when the fitted profile exceeds MaxRTSpan
// of the original extended region.
var ErrSpanTooWide = errors.New("feature: fitted profile wider than the extended region allows")

// ErrFeatureScoreTooLow is returned when the whole-feature final score
// is below MinFeatureScore.
var ErrFeatureScoreTooLow = errors.New("feature: final score below threshold")

// traceMetrics is the per-trace scoring intermediate used by Crop.
type traceMetrics struct {
	deviation   float64
	correlation float64
	fitScore    float64
	final       float64
	n           int
}

func scoreTrace(t *trace.MassTrace, f *fit.Fitter, theoWeight float64) traceMetrics {
	n := len(t.Points)
	theo := make([]float64, n)
	real := make([]float64, n)
	var devSum float64
	for i, p := range t.Points {
		th := f.ComputeTheoretical(theoWeight, p.RT)
		theo[i] = th
		real[i] = float64(p.Intensity)
		if th != 0 {
			devSum += math.Abs(real[i]-th) / th
		}
	}
	m := traceMetrics{n: n}
	if n > 0 {
		m.deviation = devSum / float64(n)
		m.fitScore = m.deviation / float64(n)
		corr := stat.Correlation(theo, real, nil)
		if math.IsNaN(corr) {
			corr = 0
		}
		m.correlation = math.Max(0, corr)
		m.final = math.Sqrt(m.correlation * math.Max(0, 1-m.fitScore))
	}
	return m
}

// CroppedResult is the output of Gate.Crop: the surviving bundle, the
// whole-feature final score computed over every peak of every surviving
// trace, and the (lo, hi) RT envelope actually covered after cropping.
type CroppedResult struct {
	Bundle     *trace.Bundle
	FinalScore float64
	EnvelopeLo float64
	EnvelopeHi float64
}

// Crop restricts every trace to the fitter's [lower, upper] RT bound,
// scores each surviving trace, and applies the anchor/before/after
// pruning rule.
func (g Gate) Crop(b *trace.Bundle, f *fit.Fitter, weights []float64) (CroppedResult, error) {
	lower, upper := f.LowerRTBound(), f.UpperRTBound()

	cropped := make([]*trace.MassTrace, len(b.Traces))
	for i, t := range b.Traces {
		var pts []trace.Point
		for _, p := range t.Points {
			if p.RT >= lower && p.RT <= upper {
				pts = append(pts, p)
			}
		}
		cropped[i] = &trace.MassTrace{IsotopeIndex: t.IsotopeIndex, Points: pts}
	}

	var kept []*trace.MassTrace
	var keptWeights []float64
	newMaxTrace := -1
	var allTheo, allReal []float64
	envLo, envHi := math.Inf(1), math.Inf(-1)

	for i, t := range cropped {
		if len(t.Points) < 3 {
			if i == b.MaxTrace {
				return CroppedResult{}, ErrAnchorRejected
			}
			if i < b.MaxTrace {
				kept, keptWeights = nil, nil // discard all earlier traces
				allTheo, allReal = nil, nil
				envLo, envHi = math.Inf(1), math.Inf(-1)
				continue
			}
			break // after anchor: stop extension
		}
		m := scoreTrace(t, f, weights[i])
		if m.final < g.MinTraceScore {
			if i == b.MaxTrace {
				return CroppedResult{}, ErrAnchorRejected
			}
			if i < b.MaxTrace {
				kept, keptWeights = nil, nil
				allTheo, allReal = nil, nil
				envLo, envHi = math.Inf(1), math.Inf(-1)
				continue
			}
			break
		}

		if i == b.MaxTrace {
			newMaxTrace = len(kept)
		}
		kept = append(kept, t)
		keptWeights = append(keptWeights, weights[i])
		for _, p := range t.Points {
			if p.RT < envLo {
				envLo = p.RT
			}
			if p.RT > envHi {
				envHi = p.RT
			}
			allTheo = append(allTheo, f.ComputeTheoretical(weights[i], p.RT))
			allReal = append(allReal, float64(p.Intensity))
		}
	}

	if newMaxTrace < 0 || len(kept) == 0 {
		return CroppedResult{}, ErrAnchorRejected
	}

	final := wholeFeatureScore(allTheo, allReal)
	return CroppedResult{
		Bundle:     &trace.Bundle{Traces: kept, MaxTrace: newMaxTrace, Baseline: b.Baseline},
		FinalScore: final,
		EnvelopeLo: envLo,
		EnvelopeHi: envHi,
	}, nil
}

func wholeFeatureScore(theo, real []float64) float64 {
	if len(theo) == 0 {
		return 0
	}
	var devSum float64
	for i, th := range theo {
		if th != 0 {
			devSum += math.Abs(real[i]-th) / th
		}
	}
	deviation := devSum / float64(len(theo))
	fitScore := deviation / float64(len(theo))
	corr := stat.Correlation(theo, real, nil)
	if math.IsNaN(corr) {
		corr = 0
	}
	corr = math.Max(0, corr)
	return math.Sqrt(corr * math.Max(0, 1-fitScore))
}

// Accept runs the five acceptance checks against a cropped result,
// returning the first failing reason as an error.
func (g Gate) Accept(cr CroppedResult, f *fit.Fitter, seedMZ, traceTolerance, regionRTSpan float64) error {
	if f.CheckMaximalRTSpan(g.MaxRTSpan, regionRTSpan) {
		return ErrSpanTooWide
	}
	if !cr.Bundle.Valid(seedMZ, traceTolerance) {
		return ErrNoSeedContainment
	}
	if f.Center() < cr.EnvelopeLo || f.Center() > cr.EnvelopeHi {
		return ErrCenterOutsideEnvelope
	}
	if f.CheckMinimalRTSpan([2]float64{cr.EnvelopeLo, cr.EnvelopeHi}, g.MinRTSpan) {
		return ErrSpanTooNarrow
	}
	if cr.FinalScore < g.MinFeatureScore {
		return ErrFeatureScoreTooLow
	}
	return nil
}

// Construct builds the accepted Feature record from a cropped,
// accepted result, honoring the ReportedMZ convention.
func (g Gate) Construct(cr CroppedResult, f *fit.Fitter, charge int, maxTheoIntensity, trimmedLeft float64) *Feature {
	maxT := cr.Bundle.Traces[cr.Bundle.MaxTrace]
	mz := reportedMZ(g.ReportedMZ, cr.Bundle, maxT, charge, trimmedLeft)

	hulls := make([][]trace.Vec, len(cr.Bundle.Traces))
	for i, t := range cr.Bundle.Traces {
		hulls[i] = t.Hull()
	}

	return &Feature{
		RT:             f.Center(),
		MZ:             mz,
		Intensity:      f.Area() / maxTheoIntensity,
		Charge:         charge,
		Width:          f.FWHM(),
		OverallQuality: cr.FinalScore,
		ConvexHulls:    hulls,
	}
}

func reportedMZ(mode string, b *trace.Bundle, maxT *trace.MassTrace, charge int, trimmedLeft float64) float64 {
	switch mode {
	case "maximum":
		return maxT.AvgMZ()
	case "average":
		var num, den float64
		for _, t := range b.Traces {
			for _, p := range t.Points {
				w := float64(p.Intensity)
				num += w * p.MZ
				den += w
			}
		}
		if den == 0 {
			return maxT.AvgMZ()
		}
		return num / den
	default: // "monoisotopic"
		theoMaxIndex := float64(maxT.IsotopeIndex)
		return maxT.AvgMZ() - spectrum.ProtonMass/float64(charge)*(theoMaxIndex+trimmedLeft)
	}
}
