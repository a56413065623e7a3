// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fit implements the nonlinear elution-profile fit shared by two
// RT profile shapes: a symmetric Gauss and an asymmetric
// exponentially-modified Gaussian (EGH). Both share a common
// interface over a tagged union of parameter sets, solved by a
// Levenberg-Marquardt iteration built on gonum/mat.
package fit

import "math"

// Shape selects the RT elution profile family.
type Shape int

const (
	Gauss Shape = iota
	EGH
)

// Observation is one (trace, rt, intensity) sample fed to the fitter,
// with the trace's theoretical (averagine)
// weight carried alongside so the model can scale height per trace.
type Observation struct {
	TraceIndex int
	RT         float64
	Intensity  float64
	TheoWeight float64
}

// Fitter holds a fitted symmetric-or-asymmetric RT profile.
type Fitter struct {
	shape    Shape
	baseline float64

	// params is {height, x0, sigma} for Gauss, {height, x0, sigma, tau}
	// for EGH.
	params []float64

	obs []Observation
}

// NewFitter returns an unfitted Fitter for the given shape and baseline.
func NewFitter(shape Shape, baseline float64) *Fitter {
	n := 3
	if shape == EGH {
		n = 4
	}
	return &Fitter{shape: shape, baseline: baseline, params: make([]float64, n)}
}

// Shape reports which profile family f uses.
func (f *Fitter) Shape() Shape { return f.shape }

// profile evaluates the RT shape (without height or baseline) at t,
// given x0, sigma and (for EGH) tau.
func profile(shape Shape, t, x0, sigma, tau float64) float64 {
	switch shape {
	case Gauss:
		if sigma == 0 {
			return 0
		}
		z := (t - x0) / sigma
		return math.Exp(-0.5 * z * z)
	case EGH:
		d := 2*sigma*sigma + tau*(t-x0)
		if d <= 0 {
			return 0
		}
		return math.Exp(-(t - x0) * (t - x0) / d)
	default:
		return 0
	}
}

// model evaluates the fitted function (height*theoWeight*profile +
// baseline) at an observation's RT, using params p instead of f.params
// (used during the LM iteration before params are committed).
func (f *Fitter) model(p []float64, o Observation) float64 {
	height, x0, sigma := p[0], p[1], p[2]
	tau := 0.0
	if f.shape == EGH {
		tau = p[3]
	}
	return f.baseline + o.TheoWeight*height*profile(f.shape, o.RT, x0, sigma, tau)
}

// Fit solves for the profile parameters minimizing the sum of squared
// residuals between obs[i].Intensity and the model, seeded from
// shape-specific initial estimates, and iterating at most maxIter times.
func (f *Fitter) Fit(obs []Observation, maxIter int) error {
	if len(obs) == 0 {
		return errEmptyObservations
	}
	f.obs = obs

	maxPeak := obs[0]
	for _, o := range obs[1:] {
		if o.Intensity > maxPeak.Intensity {
			maxPeak = o
		}
	}
	rtLo, rtHi := obs[0].RT, obs[0].RT
	for _, o := range obs {
		if o.RT < rtLo {
			rtLo = o.RT
		}
		if o.RT > rtHi {
			rtHi = o.RT
		}
	}

	init := []float64{
		maxPeak.Intensity - f.baseline,
		maxPeak.RT,
		(rtHi - rtLo) / 20,
	}
	if init[2] <= 0 {
		init[2] = 1
	}
	if f.shape == EGH {
		init = append(init, 0)
	}

	result, err := levenbergMarquardt(init, maxIter, func(p []float64) []float64 {
		res := make([]float64, len(obs))
		for i, o := range obs {
			res[i] = o.Intensity - f.model(p, o)
		}
		return res
	})
	if err != nil {
		return err
	}
	f.params = result
	return nil
}

var errEmptyObservations = fitError("fit: no observations supplied")

type fitError string

func (e fitError) Error() string { return string(e) }

// Height, Center, Sigma and Tau expose the fitted parameters. Tau is
// always 0 for a Gauss fit.
func (f *Fitter) Height() float64 { return f.params[0] }
func (f *Fitter) Center() float64 { return f.params[1] }
func (f *Fitter) Sigma() float64  { return f.params[2] }
func (f *Fitter) Tau() float64 {
	if f.shape == EGH {
		return f.params[3]
	}
	return 0
}

// FWHM is the full width at half maximum. For Gauss this is the closed
// form 2*sqrt(2*ln2)*sigma; for EGH it is found by bisection since the
// profile is asymmetric.
func (f *Fitter) FWHM() float64 {
	switch f.shape {
	case Gauss:
		return 2 * math.Sqrt(2*math.Ln2) * f.Sigma()
	default:
		return egh_fwhm(f.Sigma(), f.Tau())
	}
}

func egh_fwhm(sigma, tau float64) float64 {
	half := func(side float64) float64 {
		lo, hi := 0.0, 50*(sigma+math.Abs(tau)+1)
		for i := 0; i < 60; i++ {
			mid := (lo + hi) / 2
			if profile(EGH, side*mid, 0, sigma, tau) > 0.5 {
				lo = mid
			} else {
				hi = mid
			}
		}
		return (lo + hi) / 2
	}
	return half(1) + half(-1)
}

// Area is the analytic (Gauss) or numerically integrated (EGH) area
// under the fitted profile, excluding baseline: height * integral of
// profile dt.
func (f *Fitter) Area() float64 {
	switch f.shape {
	case Gauss:
		return f.Height() * f.Sigma() * math.Sqrt(2*math.Pi)
	default:
		return f.Height() * eghIntegral(f.Sigma(), f.Tau())
	}
}

// eghIntegral numerically integrates the unit-height EGH profile over a
// wide symmetric window using Simpson's rule.
func eghIntegral(sigma, tau float64) float64 {
	const n = 2000
	half := egh_fwhm(sigma, tau) * 4
	lo, hi := -half, half
	h := (hi - lo) / n
	sum := profile(EGH, lo, 0, sigma, tau) + profile(EGH, hi, 0, sigma, tau)
	for i := 1; i < n; i++ {
		t := lo + float64(i)*h
		w := 4.0
		if i%2 == 0 {
			w = 2.0
		}
		sum += w * profile(EGH, t, 0, sigma, tau)
	}
	return sum * h / 3
}

// LowerRTBound and UpperRTBound return the RT window at +-2.5*sigma
// (Gauss) or the analogous asymmetric window derived from the EGH
// half-widths (EGH).
func (f *Fitter) LowerRTBound() float64 { return f.Center() - f.leftHalfWidth()*2.5 }
func (f *Fitter) UpperRTBound() float64 { return f.Center() + f.rightHalfWidth()*2.5 }

func (f *Fitter) leftHalfWidth() float64 {
	if f.shape == Gauss {
		return f.Sigma()
	}
	return f.FWHM() / 2 * (1 - sign(f.Tau())*0.25)
}

func (f *Fitter) rightHalfWidth() float64 {
	if f.shape == Gauss {
		return f.Sigma()
	}
	return f.FWHM() / 2 * (1 + sign(f.Tau())*0.25)
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// ComputeTheoretical returns the model value (excluding baseline) at rt
// for a trace with theoretical weight theoWeight.
func (f *Fitter) ComputeTheoretical(theoWeight, rt float64) float64 {
	return theoWeight * f.Height() * profile(f.shape, rt, f.Center(), f.Sigma(), f.Tau())
}

// CheckMaximalRTSpan reports whether the fitted profile's FWHM exceeds
// maxFraction of regionRTSpan (the RT span of the originally extended
// region).
func (f *Fitter) CheckMaximalRTSpan(maxFraction, regionRTSpan float64) bool {
	return f.FWHM() > maxFraction*regionRTSpan
}

// CheckMinimalRTSpan reports whether the cropped feature (observed
// within [bounds[0], bounds[1]]) spans less than minFraction of the
// fitted width.
func (f *Fitter) CheckMinimalRTSpan(bounds [2]float64, minFraction float64) bool {
	span := bounds[1] - bounds[0]
	return span < minFraction*f.FWHM()
}
