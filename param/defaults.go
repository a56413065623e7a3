// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

// NewFeatureFinderDefaults returns a Tree preloaded with every key listed
// in the feature finder's configuration surface, at the documented
// defaults and ranges.
func NewFeatureFinderDefaults() *Tree {
	t := NewTree("featurefinder")
	reg := func(key string, kind Kind, def Value, lo, hi float64, desc string, tags Tag) {
		if err := t.RegisterRanged(key, kind, def, lo, hi, desc, tags); err != nil {
			panic(err)
		}
	}

	reg("intensity:bins", Int, Value{I: 10}, 1, 1<<31-1, "number of bins per axis of the local intensity quantile grid", 0)
	reg("mass_trace:mz_tolerance", Float, Value{F: 0.03}, 0, 1<<31-1, "m/z tolerance used for trace extension and bundle containment", 0)
	reg("mass_trace:min_spectra", Int, Value{I: 10}, 1, 1<<31-1, "number of neighboring spectra considered for trace scoring and extension deltas", 0)
	reg("mass_trace:max_missing", Int, Value{I: 1}, 0, 1<<31-1, "maximum number of consecutive missing peaks tolerated during extension", 0)
	reg("mass_trace:slope_bound", Float, Value{F: 0.1}, 0, 1<<31-1, "relative intensity slope bound that terminates extension", 0)
	reg("isotopic_pattern:charge_low", Int, Value{I: 1}, 1, 1<<31-1, "lowest charge state considered", 0)
	reg("isotopic_pattern:charge_high", Int, Value{I: 4}, 1, 1<<31-1, "highest charge state considered", 0)
	reg("isotopic_pattern:mz_tolerance", Float, Value{F: 0.03}, 0, 1<<31-1, "m/z tolerance used when searching for isotopic peaks", 0)
	reg("isotopic_pattern:intensity_percentage", Float, Value{F: 10.0}, 0, 100, "minimum theoretical intensity percentage for a peak to be required", 0)
	reg("isotopic_pattern:intensity_percentage_optional", Float, Value{F: 0.1}, 0, 100, "minimum theoretical intensity percentage for a peak to be optional", 0)
	reg("isotopic_pattern:optional_fit_improvement", Float, Value{F: 2.0}, 0, 100, "minimum percentage improvement required to extend a fit into optional peaks", 0)
	reg("isotopic_pattern:mass_window_width", Float, Value{F: 25.0}, 1, 200, "mass window used to bucket the theoretical pattern table", 0)
	reg("isotopic_pattern:abundance_12C", Float, Value{F: 98.93}, 0, 100, "natural abundance of carbon-12 used by the averagine model", Advanced)
	reg("isotopic_pattern:abundance_14N", Float, Value{F: 99.632}, 0, 100, "natural abundance of nitrogen-14 used by the averagine model", Advanced)
	reg("seed:min_score", Float, Value{F: 0.8}, 0, 1, "minimum overall score required to emit an automatic-mode seed", 0)
	reg("fit:max_iterations", Int, Value{I: 500}, 1, 1<<31-1, "maximum Levenberg-Marquardt iterations for the RT profile fit", Advanced)
	reg("feature:min_score", Float, Value{F: 0.7}, 0, 1, "minimum final feature score required for acceptance", 0)
	reg("feature:min_isotope_fit", Float, Value{F: 0.8}, 0, 1, "minimum isotope cosine score required for a seed's pattern fit", 0)
	reg("feature:min_trace_score", Float, Value{F: 0.5}, 0, 1, "minimum per-trace score required to retain a trace during cropping", 0)
	reg("feature:min_rt_span", Float, Value{F: 0.333}, 0, 1, "minimum fraction of fitted width the cropped envelope must cover", 0)
	reg("feature:max_rt_span", Float, Value{F: 2.5}, 0.5, 1<<31-1, "maximum fraction of the extended region the fitted profile may cover", 0)
	reg("feature:max_intersection", Float, Value{F: 0.35}, 0, 1, "overlap fraction above which two features are arbitrated", 0)
	reg("user-seed:rt_tolerance", Float, Value{F: 5.0}, 0, 1<<31-1, "RT tolerance for matching a peak to a user-supplied seed", 0)
	reg("user-seed:mz_tolerance", Float, Value{F: 1.1}, 0, 1<<31-1, "m/z tolerance for matching a peak to a user-supplied seed", 0)
	reg("user-seed:min_score", Float, Value{F: 0.5}, 0, 1, "minimum overall score required to emit a user-seed-mode seed", 0)

	if err := t.RegisterEnum("feature:rt_shape", "symmetric", []string{"symmetric", "asymmetric"}, "RT elution profile shape: symmetric Gauss or asymmetric EGH", 0); err != nil {
		panic(err)
	}
	if err := t.RegisterEnum("feature:reported_mz", "monoisotopic", []string{"maximum", "average", "monoisotopic"}, "which m/z convention is reported on an accepted feature", 0); err != nil {
		panic(err)
	}

	return t
}

// NewFlashDeconvDefaults returns a Tree preloaded with the FLASHDeconv
// configuration surface, plus the num_overlapped_scans parameter
// controlling cross-spectrum bin carry-over.
func NewFlashDeconvDefaults() *Tree {
	t := NewTree("flashdeconv")
	reg := func(key string, kind Kind, def Value, lo, hi float64, desc string, tags Tag) {
		if err := t.RegisterRanged(key, kind, def, lo, hi, desc, tags); err != nil {
			panic(err)
		}
	}
	reg("minC", Int, Value{I: 1}, 1, 1<<31-1, "minimum charge considered", 0)
	reg("maxC", Int, Value{I: 100}, 1, 1<<31-1, "maximum charge considered", 0)
	reg("minM", Float, Value{F: 500}, 0, 1<<31-1, "minimum monoisotopic mass considered", 0)
	reg("maxM", Float, Value{F: 100000}, 0, 1<<31-1, "maximum monoisotopic mass considered", 0)
	reg("tol", Float, Value{F: 10}, 0, 1<<31-1, "m/z tolerance in ppm", 0)
	reg("minCC", Int, Value{I: 3}, 1, 1<<31-1, "minimum continuous charge peak pair count required to qualify a mass bin", 0)
	reg("minIC", Int, Value{I: 2}, 1, 1<<31-1, "minimum continuous isotope count required to qualify a peak group", 0)
	reg("maxIC", Int, Value{I: 0}, 0, 1<<31-1, "maximum number of isotopes tracked per direction (0 = internal guard of 50)", Advanced)
	reg("maxMC", Int, Value{I: 0}, 0, 1<<31-1, "maximum number of mass candidates kept across the whole run, highest intensity first (0 = unbounded)", 0)
	reg("minIsoScore", Float, Value{F: 0.85}, 0, 1, "minimum isotope cosine score required to accept a peak group", 0)
	reg("minCDScore", Int, Value{I: 0}, -1<<30, 1<<30, "minimum charge distribution score required to accept a peak group", 0)
	reg("num_overlapped_scans", Int, Value{I: 10}, 1, 1<<31-1, "ring buffer depth for cross-spectrum mass bin carry-over", Advanced)
	return t
}
