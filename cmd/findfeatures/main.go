// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// findfeatures runs the picked feature finder over a centroided map and
// writes the accepted features as JSON. Parsing of mzML (and writing of
// featureXML) is an external collaborator's job; findfeatures reads the
// same peak data from a simple JSON array, one object per spectrum.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kortschak/msdeconv/feature"
	"github.com/kortschak/msdeconv/fit"
	"github.com/kortschak/msdeconv/internal/store"
	"github.com/kortschak/msdeconv/isotope"
	"github.com/kortschak/msdeconv/param"
)

func main() {
	in := flag.String("in", "", "specify input spectra JSON file (required)")
	out := flag.String("out", "", "specify output feature JSON file (default stdout)")
	spillPath := flag.String("spill", "", "path to spill accepted features to before final JSON assembly (default <in>.features.db)")
	chargeLow := flag.Int("charge-low", 0, "override isotopic_pattern:charge_low")
	chargeHigh := flag.Int("charge-high", 0, "override isotopic_pattern:charge_high")
	shape := flag.String("rt-shape", "", "override feature:rt_shape (symmetric or asymmetric)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -in <spectra.json> [-out <features.json>] [options]

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	log.Println(os.Args)

	tree := param.NewFeatureFinderDefaults()
	if *chargeLow != 0 {
		if err := tree.Set("isotopic_pattern:charge_low", param.Value{I: *chargeLow}); err != nil {
			log.Fatal(err)
		}
	}
	if *chargeHigh != 0 {
		if err := tree.Set("isotopic_pattern:charge_high", param.Value{I: *chargeHigh}); err != nil {
			log.Fatal(err)
		}
	}
	if *shape != "" {
		if err := tree.Set("feature:rt_shape", param.Value{S: *shape}); err != nil {
			log.Fatal(err)
		}
	}

	cfg, err := configFrom(tree)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.chargeLow > cfg.chargeHigh {
		log.Fatalf("invalid parameter: charge_low %d > charge_high %d", cfg.chargeLow, cfg.chargeHigh)
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	log.Println("reading input map")
	m, err := readMap(f, cfg.chargeLow, cfg.chargeHigh)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("%d spectra loaded, rt [%g, %g], mz [%g, %g]", m.Len(), m.MinRT(), m.MaxRT(), m.MinMZ(), m.MaxMZ())

	model := isotope.NewModel(isotope.Config{
		Abundance12C:                mustFloat(tree, "isotopic_pattern:abundance_12C"),
		Abundance14N:                mustFloat(tree, "isotopic_pattern:abundance_14N"),
		MassWindowWidth:             mustFloat(tree, "isotopic_pattern:mass_window_width"),
		IntensityPercentage:         mustFloat(tree, "isotopic_pattern:intensity_percentage"),
		IntensityPercentageOptional: mustFloat(tree, "isotopic_pattern:intensity_percentage_optional"),
	})

	log.Println("scoring local intensity")
	features, counts := runPipeline(m, model, cfg)
	log.Printf("%d seeds aborted across %d reasons:", sumCounts(counts), len(counts))
	for reason, n := range counts {
		log.Printf("  %s: %d", reason, n)
	}
	log.Printf("%d features accepted", len(features))

	features, err = spillAndReload(features, *spillPath, *in)
	if err != nil {
		log.Fatal(err)
	}

	w := os.Stdout
	if *out != "" {
		of, err := os.Create(*out)
		if err != nil {
			log.Fatal(err)
		}
		defer of.Close()
		w = of
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(features); err != nil {
		log.Fatal(err)
	}
}

// spillAndReload writes every accepted feature to an ordered on-disk
// store keyed by (RT, m/z, charge), then reopens it and rebuilds the
// slice from the store in that order. Running the batch through a spill
// even when it comfortably fits in memory keeps the on-disk format
// exercised by every run, not just ones large enough to need it.
func spillAndReload(features []*feature.Feature, spillPath, inPath string) ([]*feature.Feature, error) {
	path := spillPath
	if path == "" {
		path = inPath + ".features.db"
	}
	w, err := store.CreateFeatureSpill(path)
	if err != nil {
		return nil, err
	}
	for _, ft := range features {
		key := store.MarshalFeatureKey(store.FeatureKey{RT: ft.RT, MZ: ft.MZ, Charge: int32(ft.Charge)})
		if err := w.Put(key, ft); err != nil {
			w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	log.Printf("%d features spilled to %s", len(features), path)

	r, err := store.OpenSpill(path, store.ByFeatureKey)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []*feature.Feature
	err = r.Walk(func() interface{} { return new(feature.Feature) }, func(key []byte, v interface{}) error {
		out = append(out, v.(*feature.Feature))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func sumCounts(counts map[abortReason]int) int {
	n := 0
	for _, v := range counts {
		n += v
	}
	return n
}

func mustFloat(t *param.Tree, key string) float64 {
	v, err := t.Float(key)
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func mustInt(t *param.Tree, key string) int {
	v, err := t.Int(key)
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func configFrom(t *param.Tree) (config, error) {
	shapeStr, err := t.GetString("feature:rt_shape")
	if err != nil {
		return config{}, err
	}
	reportedMZ, err := t.GetString("feature:reported_mz")
	if err != nil {
		return config{}, err
	}
	rtShape := fit.Gauss
	if shapeStr == "asymmetric" {
		rtShape = fit.EGH
	}

	return config{
		localIntensityBins:     mustInt(t, "intensity:bins"),
		traceMinSpectra:        mustInt(t, "mass_trace:min_spectra"),
		traceTolerance:         mustFloat(t, "mass_trace:mz_tolerance"),
		chargeLow:              mustInt(t, "isotopic_pattern:charge_low"),
		chargeHigh:             mustInt(t, "isotopic_pattern:charge_high"),
		mzTolerance:            mustFloat(t, "isotopic_pattern:mz_tolerance"),
		optionalFitImprovement: mustFloat(t, "isotopic_pattern:optional_fit_improvement"),
		minIsotopeFit:          mustFloat(t, "feature:min_isotope_fit"),
		seedMinScore:           mustFloat(t, "seed:min_score"),
		extendMaxMissing:       mustInt(t, "mass_trace:max_missing"),
		extendSlopeBound:       mustFloat(t, "mass_trace:slope_bound"),
		fitMaxIterations:       mustInt(t, "fit:max_iterations"),
		rtShape:                rtShape,
		gate: feature.Gate{
			MinTraceScore:   mustFloat(t, "feature:min_trace_score"),
			MinFeatureScore: mustFloat(t, "feature:min_score"),
			MinRTSpan:       mustFloat(t, "feature:min_rt_span"),
			MaxRTSpan:       mustFloat(t, "feature:max_rt_span"),
			ReportedMZ:      reportedMZ,
		},
		overlapMaxIntersection: mustFloat(t, "feature:max_intersection"),
	}, nil
}
