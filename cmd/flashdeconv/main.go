// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// flashdeconv runs the per-spectrum logarithmic-bin deconvolution core
// over a centroided map and writes the accepted peak groups as TSV.
// Parsing of mzML is an external collaborator's job; flashdeconv reads
// the same peak data from a simple JSON array, one object per spectrum.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/kortschak/msdeconv/flash"
	"github.com/kortschak/msdeconv/internal/store"
	"github.com/kortschak/msdeconv/isotope"
	"github.com/kortschak/msdeconv/param"
)

func main() {
	in := flag.String("in", "", "specify input spectra JSON file (required)")
	out := flag.String("out", "", "specify output TSV file (default stdout)")
	spillPath := flag.String("spill", "", "path to spill accepted peak groups to before final TSV assembly (default <in>.peakgroups.db)")
	minCharge := flag.Int("minC", 0, "override minC")
	maxCharge := flag.Int("maxC", 0, "override maxC")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -in <spectra.json> [-out <peakgroups.tsv>] [options]

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

	tree := param.NewFlashDeconvDefaults()
	if *minCharge != 0 {
		if err := tree.Set("minC", param.Value{I: *minCharge}); err != nil {
			log.Fatal(err)
		}
	}
	if *maxCharge != 0 {
		if err := tree.Set("maxC", param.Value{I: *maxCharge}); err != nil {
			log.Fatal(err)
		}
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	log.Println("reading input spectra")
	spectra, err := readSpectra(f)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("%d spectra loaded", len(spectra))

	engine := flash.NewEngine(flash.Config{
		MinCharge:                        mustInt(tree, "minC"),
		MaxCharge:                        mustInt(tree, "maxC"),
		MinMass:                          mustFloat(tree, "minM"),
		MaxMass:                          mustFloat(tree, "maxM"),
		TolerancePPM:                     mustFloat(tree, "tol"),
		MinContinuousChargePeakPairCount: mustInt(tree, "minCC"),
		NumOverlappedScans:               mustInt(tree, "num_overlapped_scans"),
		MaxIsotopeCount:                  mustInt(tree, "maxIC"),
	})

	model := isotope.NewModel(isotope.Config{
		Abundance12C:                98.93,
		Abundance14N:                99.632,
		MassWindowWidth:             25,
		IntensityPercentage:         10,
		IntensityPercentageOptional: 0.1,
	})

	scorer := flash.DeconvScorer{
		Model:                            model,
		MinContinuousChargePeakPairCount: mustInt(tree, "minCC"),
		MinContinuousIsotopeCount:        mustInt(tree, "minIC"),
		MinIsotopeCosine:                 mustFloat(tree, "minIsoScore"),
		MinChargeDistScore:               int32(mustInt(tree, "minCDScore")),
	}

	dbPath := *spillPath
	if dbPath == "" {
		dbPath = *in + ".peakgroups.db"
	}
	spill, err := store.CreatePeakGroupSpill(dbPath)
	if err != nil {
		log.Fatal(err)
	}

	base := filepath.Base(*in)
	type specMeta struct {
		specID          string
		rt              float64
		massCountInSpec int
	}
	meta := make(map[int32]specMeta, len(spectra))

	spilled := 0
	for i, sp := range spectra {
		peaks := make([]flash.SpectrumPeak, len(sp.Peaks))
		for j, p := range sp.Peaks {
			peaks[j] = flash.SpectrumPeak{PeakIndex: j, MZ: p.MZ, Intensity: p.Intensity}
		}
		groups := engine.ProcessSpectrum(peaks, i)
		accepted := 0
		for gi := range groups {
			if !scorer.Score(&groups[gi]) {
				continue
			}
			key := store.MarshalPeakGroupKey(store.PeakGroupKey{SpecIndex: int32(i), Mass: groups[gi].Mass})
			if err := spill.Put(key, groups[gi]); err != nil {
				log.Fatal(err)
			}
			accepted++
			spilled++
		}
		meta[int32(i)] = specMeta{specID: fmt.Sprintf("spec=%d", i), rt: sp.RT, massCountInSpec: len(groups)}
		log.Printf("spectrum %d: %d peak groups, %d accepted", i, len(groups), accepted)
	}
	if err := spill.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("%d peak groups spilled to %s", spilled, dbPath)

	reader, err := store.OpenSpill(dbPath, store.ByPeakGroupKey)
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	var records []flash.Record
	massIndex := 0
	err = reader.Walk(func() interface{} { return new(flash.PeakGroup) }, func(key []byte, v interface{}) error {
		k := store.UnmarshalPeakGroupKey(key)
		g := v.(*flash.PeakGroup)
		m := meta[k.SpecIndex]
		records = append(records, flash.Record{
			MassIndex:       massIndex,
			FileName:        base,
			SpecID:          m.specID,
			MassCountInSpec: m.massCountInSpec,
			RetentionTime:   m.rt,
			Group:           *g,
		})
		massIndex++
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	if maxMC := mustInt(tree, "maxMC"); maxMC > 0 && len(records) > maxMC {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Group.Intensity() > records[j].Group.Intensity()
		})
		records = records[:maxMC]
		for i := range records {
			records[i].MassIndex = i
		}
		log.Printf("capped to top %d mass candidates by intensity", maxMC)
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
	if err := flash.WriteTSV(w, records); err != nil {
		log.Fatal(err)
	}
	log.Printf("%d peak groups written", len(records))
}

func mustInt(t *param.Tree, key string) int {
	v, err := t.Int(key)
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func mustFloat(t *param.Tree, key string) float64 {
	v, err := t.Float(key)
	if err != nil {
		log.Fatal(err)
	}
	return v
}
