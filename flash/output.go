// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flash

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kortschak/msdeconv/spectrum"
)

// tsvHeader is written once, before the first data row, naming every
// column emitted by WriteTSV.
var tsvHeader = []string{
	"MassIndex", "SpecIndex", "FileName", "SpecID", "MassCountInSpec",
	"ExactMass", "NominalMass", "PeakChargeRange", "PeakMinCharge",
	"PeakMaxCharge", "AggregatedIntensity", "RetentionTime", "PeakCount",
	"PeakMZs", "PeakCharges", "PeakMasses", "PeakIsotopeIndices",
	"PeakIntensities", "ChargeDistScore", "IsotopeCosineScore",
}

// Record is one row of the deconvolution output, everything WriteTSV
// needs beyond what a PeakGroup itself carries.
type Record struct {
	MassIndex       int
	FileName        string
	SpecID          string
	MassCountInSpec int
	RetentionTime   float64
	Group           PeakGroup
}

// NominalMass rounds an exact neutral mass to FLASHDeconv's nominal
// mass convention.
func NominalMass(exact float64) int64 {
	return int64(math.Round(exact * 0.999497))
}

// WriteTSV writes a header row followed by one row per record, in the
// column order FLASHDeconv consumers expect.
func WriteTSV(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, strings.Join(tsvHeader, "\t")); err != nil {
		return fmt.Errorf("flash: writing TSV header: %w", err)
	}
	for _, r := range records {
		if err := writeRow(bw, r); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRow(bw *bufio.Writer, r Record) error {
	g := r.Group

	mzs := make([]string, len(g.Peaks))
	charges := make([]string, len(g.Peaks))
	masses := make([]string, len(g.Peaks))
	isoIdx := make([]string, len(g.Peaks))
	intens := make([]string, len(g.Peaks))
	for i, p := range g.Peaks {
		mzs[i] = strconv.FormatFloat(p.MZ, 'f', 5, 64)
		charges[i] = strconv.Itoa(p.Charge)
		masses[i] = strconv.FormatFloat((p.MZ-spectrum.ProtonMass)*float64(p.Charge), 'f', 4, 64)
		isoIdx[i] = strconv.Itoa(p.IsotopeIndex)
		intens[i] = strconv.FormatFloat(float64(p.Intensity), 'f', 1, 64)
	}

	_, err := fmt.Fprintf(bw, "%d\t%d\t%s\t%s\t%d\t%.4f\t%d\t%d\t%d\t%d\t%.1f\t%.3f\t%d\t%s\t%s\t%s\t%s\t%s\t%d\t%.4f\n",
		r.MassIndex, g.SpecIndex, r.FileName, r.SpecID, r.MassCountInSpec,
		g.MonoMass, NominalMass(g.MonoMass), g.MaxCharge-g.MinCharge+1, g.MinCharge, g.MaxCharge,
		g.Intensity(), r.RetentionTime, len(g.Peaks),
		strings.Join(mzs, ";"), strings.Join(charges, ";"), strings.Join(masses, ";"),
		strings.Join(isoIdx, ";"), strings.Join(intens, ";"),
		g.ChargeDistScore, g.IsotopeCosine,
	)
	if err != nil {
		return fmt.Errorf("flash: writing TSV row: %w", err)
	}
	return nil
}
