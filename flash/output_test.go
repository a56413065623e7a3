// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flash_test

import (
	"strings"
	"testing"

	"github.com/kortschak/msdeconv/flash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominalMassRounds(t *testing.T) {
	assert.Equal(t, int64(5000), flash.NominalMass(5002.513))
}

func TestWriteTSVWritesHeaderAndRows(t *testing.T) {
	records := []flash.Record{
		{
			MassIndex:       1,
			FileName:        "run1.mzML",
			SpecID:          "scan=1",
			MassCountInSpec: 1,
			RetentionTime:   12.5,
			Group: flash.PeakGroup{
				SpecIndex: 0,
				Mass:      1000,
				MonoMass:  1000,
				MinCharge: 2,
				MaxCharge: 3,
				Peaks: []flash.HarmonicPeak{
					{MZ: 501.0, Charge: 2, Intensity: 100, IsotopeIndex: 0},
					{MZ: 334.3, Charge: 3, Intensity: 80, IsotopeIndex: 0},
				},
				ChargeDistScore: 1,
				IsotopeCosine:   0.95,
			},
		},
	}

	var buf strings.Builder
	err := flash.WriteTSV(&buf, records)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "MassIndex\t"))
	assert.Contains(t, lines[1], "run1.mzML")
	assert.Contains(t, lines[1], "scan=1")
}
