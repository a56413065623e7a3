// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// inputSpectrum is the JSON shape read from the input file: a stand-in
// for the external mzML collaborator, which is required to hand over
// centroided peaks already sorted by m/z within each spectrum and
// spectra sorted by RT within the file.
type inputSpectrum struct {
	RT    float64 `json:"rt"`
	Peaks []struct {
		MZ        float64 `json:"mz"`
		Intensity float32 `json:"intensity"`
	} `json:"peaks"`
}

func readSpectra(r io.Reader) ([]inputSpectrum, error) {
	var raw []inputSpectrum
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("flashdeconv: decoding input: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("flashdeconv: input contains no spectra")
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].RT < raw[j].RT })
	for i := range raw {
		sort.Slice(raw[i].Peaks, func(a, b int) bool { return raw[i].Peaks[a].MZ < raw[i].Peaks[b].MZ })
	}
	return raw, nil
}
