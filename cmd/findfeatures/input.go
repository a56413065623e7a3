// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/kortschak/msdeconv/spectrum"
)

// inputSpectrum is the JSON shape read from the input file: a stand-in
// for the external mzML collaborator, which is required to hand over
// centroided peaks already sorted by m/z within each spectrum and
// spectra sorted by RT within the file.
type inputSpectrum struct {
	RT       float64         `json:"rt"`
	MSLevel  uint8           `json:"ms_level"`
	NativeID string          `json:"native_id"`
	Peaks    []spectrum.Peak `json:"peaks"`
}

// readMap decodes a JSON array of inputSpectrum from r into a
// spectrum.Map, allocating every spectrum's per-charge score tracks for
// [chargeLo, chargeHi].
func readMap(r io.Reader, chargeLo, chargeHi int) (*spectrum.Map, error) {
	var raw []inputSpectrum
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("findfeatures: decoding input: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("findfeatures: input contains no spectra")
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].RT < raw[j].RT })

	spectra := make([]*spectrum.Spectrum, len(raw))
	for i, s := range raw {
		peaks := append([]spectrum.Peak(nil), s.Peaks...)
		sort.Slice(peaks, func(a, b int) bool { return peaks[a].MZ < peaks[b].MZ })
		spectra[i] = spectrum.NewSpectrum(s.RT, s.MSLevel, s.NativeID, peaks, chargeLo, chargeHi)
	}
	return spectrum.NewMap(spectra), nil
}
