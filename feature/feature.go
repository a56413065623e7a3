// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package feature defines the Feature output record, the quality gate
// that crops and accepts a fitted mass trace bundle into one, and the
// overlap resolver that arbitrates cross-feature, cross-charge overlap.
package feature

import (
	"sort"

	"github.com/kortschak/msdeconv/trace"
)

// Feature is one accepted molecular signal: an RT/mz/intensity/charge
// summary of a mass-trace bundle fit, with its per-isotopologue convex
// hulls and any lower-quality features it absorbed during overlap
// resolution.
type Feature struct {
	RT             float64
	MZ             float64
	Intensity      float64
	Charge         int
	Width          float64
	OverallQuality float64
	FitScore       float64
	Correlation    float64

	ConvexHulls  [][]trace.Vec
	Metadata     map[string]string
	Subordinates []*Feature

	// Label is the numeric identifier assigned during the sequential
	// resolution step; meta tag "3" in the output record.
	Label int
}

// BoundingBox is the cached (RT, m/z) extent of a Feature, used by
// OverlapResolver.
type BoundingBox struct {
	RTLo, RTHi float64
	MZLo, MZHi float64
}

// Box computes f's bounding box from its convex hulls.
func (f *Feature) Box() BoundingBox {
	b := BoundingBox{RTLo: f.RT, RTHi: f.RT, MZLo: f.MZ, MZHi: f.MZ}
	first := true
	for _, hull := range f.ConvexHulls {
		for _, v := range hull {
			if first {
				b = BoundingBox{RTLo: v.X, RTHi: v.X, MZLo: v.Y, MZHi: v.Y}
				first = false
				continue
			}
			if v.X < b.RTLo {
				b.RTLo = v.X
			}
			if v.X > b.RTHi {
				b.RTHi = v.X
			}
			if v.Y < b.MZLo {
				b.MZLo = v.Y
			}
			if v.Y > b.MZHi {
				b.MZHi = v.Y
			}
		}
	}
	return b
}

// Sink is the external feature output collaborator (featureXML writing
// and similar concerns live outside this package).
type Sink interface {
	Push(f *Feature)
	SortByIntensityDesc()
	SwapFeaturesOnly(other Sink)
}

// SliceSink is a simple in-memory Sink implementation used by the CLI
// and by tests.
type SliceSink struct {
	Features []*Feature
}

func (s *SliceSink) Push(f *Feature) { s.Features = append(s.Features, f) }

func (s *SliceSink) SortByIntensityDesc() {
	sortFeatures(s.Features)
}

func (s *SliceSink) SwapFeaturesOnly(other Sink) {
	o, ok := other.(*SliceSink)
	if !ok {
		return
	}
	s.Features, o.Features = o.Features, s.Features
}

func sortFeatures(fs []*Feature) {
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].Intensity > fs[j].Intensity })
}
