// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package feature

import (
	"sort"

	"github.com/biogo/store/interval"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kortschak/msdeconv/trace"
)

// OverlapResolver arbitrates cross-feature, cross-charge overlap.
// Candidate pairs whose bounding boxes intersect are found with an
// interval tree over m/z spans, an O(n log n) range query standing in
// for a naive double loop over every feature pair. Each arbitrated pair
// is recorded as an edge of a weighted undirected graph; arbitration
// itself is pairwise, in m/z order, and the graph is not consulted when
// deciding winners.
type OverlapResolver struct {
	MaxIntersection float64
}

// mzInterval adapts a Feature into biogo/store/interval's IntInterface,
// keyed on an integer m/z span in units of 1e-6 m/z so the tree can be
// built over biogo's integer interval type.
type mzInterval struct {
	idx    int
	lo, hi int
}

const mzScale = 1e6 // integer units of 1e-6 m/z for m/z ranges

func (m mzInterval) Overlap(b interval.IntRange) bool { return b.Start < m.hi && m.lo < b.End }
func (m mzInterval) ID() uintptr                      { return uintptr(m.idx) }
func (m mzInterval) Range() interval.IntRange         { return interval.IntRange{Start: m.lo, End: m.hi} }

// Resolve runs overlap arbitration over fs (order need not be sorted by
// Intensity; Resolve sorts its own working copy by m/z internally) and
// returns the surviving top-level features with Subordinates attached,
// sorted by descending intensity.
func (r OverlapResolver) Resolve(fs []*Feature) []*Feature {
	order := append([]*Feature(nil), fs...)
	sort.Slice(order, func(i, j int) bool { return order[i].MZ < order[j].MZ })

	boxes := make([]BoundingBox, len(order))
	for i, f := range order {
		boxes[i] = f.Box()
	}

	var tree interval.IntTree
	for i, b := range boxes {
		err := tree.Insert(mzInterval{idx: i, lo: int(b.MZLo * mzScale), hi: int(b.MZHi*mzScale) + 1}, true)
		if err != nil {
			panic(err)
		}
	}
	tree.AdjustRanges()

	g := simple.NewWeightedUndirectedGraph(0, 0)
	nodes := make([]graph.Node, len(order))
	for i := range order {
		nodes[i] = simple.Node(i)
		g.AddNode(nodes[i])
	}

	removed := make([]bool, len(order))
	for i, f1 := range order {
		b1 := boxes[i]
		hits := tree.Get(mzInterval{lo: int(b1.MZLo * mzScale), hi: int(b1.MZHi*mzScale) + 1})
		for _, h := range hits {
			j := h.(mzInterval).idx
			if j <= i {
				continue
			}
			f2 := order[j]
			b2 := boxes[j]
			if !boxesIntersect(b1, b2) {
				continue
			}
			inter := intersection(f1, f2)
			if inter < r.MaxIntersection {
				continue
			}
			winner, loser := arbitrate(i, j, order)
			if removed[loser] {
				continue
			}
			removed[loser] = true
			order[winner].Subordinates = append(order[winner].Subordinates, order[loser])
			order[loser].Intensity = 0
			g.SetWeightedEdge(simple.WeightedEdge{F: nodes[i], T: nodes[j], W: inter})
		}
	}

	var survivors []*Feature
	for i, f := range order {
		if !removed[i] {
			survivors = append(survivors, f)
		}
	}
	sort.SliceStable(survivors, func(i, j int) bool { return survivors[i].Intensity > survivors[j].Intensity })
	return survivors
}

func boxesIntersect(a, b BoundingBox) bool {
	return a.RTLo <= b.RTHi && b.RTLo <= a.RTHi && a.MZLo <= b.MZHi && b.MZLo <= a.MZHi
}

// intersection computes overlap / min(S1, S2), where S_i is the sum of
// hull RT-widths across a feature's traces and overlap
// is the sum, over every pair of the two features' trace hulls, of their
// RT-interval intersection width.
func intersection(f1, f2 *Feature) float64 {
	s1 := sumWidths(f1)
	s2 := sumWidths(f2)
	minS := s1
	if s2 < minS {
		minS = s2
	}
	if minS == 0 {
		return 0
	}

	var overlap float64
	for _, h1 := range f1.ConvexHulls {
		l1, h1hi := rtExtent(h1)
		for _, h2 := range f2.ConvexHulls {
			l2, h2hi := rtExtent(h2)
			lo := max64(l1, l2)
			hi := min64(h1hi, h2hi)
			if hi > lo {
				overlap += hi - lo
			}
		}
	}
	return overlap / minS
}

func sumWidths(f *Feature) float64 {
	var s float64
	for _, h := range f.ConvexHulls {
		lo, hi := rtExtent(h)
		s += hi - lo
	}
	return s
}

func rtExtent(hull []trace.Vec) (lo, hi float64) {
	if len(hull) == 0 {
		return 0, 0
	}
	lo, hi = hull[0].X, hull[0].X
	for _, v := range hull[1:] {
		if v.X < lo {
			lo = v.X
		}
		if v.X > hi {
			hi = v.X
		}
	}
	return lo, hi
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// arbitrate decides the winner/loser pair for features at indices i, j
// of order, applying same-charge, harmonic-charge, and distinct-charge
// rules in turn.
func arbitrate(i, j int, order []*Feature) (winner, loser int) {
	f1, f2 := order[i], order[j]
	switch {
	case f1.Charge == f2.Charge:
		if f1.Intensity*f1.OverallQuality >= f2.Intensity*f2.OverallQuality {
			return i, j
		}
		return j, i
	case dividesCharge(f1.Charge, f2.Charge):
		// f1's charge divides f2's: f1 is the harmonic, f2 the true
		// higher charge.
		return j, i
	case dividesCharge(f2.Charge, f1.Charge):
		// f2's charge divides f1's: f2 is the harmonic, f1 the true
		// higher charge.
		return i, j
	default:
		if f1.OverallQuality >= f2.OverallQuality {
			return i, j
		}
		return j, i
	}
}

// dividesCharge reports whether small evenly divides big and big is
// strictly greater - i.e. small is a harmonic sub-charge of big, so big
// (the higher, true charge) should be kept.
func dividesCharge(small, big int) bool {
	return big > small && small > 0 && big%small == 0
}
