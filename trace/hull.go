// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import "sort"

// Vec is a 2D point in (RT, m/z) space.
type Vec struct {
	X, Y float64
}

// ConvexHull returns the convex hull of pts, in counter-clockwise order
// starting from the leftmost, then lowest, point, via Andrew's monotone
// chain algorithm.
func ConvexHull(pts []Vec) []Vec {
	if len(pts) < 3 {
		return append([]Vec(nil), pts...)
	}
	sorted := append([]Vec(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	build := func(seq []Vec) []Vec {
		var hull []Vec
		for _, p := range seq {
			for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
				hull = hull[:len(hull)-1]
			}
			hull = append(hull, p)
		}
		return hull
	}

	lower := build(sorted)
	upper := build(reversed(sorted))

	hull := append(lower[:len(lower)-1:len(lower)-1], upper[:len(upper)-1]...)
	return hull
}

func cross(o, a, b Vec) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func reversed(pts []Vec) []Vec {
	out := make([]Vec, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
