// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package score

import "github.com/kortschak/msdeconv/spectrum"

// TraceScorer records, for every peak not within the first or last
// minSpectra scans of the map, the mean position score to its nearest
// m/z neighbor in each of the 2*minSpectra adjacent spectra (trace_score)
// and whether any of those neighbors within traceTolerance has strictly
// higher intensity (local_max == false if so).
type TraceScorer struct {
	MinSpectra     int
	TraceTolerance float64
}

// Score fills in m's TraceScore and LocalMax tracks for every spectrum.
// Edge spectra (closer to either end than MinSpectra scans) get a zero
// trace_score and local_max left false.
func (t TraceScorer) Score(m *spectrum.Map) {
	n := m.Len()
	for i := 0; i < n; i++ {
		s := m.Spectrum(i)
		traceScore := s.Track(spectrum.TraceScore)
		localMax := s.Track(spectrum.LocalMax)
		if i < t.MinSpectra || i >= n-t.MinSpectra {
			continue
		}
		for pi, p := range s.Peaks {
			isMax := true
			var sum float64
			count := 0
			for dir := -1; dir <= 1; dir += 2 {
				for step := 1; step <= t.MinSpectra; step++ {
					j := i + dir*step
					if j < 0 || j >= n {
						continue
					}
					neighbor := m.Spectrum(j)
					ni := neighbor.FindNearest(p.MZ)
					if ni < 0 {
						count++
						continue
					}
					np := neighbor.Peaks[ni]
					sum += PositionScore(p.MZ, np.MZ, t.TraceTolerance)
					count++
					if float64(np.Intensity) > float64(p.Intensity) &&
						(np.MZ-p.MZ) <= t.TraceTolerance && (p.MZ-np.MZ) <= t.TraceTolerance {
						isMax = false
					}
				}
			}
			if count > 0 {
				traceScore[pi] = sum / float64(count)
			}
			if isMax {
				localMax[pi] = 1
			}
		}
	}
}

// IsLocalMax reports whether track value v (as stored in the LocalMax
// track) denotes a local maximum.
func IsLocalMax(v float64) bool { return v != 0 }
