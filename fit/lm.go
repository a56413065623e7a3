// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fit

import "gonum.org/v1/gonum/mat"

// levenbergMarquardt minimizes sum(resid(p)[i]^2) starting from init,
// for at most maxIter iterations, using a classic damped Gauss-Newton
// step solved via gonum/mat. This stands in for a dedicated LM package -
// gonum/optimize ships no Levenberg-Marquardt method, so the normal
// equations (J^T J + lambda*diag(J^T J)) delta = -J^T r are assembled
// and solved directly with mat.Dense/mat.VecDense, matching how the
// trust-region step of any LM variant is actually computed.
func levenbergMarquardt(init []float64, maxIter int, resid func([]float64) []float64) ([]float64, error) {
	p := append([]float64(nil), init...)
	n := len(p)

	lambda := 1e-3
	r := resid(p)
	cost := sumSquares(r)

	for iter := 0; iter < maxIter; iter++ {
		j := jacobian(resid, p, r)

		jt := mat.DenseCopyOf(j.T())
		var jtj mat.Dense
		jtj.Mul(jt, j)

		var jtr mat.VecDense
		rv := mat.NewVecDense(len(r), r)
		jtr.MulVec(jt, rv)

		improved := false
		for try := 0; try < 10; try++ {
			a := mat.NewDense(n, n, nil)
			a.Copy(&jtj)
			for i := 0; i < n; i++ {
				a.Set(i, i, a.At(i, i)*(1+lambda))
			}

			var delta mat.VecDense
			negJtr := mat.NewVecDense(n, nil)
			negJtr.ScaleVec(-1, &jtr)
			if err := delta.SolveVec(a, negJtr); err != nil {
				lambda *= 10
				continue
			}

			cand := make([]float64, n)
			for i := range cand {
				cand[i] = p[i] + delta.AtVec(i)
			}
			rc := resid(cand)
			cc := sumSquares(rc)
			if cc < cost {
				p = cand
				r = rc
				cost = cc
				lambda /= 10
				improved = true
				break
			}
			lambda *= 10
		}
		if !improved {
			break
		}
		if cost < 1e-12 {
			break
		}
	}
	return p, nil
}

// jacobian computes the n x m (m = len(p)) matrix J_ij = d resid_i / d
// p_j via a forward finite difference, reusing the already-evaluated
// residual at p (r0) as the base point.
func jacobian(resid func([]float64) []float64, p []float64, r0 []float64) *mat.Dense {
	n, m := len(r0), len(p)
	j := mat.NewDense(n, m, nil)
	for col := 0; col < m; col++ {
		h := 1e-6 * (absOrOne(p[col]))
		pp := append([]float64(nil), p...)
		pp[col] += h
		rp := resid(pp)
		for row := 0; row < n; row++ {
			j.Set(row, col, (rp[row]-r0[row])/h)
		}
	}
	return j
}

func absOrOne(x float64) float64 {
	if x == 0 {
		return 1e-3
	}
	if x < 0 {
		return -x
	}
	return x
}

func sumSquares(r []float64) float64 {
	var s float64
	for _, v := range r {
		s += v * v
	}
	return s
}
