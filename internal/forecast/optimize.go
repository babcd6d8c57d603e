package forecast

import (
	"fmt"
	"math"
)

// minimizeBFGS is a dense quasi-Newton minimizer with numeric gradients and
// Armijo backtracking. It returns the best point found and its objective
// value, or an error when no finite descent was possible.
func minimizeBFGS(f func([]float64) float64, x0 []float64, maxIter int) ([]float64, float64, error) {
	n := len(x0)
	x := append([]float64(nil), x0...)
	fx := f(x)
	if math.IsInf(fx, 0) || math.IsNaN(fx) {
		return nil, 0, fmt.Errorf("bfgs: objective not finite at start")
	}

	// inverse Hessian approximation, starts as identity
	H := eye(n)
	g := numGrad(f, x, fx)

	const (
		gradTol  = 1e-8
		stepTol  = 1e-12
		armijoC  = 1e-4
		shrink   = 0.5
	)

	for iter := 0; iter < maxIter; iter++ {
		if normInf(g) < gradTol {
			break
		}

		// search direction d = -H g
		d := make([]float64, n)
		for i := 0; i < n; i++ {
			s := 0.0
			for j := 0; j < n; j++ {
				s += H[i][j] * g[j]
			}
			d[i] = -s
		}

		// backtracking line search
		step := 1.0
		gd := dot(g, d)
		if gd >= 0 {
			// not a descent direction; reset curvature
			H = eye(n)
			for i := range d {
				d[i] = -g[i]
			}
			gd = dot(g, d)
		}
		var xNew []float64
		var fNew float64
		ok := false
		for step > stepTol {
			xNew = axpy(x, d, step)
			fNew = f(xNew)
			if !math.IsNaN(fNew) && !math.IsInf(fNew, 0) && fNew <= fx+armijoC*step*gd {
				ok = true
				break
			}
			step *= shrink
		}
		if !ok {
			break
		}

		gNew := numGrad(f, xNew, fNew)

		// BFGS inverse update
		s := make([]float64, n)
		yv := make([]float64, n)
		for i := 0; i < n; i++ {
			s[i] = xNew[i] - x[i]
			yv[i] = gNew[i] - g[i]
		}
		sy := dot(s, yv)
		if sy > 1e-10 {
			rho := 1.0 / sy
			Hy := make([]float64, n)
			for i := 0; i < n; i++ {
				t := 0.0
				for j := 0; j < n; j++ {
					t += H[i][j] * yv[j]
				}
				Hy[i] = t
			}
			yHy := dot(yv, Hy)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					H[i][j] += (sy + yHy) * rho * rho * s[i] * s[j]
					H[i][j] -= rho * (Hy[i]*s[j] + s[i]*Hy[j])
				}
			}
		}

		x, fx, g = xNew, fNew, gNew
	}

	if math.IsNaN(fx) || math.IsInf(fx, 0) {
		return nil, 0, fmt.Errorf("bfgs: diverged")
	}
	return x, fx, nil
}

// minimizeNelderMead is the derivative-free fallback simplex search.
func minimizeNelderMead(f func([]float64) float64, x0 []float64, maxIter int) ([]float64, float64, error) {
	n := len(x0)
	if n == 0 {
		return append([]float64(nil), x0...), f(x0), nil
	}

	const (
		alpha = 1.0 // reflection
		gamma = 2.0 // expansion
		rho   = 0.5 // contraction
		sigma = 0.5 // shrink
	)

	// initial simplex around x0
	pts := make([][]float64, n+1)
	vals := make([]float64, n+1)
	for i := range pts {
		p := append([]float64(nil), x0...)
		if i > 0 {
			if p[i-1] != 0 {
				p[i-1] *= 1.05
			} else {
				p[i-1] = 0.05
			}
		}
		pts[i] = p
		vals[i] = f(p)
	}

	for iter := 0; iter < maxIter; iter++ {
		sortSimplex(pts, vals)
		if math.Abs(vals[n]-vals[0]) < 1e-10 {
			break
		}

		// centroid of all but worst
		cen := make([]float64, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				cen[j] += pts[i][j]
			}
		}
		for j := range cen {
			cen[j] /= float64(n)
		}

		refl := blend(cen, pts[n], 1+alpha, -alpha)
		fr := f(refl)
		switch {
		case fr < vals[0]:
			exp := blend(cen, pts[n], 1+gamma, -gamma)
			fe := f(exp)
			if fe < fr {
				pts[n], vals[n] = exp, fe
			} else {
				pts[n], vals[n] = refl, fr
			}
		case fr < vals[n-1]:
			pts[n], vals[n] = refl, fr
		default:
			con := blend(cen, pts[n], 1-rho, rho)
			fc := f(con)
			if fc < vals[n] {
				pts[n], vals[n] = con, fc
			} else {
				for i := 1; i <= n; i++ {
					pts[i] = blend(pts[0], pts[i], 1-sigma, sigma)
					vals[i] = f(pts[i])
				}
			}
		}
	}

	sortSimplex(pts, vals)
	if math.IsNaN(vals[0]) || math.IsInf(vals[0], 0) {
		return nil, 0, fmt.Errorf("nelder-mead: no finite optimum")
	}
	return pts[0], vals[0], nil
}

func numGrad(f func([]float64) float64, x []float64, fx float64) []float64 {
	g := make([]float64, len(x))
	for i := range x {
		h := 1e-6 * (1 + math.Abs(x[i]))
		old := x[i]
		x[i] = old + h
		fp := f(x)
		x[i] = old
		if math.IsNaN(fp) || math.IsInf(fp, 0) {
			x[i] = old - h
			fm := f(x)
			x[i] = old
			g[i] = (fx - fm) / h
			continue
		}
		g[i] = (fp - fx) / h
	}
	return g
}

func eye(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}

func normInf(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func axpy(x, d []float64, step float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] + step*d[i]
	}
	return out
}

func blend(a, b []float64, wa, wb float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = wa*a[i] + wb*b[i]
	}
	return out
}

func sortSimplex(pts [][]float64, vals []float64) {
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && less(vals[j], vals[j-1]); j-- {
			vals[j], vals[j-1] = vals[j-1], vals[j]
			pts[j], pts[j-1] = pts[j-1], pts[j]
		}
	}
}

// less orders finite values first so NaN never wins the simplex sort.
func less(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a < b
}
