package forecast

import (
	"fmt"
	"math"
)

// Trend specifications: no trend, or a constant term.
const (
	TrendNone  = "n"
	TrendConst = "c"
)

// Params are the estimated ARMAX coefficients.
type Params struct {
	Const float64   `json:"const"`
	Beta  []float64 `json:"beta"`
	Phi   []float64 `json:"phi"`
	Theta []float64 `json:"theta"`
}

// Model is a fitted ARMAX(p,d,q) gap-return model. The struct carries
// everything a reloaded model needs for one-step-ahead forecasting: the
// coefficient set, the concentrated scale, and the observation/residual
// tails of the training window.
type Model struct {
	Order   [3]int  `json:"order"`
	Trend   string  `json:"trend"`
	Params  Params  `json:"params"`
	Sigma2  float64 `json:"sigma2"`
	LogLik  float64 `json:"loglik"`
	AIC     float64 `json:"aic"`
	N       int     `json:"n"`
	NumExog int     `json:"num_exog"`

	YTail      []float64 `json:"y_tail"` // last p observations, oldest first
	ETail      []float64 `json:"e_tail"` // last q residuals, oldest first
	LastLevels []float64 `json:"last_levels,omitempty"`
	Dates      []string  `json:"dates"` // endog day index, YYYY-MM-DD
}

// LastDate returns the final training-observation day, or "" when unknown.
func (m *Model) LastDate() string {
	if len(m.Dates) == 0 {
		return ""
	}
	return m.Dates[len(m.Dates)-1]
}

// FitARMAX estimates an ARMAX(p,d,q) model on y (optionally with exogenous
// rows X) by conditional-sum-of-squares with a concentrated Gaussian scale.
// Pre-sample lags are conditioned to zero; stationarity and invertibility are
// not enforced. The quasi-Newton optimizer runs first, with a Nelder-Mead
// retry when it fails to produce a finite optimum.
func FitARMAX(y []float64, X [][]float64, order [3]int, trend string) (*Model, error) {
	p, d, q := order[0], order[1], order[2]
	if p < 0 || d < 0 || q < 0 {
		return nil, fmt.Errorf("armax: negative order %v", order)
	}
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("armax: non-finite endog value")
		}
	}

	// Difference d times, remembering the dropped levels for integration.
	work := append([]float64(nil), y...)
	var lastLevels []float64
	for i := 0; i < d; i++ {
		if len(work) < 2 {
			return nil, fmt.Errorf("armax: series too short for d=%d", d)
		}
		lastLevels = append(lastLevels, work[len(work)-1])
		diffed := make([]float64, len(work)-1)
		for t := 1; t < len(work); t++ {
			diffed[t-1] = work[t] - work[t-1]
		}
		work = diffed
	}
	n := len(work)
	if n == 0 {
		return nil, fmt.Errorf("armax: empty series")
	}

	numExog := 0
	if len(X) > 0 {
		numExog = len(X[0])
		if len(X) < len(y) {
			return nil, fmt.Errorf("armax: exog rows %d < endog rows %d", len(X), len(y))
		}
		// align exog with the differenced series (drop the first d rows)
		X = X[len(X)-n:]
	}

	hasConst := trend == TrendConst
	dim := numExog + p + q
	if hasConst {
		dim++
	}

	obj := func(v []float64) float64 {
		pr := unpack(v, hasConst, numExog, p, q)
		e := cssResiduals(work, X, pr)
		sse := 0.0
		for _, r := range e {
			sse += r * r
		}
		if math.IsNaN(sse) || math.IsInf(sse, 0) || sse <= 0 {
			return math.Inf(1)
		}
		s2 := sse / float64(n)
		return 0.5 * float64(n) * (math.Log(2*math.Pi) + math.Log(s2) + 1)
	}

	init := make([]float64, dim)
	if hasConst {
		init[0] = mean(work)
	}

	best, nll, err := minimizeBFGS(obj, init, 500)
	if err != nil || !isFiniteVec(best) || math.IsInf(nll, 0) {
		best, nll, err = minimizeNelderMead(obj, init, 2000)
		if err != nil {
			return nil, fmt.Errorf("armax(%d,%d,%d|%s): %w", p, d, q, trend, err)
		}
	}
	if !isFiniteVec(best) || math.IsInf(nll, 0) || math.IsNaN(nll) {
		return nil, fmt.Errorf("armax(%d,%d,%d|%s): optimizer produced non-finite result", p, d, q, trend)
	}

	pr := unpack(best, hasConst, numExog, p, q)
	e := cssResiduals(work, X, pr)
	sse := 0.0
	for _, r := range e {
		sse += r * r
	}
	sigma2 := sse / float64(n)
	logLik := -nll

	k := float64(dim)
	m := &Model{
		Order:      order,
		Trend:      trend,
		Params:     pr,
		Sigma2:     sigma2,
		LogLik:     logLik,
		AIC:        2*k - 2*logLik,
		N:          n,
		NumExog:    numExog,
		LastLevels: lastLevels,
	}
	if p > 0 {
		m.YTail = append([]float64(nil), work[max(0, n-p):]...)
	}
	if q > 0 {
		m.ETail = append([]float64(nil), e[max(0, n-q):]...)
	}
	return m, nil
}

// cssResiduals runs the ARMAX recursion with zero pre-sample conditioning.
func cssResiduals(y []float64, X [][]float64, pr Params) []float64 {
	p, q := len(pr.Phi), len(pr.Theta)
	e := make([]float64, len(y))
	for t := range y {
		pred := pr.Const
		if len(X) > 0 {
			for j, b := range pr.Beta {
				if j < len(X[t]) {
					pred += b * X[t][j]
				}
			}
		}
		for i := 1; i <= p; i++ {
			if t-i >= 0 {
				pred += pr.Phi[i-1] * y[t-i]
			}
		}
		for j := 1; j <= q; j++ {
			if t-j >= 0 {
				pred += pr.Theta[j-1] * e[t-j]
			}
		}
		e[t] = y[t] - pred
	}
	return e
}

// FittedValues recomputes the in-sample one-step-ahead predictions for the
// training arrays. Used by the trainer for RMSE/MAE evaluation.
func (m *Model) FittedValues(y []float64, X [][]float64) []float64 {
	e := cssResiduals(y, X, m.Params)
	out := make([]float64, len(y))
	for t := range y {
		out[t] = y[t] - e[t]
	}
	return out
}

// ForecastOne produces the one-step-ahead mean and its two-sided (1-alpha)
// confidence interval. exogRow must match NumExog; pass nil for a pure
// autoregressive model.
func (m *Model) ForecastOne(exogRow []float64, alpha float64) (mean, lo, hi float64, err error) {
	if m.NumExog > 0 && len(exogRow) != m.NumExog {
		return 0, 0, 0, fmt.Errorf("armax forecast: exog row has %d columns, model trained with %d", len(exogRow), m.NumExog)
	}

	mean = m.Params.Const
	for j, b := range m.Params.Beta {
		if j < len(exogRow) {
			mean += b * exogRow[j]
		}
	}
	for i := 1; i <= len(m.Params.Phi); i++ {
		if len(m.YTail)-i >= 0 {
			mean += m.Params.Phi[i-1] * m.YTail[len(m.YTail)-i]
		}
	}
	for j := 1; j <= len(m.Params.Theta); j++ {
		if len(m.ETail)-j >= 0 {
			mean += m.Params.Theta[j-1] * m.ETail[len(m.ETail)-j]
		}
	}

	// integrate back through the differencing levels
	for i := len(m.LastLevels) - 1; i >= 0; i-- {
		mean += m.LastLevels[i]
	}

	se := math.Sqrt(m.Sigma2)
	z := normQuantile(1 - alpha/2)
	return mean, mean - z*se, mean + z*se, nil
}

func unpack(v []float64, hasConst bool, numExog, p, q int) Params {
	i := 0
	var pr Params
	if hasConst {
		pr.Const = v[i]
		i++
	}
	pr.Beta = append([]float64(nil), v[i:i+numExog]...)
	i += numExog
	pr.Phi = append([]float64(nil), v[i:i+p]...)
	i += p
	pr.Theta = append([]float64(nil), v[i:i+q]...)
	return pr
}

func mean(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}

func isFiniteVec(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// normQuantile is the standard normal inverse CDF (Acklam's rational
// approximation, |relative error| < 1.15e-9).
func normQuantile(p float64) float64 {
	if p <= 0 || p >= 1 {
		if p <= 0 {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}

	a := [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	c := [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	dd := [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}

	const pLow = 0.02425
	switch {
	case p < pLow:
		qv := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*qv+c[1])*qv+c[2])*qv+c[3])*qv+c[4])*qv + c[5]) /
			((((dd[0]*qv+dd[1])*qv+dd[2])*qv+dd[3])*qv + 1)
	case p > 1-pLow:
		qv := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*qv+c[1])*qv+c[2])*qv+c[3])*qv+c[4])*qv + c[5]) /
			((((dd[0]*qv+dd[1])*qv+dd[2])*qv+dd[3])*qv + 1)
	default:
		qv := p - 0.5
		r := qv * qv
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * qv /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	}
}
