package forecast

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func simulateAR1(n int, phi, sigma float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	y := make([]float64, n)
	for t := 1; t < n; t++ {
		y[t] = phi*y[t-1] + sigma*rng.NormFloat64()
	}
	return y
}

func TestFitARMAXRecoversAR1(t *testing.T) {
	y := simulateAR1(400, 0.6, 0.01, 42)

	m, err := FitARMAX(y, nil, [3]int{1, 0, 0}, TrendNone)
	require.NoError(t, err)
	require.Len(t, m.Params.Phi, 1)
	require.InDelta(t, 0.6, m.Params.Phi[0], 0.15)
	require.Greater(t, m.Sigma2, 0.0)
	require.False(t, math.IsNaN(m.AIC))
}

func TestFitARMAXWithExog(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 300
	y := make([]float64, n)
	X := make([][]float64, n)
	for t := 0; t < n; t++ {
		x := rng.NormFloat64()
		X[t] = []float64{x}
		y[t] = 0.8*x + 0.005*rng.NormFloat64()
		if t > 0 {
			y[t] += 0.3 * y[t-1]
		}
	}

	m, err := FitARMAX(y, X, [3]int{1, 0, 0}, TrendNone)
	require.NoError(t, err)
	require.Equal(t, 1, m.NumExog)
	require.InDelta(t, 0.8, m.Params.Beta[0], 0.15)
}

func TestFitARMAXRejectsNonFinite(t *testing.T) {
	y := []float64{0.1, math.NaN(), 0.2}
	_, err := FitARMAX(y, nil, [3]int{1, 0, 0}, TrendNone)
	require.Error(t, err)
}

func TestForecastOneInterval(t *testing.T) {
	y := simulateAR1(200, 0.5, 0.01, 3)
	m, err := FitARMAX(y, nil, [3]int{1, 0, 0}, TrendNone)
	require.NoError(t, err)

	mean, lo, hi, err := m.ForecastOne(nil, 0.10)
	require.NoError(t, err)
	require.Less(t, lo, mean)
	require.Greater(t, hi, mean)
	// symmetric interval around the mean
	require.InDelta(t, mean-lo, hi-mean, 1e-9)

	// tighter alpha widens the band
	_, lo2, hi2, err := m.ForecastOne(nil, 0.01)
	require.NoError(t, err)
	require.Less(t, lo2, lo)
	require.Greater(t, hi2, hi)
}

func TestForecastOneExogMismatch(t *testing.T) {
	y := simulateAR1(100, 0.4, 0.01, 9)
	X := make([][]float64, len(y))
	for i := range X {
		X[i] = []float64{0.1, 0.2}
	}
	m, err := FitARMAX(y, X, [3]int{1, 0, 0}, TrendNone)
	require.NoError(t, err)

	_, _, _, err = m.ForecastOne([]float64{0.1}, 0.10)
	require.Error(t, err)
}

func TestNormQuantile(t *testing.T) {
	require.InDelta(t, 1.6449, normQuantile(0.95), 1e-3)
	require.InDelta(t, 1.9600, normQuantile(0.975), 1e-3)
	require.InDelta(t, -1.9600, normQuantile(0.025), 1e-3)
	require.InDelta(t, 0.0, normQuantile(0.5), 1e-9)
	require.True(t, math.IsInf(normQuantile(0), -1))
	require.True(t, math.IsInf(normQuantile(1), 1))
}

func TestARIMASelectFitPicksFiniteBest(t *testing.T) {
	y := simulateAR1(300, 0.6, 0.01, 11)

	sel, err := ARIMASelectFit(y, 0, 2, 2, []string{TrendNone, TrendConst}, nil)
	require.NoError(t, err)
	require.NotNil(t, sel.Model)
	require.False(t, sel.Fallback)
	require.False(t, math.IsInf(sel.Model.AIC, 0))
	// the degenerate (0,0,0) is never a candidate
	require.False(t, sel.Order[0] == 0 && sel.Order[2] == 0)
}

func TestARIMASelectFitWinnerHasMinimalAIC(t *testing.T) {
	y := simulateAR1(300, 0.6, 0.01, 11)
	trends := []string{TrendNone, TrendConst}

	sel, err := ARIMASelectFit(y, 0, 2, 2, trends, nil)
	require.NoError(t, err)
	require.NotNil(t, sel.Model)
	require.False(t, sel.Fallback)

	// refit every combination the grid considers: no successful fit may
	// beat the winner's AIC
	for p := 0; p <= 2; p++ {
		for q := 0; q <= 2; q++ {
			if p == 0 && q == 0 {
				continue
			}
			for _, tr := range trends {
				m, err := FitARMAX(y, nil, [3]int{p, 0, q}, tr)
				if err != nil {
					continue
				}
				require.LessOrEqual(t, sel.Model.AIC, m.AIC,
					"order (%d,0,%d) trend %s fit below the selected AIC", p, q, tr)
			}
		}
	}
}

func TestARIMASelectFitAllFail(t *testing.T) {
	// one observation cannot be differenced: every grid combination and the
	// (1,1,0) fallback fail, and the error says so
	y := []float64{0.5}
	_, err := ARIMASelectFit(y, 1, 1, 1, nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fallback")
}

func TestFittedValuesMatchResiduals(t *testing.T) {
	y := simulateAR1(150, 0.5, 0.01, 21)
	m, err := FitARMAX(y, nil, [3]int{1, 0, 0}, TrendNone)
	require.NoError(t, err)

	fitted := m.FittedValues(y, nil)
	require.Len(t, fitted, len(y))
	rmse := RMSE(y, fitted)
	// residual spread should be on the order of the noise, far below the
	// series spread
	require.Less(t, rmse, 0.05)
}
