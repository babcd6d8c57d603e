package forecast

import (
	"fmt"
	"math"
)

// FitDiagnostic records one skipped grid combination. The grid search keeps
// its skip-and-continue policy but no longer discards the reasons.
type FitDiagnostic struct {
	Order  [3]int `json:"order"`
	Trend  string `json:"trend"`
	Reason string `json:"reason"`
}

// SelectResult is the winning fit plus what happened to the rest of the grid.
type SelectResult struct {
	Model       *Model
	Order       [3]int
	Trend       string
	Fallback    bool
	Diagnostics []FitDiagnostic
}

// ARIMASelectFit grid-searches p in [0,maxP], q in [0,maxQ] crossed with the
// trend options, excluding the degenerate (0,d,0), and returns the fit with
// the lowest AIC. Individual fit failures are skipped. When the whole grid
// fails, the (1,d,0) no-trend fallback is fit unconditionally: its failure is
// a legitimate fatal condition and propagates.
func ARIMASelectFit(y []float64, d, maxP, maxQ int, trends []string, exog [][]float64) (*SelectResult, error) {
	if len(trends) == 0 {
		trends = []string{TrendNone, TrendConst}
	}

	res := &SelectResult{}
	bestAIC := math.Inf(1)

	for p := 0; p <= maxP; p++ {
		for q := 0; q <= maxQ; q++ {
			// pure white noise with at most a constant carries no signal
			if p == 0 && q == 0 {
				continue
			}
			for _, tr := range trends {
				order := [3]int{p, d, q}
				m, err := FitARMAX(y, exog, order, tr)
				if err != nil {
					res.Diagnostics = append(res.Diagnostics, FitDiagnostic{
						Order:  order,
						Trend:  tr,
						Reason: err.Error(),
					})
					continue
				}
				if m.AIC < bestAIC {
					res.Model, bestAIC = m, m.AIC
					res.Order, res.Trend = order, tr
				}
			}
		}
	}

	if res.Model == nil {
		m, err := FitARMAX(y, exog, [3]int{1, d, 0}, TrendNone)
		if err != nil {
			return nil, fmt.Errorf("arima select: every combination failed and fallback (1,%d,0) failed: %w", d, err)
		}
		res.Model = m
		res.Order = [3]int{1, d, 0}
		res.Trend = TrendNone
		res.Fallback = true
	}

	return res, nil
}
