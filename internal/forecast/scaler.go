package forecast

import (
	"math"

	"GapCast/internal/domain/models"
)

const sdFloor = 1e-12

// Standardize z-scores every column of X and returns the transformed frame
// plus the per-column stats. Columns with near-zero variance are zeroed and
// get sd=1.0 so the inverse transform never divides by ~0.
func Standardize(X *Frame) (*Frame, map[string]models.ScalerStat) {
	stats := make(map[string]models.ScalerStat, X.NumCols())
	out := NewFrame(X.Dates)
	for _, c := range X.Cols() {
		s := X.Col(c)
		mu, sd := meanStd(s)
		vals := make([]float64, len(s))
		if sd <= sdFloor {
			stats[c] = models.ScalerStat{Mu: mu, Sd: 1.0}
		} else {
			for i, v := range s {
				vals[i] = (v - mu) / sd
			}
			stats[c] = models.ScalerStat{Mu: mu, Sd: sd}
		}
		out.SetCol(c, vals)
	}
	return out, stats
}

// ApplyScaler standardizes X with previously fitted stats, by column NAME.
// Columns in stats but missing from X come out as zeros; the output holds
// exactly the stats' columns in the order given by cols.
func ApplyScaler(X *Frame, stats map[string]models.ScalerStat, cols []string) *Frame {
	out := NewFrame(X.Dates)
	for _, c := range cols {
		v, ok := stats[c]
		if !ok {
			out.SetCol(c, make([]float64, X.Len()))
			continue
		}
		denom := v.Sd
		if denom <= sdFloor {
			denom = 1.0
		}
		vals := make([]float64, X.Len())
		for i := range vals {
			vals[i] = (X.At(i, c) - v.Mu) / denom
		}
		out.SetCol(c, vals)
	}
	return out
}

func meanStd(s []float64) (mu, sd float64) {
	n := float64(len(s))
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	mu = sum / n
	if len(s) < 2 {
		return mu, 0
	}
	ss := 0.0
	for _, v := range s {
		d := v - mu
		ss += d * d
	}
	// sample std, matching the training-time convention
	sd = math.Sqrt(ss / (n - 1))
	return mu, sd
}
