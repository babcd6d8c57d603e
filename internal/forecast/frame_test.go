package forecast

import (
	"math"
	"testing"
	"time"

	"GapCast/pkg/util"

	"github.com/stretchr/testify/require"
)

func days(start string, n int) []time.Time {
	d0, _ := time.ParseInLocation("2006-01-02", start, util.ICT)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = d0.AddDate(0, 0, i)
	}
	return out
}

func TestFrameSetColCoercesNonFinite(t *testing.T) {
	f := NewFrame(days("2026-01-05", 4))
	f.SetCol("x", []float64{1, math.NaN(), math.Inf(1)})

	require.Equal(t, []float64{1, 0, 0, 0}, f.Col("x"))
	require.Equal(t, []string{"x"}, f.Cols())
}

func TestFrameReindexByDayEquality(t *testing.T) {
	f := NewFrame(days("2026-01-05", 3))
	f.SetCol("x", []float64{1, 2, 3})

	// shift the index by one day; only the overlapping days survive
	re := f.Reindex(days("2026-01-06", 3))
	require.Equal(t, []float64{2, 3, 0}, re.Col("x"))
}

func TestFrameShiftDownIsLeakageGuard(t *testing.T) {
	f := NewFrame(days("2026-01-05", 4))
	f.SetCol("x", []float64{10, 20, 30, 40})

	sh := f.ShiftDown(1)
	require.Equal(t, []float64{0, 10, 20, 30}, sh.Col("x"))
}

func TestFrameMatrixKeepsColumnOrder(t *testing.T) {
	f := NewFrame(days("2026-01-05", 2))
	f.SetCol("b", []float64{3, 4})
	f.SetCol("a", []float64{1, 2})

	m := f.Matrix([]string{"a", "b"})
	require.Equal(t, [][]float64{{1, 3}, {2, 4}}, m)

	// absent columns yield zeros, not panics
	m = f.Matrix([]string{"a", "missing"})
	require.Equal(t, [][]float64{{1, 0}, {2, 0}}, m)
}

func TestFrameAbsSum(t *testing.T) {
	f := NewFrame(days("2026-01-05", 2))
	f.SetCol("x", []float64{-1, 2})
	f.SetCol("y", []float64{0, -3})
	require.InDelta(t, 6.0, f.AbsSum(), 1e-12)
}

func TestStandardizeAndApply(t *testing.T) {
	f := NewFrame(days("2026-01-05", 4))
	f.SetCol("x", []float64{1, 2, 3, 4})
	f.SetCol("flat", []float64{5, 5, 5, 5})

	std, stats := Standardize(f)

	// z-scored column has mean ~0
	var sum float64
	for _, v := range std.Col("x") {
		sum += v
	}
	require.InDelta(t, 0, sum, 1e-9)
	require.InDelta(t, 2.5, stats["x"].Mu, 1e-12)

	// zero-variance column is zeroed with sd floored to 1
	require.Equal(t, []float64{0, 0, 0, 0}, std.Col("flat"))
	require.Equal(t, 1.0, stats["flat"].Sd)

	// applying the fitted stats to the original data reproduces the z-scores
	applied := ApplyScaler(f, stats, []string{"x", "flat"})
	require.InDeltaSlice(t, std.Col("x"), applied.Col("x"), 1e-12)
}

func TestApplyScalerMissingColumnZeroFills(t *testing.T) {
	f := NewFrame(days("2026-01-05", 2))
	f.SetCol("x", []float64{1, 2})

	_, fitted := Standardize(f)

	// a column requested at inference but absent from the stats map comes
	// out as zeros
	applied := ApplyScaler(f, fitted, []string{"x", "gone"})
	require.Equal(t, []float64{0, 0}, applied.Col("gone"))
	require.Equal(t, []string{"x", "gone"}, applied.Cols())
}
