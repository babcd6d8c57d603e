package forecast

import (
	"math"
	"time"
)

// Frame is a day-indexed numeric table with named float64 columns. Column
// order is insertion order and is significant: the exogenous matrix handed to
// the fitter must keep the training-time column order.
type Frame struct {
	Dates []time.Time
	cols  []string
	data  map[string][]float64
}

// NewFrame creates a frame over the given ascending day index.
func NewFrame(dates []time.Time) *Frame {
	return &Frame{
		Dates: dates,
		data:  make(map[string][]float64),
	}
}

func (f *Frame) Len() int        { return len(f.Dates) }
func (f *Frame) Cols() []string  { return append([]string(nil), f.cols...) }
func (f *Frame) NumCols() int    { return len(f.cols) }
func (f *Frame) Has(name string) bool {
	_, ok := f.data[name]
	return ok
}

// SetCol adds or replaces a column. Values shorter than the index are
// zero-padded; NaN/Inf are coerced to 0.
func (f *Frame) SetCol(name string, vals []float64) {
	col := make([]float64, len(f.Dates))
	for i := range col {
		if i < len(vals) && !math.IsNaN(vals[i]) && !math.IsInf(vals[i], 0) {
			col[i] = vals[i]
		}
	}
	if _, exists := f.data[name]; !exists {
		f.cols = append(f.cols, name)
	}
	f.data[name] = col
}

// Col returns the column values, or nil if absent.
func (f *Frame) Col(name string) []float64 {
	return f.data[name]
}

// At returns the value at (row, col name); 0 for an absent column.
func (f *Frame) At(i int, name string) float64 {
	col, ok := f.data[name]
	if !ok || i < 0 || i >= len(col) {
		return 0
	}
	return col[i]
}

// Reindex projects the frame onto a new day index. Rows present in the old
// index are copied by day equality; everything else is zero.
func (f *Frame) Reindex(dates []time.Time) *Frame {
	pos := make(map[int64]int, len(f.Dates))
	for i, d := range f.Dates {
		pos[dayKey(d)] = i
	}
	out := NewFrame(dates)
	for _, c := range f.cols {
		src := f.data[c]
		vals := make([]float64, len(dates))
		for i, d := range dates {
			if j, ok := pos[dayKey(d)]; ok {
				vals[i] = src[j]
			}
		}
		out.SetCol(c, vals)
	}
	return out
}

// ShiftDown shifts every column down by k rows, zero-filling the top. This is
// the leakage guard: features observed on day t predict day t+1.
func (f *Frame) ShiftDown(k int) *Frame {
	out := NewFrame(f.Dates)
	for _, c := range f.cols {
		src := f.data[c]
		vals := make([]float64, len(src))
		for i := k; i < len(src); i++ {
			vals[i] = src[i-k]
		}
		out.SetCol(c, vals)
	}
	return out
}

// AbsSum returns the sum of absolute values across the whole frame.
func (f *Frame) AbsSum() float64 {
	sum := 0.0
	for _, c := range f.cols {
		for _, v := range f.data[c] {
			sum += math.Abs(v)
		}
	}
	return sum
}

// Matrix extracts rows in the given column order. Absent columns yield zero
// values; callers that care about schema drift must check Has first.
func (f *Frame) Matrix(cols []string) [][]float64 {
	out := make([][]float64, f.Len())
	for i := range out {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = f.At(i, c)
		}
		out[i] = row
	}
	return out
}

func dayKey(d time.Time) int64 {
	y, m, dd := d.Date()
	return int64(y)*10000 + int64(m)*100 + int64(dd)
}
