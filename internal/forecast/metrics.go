package forecast

import "math"

// RMSE computes the root mean squared error between two equal-length series.
func RMSE(yTrue, yPred []float64) float64 {
	n := len(yTrue)
	if n == 0 || len(yPred) != n {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := yTrue[i] - yPred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// MAE computes the mean absolute error between two equal-length series.
func MAE(yTrue, yPred []float64) float64 {
	n := len(yTrue)
	if n == 0 || len(yPred) != n {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(n)
}
