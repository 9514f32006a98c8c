// Package stats provides the small statistical toolkit used by the
// analytics services: descriptive statistics, a coefficient-of-variation
// confidence score, and ordinary least squares over index-based x values.
package stats

import "math"

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Variance returns the population variance, 0 for fewer than 2 samples.
func Variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := Mean(xs)
	var sum float64
	for _, x := range xs {
		diff := x - mean
		sum += diff * diff
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation.
func StdDev(xs []float64) float64 {
	return math.Sqrt(Variance(xs))
}

// Confidence scores how consistent a series of amounts is, in [0,1]:
// clamp(1 - stddev/mean, 0, 1). Lower relative dispersion means higher
// confidence. Fewer than 2 samples or a non-positive mean score 0.
func Confidence(amounts []float64) float64 {
	if len(amounts) < 2 {
		return 0
	}
	mean := Mean(amounts)
	if mean <= 0 {
		return 0
	}
	return Clamp(1-StdDev(amounts)/mean, 0, 1)
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Regression is an ordinary-least-squares fit of y over x = 0, 1, 2, ...
type Regression struct {
	Slope     float64
	Intercept float64
	RSquared  float64
	StdError  float64
	N         int

	meanX float64
	sxx   float64
}

// LinearRegression fits y = slope·x + intercept over index-based x.
// ok is false when fewer than 2 points are given.
func LinearRegression(ys []float64) (Regression, bool) {
	n := float64(len(ys))
	if n < 2 {
		return Regression{}, false
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return Regression{}, false
	}

	r := Regression{N: len(ys)}
	r.Slope = (n*sumXY - sumX*sumY) / denom
	r.Intercept = (sumY - r.Slope*sumX) / n
	r.meanX = sumX / n
	r.sxx = sumX2 - n*r.meanX*r.meanX

	meanY := sumY / n
	var ssRes, ssTot float64
	for i, y := range ys {
		predicted := r.Slope*float64(i) + r.Intercept
		ssRes += (y - predicted) * (y - predicted)
		ssTot += (y - meanY) * (y - meanY)
	}
	if ssTot > 0 {
		r.RSquared = 1 - ssRes/ssTot
	}
	if len(ys) > 2 {
		r.StdError = math.Sqrt(ssRes / (n - 2))
	}
	return r, true
}

// PredictAt returns the fitted value at x.
func (r Regression) PredictAt(x float64) float64 {
	return r.Slope*x + r.Intercept
}

// PredictionInterval returns the 95% prediction interval half-width at a
// future x: 1.96 · SE · sqrt(1 + 1/n + (x-x̄)²/Sxx).
func (r Regression) PredictionInterval(x float64) float64 {
	if r.N == 0 || r.sxx == 0 {
		return 0
	}
	n := float64(r.N)
	dx := x - r.meanX
	return 1.96 * r.StdError * math.Sqrt(1+1/n+dx*dx/r.sxx)
}
