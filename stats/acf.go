// Package stats provides statistical tests and functions for time series analysis.
package stats

import (
	"math"

	"github.com/sartorproj/arimabatch/timeseries"
)

// ACF calculates the Autocorrelation Function for lags 0 to maxLag.
// Missing observations are skipped: a lagged pair contributes only when
// both ends are observed. Returns nil for a constant or empty series.
func ACF(series *timeseries.Series, maxLag int) []float64 {
	return acfValues(series.Values, maxLag)
}

func acfValues(values []float64, maxLag int) []float64 {
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean, count := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			mean += v
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean /= float64(count)

	variance := 0.0
	for _, v := range values {
		if !math.IsNaN(v) {
			diff := v - mean
			variance += diff * diff
		}
	}
	if variance == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			a, b := values[i], values[i-k]
			if math.IsNaN(a) || math.IsNaN(b) {
				continue
			}
			sum += (a - mean) * (b - mean)
		}
		acf[k] = sum / variance
	}

	return acf
}

// PACF calculates the Partial Autocorrelation Function using the
// Durbin-Levinson recursion. Index 0 holds 1 by convention.
func PACF(series *timeseries.Series, maxLag int) []float64 {
	n := series.Len()
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 1 {
		return nil
	}

	acf := ACF(series, maxLag)
	if acf == nil {
		return nil
	}
	return pacfFromACF(acf, maxLag)
}

func pacfFromACF(acf []float64, maxLag int) []float64 {
	pacf := make([]float64, maxLag+1)
	pacf[0] = 1

	prev := make([]float64, maxLag+1)
	curr := make([]float64, maxLag+1)

	prev[1] = acf[1]
	pacf[1] = acf[1]

	for k := 2; k <= maxLag; k++ {
		num := acf[k]
		den := 1.0
		for j := 1; j < k; j++ {
			num -= prev[j] * acf[k-j]
			den -= prev[j] * acf[j]
		}
		if den == 0 {
			break
		}

		curr[k] = num / den
		for j := 1; j < k; j++ {
			curr[j] = prev[j] - curr[k]*prev[k-j]
		}
		pacf[k] = curr[k]
		copy(prev, curr)
	}

	return pacf
}

// ACFResult represents the result of ACF analysis.
type ACFResult struct {
	Lags       []int
	Values     []float64
	ConfBounds float64 // 95% bounds, ±1.96/sqrt(n)
}

// ACFWithConfidence calculates ACF with 95% confidence bounds.
func ACFWithConfidence(series *timeseries.Series, maxLag int) *ACFResult {
	acf := ACF(series, maxLag)
	if acf == nil {
		return nil
	}
	return withBounds(acf, series.Len()-series.Missing())
}

// PACFWithConfidence calculates PACF with 95% confidence bounds.
func PACFWithConfidence(series *timeseries.Series, maxLag int) *ACFResult {
	pacf := PACF(series, maxLag)
	if pacf == nil {
		return nil
	}
	return withBounds(pacf, series.Len()-series.Missing())
}

func withBounds(values []float64, nObs int) *ACFResult {
	lags := make([]int, len(values))
	for i := range lags {
		lags[i] = i
	}
	return &ACFResult{
		Lags:       lags,
		Values:     values,
		ConfBounds: 1.96 / math.Sqrt(float64(nObs)),
	}
}

// SignificantLags returns the lags (excluding 0) whose values exceed the
// confidence bound in absolute value.
func SignificantLags(values []float64, confBound float64) []int {
	var significant []int
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]) > confBound {
			significant = append(significant, i)
		}
	}
	return significant
}
