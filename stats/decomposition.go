package stats

import (
	"math"

	"github.com/sartorproj/arimabatch/timeseries"
)

// DecompositionResult represents the decomposition of a time series.
type DecompositionResult struct {
	Trend    *timeseries.Series
	Seasonal *timeseries.Series
	Residual *timeseries.Series
	Period   int
	Type     string // "additive" or "multiplicative"
}

// Decompose performs classical seasonal decomposition with a centered
// moving-average trend. Type is "additive" (Y = T + S + R) or
// "multiplicative" (Y = T * S * R); anything else is treated as additive.
// Returns nil when the series is shorter than two periods.
func Decompose(series *timeseries.Series, period int, decompositionType string) *DecompositionResult {
	n := series.Len()
	if period < 2 || n < 2*period {
		return nil
	}
	if decompositionType != "multiplicative" {
		decompositionType = "additive"
	}
	mult := decompositionType == "multiplicative"

	trend := centeredMovingAverage(series.Values, period)

	detrended := make([]float64, n)
	for i, v := range series.Values {
		switch {
		case math.IsNaN(trend[i]) || math.IsNaN(v):
			detrended[i] = math.NaN()
		case mult:
			detrended[i] = v / trend[i]
		default:
			detrended[i] = v - trend[i]
		}
	}

	pattern := make([]float64, period)
	counts := make([]int, period)
	for i, v := range detrended {
		if !math.IsNaN(v) {
			pattern[i%period] += v
			counts[i%period]++
		}
	}
	mean := 0.0
	for i := range pattern {
		if counts[i] > 0 {
			pattern[i] /= float64(counts[i])
		}
		mean += pattern[i]
	}
	mean /= float64(period)
	for i := range pattern {
		if mult {
			pattern[i] /= mean
		} else {
			pattern[i] -= mean
		}
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i, v := range series.Values {
		seasonal[i] = pattern[i%period]
		switch {
		case math.IsNaN(trend[i]):
			residual[i] = math.NaN()
		case mult:
			residual[i] = v / (trend[i] * seasonal[i])
		default:
			residual[i] = v - trend[i] - seasonal[i]
		}
	}

	return &DecompositionResult{
		Trend:    &timeseries.Series{Values: trend, Timestamps: series.Timestamps, Name: "trend"},
		Seasonal: &timeseries.Series{Values: seasonal, Timestamps: series.Timestamps, Name: "seasonal"},
		Residual: &timeseries.Series{Values: residual, Timestamps: series.Timestamps, Name: "residual"},
		Period:   period,
		Type:     decompositionType,
	}
}

// centeredMovingAverage uses a 2xm MA for even periods. Edges are NaN.
func centeredMovingAverage(values []float64, period int) []float64 {
	n := len(values)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}

	half := period / 2
	for i := half; i < n-half; i++ {
		sum := 0.0
		if period%2 == 0 {
			sum += 0.5*values[i-half] + 0.5*values[i+half]
			for j := i - half + 1; j < i+half; j++ {
				sum += values[j]
			}
		} else {
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
		}
		trend[i] = sum / float64(period)
	}
	return trend
}
