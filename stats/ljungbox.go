package stats

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/arimabatch/timeseries"
)

// PortmanteauResult is the result of a Ljung-Box or Box-Pierce test.
type PortmanteauResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int // Degrees of freedom
}

// LjungBox performs the Ljung-Box test for autocorrelation in residuals.
// The null hypothesis is no autocorrelation up to lag h; a p-value below
// 0.05 indicates remaining structure. fitdf is the number of estimated ARMA
// coefficients.
func LjungBox(series *timeseries.Series, lags, fitdf int) *PortmanteauResult {
	return portmanteau(series, lags, fitdf, func(acfK float64, n, k int) float64 {
		return acfK * acfK / float64(n-k)
	}, func(n int) float64 {
		return float64(n * (n + 2))
	})
}

// BoxPierce performs the Box-Pierce test for autocorrelation.
func BoxPierce(series *timeseries.Series, lags, fitdf int) *PortmanteauResult {
	return portmanteau(series, lags, fitdf, func(acfK float64, _, _ int) float64 {
		return acfK * acfK
	}, func(n int) float64 {
		return float64(n)
	})
}

func portmanteau(series *timeseries.Series, lags, fitdf int,
	term func(acfK float64, n, k int) float64, scale func(n int) float64,
) *PortmanteauResult {
	n := series.Len() - series.Missing()
	if n < 10 || lags < 1 {
		return nil
	}
	if lags >= n {
		lags = n - 1
	}

	acf := ACF(series, lags)
	if acf == nil {
		return nil
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += term(acf[k], n, k)
	}
	q *= scale(n)

	dof := max(lags-fitdf, 1)
	chi := distuv.ChiSquared{K: float64(dof)}

	return &PortmanteauResult{
		Statistic: q,
		PValue:    chi.Survival(q),
		Lags:      lags,
		DOF:       dof,
	}
}

// DurbinWatsonResult represents the result of a Durbin-Watson test.
type DurbinWatsonResult struct {
	Statistic float64 // near 2: no autocorrelation, <2 positive, >2 negative
}

// DurbinWatson calculates the Durbin-Watson statistic for first-order
// autocorrelation.
func DurbinWatson(residuals []float64) *DurbinWatsonResult {
	n := len(residuals)
	if n < 2 {
		return nil
	}

	numerator := 0.0
	denominator := 0.0
	for i := 1; i < n; i++ {
		diff := residuals[i] - residuals[i-1]
		numerator += diff * diff
	}
	for _, r := range residuals {
		denominator += r * r
	}
	if denominator == 0 {
		return nil
	}

	return &DurbinWatsonResult{Statistic: numerator / denominator}
}
