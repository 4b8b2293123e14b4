// Package stats provides statistical tests and analysis functions for time series.
//
// Every function here tolerates missing observations (NaN): tests drop
// them, and autocorrelations skip pairs with a missing end. The arima
// package uses LjungBox for fitted-model summaries and the autoarima
// package uses NDiffs and NSDiffs to pick differencing orders.
//
// # Stationarity Tests
//
// Test whether a time series is stationary:
//
//	// Augmented Dickey-Fuller test
//	// H0: Series has unit root (non-stationary)
//	adf := stats.ADF(series, 0)
//	fmt.Printf("ADF: stat=%.4f, p=%.4f, stationary=%v\n",
//	    adf.Statistic, adf.PValue, adf.IsStationary)
//
//	// KPSS test, used by NDiffs
//	// H0: Series is stationary
//	kpss := stats.KPSS(series, "c", 0)
//
// # Differencing Analysis
//
// Determine optimal differencing orders:
//
//	// Number of first differences needed
//	d := stats.NDiffs(series, 2, "kpss")
//
//	// Number of seasonal differences needed (for seasonal data)
//	sd := stats.NSDiffs(series, 12, 1)  // period=12 for monthly data
//
// # Autocorrelation Functions
//
// Analyze autocorrelation patterns:
//
//	// Autocorrelation Function
//	acf := stats.ACF(series, 20)
//
//	// Partial Autocorrelation Function
//	pacf := stats.PACF(series, 20)
//
//	// ACF with confidence bounds
//	acfResult := stats.ACFWithConfidence(series, 20)
//	significant := stats.SignificantLags(acfResult.Values, acfResult.ConfBounds)
//
// # Residual Diagnostics
//
// Test residuals for autocorrelation:
//
//	lb := stats.LjungBox(residuals, 10, p+q)
//	if lb.PValue > 0.05 {
//	    // no remaining autocorrelation
//	}
//	dw := stats.DurbinWatson(residuals.Values)
//
// # Time Series Decomposition
//
// Decompose time series into components:
//
//	decomp := stats.Decompose(series, 12, "additive")
//	strength := stats.SeasonalStrength(series, 12)
package stats
