// Package arimabatch fits ARIMA and seasonal ARIMA models to batches of
// independent time series.
//
// A batch is a timeseries.Frame: rows are time steps shared by every
// series, columns are series. Each column gets its own parameters while the
// model order is common to the whole batch. Missing observations are NaN;
// a series may start later than the others.
//
// # Features
//
//   - Batched ARIMA(p,d,q)(P,D,Q)[s] fitted by conditional sum of squares
//   - In-sample prediction, out-of-sample forecasts and prediction intervals
//   - Per-series log-likelihood, AIC, AICc and BIC
//   - Automatic order selection per series (Auto-ARIMA)
//   - Stationarity tests (ADF, KPSS), ACF/PACF and differencing analysis
//   - CSV loading of a batch and PNG/SVG/PDF charts of the forecasts
//
// # Quick Start
//
//	frame, _ := timeseries.LoadFrameCSV("data.csv", timeseries.DefaultCSVOptions())
//	model, _ := arima.New(frame, arima.Order{P: 1, D: 1, Q: 1},
//		arima.WithSeasonal(arima.SeasonalOrder{D: 1, Q: 1, S: 12}))
//	if err := model.Fit(ctx); err != nil {
//		// *arima.FitError lists the series that could not be fitted
//	}
//	fc, _ := model.ForecastWithInterval(12, 0.95)
//
// # Packages
//
//   - arima: batched (seasonal) ARIMA models
//   - autoarima: automatic model selection
//   - stats: statistical tests and analysis functions
//   - timeseries: Series, Frame and CSV input/output
//   - visualize: forecast charts
//
// The demo directory runs the whole workflow on a sample dataset and
// cmd/forecastd serves forecasts over HTTP.
//
// # References
//
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
//   - Box, G. E. P., & Jenkins, G. M. (1976). Time Series Analysis: Forecasting and Control
package arimabatch
