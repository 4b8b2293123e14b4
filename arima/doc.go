// Package arima implements seasonal ARIMA models over batches of series.
//
// A batch is a timeseries.Frame whose columns are independent series on a
// shared time axis. One Model holds a single order for the whole batch and
// estimates separate parameters for every column:
//
//	w_t = (1-B)^d (1-B^s)^D y_t
//	phi(B) Phi(B^s) (w_t - mu) = theta(B) Theta(B^s) e_t
//
// # Basic Usage
//
//	model, err := arima.New(frame, arima.Order{P: 1, D: 1, Q: 1},
//	    arima.WithSeasonal(arima.SeasonalOrder{P: 0, D: 1, Q: 1, S: 12}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := model.Fit(ctx); err != nil {
//	    var fitErr *arima.FitError
//	    if !errors.As(err, &fitErr) || fitErr.AllFailed() {
//	        log.Fatal(err)
//	    }
//	    // some series failed and will produce NaN
//	}
//
//	fc, _ := model.ForecastWithInterval(12, 0.95)
//	// fc.Mean, fc.Lower, fc.Upper are 12 x batch matrices
//
// # Estimation
//
// Parameters are estimated by conditional sum of squares. AR and MA
// parameters are searched in an unconstrained space mapped through
// partial autocorrelations, so fitted models are always stationary and
// invertible. Series may start with missing values and may have gaps;
// gaps are filled by one-step predictions and do not count as
// observations.
//
// # Model Selection
//
// LogLik, AIC, AICc and BIC return one value per series. The parameter
// count includes sigma2. For automatic order selection use the autoarima
// package.
package arima
