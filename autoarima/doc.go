// Package autoarima selects ARIMA orders automatically, one series at a time.
//
// Every column of a batch gets its own search. The seasonal differencing
// order D comes from the seasonal strength of a classical decomposition,
// the differencing order d from KPSS (or ADF) tests, and the AR and MA
// orders from a stepwise search over the information criterion.
//
// # Basic Usage
//
//	config := autoarima.DefaultConfig()
//	config.SeasonalPeriod = 12
//	config.MaxP, config.MaxQ = 3, 3
//
//	result, err := autoarima.AutoARIMA(ctx, frame, config)
//	if err != nil && result == nil {
//	    log.Fatal(err)
//	}
//	for i, spec := range result.Orders {
//	    fmt.Printf("%s: ARIMA%s %s=%.2f\n",
//	        result.Names[i], spec, config.Criterion, result.Criteria[i])
//	}
//
//	fc, _ := result.Forecast(12, 0.95)
//
// # Search Methods
//
// Two search methods are available:
//   - Stepwise (default): Hyndman-Khandakar neighbourhood search
//   - Grid: every combination within the bounds (set Stepwise=false)
//
// An intercept is included when d+D is at most one.
package autoarima
