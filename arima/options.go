package arima

import (
	"github.com/rs/zerolog"

	"github.com/sartorproj/arimabatch/internal/parallel"
)

type options struct {
	seasonal  SeasonalOrder
	intercept bool
	maxIter   int
	cond      int
	workers   int
	logger    zerolog.Logger
}

func defaultOptions() options {
	return options{
		intercept: true,
		maxIter:   200,
		workers:   parallel.Workers(0),
		logger:    zerolog.Nop(),
	}
}

// Option configures a Model.
type Option func(*options)

// WithSeasonal adds a seasonal component.
func WithSeasonal(s SeasonalOrder) Option {
	return func(o *options) {
		o.seasonal = s
	}
}

// WithIntercept controls whether the mean of the differenced series is
// estimated. Enabled by default.
func WithIntercept(enabled bool) Option {
	return func(o *options) {
		o.intercept = enabled
	}
}

// WithMaxIter bounds the optimizer iterations per series. Default 200.
func WithMaxIter(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIter = n
		}
	}
}

// WithConditioning excludes at least n leading residuals of the
// differenced series from the sum of squares, even when the AR span is
// shorter. Models of different AR orders fitted with the same n are scored
// on the same observations, so their information criteria are comparable.
func WithConditioning(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cond = n
		}
	}
}

// WithWorkers sets how many series are fitted concurrently.
// Defaults to the number of CPU cores.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = parallel.Workers(n)
	}
}

// WithLogger sets the logger used while fitting.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
