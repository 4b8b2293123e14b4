package autoarima

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/arimabatch/arima"
	"github.com/sartorproj/arimabatch/internal/parallel"
	"github.com/sartorproj/arimabatch/stats"
	"github.com/sartorproj/arimabatch/timeseries"
)

// ErrInvalidConfig is returned for an unusable search configuration.
var ErrInvalidConfig = errors.New("autoarima: invalid config")

// Config holds configuration for the order search.
type Config struct {
	MaxP           int    `yaml:"max_p"`           // Maximum AR order (default: 5)
	MaxD           int    `yaml:"max_d"`           // Maximum differencing order (default: 2)
	MaxQ           int    `yaml:"max_q"`           // Maximum MA order (default: 5)
	MaxSP          int    `yaml:"max_sp"`          // Maximum seasonal AR order (default: 2)
	MaxSD          int    `yaml:"max_sd"`          // Maximum seasonal differencing order (default: 1)
	MaxSQ          int    `yaml:"max_sq"`          // Maximum seasonal MA order (default: 2)
	SeasonalPeriod int    `yaml:"seasonal_period"` // Season length; 0 or 1 disables seasonal terms
	Stepwise       bool   `yaml:"stepwise"`        // Stepwise search instead of the full grid
	Criterion      string `yaml:"criterion"`       // "aic", "aicc" or "bic" (default: "aicc")
	StationTest    string `yaml:"station_test"`    // "kpss" or "adf" (default: "kpss")
	MaxIter        int    `yaml:"max_iter"`        // Optimizer iterations per candidate
	Workers        int    `yaml:"workers"`         // Series searched concurrently

	Logger zerolog.Logger `yaml:"-"`
}

// DefaultConfig returns the default search configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxP:        5,
		MaxD:        2,
		MaxQ:        5,
		MaxSP:       2,
		MaxSD:       1,
		MaxSQ:       2,
		Stepwise:    true,
		Criterion:   "aicc",
		StationTest: "kpss",
		MaxIter:     200,
		Logger:      zerolog.Nop(),
	}
}

func (c *Config) validate() error {
	switch c.Criterion {
	case "aic", "aicc", "bic":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown criterion %q", c.Criterion)
	}
	if c.MaxP < 0 || c.MaxD < 0 || c.MaxQ < 0 || c.MaxSP < 0 || c.MaxSD < 0 || c.MaxSQ < 0 {
		return errors.Wrap(ErrInvalidConfig, "negative order bound")
	}
	return nil
}

func (c *Config) seasonal() bool {
	return c.SeasonalPeriod > 1
}

// Spec is a full model order chosen for one series.
type Spec struct {
	Order     arima.Order
	Seasonal  arima.SeasonalOrder
	Intercept bool
}

func (s Spec) String() string {
	return arima.FormatOrder(s.Order, s.Seasonal)
}

// Result holds the selected model of every series.
type Result struct {
	Names           []string
	Orders          []Spec
	Models          []*arima.Model // single-series models, nil on failure
	Criteria        []float64
	ModelsEvaluated []int
	Errs            []error
	rows            int
}

// AutoARIMA selects an order for every column of frame independently.
// Differencing orders come from unit-root and seasonal-strength tests;
// AR and MA orders are searched stepwise (Hyndman-Khandakar) or on the
// full grid, minimising the configured criterion. Every candidate of a
// series is conditioned on the largest AR span the bounds allow
// (MaxP + MaxSP*SeasonalPeriod), so criteria are compared on the same
// residuals.
//
// Series for which no candidate could be fitted are reported through a
// *arima.FitError; the result is still returned unless every series failed.
func AutoARIMA(ctx context.Context, frame *timeseries.Frame, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	if frame == nil || frame.Data == nil || frame.Cols() == 0 {
		return nil, arima.ErrEmptyBatch
	}

	cols := frame.Cols()
	result := &Result{
		Names:           append([]string(nil), frame.Names...),
		Orders:          make([]Spec, cols),
		Models:          make([]*arima.Model, cols),
		Criteria:        make([]float64, cols),
		ModelsEvaluated: make([]int, cols),
		Errs:            make([]error, cols),
		rows:            frame.Rows(),
	}

	err := parallel.ForEach(ctx, cols, config.Workers, func(ctx context.Context, j int) {
		s := &searcher{
			ctx:    ctx,
			config: config,
			series: frame.Column(j),
			logger: config.Logger.With().Int("series", j).Str("name", frame.Names[j]).Logger(),
		}
		best, err := s.run()
		result.ModelsEvaluated[j] = s.evaluated
		if err != nil {
			result.Errs[j] = err
			result.Criteria[j] = math.NaN()
			return
		}
		result.Orders[j] = best.spec
		result.Models[j] = best.model
		result.Criteria[j] = best.criterion
	})
	if err != nil {
		return nil, errors.Wrap(err, "autoarima: search cancelled")
	}

	var failures []arima.SeriesError
	for j, e := range result.Errs {
		if e != nil {
			failures = append(failures, arima.SeriesError{Index: j, Name: frame.Names[j], Err: e})
		}
	}
	if len(failures) == 0 {
		return result, nil
	}
	fitErr := &arima.FitError{Total: cols, Failures: failures}
	if fitErr.AllFailed() {
		return nil, fitErr
	}
	return result, fitErr
}

type candidate struct {
	spec      Spec
	model     *arima.Model
	criterion float64
}

// searcher runs the order search for one series.
type searcher struct {
	ctx       context.Context
	config    *Config
	series    *timeseries.Series
	logger    zerolog.Logger
	visited   map[Spec]bool
	evaluated int
	// cond is the largest AR span of the search. Every candidate conditions
	// on it so that criteria are computed on the same residuals.
	cond int
}

func (s *searcher) run() (*candidate, error) {
	cfg := s.config
	s.visited = make(map[Spec]bool)

	sd, d := s.differencing()
	intercept := d+sd <= 1
	s.logger.Debug().Int("d", d).Int("D", sd).Msg("differencing selected")

	period := 0
	if cfg.seasonal() {
		period = cfg.SeasonalPeriod
	}
	spec := func(p, q, sp, sq int) Spec {
		out := Spec{
			Order:     arima.Order{P: p, D: d, Q: q},
			Intercept: intercept,
		}
		if period > 0 && (sp > 0 || sd > 0 || sq > 0) {
			out.Seasonal = arima.SeasonalOrder{P: sp, D: sd, Q: sq, S: period}
		}
		return out
	}

	var best *candidate
	try := func(sp Spec) bool {
		c := s.evaluate(sp)
		if c == nil {
			return false
		}
		if best == nil || c.criterion < best.criterion {
			best = c
			return true
		}
		return false
	}

	maxSP, maxSQ := cfg.MaxSP, cfg.MaxSQ
	if period == 0 {
		maxSP, maxSQ = 0, 0
	}
	s.cond = cfg.MaxP + maxSP*period

	if !cfg.Stepwise {
		for p := 0; p <= cfg.MaxP; p++ {
			for q := 0; q <= cfg.MaxQ; q++ {
				for sp := 0; sp <= maxSP; sp++ {
					for sq := 0; sq <= maxSQ; sq++ {
						if s.ctx.Err() != nil {
							return nil, s.ctx.Err()
						}
						try(spec(p, q, sp, sq))
					}
				}
			}
		}
		return s.finish(best)
	}

	inBounds := func(p, q, sp, sq int) bool {
		return p >= 0 && p <= cfg.MaxP && q >= 0 && q <= cfg.MaxQ &&
			sp >= 0 && sp <= maxSP && sq >= 0 && sq <= maxSQ
	}

	type orders struct{ p, q, sp, sq int }
	starts := []orders{{2, 2, 1, 1}, {0, 0, 0, 0}, {1, 0, 1, 0}, {0, 1, 0, 1}}
	var cur orders
	for _, o := range starts {
		if !inBounds(o.p, o.q, o.sp, o.sq) {
			// clip to the bounds rather than skipping the start
			o = orders{min(o.p, cfg.MaxP), min(o.q, cfg.MaxQ), min(o.sp, maxSP), min(o.sq, maxSQ)}
		}
		if try(spec(o.p, o.q, o.sp, o.sq)) {
			cur = o
		}
	}

	for improved := true; improved; {
		improved = false
		if s.ctx.Err() != nil {
			return nil, s.ctx.Err()
		}
		neighbors := []orders{
			{cur.p + 1, cur.q, cur.sp, cur.sq},
			{cur.p - 1, cur.q, cur.sp, cur.sq},
			{cur.p, cur.q + 1, cur.sp, cur.sq},
			{cur.p, cur.q - 1, cur.sp, cur.sq},
			{cur.p + 1, cur.q + 1, cur.sp, cur.sq},
			{cur.p - 1, cur.q - 1, cur.sp, cur.sq},
			{cur.p, cur.q, cur.sp + 1, cur.sq},
			{cur.p, cur.q, cur.sp - 1, cur.sq},
			{cur.p, cur.q, cur.sp, cur.sq + 1},
			{cur.p, cur.q, cur.sp, cur.sq - 1},
		}
		for _, o := range neighbors {
			if !inBounds(o.p, o.q, o.sp, o.sq) {
				continue
			}
			if try(spec(o.p, o.q, o.sp, o.sq)) {
				cur = o
				improved = true
				break
			}
		}
	}

	return s.finish(best)
}

func (s *searcher) finish(best *candidate) (*candidate, error) {
	if best == nil {
		return nil, errors.Wrapf(arima.ErrInsufficientData, "no candidate model could be fitted (%d tried)", s.evaluated)
	}
	s.logger.Debug().
		Str("order", best.spec.String()).
		Float64("criterion", best.criterion).
		Int("evaluated", s.evaluated).
		Msg("order selected")
	return best, nil
}

// differencing picks D from the seasonal strength, then d from unit-root
// tests on the seasonally differenced series.
func (s *searcher) differencing() (sd, d int) {
	cfg := s.config
	x := s.series
	if cfg.seasonal() && cfg.MaxSD > 0 {
		sd = stats.NSDiffs(x, cfg.SeasonalPeriod, cfg.MaxSD)
		for i := 0; i < sd; i++ {
			x = x.SeasonalDiff(cfg.SeasonalPeriod)
		}
	}
	if cfg.MaxD > 0 {
		d = stats.NDiffs(x, cfg.MaxD, cfg.StationTest)
	}
	return sd, d
}

func (s *searcher) evaluate(spec Spec) *candidate {
	if s.visited[spec] {
		return nil
	}
	s.visited[spec] = true

	frame, err := timeseries.NewFrameFromSeries(s.series)
	if err != nil {
		return nil
	}
	model, err := arima.New(frame, spec.Order,
		arima.WithSeasonal(spec.Seasonal),
		arima.WithIntercept(spec.Intercept),
		arima.WithMaxIter(s.config.MaxIter),
		arima.WithConditioning(s.cond),
		arima.WithWorkers(1),
	)
	if err != nil {
		return nil
	}
	if err := model.Fit(s.ctx); err != nil {
		s.logger.Debug().Err(err).Str("order", spec.String()).Msg("candidate failed")
		return nil
	}
	s.evaluated++

	criterion := s.criterion(model)
	s.logger.Debug().Str("order", spec.String()).Float64(s.config.Criterion, criterion).Msg("candidate fitted")
	if math.IsNaN(criterion) {
		return nil
	}
	return &candidate{spec: spec, model: model, criterion: criterion}
}

func (s *searcher) criterion(model *arima.Model) float64 {
	switch s.config.Criterion {
	case "aic":
		return model.AIC()[0]
	case "bic":
		return model.BIC()[0]
	default:
		return model.AICc()[0]
	}
}

// Forecast stacks the forecasts of every selected model into one batch.
// Columns of failed series are NaN.
func (r *Result) Forecast(h int, level float64) (*arima.Forecast, error) {
	if h < 1 {
		return nil, errors.Wrapf(arima.ErrInvalidHorizon, "h=%d", h)
	}
	if !(level > 0 && level < 1) {
		return nil, errors.Wrapf(arima.ErrInvalidLevel, "level=%g", level)
	}

	cols := len(r.Models)
	out := &arima.Forecast{
		Mean:  mat.NewDense(h, cols, nil),
		Lower: mat.NewDense(h, cols, nil),
		Upper: mat.NewDense(h, cols, nil),
		Level: level,
	}

	for j, model := range r.Models {
		if model == nil {
			for i := 0; i < h; i++ {
				out.Mean.Set(i, j, math.NaN())
				out.Lower.Set(i, j, math.NaN())
				out.Upper.Set(i, j, math.NaN())
			}
			continue
		}
		fc, err := model.ForecastWithInterval(h, level)
		if err != nil {
			return nil, errors.Wrapf(err, "series %d", j)
		}
		out.Mean.SetCol(j, mat.Col(nil, 0, fc.Mean))
		out.Lower.SetCol(j, mat.Col(nil, 0, fc.Lower))
		out.Upper.SetCol(j, mat.Col(nil, 0, fc.Upper))
	}

	return out, nil
}

// Residuals returns the residuals of series j aligned with the input rows.
func (r *Result) Residuals(j int) []float64 {
	if r.Models[j] == nil {
		out := make([]float64, r.rows)
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	return r.Models[j].Residuals()[0]
}
