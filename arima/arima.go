package arima

import (
	"context"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/arimabatch/internal/parallel"
	"github.com/sartorproj/arimabatch/stats"
	"github.com/sartorproj/arimabatch/timeseries"
)

// parallelThreshold is the batch size above which forecasts are computed
// on several goroutines.
const parallelThreshold = 64

// Params holds the fitted parameters of one series.
type Params struct {
	Mu     float64   // mean of the differenced series, 0 without intercept
	AR     []float64 // phi_1..phi_p
	MA     []float64 // theta_1..theta_q
	SAR    []float64 // Phi_1..Phi_P
	SMA    []float64 // Theta_1..Theta_Q
	Sigma2 float64   // innovation variance
}

func (p Params) clone() Params {
	p.AR = append([]float64(nil), p.AR...)
	p.MA = append([]float64(nil), p.MA...)
	p.SAR = append([]float64(nil), p.SAR...)
	p.SMA = append([]float64(nil), p.SMA...)
	return p
}

func nanParams(l lags) Params {
	fill := func(n int) []float64 {
		v := make([]float64, n)
		for i := range v {
			v[i] = math.NaN()
		}
		return v
	}
	return Params{
		Mu:     math.NaN(),
		AR:     fill(l.order.P),
		MA:     fill(l.order.Q),
		SAR:    fill(l.seasonal.P),
		SMA:    fill(l.seasonal.Q),
		Sigma2: math.NaN(),
	}
}

// seriesFit is the per-series state of a batch model.
type seriesFit struct {
	name   string
	y      []float64
	offset int // leading missing values

	ok     bool
	err    error
	params Params
	css    *cssState
	ic     *stats.InformationCriteria
}

// Model is a seasonal ARIMA model over a batch of independent series.
// Each column of the batch gets its own parameters.
//
// A Model is not safe for concurrent use while Fit or SetParams runs.
type Model struct {
	lags   lags
	opts   options
	diff   []float64
	rows   int
	series []*seriesFit
	fitted bool
}

// New creates a model for every column of frame.
func New(frame *timeseries.Frame, order Order, opts ...Option) (*Model, error) {
	if frame == nil || frame.Data == nil || frame.Cols() == 0 || frame.Rows() == 0 {
		return nil, ErrEmptyBatch
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateOrder(order, o.seasonal); err != nil {
		return nil, err
	}

	seasonal := o.seasonal
	if seasonal.IsZero() {
		seasonal = SeasonalOrder{}
	}

	m := &Model{
		lags: lags{order: order, seasonal: seasonal, intercept: o.intercept, cond: o.cond},
		opts: o,
		diff: diffPoly(order.D, seasonal.D, seasonal.S),
		rows: frame.Rows(),
	}

	for j, col := range frame.Columns() {
		name := ""
		if j < len(frame.Names) {
			name = frame.Names[j]
		}
		m.series = append(m.series, &seriesFit{
			name:   name,
			y:      col,
			offset: timeseries.New(col).LeadingMissing(),
		})
	}

	return m, nil
}

// NewFromColumns creates a model from raw columns of equal length.
func NewFromColumns(columns [][]float64, order Order, opts ...Option) (*Model, error) {
	if len(columns) == 0 {
		return nil, ErrEmptyBatch
	}
	frame, err := timeseries.NewFrame(nil, columns)
	if err != nil {
		if errors.Is(err, timeseries.ErrEmptyFrame) {
			return nil, ErrEmptyBatch
		}
		return nil, errors.Wrap(err, "arima: building batch")
	}
	return New(frame, order, opts...)
}

// Fit estimates the parameters of every series by conditional sum of
// squares. Series are fitted concurrently and independently.
//
// When some series fail, Fit returns a *FitError and the model remains
// usable: failed series yield NaN everywhere. When every series fails the
// model stays unfitted.
func (m *Model) Fit(ctx context.Context) error {
	started := time.Now()
	logger := m.opts.logger.With().
		Str("order", FormatOrder(m.lags.order, m.lags.seasonal)).
		Int("batch", len(m.series)).
		Logger()

	err := parallel.ForEach(ctx, len(m.series), m.opts.workers, func(ctx context.Context, i int) {
		s := m.series[i]
		s.err = s.fit(ctx, m.lags, m.diff, m.opts.maxIter)
		if s.err != nil {
			logger.Warn().Err(s.err).Int("series", i).Str("name", s.name).Msg("series fit failed")
			return
		}
		logger.Debug().
			Int("series", i).
			Str("name", s.name).
			Float64("sigma2", s.params.Sigma2).
			Float64("aic", s.ic.AIC).
			Msg("series fitted")
	})
	if err != nil {
		m.fitted = false
		return errors.Wrap(err, "arima: fit cancelled")
	}

	fitErr := m.collectFailures()
	m.fitted = fitErr == nil || !fitErr.AllFailed()

	logger.Info().
		Dur("elapsed", time.Since(started)).
		Int("failed", failureCount(fitErr)).
		Msg("batch fitted")

	if fitErr != nil {
		return fitErr
	}
	return nil
}

func failureCount(e *FitError) int {
	if e == nil {
		return 0
	}
	return len(e.Failures)
}

func (m *Model) collectFailures() *FitError {
	var failures []SeriesError
	for i, s := range m.series {
		if s.err != nil {
			failures = append(failures, SeriesError{Index: i, Name: s.name, Err: s.err})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &FitError{Total: len(m.series), Failures: failures}
}

// fit estimates the parameters of one series. A panic is turned into an
// error so one bad series cannot take the batch down.
func (s *seriesFit) fit(ctx context.Context, l lags, diff []float64, maxIter int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic while fitting: %v", r)
			s.ok = false
		}
	}()

	s.ok = false
	if err := ctx.Err(); err != nil {
		return err
	}

	y := s.y[s.offset:]
	w := differenced(y, diff)
	required := l.condSpan() + l.nParams() + 1
	if got := countValid(w); got < required {
		return errors.Wrapf(ErrInsufficientData, "%d usable observations after differencing, need %d", got, required)
	}

	start := startParams(w, l)
	x := packParams(start, l)
	if len(x) > 0 {
		best, err := minimize(cssObjective(y, l, diff), x, maxIter)
		if err != nil {
			return err
		}
		x = best
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p := unpackParams(x, l)
	if !l.intercept {
		p.Mu = 0
	}
	return s.load(*p, l, diff, true)
}

// load runs a final CSS pass with p and derives sigma2 and the
// information criteria. With estimate set sigma2 is SSE/n, otherwise a
// positive p.Sigma2 is kept.
func (s *seriesFit) load(p Params, l lags, diff []float64, estimate bool) error {
	y := s.y[s.offset:]
	if len(y) == 0 {
		return errors.Wrap(ErrInsufficientData, "series has no observations")
	}

	st := runCSS(y, p.Mu, expand(&p, l.seasonal.S), diff, l.condSpan())
	if st.nObs == 0 {
		return errors.Wrap(ErrInsufficientData, "no residuals past the conditioning window")
	}

	n := float64(st.nObs)
	if estimate || !(p.Sigma2 > 0) {
		p.Sigma2 = st.sse / n
	}
	sigma2 := math.Max(p.Sigma2, minVariance)
	logLik := -n/2*math.Log(2*math.Pi*sigma2) - st.sse/(2*sigma2)

	s.params = p.clone()
	s.css = st
	s.ic = stats.CalculateIC(logLik, st.nObs, l.nParams())
	s.ok = true
	return nil
}

// SetParams loads known parameters for every series instead of fitting.
// Residuals and information criteria are recomputed. A positive Sigma2 is
// kept; otherwise it is estimated from the residuals.
func (m *Model) SetParams(params []Params) error {
	if len(params) != len(m.series) {
		return errors.Wrapf(ErrInvalidParams, "got %d parameter sets for %d series", len(params), len(m.series))
	}
	l := m.lags
	for i, p := range params {
		if len(p.AR) != l.order.P || len(p.MA) != l.order.Q ||
			len(p.SAR) != l.seasonal.P || len(p.SMA) != l.seasonal.Q {
			return errors.Wrapf(ErrInvalidParams, "series %d: coefficient counts do not match %s",
				i, FormatOrder(l.order, l.seasonal))
		}
	}

	for i, p := range params {
		if !l.intercept {
			p.Mu = 0
		}
		s := m.series[i]
		s.ok = false
		s.err = s.load(p, l, m.diff, false)
	}

	fitErr := m.collectFailures()
	m.fitted = fitErr == nil || !fitErr.AllFailed()
	if fitErr != nil {
		return fitErr
	}
	return nil
}

// Fitted reports whether at least one series has parameters.
func (m *Model) Fitted() bool {
	return m.fitted
}

// BatchSize returns the number of series.
func (m *Model) BatchSize() int {
	return len(m.series)
}

// Rows returns the number of time steps in the fitted data.
func (m *Model) Rows() int {
	return m.rows
}

// Names returns the series names.
func (m *Model) Names() []string {
	names := make([]string, len(m.series))
	for i, s := range m.series {
		names[i] = s.name
	}
	return names
}

// Order returns the non-seasonal order.
func (m *Model) Order() Order {
	return m.lags.order
}

// SeasonalOrder returns the seasonal order, zero when absent.
func (m *Model) SeasonalOrder() SeasonalOrder {
	return m.lags.seasonal
}

// Intercept reports whether mu is estimated.
func (m *Model) Intercept() bool {
	return m.lags.intercept
}

// Err returns the fit error of series i, nil when it was fitted.
func (m *Model) Err(i int) error {
	return m.series[i].err
}

// predictableFrom is the first row with an in-sample prediction.
func (m *Model) predictableFrom(s *seriesFit) int {
	return s.offset + m.lags.diffSpan()
}

// Predict returns rows [start, end) of in-sample one-step predictions
// followed by out-of-sample forecasts, one column per series. Rows before
// the first differenced observation of a series are NaN, and so are the
// p+P*s rows after it (or the WithConditioning count when larger) that
// only condition the recursion.
func (m *Model) Predict(start, end int) (*mat.Dense, error) {
	if !m.fitted {
		return nil, notFitted("Predict")
	}
	if start < 0 || end <= start {
		return nil, errors.Wrapf(ErrInvalidRange, "start=%d end=%d", start, end)
	}

	out := mat.NewDense(end-start, len(m.series), nil)
	horizon := max(end-m.rows, 0)

	parallel.ParallelizeWithThreshold(len(m.series), parallelThreshold, m.opts.workers, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			s := m.series[j]
			var fc []float64
			if s.ok && horizon > 0 {
				fc = s.css.forecast(s.params.Mu, expand(&s.params, m.lags.seasonal.S), m.diff, horizon)
			}

			first := m.predictableFrom(s)
			dlen := m.lags.diffSpan()
			conditioned := first + m.lags.condSpan()
			for t := start; t < end; t++ {
				v := math.NaN()
				switch {
				case !s.ok:
				case t >= m.rows:
					v = fc[t-m.rows]
				case t >= conditioned:
					i := t - s.offset
					v = s.css.yFilled[i] - s.css.e[i-dlen]
				}
				out.Set(t-start, j, v)
			}
		}
	})

	return out, nil
}

// Forecast returns h out-of-sample point forecasts per series.
func (m *Model) Forecast(h int) (*mat.Dense, error) {
	if !m.fitted {
		return nil, notFitted("Forecast")
	}
	if h < 1 {
		return nil, errors.Wrapf(ErrInvalidHorizon, "h=%d", h)
	}
	return m.Predict(m.rows, m.rows+h)
}

// Forecast is an out-of-sample forecast with a symmetric prediction
// interval. Rows are horizons and columns are series.
type Forecast struct {
	Mean  *mat.Dense
	Lower *mat.Dense
	Upper *mat.Dense
	Level float64
}

// ForecastWithInterval returns h forecasts with a prediction interval at
// the given level. The forecast variance at horizon h is
// sigma2 * sum_{j<h} psi_j^2, with psi the MA(infinity) weights of the
// integrated model.
func (m *Model) ForecastWithInterval(h int, level float64) (*Forecast, error) {
	if !m.fitted {
		return nil, notFitted("ForecastWithInterval")
	}
	if h < 1 {
		return nil, errors.Wrapf(ErrInvalidHorizon, "h=%d", h)
	}
	if !(level > 0 && level < 1) {
		return nil, errors.Wrapf(ErrInvalidLevel, "level=%g", level)
	}

	mean, err := m.Forecast(h)
	if err != nil {
		return nil, err
	}

	z := distuv.UnitNormal.Quantile((1 + level) / 2)
	lower := mat.NewDense(h, len(m.series), nil)
	upper := mat.NewDense(h, len(m.series), nil)

	parallel.ParallelizeWithThreshold(len(m.series), parallelThreshold, m.opts.workers, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			s := m.series[j]
			if !s.ok {
				for i := 0; i < h; i++ {
					lower.Set(i, j, math.NaN())
					upper.Set(i, j, math.NaN())
				}
				continue
			}

			psi := psiWeights(expand(&s.params, m.lags.seasonal.S), m.diff, h)
			cum := 0.0
			for i := 0; i < h; i++ {
				cum += psi[i] * psi[i]
				half := z * math.Sqrt(s.params.Sigma2*cum)
				fc := mean.At(i, j)
				lower.Set(i, j, fc-half)
				upper.Set(i, j, fc+half)
			}
		}
	})

	return &Forecast{Mean: mean, Lower: lower, Upper: upper, Level: level}, nil
}

// Params returns a copy of every series' parameters. Failed series hold NaN.
func (m *Model) Params() []Params {
	out := make([]Params, len(m.series))
	for i, s := range m.series {
		if s.ok {
			out[i] = s.params.clone()
		} else {
			out[i] = nanParams(m.lags)
		}
	}
	return out
}

func (m *Model) scalar(get func(*seriesFit) float64) []float64 {
	out := make([]float64, len(m.series))
	for i, s := range m.series {
		if s.ok {
			out[i] = get(s)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

func (m *Model) vector(get func(p *Params) []float64) [][]float64 {
	params := m.Params()
	out := make([][]float64, len(params))
	for i := range params {
		out[i] = get(&params[i])
	}
	return out
}

// Mu returns the per-series mean of the differenced series.
func (m *Model) Mu() []float64 {
	return m.scalar(func(s *seriesFit) float64 { return s.params.Mu })
}

// AR returns the non-seasonal AR coefficients per series.
func (m *Model) AR() [][]float64 {
	return m.vector(func(p *Params) []float64 { return p.AR })
}

// MA returns the non-seasonal MA coefficients per series.
func (m *Model) MA() [][]float64 {
	return m.vector(func(p *Params) []float64 { return p.MA })
}

// SAR returns the seasonal AR coefficients per series.
func (m *Model) SAR() [][]float64 {
	return m.vector(func(p *Params) []float64 { return p.SAR })
}

// SMA returns the seasonal MA coefficients per series.
func (m *Model) SMA() [][]float64 {
	return m.vector(func(p *Params) []float64 { return p.SMA })
}

// Sigma2 returns the innovation variance per series.
func (m *Model) Sigma2() []float64 {
	return m.scalar(func(s *seriesFit) float64 { return s.params.Sigma2 })
}

// LogLik returns the Gaussian log-likelihood per series.
func (m *Model) LogLik() []float64 {
	return m.scalar(func(s *seriesFit) float64 { return s.ic.LogLik })
}

// AIC returns the Akaike information criterion per series.
func (m *Model) AIC() []float64 {
	return m.scalar(func(s *seriesFit) float64 { return s.ic.AIC })
}

// AICc returns the small-sample corrected AIC per series.
func (m *Model) AICc() []float64 {
	return m.scalar(func(s *seriesFit) float64 { return s.ic.AICc })
}

// BIC returns the Bayesian information criterion per series.
func (m *Model) BIC() []float64 {
	return m.scalar(func(s *seriesFit) float64 { return s.ic.BIC })
}

// NObs returns the number of residuals entering each likelihood.
func (m *Model) NObs() []int {
	out := make([]int, len(m.series))
	for i, s := range m.series {
		if s.ok {
			out[i] = s.css.nObs
		}
	}
	return out
}

// Residuals returns the innovations of every series aligned with the
// input rows. Rows without a residual are NaN: leading gaps, the
// differencing and conditioning windows, and imputed values.
func (m *Model) Residuals() [][]float64 {
	out := make([][]float64, len(m.series))
	for j, s := range m.series {
		out[j] = m.residuals(s)
	}
	return out
}

func (m *Model) residuals(s *seriesFit) []float64 {
	r := make([]float64, m.rows)
	for i := range r {
		r[i] = math.NaN()
	}
	if !s.ok {
		return r
	}
	first := m.predictableFrom(s)
	for i, e := range s.css.e {
		if s.css.observed[i] {
			r[first+i] = e
		}
	}
	return r
}
