package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/arimabatch/arima"
	"github.com/sartorproj/arimabatch/internal/cache"
	"github.com/sartorproj/arimabatch/timeseries"
)

const cachePrefix = "forecast"

// SeriesFailure is the 422 payload entry of one failed series.
type SeriesFailure struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

func (s *Server) forecast(c echo.Context) error {
	req := &ForecastRequest{}
	if errs := readAndValidateRequest(c, req); errs != nil {
		return dataResponse(c, http.StatusBadRequest, errs)
	}
	if len(req.Names) > 0 && len(req.Names) != len(req.Series) {
		return dataResponse(c, http.StatusBadRequest, []ValidationError{{
			Code:    "ERR_LEN",
			Field:   "names",
			Message: fmt.Sprintf("names has %d entries for %d series", len(req.Names), len(req.Series)),
		}})
	}

	ctx := c.Request().Context()
	logger := s.logger.With().Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Logger()

	key, err := requestKey(req)
	if err != nil {
		return err
	}
	if resp, ok := s.lookup(ctx, key); ok {
		return dataResponse(c, http.StatusOK, resp)
	}

	model, err := arima.New(requestFrame(req), req.Order.Order(),
		arima.WithSeasonal(req.Seasonal.SeasonalOrder()),
		arima.WithIntercept(*req.Intercept),
		arima.WithWorkers(s.config.Workers),
		arima.WithLogger(logger),
	)
	if err != nil {
		if errors.Is(err, arima.ErrInvalidOrder) {
			return dataResponse(c, http.StatusBadRequest, []ValidationError{{
				Code:    "ERR_ORDER",
				Field:   "seasonal",
				Message: err.Error(),
			}})
		}
		return err
	}

	fitCtx := ctx
	if s.config.FitTimeout > 0 {
		var cancel context.CancelFunc
		fitCtx, cancel = context.WithTimeout(ctx, s.config.FitTimeout)
		defer cancel()
	}

	started := time.Now()
	fitErr := model.Fit(fitCtx)
	elapsed := time.Since(started)

	var batchErr *arima.FitError
	switch {
	case fitErr == nil:
		s.metrics.RecordFit("ok", elapsed, model.BatchSize(), 0)
	case errors.As(fitErr, &batchErr) && !batchErr.AllFailed():
		s.metrics.RecordFit("partial", elapsed, model.BatchSize()-len(batchErr.Failures), len(batchErr.Failures))
	case errors.As(fitErr, &batchErr):
		s.metrics.RecordFit("failed", elapsed, 0, len(batchErr.Failures))
		failures := make([]SeriesFailure, len(batchErr.Failures))
		for i, f := range batchErr.Failures {
			failures[i] = SeriesFailure{Index: f.Index, Name: f.Name, Error: f.Err.Error()}
		}
		return dataResponse(c, http.StatusUnprocessableEntity, failures)
	default:
		s.metrics.RecordFit("failed", elapsed, 0, model.BatchSize())
		logger.Warn().Err(fitErr).Msg("fit did not complete")
		return dataResponse(c, http.StatusServiceUnavailable, "fit did not complete: "+fitErr.Error())
	}

	fc, err := model.ForecastWithInterval(*req.Horizon, *req.Level)
	if err != nil {
		return err
	}

	resp := buildResponse(model, fc, req)
	s.store(ctx, key, resp)
	return dataResponse(c, http.StatusOK, resp)
}

// requestKey hashes the request after defaults have been applied, so that
// equivalent requests share a cache entry.
func requestKey(req *ForecastRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return cache.Key(cachePrefix, payload), nil
}

func (s *Server) lookup(ctx context.Context, key string) (*ForecastResponse, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().Err(err).Msg("cache get failed")
		}
		s.metrics.RecordCacheMiss()
		return nil, false
	}

	resp := &ForecastResponse{}
	if err := json.Unmarshal(data, resp); err != nil {
		s.logger.Warn().Err(err).Msg("discarding corrupt cache entry")
		s.metrics.RecordCacheMiss()
		return nil, false
	}
	s.metrics.RecordCacheHit()
	resp.Cached = true
	return resp, true
}

func (s *Server) store(ctx context.Context, key string, resp *ForecastResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache encode failed")
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("cache set failed")
	}
}

// requestFrame aligns every series to the end of the longest one; earlier
// rows of shorter series are missing.
func requestFrame(req *ForecastRequest) *timeseries.Frame {
	rows := 0
	for _, col := range req.Series {
		rows = max(rows, len(col))
	}

	data := mat.NewDense(rows, len(req.Series), nil)
	for j, col := range req.Series {
		pad := rows - len(col)
		for i := 0; i < rows; i++ {
			v := math.NaN()
			if i >= pad && col[i-pad] != nil {
				v = *col[i-pad]
			}
			data.Set(i, j, v)
		}
	}

	names := req.Names
	if len(names) == 0 {
		names = make([]string, len(req.Series))
		for j := range names {
			names[j] = fmt.Sprintf("series_%d", j)
		}
	}
	return &timeseries.Frame{Names: names, Data: data}
}

func buildResponse(model *arima.Model, fc *arima.Forecast, req *ForecastRequest) *ForecastResponse {
	params := model.Params()
	loglik, aic, aicc, bic := model.LogLik(), model.AIC(), model.AICc(), model.BIC()
	nobs := model.NObs()
	names := model.Names()

	out := &ForecastResponse{
		Order:   arima.FormatOrder(model.Order(), model.SeasonalOrder()),
		Horizon: *req.Horizon,
		Level:   *req.Level,
		Series:  make([]SeriesResult, model.BatchSize()),
	}
	for j := range out.Series {
		p := params[j]
		r := SeriesResult{
			Name: names[j],
			Params: ParamsJSON{
				Mu:     Float(p.Mu),
				AR:     floats(p.AR),
				MA:     floats(p.MA),
				SAR:    floats(p.SAR),
				SMA:    floats(p.SMA),
				Sigma2: Float(p.Sigma2),
			},
			NObs:   nobs[j],
			LogLik: Float(loglik[j]),
			AIC:    Float(aic[j]),
			AICc:   Float(aicc[j]),
			BIC:    Float(bic[j]),
			Mean:   floats(mat.Col(nil, j, fc.Mean)),
			Lower:  floats(mat.Col(nil, j, fc.Lower)),
			Upper:  floats(mat.Col(nil, j, fc.Upper)),
		}
		if err := model.Err(j); err != nil {
			r.Error = err.Error()
		}
		out.Series[j] = r
	}
	return out
}
