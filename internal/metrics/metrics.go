// Package metrics records forecast service metrics with Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the service collectors.
type Recorder struct {
	fitsTotal       *prometheus.CounterVec
	fitDuration     *prometheus.HistogramVec
	seriesTotal     *prometheus.CounterVec
	cacheTotal      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arimabatch_fits_total",
				Help: "Total number of batch fits by outcome",
			},
			[]string{"outcome"},
		),
		fitDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arimabatch_fit_duration_seconds",
				Help:    "Duration of batch fits in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		seriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arimabatch_series_total",
				Help: "Total number of series fitted by outcome",
			},
			[]string{"outcome"},
		),
		cacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arimabatch_cache_requests_total",
				Help: "Forecast cache lookups by result",
			},
			[]string{"result"},
		),
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arimabatch_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arimabatch_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "class"},
		),
		inFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "arimabatch_http_in_flight_requests",
				Help: "Current number of in-flight HTTP requests",
			},
		),
	}
}

// RecordFit records one batch fit. outcome is "ok", "partial" or "failed".
func (r *Recorder) RecordFit(outcome string, d time.Duration, fitted, failed int) {
	r.fitsTotal.WithLabelValues(outcome).Inc()
	r.fitDuration.WithLabelValues(outcome).Observe(d.Seconds())
	r.seriesTotal.WithLabelValues("ok").Add(float64(fitted))
	r.seriesTotal.WithLabelValues("failed").Add(float64(failed))
}

// RecordCacheHit records a cache hit.
func (r *Recorder) RecordCacheHit() {
	r.cacheTotal.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a cache miss.
func (r *Recorder) RecordCacheMiss() {
	r.cacheTotal.WithLabelValues("miss").Inc()
}

// Middleware records request counts and latencies. Routes are labelled by
// their template to keep cardinality low.
func (r *Recorder) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r.inFlight.Inc()
			defer r.inFlight.Dec()

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			method := c.Request().Method

			r.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
			r.requestDuration.WithLabelValues(route, method, statusClass(status)).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
