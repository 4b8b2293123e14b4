// Package server exposes the batch ARIMA engine over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sartorproj/arimabatch/internal/cache"
	"github.com/sartorproj/arimabatch/internal/config"
	"github.com/sartorproj/arimabatch/internal/metrics"
)

// Option configures Server.
type Option func(*Server)

// WithCache stores forecast responses in c for ttl.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(s *Server) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithLogger sets the request and fit logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRegistry registers the service metrics with reg and serves them on
// /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// Server wraps the Echo HTTP server.
type Server struct {
	echo     *echo.Echo
	config   config.ServerConfig
	cache    cache.Service
	cacheTTL time.Duration
	metrics  *metrics.Recorder
	registry *prometheus.Registry
	logger   zerolog.Logger
}

// New creates the server and registers its routes.
func New(cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		config: cfg,
		cache:  cache.Noop{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = metrics.New(s.registry)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(s.recoverPanics())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.metrics.Middleware())
	e.Use(s.requestLogging())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	e.POST("/v1/forecast", s.forecast)

	s.echo = e
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address and blocks until the server is
// shut down.
func (s *Server) Start() error {
	addr := s.config.Host + ":" + strconv.Itoa(s.config.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.echo,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info().Str("addr", addr).Msg("http server: listening")
	if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	s.logger.Info().Msg("http server: stopped gracefully")
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) recoverPanics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					perr := errors.Newf("panic: %v", r)
					s.logger.Error().Stack().Err(perr).
						Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
						Msg("recovered from panic")
					err = dataResponse(c, http.StatusInternalServerError, "Something went wrong")
				}
			}()
			return next(c)
		}
	}
}

func (s *Server) requestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			event := s.logger.Debug()
			if res.Status >= http.StatusInternalServerError {
				event = s.logger.Error()
			}
			event.
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Msg("http request")
			return nil
		}
	}
}

func dataResponse(c echo.Context, status int, data any) error {
	return c.JSON(status, APIResponse{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}
