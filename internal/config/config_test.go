package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/arimabatch/arima"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 4, c.Demo.MaxBatch)
	require.NotNil(t, c.Demo.Horizon)
	assert.Equal(t, 12, *c.Demo.Horizon)
	require.NotNil(t, c.Demo.Level)
	assert.InDelta(t, 0.95, *c.Demo.Level, 1e-12)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 10*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, 10*time.Minute, c.Cache.TTL)
	assert.Equal(t, "aicc", c.Demo.AutoARIMA.Search.Criterion)
	assert.False(t, c.Demo.AutoARIMA.Enabled)

	require.Len(t, c.Demo.Models, 3)
	assert.Equal(t, arima.SeasonalOrder{D: 1, Q: 1, S: 12}, c.Demo.Models[2].Seasonal.SeasonalOrder())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
demo:
  dataset: data/sales.csv
  max_batch: 2
  horizon: 6
  level: 0.8
  models:
    - name: ar1
      order: {p: 1, d: 0, q: 0}
    - name: ima
      order: {p: 0, d: 1, q: 1}
      intercept: false
      max_iter: 50
  auto_arima:
    enabled: true
    max_p: 2
    stepwise: false
    seasonal_period: 12
server:
  port: 9090
  fit_timeout: 5s
cache:
  backend: redis
  ttl: 1h
  redis:
    addr: redis:6379
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "data/sales.csv", c.Demo.Dataset)
	assert.Equal(t, 2, c.Demo.MaxBatch)
	assert.Equal(t, 6, *c.Demo.Horizon)
	assert.InDelta(t, 0.8, *c.Demo.Level, 1e-12)
	assert.Equal(t, "out", c.Demo.OutputDir)

	require.Len(t, c.Demo.Models, 2)
	ar1 := c.Demo.Models[0]
	assert.Equal(t, arima.Order{P: 1}, ar1.Order.Order())
	require.NotNil(t, ar1.Intercept)
	assert.True(t, *ar1.Intercept)
	assert.Equal(t, 200, ar1.MaxIter)

	ima := c.Demo.Models[1]
	require.NotNil(t, ima.Intercept)
	assert.False(t, *ima.Intercept)
	assert.Equal(t, 50, ima.MaxIter)

	auto := c.Demo.AutoARIMA
	assert.True(t, auto.Enabled)
	assert.Equal(t, 2, auto.Search.MaxP)
	assert.Equal(t, 5, auto.Search.MaxQ)
	assert.False(t, auto.Search.Stepwise)
	assert.Equal(t, 12, auto.Search.SeasonalPeriod)

	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 5*time.Second, c.Server.FitTimeout)
	assert.Equal(t, "redis", c.Cache.Backend)
	assert.Equal(t, time.Hour, c.Cache.TTL)
	assert.Equal(t, "redis:6379", c.Cache.Redis.Addr)
	assert.Equal(t, "arimabatch", c.Cache.Redis.Prefix)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARIMABATCH_DATASET", "/tmp/other.csv")
	t.Setenv("ARIMABATCH_MAX_BATCH", "7")
	t.Setenv("ARIMABATCH_HORIZON", "24")
	t.Setenv("ARIMABATCH_SERVER_PORT", "7000")
	t.Setenv("ARIMABATCH_CACHE_BACKEND", "none")

	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.csv", c.Demo.Dataset)
	assert.Equal(t, 7, c.Demo.MaxBatch)
	assert.Equal(t, 24, *c.Demo.Horizon)
	assert.Equal(t, 7000, c.Server.Port)
	assert.Equal(t, "none", c.Cache.Backend)
}

func TestEnvOverrideInvalidNumber(t *testing.T) {
	t.Setenv("ARIMABATCH_HORIZON", "soon")

	_, err := Default()
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"level out of range", "demo:\n  level: 1.5\n"},
		{"explicit zero level", "demo:\n  level: 0\n"},
		{"explicit zero horizon", "demo:\n  horizon: 0\n"},
		{"unknown cache backend", "cache:\n  backend: memcached\n"},
		{"season length one", "demo:\n  models:\n    - name: bad\n      seasonal: {p: 1, s: 1}\n"},
		{"missing model name", "demo:\n  models:\n    - order: {p: 1}\n"},
		{"duplicate model name", "demo:\n  models:\n    - name: a\n    - name: a\n"},
		{"bad log level", "log:\n  level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
