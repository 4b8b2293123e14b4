package server

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/arimabatch/internal/cache"
	"github.com/sartorproj/arimabatch/internal/config"
)

func testConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:       "127.0.0.1",
		Port:       8080,
		FitTimeout: 30 * time.Second,
		BodyLimit:  "8M",
		Workers:    2,
	}
}

func newTestServer(t *testing.T) (*Server, *cache.MemoryCache) {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { mc.Close() })
	return New(testConfig(), WithCache(mc, time.Minute), WithRegistry(prometheus.NewRegistry())), mc
}

func ar1Series(n int, phi, mu float64, seed int64) []*float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]*float64, n)
	x := 0.0
	for i := 0; i < n; i++ {
		x = phi*x + rng.NormFloat64()
		v := mu + x
		out[i] = &v
	}
	return out
}

func post(t *testing.T, s *Server, body any) (*httptest.ResponseRecorder, APIResponse, json.RawMessage) {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/forecast", bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var envelope struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), "body: %s", rec.Body.String())
	return rec, envelope.APIResponse, envelope.Data
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestForecast(t *testing.T) {
	s, mc := newTestServer(t)

	body := map[string]any{
		"series":  [][]*float64{ar1Series(300, 0.6, 10, 1), ar1Series(300, -0.3, 0, 2)},
		"names":   []string{"north", "south"},
		"order":   map[string]int{"p": 1},
		"horizon": 5,
		"level":   0.9,
	}

	rec, env, data := post(t, s, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusOK, env.Status)

	var resp ForecastResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "(1,0,0)", resp.Order)
	assert.Equal(t, 5, resp.Horizon)
	assert.False(t, resp.Cached)
	require.Len(t, resp.Series, 2)

	north := resp.Series[0]
	assert.Equal(t, "north", north.Name)
	assert.Empty(t, north.Error)
	require.Len(t, north.Params.AR, 1)
	assert.InDelta(t, 0.6, float64(north.Params.AR[0]), 0.15)
	assert.InDelta(t, 10, float64(north.Params.Mu), 0.5)
	assert.Equal(t, 299, north.NObs)
	assert.Less(t, float64(north.AIC), float64(north.AICc))

	for _, r := range resp.Series {
		require.Len(t, r.Mean, 5)
		for h := range r.Mean {
			assert.LessOrEqual(t, float64(r.Lower[h]), float64(r.Mean[h]))
			assert.LessOrEqual(t, float64(r.Mean[h]), float64(r.Upper[h]))
		}
	}
	assert.Equal(t, 1, mc.Len())

	// the same request again is served from the cache
	rec, _, data = post(t, s, body)
	require.Equal(t, http.StatusOK, rec.Code)
	var cached ForecastResponse
	require.NoError(t, json.Unmarshal(data, &cached))
	assert.True(t, cached.Cached)
	assert.Equal(t, resp.Series[0].Mean, cached.Series[0].Mean)
}

func TestForecastDefaults(t *testing.T) {
	s, _ := newTestServer(t)

	rec, _, data := post(t, s, map[string]any{
		"series": [][]*float64{ar1Series(120, 0.5, 3, 3)},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ForecastResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, 10, resp.Horizon)
	assert.InDelta(t, 0.95, resp.Level, 1e-12)
	assert.Equal(t, "series_0", resp.Series[0].Name)
	assert.Len(t, resp.Series[0].Mean, 10)
}

func TestForecastValidation(t *testing.T) {
	s, _ := newTestServer(t)
	good := [][]*float64{ar1Series(50, 0.5, 0, 4)}

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing series", map[string]any{"horizon": 3}, "series"},
		{"horizon too large", map[string]any{"series": good, "horizon": 5000}, "horizon"},
		{"level out of range", map[string]any{"series": good, "level": 1.5}, "level"},
		{"explicit zero horizon", map[string]any{"series": good, "horizon": 0}, "horizon"},
		{"explicit zero level", map[string]any{"series": good, "level": 0}, "level"},
		{"negative order", map[string]any{"series": good, "order": map[string]int{"p": -1}}, "order.p"},
		{"season length one", map[string]any{"series": good, "seasonal": map[string]int{"q": 1, "s": 1}}, "seasonal.s"},
		{"names mismatch", map[string]any{"series": good, "names": []string{"a", "b"}}, "names"},
		{"seasonal terms without period", map[string]any{"series": good, "seasonal": map[string]int{"p": 1}}, "seasonal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env, data := post(t, s, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, http.StatusBadRequest, env.Status)

			var errs []ValidationError
			require.NoError(t, json.Unmarshal(data, &errs))
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestForecastMalformedBody(t *testing.T) {
	s, _ := newTestServer(t)

	rec, _, data := post(t, s, `{"series": [[1, 2,`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errs []ValidationError
	require.NoError(t, json.Unmarshal(data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BAD_REQUEST", errs[0].Code)
}

func TestForecastAllSeriesFail(t *testing.T) {
	s, _ := newTestServer(t)

	one, two, three := 1.0, 2.0, 3.0
	rec, env, data := post(t, s, map[string]any{
		"series": [][]*float64{{&one, &two, &three}},
		"order":  map[string]int{"p": 2, "q": 1},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusUnprocessableEntity, env.Status)

	var failures []SeriesFailure
	require.NoError(t, json.Unmarshal(data, &failures))
	require.Len(t, failures, 1)
	assert.Equal(t, 0, failures[0].Index)
	assert.Contains(t, failures[0].Error, "insufficient data")
}

func TestForecastPartialFailure(t *testing.T) {
	s, _ := newTestServer(t)

	short := make([]*float64, 5)
	for i := range short {
		v := float64(i)
		short[i] = &v
	}
	short[2] = nil

	rec, _, data := post(t, s, map[string]any{
		"series":  [][]*float64{ar1Series(200, 0.4, 1, 5), short},
		"order":   map[string]int{"p": 1},
		"horizon": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ForecastResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	require.Len(t, resp.Series, 2)
	assert.Empty(t, resp.Series[0].Error)
	assert.NotEmpty(t, resp.Series[1].Error)
	for _, v := range resp.Series[1].Mean {
		assert.True(t, math.IsNaN(float64(v)), "failed series should forecast null")
	}
	assert.True(t, math.IsNaN(float64(resp.Series[1].AIC)))
	assert.False(t, math.IsNaN(float64(resp.Series[0].Mean[0])))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	post(t, s, map[string]any{"series": [][]*float64{ar1Series(80, 0.5, 0, 6)}, "order": map[string]int{"p": 1}})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `arimabatch_fits_total{outcome="ok"} 1`), body)
	assert.Contains(t, body, `arimabatch_cache_requests_total{result="miss"} 1`)
	assert.Contains(t, body, "arimabatch_http_requests_total")
}

func TestFloatJSON(t *testing.T) {
	b, err := json.Marshal([]Float{1.5, Float(math.NaN()), Float(math.Inf(1))})
	require.NoError(t, err)
	assert.Equal(t, "[1.5,null,null]", string(b))

	var back []Float
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, 1.5, float64(back[0]))
	assert.True(t, math.IsNaN(float64(back[1])))
}

func TestRequestFrameAlignsToEnd(t *testing.T) {
	a, b, c := 1.0, 2.0, 3.0
	frame := requestFrame(&ForecastRequest{Series: [][]*float64{{&a, nil, &b}, {&c}}})

	require.Equal(t, 3, frame.Rows())
	assert.Equal(t, []string{"series_0", "series_1"}, frame.Names)
	assert.True(t, math.IsNaN(frame.Data.At(1, 0)))
	assert.True(t, math.IsNaN(frame.Data.At(0, 1)))
	assert.True(t, math.IsNaN(frame.Data.At(1, 1)))
	assert.Equal(t, 3.0, frame.Data.At(2, 1))
}
