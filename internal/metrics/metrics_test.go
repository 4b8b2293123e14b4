package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFit(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordFit("ok", 10*time.Millisecond, 3, 0)
	r.RecordFit("partial", 20*time.Millisecond, 2, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.fitsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fitsTotal.WithLabelValues("partial")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.seriesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.seriesTotal.WithLabelValues("failed")))
}

func TestRecordCache(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordCacheHit()
	r.RecordCacheMiss()
	r.RecordCacheMiss()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheTotal.WithLabelValues("miss")))
}

func TestMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	e := echo.New()
	e.Use(r.Middleware())
	e.GET("/items/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Param("id"))
	})
	e.GET("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "no")
	})

	for _, path := range []string{"/items/1", "/items/2", "/fail"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues("/items/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues("/fail", "GET", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.inFlight))

	count, err := testutil.GatherAndCount(reg, "arimabatch_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "4xx", statusClass(422))
	assert.Equal(t, "5xx", statusClass(503))
}
