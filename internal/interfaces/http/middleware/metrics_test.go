package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func metricsTestMeter(t *testing.T) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})

	return mp.Meter("http.server"), reader
}

func readMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func lookupMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// requestCounterData returns the Sum data points of the request counter.
func requestCounterData(t *testing.T, rm metricdata.ResourceMetrics) metricdata.Sum[int64] {
	t.Helper()

	m := lookupMetric(rm, "http_server_request_total")
	require.NotNil(t, m, "http_server_request_total metric not found")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum data for counter")
	return sum
}

func sumDataPoints(sum metricdata.Sum[int64]) int64 {
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestHTTPMetrics_NoopVariants(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		mw   gin.HandlerFunc
	}{
		{"disabled config", HTTPMetrics(HTTPMetricsConfig{Enabled: false})},
		{"nil meter provider", HTTPMetrics(HTTPMetricsConfig{Enabled: true, MeterProvider: nil})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := limitedRouter(tc.mw, http.MethodGet, "/charges")
			w := hit(router, http.MethodGet, "/charges", nil, "")
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestHTTPMetricsWithMeter_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := metricsTestMeter(t)

	router := limitedRouter(HTTPMetricsWithMeter(meter, false), http.MethodGet, "/charges")
	w := hit(router, http.MethodGet, "/charges", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	rm := readMetrics(t, reader)
	assert.Nil(t, lookupMetric(rm, "http_server_request_total"))
}

func TestHTTPMetricsWithMeter_RecordsCoreInstruments(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := metricsTestMeter(t)

	router := limitedRouter(HTTPMetricsWithMeter(meter, true), http.MethodGet, "/charges")
	w := hit(router, http.MethodGet, "/charges", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	rm := readMetrics(t, reader)
	require.NotNil(t, lookupMetric(rm, "http_server_request_total"))
	require.NotNil(t, lookupMetric(rm, "http_server_request_duration_seconds"))
}

func TestHTTPMetricsWithMeter_RequestCounter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := metricsTestMeter(t)

	router := limitedRouter(HTTPMetricsWithMeter(meter, true), http.MethodGet, "/charges")
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(router, http.MethodGet, "/charges", nil, "").Code)
	}

	sum := requestCounterData(t, readMetrics(t, reader))
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestHTTPMetricsWithMeter_StatusCodeLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := metricsTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))
	router.GET("/charges", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": []string{}})
	})
	router.GET("/broken", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})
	router.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	for _, path := range []string{"/charges", "/charges", "/broken", "/missing"} {
		hit(router, http.MethodGet, path, nil, "")
	}

	// Distinct status codes split into distinct series; the total still adds up.
	sum := requestCounterData(t, readMetrics(t, reader))
	assert.Equal(t, int64(4), sumDataPoints(sum))
}

func TestHTTPMetricsWithMeter_MethodLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := metricsTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))
	handler := func(status int) gin.HandlerFunc {
		return func(c *gin.Context) { c.JSON(status, gin.H{"ok": true}) }
	}
	router.GET("/payments", handler(http.StatusOK))
	router.POST("/payments", handler(http.StatusCreated))
	router.PUT("/payments", handler(http.StatusOK))

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
		hit(router, method, "/payments", nil, "")
	}

	sum := requestCounterData(t, readMetrics(t, reader))
	assert.Equal(t, int64(3), sumDataPoints(sum))
}

func TestHTTPMetricsWithMeter_RequestDuration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := metricsTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))
	router.GET("/reports", func(c *gin.Context) {
		time.Sleep(50 * time.Millisecond)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	assert.Equal(t, http.StatusOK, hit(router, http.MethodGet, "/reports", nil, "").Code)

	m := lookupMetric(readMetrics(t, reader), "http_server_request_duration_seconds")
	require.NotNil(t, m)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected Histogram data for duration")
	require.Len(t, hist.DataPoints, 1)
	assert.Greater(t, hist.DataPoints[0].Sum, 0.05)
}

func TestHTTPMetricsWithMeter_RequestSize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := metricsTestMeter(t)

	router := limitedRouter(HTTPMetricsWithMeter(meter, true), http.MethodPost, "/payments")

	body := strings.NewReader(`{"amount": "950.00", "method": "ach"}`)
	req := httptest.NewRequest(http.MethodPost, "/payments", body)
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = int64(body.Len())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	m := lookupMetric(readMetrics(t, reader), "http_server_request_size_bytes")
	require.NotNil(t, m)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected Histogram data for request size")
	require.Len(t, hist.DataPoints, 1)
	assert.Greater(t, hist.DataPoints[0].Sum, float64(0))
}

func TestHTTPMetricsWithMeter_ResponseSize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := metricsTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))
	router.GET("/charges", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "a response body of some length"})
	})

	assert.Equal(t, http.StatusOK, hit(router, http.MethodGet, "/charges", nil, "").Code)

	m := lookupMetric(readMetrics(t, reader), "http_server_response_size_bytes")
	require.NotNil(t, m)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected Histogram data for response size")
	require.Len(t, hist.DataPoints, 1)
	assert.Greater(t, hist.DataPoints[0].Sum, float64(0))
}

func TestHTTPMetricsWithMeter_ActiveRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := metricsTestMeter(t)

	router := limitedRouter(HTTPMetricsWithMeter(meter, true), http.MethodGet, "/charges")
	assert.Equal(t, http.StatusOK, hit(router, http.MethodGet, "/charges", nil, "").Code)

	m := lookupMetric(readMetrics(t, reader), "http_server_active_requests")
	require.NotNil(t, m, "http_server_active_requests metric not found")

	// The counter is decremented on the way out, so it reads zero at rest.
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum data for active_requests")
	if len(sum.DataPoints) > 0 {
		assert.Equal(t, int64(0), sum.DataPoints[0].Value)
	}
}

func TestHTTPMetricsWithMeter_OrgIDLabel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := metricsTestMeter(t)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(JWTOrgIDKey, "org-123")
		c.Next()
	})
	router.Use(HTTPMetricsWithMeter(meter, true))
	router.GET("/charges", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	assert.Equal(t, http.StatusOK, hit(router, http.MethodGet, "/charges", nil, "").Code)

	sum := requestCounterData(t, readMetrics(t, reader))
	require.Len(t, sum.DataPoints, 1)

	found := false
	for _, attr := range sum.DataPoints[0].Attributes.ToSlice() {
		if string(attr.Key) == "org_id" {
			assert.Equal(t, "org-123", attr.Value.AsString())
			found = true
			break
		}
	}
	assert.True(t, found, "org_id attribute not found in metrics")
}

func TestHTTPMetricsWithMeter_RoutePatternLabel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := metricsTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))
	router.GET("/api/v1/charges/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	for _, id := range []string{"1", "2", "abc", "xyz"} {
		assert.Equal(t, http.StatusOK, hit(router, http.MethodGet, "/api/v1/charges/"+id, nil, "").Code)
	}

	// All four paths collapse into the one route-pattern series.
	sum := requestCounterData(t, readMetrics(t, reader))
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(4), sum.DataPoints[0].Value)

	found := false
	for _, attr := range sum.DataPoints[0].Attributes.ToSlice() {
		if string(attr.Key) == "http.route" {
			assert.Equal(t, "/api/v1/charges/:id", attr.Value.AsString())
			found = true
			break
		}
	}
	assert.True(t, found, "http.route attribute not found")
}

func TestGetRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("matched route reports the pattern", func(t *testing.T) {
		router := gin.New()
		router.GET("/api/v1/charges/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"route": getRoutePattern(c)})
		})

		w := hit(router, http.MethodGet, "/api/v1/charges/123", nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/api/v1/charges/:id")
	})

	t.Run("unmatched route reports unknown", func(t *testing.T) {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"route": getRoutePattern(c)})
			c.Abort()
		})

		w := hit(router, http.MethodGet, "/nonexistent", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "unknown")
	})
}

func TestGetRequestSize(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name          string
		contentLength int64
		want          int64
	}{
		{"with content length", 100, 100},
		{"zero content length", 0, 0},
		{"negative content length", -1, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got int64
			router := gin.New()
			router.POST("/payments", func(c *gin.Context) {
				got = getRequestSize(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/payments", nil)
			req.ContentLength = tc.contentLength
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetOrgIDFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"string org id", "org-123", "org-123"},
		{"empty org id", "", ""},
		{"unset", nil, ""},
		{"non-string value", 123, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			router := gin.New()
			if tc.value != nil {
				router.Use(func(c *gin.Context) {
					c.Set(JWTOrgIDKey, tc.value)
					c.Next()
				})
			}
			router.GET("/charges", func(c *gin.Context) {
				got = getOrgIDFromContext(c)
				c.Status(http.StatusOK)
			})

			w := hit(router, http.MethodGet, "/charges", nil, "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHTTPMetricsStatusGroup(t *testing.T) {
	cases := []struct {
		statusCode int
		want       string
	}{
		{200, "2xx"}, {201, "2xx"}, {299, "2xx"},
		{300, "3xx"}, {301, "3xx"}, {399, "3xx"},
		{400, "4xx"}, {401, "4xx"}, {404, "4xx"}, {499, "4xx"},
		{500, "5xx"}, {503, "5xx"}, {599, "5xx"}, {600, "5xx"},
		{100, "other"}, {199, "other"}, {0, "other"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPMetricsStatusGroup(tc.statusCode), "status %d", tc.statusCode)
	}
}

func TestParseStatusCode(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"200", 200},
		{"404", 404},
		{"500", 500},
		{"invalid", 0},
		{"", 0},
		{"12.34", 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseStatusCode(tc.input), "input %q", tc.input)
	}
}

func TestHTTPMetricsResponseWriter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	rw := &HTTPMetricsResponseWriter{ResponseWriter: ctx.Writer}

	n, err := rw.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, rw.BytesWritten())

	n, err = rw.Write([]byte(" world"))
	assert.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 11, rw.BytesWritten())
}

func TestDefaultHTTPMetricsConfig(t *testing.T) {
	cfg := DefaultHTTPMetricsConfig()

	assert.Equal(t, "propfolio-backend", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.Nil(t, cfg.MeterProvider)
}
