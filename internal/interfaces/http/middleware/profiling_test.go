package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/propfolio/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// profiledRequest serves one request through the profiling middleware
// and returns the pprof labels visible inside the handler along with
// the response code. Extra middleware runs before profiling.
func profiledRequest(cfg middleware.ProfilingConfig, method, route, path string, pre ...gin.HandlerFunc) (map[string]string, int) {
	r := gin.New()
	for _, mw := range pre {
		r.Use(mw)
	}
	r.Use(middleware.ProfilingWithConfig(cfg))

	labels := map[string]string{}
	r.Handle(method, route, func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			labels[key] = value
			return true
		})
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return labels, w.Code
}

func setContextValue(key string, value interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(key, value)
		c.Next()
	}
}

func TestDefaultProfilingConfig(t *testing.T) {
	cfg := middleware.DefaultProfilingConfig()

	assert.True(t, cfg.Enabled)
	assert.ElementsMatch(t, []string{"/health", "/healthz", "/ready", "/metrics"}, cfg.SkipPaths)
	assert.ElementsMatch(t, []string{"/swagger", "/api-docs"}, cfg.SkipPathPrefixes)
}

func TestProfilingMiddleware_Disabled(t *testing.T) {
	cfg := middleware.ProfilingConfig{Enabled: false}

	labels, code := profiledRequest(cfg, http.MethodGet, "/api/v1/leases", "/api/v1/leases")

	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, labels)
}

func TestProfilingMiddleware_LabelsRequest(t *testing.T) {
	cfg := middleware.DefaultProfilingConfig()

	labels, code := profiledRequest(cfg, http.MethodGet, "/api/v1/leases/:id", "/api/v1/leases/123")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "GET", labels["method"])
	assert.Equal(t, "/api/v1/leases/:id", labels["route"])
	assert.Equal(t, "leases", labels["controller"])
	assert.NotContains(t, labels, "org_id")
}

func TestProfilingMiddleware_SkipPaths(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		shouldSkip bool
	}{
		{"health exact", "/health", true},
		{"healthz exact", "/healthz", true},
		{"ready exact", "/ready", true},
		{"metrics exact", "/metrics", true},
		{"swagger prefix", "/swagger/index.html", true},
		{"api docs prefix", "/api-docs/v1", true},
		{"charge listing", "/api/v1/charges", false},
		{"health subpath is not exact", "/health/check", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := middleware.DefaultProfilingConfig()

			labels, code := profiledRequest(cfg, http.MethodGet, tt.path, tt.path)

			assert.Equal(t, http.StatusOK, code)
			if tt.shouldSkip {
				assert.Empty(t, labels, "skipped path %s should not be labeled", tt.path)
			} else {
				assert.NotEmpty(t, labels, "path %s should be labeled", tt.path)
			}
		})
	}
}

func TestProfilingMiddleware_CustomSkipPaths(t *testing.T) {
	cfg := middleware.ProfilingConfig{
		Enabled:          true,
		SkipPaths:        []string{"/custom/health", "/custom/status"},
		SkipPathPrefixes: []string{"/custom/admin"},
	}

	tests := []struct {
		path       string
		shouldSkip bool
	}{
		{"/custom/health", true},
		{"/custom/status", true},
		{"/custom/admin/dashboard", true},
		{"/custom/api", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			labels, code := profiledRequest(cfg, http.MethodGet, tt.path, tt.path)

			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, tt.shouldSkip, len(labels) == 0)
		})
	}
}

func TestProfilingMiddleware_OrgIDSources(t *testing.T) {
	cfg := middleware.DefaultProfilingConfig()

	t.Run("from jwt claims", func(t *testing.T) {
		labels, _ := profiledRequest(cfg, http.MethodGet, "/api/v1/leases", "/api/v1/leases",
			setContextValue(middleware.JWTOrgIDKey, "org-123"))
		assert.Equal(t, "org-123", labels["org_id"])
	})

	t.Run("from org middleware", func(t *testing.T) {
		labels, _ := profiledRequest(cfg, http.MethodGet, "/api/v1/leases", "/api/v1/leases",
			setContextValue(middleware.OrgIDKey, "org-456"))
		assert.Equal(t, "org-456", labels["org_id"])
	})

	t.Run("jwt takes precedence", func(t *testing.T) {
		labels, _ := profiledRequest(cfg, http.MethodGet, "/api/v1/leases", "/api/v1/leases",
			setContextValue(middleware.JWTOrgIDKey, "jwt-org"),
			setContextValue(middleware.OrgIDKey, "scope-org"))
		assert.Equal(t, "jwt-org", labels["org_id"])
	})

	t.Run("unset", func(t *testing.T) {
		labels, _ := profiledRequest(cfg, http.MethodGet, "/api/v1/leases", "/api/v1/leases")
		assert.NotContains(t, labels, "org_id")
	})

	t.Run("wrong type ignored", func(t *testing.T) {
		labels, code := profiledRequest(cfg, http.MethodGet, "/api/v1/leases", "/api/v1/leases",
			setContextValue(middleware.JWTOrgIDKey, 12345))
		assert.Equal(t, http.StatusOK, code)
		assert.NotContains(t, labels, "org_id")
	})
}

func TestProfilingMiddleware_HTTPMethods(t *testing.T) {
	methods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodPatch,
	}

	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			cfg := middleware.DefaultProfilingConfig()

			labels, code := profiledRequest(cfg, method, "/api/v1/payments", "/api/v1/payments")

			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, method, labels["method"])
		})
	}
}

func TestProfilingMiddleware_ControllerExtraction(t *testing.T) {
	tests := []struct {
		route      string
		path       string
		controller string
	}{
		{"/api/v1/leases", "/api/v1/leases", "leases"},
		{"/api/v1/leases/:id", "/api/v1/leases/7", "leases"},
		{"/api/v1/leases/:id/charges", "/api/v1/leases/7/charges", "leases"},
		{"/api/v2/payments", "/api/v2/payments", "payments"},
		{"/api/v10/payments", "/api/v10/payments", "payments"},
		{"/api/v100/payments", "/api/v100/payments", "payments"},
		{"/api/tenants", "/api/tenants", "tenants"},
		{"/v1/properties", "/v1/properties", "properties"},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			cfg := middleware.DefaultProfilingConfig()

			labels, code := profiledRequest(cfg, http.MethodGet, tt.route, tt.path)

			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, tt.controller, labels["controller"])
		})
	}
}

func TestProfiling_DefaultAndInjector(t *testing.T) {
	for _, mw := range []gin.HandlerFunc{middleware.Profiling(), middleware.ProfilingAttributeInjector()} {
		r := gin.New()
		handlerCalled := false
		r.Use(mw)
		r.GET("/api/v1/leases", func(c *gin.Context) {
			handlerCalled = true
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/leases", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, handlerCalled)
	}
}

func TestProfilingMiddleware_ContextPreserved(t *testing.T) {
	r := gin.New()
	r.Use(setContextValue("custom_key", "custom_value"))
	r.Use(middleware.ProfilingWithConfig(middleware.DefaultProfilingConfig()))
	r.GET("/api/v1/leases", func(c *gin.Context) {
		value, exists := c.Get("custom_key")
		assert.True(t, exists)
		assert.Equal(t, "custom_value", value)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leases", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProfilingMiddleware_ChainWithOtherMiddleware(t *testing.T) {
	r := gin.New()

	var order []string
	r.Use(func(c *gin.Context) {
		order = append(order, "first")
		c.Next()
		order = append(order, "first_after")
	})
	r.Use(middleware.ProfilingWithConfig(middleware.DefaultProfilingConfig()))
	r.Use(func(c *gin.Context) {
		order = append(order, "third")
		c.Next()
		order = append(order, "third_after")
	})
	r.GET("/api/v1/leases", func(c *gin.Context) {
		order = append(order, "handler")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leases", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"first", "third", "handler", "third_after", "first_after"}, order)
}
