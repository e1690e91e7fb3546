package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/propfolio/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig configures the profiling middleware.
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths and SkipPathPrefixes are requests not worth labeling,
	// such as health probes.
	SkipPaths        []string
	SkipPathPrefixes []string
}

// DefaultProfilingConfig returns the default profiling configuration.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled: true,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api-docs",
		},
	}
}

// Profiling returns profiling middleware with default configuration.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig attaches Pyroscope labels to the request context
// so profiles can be filtered by controller, route pattern, HTTP
// method, and org_id.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passthrough
	}

	return func(c *gin.Context) {
		if skipsPath(c.Request.URL.Path, cfg.SkipPaths, cfg.SkipPathPrefixes) {
			c.Next()
			return
		}

		labels := extractProfilingLabels(c)

		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// extractProfilingLabels builds the label set for a request. All labels
// are low cardinality: the route pattern is used rather than the raw
// path.
func extractProfilingLabels(c *gin.Context) map[string]string {
	labels := make(map[string]string, 4)

	if method := c.Request.Method; method != "" {
		labels[telemetry.ProfilingLabelMethod] = method
	}

	route := c.FullPath()
	if route != "" {
		labels[telemetry.ProfilingLabelRoute] = route
	}

	if controller := extractControllerFromRoute(route); controller != "" {
		labels[telemetry.ProfilingLabelController] = controller
	}

	if orgID := getOrgIDForProfiling(c); orgID != "" {
		labels[telemetry.ProfilingLabelOrgID] = orgID
	}

	return labels
}

// extractControllerFromRoute derives a controller name from the route
// pattern, e.g. "/api/v1/leases/:id/charges" yields "leases".
// The first segment that is neither a prefix ("api", "v1") nor a path
// parameter is the resource name.
func extractControllerFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		switch {
		case part == "", part == "api", isVersionSegment(part):
		case strings.HasPrefix(part, ":"), strings.HasPrefix(part, "{"):
		default:
			return part
		}
	}
	return ""
}

// isVersionSegment matches "v1", "V2", "v10" style path segments.
func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	return strings.Trim(segment[1:], "0123456789") == ""
}

// getOrgIDForProfiling prefers the org ID from JWT claims over the one
// set by the org scoping middleware.
func getOrgIDForProfiling(c *gin.Context) string {
	if id := contextString(c, JWTOrgIDKey); id != "" {
		return id
	}
	return contextString(c, OrgIDKey)
}

// ProfilingAttributeInjector is profiling middleware intended to run
// after the JWT and org middleware, once org_id is available.
func ProfilingAttributeInjector() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}
