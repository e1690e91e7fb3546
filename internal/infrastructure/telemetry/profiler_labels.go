package telemetry

import (
	"context"
	"maps"
	"runtime/pprof"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelOrgID      = "org_id"
	ProfilingLabelOperation  = "operation"
	// ProfilingLabelRegion marks code regions such as "db_query" or "external_api".
	ProfilingLabelRegion = "region"
)

// MaxLabelValueLength caps label values to keep cardinality and memory
// in the profiler bounded.
const MaxLabelValueLength = 128

// HighCardinalityLabels lists label keys that sanitizeLabels drops
// outright, since per-entity values would explode the series count.
// Do not modify at runtime.
//
// org_id is deliberately absent: tenant counts are low-to-medium
// cardinality. Installations with thousands of orgs should disable org
// labeling instead.
var HighCardinalityLabels = map[string]bool{
	"user_id":    true,
	"request_id": true,
	"order_id":   true,
	"trace_id":   true,
	"span_id":    true,
	"session_id": true,
}

// preparedLabelPairs copies, sanitizes, and flattens a label map into the
// alternating key/value slice both label APIs take. Returns nil when
// nothing survives sanitization.
func preparedLabelPairs(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}
	labelsCopy := make(map[string]string, len(labels))
	maps.Copy(labelsCopy, labels)
	return sanitizeLabels(labelsCopy)
}

// WithProfilingLabels runs fn under the given Pyroscope profiling labels,
// letting profiles be sliced by handler, route, or tenant in the UI.
// The labels map is copied, so the caller may reuse it afterwards.
//
//	telemetry.WithProfilingLabels(ctx, map[string]string{
//	    "controller": "ChargeHandler",
//	    "operation":  "PostCharge",
//	}, func(c context.Context) {
//	    postCharges(c)
//	})
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := preparedLabelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// WithPprofLabels is the same wrapper built on Go's native pprof label
// API, for when standard profiling tools must see the labels.
// TagWrapper and pprof.Do produce identical label behavior.
func WithPprofLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := preparedLabelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pprof.Do(ctx, pprof.Labels(pairs...), fn)
}

// ProfilingScope accumulates labels through a builder before running a
// labeled function.
type ProfilingScope struct {
	labels map[string]string
}

// NewProfilingScope creates a scope seeded with a copy of labels.
func NewProfilingScope(labels map[string]string) *ProfilingScope {
	scope := &ProfilingScope{labels: make(map[string]string, len(labels))}
	maps.Copy(scope.labels, labels)
	return scope
}

// WithLabel adds one label to the scope.
func (s *ProfilingScope) WithLabel(key, value string) *ProfilingScope {
	s.labels[key] = value
	return s
}

func (s *ProfilingScope) WithController(v string) *ProfilingScope { return s.WithLabel(ProfilingLabelController, v) }

func (s *ProfilingScope) WithRoute(v string) *ProfilingScope { return s.WithLabel(ProfilingLabelRoute, v) }

func (s *ProfilingScope) WithMethod(v string) *ProfilingScope { return s.WithLabel(ProfilingLabelMethod, v) }

func (s *ProfilingScope) WithOrgID(v string) *ProfilingScope { return s.WithLabel(ProfilingLabelOrgID, v) }

func (s *ProfilingScope) WithOperation(v string) *ProfilingScope { return s.WithLabel(ProfilingLabelOperation, v) }

func (s *ProfilingScope) WithRegion(v string) *ProfilingScope { return s.WithLabel(ProfilingLabelRegion, v) }

// Labels returns a copy of the accumulated labels.
func (s *ProfilingScope) Labels() map[string]string {
	result := make(map[string]string, len(s.labels))
	maps.Copy(result, s.labels)
	return result
}

// Run executes fn with the accumulated labels applied.
func (s *ProfilingScope) Run(ctx context.Context, fn func(context.Context)) {
	WithProfilingLabels(ctx, s.labels, fn)
}

// sanitizeLabels drops empty and high-cardinality entries, truncates long
// values, normalizes keys, and returns deterministic key/value pairs.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range slices.Sorted(maps.Keys(labels)) {
		value := labels[key]
		switch {
		case key == "" || value == "":
			continue
		// Silently dropped; logging here would spam hot paths.
		case HighCardinalityLabels[key]:
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		if cleanKey := sanitizeLabelKey(key); cleanKey != "" {
			pairs = append(pairs, cleanKey, value)
		}
	}

	return pairs
}

// sanitizeLabelKey normalizes a key to lowercase snake_case, stripping
// anything outside [a-z0-9_].
func sanitizeLabelKey(key string) string {
	mapper := func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-':
			return '_'
		}
		return -1
	}
	return strings.Map(mapper, key)
}

// HTTPRequestLabels builds the standard label set for HTTP handler
// profiling, omitting empty fields.
func HTTPRequestLabels(controller, route, method, orgID string) map[string]string {
	labels := make(map[string]string, 4)
	for key, value := range map[string]string{
		ProfilingLabelController: controller,
		ProfilingLabelRoute:      route,
		ProfilingLabelMethod:     method,
		ProfilingLabelOrgID:      orgID,
	} {
		if value != "" {
			labels[key] = value
		}
	}
	return labels
}

// OperationLabels builds labels for a named operation.
func OperationLabels(operation string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	labels[ProfilingLabelOperation] = operation
	maps.Copy(labels, extraLabels)
	return labels
}

// RegionLabels builds labels for a code region such as a database call.
func RegionLabels(region string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	labels[ProfilingLabelRegion] = region
	maps.Copy(labels, extraLabels)
	return labels
}
