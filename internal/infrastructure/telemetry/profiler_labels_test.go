package telemetry_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propfolio/backend/internal/infrastructure/telemetry"
)

// runLabeled invokes WithProfilingLabels and reports whether fn ran.
func runLabeled(ctx context.Context, labels map[string]string) bool {
	called := false
	telemetry.WithProfilingLabels(ctx, labels, func(c context.Context) {
		called = true
	})
	return called
}

func TestWithProfilingLabels(t *testing.T) {
	ctx := context.Background()

	t.Run("nil and empty label maps", func(t *testing.T) {
		assert.True(t, runLabeled(ctx, nil))
		assert.True(t, runLabeled(ctx, map[string]string{}))
	})

	t.Run("basic labels", func(t *testing.T) {
		var captured context.Context
		telemetry.WithProfilingLabels(ctx, map[string]string{
			"controller": "ChargeHandler",
			"method":     "GET",
			"route":      "/api/v1/charges",
		}, func(c context.Context) {
			captured = c
		})
		assert.NotNil(t, captured)
	})

	t.Run("high cardinality labels are dropped", func(t *testing.T) {
		assert.True(t, runLabeled(ctx, map[string]string{
			"controller": "ChargeHandler",
			"user_id":    "user-123",
			"request_id": "req-abc",
			"order_id":   "order-456",
		}))
	})

	t.Run("overlong values are truncated", func(t *testing.T) {
		assert.True(t, runLabeled(ctx, map[string]string{
			"controller": strings.Repeat("x", 200),
		}))
	})

	t.Run("empty keys and values are skipped", func(t *testing.T) {
		assert.True(t, runLabeled(ctx, map[string]string{
			"controller": "ChargeHandler",
			"method":     "",
			"":           "value",
		}))
	})
}

func TestWithPprofLabels(t *testing.T) {
	ctx := context.Background()

	t.Run("basic labels", func(t *testing.T) {
		called := false
		telemetry.WithPprofLabels(ctx, map[string]string{
			"controller": "PaymentHandler",
			"method":     "POST",
		}, func(c context.Context) {
			called = true
		})
		assert.True(t, called)
	})

	t.Run("nil and empty label maps", func(t *testing.T) {
		for _, labels := range []map[string]string{nil, {}} {
			called := false
			telemetry.WithPprofLabels(ctx, labels, func(c context.Context) {
				called = true
			})
			assert.True(t, called)
		}
	})
}

func TestProfilingScope_Builder(t *testing.T) {
	scope := telemetry.NewProfilingScope(nil)
	scope.WithController("ChargeHandler").
		WithRoute("/api/v1/charges").
		WithMethod("GET").
		WithOrgID("org-123").
		WithOperation("ListCharges").
		WithRegion("db_query")

	labels := scope.Labels()
	assert.Equal(t, "ChargeHandler", labels[telemetry.ProfilingLabelController])
	assert.Equal(t, "/api/v1/charges", labels[telemetry.ProfilingLabelRoute])
	assert.Equal(t, "GET", labels[telemetry.ProfilingLabelMethod])
	assert.Equal(t, "org-123", labels[telemetry.ProfilingLabelOrgID])
	assert.Equal(t, "ListCharges", labels[telemetry.ProfilingLabelOperation])
	assert.Equal(t, "db_query", labels[telemetry.ProfilingLabelRegion])
}

func TestProfilingScope_InitialLabels(t *testing.T) {
	t.Run("seeded and extended", func(t *testing.T) {
		scope := telemetry.NewProfilingScope(map[string]string{
			"controller": "PaymentHandler",
			"method":     "GET",
		})
		scope.WithRoute("/api/v1/payments")

		labels := scope.Labels()
		assert.Equal(t, "PaymentHandler", labels["controller"])
		assert.Equal(t, "GET", labels["method"])
		assert.Equal(t, "/api/v1/payments", labels["route"])
	})

	t.Run("builder overwrites seed", func(t *testing.T) {
		scope := telemetry.NewProfilingScope(map[string]string{"controller": "OldHandler"})
		scope.WithController("PaymentHandler")
		assert.Equal(t, "PaymentHandler", scope.Labels()["controller"])
	})

	t.Run("seed map is copied", func(t *testing.T) {
		initial := map[string]string{"controller": "PaymentHandler"}
		scope := telemetry.NewProfilingScope(initial)

		initial["controller"] = "Modified"

		assert.Equal(t, "PaymentHandler", scope.Labels()["controller"])
	})
}

func TestProfilingScope_LabelsReturnsACopy(t *testing.T) {
	scope := telemetry.NewProfilingScope(nil)
	scope.WithController("ChargeHandler")

	first := scope.Labels()
	first["controller"] = "Modified"

	assert.Equal(t, "ChargeHandler", scope.Labels()["controller"])
}

func TestProfilingScope_Run(t *testing.T) {
	called := false
	scope := telemetry.NewProfilingScope(nil)
	scope.WithController("AllocationHandler").WithMethod("POST")

	scope.Run(context.Background(), func(c context.Context) {
		called = true
	})
	assert.True(t, called)
}

func TestProfilingScope_WithCustomLabel(t *testing.T) {
	scope := telemetry.NewProfilingScope(nil)
	scope.WithLabel("batch_kind", "monthly_rent")
	assert.Equal(t, "monthly_rent", scope.Labels()["batch_kind"])
}

func TestHTTPRequestLabels(t *testing.T) {
	tests := []struct {
		name       string
		controller string
		route      string
		method     string
		orgID      string
		wantLen    int
	}{
		{"all_fields", "ChargeHandler", "/api/v1/charges", "GET", "org-123", 4},
		{"empty_org", "ChargeHandler", "/api/v1/charges", "GET", "", 3},
		{"only_controller", "ChargeHandler", "", "", "", 1},
		{"all_empty", "", "", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := telemetry.HTTPRequestLabels(tt.controller, tt.route, tt.method, tt.orgID)
			assert.Len(t, labels, tt.wantLen)

			if tt.controller != "" {
				assert.Equal(t, tt.controller, labels[telemetry.ProfilingLabelController])
			}
			if tt.route != "" {
				assert.Equal(t, tt.route, labels[telemetry.ProfilingLabelRoute])
			}
			if tt.method != "" {
				assert.Equal(t, tt.method, labels[telemetry.ProfilingLabelMethod])
			}
			if tt.orgID != "" {
				assert.Equal(t, tt.orgID, labels[telemetry.ProfilingLabelOrgID])
			}
		})
	}
}

func TestOperationLabels(t *testing.T) {
	t.Run("operation_only", func(t *testing.T) {
		labels := telemetry.OperationLabels("RecordPayment", nil)
		assert.Equal(t, "RecordPayment", labels[telemetry.ProfilingLabelOperation])
		assert.Len(t, labels, 1)
	})

	t.Run("with_extra_labels", func(t *testing.T) {
		labels := telemetry.OperationLabels("RecordPayment", map[string]string{
			"controller": "PaymentHandler",
			"method":     "POST",
		})
		assert.Equal(t, "RecordPayment", labels[telemetry.ProfilingLabelOperation])
		assert.Equal(t, "PaymentHandler", labels["controller"])
		assert.Equal(t, "POST", labels["method"])
		assert.Len(t, labels, 3)
	})
}

func TestRegionLabels(t *testing.T) {
	t.Run("region_only", func(t *testing.T) {
		labels := telemetry.RegionLabels("db_query", nil)
		assert.Equal(t, "db_query", labels[telemetry.ProfilingLabelRegion])
		assert.Len(t, labels, 1)
	})

	t.Run("with_extra_labels", func(t *testing.T) {
		labels := telemetry.RegionLabels("db_query", map[string]string{
			"operation": "ListCharges",
			"table":     "charges",
		})
		assert.Equal(t, "db_query", labels[telemetry.ProfilingLabelRegion])
		assert.Equal(t, "ListCharges", labels["operation"])
		assert.Equal(t, "charges", labels["table"])
		assert.Len(t, labels, 3)
	})
}

func TestLabelConstants(t *testing.T) {
	assert.Equal(t, "controller", telemetry.ProfilingLabelController)
	assert.Equal(t, "route", telemetry.ProfilingLabelRoute)
	assert.Equal(t, "method", telemetry.ProfilingLabelMethod)
	assert.Equal(t, "org_id", telemetry.ProfilingLabelOrgID)
	assert.Equal(t, "operation", telemetry.ProfilingLabelOperation)
	assert.Equal(t, "region", telemetry.ProfilingLabelRegion)

	assert.Equal(t, 128, telemetry.MaxLabelValueLength)
}

func TestHighCardinalityLabels(t *testing.T) {
	for _, label := range []string{
		"user_id", "request_id", "order_id", "trace_id", "span_id", "session_id",
	} {
		assert.True(t, telemetry.HighCardinalityLabels[label],
			"label %s should be marked as high cardinality", label)
	}
}

func TestLabelKeySanitization(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
	}{
		{"spaces_in_key", "my key"},
		{"dashes_in_key", "my-key"},
		{"uppercase_in_key", "MyKey"},
		{"mixed_case_with_spaces", "My Custom Key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, runLabeled(ctx, map[string]string{
				tt.key:       "value",
				"controller": "ChargeHandler",
			}))
		})
	}
}

func TestNestedProfilingLabels(t *testing.T) {
	outerCalled := false
	innerCalled := false

	telemetry.WithProfilingLabels(context.Background(),
		map[string]string{"controller": "ChargeHandler"},
		func(outerCtx context.Context) {
			outerCalled = true
			telemetry.WithProfilingLabels(outerCtx,
				map[string]string{"operation": "QueryLedger", "region": "db_query"},
				func(innerCtx context.Context) {
					innerCalled = true
				})
		})

	assert.True(t, outerCalled)
	assert.True(t, innerCalled)
}

func TestContextPropagation(t *testing.T) {
	type contextKey string
	key := contextKey("request-key")
	ctx := context.WithValue(context.Background(), key, "request-value")

	telemetry.WithProfilingLabels(ctx, map[string]string{"controller": "ChargeHandler"},
		func(c context.Context) {
			value := c.Value(key)
			require.NotNil(t, value)
			assert.Equal(t, "request-value", value)
		})
}

func TestConcurrentProfilingLabels(t *testing.T) {
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			telemetry.WithProfilingLabels(ctx, map[string]string{
				"controller": "AllocationHandler",
				"region":     "allocation",
			}, func(c context.Context) {})
		}()
	}
	wg.Wait()
}
