package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newManualMeter builds an in-memory meter backed by a manual reader so tests
// can collect exactly what was recorded.
func newManualMeter(t *testing.T, scope string) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})
	return provider.Meter(scope), reader
}

// openMockedGorm opens a GORM handle over a sqlmock connection.
func openMockedGorm(t *testing.T) *gorm.DB {
	t.Helper()

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) bool {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics(t *testing.T) {
	meter, _ := newManualMeter(t, "test")

	t.Run("registers all instruments", func(t *testing.T) {
		metrics, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		assert.NotNil(t, metrics.poolConnections)
		assert.NotNil(t, metrics.poolConnectionsMax)
		assert.NotNil(t, metrics.queryTotal)
		assert.NotNil(t, metrics.queryDuration)
		assert.NotNil(t, metrics.slowQueryTotal)
	})

	t.Run("zero-value config gets defaults", func(t *testing.T) {
		metrics, err := NewDBMetrics(meter, DBMetricsConfig{}, zap.NewNop())
		require.NoError(t, err)

		assert.Equal(t, 200*time.Millisecond, metrics.config.SlowQueryThreshold)
		assert.Equal(t, 15*time.Second, metrics.config.PoolStatsInterval)
	})

	t.Run("nil logger falls back to nop", func(t *testing.T) {
		metrics, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), nil)
		require.NoError(t, err)
		require.NotNil(t, metrics.logger)
	})
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("records count and duration", func(t *testing.T) {
		meter, reader := newManualMeter(t, "test_query")
		metrics, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 200 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "SELECT", "charges", 50*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		assert.True(t, findMetric(rm, "db_query_total"))
		assert.True(t, findMetric(rm, "db_query_duration_seconds"))
	})

	t.Run("counts queries over the slow threshold", func(t *testing.T) {
		meter, reader := newManualMeter(t, "test_slow")
		metrics, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 100 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "SELECT", "payments", 250*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		assert.True(t, findMetric(rm, "db_slow_query_total"))
	})

	t.Run("queries under the threshold leave the slow counter at zero", func(t *testing.T) {
		meter, reader := newManualMeter(t, "test_fast")
		metrics, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 200 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "SELECT", "leases", 50*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if m.Name != "db_slow_query_total" {
					continue
				}
				sum := m.Data.(metricdata.Sum[int64])
				for _, dp := range sum.DataPoints {
					assert.Equal(t, int64(0), dp.Value)
				}
			}
		}
	})

	t.Run("normalizes operation casing", func(t *testing.T) {
		meter, reader := newManualMeter(t, "test_ops")
		metrics, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "select", "charges", 10*time.Millisecond, nil)
		metrics.RecordQuery(ctx, "Insert", "charges", 10*time.Millisecond, nil)
		metrics.RecordQuery(ctx, "UPDATE", "charges", 10*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		assert.True(t, findMetric(rm, "db_query_total"))
	})

	t.Run("empty operation records as UNKNOWN", func(t *testing.T) {
		meter, reader := newManualMeter(t, "test_empty_op")
		metrics, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "", "charges", 10*time.Millisecond, nil)

		collectMetrics(t, reader)
	})

	t.Run("empty table on a slow query records as unknown", func(t *testing.T) {
		meter, reader := newManualMeter(t, "test_empty_table")
		metrics, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 50 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "SELECT", "", 100*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		assert.True(t, findMetric(rm, "db_slow_query_total"))
	})
}

func TestDBMetrics_PoolStats(t *testing.T) {
	t.Run("samples pool gauges on the interval", func(t *testing.T) {
		meter, reader := newManualMeter(t, "test_pool")

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		metrics, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: 50 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)
		metrics.SetSQLDB(mockDB)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		metrics.StartPoolStatsCollection(ctx)
		time.Sleep(100 * time.Millisecond)
		metrics.Stop()

		rm := collectMetrics(t, reader)
		assert.True(t, findMetric(rm, "db_pool_connections_max"))
		assert.True(t, findMetric(rm, "db_pool_connections"))
	})

	t.Run("no-op when the connection was never set", func(t *testing.T) {
		meter, _ := newManualMeter(t, "test_no_db")
		metrics, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		metrics.StartPoolStatsCollection(ctx)
		time.Sleep(50 * time.Millisecond)
		metrics.Stop()
	})

	t.Run("halts on context cancellation", func(t *testing.T) {
		meter, _ := newManualMeter(t, "test_ctx_cancel")

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		metrics, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: time.Second,
		}, zap.NewNop())
		require.NoError(t, err)
		metrics.SetSQLDB(mockDB)

		ctx, cancel := context.WithCancel(context.Background())
		metrics.StartPoolStatsCollection(ctx)
		cancel()
		metrics.Stop()
	})
}

func TestDBMetrics_Stop(t *testing.T) {
	meter, _ := newManualMeter(t, "test_stop")

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	metrics, err := NewDBMetrics(meter, DBMetricsConfig{
		Enabled:           true,
		PoolStatsInterval: 100 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	metrics.SetSQLDB(mockDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	metrics.StartPoolStatsCollection(ctx)

	done := make(chan struct{})
	go func() {
		metrics.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked for too long")
	}

	// Repeated stops must be safe.
	assert.NotPanics(t, metrics.Stop)
	assert.NotPanics(t, metrics.Stop)
}

func TestDBMetricsPlugin(t *testing.T) {
	meter, _ := newManualMeter(t, "test_plugin")
	metrics, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	plugin := NewDBMetricsPlugin(metrics, zap.NewNop())

	t.Run("name", func(t *testing.T) {
		assert.Equal(t, "db_metrics", plugin.Name())
	})

	t.Run("installs hooks on a gorm handle", func(t *testing.T) {
		gormDB := openMockedGorm(t)
		require.NoError(t, plugin.Initialize(gormDB))
	})
}

func TestDetectOperationType(t *testing.T) {
	tests := []struct {
		sql      string
		expected string
	}{
		{"SELECT * FROM charges", "SELECT"},
		{"select id from charges", "SELECT"},
		{"  SELECT id FROM payments", "SELECT"},
		{"INSERT INTO payments (amount) VALUES (100)", "INSERT"},
		{"insert into allocations values (1)", "INSERT"},
		{"UPDATE charges SET status = 'PAID'", "UPDATE"},
		{"update leases set status = 'ENDED'", "UPDATE"},
		{"DELETE FROM allocations WHERE id = 1", "DELETE"},
		{"delete from allocations", "DELETE"},
		{"CREATE TABLE charges", "OTHER"},
		{"DROP TABLE charges", "OTHER"},
		{"", "OTHER"},
		{"TRUNCATE TABLE payments", "OTHER"},
	}

	for _, tc := range tests {
		t.Run(tc.sql, func(t *testing.T) {
			assert.Equal(t, tc.expected, detectOperationType(tc.sql))
		})
	}
}

func TestRegisterDBMetrics(t *testing.T) {
	logger := zap.NewNop()

	t.Run("nil when disabled", func(t *testing.T) {
		gormDB := openMockedGorm(t)

		metrics, err := RegisterDBMetrics(gormDB, nil, DBMetricsConfig{Enabled: false}, logger)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("nil when no meter provider", func(t *testing.T) {
		gormDB := openMockedGorm(t)

		metrics, err := RegisterDBMetrics(gormDB, nil, DBMetricsConfig{Enabled: true}, logger)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("registers when enabled", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		sdkProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		t.Cleanup(func() {
			_ = sdkProvider.Shutdown(context.Background())
		})

		mp := &MeterProvider{
			provider: sdkProvider,
			logger:   logger,
			config:   MetricsConfig{Enabled: true},
		}

		gormDB := openMockedGorm(t)

		metrics, err := RegisterDBMetrics(gormDB, mp, DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 200 * time.Millisecond,
			PoolStatsInterval:  15 * time.Second,
		}, logger)

		require.NoError(t, err)
		require.NotNil(t, metrics)
	})
}

func TestDBMetrics_ConcurrentRecordQuery(t *testing.T) {
	ctx := context.Background()
	meter, reader := newManualMeter(t, "test_concurrent")

	metrics, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	operations := []string{"SELECT", "INSERT", "UPDATE", "DELETE"}
	tables := []string{"charges", "payments", "allocations", "leases"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			metrics.RecordQuery(ctx, operations[i%4], tables[i%4], time.Duration(i)*time.Millisecond, nil)
		}(i)
	}
	wg.Wait()

	rm := collectMetrics(t, reader)
	assert.True(t, findMetric(rm, "db_query_total"))
}

func TestDBMetrics_MeterScope(t *testing.T) {
	meter, reader := newManualMeter(t, "ledger.db.meter")

	metrics, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	metrics.RecordQuery(context.Background(), "SELECT", "charges", 10*time.Millisecond, nil)

	rm := collectMetrics(t, reader)
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name == "ledger.db.meter" {
			assert.NotEmpty(t, sm.Metrics, "instruments should live under the requested scope")
			return
		}
	}
	t.Errorf("no metrics found under scope %q", "ledger.db.meter")
}
