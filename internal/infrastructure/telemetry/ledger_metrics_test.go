package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestNewLedgerMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, lm)
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  nil,
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, lm)
	assert.Equal(t, "NewLedgerMetrics: meter cannot be nil", err.Error())
}

func TestLedgerMetrics_RecordChargeCreated(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	orgID := uuid.New()

	// Should not panic
	lm.RecordChargeCreated(ctx, orgID, "RENT")
	lm.RecordChargeCreated(ctx, orgID, "LATE_FEE")
}

func TestLedgerMetrics_RecordPayment(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	orgID := uuid.New()

	// Should not panic and record both count and amount
	lm.RecordPayment(ctx, orgID, "ACH", decimal.NewFromFloat(1850.00))
	lm.RecordPayment(ctx, orgID, "CARD", decimal.NewFromFloat(42.50))
}

func TestLedgerMetrics_RecordReversal(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	orgID := uuid.New()

	// Should not panic
	lm.RecordReversal(ctx, orgID, "REFUNDED")
	lm.RecordReversal(ctx, orgID, "FAILED")
}

func TestLedgerMetrics_RecordOutstandingBalance(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	orgID := uuid.New()

	// Should not panic
	lm.RecordOutstandingBalance(ctx, orgID, decimal.NewFromFloat(3250.75))
	lm.RecordOutstandingBalance(ctx, orgID, decimal.Zero)
}

func TestLedgerMetrics_RecordOverdueChargeCount(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	orgID := uuid.New()

	// Should not panic
	lm.RecordOverdueChargeCount(ctx, orgID, 5)
	lm.RecordOverdueChargeCount(ctx, orgID, 0)
}

// Mock implementations for testing periodic collection

type mockOrgProvider struct {
	orgIDs []uuid.UUID
	err    error
}

func (m *mockOrgProvider) GetActiveOrgIDs(ctx context.Context) ([]uuid.UUID, error) {
	return m.orgIDs, m.err
}

type mockBalanceProvider struct {
	balance      decimal.Decimal
	overdueCount int64
	err          error
}

func (m *mockBalanceProvider) GetOutstandingBalance(ctx context.Context, orgID uuid.UUID) (decimal.Decimal, error) {
	if m.err != nil {
		return decimal.Zero, m.err
	}
	return m.balance, nil
}

func (m *mockBalanceProvider) GetOverdueChargeCount(ctx context.Context, orgID uuid.UUID) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.overdueCount, nil
}

func TestLedgerMetrics_PeriodicCollection(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	orgID := uuid.New()

	balanceProvider := &mockBalanceProvider{
		balance:      decimal.NewFromFloat(1200.00),
		overdueCount: 3,
	}

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:           meter,
		Logger:          zap.NewNop(),
		BalanceProvider: balanceProvider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orgProvider := &mockOrgProvider{
		orgIDs: []uuid.UUID{orgID},
	}

	// Start periodic collection with short interval for testing
	lm.StartPeriodicCollection(ctx, orgProvider, 100*time.Millisecond)

	// Wait for at least one collection cycle
	time.Sleep(150 * time.Millisecond)

	// Stop collection
	lm.Stop()

	// Should complete without error
}

func TestLedgerMetrics_PeriodicCollection_NoProvider(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
		// No balance provider
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orgProvider := &mockOrgProvider{
		orgIDs: []uuid.UUID{uuid.New()},
	}

	// Should not panic with no balance provider
	lm.StartPeriodicCollection(ctx, orgProvider, 50*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	lm.Stop()
}

func TestLedgerMetrics_Stop_Idempotent(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	// Calling Stop multiple times should not panic
	lm.Stop()
	lm.Stop()
	lm.Stop()
}

func TestLedgerMetrics_StartPeriodicCollection_OnlyOnce(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orgProvider := &mockOrgProvider{
		orgIDs: []uuid.UUID{},
	}

	// Calling StartPeriodicCollection multiple times should only start once
	lm.StartPeriodicCollection(ctx, orgProvider, time.Hour)
	lm.StartPeriodicCollection(ctx, orgProvider, time.Minute)
	lm.StartPeriodicCollection(ctx, orgProvider, time.Second)

	lm.Stop()
}

func TestMetricsError_Error(t *testing.T) {
	err := &telemetry.MetricsError{
		Op:  "TestOperation",
		Err: "test error message",
	}

	assert.Equal(t, "TestOperation: test error message", err.Error())
}
