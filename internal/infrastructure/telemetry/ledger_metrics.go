// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics provides business metrics for the property ledger.
// It tracks charge creation, payment activity, and outstanding balances.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	chargeCreatedTotal *Counter
	paymentTotal       *Counter
	paymentAmountTotal *Counter
	reversalTotal      *Counter

	// Gauge metrics (point-in-time values)
	outstandingBalance *FloatGauge
	overdueChargeCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	balanceProvider BalanceMetricsProvider
}

// BalanceMetricsProvider provides ledger balance data for periodic metrics
// collection. This interface allows the telemetry layer to query outstanding
// balances without depending on the ledger domain directly.
type BalanceMetricsProvider interface {
	// GetOutstandingBalance returns the total unpaid charge balance for an org
	GetOutstandingBalance(ctx context.Context, orgID uuid.UUID) (decimal.Decimal, error)

	// GetOverdueChargeCount returns the number of charges past their due date for an org
	GetOverdueChargeCount(ctx context.Context, orgID uuid.UUID) (int64, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	BalanceProvider BalanceMetricsProvider
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		balanceProvider: cfg.BalanceProvider,
	}

	var err error

	lm.chargeCreatedTotal, err = NewCounter(
		cfg.Meter,
		"propfolio_charge_created_total",
		"Total number of charges created",
		"{charges}",
	)
	if err != nil {
		return nil, err
	}

	lm.paymentTotal, err = NewCounter(
		cfg.Meter,
		"propfolio_payment_total",
		"Total number of payments recorded",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	lm.paymentAmountTotal, err = NewCounter(
		cfg.Meter,
		"propfolio_payment_amount_total",
		"Total payment amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	lm.reversalTotal, err = NewCounter(
		cfg.Meter,
		"propfolio_payment_reversal_total",
		"Total number of payment reversals",
		"{reversals}",
	)
	if err != nil {
		return nil, err
	}

	lm.outstandingBalance, err = NewFloatGauge(
		cfg.Meter,
		"propfolio_outstanding_balance",
		"Current total unpaid charge balance",
		"{usd}",
	)
	if err != nil {
		return nil, err
	}

	lm.overdueChargeCount, err = NewGauge(
		cfg.Meter,
		"propfolio_overdue_charge_count",
		"Number of charges past their due date",
		"{charges}",
	)
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// =============================================================================
// Charge Metrics
// =============================================================================

// RecordChargeCreated records a charge creation event.
// This should be called from the application layer when a charge is created.
func (lm *LedgerMetrics) RecordChargeCreated(ctx context.Context, orgID uuid.UUID, chargeType string) {
	lm.chargeCreatedTotal.Inc(ctx,
		AttrOrgID.String(orgID.String()),
		AttrChargeType.String(chargeType),
	)
}

// =============================================================================
// Payment Metrics
// =============================================================================

// RecordPayment records a payment transaction with its amount.
// Amount is converted to the smallest currency unit (cents).
func (lm *LedgerMetrics) RecordPayment(ctx context.Context, orgID uuid.UUID, method string, amount decimal.Decimal) {
	lm.paymentTotal.Inc(ctx,
		AttrOrgID.String(orgID.String()),
		AttrPaymentMethod.String(method),
	)

	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	lm.paymentAmountTotal.Add(ctx, amountCents,
		AttrOrgID.String(orgID.String()),
		AttrPaymentMethod.String(method),
	)
}

// RecordReversal records a payment reversal event.
// Status is the terminal payment status (FAILED, REFUNDED, CANCELLED).
func (lm *LedgerMetrics) RecordReversal(ctx context.Context, orgID uuid.UUID, status string) {
	lm.reversalTotal.Inc(ctx,
		AttrOrgID.String(orgID.String()),
		AttrPaymentStatus.String(status),
	)
}

// =============================================================================
// Balance Metrics
// =============================================================================

// RecordOutstandingBalance records the current unpaid balance for an org.
// This is a gauge metric that should be updated periodically.
func (lm *LedgerMetrics) RecordOutstandingBalance(ctx context.Context, orgID uuid.UUID, balance decimal.Decimal) {
	bal, _ := balance.Float64()
	lm.outstandingBalance.Record(ctx, bal,
		AttrOrgID.String(orgID.String()),
	)
}

// RecordOverdueChargeCount records the number of overdue charges for an org.
// This is a gauge metric that should be updated periodically.
func (lm *LedgerMetrics) RecordOverdueChargeCount(ctx context.Context, orgID uuid.UUID, count int64) {
	lm.overdueChargeCount.Record(ctx, count,
		AttrOrgID.String(orgID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// OrgProvider provides org IDs for periodic metrics collection.
type OrgProvider interface {
	GetActiveOrgIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects balance metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, orgProvider OrgProvider, interval time.Duration) {
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go lm.runPeriodicCollection(ctx, orgProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, orgProvider OrgProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	lm.collectBalanceMetrics(ctx, orgProvider)

	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collectBalanceMetrics(ctx, orgProvider)
		}
	}
}

// collectBalanceMetrics collects balance gauge metrics for all orgs.
func (lm *LedgerMetrics) collectBalanceMetrics(ctx context.Context, orgProvider OrgProvider) {
	if lm.balanceProvider == nil {
		lm.logger.Debug("No balance provider configured, skipping balance metrics collection")
		return
	}

	orgIDs, err := orgProvider.GetActiveOrgIDs(ctx)
	if err != nil {
		lm.logger.Error("Failed to get org IDs for metrics collection", zap.Error(err))
		return
	}

	for _, orgID := range orgIDs {
		lm.collectOrgBalanceMetrics(ctx, orgID)
	}
}

// collectOrgBalanceMetrics collects balance metrics for a single org.
func (lm *LedgerMetrics) collectOrgBalanceMetrics(ctx context.Context, orgID uuid.UUID) {
	balance, err := lm.balanceProvider.GetOutstandingBalance(ctx, orgID)
	if err != nil {
		lm.logger.Warn("Failed to get outstanding balance for org",
			zap.String("org_id", orgID.String()),
			zap.Error(err),
		)
	} else {
		lm.RecordOutstandingBalance(ctx, orgID, balance)
	}

	overdueCount, err := lm.balanceProvider.GetOverdueChargeCount(ctx, orgID)
	if err != nil {
		lm.logger.Warn("Failed to get overdue charge count for org",
			zap.String("org_id", orgID.String()),
			zap.Error(err),
		)
	} else {
		lm.RecordOverdueChargeCount(ctx, orgID, overdueCount)
	}
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
