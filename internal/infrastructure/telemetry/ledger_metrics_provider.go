// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBalanceMetricsProvider implements BalanceMetricsProvider using GORM.
// It queries the charges and payment_allocations tables directly for
// aggregated metrics.
type GormBalanceMetricsProvider struct {
	db *gorm.DB
}

// NewGormBalanceMetricsProvider creates a new GormBalanceMetricsProvider.
func NewGormBalanceMetricsProvider(db *gorm.DB) *GormBalanceMetricsProvider {
	return &GormBalanceMetricsProvider{db: db}
}

// GetOutstandingBalance returns the total unpaid charge balance for an org.
// Outstanding is charge amount minus allocations from completed payments,
// excluding waived and voided charges.
func (p *GormBalanceMetricsProvider) GetOutstandingBalance(ctx context.Context, orgID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := p.db.WithContext(ctx).
		Table("charges c").
		Select(`COALESCE(SUM(c.amount - COALESCE((
			SELECT SUM(pa.amount)
			FROM payment_allocations pa
			JOIN payments p ON p.id = pa.payment_id
			WHERE pa.charge_id = c.id AND p.status = 'COMPLETED'
		), 0)), 0)`).
		Where("c.org_id = ?", orgID).
		Where("c.status NOT IN ?", []string{"WAIVED", "VOID", "PAID"}).
		Scan(&balance).Error

	if err != nil {
		return decimal.Zero, err
	}

	return balance, nil
}

// GetOverdueChargeCount returns the number of charges past their due date for an org.
func (p *GormBalanceMetricsProvider) GetOverdueChargeCount(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("charges").
		Where("org_id = ?", orgID).
		Where("status IN ?", []string{"DUE", "PARTIAL"}).
		Where("due_date IS NOT NULL AND due_date < CURRENT_DATE").
		Count(&count).Error

	return count, err
}

// GormOrgProvider implements OrgProvider using GORM.
type GormOrgProvider struct {
	db *gorm.DB
}

// NewGormOrgProvider creates a new GormOrgProvider.
func NewGormOrgProvider(db *gorm.DB) *GormOrgProvider {
	return &GormOrgProvider{db: db}
}

// GetActiveOrgIDs returns the distinct org IDs that have leases on file.
func (p *GormOrgProvider) GetActiveOrgIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("leases").
		Distinct("org_id").
		Find(&ids).Error

	return ids, err
}
