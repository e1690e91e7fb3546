package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/ledger"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// outstandingChargeOrder is the ledger's canonical oldest-first ordering:
// due date ascending with undated charges last, ties broken by creation
// time and then ID so the order is total and stable.
const outstandingChargeOrder = "due_date ASC NULLS LAST, created_at ASC, id ASC"

// allocatedTotalQuery sums a charge's allocations from completed payments.
// The paid total is never stored on the charge row; this query is the one
// source of truth for it.
const allocatedTotalQuery = `
SELECT COALESCE(SUM(pa.amount), 0)
FROM payment_allocations pa
JOIN payments p ON p.id = pa.payment_id
WHERE pa.charge_id = ? AND p.status = ?`

// GormChargeRepository implements ledger.ChargeRepository using GORM
type GormChargeRepository struct {
	db *gorm.DB
}

// NewGormChargeRepository creates a new GormChargeRepository
func NewGormChargeRepository(db *gorm.DB) *GormChargeRepository {
	return &GormChargeRepository{db: db}
}

// FindByID finds a charge by its ID
func (r *GormChargeRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Charge, error) {
	var charge ledger.Charge
	if err := r.db.WithContext(ctx).First(&charge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &charge, nil
}

// FindByIDForOrg finds a charge by ID within an organization
func (r *GormChargeRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*ledger.Charge, error) {
	var charge ledger.Charge
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&charge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &charge, nil
}

// FindAllForOrg finds all charges for an organization matching the filter
func (r *GormChargeRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter ledger.ChargeFilter) ([]ledger.Charge, error) {
	var charges []ledger.Charge
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&ledger.Charge{}).Where("org_id = ?", orgID),
		filter,
	)
	if err := query.Find(&charges).Error; err != nil {
		return nil, err
	}
	return charges, nil
}

// FindByLease finds charges for a lease matching the filter
func (r *GormChargeRepository) FindByLease(ctx context.Context, orgID, leaseID uuid.UUID, filter ledger.ChargeFilter) ([]ledger.Charge, error) {
	var charges []ledger.Charge
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&ledger.Charge{}).
			Where("org_id = ? AND lease_id = ?", orgID, leaseID),
		filter,
	)
	if err := query.Find(&charges).Error; err != nil {
		return nil, err
	}
	return charges, nil
}

// FindOutstandingByLease finds a lease's DUE and PARTIAL charges in the
// ledger's oldest-first order
func (r *GormChargeRepository) FindOutstandingByLease(ctx context.Context, orgID, leaseID uuid.UUID) ([]ledger.Charge, error) {
	var charges []ledger.Charge
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND lease_id = ? AND status IN ?",
			orgID, leaseID, []ledger.ChargeStatus{ledger.ChargeStatusDue, ledger.ChargeStatusPartial}).
		Order(outstandingChargeOrder).
		Find(&charges).Error; err != nil {
		return nil, err
	}
	return charges, nil
}

// Save creates or updates a charge
func (r *GormChargeRepository) Save(ctx context.Context, charge *ledger.Charge) error {
	return r.db.WithContext(ctx).Save(charge).Error
}

// SaveWithLock saves a charge with optimistic locking (version check).
// Returns CONCURRENCY_CONFLICT if the row was modified by another transaction.
func (r *GormChargeRepository) SaveWithLock(ctx context.Context, charge *ledger.Charge) error {
	return saveChargeWithLock(r.db.WithContext(ctx), charge)
}

// CountForOrg counts charges for an organization matching the filter
func (r *GormChargeRepository) CountForOrg(ctx context.Context, orgID uuid.UUID, filter ledger.ChargeFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&ledger.Charge{}).Where("org_id = ?", orgID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AllocatedTotal returns the sum of allocation amounts against the charge
// from payments in COMPLETED status
func (r *GormChargeRepository) AllocatedTotal(ctx context.Context, chargeID uuid.UUID) (decimal.Decimal, error) {
	return allocatedTotal(r.db.WithContext(ctx), chargeID)
}

// SumOutstandingByLease returns the total unpaid balance across a lease's
// DUE and PARTIAL charges
func (r *GormChargeRepository) SumOutstandingByLease(ctx context.Context, orgID, leaseID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Raw(`
SELECT COALESCE(SUM(c.amount - COALESCE(alloc.total, 0)), 0)
FROM charges c
LEFT JOIN (
	SELECT pa.charge_id, SUM(pa.amount) AS total
	FROM payment_allocations pa
	JOIN payments p ON p.id = pa.payment_id
	WHERE p.status = ?
	GROUP BY pa.charge_id
) alloc ON alloc.charge_id = c.id
WHERE c.org_id = ? AND c.lease_id = ? AND c.status IN (?, ?)`,
		ledger.PaymentStatusCompleted, orgID, leaseID,
		ledger.ChargeStatusDue, ledger.ChargeStatusPartial).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// applyFilter applies filter options to the query
func (r *GormChargeRepository) applyFilter(query *gorm.DB, filter ledger.ChargeFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Paginates() {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, ChargeSortFields, "created_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order(outstandingChargeOrder)
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormChargeRepository) applyFilterWithoutPagination(query *gorm.DB, filter ledger.ChargeFilter) *gorm.DB {
	if filter.LeaseID != nil {
		query = query.Where("lease_id = ?", *filter.LeaseID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.Overdue != nil && *filter.Overdue {
		query = query.Where("status IN ? AND due_date IS NOT NULL AND due_date < ?",
			[]ledger.ChargeStatus{ledger.ChargeStatusDue, ledger.ChargeStatusPartial}, time.Now())
	}
	return query
}

// saveChargeWithLock is shared between the repository and the ledger
// transaction so both paths enforce the same version check.
func saveChargeWithLock(db *gorm.DB, charge *ledger.Charge) error {
	result := db.
		Model(&ledger.Charge{}).
		Where("id = ? AND version = ?", charge.ID, charge.Version-1).
		Select("*").
		Omit("created_at").
		Updates(charge)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// allocatedTotal runs the completed-allocation sum on the given handle so it
// can execute inside or outside a transaction.
func allocatedTotal(db *gorm.DB, chargeID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := db.Raw(allocatedTotalQuery, chargeID, ledger.PaymentStatusCompleted).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// Ensure GormChargeRepository implements ChargeRepository
var _ ledger.ChargeRepository = (*GormChargeRepository)(nil)
