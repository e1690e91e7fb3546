package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/ledger"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedgerUnitOfWork implements ledger.LedgerUnitOfWork over a single
// database transaction. Every LedgerTx method issued inside Execute runs on
// the same transaction, so an error anywhere rolls back all ledger writes.
type GormLedgerUnitOfWork struct {
	db *gorm.DB
}

// NewGormLedgerUnitOfWork creates a new GormLedgerUnitOfWork
func NewGormLedgerUnitOfWork(db *gorm.DB) *GormLedgerUnitOfWork {
	return &GormLedgerUnitOfWork{db: db}
}

// Execute runs fn inside a database transaction. If fn returns an error the
// transaction rolls back and the error is returned unchanged.
func (u *GormLedgerUnitOfWork) Execute(ctx context.Context, fn func(tx ledger.LedgerTx) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormLedgerTx{tx: tx})
	})
}

// gormLedgerTx adapts one gorm transaction to the ledger.LedgerTx port
type gormLedgerTx struct {
	tx *gorm.DB
}

// ChargeForUpdate loads a charge under a row-level lock
func (t *gormLedgerTx) ChargeForUpdate(ctx context.Context, orgID, chargeID uuid.UUID) (*ledger.Charge, error) {
	var charge ledger.Charge
	if err := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND id = ?", orgID, chargeID).
		First(&charge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &charge, nil
}

// OutstandingChargesForUpdate loads a lease's DUE and PARTIAL charges under
// row-level locks, in the ledger's oldest-first order
func (t *gormLedgerTx) OutstandingChargesForUpdate(ctx context.Context, orgID, leaseID uuid.UUID) ([]ledger.Charge, error) {
	var charges []ledger.Charge
	if err := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND lease_id = ? AND status IN ?",
			orgID, leaseID, []ledger.ChargeStatus{ledger.ChargeStatusDue, ledger.ChargeStatusPartial}).
		Order(outstandingChargeOrder).
		Find(&charges).Error; err != nil {
		return nil, err
	}
	return charges, nil
}

// ChargesForUpdate loads specific charges under row-level locks. Locks are
// taken in the ledger's canonical order so concurrent allocators acquire
// them in the same sequence.
func (t *gormLedgerTx) ChargesForUpdate(ctx context.Context, orgID uuid.UUID, chargeIDs []uuid.UUID) ([]ledger.Charge, error) {
	if len(chargeIDs) == 0 {
		return []ledger.Charge{}, nil
	}
	var charges []ledger.Charge
	if err := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND id IN ?", orgID, chargeIDs).
		Order(outstandingChargeOrder).
		Find(&charges).Error; err != nil {
		return nil, err
	}
	return charges, nil
}

// SaveCharge persists charge changes with a version check
func (t *gormLedgerTx) SaveCharge(ctx context.Context, charge *ledger.Charge) error {
	return saveChargeWithLock(t.tx.WithContext(ctx), charge)
}

// PaymentForUpdate loads a payment under a row-level lock
func (t *gormLedgerTx) PaymentForUpdate(ctx context.Context, orgID, paymentID uuid.UUID) (*ledger.Payment, error) {
	var payment ledger.Payment
	if err := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND id = ?", orgID, paymentID).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// CreatePayment inserts a new payment
func (t *gormLedgerTx) CreatePayment(ctx context.Context, payment *ledger.Payment) error {
	return t.tx.WithContext(ctx).Create(payment).Error
}

// SavePayment persists payment changes with a version check
func (t *gormLedgerTx) SavePayment(ctx context.Context, payment *ledger.Payment) error {
	return savePaymentWithLock(t.tx.WithContext(ctx), payment)
}

// CreateAllocations inserts allocation rows
func (t *gormLedgerTx) CreateAllocations(ctx context.Context, allocations []ledger.PaymentAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return t.tx.WithContext(ctx).Create(&allocations).Error
}

// DeleteAllocationsByPayment removes a payment's allocation rows and returns
// the rows that were deleted, so the caller can reproject the charges they
// pointed at.
func (t *gormLedgerTx) DeleteAllocationsByPayment(ctx context.Context, paymentID uuid.UUID) ([]ledger.PaymentAllocation, error) {
	var allocations []ledger.PaymentAllocation
	if err := t.tx.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC, id ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return allocations, nil
	}
	if err := t.tx.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Delete(&ledger.PaymentAllocation{}).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// AllocatedTotal returns the sum of allocation amounts against the charge
// from payments in COMPLETED status, as seen by this transaction
func (t *gormLedgerTx) AllocatedTotal(ctx context.Context, chargeID uuid.UUID) (decimal.Decimal, error) {
	return allocatedTotal(t.tx.WithContext(ctx), chargeID)
}

// AllocatedTotals returns allocated totals for several charges at once.
// Charges with no allocations map to zero.
func (t *gormLedgerTx) AllocatedTotals(ctx context.Context, chargeIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	totals := make(map[uuid.UUID]decimal.Decimal, len(chargeIDs))
	for _, id := range chargeIDs {
		totals[id] = decimal.Zero
	}
	if len(chargeIDs) == 0 {
		return totals, nil
	}

	type chargeTotal struct {
		ChargeID uuid.UUID
		Total    decimal.Decimal
	}
	var rows []chargeTotal
	if err := t.tx.WithContext(ctx).Raw(`
SELECT pa.charge_id AS charge_id, COALESCE(SUM(pa.amount), 0) AS total
FROM payment_allocations pa
JOIN payments p ON p.id = pa.payment_id
WHERE pa.charge_id IN ? AND p.status = ?
GROUP BY pa.charge_id`,
		chargeIDs, ledger.PaymentStatusCompleted).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		totals[row.ChargeID] = row.Total
	}
	return totals, nil
}

// Ensure the implementations satisfy the ledger ports
var (
	_ ledger.LedgerUnitOfWork = (*GormLedgerUnitOfWork)(nil)
	_ ledger.LedgerTx         = (*gormLedgerTx)(nil)
)
