package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ChargeFilter defines filtering options for charge queries
type ChargeFilter struct {
	shared.Filter
	LeaseID  *uuid.UUID    // Filter by lease
	TenantID *uuid.UUID    // Filter by responsible tenant
	Status   *ChargeStatus // Filter by status
	Type     *ChargeType   // Filter by charge type
	DueFrom  *time.Time    // Filter by due date range start
	DueTo    *time.Time    // Filter by due date range end
	Overdue  *bool         // Filter only overdue charges
}

// ChargeRepository defines the interface for charge persistence
type ChargeRepository interface {
	// FindByID finds a charge by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Charge, error)

	// FindByIDForOrg finds a charge by ID scoped to an organization
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*Charge, error)

	// FindAllForOrg finds all charges for an organization with filtering
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter ChargeFilter) ([]Charge, error)

	// FindByLease finds charges for a lease with filtering
	FindByLease(ctx context.Context, orgID, leaseID uuid.UUID, filter ChargeFilter) ([]Charge, error)

	// FindOutstandingByLease finds DUE and PARTIAL charges for a lease,
	// ordered by due date ascending with nil due dates last, ties broken
	// by creation time then ID
	FindOutstandingByLease(ctx context.Context, orgID, leaseID uuid.UUID) ([]Charge, error)

	// Save creates or updates a charge
	Save(ctx context.Context, charge *Charge) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, charge *Charge) error

	// CountForOrg counts charges for an organization with optional filters
	CountForOrg(ctx context.Context, orgID uuid.UUID, filter ChargeFilter) (int64, error)

	// AllocatedTotal returns the sum of allocation amounts against the charge
	// from payments in COMPLETED status
	AllocatedTotal(ctx context.Context, chargeID uuid.UUID) (decimal.Decimal, error)

	// SumOutstandingByLease returns the total unpaid balance across a
	// lease's DUE and PARTIAL charges
	SumOutstandingByLease(ctx context.Context, orgID, leaseID uuid.UUID) (decimal.Decimal, error)
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	LeaseID      *uuid.UUID     // Filter by lease
	TenantID     *uuid.UUID     // Filter by tenant
	Status       *PaymentStatus // Filter by status
	Method       *PaymentMethod // Filter by method
	ReceivedFrom *time.Time     // Filter by received date range start
	ReceivedTo   *time.Time     // Filter by received date range end
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByIDForOrg finds a payment by ID scoped to an organization
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*Payment, error)

	// FindAllForOrg finds all payments for an organization with filtering
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter PaymentFilter) ([]Payment, error)

	// FindByLease finds payments for a lease with filtering
	FindByLease(ctx context.Context, orgID, leaseID uuid.UUID, filter PaymentFilter) ([]Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, payment *Payment) error

	// CountForOrg counts payments for an organization with optional filters
	CountForOrg(ctx context.Context, orgID uuid.UUID, filter PaymentFilter) (int64, error)
}

// AllocationRepository defines the read interface for payment allocations
type AllocationRepository interface {
	// FindByPayment finds the allocations owned by a payment
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]PaymentAllocation, error)

	// FindByCharge finds the allocations targeting a charge
	FindByCharge(ctx context.Context, chargeID uuid.UUID) ([]PaymentAllocation, error)
}

// LedgerTx is the set of ledger operations available inside one allocation or
// reversal transaction. Implementations back every method with the same
// database transaction so a failure anywhere rolls back everything.
type LedgerTx interface {
	// ChargeForUpdate loads a charge under a row-level lock
	ChargeForUpdate(ctx context.Context, orgID, chargeID uuid.UUID) (*Charge, error)

	// OutstandingChargesForUpdate loads a lease's DUE and PARTIAL charges
	// under row-level locks, in the ledger's oldest-first order
	OutstandingChargesForUpdate(ctx context.Context, orgID, leaseID uuid.UUID) ([]Charge, error)

	// ChargesForUpdate loads specific charges under row-level locks
	ChargesForUpdate(ctx context.Context, orgID uuid.UUID, chargeIDs []uuid.UUID) ([]Charge, error)

	// SaveCharge persists charge changes with a version check
	SaveCharge(ctx context.Context, charge *Charge) error

	// PaymentForUpdate loads a payment under a row-level lock
	PaymentForUpdate(ctx context.Context, orgID, paymentID uuid.UUID) (*Payment, error)

	// CreatePayment inserts a new payment
	CreatePayment(ctx context.Context, payment *Payment) error

	// SavePayment persists payment changes with a version check
	SavePayment(ctx context.Context, payment *Payment) error

	// CreateAllocations inserts allocation rows
	CreateAllocations(ctx context.Context, allocations []PaymentAllocation) error

	// DeleteAllocationsByPayment removes a payment's allocation rows and
	// returns the rows that were deleted
	DeleteAllocationsByPayment(ctx context.Context, paymentID uuid.UUID) ([]PaymentAllocation, error)

	// AllocatedTotal returns the sum of allocation amounts against the
	// charge from payments in COMPLETED status, as seen by this transaction
	AllocatedTotal(ctx context.Context, chargeID uuid.UUID) (decimal.Decimal, error)

	// AllocatedTotals returns allocated totals for several charges at once;
	// charges with no allocations map to zero
	AllocatedTotals(ctx context.Context, chargeIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// LedgerUnitOfWork runs a function inside a single ledger transaction.
// If fn returns an error the transaction rolls back and the error is
// returned unchanged.
type LedgerUnitOfWork interface {
	Execute(ctx context.Context, fn func(tx LedgerTx) error) error
}
