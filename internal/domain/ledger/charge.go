package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ChargeType represents the kind of obligation billed to a tenant
type ChargeType string

const (
	ChargeTypeRent            ChargeType = "RENT"
	ChargeTypeLateFee         ChargeType = "LATE_FEE"
	ChargeTypeSecurityDeposit ChargeType = "SECURITY_DEPOSIT"
	ChargeTypeUtility         ChargeType = "UTILITY"
	ChargeTypeMaintenance     ChargeType = "MAINTENANCE"
	ChargeTypeOther           ChargeType = "OTHER"
)

// IsValid checks if the charge type is valid
func (t ChargeType) IsValid() bool {
	switch t {
	case ChargeTypeRent, ChargeTypeLateFee, ChargeTypeSecurityDeposit,
		ChargeTypeUtility, ChargeTypeMaintenance, ChargeTypeOther:
		return true
	}
	return false
}

// String returns the string representation of ChargeType
func (t ChargeType) String() string {
	return string(t)
}

// ChargeStatus represents the settlement status of a charge
type ChargeStatus string

const (
	ChargeStatusPending ChargeStatus = "PENDING" // Drafted, not yet billable
	ChargeStatusDue     ChargeStatus = "DUE"     // Billed, no money applied
	ChargeStatusPartial ChargeStatus = "PARTIAL" // Some money applied, balance remains
	ChargeStatusPaid    ChargeStatus = "PAID"    // Fully covered by completed payments
	ChargeStatusWaived  ChargeStatus = "WAIVED"  // Debt forgiven by an administrator
	ChargeStatusVoid    ChargeStatus = "VOID"    // Charge voided before any payment
)

// IsValid checks if the status is a valid ChargeStatus
func (s ChargeStatus) IsValid() bool {
	switch s {
	case ChargeStatusPending, ChargeStatusDue, ChargeStatusPartial,
		ChargeStatusPaid, ChargeStatusWaived, ChargeStatusVoid:
		return true
	}
	return false
}

// String returns the string representation of ChargeStatus
func (s ChargeStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status can never change again.
// PAID is not terminal: reversing a payment can move a charge back to DUE.
func (s ChargeStatus) IsTerminal() bool {
	return s == ChargeStatusWaived || s == ChargeStatusVoid
}

// CanReceivePayment returns true if new payment money may be applied in this status
func (s ChargeStatus) CanReceivePayment() bool {
	return s == ChargeStatusDue || s == ChargeStatusPartial
}

// Charge represents a billed obligation owed by a tenant under a lease.
// The paid total is never stored on the charge itself; it is always derived
// from the allocations of completed payments, and Status is a projection of
// that sum maintained by Reproject.
type Charge struct {
	shared.OrgAggregateRoot
	LeaseID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"lease_id"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Type        ChargeType      `gorm:"type:varchar(30);not null" json:"type"`
	Description string          `gorm:"type:varchar(500)" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	DueDate     *time.Time      `gorm:"index" json:"due_date"`
	Status      ChargeStatus    `gorm:"type:varchar(20);not null;index" json:"status"`
	WaivedAt    *time.Time      `json:"waived_at"`
	WaiveReason string          `gorm:"type:varchar(500)" json:"waive_reason"`
	VoidedAt    *time.Time      `json:"voided_at"`
	VoidReason  string          `gorm:"type:varchar(500)" json:"void_reason"`
}

// TableName returns the table name for GORM
func (Charge) TableName() string {
	return "charges"
}

// NewCharge creates a new charge in DUE status
func NewCharge(
	orgID uuid.UUID,
	leaseID uuid.UUID,
	tenantID uuid.UUID,
	chargeType ChargeType,
	description string,
	amount valueobject.Money,
	dueDate *time.Time,
) (*Charge, error) {
	if leaseID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Lease ID cannot be empty")
	}
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Tenant ID cannot be empty")
	}
	if !chargeType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Charge type is not valid")
	}
	if len(description) > 500 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Description cannot exceed 500 characters")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Charge amount must be positive")
	}

	c := &Charge{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		LeaseID:          leaseID,
		TenantID:         tenantID,
		Type:             chargeType,
		Description:      description,
		Amount:           amount.Amount(),
		DueDate:          dueDate,
		Status:           ChargeStatusDue,
	}

	c.AddDomainEvent(NewChargeCreatedEvent(c))

	return c, nil
}

// Reproject recomputes the charge status from the sum of allocations whose
// owning payment is COMPLETED. It is the only code path that moves a charge
// between DUE, PARTIAL and PAID. Returns true when the status changed.
//
// WAIVED and VOID are terminal for this projection: a reproject against a
// charge in either state is a no-op the caller may log but must not fail on.
func (c *Charge) Reproject(totalAllocated decimal.Decimal) (bool, error) {
	if c.Status.IsTerminal() {
		return false, nil
	}
	if totalAllocated.IsNegative() {
		return false, shared.NewDomainError("INVARIANT_VIOLATION",
			fmt.Sprintf("Charge %s has negative allocated total %s", c.ID, totalAllocated))
	}
	if totalAllocated.GreaterThan(c.Amount) {
		return false, shared.NewDomainError("INVARIANT_VIOLATION",
			fmt.Sprintf("Charge %s allocated total %s exceeds amount %s", c.ID, totalAllocated, c.Amount))
	}

	newStatus := projectStatus(c.Status, c.Amount, totalAllocated)
	if newStatus == c.Status {
		return false, nil
	}

	previous := c.Status
	c.Status = newStatus
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	c.AddDomainEvent(NewChargeStatusChangedEvent(c, previous, totalAllocated))

	return true, nil
}

// projectStatus derives the status a charge should hold for a given allocated
// total. PENDING charges stay PENDING until an administrative flow bills them;
// a PENDING charge with money applied has been explicitly allocated against
// and projects like any other charge.
func projectStatus(current ChargeStatus, amount, totalAllocated decimal.Decimal) ChargeStatus {
	switch {
	case totalAllocated.GreaterThanOrEqual(amount):
		return ChargeStatusPaid
	case totalAllocated.IsPositive():
		return ChargeStatusPartial
	case current == ChargeStatusPending:
		return ChargeStatusPending
	default:
		return ChargeStatusDue
	}
}

// RemainingBalance returns the unpaid portion of the charge given the
// allocated total from completed payments. A negative result means the
// ledger has been corrupted and is reported as an invariant violation.
func (c *Charge) RemainingBalance(totalAllocated decimal.Decimal) (decimal.Decimal, error) {
	remaining := c.Amount.Sub(totalAllocated)
	if remaining.IsNegative() {
		return decimal.Zero, shared.NewDomainError("INVARIANT_VIOLATION",
			fmt.Sprintf("Charge %s remaining balance is negative: %s", c.ID, remaining))
	}
	return remaining, nil
}

// Waive forgives the remaining debt on the charge. Allowed from any
// non-terminal status, including PARTIAL; money already applied stays applied.
func (c *Charge) Waive(reason string) error {
	if c.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot waive charge in %s status", c.Status))
	}
	if reason == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Waive reason is required")
	}

	now := time.Now()
	previous := c.Status
	c.Status = ChargeStatusWaived
	c.WaivedAt = &now
	c.WaiveReason = reason
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewChargeWaivedEvent(c, previous))

	return nil
}

// Void cancels the charge entirely. A charge that has ever received an
// allocation cannot be voided; the funding payments must be reversed first.
func (c *Charge) Void(reason string, allocatedTotal decimal.Decimal) error {
	if c.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot void charge in %s status", c.Status))
	}
	if allocatedTotal.GreaterThan(decimal.Zero) {
		return shared.NewDomainError("INVALID_STATE", "Cannot void charge with applied payments")
	}
	if reason == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Void reason is required")
	}

	now := time.Now()
	previous := c.Status
	c.Status = ChargeStatusVoid
	c.VoidedAt = &now
	c.VoidReason = reason
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewChargeVoidedEvent(c, previous))

	return nil
}

// GetAmountMoney returns the charge amount as Money
func (c *Charge) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(c.Amount)
}

// IsOverdue returns true if the charge is past its due date with a balance remaining
func (c *Charge) IsOverdue() bool {
	if c.Status != ChargeStatusDue && c.Status != ChargeStatusPartial {
		return false
	}
	if c.DueDate == nil {
		return false
	}
	return time.Now().After(*c.DueDate)
}

// DaysOverdue returns the number of days past due (0 if not overdue)
func (c *Charge) DaysOverdue() int {
	if !c.IsOverdue() {
		return 0
	}
	return int(time.Since(*c.DueDate).Hours() / 24)
}
