package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how the funds were received
type PaymentMethod string

const (
	PaymentMethodACH        PaymentMethod = "ACH"
	PaymentMethodCard       PaymentMethod = "CARD"
	PaymentMethodCash       PaymentMethod = "CASH"
	PaymentMethodCheck      PaymentMethod = "CHECK"
	PaymentMethodMoneyOrder PaymentMethod = "MONEY_ORDER"
	PaymentMethodOther      PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodACH, PaymentMethodCard, PaymentMethodCash,
		PaymentMethodCheck, PaymentMethodMoneyOrder, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentStatus represents the settlement status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsReversal returns true if moving to this status must tear down the
// payment's allocations
func (s PaymentStatus) IsReversal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusRefunded || s == PaymentStatusCancelled
}

// CountsTowardCharges returns true if the payment's allocations count
// toward charge paid totals
func (s PaymentStatus) CountsTowardCharges() bool {
	return s == PaymentStatusCompleted
}

// Payment represents a recorded receipt of funds from a tenant against a lease.
// Payments are recorded once funds are in hand, so they start in COMPLETED
// status; the only way out of COMPLETED is the reversal path, which removes
// the payment's allocations in the same transaction.
type Payment struct {
	shared.OrgAggregateRoot
	LeaseID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"lease_id"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Method         PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	ReceivedAt     time.Time       `gorm:"not null;index" json:"received_at"`
	Status         PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	Memo           string          `gorm:"type:varchar(500)" json:"memo"`
	ReversedAt     *time.Time      `json:"reversed_at"`
	ReversalReason string          `gorm:"type:varchar(500)" json:"reversal_reason"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a new payment in COMPLETED status
func NewPayment(
	orgID uuid.UUID,
	leaseID uuid.UUID,
	tenantID uuid.UUID,
	amount valueobject.Money,
	method PaymentMethod,
	receivedAt time.Time,
	memo string,
) (*Payment, error) {
	if leaseID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Lease ID cannot be empty")
	}
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Tenant ID cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Payment method is not valid")
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	if len(memo) > 500 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Memo cannot exceed 500 characters")
	}

	p := &Payment{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		LeaseID:          leaseID,
		TenantID:         tenantID,
		Amount:           amount.Amount(),
		Method:           method,
		ReceivedAt:       receivedAt,
		Status:           PaymentStatusCompleted,
		Memo:             memo,
	}

	p.AddDomainEvent(NewPaymentRecordedEvent(p))

	return p, nil
}

// Reverse moves the payment into a reversal status. The caller is responsible
// for deleting the payment's allocations and reprojecting the affected
// charges in the same transaction.
func (p *Payment) Reverse(newStatus PaymentStatus, reason string) error {
	if !newStatus.IsReversal() {
		return shared.NewDomainError("VALIDATION_ERROR",
			fmt.Sprintf("%s is not a reversal status", newStatus))
	}
	if p.Status != PaymentStatusCompleted {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot reverse payment in %s status", p.Status))
	}
	if reason == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Reversal reason is required")
	}

	now := time.Now()
	p.Status = newStatus
	p.ReversedAt = &now
	p.ReversalReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentReversedEvent(p))

	return nil
}

// GetAmountMoney returns the payment amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(p.Amount)
}

// IsCompleted returns true if the payment counts toward charge balances
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

// IsReversed returns true if the payment has been reversed
func (p *Payment) IsReversed() bool {
	return p.Status.IsReversal()
}
