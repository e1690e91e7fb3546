package ledger

import (
	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentAllocation is the join entity binding a portion of a payment to a
// charge. A payment exclusively owns its allocations: reversing the payment
// deletes them. A charge is referenced by, but does not own, its allocations;
// its paid total is always computed by summing back over this table.
type PaymentAllocation struct {
	shared.BaseEntity
	OrgID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"org_id"`
	PaymentID uuid.UUID       `gorm:"type:uuid;not null;index" json:"payment_id"`
	ChargeID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"charge_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
}

// TableName returns the table name for GORM
func (PaymentAllocation) TableName() string {
	return "payment_allocations"
}

// NewPaymentAllocation creates a new allocation of a payment portion to a charge
func NewPaymentAllocation(orgID, paymentID, chargeID uuid.UUID, amount decimal.Decimal) (*PaymentAllocation, error) {
	if paymentID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Payment ID cannot be empty")
	}
	if chargeID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Charge ID cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Allocation amount must be positive")
	}

	return &PaymentAllocation{
		BaseEntity: shared.NewBaseEntity(),
		OrgID:      orgID,
		PaymentID:  paymentID,
		ChargeID:   chargeID,
		Amount:     amount,
	}, nil
}

// GetAmountMoney returns the allocation amount as Money
func (a *PaymentAllocation) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(a.Amount)
}
