package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ChargeCreatedEvent is raised when a new charge is added to the ledger
type ChargeCreatedEvent struct {
	shared.BaseDomainEvent
	ChargeID uuid.UUID       `json:"charge_id"`
	LeaseID  uuid.UUID       `json:"lease_id"`
	TenantID uuid.UUID       `json:"tenant_id"`
	Type     ChargeType      `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  *time.Time      `json:"due_date,omitempty"`
}

// EventType returns the event type name
func (e *ChargeCreatedEvent) EventType() string {
	return "ChargeCreated"
}

// NewChargeCreatedEvent creates a new ChargeCreatedEvent
func NewChargeCreatedEvent(c *Charge) *ChargeCreatedEvent {
	return &ChargeCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChargeCreated", "Charge", c.ID, c.OrgID),
		ChargeID:        c.ID,
		LeaseID:         c.LeaseID,
		TenantID:        c.TenantID,
		Type:            c.Type,
		Amount:          c.Amount,
		DueDate:         c.DueDate,
	}
}

// ChargeStatusChangedEvent is raised when the projector moves a charge
// between DUE, PARTIAL and PAID
type ChargeStatusChangedEvent struct {
	shared.BaseDomainEvent
	ChargeID       uuid.UUID       `json:"charge_id"`
	LeaseID        uuid.UUID       `json:"lease_id"`
	PreviousStatus ChargeStatus    `json:"previous_status"`
	NewStatus      ChargeStatus    `json:"new_status"`
	TotalAllocated decimal.Decimal `json:"total_allocated"`
	Amount         decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *ChargeStatusChangedEvent) EventType() string {
	return "ChargeStatusChanged"
}

// NewChargeStatusChangedEvent creates a new ChargeStatusChangedEvent
func NewChargeStatusChangedEvent(c *Charge, previous ChargeStatus, totalAllocated decimal.Decimal) *ChargeStatusChangedEvent {
	return &ChargeStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChargeStatusChanged", "Charge", c.ID, c.OrgID),
		ChargeID:        c.ID,
		LeaseID:         c.LeaseID,
		PreviousStatus:  previous,
		NewStatus:       c.Status,
		TotalAllocated:  totalAllocated,
		Amount:          c.Amount,
	}
}

// ChargeWaivedEvent is raised when an administrator forgives a charge
type ChargeWaivedEvent struct {
	shared.BaseDomainEvent
	ChargeID       uuid.UUID       `json:"charge_id"`
	LeaseID        uuid.UUID       `json:"lease_id"`
	PreviousStatus ChargeStatus    `json:"previous_status"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	WaivedAt       time.Time       `json:"waived_at"`
}

// EventType returns the event type name
func (e *ChargeWaivedEvent) EventType() string {
	return "ChargeWaived"
}

// NewChargeWaivedEvent creates a new ChargeWaivedEvent
func NewChargeWaivedEvent(c *Charge, previous ChargeStatus) *ChargeWaivedEvent {
	waivedAt := time.Now()
	if c.WaivedAt != nil {
		waivedAt = *c.WaivedAt
	}
	return &ChargeWaivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChargeWaived", "Charge", c.ID, c.OrgID),
		ChargeID:        c.ID,
		LeaseID:         c.LeaseID,
		PreviousStatus:  previous,
		Amount:          c.Amount,
		Reason:          c.WaiveReason,
		WaivedAt:        waivedAt,
	}
}

// ChargeVoidedEvent is raised when a charge is voided before any payment
type ChargeVoidedEvent struct {
	shared.BaseDomainEvent
	ChargeID       uuid.UUID       `json:"charge_id"`
	LeaseID        uuid.UUID       `json:"lease_id"`
	PreviousStatus ChargeStatus    `json:"previous_status"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	VoidedAt       time.Time       `json:"voided_at"`
}

// EventType returns the event type name
func (e *ChargeVoidedEvent) EventType() string {
	return "ChargeVoided"
}

// NewChargeVoidedEvent creates a new ChargeVoidedEvent
func NewChargeVoidedEvent(c *Charge, previous ChargeStatus) *ChargeVoidedEvent {
	voidedAt := time.Now()
	if c.VoidedAt != nil {
		voidedAt = *c.VoidedAt
	}
	return &ChargeVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChargeVoided", "Charge", c.ID, c.OrgID),
		ChargeID:        c.ID,
		LeaseID:         c.LeaseID,
		PreviousStatus:  previous,
		Amount:          c.Amount,
		Reason:          c.VoidReason,
		VoidedAt:        voidedAt,
	}
}

// PaymentRecordedEvent is raised when funds are recorded as received
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID  uuid.UUID       `json:"payment_id"`
	LeaseID    uuid.UUID       `json:"lease_id"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     PaymentMethod   `json:"method"`
	ReceivedAt time.Time       `json:"received_at"`
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return "PaymentRecorded"
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentRecorded", "Payment", p.ID, p.OrgID),
		PaymentID:       p.ID,
		LeaseID:         p.LeaseID,
		TenantID:        p.TenantID,
		Amount:          p.Amount,
		Method:          p.Method,
		ReceivedAt:      p.ReceivedAt,
	}
}

// PaymentAllocatedEvent is raised after a payment's allocations are persisted
type PaymentAllocatedEvent struct {
	shared.BaseDomainEvent
	PaymentID       uuid.UUID           `json:"payment_id"`
	LeaseID         uuid.UUID           `json:"lease_id"`
	Allocations     []PlannedAllocation `json:"allocations"`
	TotalAllocated  decimal.Decimal     `json:"total_allocated"`
	RemainingAmount decimal.Decimal     `json:"remaining_amount"`
}

// EventType returns the event type name
func (e *PaymentAllocatedEvent) EventType() string {
	return "PaymentAllocated"
}

// NewPaymentAllocatedEvent creates a new PaymentAllocatedEvent
func NewPaymentAllocatedEvent(p *Payment, plan *AllocationPlan) *PaymentAllocatedEvent {
	return &PaymentAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentAllocated", "Payment", p.ID, p.OrgID),
		PaymentID:       p.ID,
		LeaseID:         p.LeaseID,
		Allocations:     plan.Allocations,
		TotalAllocated:  plan.TotalAllocated,
		RemainingAmount: plan.RemainingAmount,
	}
}

// PaymentReversedEvent is raised when a payment moves to a reversal status
type PaymentReversedEvent struct {
	shared.BaseDomainEvent
	PaymentID  uuid.UUID       `json:"payment_id"`
	LeaseID    uuid.UUID       `json:"lease_id"`
	Amount     decimal.Decimal `json:"amount"`
	NewStatus  PaymentStatus   `json:"new_status"`
	Reason     string          `json:"reason"`
	ReversedAt time.Time       `json:"reversed_at"`
}

// EventType returns the event type name
func (e *PaymentReversedEvent) EventType() string {
	return "PaymentReversed"
}

// NewPaymentReversedEvent creates a new PaymentReversedEvent
func NewPaymentReversedEvent(p *Payment) *PaymentReversedEvent {
	reversedAt := time.Now()
	if p.ReversedAt != nil {
		reversedAt = *p.ReversedAt
	}
	return &PaymentReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentReversed", "Payment", p.ID, p.OrgID),
		PaymentID:       p.ID,
		LeaseID:         p.LeaseID,
		Amount:          p.Amount,
		NewStatus:       p.Status,
		Reason:          p.ReversalReason,
		ReversedAt:      reversedAt,
	}
}
