package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Payment DTOs
// =============================================================================

// AllocationInput is one caller-directed split in an explicit allocation
type AllocationInput struct {
	ChargeID uuid.UUID       `json:"charge_id" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

// RecordPaymentRequest represents a request to record a tenant payment
type RecordPaymentRequest struct {
	TenantID   uuid.UUID       `json:"tenant_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Method     string          `json:"method" binding:"required,oneof=ACH CARD CASH CHECK MONEY_ORDER OTHER"`
	ReceivedAt *time.Time      `json:"received_at"`
	Memo       string          `json:"memo" binding:"max=500"`
	// When Allocations is empty the payment is auto-allocated oldest due first.
	Allocations []AllocationInput `json:"allocations"`
	ActorID     *uuid.UUID        `json:"-"` // Set from JWT context, not from request body
}

// UpdatePaymentStatusRequest moves a payment into a reversal status
type UpdatePaymentStatusRequest struct {
	Status  string     `json:"status" binding:"required,oneof=FAILED REFUNDED CANCELLED"`
	Reason  string     `json:"reason" binding:"required,min=1,max=500"`
	ActorID *uuid.UUID `json:"-"`
}

// AllocationResponse represents one applied allocation in API responses
type AllocationResponse struct {
	ID        uuid.UUID       `json:"id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	ChargeID  uuid.UUID       `json:"charge_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// ChargeStatusChange reports a charge whose status moved during an operation
type ChargeStatusChange struct {
	ChargeID       uuid.UUID       `json:"charge_id"`
	PreviousStatus string          `json:"previous_status"`
	NewStatus      string          `json:"new_status"`
	TotalAllocated decimal.Decimal `json:"total_allocated"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID             uuid.UUID       `json:"id"`
	OrgID          uuid.UUID       `json:"org_id"`
	LeaseID        uuid.UUID       `json:"lease_id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	Status         string          `json:"status"`
	ReceivedAt     time.Time       `json:"received_at"`
	Memo           string          `json:"memo,omitempty"`
	ReversedAt     *time.Time      `json:"reversed_at,omitempty"`
	ReversalReason string          `json:"reversal_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// RecordPaymentResponse is the full result of recording a payment: the payment
// row plus what the allocator did with it
type RecordPaymentResponse struct {
	Payment         PaymentResponse      `json:"payment"`
	Allocations     []AllocationResponse `json:"allocations"`
	ChargeChanges   []ChargeStatusChange `json:"charge_changes"`
	TotalAllocated  decimal.Decimal      `json:"total_allocated"`
	UnallocatedLeft decimal.Decimal      `json:"unallocated_amount"`
}

// ReversePaymentResponse is the result of reversing a payment
type ReversePaymentResponse struct {
	Payment         PaymentResponse      `json:"payment"`
	AmountUnapplied decimal.Decimal      `json:"amount_unapplied"`
	ChargeChanges   []ChargeStatusChange `json:"charge_changes"`
}

// PaymentListFilter represents filter options for payment list
type PaymentListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=PENDING COMPLETED FAILED REFUNDED CANCELLED"`
	Method   string `form:"method" binding:"omitempty,oneof=ACH CARD CASH CHECK MONEY_ORDER OTHER"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToPaymentResponse converts a payment aggregate to its response form
func ToPaymentResponse(p *ledger.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		OrgID:          p.OrgID,
		LeaseID:        p.LeaseID,
		TenantID:       p.TenantID,
		Amount:         p.Amount,
		Method:         p.Method.String(),
		Status:         p.Status.String(),
		ReceivedAt:     p.ReceivedAt,
		Memo:           p.Memo,
		ReversedAt:     p.ReversedAt,
		ReversalReason: p.ReversalReason,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Version:        p.GetVersion(),
	}
}

// ToAllocationResponses converts allocation rows to their response form
func ToAllocationResponses(allocations []ledger.PaymentAllocation) []AllocationResponse {
	out := make([]AllocationResponse, 0, len(allocations))
	for _, a := range allocations {
		out = append(out, AllocationResponse{
			ID:        a.ID,
			PaymentID: a.PaymentID,
			ChargeID:  a.ChargeID,
			Amount:    a.Amount,
			CreatedAt: a.CreatedAt,
		})
	}
	return out
}

// ToChargeStatusChanges converts allocation outcome changes to their response form
func ToChargeStatusChanges(changes []ledger.ChargeChange) []ChargeStatusChange {
	out := make([]ChargeStatusChange, 0, len(changes))
	for _, c := range changes {
		out = append(out, ChargeStatusChange{
			ChargeID:       c.Charge.ID,
			PreviousStatus: c.PreviousStatus.String(),
			NewStatus:      c.NewStatus.String(),
			TotalAllocated: c.TotalAllocated,
		})
	}
	return out
}

// =============================================================================
// Charge DTOs
// =============================================================================

// CreateChargeRequest represents a request to create a manual charge
type CreateChargeRequest struct {
	TenantID    uuid.UUID       `json:"tenant_id" binding:"required"`
	Type        string          `json:"type" binding:"required,oneof=RENT LATE_FEE SECURITY_DEPOSIT UTILITY MAINTENANCE OTHER"`
	Description string          `json:"description" binding:"max=500"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	DueDate     *time.Time      `json:"due_date"`
	ActorID     *uuid.UUID      `json:"-"`
}

// WaiveChargeRequest represents a request to waive a charge
type WaiveChargeRequest struct {
	Reason  string     `json:"reason" binding:"required,min=1,max=500"`
	ActorID *uuid.UUID `json:"-"`
}

// VoidChargeRequest represents a request to void a charge
type VoidChargeRequest struct {
	Reason  string     `json:"reason" binding:"required,min=1,max=500"`
	ActorID *uuid.UUID `json:"-"`
}

// ChargeResponse represents a charge in API responses
type ChargeResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrgID       uuid.UUID       `json:"org_id"`
	LeaseID     uuid.UUID       `json:"lease_id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Balance     decimal.Decimal `json:"balance"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Status      string          `json:"status"`
	WaivedAt    *time.Time      `json:"waived_at,omitempty"`
	WaiveReason string          `json:"waive_reason,omitempty"`
	VoidedAt    *time.Time      `json:"voided_at,omitempty"`
	VoidReason  string          `json:"void_reason,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

// ChargeListFilter represents filter options for charge list
type ChargeListFilter struct {
	Status      string `form:"status" binding:"omitempty,oneof=PENDING DUE PARTIAL PAID WAIVED VOID"`
	Type        string `form:"type" binding:"omitempty,oneof=RENT LATE_FEE SECURITY_DEPOSIT UTILITY MAINTENANCE OTHER"`
	Outstanding bool   `form:"outstanding"`
	Overdue     bool   `form:"overdue"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy     string `form:"order_by"`
	OrderDir    string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// LedgerSummaryResponse is the per-lease financial rollup
type LedgerSummaryResponse struct {
	LeaseID          uuid.UUID        `json:"lease_id"`
	TotalBilled      decimal.Decimal  `json:"total_billed"`
	TotalPaid        decimal.Decimal  `json:"total_paid"`
	TotalOutstanding decimal.Decimal  `json:"total_outstanding"`
	Charges          []ChargeResponse `json:"charges"`
}

// AuditEntryResponse represents one audit trail row in API responses
type AuditEntryResponse struct {
	ID        uuid.UUID       `json:"id"`
	LeaseID   uuid.UUID       `json:"lease_id"`
	ActorID   *uuid.UUID      `json:"actor_id,omitempty"`
	Action    string          `json:"action"`
	Summary   string          `json:"summary"`
	Detail    json.RawMessage `json:"detail"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToAuditEntryResponses converts audit entries to their response form
func ToAuditEntryResponses(entries []ledger.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:        e.ID,
			LeaseID:   e.LeaseID,
			ActorID:   e.ActorID,
			Action:    e.Action.String(),
			Summary:   e.Summary,
			Detail:    json.RawMessage(e.Detail),
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// ToChargeResponse converts a charge aggregate to its response form.
// amountPaid is the allocated total from COMPLETED payments.
func ToChargeResponse(c *ledger.Charge, amountPaid decimal.Decimal) ChargeResponse {
	return ChargeResponse{
		ID:          c.ID,
		OrgID:       c.OrgID,
		LeaseID:     c.LeaseID,
		TenantID:    c.TenantID,
		Type:        c.Type.String(),
		Description: c.Description,
		Amount:      c.Amount,
		AmountPaid:  amountPaid,
		Balance:     c.Amount.Sub(amountPaid),
		DueDate:     c.DueDate,
		Status:      c.Status.String(),
		WaivedAt:    c.WaivedAt,
		WaiveReason: c.WaiveReason,
		VoidedAt:    c.VoidedAt,
		VoidReason:  c.VoidReason,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Version:     c.GetVersion(),
	}
}
