package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
)

// AuditAction identifies the kind of ledger activity an audit entry records
type AuditAction string

const (
	AuditActionPaymentRecorded AuditAction = "PAYMENT_RECORDED"
	AuditActionPaymentReversed AuditAction = "PAYMENT_REVERSED"
	AuditActionChargeCreated   AuditAction = "CHARGE_CREATED"
	AuditActionChargeWaived    AuditAction = "CHARGE_WAIVED"
	AuditActionChargeVoided    AuditAction = "CHARGE_VOIDED"
)

// IsValid checks if the audit action is valid
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionPaymentRecorded, AuditActionPaymentReversed,
		AuditActionChargeCreated, AuditActionChargeWaived, AuditActionChargeVoided:
		return true
	}
	return false
}

// String returns the string representation of AuditAction
func (a AuditAction) String() string {
	return string(a)
}

// AuditEntry is a human-readable record of a ledger mutation: who did what to
// which lease, with a summary describing amounts and affected charges.
type AuditEntry struct {
	shared.BaseEntity
	OrgID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"org_id"`
	LeaseID uuid.UUID   `gorm:"type:uuid;not null;index" json:"lease_id"`
	ActorID *uuid.UUID  `gorm:"type:uuid" json:"actor_id"`
	Action  AuditAction `gorm:"type:varchar(30);not null" json:"action"`
	Summary string      `gorm:"type:varchar(500);not null" json:"summary"`
	Detail  string      `gorm:"type:text" json:"detail"` // JSON blob with structured context
}

// TableName returns the table name for GORM
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// NewAuditEntry creates a new audit entry
func NewAuditEntry(orgID, leaseID uuid.UUID, actorID *uuid.UUID, action AuditAction, summary, detail string) (*AuditEntry, error) {
	if leaseID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Lease ID cannot be empty")
	}
	if !action.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Audit action is not valid")
	}
	if summary == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Audit summary cannot be empty")
	}

	return &AuditEntry{
		BaseEntity: shared.NewBaseEntity(),
		OrgID:      orgID,
		LeaseID:    leaseID,
		ActorID:    actorID,
		Action:     action,
		Summary:    summary,
		Detail:     detail,
	}, nil
}

// AuditRepository defines the interface for audit entry persistence
type AuditRepository interface {
	// Save inserts an audit entry
	Save(ctx context.Context, entry *AuditEntry) error

	// FindByLease finds audit entries for a lease, newest first
	FindByLease(ctx context.Context, orgID, leaseID uuid.UUID, filter shared.Filter) ([]AuditEntry, error)
}
