package leasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LeaseStatus represents the lifecycle status of a lease
type LeaseStatus string

const (
	LeaseStatusDraft      LeaseStatus = "DRAFT"
	LeaseStatusActive     LeaseStatus = "ACTIVE"
	LeaseStatusEnded      LeaseStatus = "ENDED"      // Ran its natural term
	LeaseStatusTerminated LeaseStatus = "TERMINATED" // Ended early
)

// IsValid checks if the lease status is valid
func (s LeaseStatus) IsValid() bool {
	switch s {
	case LeaseStatusDraft, LeaseStatusActive, LeaseStatusEnded, LeaseStatusTerminated:
		return true
	}
	return false
}

// String returns the string representation
func (s LeaseStatus) String() string {
	return string(s)
}

// IsClosed returns true once the lease can no longer accrue charges
func (s LeaseStatus) IsClosed() bool {
	return s == LeaseStatusEnded || s == LeaseStatusTerminated
}

// PartyRole distinguishes the tenants named on a lease
type PartyRole string

const (
	PartyRolePrimary   PartyRole = "PRIMARY"
	PartyRoleCoTenant  PartyRole = "CO_TENANT"
	PartyRoleGuarantor PartyRole = "GUARANTOR" // Liable but not resident
)

// IsValid checks if the party role is valid
func (r PartyRole) IsValid() bool {
	switch r {
	case PartyRolePrimary, PartyRoleCoTenant, PartyRoleGuarantor:
		return true
	}
	return false
}

// LeaseParty links a tenant to a lease with a role
type LeaseParty struct {
	shared.BaseEntity
	OrgID    uuid.UUID `gorm:"type:uuid;not null;index"`
	LeaseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_party_lease_tenant,priority:1"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_party_lease_tenant,priority:2"`
	Role     PartyRole `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (LeaseParty) TableName() string {
	return "lease_parties"
}

// Lease is the aggregate root tying tenants to a unit for a term. It is the
// scope boundary for the ledger: charges and payments always belong to exactly
// one lease.
type Lease struct {
	shared.OrgAggregateRoot
	PropertyID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	UnitID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status          LeaseStatus     `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	StartDate       time.Time       `gorm:"not null"`
	EndDate         *time.Time      `gorm:"index"`
	MonthlyRent     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	SecurityDeposit decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TerminatedAt    *time.Time
	TerminateReason string       `gorm:"type:varchar(500)"`
	Parties         []LeaseParty `gorm:"foreignKey:LeaseID"`
}

// TableName returns the table name for GORM
func (Lease) TableName() string {
	return "leases"
}

// NewLease creates a draft lease with its primary tenant
func NewLease(
	orgID, propertyID, unitID, primaryTenantID uuid.UUID,
	startDate time.Time,
	endDate *time.Time,
	monthlyRent, securityDeposit decimal.Decimal,
) (*Lease, error) {
	if propertyID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Property ID cannot be empty")
	}
	if unitID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unit ID cannot be empty")
	}
	if primaryTenantID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Primary tenant ID cannot be empty")
	}
	if startDate.IsZero() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Start date cannot be empty")
	}
	if endDate != nil && !endDate.After(startDate) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "End date must be after start date")
	}
	if !monthlyRent.IsPositive() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Monthly rent must be positive")
	}
	if securityDeposit.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Security deposit cannot be negative")
	}

	lease := &Lease{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		PropertyID:       propertyID,
		UnitID:           unitID,
		Status:           LeaseStatusDraft,
		StartDate:        startDate,
		EndDate:          endDate,
		MonthlyRent:      monthlyRent,
		SecurityDeposit:  securityDeposit,
	}
	lease.Parties = []LeaseParty{{
		BaseEntity: shared.NewBaseEntity(),
		OrgID:      orgID,
		LeaseID:    lease.ID,
		TenantID:   primaryTenantID,
		Role:       PartyRolePrimary,
	}}

	lease.AddDomainEvent(NewLeaseCreatedEvent(lease))

	return lease, nil
}

// AddParty names an additional tenant on the lease
func (l *Lease) AddParty(tenantID uuid.UUID, role PartyRole) error {
	if tenantID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Tenant ID cannot be empty")
	}
	if !role.IsValid() {
		return shared.NewDomainError("VALIDATION_ERROR", "Party role is not valid")
	}
	if role == PartyRolePrimary {
		return shared.NewDomainError("VALIDATION_ERROR", "A lease has exactly one primary tenant")
	}
	if l.Status.IsClosed() {
		return shared.NewDomainError("INVALID_STATE", "Cannot add parties to a closed lease")
	}
	if l.HasParty(tenantID) {
		return shared.NewDomainError("ALREADY_EXISTS", "Tenant is already a party to this lease")
	}

	l.Parties = append(l.Parties, LeaseParty{
		BaseEntity: shared.NewBaseEntity(),
		OrgID:      l.OrgID,
		LeaseID:    l.ID,
		TenantID:   tenantID,
		Role:       role,
	})
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// HasParty reports whether the tenant is named on the lease. Payments and
// charges may only reference tenants for which this is true.
func (l *Lease) HasParty(tenantID uuid.UUID) bool {
	for _, p := range l.Parties {
		if p.TenantID == tenantID {
			return true
		}
	}
	return false
}

// PrimaryTenantID returns the primary tenant, or uuid.Nil when the lease has
// no primary party (a persistence-level corruption, not a reachable state).
func (l *Lease) PrimaryTenantID() uuid.UUID {
	for _, p := range l.Parties {
		if p.Role == PartyRolePrimary {
			return p.TenantID
		}
	}
	return uuid.Nil
}

// Activate moves a draft lease into effect
func (l *Lease) Activate() error {
	if l.Status != LeaseStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Only a draft lease can be activated")
	}
	if len(l.Parties) == 0 {
		return shared.NewDomainError("INVALID_STATE", "Cannot activate a lease with no parties")
	}

	l.Status = LeaseStatusActive
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	l.AddDomainEvent(NewLeaseActivatedEvent(l))

	return nil
}

// End closes an active lease at its natural term
func (l *Lease) End(endDate time.Time) error {
	if l.Status != LeaseStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Only an active lease can be ended")
	}
	if endDate.Before(l.StartDate) {
		return shared.NewDomainError("VALIDATION_ERROR", "End date cannot precede start date")
	}

	l.Status = LeaseStatusEnded
	l.EndDate = &endDate
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	l.AddDomainEvent(NewLeaseEndedEvent(l))

	return nil
}

// Terminate ends an active lease early with a reason
func (l *Lease) Terminate(reason string) error {
	if l.Status != LeaseStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Only an active lease can be terminated")
	}
	if reason == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Termination reason is required")
	}
	if len(reason) > 500 {
		return shared.NewDomainError("VALIDATION_ERROR", "Termination reason cannot exceed 500 characters")
	}

	now := time.Now()
	l.Status = LeaseStatusTerminated
	l.TerminatedAt = &now
	l.TerminateReason = reason
	l.UpdatedAt = now
	l.IncrementVersion()

	l.AddDomainEvent(NewLeaseTerminatedEvent(l))

	return nil
}

// IsActive returns true if the lease is in effect
func (l *Lease) IsActive() bool {
	return l.Status == LeaseStatusActive
}
