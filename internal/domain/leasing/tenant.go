package leasing

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
)

// TenantStatus represents the status of a tenant record
type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "ACTIVE"
	TenantStatusInactive TenantStatus = "INACTIVE" // Moved out, record kept for history
)

// Tenant is a renter. It is deliberately thin: leases carry the relationship
// to properties, and the ledger carries the financial history.
type Tenant struct {
	shared.OrgAggregateRoot
	FirstName string       `gorm:"type:varchar(100);not null"`
	LastName  string       `gorm:"type:varchar(100);not null"`
	Email     string       `gorm:"type:varchar(200);index"`
	Phone     string       `gorm:"type:varchar(50)"`
	Status    TenantStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	Notes     string       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new tenant record
func NewTenant(orgID uuid.UUID, firstName, lastName, email, phone string) (*Tenant, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "First name cannot be empty")
	}
	if lastName == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Last name cannot be empty")
	}
	if len(firstName) > 100 || len(lastName) > 100 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Name cannot exceed 100 characters")
	}
	if email != "" {
		if err := validateTenantEmail(email); err != nil {
			return nil, err
		}
	}
	if phone != "" {
		if err := validateTenantPhone(phone); err != nil {
			return nil, err
		}
	}

	tenant := &Tenant{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		FirstName:        firstName,
		LastName:         lastName,
		Email:            email,
		Phone:            phone,
		Status:           TenantStatusActive,
	}

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// FullName returns the tenant's display name
func (t *Tenant) FullName() string {
	return t.FirstName + " " + t.LastName
}

// SetContact updates the tenant's contact details
func (t *Tenant) SetContact(email, phone string) error {
	if email != "" {
		if err := validateTenantEmail(email); err != nil {
			return err
		}
	}
	if phone != "" {
		if err := validateTenantPhone(phone); err != nil {
			return err
		}
	}

	t.Email = email
	t.Phone = phone
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// Deactivate marks the tenant record inactive
func (t *Tenant) Deactivate() error {
	if t.Status == TenantStatusInactive {
		return shared.NewDomainError("INVALID_STATE", "Tenant is already inactive")
	}

	t.Status = TenantStatusInactive
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// IsActive returns true if the tenant record is active
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

var (
	tenantEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	tenantPhoneRegex = regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
)

func validateTenantEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("VALIDATION_ERROR", "Email cannot exceed 200 characters")
	}
	if !tenantEmailRegex.MatchString(email) {
		return shared.NewDomainError("VALIDATION_ERROR", "Invalid email format")
	}
	return nil
}

func validateTenantPhone(phone string) error {
	if len(phone) > 50 {
		return shared.NewDomainError("VALIDATION_ERROR", "Phone number cannot exceed 50 characters")
	}
	if !tenantPhoneRegex.MatchString(phone) {
		return shared.NewDomainError("VALIDATION_ERROR", "Invalid phone number format")
	}
	return nil
}
