package leasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Property DTOs
// =============================================================================

// AddressInput carries a street address in requests
type AddressInput struct {
	Line1      string `json:"line1" binding:"required,min=1,max=200"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"required,min=1,max=100"`
	State      string `json:"state" binding:"required,len=2"`
	PostalCode string `json:"postal_code" binding:"required,min=5,max=10"`
}

// ToAddress converts the input to its value object form
func (a AddressInput) ToAddress() (valueobject.Address, error) {
	opts := []valueobject.AddressOption{}
	if a.Line2 != "" {
		opts = append(opts, valueobject.WithLine2(a.Line2))
	}
	return valueobject.NewAddress(a.Line1, a.City, a.State, a.PostalCode, opts...)
}

// CreatePropertyRequest represents a request to create a property
type CreatePropertyRequest struct {
	Name    string       `json:"name" binding:"required,min=1,max=200"`
	Address AddressInput `json:"address" binding:"required"`
	Notes   string       `json:"notes"`
}

// AddUnitRequest represents a request to add a unit to a property
type AddUnitRequest struct {
	UnitNumber string          `json:"unit_number" binding:"required,min=1,max=50"`
	Bedrooms   int             `json:"bedrooms" binding:"min=0"`
	MarketRent decimal.Decimal `json:"market_rent"`
}

// UnitResponse represents a unit in API responses
type UnitResponse struct {
	ID         uuid.UUID       `json:"id"`
	PropertyID uuid.UUID       `json:"property_id"`
	UnitNumber string          `json:"unit_number"`
	Bedrooms   int             `json:"bedrooms"`
	MarketRent decimal.Decimal `json:"market_rent"`
}

// PropertyResponse represents a property in API responses
type PropertyResponse struct {
	ID        uuid.UUID      `json:"id"`
	OrgID     uuid.UUID      `json:"org_id"`
	Name      string         `json:"name"`
	Address   string         `json:"address"`
	Status    string         `json:"status"`
	Notes     string         `json:"notes,omitempty"`
	Units     []UnitResponse `json:"units"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ToPropertyResponse converts a property aggregate to its response form
func ToPropertyResponse(p *leasing.Property) PropertyResponse {
	units := make([]UnitResponse, 0, len(p.Units))
	for _, u := range p.Units {
		units = append(units, UnitResponse{
			ID:         u.ID,
			PropertyID: u.PropertyID,
			UnitNumber: u.UnitNumber,
			Bedrooms:   u.Bedrooms,
			MarketRent: u.MarketRent,
		})
	}
	return PropertyResponse{
		ID:        p.ID,
		OrgID:     p.OrgID,
		Name:      p.Name,
		Address:   p.Address.FullAddress(),
		Status:    string(p.Status),
		Notes:     p.Notes,
		Units:     units,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// =============================================================================
// Tenant DTOs
// =============================================================================

// CreateTenantRequest represents a request to create a tenant record
type CreateTenantRequest struct {
	FirstName string `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string `json:"last_name" binding:"required,min=1,max=100"`
	Email     string `json:"email" binding:"omitempty,email,max=200"`
	Phone     string `json:"phone" binding:"max=50"`
}

// TenantResponse represents a tenant in API responses
type TenantResponse struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ToTenantResponse converts a tenant aggregate to its response form
func ToTenantResponse(t *leasing.Tenant) TenantResponse {
	return TenantResponse{
		ID:        t.ID,
		OrgID:     t.OrgID,
		FirstName: t.FirstName,
		LastName:  t.LastName,
		FullName:  t.FullName(),
		Email:     t.Email,
		Phone:     t.Phone,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
	}
}

// =============================================================================
// Lease DTOs
// =============================================================================

// LeasePartyInput names an additional tenant on a lease
type LeasePartyInput struct {
	TenantID uuid.UUID `json:"tenant_id" binding:"required"`
	Role     string    `json:"role" binding:"required,oneof=CO_TENANT GUARANTOR"`
}

// CreateLeaseRequest represents a request to create a draft lease
type CreateLeaseRequest struct {
	PropertyID      uuid.UUID         `json:"property_id" binding:"required"`
	UnitID          uuid.UUID         `json:"unit_id" binding:"required"`
	PrimaryTenantID uuid.UUID         `json:"primary_tenant_id" binding:"required"`
	StartDate       time.Time         `json:"start_date" binding:"required"`
	EndDate         *time.Time        `json:"end_date"`
	MonthlyRent     decimal.Decimal   `json:"monthly_rent" binding:"required"`
	SecurityDeposit decimal.Decimal   `json:"security_deposit"`
	OtherParties    []LeasePartyInput `json:"other_parties"`
}

// LeasePartyResponse represents one lease party in API responses
type LeasePartyResponse struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Role     string    `json:"role"`
}

// LeaseResponse represents a lease in API responses
type LeaseResponse struct {
	ID              uuid.UUID            `json:"id"`
	OrgID           uuid.UUID            `json:"org_id"`
	PropertyID      uuid.UUID            `json:"property_id"`
	UnitID          uuid.UUID            `json:"unit_id"`
	Status          string               `json:"status"`
	StartDate       time.Time            `json:"start_date"`
	EndDate         *time.Time           `json:"end_date,omitempty"`
	MonthlyRent     decimal.Decimal      `json:"monthly_rent"`
	SecurityDeposit decimal.Decimal      `json:"security_deposit"`
	Parties         []LeasePartyResponse `json:"parties"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// LeaseListFilter represents filter options for lease list
type LeaseListFilter struct {
	PropertyID string `form:"property_id" binding:"omitempty,uuid"`
	TenantID   string `form:"tenant_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=DRAFT ACTIVE ENDED TERMINATED"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ToLeaseResponse converts a lease aggregate to its response form
func ToLeaseResponse(l *leasing.Lease) LeaseResponse {
	parties := make([]LeasePartyResponse, 0, len(l.Parties))
	for _, p := range l.Parties {
		parties = append(parties, LeasePartyResponse{
			TenantID: p.TenantID,
			Role:     string(p.Role),
		})
	}
	return LeaseResponse{
		ID:              l.ID,
		OrgID:           l.OrgID,
		PropertyID:      l.PropertyID,
		UnitID:          l.UnitID,
		Status:          l.Status.String(),
		StartDate:       l.StartDate,
		EndDate:         l.EndDate,
		MonthlyRent:     l.MonthlyRent,
		SecurityDeposit: l.SecurityDeposit,
		Parties:         parties,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}
