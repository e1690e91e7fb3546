package leasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
)

// PropertyFilter carries list criteria for properties
type PropertyFilter struct {
	shared.Filter
	Status *PropertyStatus
}

// PropertyRepository defines the persistence port for properties
type PropertyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Property, error)
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*Property, error)
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter PropertyFilter) ([]Property, error)
	Save(ctx context.Context, property *Property) error
	CountForOrg(ctx context.Context, orgID uuid.UUID, filter PropertyFilter) (int64, error)
}

// TenantFilter carries list criteria for tenants
type TenantFilter struct {
	shared.Filter
	Status *TenantStatus
}

// TenantRepository defines the persistence port for tenants
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*Tenant, error)
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter TenantFilter) ([]Tenant, error)
	Save(ctx context.Context, tenant *Tenant) error
	CountForOrg(ctx context.Context, orgID uuid.UUID, filter TenantFilter) (int64, error)
}

// LeaseFilter carries list criteria for leases
type LeaseFilter struct {
	shared.Filter
	PropertyID *uuid.UUID
	UnitID     *uuid.UUID
	TenantID   *uuid.UUID
	Status     *LeaseStatus
}

// LeaseRepository defines the persistence port for leases. Implementations
// load Parties with the lease; HasParty depends on it.
type LeaseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Lease, error)
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*Lease, error)
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter LeaseFilter) ([]Lease, error)
	Save(ctx context.Context, lease *Lease) error
	CountForOrg(ctx context.Context, orgID uuid.UUID, filter LeaseFilter) (int64, error)
}
