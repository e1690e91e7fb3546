package leasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/shared"
)

// TenantService handles tenant record management
type TenantService struct {
	tenantRepo leasing.TenantRepository
}

// NewTenantService creates a new TenantService
func NewTenantService(tenantRepo leasing.TenantRepository) *TenantService {
	return &TenantService{tenantRepo: tenantRepo}
}

// Create creates a new tenant record
func (s *TenantService) Create(ctx context.Context, orgID uuid.UUID, req CreateTenantRequest) (*TenantResponse, error) {
	tenant, err := leasing.NewTenant(orgID, req.FirstName, req.LastName, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}

	response := ToTenantResponse(tenant)
	return &response, nil
}

// GetByID retrieves a tenant by ID
func (s *TenantService) GetByID(ctx context.Context, orgID, tenantID uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindByIDForOrg(ctx, orgID, tenantID)
	if err != nil {
		return nil, err
	}

	response := ToTenantResponse(tenant)
	return &response, nil
}

// List retrieves tenants for an organization
func (s *TenantService) List(ctx context.Context, orgID uuid.UUID, search string, page, pageSize int) ([]TenantResponse, int64, error) {
	filter := leasing.TenantFilter{Filter: shared.DefaultFilter()}
	filter.Search = search
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}

	tenants, err := s.tenantRepo.FindAllForOrg(ctx, orgID, filter)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.tenantRepo.CountForOrg(ctx, orgID, filter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]TenantResponse, 0, len(tenants))
	for i := range tenants {
		out = append(out, ToTenantResponse(&tenants[i]))
	}
	return out, count, nil
}
