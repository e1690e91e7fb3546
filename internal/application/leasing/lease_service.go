package leasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/shared"
)

// LeaseService handles lease lifecycle management
type LeaseService struct {
	leaseRepo    leasing.LeaseRepository
	propertyRepo leasing.PropertyRepository
	tenantRepo   leasing.TenantRepository
}

// NewLeaseService creates a new LeaseService
func NewLeaseService(
	leaseRepo leasing.LeaseRepository,
	propertyRepo leasing.PropertyRepository,
	tenantRepo leasing.TenantRepository,
) *LeaseService {
	return &LeaseService{
		leaseRepo:    leaseRepo,
		propertyRepo: propertyRepo,
		tenantRepo:   tenantRepo,
	}
}

// Create creates a draft lease after checking that the unit and every named
// tenant exist in the organization
func (s *LeaseService) Create(ctx context.Context, orgID uuid.UUID, req CreateLeaseRequest) (*LeaseResponse, error) {
	property, err := s.propertyRepo.FindByIDForOrg(ctx, orgID, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.FindUnit(req.UnitID) == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Unit does not belong to this property")
	}

	if _, err := s.tenantRepo.FindByIDForOrg(ctx, orgID, req.PrimaryTenantID); err != nil {
		return nil, err
	}
	for _, party := range req.OtherParties {
		if _, err := s.tenantRepo.FindByIDForOrg(ctx, orgID, party.TenantID); err != nil {
			return nil, err
		}
	}

	lease, err := leasing.NewLease(orgID, req.PropertyID, req.UnitID, req.PrimaryTenantID,
		req.StartDate, req.EndDate, req.MonthlyRent, req.SecurityDeposit)
	if err != nil {
		return nil, err
	}
	for _, party := range req.OtherParties {
		if err := lease.AddParty(party.TenantID, leasing.PartyRole(party.Role)); err != nil {
			return nil, err
		}
	}

	if err := s.leaseRepo.Save(ctx, lease); err != nil {
		return nil, err
	}

	response := ToLeaseResponse(lease)
	return &response, nil
}

// Activate moves a draft lease into effect
func (s *LeaseService) Activate(ctx context.Context, orgID, leaseID uuid.UUID) (*LeaseResponse, error) {
	lease, err := s.leaseRepo.FindByIDForOrg(ctx, orgID, leaseID)
	if err != nil {
		return nil, err
	}

	if err := lease.Activate(); err != nil {
		return nil, err
	}
	if err := s.leaseRepo.Save(ctx, lease); err != nil {
		return nil, err
	}

	response := ToLeaseResponse(lease)
	return &response, nil
}

// GetByID retrieves a lease with its parties
func (s *LeaseService) GetByID(ctx context.Context, orgID, leaseID uuid.UUID) (*LeaseResponse, error) {
	lease, err := s.leaseRepo.FindByIDForOrg(ctx, orgID, leaseID)
	if err != nil {
		return nil, err
	}

	response := ToLeaseResponse(lease)
	return &response, nil
}

// List retrieves leases for an organization with filtering
func (s *LeaseService) List(ctx context.Context, orgID uuid.UUID, filter LeaseListFilter) ([]LeaseResponse, int64, error) {
	domainFilter := leasing.LeaseFilter{Filter: shared.DefaultFilter()}
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.PropertyID != "" {
		id, err := uuid.Parse(filter.PropertyID)
		if err != nil {
			return nil, 0, shared.NewDomainError("VALIDATION_ERROR", "Invalid property ID")
		}
		domainFilter.PropertyID = &id
	}
	if filter.TenantID != "" {
		id, err := uuid.Parse(filter.TenantID)
		if err != nil {
			return nil, 0, shared.NewDomainError("VALIDATION_ERROR", "Invalid tenant ID")
		}
		domainFilter.TenantID = &id
	}
	if filter.Status != "" {
		status := leasing.LeaseStatus(filter.Status)
		domainFilter.Status = &status
	}

	leases, err := s.leaseRepo.FindAllForOrg(ctx, orgID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.leaseRepo.CountForOrg(ctx, orgID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]LeaseResponse, 0, len(leases))
	for i := range leases {
		out = append(out, ToLeaseResponse(&leases[i]))
	}
	return out, count, nil
}
