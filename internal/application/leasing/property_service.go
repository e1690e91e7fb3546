package leasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/shared"
)

// PropertyService handles property and unit management
type PropertyService struct {
	propertyRepo leasing.PropertyRepository
}

// NewPropertyService creates a new PropertyService
func NewPropertyService(propertyRepo leasing.PropertyRepository) *PropertyService {
	return &PropertyService{propertyRepo: propertyRepo}
}

// Create creates a new property
func (s *PropertyService) Create(ctx context.Context, orgID uuid.UUID, req CreatePropertyRequest) (*PropertyResponse, error) {
	address, err := req.Address.ToAddress()
	if err != nil {
		return nil, err
	}

	property, err := leasing.NewProperty(orgID, req.Name, address)
	if err != nil {
		return nil, err
	}
	if req.Notes != "" {
		property.Notes = req.Notes
	}

	if err := s.propertyRepo.Save(ctx, property); err != nil {
		return nil, err
	}

	response := ToPropertyResponse(property)
	return &response, nil
}

// AddUnit adds a unit to an existing property
func (s *PropertyService) AddUnit(ctx context.Context, orgID, propertyID uuid.UUID, req AddUnitRequest) (*PropertyResponse, error) {
	property, err := s.propertyRepo.FindByIDForOrg(ctx, orgID, propertyID)
	if err != nil {
		return nil, err
	}

	if _, err := property.AddUnit(req.UnitNumber, req.Bedrooms, req.MarketRent); err != nil {
		return nil, err
	}
	if err := s.propertyRepo.Save(ctx, property); err != nil {
		return nil, err
	}

	response := ToPropertyResponse(property)
	return &response, nil
}

// GetByID retrieves a property with its units
func (s *PropertyService) GetByID(ctx context.Context, orgID, propertyID uuid.UUID) (*PropertyResponse, error) {
	property, err := s.propertyRepo.FindByIDForOrg(ctx, orgID, propertyID)
	if err != nil {
		return nil, err
	}

	response := ToPropertyResponse(property)
	return &response, nil
}

// List retrieves properties for an organization
func (s *PropertyService) List(ctx context.Context, orgID uuid.UUID, page, pageSize int) ([]PropertyResponse, int64, error) {
	filter := leasing.PropertyFilter{Filter: shared.DefaultFilter()}
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}

	properties, err := s.propertyRepo.FindAllForOrg(ctx, orgID, filter)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.propertyRepo.CountForOrg(ctx, orgID, filter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]PropertyResponse, 0, len(properties))
	for i := range properties {
		out = append(out, ToPropertyResponse(&properties[i]))
	}
	return out, count, nil
}
