package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPropertyRepository implements leasing.PropertyRepository using GORM.
// Units are always loaded with the property.
type GormPropertyRepository struct {
	db *gorm.DB
}

// NewGormPropertyRepository creates a new GormPropertyRepository
func NewGormPropertyRepository(db *gorm.DB) *GormPropertyRepository {
	return &GormPropertyRepository{db: db}
}

// FindByID finds a property by its ID
func (r *GormPropertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*leasing.Property, error) {
	var property leasing.Property
	if err := r.db.WithContext(ctx).
		Preload("Units").
		First(&property, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &property, nil
}

// FindByIDForOrg finds a property by ID within an organization
func (r *GormPropertyRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*leasing.Property, error) {
	var property leasing.Property
	if err := r.db.WithContext(ctx).
		Preload("Units").
		Where("org_id = ? AND id = ?", orgID, id).
		First(&property).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &property, nil
}

// FindAllForOrg finds all properties for an organization matching the filter
func (r *GormPropertyRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter leasing.PropertyFilter) ([]leasing.Property, error) {
	var properties []leasing.Property
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&leasing.Property{}).
			Preload("Units").
			Where("org_id = ?", orgID),
		filter,
	)
	if err := query.Find(&properties).Error; err != nil {
		return nil, err
	}
	return properties, nil
}

// Save creates or updates a property together with its units
func (r *GormPropertyRepository) Save(ctx context.Context, property *leasing.Property) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Units").Save(property).Error; err != nil {
			return err
		}

		for i := range property.Units {
			property.Units[i].PropertyID = property.ID
			if err := tx.Save(&property.Units[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// CountForOrg counts properties for an organization matching the filter
func (r *GormPropertyRepository) CountForOrg(ctx context.Context, orgID uuid.UUID, filter leasing.PropertyFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&leasing.Property{}).Where("org_id = ?", orgID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormPropertyRepository) applyFilter(query *gorm.DB, filter leasing.PropertyFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Paginates() {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, PropertySortFields, "name")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("name ASC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPropertyRepository) applyFilterWithoutPagination(query *gorm.DB, filter leasing.PropertyFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

// Ensure GormPropertyRepository implements PropertyRepository
var _ leasing.PropertyRepository = (*GormPropertyRepository)(nil)
