package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormLeaseRepository implements leasing.LeaseRepository using GORM.
// Parties are always loaded with the lease; HasParty depends on it.
type GormLeaseRepository struct {
	db *gorm.DB
}

// NewGormLeaseRepository creates a new GormLeaseRepository
func NewGormLeaseRepository(db *gorm.DB) *GormLeaseRepository {
	return &GormLeaseRepository{db: db}
}

// FindByID finds a lease by its ID
func (r *GormLeaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*leasing.Lease, error) {
	var lease leasing.Lease
	if err := r.db.WithContext(ctx).
		Preload("Parties").
		First(&lease, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lease, nil
}

// FindByIDForOrg finds a lease by ID within an organization
func (r *GormLeaseRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*leasing.Lease, error) {
	var lease leasing.Lease
	if err := r.db.WithContext(ctx).
		Preload("Parties").
		Where("org_id = ? AND id = ?", orgID, id).
		First(&lease).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lease, nil
}

// FindAllForOrg finds all leases for an organization matching the filter
func (r *GormLeaseRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter leasing.LeaseFilter) ([]leasing.Lease, error) {
	var leases []leasing.Lease
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&leasing.Lease{}).
			Preload("Parties").
			Where("org_id = ?", orgID),
		filter,
	)
	if err := query.Find(&leases).Error; err != nil {
		return nil, err
	}
	return leases, nil
}

// Save creates or updates a lease together with its parties
func (r *GormLeaseRepository) Save(ctx context.Context, lease *leasing.Lease) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Parties").Save(lease).Error; err != nil {
			return err
		}

		// Reconcile parties: remove rows no longer on the lease, then upsert
		// the current set.
		currentPartyIDs := make([]uuid.UUID, len(lease.Parties))
		for i, party := range lease.Parties {
			currentPartyIDs[i] = party.ID
		}

		if len(currentPartyIDs) > 0 {
			if err := tx.Where("lease_id = ? AND id NOT IN ?", lease.ID, currentPartyIDs).
				Delete(&leasing.LeaseParty{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("lease_id = ?", lease.ID).
				Delete(&leasing.LeaseParty{}).Error; err != nil {
				return err
			}
		}

		for i := range lease.Parties {
			lease.Parties[i].LeaseID = lease.ID
			if err := tx.Save(&lease.Parties[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// CountForOrg counts leases for an organization matching the filter
func (r *GormLeaseRepository) CountForOrg(ctx context.Context, orgID uuid.UUID, filter leasing.LeaseFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&leasing.Lease{}).Where("org_id = ?", orgID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormLeaseRepository) applyFilter(query *gorm.DB, filter leasing.LeaseFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Paginates() {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, LeaseSortFields, "created_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("start_date DESC, id DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormLeaseRepository) applyFilterWithoutPagination(query *gorm.DB, filter leasing.LeaseFilter) *gorm.DB {
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.UnitID != nil {
		query = query.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.TenantID != nil {
		query = query.Where(
			"id IN (?)",
			r.db.Model(&leasing.LeaseParty{}).
				Select("lease_id").
				Where("tenant_id = ?", *filter.TenantID),
		)
	}
	return query
}

// Ensure GormLeaseRepository implements LeaseRepository
var _ leasing.LeaseRepository = (*GormLeaseRepository)(nil)
