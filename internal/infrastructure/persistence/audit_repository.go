package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/ledger"
	"github.com/propfolio/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAuditRepository implements ledger.AuditRepository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Save inserts an audit entry. Entries are append-only; existing rows are
// never updated.
func (r *GormAuditRepository) Save(ctx context.Context, entry *ledger.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByLease finds audit entries for a lease, newest first
func (r *GormAuditRepository) FindByLease(ctx context.Context, orgID, leaseID uuid.UUID, filter shared.Filter) ([]ledger.AuditEntry, error) {
	var entries []ledger.AuditEntry
	query := r.db.WithContext(ctx).
		Where("org_id = ? AND lease_id = ?", orgID, leaseID).
		Order("created_at DESC, id DESC")

	if filter.Paginates() {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormAuditRepository implements AuditRepository
var _ ledger.AuditRepository = (*GormAuditRepository)(nil)
