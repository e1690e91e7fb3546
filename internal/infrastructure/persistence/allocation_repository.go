package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormAllocationRepository implements ledger.AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByPayment finds the allocations owned by a payment
func (r *GormAllocationRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]ledger.PaymentAllocation, error) {
	var allocations []ledger.PaymentAllocation
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC, id ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// FindByCharge finds the allocations targeting a charge
func (r *GormAllocationRepository) FindByCharge(ctx context.Context, chargeID uuid.UUID) ([]ledger.PaymentAllocation, error) {
	var allocations []ledger.PaymentAllocation
	if err := r.db.WithContext(ctx).
		Where("charge_id = ?", chargeID).
		Order("created_at ASC, id ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// Ensure GormAllocationRepository implements AllocationRepository
var _ ledger.AllocationRepository = (*GormAllocationRepository)(nil)
