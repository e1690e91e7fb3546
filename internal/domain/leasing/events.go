package leasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PropertyCreatedEvent is emitted when a property is created
type PropertyCreatedEvent struct {
	shared.BaseDomainEvent
	Name string
}

// NewPropertyCreatedEvent creates a new PropertyCreatedEvent
func NewPropertyCreatedEvent(property *Property) *PropertyCreatedEvent {
	return &PropertyCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("property.created", "Property", property.ID, property.OrgID),
		Name:            property.Name,
	}
}

// EventType returns the event type
func (e *PropertyCreatedEvent) EventType() string {
	return "property.created"
}

// UnitAddedEvent is emitted when a unit is added to a property
type UnitAddedEvent struct {
	shared.BaseDomainEvent
	UnitID     uuid.UUID
	UnitNumber string
	MarketRent decimal.Decimal
}

// NewUnitAddedEvent creates a new UnitAddedEvent
func NewUnitAddedEvent(property *Property, unit *Unit) *UnitAddedEvent {
	return &UnitAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("property.unit_added", "Property", property.ID, property.OrgID),
		UnitID:          unit.ID,
		UnitNumber:      unit.UnitNumber,
		MarketRent:      unit.MarketRent,
	}
}

// EventType returns the event type
func (e *UnitAddedEvent) EventType() string {
	return "property.unit_added"
}

// TenantCreatedEvent is emitted when a tenant record is created
type TenantCreatedEvent struct {
	shared.BaseDomainEvent
	FullName string
	Email    string
}

// NewTenantCreatedEvent creates a new TenantCreatedEvent
func NewTenantCreatedEvent(tenant *Tenant) *TenantCreatedEvent {
	return &TenantCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("tenant.created", "Tenant", tenant.ID, tenant.OrgID),
		FullName:        tenant.FullName(),
		Email:           tenant.Email,
	}
}

// EventType returns the event type
func (e *TenantCreatedEvent) EventType() string {
	return "tenant.created"
}

// LeaseCreatedEvent is emitted when a draft lease is created
type LeaseCreatedEvent struct {
	shared.BaseDomainEvent
	PropertyID  uuid.UUID
	UnitID      uuid.UUID
	StartDate   time.Time
	MonthlyRent decimal.Decimal
}

// NewLeaseCreatedEvent creates a new LeaseCreatedEvent
func NewLeaseCreatedEvent(lease *Lease) *LeaseCreatedEvent {
	return &LeaseCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("lease.created", "Lease", lease.ID, lease.OrgID),
		PropertyID:      lease.PropertyID,
		UnitID:          lease.UnitID,
		StartDate:       lease.StartDate,
		MonthlyRent:     lease.MonthlyRent,
	}
}

// EventType returns the event type
func (e *LeaseCreatedEvent) EventType() string {
	return "lease.created"
}

// LeaseActivatedEvent is emitted when a lease goes into effect
type LeaseActivatedEvent struct {
	shared.BaseDomainEvent
	StartDate   time.Time
	MonthlyRent decimal.Decimal
}

// NewLeaseActivatedEvent creates a new LeaseActivatedEvent
func NewLeaseActivatedEvent(lease *Lease) *LeaseActivatedEvent {
	return &LeaseActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("lease.activated", "Lease", lease.ID, lease.OrgID),
		StartDate:       lease.StartDate,
		MonthlyRent:     lease.MonthlyRent,
	}
}

// EventType returns the event type
func (e *LeaseActivatedEvent) EventType() string {
	return "lease.activated"
}

// LeaseEndedEvent is emitted when a lease runs its natural term
type LeaseEndedEvent struct {
	shared.BaseDomainEvent
	EndDate *time.Time
}

// NewLeaseEndedEvent creates a new LeaseEndedEvent
func NewLeaseEndedEvent(lease *Lease) *LeaseEndedEvent {
	return &LeaseEndedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("lease.ended", "Lease", lease.ID, lease.OrgID),
		EndDate:         lease.EndDate,
	}
}

// EventType returns the event type
func (e *LeaseEndedEvent) EventType() string {
	return "lease.ended"
}

// LeaseTerminatedEvent is emitted when a lease is ended early
type LeaseTerminatedEvent struct {
	shared.BaseDomainEvent
	Reason string
}

// NewLeaseTerminatedEvent creates a new LeaseTerminatedEvent
func NewLeaseTerminatedEvent(lease *Lease) *LeaseTerminatedEvent {
	return &LeaseTerminatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("lease.terminated", "Lease", lease.ID, lease.OrgID),
		Reason:          lease.TerminateReason,
	}
}

// EventType returns the event type
func (e *LeaseTerminatedEvent) EventType() string {
	return "lease.terminated"
}
