package leasing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PropertyStatus represents the status of a property
type PropertyStatus string

const (
	PropertyStatusActive   PropertyStatus = "ACTIVE"
	PropertyStatusInactive PropertyStatus = "INACTIVE" // No longer managed
)

// Unit is a rentable unit inside a property
type Unit struct {
	shared.BaseEntity
	OrgID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	PropertyID uuid.UUID       `gorm:"type:uuid;not null;index"`
	UnitNumber string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_unit_property_number,priority:2"`
	Bedrooms   int             `gorm:"not null;default:0"`
	MarketRent decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (Unit) TableName() string {
	return "units"
}

// Property is the aggregate root for a managed property and its units
type Property struct {
	shared.OrgAggregateRoot
	Name    string              `gorm:"type:varchar(200);not null"`
	Address valueobject.Address `gorm:"type:jsonb"`
	Notes   string              `gorm:"type:text"`
	Status  PropertyStatus      `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	Units   []Unit              `gorm:"foreignKey:PropertyID"`
}

// TableName returns the table name for GORM
func (Property) TableName() string {
	return "properties"
}

// NewProperty creates a new property with its street address
func NewProperty(orgID uuid.UUID, name string, address valueobject.Address) (*Property, error) {
	if err := validatePropertyName(name); err != nil {
		return nil, err
	}
	if address.IsEmpty() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Property address cannot be empty")
	}

	property := &Property{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		Name:             name,
		Address:          address,
		Status:           PropertyStatusActive,
	}

	property.AddDomainEvent(NewPropertyCreatedEvent(property))

	return property, nil
}

// UpdateName renames the property
func (p *Property) UpdateName(name string) error {
	if err := validatePropertyName(name); err != nil {
		return err
	}

	p.Name = name
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// UpdateAddress replaces the property's street address
func (p *Property) UpdateAddress(address valueobject.Address) error {
	if address.IsEmpty() {
		return shared.NewDomainError("VALIDATION_ERROR", "Property address cannot be empty")
	}

	p.Address = address
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// AddUnit adds a rentable unit. Unit numbers are unique within the property.
func (p *Property) AddUnit(unitNumber string, bedrooms int, marketRent decimal.Decimal) (*Unit, error) {
	unitNumber = strings.TrimSpace(unitNumber)
	if unitNumber == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unit number cannot be empty")
	}
	if len(unitNumber) > 50 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unit number cannot exceed 50 characters")
	}
	if bedrooms < 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Bedrooms cannot be negative")
	}
	if marketRent.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Market rent cannot be negative")
	}
	for _, existing := range p.Units {
		if strings.EqualFold(existing.UnitNumber, unitNumber) {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Unit number already exists in this property")
		}
	}

	unit := Unit{
		BaseEntity: shared.NewBaseEntity(),
		OrgID:      p.OrgID,
		PropertyID: p.ID,
		UnitNumber: unitNumber,
		Bedrooms:   bedrooms,
		MarketRent: marketRent,
	}
	p.Units = append(p.Units, unit)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewUnitAddedEvent(p, &unit))

	return &p.Units[len(p.Units)-1], nil
}

// FindUnit returns the unit with the given ID, or nil
func (p *Property) FindUnit(unitID uuid.UUID) *Unit {
	for i := range p.Units {
		if p.Units[i].ID == unitID {
			return &p.Units[i]
		}
	}
	return nil
}

// Deactivate marks the property as no longer managed
func (p *Property) Deactivate() error {
	if p.Status == PropertyStatusInactive {
		return shared.NewDomainError("INVALID_STATE", "Property is already inactive")
	}

	p.Status = PropertyStatusInactive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// IsActive returns true if the property is actively managed
func (p *Property) IsActive() bool {
	return p.Status == PropertyStatusActive
}

func validatePropertyName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Property name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("VALIDATION_ERROR", "Property name cannot exceed 200 characters")
	}
	return nil
}
