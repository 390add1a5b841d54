package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode tells how a product's stock is tracked.
type Mode string

const (
	// ModePooled tracks stock as an interchangeable count, e.g. chairs.
	ModePooled Mode = "POOLED"

	// ModeSerialized tracks stock as individually identified units, e.g. a specific projector.
	ModeSerialized Mode = "SERIALIZED"
)

// IsValid reports whether m is one of the known modes.
func (m Mode) IsValid() bool {
	return m == ModePooled || m == ModeSerialized
}

// InstanceStatus is the lifecycle status of a ProductInstance.
type InstanceStatus string

const (
	InstanceAvailable   InstanceStatus = "AVAILABLE"
	InstanceReserved    InstanceStatus = "RESERVED"
	InstanceInUse       InstanceStatus = "IN_USE"
	InstanceMaintenance InstanceStatus = "MAINTENANCE"
	InstanceDisposed    InstanceStatus = "DISPOSED"
)

// IsRentable reports whether an instance in this status may be assigned to a reservation line.
func (s InstanceStatus) IsRentable() bool {
	return s != InstanceMaintenance && s != InstanceDisposed
}

// IsValid reports whether s is one of the known statuses.
func (s InstanceStatus) IsValid() bool {
	switch s {
	case InstanceAvailable, InstanceReserved, InstanceInUse, InstanceMaintenance, InstanceDisposed:
		return true
	default:
		return false
	}
}

// Product is something that can be rented.
//
// UnitPrice is the price per unit and day. TotalCapacity and AvailableCount are only meaningful for
// pooled products. AvailableCount is a hint that is decremented on commit and incremented on release;
// it is not period aware and may become negative when bookings in different periods add up. The
// authoritative availability is always recomputed from committed reservation lines.
type Product struct {
	ID             uuid.UUID
	Name           string
	UnitPrice      Money
	Mode           Mode
	TotalCapacity  int
	AvailableCount int
	CreatedAt      time.Time
}

// Validate checks the product's own fields.
func (p Product) Validate() error {
	if p.ID == uuid.Nil {
		return NewValidationError("product.id", "must be set")
	}

	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("product.name", "must not be empty")
	}

	if !p.Mode.IsValid() {
		return NewValidationError("product.mode", "must be POOLED or SERIALIZED")
	}

	if p.UnitPrice.IsNegative() {
		return NewValidationError("product.unitPrice", "must not be negative")
	}

	if p.TotalCapacity < 0 {
		return NewValidationError("product.totalCapacity", "must not be negative")
	}

	if p.Mode == ModeSerialized && p.TotalCapacity != 0 {
		return NewValidationError("product.totalCapacity", "is derived from instances for serialized products")
	}

	return nil
}

// ProductInstance is one individually identified unit of a serialized product.
type ProductInstance struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Serial    string
	Status    InstanceStatus
}

// Validate checks the instance's own fields.
func (i ProductInstance) Validate() error {
	if i.ID == uuid.Nil {
		return NewValidationError("instance.id", "must be set")
	}

	if i.ProductID == uuid.Nil {
		return NewValidationError("instance.productId", "must be set")
	}

	if strings.TrimSpace(i.Serial) == "" {
		return NewValidationError("instance.serial", "must not be empty")
	}

	if !i.Status.IsValid() {
		return NewValidationError("instance.status", "unknown status "+string(i.Status))
	}

	return nil
}
