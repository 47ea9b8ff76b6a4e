package inventory

import (
	"errors"
	"time"
)

var (
	// ErrInsufficientStock is returned when a consumption would exceed the
	// available stock of a material.
	ErrInsufficientStock = errors.New("exceeds available stock")
	// ErrNotFound indicates an unknown material.
	ErrNotFound = errors.New("material not found")
	// ErrDuplicateName indicates a material name collision.
	ErrDuplicateName = errors.New("material name already exists")
)

// Material is a raw input consumed by custom production orders.
type Material struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Unit           string    `json:"unit" db:"unit"`
	UnitPrice      float64   `json:"unit_price" db:"unit_price"`
	AvailableStock float64   `json:"available_stock" db:"available_stock"`
	ReorderLevel   float64   `json:"reorder_level" db:"reorder_level"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// AdjustmentInput describes a manual stock movement. Positive quantities
// restock, negative quantities consume.
type AdjustmentInput struct {
	MaterialID int64   `json:"material_id" validate:"required,gt=0"`
	Quantity   float64 `json:"quantity" validate:"required"`
	Note       string  `json:"note,omitempty" validate:"max=500"`
	ActorID    int64   `json:"-"`
}

// CreateMaterialRequest creates a material record.
type CreateMaterialRequest struct {
	Name           string  `json:"name" validate:"required,max=120"`
	Unit           string  `json:"unit" validate:"required,max=20"`
	UnitPrice      float64 `json:"unit_price" validate:"gte=0"`
	AvailableStock float64 `json:"available_stock" validate:"gte=0"`
	ReorderLevel   float64 `json:"reorder_level" validate:"gte=0"`
}

// ListMaterialsRequest filters the material listing.
type ListMaterialsRequest struct {
	Search   string `json:"search,omitempty"`
	LowStock bool   `json:"low_stock,omitempty"`
	Limit    int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int    `json:"offset" validate:"gte=0"`
}
