package customorders

import (
	"time"

	"github.com/meridian-oms/meridian-oms/internal/sales/shared"
)

type CreateCustomOrderRequest struct {
	CustomerID  int64                    `json:"customer_id" validate:"required,gt=0"`
	Category    string                   `json:"category" validate:"required,max=80"`
	Description string                   `json:"description" validate:"required,max=2000"`
	Quantity    int                      `json:"quantity" validate:"required,gt=0"`
	WantDate    time.Time                `json:"want_date" validate:"required"`
	Notes       *string                  `json:"notes,omitempty"`
	DesignFiles []string                 `json:"design_files,omitempty" validate:"dive,max=500"`
	Materials   []MaterialRequirementReq `json:"materials" validate:"required,min=1,dive"`
}

type MaterialRequirementReq struct {
	MaterialID int64   `json:"material_id" validate:"required,gt=0"`
	Quantity   float64 `json:"quantity" validate:"required,gt=0"`
}

// StartProductionRequest carries the supervisor-set charge added on top of
// the material cost when the invoice is issued.
type StartProductionRequest struct {
	ServiceCharge float64 `json:"service_charge" validate:"gte=0"`
	DueInDays     int     `json:"due_in_days" validate:"gte=0,lte=365"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ListCustomOrdersRequest struct {
	CustomerID *int64                    `json:"customer_id,omitempty"`
	Status     *shared.CustomOrderStatus `json:"status,omitempty"`
	Search     string                    `json:"search,omitempty"`
	DateFrom   *time.Time                `json:"date_from,omitempty"`
	DateTo     *time.Time                `json:"date_to,omitempty"`
	Limit      int                       `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int                       `json:"offset" validate:"gte=0"`
}
