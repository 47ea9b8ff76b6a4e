package orders

import (
	"time"

	"github.com/meridian-oms/meridian-oms/internal/sales/shared"
)

type CreateOrderRequest struct {
	CustomerID    int64                `json:"customer_id" validate:"required,gt=0"`
	OrderDate     time.Time            `json:"order_date" validate:"required"`
	PaymentMethod string               `json:"payment_method" validate:"required,oneof=full advance"`
	Notes         *string              `json:"notes,omitempty"`
	Lines         []CreateOrderLineReq `json:"lines" validate:"required,min=1,dive"`
}

type CreateOrderLineReq struct {
	ProductID   int64   `json:"product_id" validate:"required,gt=0"`
	Description *string `json:"description,omitempty"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ListOrdersRequest struct {
	CustomerID *int64              `json:"customer_id,omitempty"`
	Status     *shared.OrderStatus `json:"status,omitempty"`
	Search     string              `json:"search,omitempty"`
	DateFrom   *time.Time          `json:"date_from,omitempty"`
	DateTo     *time.Time          `json:"date_to,omitempty"`
	SortBy     string              `json:"sort_by,omitempty"`
	SortDesc   bool                `json:"sort_desc,omitempty"`
	Limit      int                 `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int                 `json:"offset" validate:"gte=0"`
}

// PaymentQuote is the amount a client should charge now for a method.
type PaymentQuote struct {
	Method       string  `json:"method"`
	AmountToPay  float64 `json:"amount_to_pay"`
	RemainingDue float64 `json:"remaining_due"`
}
