package customorders

import (
	"time"

	"github.com/meridian-oms/meridian-oms/internal/sales/shared"
)

// CustomOrder is a bespoke production request. It carries no payment fields
// of its own; money is tracked on the invoice issued when production starts.
type CustomOrder struct {
	ID          int64                    `json:"id" db:"id"`
	Number      string                   `json:"number" db:"number"`
	CustomerID  int64                    `json:"customer_id" db:"customer_id"`
	Category    string                   `json:"category" db:"category"`
	Description string                   `json:"description" db:"description"`
	Quantity    int                      `json:"quantity" db:"quantity"`
	WantDate    time.Time                `json:"want_date" db:"want_date"`
	Notes       *string                  `json:"notes,omitempty" db:"notes"`
	DesignFiles []string                 `json:"design_files,omitempty" db:"design_files"`
	Status      shared.CustomOrderStatus `json:"current_status" db:"status"`
	InvoiceID   *int64                   `json:"invoice_id,omitempty" db:"invoice_id"`
	CreatedBy   int64                    `json:"created_by" db:"created_by"`
	CreatedAt   time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at" db:"updated_at"`

	Requirements []MaterialRequirement `json:"requirements,omitempty" db:"-"`
}

// MaterialRequirement is one material line the production run will consume.
type MaterialRequirement struct {
	ID            int64   `json:"id" db:"id"`
	CustomOrderID int64   `json:"custom_order_id" db:"custom_order_id"`
	MaterialID    int64   `json:"material_id" db:"material_id"`
	Quantity      float64 `json:"quantity" db:"quantity"`
}

// CustomOrderWithDetails joins the customer name for list views.
type CustomOrderWithDetails struct {
	CustomOrder
	CustomerName string `json:"customer_name" db:"customer_name"`
}

// InvoiceDraft is the invoice the compound transition issues. Lines are
// priced from the material master at transition time.
type InvoiceDraft struct {
	CustomOrderID int64
	CustomerID    int64
	ServiceCharge float64
	TotalAmount   float64
	IssuedAt      time.Time
	DueDate       time.Time
	Lines         []InvoiceLineDraft
}

type InvoiceLineDraft struct {
	MaterialID   int64
	MaterialName string
	Quantity     float64
	UnitPrice    float64
	LineTotal    float64
}
