package orders

import (
	"time"

	"github.com/meridian-oms/meridian-oms/internal/billing/money"
	"github.com/meridian-oms/meridian-oms/internal/sales/shared"
)

type Order struct {
	ID            int64               `json:"id" db:"id"`
	Number        string              `json:"number" db:"number"`
	CustomerID    int64               `json:"customer_id" db:"customer_id"`
	OrderDate     time.Time           `json:"order_date" db:"order_date"`
	Status        shared.OrderStatus  `json:"current_status" db:"status"`
	PaymentMethod money.PaymentMethod `json:"payment_method" db:"payment_method"`
	TotalAmount   float64             `json:"total_amount" db:"total_amount"`
	AmountPaid    float64             `json:"amount_paid" db:"amount_paid"`
	PaymentStatus money.PaymentStatus `json:"payment_status" db:"payment_status"`
	Notes         *string             `json:"notes,omitempty" db:"notes"`
	CreatedBy     int64               `json:"created_by" db:"created_by"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
	Lines         []OrderLine         `json:"lines,omitempty" db:"-"`
}

// RemainingDue is the balance still payable on the order.
func (o *Order) RemainingDue() float64 {
	return money.Round2(o.TotalAmount - o.AmountPaid)
}

type OrderLine struct {
	ID          int64   `json:"id" db:"id"`
	OrderID     int64   `json:"order_id" db:"order_id"`
	ProductID   int64   `json:"product_id" db:"product_id"`
	Description *string `json:"description,omitempty" db:"description"`
	Quantity    float64 `json:"quantity" db:"quantity"`
	UnitPrice   float64 `json:"unit_price" db:"unit_price"`
	LineTotal   float64 `json:"line_total" db:"line_total"`
}

type OrderWithDetails struct {
	Order
	CustomerName string `json:"customer_name" db:"customer_name"`
}
