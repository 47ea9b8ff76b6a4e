package invoices

import (
	"errors"
	"time"

	"github.com/meridian-oms/meridian-oms/internal/billing/money"
)

var (
	ErrNotFound = errors.New("invoice not found")
	// ErrApprovalAlreadySet guards the one-shot customer approval decision.
	ErrApprovalAlreadySet = errors.New("approval decision already recorded")
	// ErrCancelled rejects payments against a cancelled invoice.
	ErrCancelled = errors.New("invoice is cancelled")
)

// ApprovalStatus is the customer's one-shot decision on an issued invoice.
// It is independent of the payment axis.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalCancelled ApprovalStatus = "cancelled"
)

// Invoice is issued when production starts on a custom order. The line list
// is immutable after creation; paid_amount moves only through payments.
type Invoice struct {
	ID             int64               `json:"id" db:"id"`
	Number         string              `json:"number" db:"number"`
	CustomOrderID  int64               `json:"custom_order_id" db:"custom_order_id"`
	CustomerID     int64               `json:"customer_id" db:"customer_id"`
	ServiceCharge  float64             `json:"service_charge" db:"service_charge"`
	TotalAmount    float64             `json:"total_amount" db:"total_amount"`
	PaidAmount     float64             `json:"paid_amount" db:"paid_amount"`
	PaymentStatus  money.PaymentStatus `json:"payment_status" db:"payment_status"`
	ApprovalStatus ApprovalStatus      `json:"customer_approval_status" db:"approval_status"`
	IssuedAt       time.Time           `json:"issued_at" db:"issued_at"`
	DueDate        time.Time           `json:"due_date" db:"due_date"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at" db:"updated_at"`
	Lines          []InvoiceLine       `json:"lines,omitempty" db:"-"`
}

// RemainingDue is the balance still payable on the invoice.
func (i *Invoice) RemainingDue() float64 {
	return money.Round2(i.TotalAmount - i.PaidAmount)
}

// IsTerminal reports whether the invoice accepts no further changes.
func (i *Invoice) IsTerminal() bool {
	return i.PaymentStatus == money.StatusPaid || i.ApprovalStatus == ApprovalCancelled
}

type InvoiceLine struct {
	ID           int64   `json:"id" db:"id"`
	InvoiceID    int64   `json:"invoice_id" db:"invoice_id"`
	MaterialID   int64   `json:"material_id" db:"material_id"`
	MaterialName string  `json:"material_name" db:"material_name"`
	Quantity     float64 `json:"quantity" db:"quantity"`
	UnitPrice    float64 `json:"unit_price" db:"unit_price"`
	LineTotal    float64 `json:"line_total" db:"line_total"`
}

// InvoiceWithDetails joins the customer name for list views.
type InvoiceWithDetails struct {
	Invoice
	CustomerName string `json:"customer_name" db:"customer_name"`
}

type ListInvoicesRequest struct {
	CustomerID     *int64               `json:"customer_id,omitempty"`
	PaymentStatus  *money.PaymentStatus `json:"payment_status,omitempty"`
	ApprovalStatus *ApprovalStatus      `json:"approval_status,omitempty"`
	Search         string               `json:"search,omitempty"`
	DateFrom       *time.Time           `json:"date_from,omitempty"`
	DateTo         *time.Time           `json:"date_to,omitempty"`
	Limit          int                  `json:"limit" validate:"gte=0,lte=1000"`
	Offset         int                  `json:"offset" validate:"gte=0"`
}
