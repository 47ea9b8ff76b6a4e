package payments

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("payment not found")
	// ErrTargetNotFound indicates the order or invoice being paid is unknown.
	ErrTargetNotFound = errors.New("payment target not found")
	// ErrAmbiguousTarget rejects submissions naming both an order and an invoice.
	ErrAmbiguousTarget = errors.New("exactly one of order_id or invoice_id required")
	// ErrTargetCancelled rejects payments against cancelled targets.
	ErrTargetCancelled = errors.New("payment target is cancelled")
)

// TargetKind distinguishes what a payment settles.
type TargetKind string

const (
	TargetOrder   TargetKind = "order"
	TargetInvoice TargetKind = "invoice"
)

// Payment is the immutable record of one accepted submission.
type Payment struct {
	ID         int64      `json:"id" db:"id"`
	Number     string     `json:"number" db:"number"`
	TargetKind TargetKind `json:"target_kind" db:"target_kind"`
	OrderID    *int64     `json:"order_id,omitempty" db:"order_id"`
	InvoiceID  *int64     `json:"invoice_id,omitempty" db:"invoice_id"`
	Amount     float64    `json:"amount" db:"amount"`
	Method     string     `json:"method" db:"method"`
	ReceivedBy int64      `json:"received_by" db:"received_by"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Target is the locked payment state of an order or invoice.
type Target struct {
	ID          int64
	State       string
	TotalAmount float64
	PaidAmount  float64
}

type SubmitPaymentRequest struct {
	OrderID   *int64  `json:"order_id,omitempty" validate:"omitempty,gt=0"`
	InvoiceID *int64  `json:"invoice_id,omitempty" validate:"omitempty,gt=0"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Method    string  `json:"method,omitempty" validate:"omitempty,oneof=full advance manual"`
}

// Receipt is returned to the client after a submission is accepted.
type Receipt struct {
	Payment       Payment `json:"payment"`
	PaidAmount    float64 `json:"paid_amount"`
	RemainingDue  float64 `json:"remaining_due"`
	PaymentStatus string  `json:"payment_status"`
}

type ListPaymentsRequest struct {
	OrderID   *int64     `json:"order_id,omitempty"`
	InvoiceID *int64     `json:"invoice_id,omitempty"`
	DateFrom  *time.Time `json:"date_from,omitempty"`
	DateTo    *time.Time `json:"date_to,omitempty"`
	Limit     int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset    int        `json:"offset" validate:"gte=0"`
}
