// Package money holds the payment arithmetic shared by orders, invoices and
// payment submissions. Amounts are float64 with explicit two-digit rounding
// at every boundary that persists or compares money.
package money

import (
	"errors"
	"math"
	"strings"
)

// AdvanceRate is the fraction of the outstanding total payable up front.
const AdvanceRate = 0.30

// PaymentMethod selects how much of the outstanding total is charged now.
type PaymentMethod string

const (
	MethodFull    PaymentMethod = "full"
	MethodAdvance PaymentMethod = "advance"
)

// PaymentStatus is derived from total and paid amounts, never stored raw
// from client input.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
)

var (
	ErrNonPositiveAmount = errors.New("payment amount must be positive")
	ErrExceedsRemaining  = errors.New("payment cannot exceed total amount")
	ErrUnknownMethod     = errors.New("unknown payment method")
)

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AdvanceAmount computes the 30% advance due now on totalDue.
func AdvanceAmount(totalDue float64) float64 {
	return Round2(totalDue * AdvanceRate)
}

// RemainingAfterAdvance computes the balance left once the advance is paid.
func RemainingAfterAdvance(totalDue float64) float64 {
	return Round2(totalDue - AdvanceAmount(totalDue))
}

// AmountFor resolves the amount to charge now for the given method.
func AmountFor(method PaymentMethod, totalDue float64) (float64, error) {
	switch method {
	case MethodFull:
		return Round2(totalDue), nil
	case MethodAdvance:
		return AdvanceAmount(totalDue), nil
	default:
		return 0, ErrUnknownMethod
	}
}

// ValidatePayment rejects amounts outside (0, remaining]. Comparison happens
// on rounded values so a client-side 0.005 drift does not flip the verdict.
func ValidatePayment(amount, remaining float64) error {
	amount = Round2(amount)
	remaining = Round2(remaining)
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if amount > remaining {
		return ErrExceedsRemaining
	}
	return nil
}

// DerivePaymentStatus derives the canonical payment status from amounts.
func DerivePaymentStatus(total, paid float64) PaymentStatus {
	total = Round2(total)
	paid = Round2(paid)
	switch {
	case paid >= total && total >= 0:
		return StatusPaid
	case paid > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

// legacyStatuses maps the payment-status vocabularies the four portals used
// historically onto the canonical enumeration.
var legacyStatuses = map[string]PaymentStatus{
	"pending":        StatusPending,
	"partial":        StatusPartial,
	"partially_paid": StatusPartial,
	"paid":           StatusPaid,
	"completed":      StatusPaid,
}

// NormalizePaymentStatus maps a legacy status string to the canonical value.
func NormalizePaymentStatus(s string) (PaymentStatus, bool) {
	status, ok := legacyStatuses[strings.ToLower(strings.TrimSpace(s))]
	return status, ok
}

// ParseMethod validates a payment method string.
func ParseMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MethodFull:
		return MethodFull, nil
	case MethodAdvance:
		return MethodAdvance, nil
	default:
		return "", ErrUnknownMethod
	}
}
