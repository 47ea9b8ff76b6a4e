package invoices

import (
	"context"
	"errors"
	"time"

	"github.com/meridian-oms/meridian-oms/internal/billing/money"
)

// ErrFullyPaid rejects payments against a settled invoice.
var ErrFullyPaid = errors.New("invoice is fully paid")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]InvoiceWithDetails, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) ListOutstanding(ctx context.Context, cutoff time.Time) ([]InvoiceWithDetails, error) {
	return s.repo.ListOutstanding(ctx, cutoff)
}

// Approve records the customer's acceptance. The decision is one-shot.
func (s *Service) Approve(ctx context.Context, id int64) (*Invoice, error) {
	return s.decide(ctx, id, ApprovalApproved)
}

// CancelApproval records the customer's rejection. The decision is one-shot
// and makes the invoice terminal.
func (s *Service) CancelApproval(ctx context.Context, id int64) (*Invoice, error) {
	return s.decide(ctx, id, ApprovalCancelled)
}

func (s *Service) decide(ctx context.Context, id int64, status ApprovalStatus) (*Invoice, error) {
	if err := s.repo.SetApproval(ctx, id, status); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// ApplyPayment records a payment against the invoice balance. Cancelled and
// fully paid invoices reject further payments.
func (s *Service) ApplyPayment(ctx context.Context, id int64, amount float64) (*Invoice, error) {
	var updated *Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, txRepo Repository) error {
		inv, err := txRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.ApprovalStatus == ApprovalCancelled {
			return ErrCancelled
		}
		if inv.PaymentStatus == money.StatusPaid {
			return ErrFullyPaid
		}
		if err := money.ValidatePayment(amount, inv.RemainingDue()); err != nil {
			return err
		}
		newPaid := money.Round2(inv.PaidAmount + amount)
		status := money.DerivePaymentStatus(inv.TotalAmount, newPaid)
		if err := txRepo.UpdatePayment(ctx, id, newPaid, status); err != nil {
			return err
		}
		updated, err = txRepo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
