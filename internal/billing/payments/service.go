package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-oms/meridian-oms/internal/billing/money"
	"github.com/meridian-oms/meridian-oms/internal/observability"
)

// ReceiptEnqueuer hands accepted payments to the background worker for
// receipt generation.
type ReceiptEnqueuer interface {
	EnqueueReceipt(ctx context.Context, paymentID int64) error
}

type Service struct {
	repo     Repository
	metrics  *observability.Metrics
	enqueuer ReceiptEnqueuer
	logger   *slog.Logger
}

func NewService(repo Repository, metrics *observability.Metrics, enqueuer ReceiptEnqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, metrics: metrics, enqueuer: enqueuer, logger: logger}
}

// Submit validates and applies a payment to its target. The paid-amount bump,
// status derivation, payment record and idempotency claim commit in one
// transaction; a replayed Idempotency-Key rolls the whole submission back.
func (s *Service) Submit(ctx context.Context, actorID int64, idempotencyKey string, req SubmitPaymentRequest) (*Receipt, error) {
	if (req.OrderID == nil) == (req.InvoiceID == nil) {
		return nil, ErrAmbiguousTarget
	}

	kind := TargetOrder
	if req.InvoiceID != nil {
		kind = TargetInvoice
	}
	method := req.Method
	if method == "" {
		method = "manual"
	}

	var receipt *Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, txRepo Repository) error {
		if idempotencyKey != "" {
			if err := txRepo.ClaimKey(ctx, idempotencyKey); err != nil {
				return err
			}
		}

		var target *Target
		var err error
		switch kind {
		case TargetOrder:
			target, err = txRepo.OrderForUpdate(ctx, *req.OrderID)
		default:
			target, err = txRepo.InvoiceForUpdate(ctx, *req.InvoiceID)
		}
		if err != nil {
			return err
		}
		if target.State == "cancelled" {
			return ErrTargetCancelled
		}

		remaining := money.Round2(target.TotalAmount - target.PaidAmount)
		if err := money.ValidatePayment(req.Amount, remaining); err != nil {
			return err
		}

		newPaid := money.Round2(target.PaidAmount + req.Amount)
		status := money.DerivePaymentStatus(target.TotalAmount, newPaid)
		switch kind {
		case TargetOrder:
			err = txRepo.UpdateOrderPayment(ctx, target.ID, newPaid, status)
		default:
			err = txRepo.UpdateInvoicePayment(ctx, target.ID, newPaid, status)
		}
		if err != nil {
			return err
		}

		payment := Payment{
			Number:     generateNumber(),
			TargetKind: kind,
			OrderID:    req.OrderID,
			InvoiceID:  req.InvoiceID,
			Amount:     money.Round2(req.Amount),
			Method:     method,
			ReceivedBy: actorID,
		}
		payment.ID, err = txRepo.InsertPayment(ctx, payment)
		if err != nil {
			return fmt.Errorf("insert payment record: %w", err)
		}

		receipt = &Receipt{
			Payment:       payment,
			PaidAmount:    newPaid,
			RemainingDue:  money.Round2(target.TotalAmount - newPaid),
			PaymentStatus: string(status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CountPayment(string(kind))
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueReceipt(ctx, receipt.Payment.ID); err != nil {
			// The payment is committed; receipt delivery retries elsewhere.
			s.logger.Error("enqueue receipt failed",
				slog.Int64("payment_id", receipt.Payment.ID), slog.Any("error", err))
		}
	}
	return receipt, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListPaymentsRequest) ([]Payment, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func generateNumber() string {
	return "PAY-" + strings.ToUpper(uuid.NewString()[:8])
}
