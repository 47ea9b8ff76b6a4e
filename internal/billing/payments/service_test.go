package payments

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-oms/meridian-oms/internal/billing/money"
	"github.com/meridian-oms/meridian-oms/internal/observability"
	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// memoryRepo mimics transactional semantics so rollback on a failed
// submission is observable, including release of the idempotency key.
type memoryRepo struct {
	orders   map[int64]*Target
	invoices map[int64]*Target
	payments []Payment
	keys     map[string]bool
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:   make(map[int64]*Target),
		invoices: make(map[int64]*Target),
		keys:     make(map[string]bool),
	}
}

func (m *memoryRepo) snapshot() *memoryRepo {
	cp := newMemoryRepo()
	cp.nextID = m.nextID
	for id, t := range m.orders {
		tc := *t
		cp.orders[id] = &tc
	}
	for id, t := range m.invoices {
		tc := *t
		cp.invoices[id] = &tc
	}
	cp.payments = append([]Payment(nil), m.payments...)
	for k := range m.keys {
		cp.keys[k] = true
	}
	return cp
}

func (m *memoryRepo) restore(snap *memoryRepo) {
	m.orders, m.invoices, m.payments, m.keys, m.nextID =
		snap.orders, snap.invoices, snap.payments, snap.keys, snap.nextID
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snap := m.snapshot()
	if err := fn(ctx, m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Payment, error) {
	for _, p := range m.payments {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) List(_ context.Context, req ListPaymentsRequest) ([]Payment, int, error) {
	var out []Payment
	for _, p := range m.payments {
		if req.OrderID != nil && (p.OrderID == nil || *p.OrderID != *req.OrderID) {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) InsertPayment(_ context.Context, p Payment) (int64, error) {
	m.nextID++
	p.ID = m.nextID
	m.payments = append(m.payments, p)
	return p.ID, nil
}

func (m *memoryRepo) ClaimKey(_ context.Context, key string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryRepo) OrderForUpdate(_ context.Context, id int64) (*Target, error) {
	t, ok := m.orders[id]
	if !ok {
		return nil, ErrTargetNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryRepo) InvoiceForUpdate(_ context.Context, id int64) (*Target, error) {
	t, ok := m.invoices[id]
	if !ok {
		return nil, ErrTargetNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryRepo) UpdateOrderPayment(_ context.Context, id int64, paid float64, status money.PaymentStatus) error {
	t, ok := m.orders[id]
	if !ok {
		return ErrTargetNotFound
	}
	t.PaidAmount = paid
	_ = status
	return nil
}

func (m *memoryRepo) UpdateInvoicePayment(_ context.Context, id int64, paid float64, status money.PaymentStatus) error {
	t, ok := m.invoices[id]
	if !ok {
		return ErrTargetNotFound
	}
	t.PaidAmount = paid
	_ = status
	return nil
}

type captureEnqueuer struct{ ids []int64 }

func (c *captureEnqueuer) EnqueueReceipt(_ context.Context, paymentID int64) error {
	c.ids = append(c.ids, paymentID)
	return nil
}

func newTestService(repo *memoryRepo) (*Service, *captureEnqueuer) {
	enq := &captureEnqueuer{}
	svc := NewService(repo, observability.NewMetrics(), enq, slog.Default())
	return svc, enq
}

func ptr(v int64) *int64 { return &v }

func TestSubmitOrderPayment(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[10] = &Target{ID: 10, State: "pending", TotalAmount: 1000}
	svc, enq := newTestService(repo)

	receipt, err := svc.Submit(context.Background(), 5, "key-1", SubmitPaymentRequest{
		OrderID: ptr(10), Amount: 300, Method: "advance",
	})
	require.NoError(t, err)
	require.Equal(t, "partial", receipt.PaymentStatus)
	require.InDelta(t, 300, receipt.PaidAmount, 1e-9)
	require.InDelta(t, 700, receipt.RemainingDue, 1e-9)
	require.Equal(t, TargetOrder, receipt.Payment.TargetKind)
	require.NotEmpty(t, receipt.Payment.Number)
	require.Len(t, repo.payments, 1)
	require.Equal(t, []int64{receipt.Payment.ID}, enq.ids)
}

func TestSubmitSettlesInvoice(t *testing.T) {
	repo := newMemoryRepo()
	repo.invoices[4] = &Target{ID: 4, State: "approved", TotalAmount: 250, PaidAmount: 100}
	svc, _ := newTestService(repo)

	receipt, err := svc.Submit(context.Background(), 5, "", SubmitPaymentRequest{
		InvoiceID: ptr(4), Amount: 150,
	})
	require.NoError(t, err)
	require.Equal(t, "paid", receipt.PaymentStatus)
	require.Zero(t, receipt.RemainingDue)
	require.Equal(t, "manual", receipt.Payment.Method)
}

func TestDoubleSubmitSameKeyMutatesOnce(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[10] = &Target{ID: 10, State: "pending", TotalAmount: 1000}
	svc, _ := newTestService(repo)

	req := SubmitPaymentRequest{OrderID: ptr(10), Amount: 300}
	_, err := svc.Submit(context.Background(), 5, "dup-key", req)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), 5, "dup-key", req)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	require.InDelta(t, 300, repo.orders[10].PaidAmount, 1e-9)
	require.Len(t, repo.payments, 1)
}

func TestFailedSubmitReleasesKey(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[10] = &Target{ID: 10, State: "pending", TotalAmount: 1000}
	svc, _ := newTestService(repo)

	_, err := svc.Submit(context.Background(), 5, "retry-key", SubmitPaymentRequest{
		OrderID: ptr(10), Amount: 1000.01,
	})
	require.ErrorIs(t, err, money.ErrExceedsRemaining)
	require.Empty(t, repo.payments)
	require.Zero(t, repo.orders[10].PaidAmount)

	// The rolled-back key is reusable for the corrected retry.
	receipt, err := svc.Submit(context.Background(), 5, "retry-key", SubmitPaymentRequest{
		OrderID: ptr(10), Amount: 1000,
	})
	require.NoError(t, err)
	require.Equal(t, "paid", receipt.PaymentStatus)
}

func TestCancelledTargetRejected(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[10] = &Target{ID: 10, State: "cancelled", TotalAmount: 1000}
	repo.invoices[4] = &Target{ID: 4, State: "cancelled", TotalAmount: 250}
	svc, _ := newTestService(repo)

	_, err := svc.Submit(context.Background(), 5, "", SubmitPaymentRequest{OrderID: ptr(10), Amount: 100})
	require.ErrorIs(t, err, ErrTargetCancelled)
	_, err = svc.Submit(context.Background(), 5, "", SubmitPaymentRequest{InvoiceID: ptr(4), Amount: 100})
	require.ErrorIs(t, err, ErrTargetCancelled)
}

func TestFullyPaidTargetRejected(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[10] = &Target{ID: 10, State: "completed", TotalAmount: 500, PaidAmount: 500}
	svc, _ := newTestService(repo)

	_, err := svc.Submit(context.Background(), 5, "", SubmitPaymentRequest{OrderID: ptr(10), Amount: 0.01})
	require.ErrorIs(t, err, money.ErrExceedsRemaining)
}

func TestAmbiguousTargetRejected(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())

	_, err := svc.Submit(context.Background(), 5, "", SubmitPaymentRequest{Amount: 100})
	require.ErrorIs(t, err, ErrAmbiguousTarget)

	_, err = svc.Submit(context.Background(), 5, "", SubmitPaymentRequest{
		OrderID: ptr(1), InvoiceID: ptr(2), Amount: 100,
	})
	require.ErrorIs(t, err, ErrAmbiguousTarget)
}
