package customorders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-oms/meridian-oms/internal/inventory"
	"github.com/meridian-oms/meridian-oms/internal/sales/customers"
	"github.com/meridian-oms/meridian-oms/internal/sales/shared"
)

type storedInvoice struct {
	ID    int64
	Draft InvoiceDraft
}

// memoryRepo mimics transactional semantics: WithTx snapshots all state and
// restores it when fn fails, so rollback behavior is observable in tests.
type memoryRepo struct {
	orders    map[int64]*CustomOrder
	materials map[int64]*inventory.Material
	invoices  []storedInvoice
	nextID    int64
	nextInvID int64

	failDecrementFor int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:    make(map[int64]*CustomOrder),
		materials: make(map[int64]*inventory.Material),
	}
}

func (m *memoryRepo) snapshot() *memoryRepo {
	cp := newMemoryRepo()
	cp.nextID, cp.nextInvID = m.nextID, m.nextInvID
	for id, o := range m.orders {
		oc := *o
		oc.Requirements = append([]MaterialRequirement(nil), o.Requirements...)
		cp.orders[id] = &oc
	}
	for id, mat := range m.materials {
		mc := *mat
		cp.materials[id] = &mc
	}
	cp.invoices = append([]storedInvoice(nil), m.invoices...)
	return cp
}

func (m *memoryRepo) restore(snap *memoryRepo) {
	m.orders, m.materials, m.invoices = snap.orders, snap.materials, snap.invoices
	m.nextID, m.nextInvID = snap.nextID, snap.nextInvID
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snap := m.snapshot()
	if err := fn(ctx, m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*CustomOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Requirements = append([]MaterialRequirement(nil), o.Requirements...)
	return &cp, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, id int64) (*CustomOrder, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) List(_ context.Context, req ListCustomOrdersRequest) ([]CustomOrderWithDetails, int, error) {
	var out []CustomOrderWithDetails
	for _, o := range m.orders {
		if req.Status != nil && o.Status != *req.Status {
			continue
		}
		out = append(out, CustomOrderWithDetails{CustomOrder: *o})
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, o CustomOrder) (int64, error) {
	m.nextID++
	o.ID = m.nextID
	m.orders[o.ID] = &o
	return o.ID, nil
}

func (m *memoryRepo) InsertRequirement(_ context.Context, r MaterialRequirement) (int64, error) {
	o, ok := m.orders[r.CustomOrderID]
	if !ok {
		return 0, ErrNotFound
	}
	r.ID = int64(len(o.Requirements) + 1)
	o.Requirements = append(o.Requirements, r)
	return r.ID, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id int64, status shared.CustomOrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *memoryRepo) SetInvoice(_ context.Context, id, invoiceID int64) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.InvoiceID = &invoiceID
	return nil
}

func (m *memoryRepo) GenerateNumber(_ context.Context, date time.Time) (string, error) {
	return fmt.Sprintf("CO-%s-%04d", date.Format("20060102"), m.nextID+1), nil
}

func (m *memoryRepo) MaterialForUpdate(_ context.Context, id int64) (*inventory.Material, error) {
	mat, ok := m.materials[id]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	cp := *mat
	return &cp, nil
}

func (m *memoryRepo) DecrementStock(_ context.Context, materialID int64, qty float64) error {
	if m.failDecrementFor == materialID {
		return inventory.ErrInsufficientStock
	}
	mat, ok := m.materials[materialID]
	if !ok {
		return inventory.ErrNotFound
	}
	if mat.AvailableStock-qty < 0 {
		return inventory.ErrInsufficientStock
	}
	mat.AvailableStock -= qty
	return nil
}

func (m *memoryRepo) InsertInvoice(_ context.Context, draft InvoiceDraft) (int64, string, error) {
	m.nextInvID++
	m.invoices = append(m.invoices, storedInvoice{ID: m.nextInvID, Draft: draft})
	return m.nextInvID, fmt.Sprintf("INV-%04d", m.nextInvID), nil
}

type stubDirectory struct{ known map[int64]bool }

func (s stubDirectory) Get(_ context.Context, id int64) (*customers.Customer, error) {
	if !s.known[id] {
		return nil, customers.ErrNotFound
	}
	return &customers.Customer{ID: id}, nil
}

func newTestService(repo *memoryRepo) *Service {
	repo.materials[1] = &inventory.Material{ID: 1, Name: "oak board", UnitPrice: 40.00, AvailableStock: 10}
	repo.materials[2] = &inventory.Material{ID: 2, Name: "brass hinge", UnitPrice: 2.50, AvailableStock: 100}
	svc := NewService(repo, stubDirectory{known: map[int64]bool{7: true}})
	svc.now = func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func createRequest(t *testing.T, svc *Service, materials []MaterialRequirementReq) *CustomOrder {
	t.Helper()
	order, err := svc.Create(context.Background(), 3, CreateCustomOrderRequest{
		CustomerID:  7,
		Category:    "furniture",
		Description: "walnut sideboard, two doors",
		Quantity:    1,
		WantDate:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Materials:   materials,
	})
	require.NoError(t, err)
	return order
}

func TestCreateCustomOrder(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	order := createRequest(t, svc, []MaterialRequirementReq{
		{MaterialID: 1, Quantity: 4},
		{MaterialID: 2, Quantity: 8},
	})

	require.Equal(t, shared.CustomOrderPending, order.Status)
	require.Equal(t, "CO-20260201-0001", order.Number)
	require.Len(t, order.Requirements, 2)
	require.Nil(t, order.InvoiceID)
}

func TestCreateRejectsUnknownCustomer(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	_, err := svc.Create(context.Background(), 3, CreateCustomOrderRequest{
		CustomerID:  99,
		Category:    "furniture",
		Description: "x",
		Quantity:    1,
		WantDate:    time.Now(),
		Materials:   []MaterialRequirementReq{{MaterialID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, customers.ErrNotFound)
}

func TestStartProductionIssuesInvoiceAndConsumesStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	order := createRequest(t, svc, []MaterialRequirementReq{
		{MaterialID: 1, Quantity: 4},
		{MaterialID: 2, Quantity: 8},
	})

	updated, err := svc.StartProduction(context.Background(), order.ID, StartProductionRequest{ServiceCharge: 50.00})
	require.NoError(t, err)
	require.Equal(t, shared.CustomOrderInProgress, updated.Status)
	require.NotNil(t, updated.InvoiceID)

	require.Len(t, repo.invoices, 1)
	draft := repo.invoices[0].Draft
	// 4 * 40.00 + 8 * 2.50 + 50.00
	require.InDelta(t, 230.00, draft.TotalAmount, 1e-9)
	require.InDelta(t, 50.00, draft.ServiceCharge, 1e-9)
	require.Len(t, draft.Lines, 2)
	require.Equal(t, "oak board", draft.Lines[0].MaterialName)

	require.InDelta(t, 6, repo.materials[1].AvailableStock, 1e-9)
	require.InDelta(t, 92, repo.materials[2].AvailableStock, 1e-9)
}

func TestStartProductionRejectsInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	order := createRequest(t, svc, []MaterialRequirementReq{
		{MaterialID: 1, Quantity: 11},
	})

	_, err := svc.StartProduction(context.Background(), order.ID, StartProductionRequest{})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	after, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, shared.CustomOrderPending, after.Status)
	require.Nil(t, after.InvoiceID)
	require.Empty(t, repo.invoices)
	require.InDelta(t, 10, repo.materials[1].AvailableStock, 1e-9)
}

func TestStartProductionRollsBackOnLateFailure(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	order := createRequest(t, svc, []MaterialRequirementReq{
		{MaterialID: 1, Quantity: 4},
		{MaterialID: 2, Quantity: 8},
	})

	// Second decrement fails after the invoice insert and the first
	// decrement already ran. Everything must roll back.
	repo.failDecrementFor = 2

	_, err := svc.StartProduction(context.Background(), order.ID, StartProductionRequest{ServiceCharge: 50.00})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	after, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, shared.CustomOrderPending, after.Status)
	require.Nil(t, after.InvoiceID)
	require.Empty(t, repo.invoices)
	require.InDelta(t, 10, repo.materials[1].AvailableStock, 1e-9)
	require.InDelta(t, 100, repo.materials[2].AvailableStock, 1e-9)
}

func TestStartProductionTwiceRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	order := createRequest(t, svc, []MaterialRequirementReq{
		{MaterialID: 1, Quantity: 1},
	})

	_, err := svc.StartProduction(context.Background(), order.ID, StartProductionRequest{})
	require.NoError(t, err)

	_, err = svc.StartProduction(context.Background(), order.ID, StartProductionRequest{})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	// Stock consumed exactly once.
	require.InDelta(t, 9, repo.materials[1].AvailableStock, 1e-9)
	require.Len(t, repo.invoices, 1)
}

func TestLifecycleAfterProduction(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	order := createRequest(t, svc, []MaterialRequirementReq{{MaterialID: 1, Quantity: 1}})

	_, err := svc.StartProduction(context.Background(), order.ID, StartProductionRequest{})
	require.NoError(t, err)

	done, err := svc.UpdateStatus(context.Background(), order.ID, "completed")
	require.NoError(t, err)
	require.Equal(t, shared.CustomOrderCompleted, done.Status)

	_, err = svc.UpdateStatus(context.Background(), order.ID, "in_progress")
	require.ErrorIs(t, err, ErrProductionOnly)
	_, err = svc.Cancel(context.Background(), order.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestUpdateStatusCannotEnterProduction(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	order := createRequest(t, svc, []MaterialRequirementReq{{MaterialID: 1, Quantity: 4}})

	// The bare status endpoint must not reach in_progress: that move
	// consumes stock and issues an invoice, so it belongs to
	// StartProduction alone.
	_, err := svc.UpdateStatus(context.Background(), order.ID, "in_progress")
	require.ErrorIs(t, err, ErrProductionOnly)

	after, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, shared.CustomOrderPending, after.Status)
	require.Nil(t, after.InvoiceID)
	require.Empty(t, repo.invoices)
	require.InDelta(t, 10, repo.materials[1].AvailableStock, 1e-9)
}

func TestForceStatusBypassesLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	order := createRequest(t, svc, []MaterialRequirementReq{{MaterialID: 1, Quantity: 1}})

	done, err := svc.ForceStatus(context.Background(), order.ID, "completed")
	require.NoError(t, err)
	require.Equal(t, shared.CustomOrderCompleted, done.Status)

	back, err := svc.ForceStatus(context.Background(), order.ID, "pending")
	require.NoError(t, err)
	require.Equal(t, shared.CustomOrderPending, back.Status)
}
