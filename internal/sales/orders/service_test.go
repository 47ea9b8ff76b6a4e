package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-oms/meridian-oms/internal/billing/money"
	"github.com/meridian-oms/meridian-oms/internal/masterdata/products"
	"github.com/meridian-oms/meridian-oms/internal/sales/customers"
	"github.com/meridian-oms/meridian-oms/internal/sales/shared"
)

type memoryRepo struct {
	orders map[int64]*Order
	names  map[int64]string
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[int64]*Order), names: make(map[int64]string)}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) List(_ context.Context, req ListOrdersRequest) ([]OrderWithDetails, int, error) {
	var out []OrderWithDetails
	for _, o := range m.orders {
		if req.Status != nil && o.Status != *req.Status {
			continue
		}
		out = append(out, OrderWithDetails{Order: *o, CustomerName: m.names[o.CustomerID]})
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, o Order) (int64, error) {
	m.nextID++
	o.ID = m.nextID
	m.orders[o.ID] = &o
	return o.ID, nil
}

func (m *memoryRepo) InsertLine(_ context.Context, line OrderLine) (int64, error) {
	o, ok := m.orders[line.OrderID]
	if !ok {
		return 0, ErrNotFound
	}
	line.ID = int64(len(o.Lines) + 1)
	o.Lines = append(o.Lines, line)
	return line.ID, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id int64, status shared.OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *memoryRepo) GenerateNumber(_ context.Context, date time.Time) (string, error) {
	return fmt.Sprintf("ORD-%s-%04d", date.Format("20060102"), m.nextID+1), nil
}

type stubDirectory struct{ known map[int64]bool }

func (s stubDirectory) Get(_ context.Context, id int64) (*customers.Customer, error) {
	if !s.known[id] {
		return nil, customers.ErrNotFound
	}
	return &customers.Customer{ID: id, Name: fmt.Sprintf("Customer %d", id)}, nil
}

type stubCatalog struct{ items map[int64]products.Product }

func (s stubCatalog) Get(_ context.Context, id int64) (*products.Product, error) {
	p, ok := s.items[id]
	if !ok {
		return nil, products.ErrNotFound
	}
	return &p, nil
}

func newTestService(repo *memoryRepo) *Service {
	dir := stubDirectory{known: map[int64]bool{7: true}}
	catalog := stubCatalog{items: map[int64]products.Product{
		1: {ID: 1, UnitPrice: 250.00, IsActive: true},
		2: {ID: 2, UnitPrice: 99.99, IsActive: true},
		3: {ID: 3, UnitPrice: 10.00, IsActive: false},
	}}
	return NewService(repo, dir, catalog)
}

func createOrder(t *testing.T, svc *Service, method string) *Order {
	t.Helper()
	order, err := svc.Create(context.Background(), 1, CreateOrderRequest{
		CustomerID:    7,
		OrderDate:     time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		PaymentMethod: method,
		Lines: []CreateOrderLineReq{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)
	return order
}

func TestCreateComputesTotals(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	order := createOrder(t, svc, "full")

	require.Equal(t, shared.OrderPending, order.Status)
	require.Equal(t, money.StatusPending, order.PaymentStatus)
	require.InDelta(t, 599.99, order.TotalAmount, 1e-9)
	require.Len(t, order.Lines, 2)
	require.Equal(t, "ORD-20260115-0001", order.Number)
}

func TestCreateRejectsUnknownCustomer(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	_, err := svc.Create(context.Background(), 1, CreateOrderRequest{
		CustomerID:    99,
		OrderDate:     time.Now(),
		PaymentMethod: "full",
		Lines:         []CreateOrderLineReq{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, customers.ErrNotFound)
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	_, err := svc.Create(context.Background(), 1, CreateOrderRequest{
		CustomerID:    7,
		OrderDate:     time.Now(),
		PaymentMethod: "full",
		Lines:         []CreateOrderLineReq{{ProductID: 3, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrInactiveProduct)
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	order := createOrder(t, svc, "full")

	updated, err := svc.UpdateStatus(context.Background(), order.ID, "in_progress")
	require.NoError(t, err)
	require.Equal(t, shared.OrderInProgress, updated.Status)

	updated, err = svc.UpdateStatus(context.Background(), order.ID, "completed")
	require.NoError(t, err)
	require.Equal(t, shared.OrderCompleted, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), order.ID, "pending")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestCancelOnlyBeforeTerminal(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	order := createOrder(t, svc, "full")

	cancelled, err := svc.Cancel(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, shared.OrderCancelled, cancelled.Status)

	_, err = svc.UpdateStatus(context.Background(), order.ID, "in_progress")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestRemainingDueRounds(t *testing.T) {
	o := Order{TotalAmount: 100.00, AmountPaid: 33.33}
	require.InDelta(t, 66.67, o.RemainingDue(), 1e-9)
}

func TestQuoteAdvanceAndFull(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	order := createOrder(t, svc, "advance")
	repo.orders[order.ID].TotalAmount = 1000.00

	quote, err := svc.Quote(context.Background(), order.ID, "advance")
	require.NoError(t, err)
	require.InDelta(t, 300.00, quote.AmountToPay, 1e-9)
	require.InDelta(t, 700.00, quote.RemainingDue, 1e-9)

	quote, err = svc.Quote(context.Background(), order.ID, "full")
	require.NoError(t, err)
	require.InDelta(t, 1000.00, quote.AmountToPay, 1e-9)
	require.Zero(t, quote.RemainingDue)

	_, err = svc.Quote(context.Background(), order.ID, "installments")
	require.ErrorIs(t, err, money.ErrUnknownMethod)
}

func TestListSortsByCustomerNameMissingLast(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	repo.names[1] = "beta"
	repo.names[2] = "Alpha"
	for i, cust := range []int64{1, 2, 3} {
		_, err := repo.Create(context.Background(), Order{
			Number:     fmt.Sprintf("ORD-%d", i+1),
			CustomerID: cust,
			Status:     shared.OrderPending,
		})
		require.NoError(t, err)
	}

	items, total, err := svc.List(context.Background(), ListOrdersRequest{SortBy: "customer_name"})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, []string{"Alpha", "beta", ""}, customerNames(items))

	items, _, err = svc.List(context.Background(), ListOrdersRequest{SortBy: "customer_name", SortDesc: true})
	require.NoError(t, err)
	require.Equal(t, []string{"beta", "Alpha", ""}, customerNames(items))
}

func customerNames(items []OrderWithDetails) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.CustomerName
	}
	return out
}

func TestListFiltersByStatus(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	for _, st := range []shared.OrderStatus{shared.OrderPending, shared.OrderCompleted, shared.OrderPending} {
		_, err := repo.Create(context.Background(), Order{Status: st})
		require.NoError(t, err)
	}

	status := shared.OrderPending
	items, total, err := svc.List(context.Background(), ListOrdersRequest{Status: &status})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	for _, item := range items {
		require.Equal(t, shared.OrderPending, item.Status)
	}
}

func TestGetUnknownOrder(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	_, err := svc.Get(context.Background(), 42)
	require.True(t, errors.Is(err, ErrNotFound))
}
