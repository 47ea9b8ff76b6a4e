package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	materials map[int64]*Material
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{materials: make(map[int64]*Material)}
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Material, error) {
	m, ok := r.materials[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *memoryRepo) List(ctx context.Context, req ListMaterialsRequest) ([]Material, int, error) {
	var out []Material
	for _, m := range r.materials {
		out = append(out, *m)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(ctx context.Context, m Material) (int64, error) {
	for _, existing := range r.materials {
		if existing.Name == m.Name {
			return 0, ErrDuplicateName
		}
	}
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	r.materials[m.ID] = &m
	return m.ID, nil
}

func (r *memoryRepo) UpdatePrice(ctx context.Context, id int64, unitPrice float64) error {
	m, ok := r.materials[id]
	if !ok {
		return ErrNotFound
	}
	m.UnitPrice = unitPrice
	return nil
}

func (r *memoryRepo) AdjustStock(ctx context.Context, id int64, delta float64, note string, actorID int64) error {
	m, ok := r.materials[id]
	if !ok {
		return ErrNotFound
	}
	if m.AvailableStock+delta < 0 {
		return ErrInsufficientStock
	}
	m.AvailableStock += delta
	return nil
}

func (r *memoryRepo) ListLowStock(ctx context.Context) ([]Material, error) {
	var out []Material
	for _, m := range r.materials {
		if m.AvailableStock <= m.ReorderLevel {
			out = append(out, *m)
		}
	}
	return out, nil
}

func seedMaterial(t *testing.T, svc *Service, name string, stock float64) *Material {
	t.Helper()
	m, err := svc.Create(context.Background(), CreateMaterialRequest{
		Name:           name,
		Unit:           "pcs",
		UnitPrice:      12.50,
		AvailableStock: stock,
		ReorderLevel:   5,
	})
	require.NoError(t, err)
	return m
}

func TestAdjustConsumesAndRestocks(t *testing.T) {
	svc := NewService(newMemoryRepo())
	m := seedMaterial(t, svc, "brass blanks", 10)

	updated, err := svc.Adjust(context.Background(), AdjustmentInput{MaterialID: m.ID, Quantity: -4})
	require.NoError(t, err)
	require.Equal(t, 6.0, updated.AvailableStock)

	updated, err = svc.Adjust(context.Background(), AdjustmentInput{MaterialID: m.ID, Quantity: 14})
	require.NoError(t, err)
	require.Equal(t, 20.0, updated.AvailableStock)
}

func TestAdjustRejectsOverConsumption(t *testing.T) {
	svc := NewService(newMemoryRepo())
	m := seedMaterial(t, svc, "ribbon", 3)

	_, err := svc.Adjust(context.Background(), AdjustmentInput{MaterialID: m.ID, Quantity: -5})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// Stock unchanged after the rejected movement.
	current, err := svc.Get(context.Background(), m.ID)
	require.NoError(t, err)
	require.Equal(t, 3.0, current.AvailableStock)
}

func TestCheckAvailability(t *testing.T) {
	svc := NewService(newMemoryRepo())
	m := seedMaterial(t, svc, "ceramic mugs", 3)

	require.NoError(t, svc.CheckAvailability(context.Background(), m.ID, 3))
	err := svc.CheckAvailability(context.Background(), m.ID, 5)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Error(t, svc.CheckAvailability(context.Background(), m.ID, 0))
}

func TestLowStockListing(t *testing.T) {
	svc := NewService(newMemoryRepo())
	seedMaterial(t, svc, "enamel paint", 2)
	seedMaterial(t, svc, "steel discs", 50)

	low, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "enamel paint", low[0].Name)
}
