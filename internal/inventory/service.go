package inventory

import (
	"context"
	"errors"
	"fmt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateMaterialRequest) (*Material, error) {
	id, err := s.repo.Create(ctx, Material{
		Name:           req.Name,
		Unit:           req.Unit,
		UnitPrice:      req.UnitPrice,
		AvailableStock: req.AvailableStock,
		ReorderLevel:   req.ReorderLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("create material: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Material, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListMaterialsRequest) ([]Material, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// Adjust applies a manual stock movement. Consumption larger than the
// available stock is rejected.
func (s *Service) Adjust(ctx context.Context, input AdjustmentInput) (*Material, error) {
	if input.Quantity == 0 {
		return nil, errors.New("adjustment quantity must be non-zero")
	}
	if err := s.repo.AdjustStock(ctx, input.MaterialID, input.Quantity, input.Note, input.ActorID); err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}
	return s.repo.Get(ctx, input.MaterialID)
}

// CheckAvailability verifies that every requested quantity can be covered by
// current stock. It is advisory; the authoritative check runs inside the
// custom-order transaction.
func (s *Service) CheckAvailability(ctx context.Context, materialID int64, quantity float64) error {
	if quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	material, err := s.repo.Get(ctx, materialID)
	if err != nil {
		return err
	}
	if quantity > material.AvailableStock {
		return fmt.Errorf("%w: material %s has %.2f, requested %.2f", ErrInsufficientStock, material.Name, material.AvailableStock, quantity)
	}
	return nil
}

// LowStock lists materials at or below their reorder level.
func (s *Service) LowStock(ctx context.Context) ([]Material, error) {
	return s.repo.ListLowStock(ctx)
}

// UpdatePrice changes the unit price used for future invoices.
func (s *Service) UpdatePrice(ctx context.Context, id int64, unitPrice float64) (*Material, error) {
	if unitPrice < 0 {
		return nil, errors.New("unit price must not be negative")
	}
	if err := s.repo.UpdatePrice(ctx, id, unitPrice); err != nil {
		return nil, fmt.Errorf("update price: %w", err)
	}
	return s.repo.Get(ctx, id)
}
