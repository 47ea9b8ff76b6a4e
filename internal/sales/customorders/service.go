package customorders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-oms/meridian-oms/internal/billing/money"
	"github.com/meridian-oms/meridian-oms/internal/inventory"
	"github.com/meridian-oms/meridian-oms/internal/sales/customers"
	"github.com/meridian-oms/meridian-oms/internal/sales/shared"
)

var (
	ErrNoRequirements = errors.New("custom order has no material requirements")
	ErrInvalidQty     = errors.New("material quantity must be positive")
	ErrProductionOnly = errors.New("in_progress is entered by starting production")
)

const defaultDueInDays = 14

// CustomerDirectory is the slice of the customers repository this service needs.
type CustomerDirectory interface {
	Get(ctx context.Context, id int64) (*customers.Customer, error)
}

type Service struct {
	repo    Repository
	custDir CustomerDirectory
	now     func() time.Time
}

func NewService(repo Repository, custDir CustomerDirectory) *Service {
	return &Service{repo: repo, custDir: custDir, now: time.Now}
}

func (s *Service) Create(ctx context.Context, actorID int64, req CreateCustomOrderRequest) (*CustomOrder, error) {
	if _, err := s.custDir.Get(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("resolve customer: %w", err)
	}
	for _, m := range req.Materials {
		if m.Quantity <= 0 {
			return nil, ErrInvalidQty
		}
	}

	var created *CustomOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, txRepo Repository) error {
		number, err := txRepo.GenerateNumber(ctx, s.now())
		if err != nil {
			return fmt.Errorf("generate request number: %w", err)
		}
		id, err := txRepo.Create(ctx, CustomOrder{
			Number:      number,
			CustomerID:  req.CustomerID,
			Category:    req.Category,
			Description: req.Description,
			Quantity:    req.Quantity,
			WantDate:    req.WantDate,
			Notes:       req.Notes,
			DesignFiles: req.DesignFiles,
			Status:      shared.CustomOrderPending,
			CreatedBy:   actorID,
		})
		if err != nil {
			return fmt.Errorf("insert custom order: %w", err)
		}
		for _, m := range req.Materials {
			if _, err := txRepo.InsertRequirement(ctx, MaterialRequirement{
				CustomOrderID: id,
				MaterialID:    m.MaterialID,
				Quantity:      m.Quantity,
			}); err != nil {
				return fmt.Errorf("insert material requirement: %w", err)
			}
		}
		created, err = txRepo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*CustomOrder, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListCustomOrdersRequest) ([]CustomOrderWithDetails, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// StartProduction moves a pending request to in_progress. The stock check,
// invoice creation, stock decrement and status update run in one transaction;
// any failure rolls the whole move back.
func (s *Service) StartProduction(ctx context.Context, id int64, req StartProductionRequest) (*CustomOrder, error) {
	dueInDays := req.DueInDays
	if dueInDays <= 0 {
		dueInDays = defaultDueInDays
	}

	var updated *CustomOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, txRepo Repository) error {
		order, err := txRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := shared.ValidateCustomOrderTransition(order.Status, shared.CustomOrderInProgress); err != nil {
			return err
		}
		if len(order.Requirements) == 0 {
			return ErrNoRequirements
		}

		lines := make([]InvoiceLineDraft, 0, len(order.Requirements))
		var materialTotal float64
		for _, need := range order.Requirements {
			if need.Quantity <= 0 {
				return ErrInvalidQty
			}
			material, err := txRepo.MaterialForUpdate(ctx, need.MaterialID)
			if err != nil {
				return fmt.Errorf("resolve material %d: %w", need.MaterialID, err)
			}
			if material.AvailableStock < need.Quantity {
				return inventory.ErrInsufficientStock
			}
			lineTotal := money.Round2(material.UnitPrice * need.Quantity)
			lines = append(lines, InvoiceLineDraft{
				MaterialID:   material.ID,
				MaterialName: material.Name,
				Quantity:     need.Quantity,
				UnitPrice:    material.UnitPrice,
				LineTotal:    lineTotal,
			})
			materialTotal += lineTotal
		}

		issuedAt := s.now()
		invoiceID, _, err := txRepo.InsertInvoice(ctx, InvoiceDraft{
			CustomOrderID: order.ID,
			CustomerID:    order.CustomerID,
			ServiceCharge: money.Round2(req.ServiceCharge),
			TotalAmount:   money.Round2(materialTotal + req.ServiceCharge),
			IssuedAt:      issuedAt,
			DueDate:       issuedAt.AddDate(0, 0, dueInDays),
			Lines:         lines,
		})
		if err != nil {
			return fmt.Errorf("issue invoice: %w", err)
		}

		for _, need := range order.Requirements {
			if err := txRepo.DecrementStock(ctx, need.MaterialID, need.Quantity); err != nil {
				return fmt.Errorf("consume material %d: %w", need.MaterialID, err)
			}
		}

		if err := txRepo.SetInvoice(ctx, order.ID, invoiceID); err != nil {
			return err
		}
		if err := txRepo.UpdateStatus(ctx, order.ID, shared.CustomOrderInProgress); err != nil {
			return err
		}
		updated, err = txRepo.Get(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus performs validated moves that carry no side effects. The
// in_progress target is refused here because entering production consumes
// stock and issues an invoice; that move belongs to StartProduction.
func (s *Service) UpdateStatus(ctx context.Context, id int64, next string) (*CustomOrder, error) {
	target, err := shared.ParseCustomOrderStatus(next)
	if err != nil {
		return nil, err
	}
	if target == shared.CustomOrderInProgress {
		return nil, ErrProductionOnly
	}
	var updated *CustomOrder
	err = s.repo.WithTx(ctx, func(ctx context.Context, txRepo Repository) error {
		order, err := txRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := shared.ValidateCustomOrderTransition(order.Status, target); err != nil {
			return err
		}
		if err := txRepo.UpdateStatus(ctx, id, target); err != nil {
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

func (s *Service) Cancel(ctx context.Context, id int64) (*CustomOrder, error) {
	return s.UpdateStatus(ctx, id, string(shared.CustomOrderCancelled))
}

// ForceStatus skips lifecycle validation. The handler restricts it to admins.
func (s *Service) ForceStatus(ctx context.Context, id int64, next string) (*CustomOrder, error) {
	target, err := shared.ParseCustomOrderStatus(next)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, target); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}
