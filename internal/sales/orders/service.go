package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meridian-oms/meridian-oms/internal/billing/money"
	"github.com/meridian-oms/meridian-oms/internal/listing"
	"github.com/meridian-oms/meridian-oms/internal/masterdata/products"
	"github.com/meridian-oms/meridian-oms/internal/sales/customers"
	"github.com/meridian-oms/meridian-oms/internal/sales/shared"
)

var ErrInactiveProduct = errors.New("product is not available for ordering")

// CustomerDirectory is the slice of the customers repository the order
// service needs.
type CustomerDirectory interface {
	Get(ctx context.Context, id int64) (*customers.Customer, error)
}

// ProductCatalog resolves unit prices at order time.
type ProductCatalog interface {
	Get(ctx context.Context, id int64) (*products.Product, error)
}

type Service struct {
	repo    Repository
	custDir CustomerDirectory
	catalog ProductCatalog
}

func NewService(repo Repository, custDir CustomerDirectory, catalog ProductCatalog) *Service {
	return &Service{repo: repo, custDir: custDir, catalog: catalog}
}

func (s *Service) Create(ctx context.Context, actorID int64, req CreateOrderRequest) (*Order, error) {
	if _, err := s.custDir.Get(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("resolve customer: %w", err)
	}
	method, err := money.ParseMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	lines := make([]OrderLine, 0, len(req.Lines))
	var total float64
	for _, lr := range req.Lines {
		product, err := s.catalog.Get(ctx, lr.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %d: %w", lr.ProductID, err)
		}
		if !product.IsActive {
			return nil, ErrInactiveProduct
		}
		lineTotal := money.Round2(product.UnitPrice * lr.Quantity)
		lines = append(lines, OrderLine{
			ProductID:   lr.ProductID,
			Description: lr.Description,
			Quantity:    lr.Quantity,
			UnitPrice:   product.UnitPrice,
			LineTotal:   lineTotal,
		})
		total += lineTotal
	}
	total = money.Round2(total)

	var created *Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, txRepo Repository) error {
		number, err := txRepo.GenerateNumber(ctx, req.OrderDate)
		if err != nil {
			return fmt.Errorf("generate order number: %w", err)
		}
		id, err := txRepo.Create(ctx, Order{
			Number:        number,
			CustomerID:    req.CustomerID,
			OrderDate:     req.OrderDate,
			Status:        shared.OrderPending,
			PaymentMethod: method,
			TotalAmount:   total,
			AmountPaid:    0,
			PaymentStatus: money.StatusPending,
			Notes:         req.Notes,
			CreatedBy:     actorID,
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for i := range lines {
			lines[i].OrderID = id
			if _, err := txRepo.InsertLine(ctx, lines[i]); err != nil {
				return fmt.Errorf("insert order line: %w", err)
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

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]OrderWithDetails, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	return sortResults(items, req.SortBy, req.SortDesc), total, nil
}

// sortResults re-sorts a page in memory for sort keys the SQL layer does not
// order by. Missing values sort last in both directions.
func sortResults(items []OrderWithDetails, sortBy string, desc bool) []OrderWithDetails {
	var cmp func(a, b OrderWithDetails) int
	var missing func(OrderWithDetails) bool

	switch strings.ToLower(sortBy) {
	case "number":
		cmp = func(a, b OrderWithDetails) int { return listing.CompareFold(a.Number, b.Number) }
		missing = func(o OrderWithDetails) bool { return o.Number == "" }
	case "customer_name":
		cmp = func(a, b OrderWithDetails) int { return listing.CompareFold(a.CustomerName, b.CustomerName) }
		missing = func(o OrderWithDetails) bool { return o.CustomerName == "" }
	case "total":
		cmp = func(a, b OrderWithDetails) int {
			switch {
			case a.TotalAmount < b.TotalAmount:
				return -1
			case a.TotalAmount > b.TotalAmount:
				return 1
			}
			return 0
		}
		missing = func(o OrderWithDetails) bool { return false }
	case "order_date":
		cmp = func(a, b OrderWithDetails) int { return a.OrderDate.Compare(b.OrderDate) }
		missing = func(o OrderWithDetails) bool { return o.OrderDate.IsZero() }
	default:
		return items
	}
	return listing.SortBy(items, listing.Directional(cmp, missing, desc))
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, next string) (*Order, error) {
	target, err := shared.ParseOrderStatus(next)
	if err != nil {
		return nil, err
	}
	var updated *Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, txRepo Repository) error {
		order, err := txRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := shared.ValidateOrderTransition(order.Status, target); err != nil {
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

func (s *Service) Cancel(ctx context.Context, id int64) (*Order, error) {
	return s.UpdateStatus(ctx, id, string(shared.OrderCancelled))
}

// Quote returns the amount to charge now under the given method without
// touching the order.
func (s *Service) Quote(ctx context.Context, id int64, method string) (*PaymentQuote, error) {
	m, err := money.ParseMethod(method)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	remaining := order.RemainingDue()
	amount, err := money.AmountFor(m, remaining)
	if err != nil {
		return nil, err
	}
	return &PaymentQuote{
		Method:       string(m),
		AmountToPay:  amount,
		RemainingDue: money.Round2(remaining - amount),
	}, nil
}
