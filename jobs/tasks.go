package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-oms/meridian-oms/internal/billing/invoices"
	"github.com/meridian-oms/meridian-oms/internal/billing/payments"
	"github.com/meridian-oms/meridian-oms/internal/inventory"
	"github.com/meridian-oms/meridian-oms/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeReceipt generates a receipt for an accepted payment.
	TaskTypeReceipt = "payments:receipt"
	// TaskTypeOverdueScan flags invoices past their due date.
	TaskTypeOverdueScan = "invoices:overdue_scan"
	// TaskTypeLowStockAlert reports materials at or below reorder level.
	TaskTypeLowStockAlert = "inventory:lowstock_alert"
	// TaskTypeIdempotencyCleanup purges expired idempotency keys.
	TaskTypeIdempotencyCleanup = "shared:idempotency_cleanup"
)

// idempotencyRetention is how long processed payment keys are kept.
const idempotencyRetention = 48 * time.Hour

// ReceiptPayload identifies the payment a receipt is generated for.
type ReceiptPayload struct {
	PaymentID int64 `json:"payment_id"`
}

// NewReceiptTask constructs an Asynq task for receipt generation.
func NewReceiptTask(payload ReceiptPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReceipt, data), nil
}

// NewOverdueScanTask constructs the periodic overdue-invoice scan task.
func NewOverdueScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOverdueScan, nil)
}

// NewLowStockAlertTask constructs the periodic low-stock report task.
func NewLowStockAlertTask() *asynq.Task {
	return asynq.NewTask(TaskTypeLowStockAlert, nil)
}

// NewIdempotencyCleanupTask constructs the periodic key-purge task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil)
}

// NewReceiptHandler processes TaskTypeReceipt tasks. Receipt delivery is a
// log line until a document pipeline exists; the payment lookup keeps the
// task honest about the record existing.
func NewReceiptHandler(logger *slog.Logger, svc *payments.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReceiptPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		payment, err := svc.Get(ctx, payload.PaymentID)
		if err != nil {
			return err
		}
		logger.Info("receipt generated",
			slog.String("number", payment.Number),
			slog.String("target", string(payment.TargetKind)),
			slog.Float64("amount", payment.Amount))
		return nil
	}
}

// NewOverdueScanHandler processes TaskTypeOverdueScan tasks.
func NewOverdueScanHandler(logger *slog.Logger, svc *invoices.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		overdue, err := svc.ListOutstanding(ctx, time.Now())
		if err != nil {
			return err
		}
		for _, inv := range overdue {
			logger.Warn("invoice overdue",
				slog.String("number", inv.Number),
				slog.String("customer", inv.CustomerName),
				slog.Float64("remaining", inv.RemainingDue()),
				slog.Time("due_date", inv.DueDate))
		}
		logger.Info("overdue scan complete", slog.Int("count", len(overdue)))
		return nil
	}
}

// NewLowStockAlertHandler processes TaskTypeLowStockAlert tasks.
func NewLowStockAlertHandler(logger *slog.Logger, svc *inventory.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		materials, err := svc.LowStock(ctx)
		if err != nil {
			return err
		}
		for _, m := range materials {
			logger.Warn("material below reorder level",
				slog.String("name", m.Name),
				slog.Float64("available", m.AvailableStock),
				slog.Float64("reorder_level", m.ReorderLevel))
		}
		logger.Info("low-stock scan complete", slog.Int("count", len(materials)))
		return nil
	}
}

// NewIdempotencyCleanupHandler purges keys older than the retention window.
func NewIdempotencyCleanupHandler(logger *slog.Logger, store *shared.IdempotencyStore) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := store.Cleanup(ctx, idempotencyRetention); err != nil {
			return err
		}
		logger.Info("idempotency keys purged")
		return nil
	}
}
