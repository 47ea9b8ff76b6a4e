package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-oms/meridian-oms/internal/billing/money"
	"github.com/meridian-oms/meridian-oms/internal/platform/db"
	"github.com/meridian-oms/meridian-oms/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error
	Get(ctx context.Context, id int64) (*Payment, error)
	List(ctx context.Context, req ListPaymentsRequest) ([]Payment, int, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	// ClaimKey reserves an idempotency key inside the current transaction.
	// Returns shared.ErrIdempotencyConflict when the key was already used.
	ClaimKey(ctx context.Context, key string) error

	// OrderForUpdate locks the order's payment state. State is the order's
	// fulfillment status.
	OrderForUpdate(ctx context.Context, id int64) (*Target, error)
	// InvoiceForUpdate locks the invoice's payment state. State is the
	// customer approval status.
	InvoiceForUpdate(ctx context.Context, id int64) (*Target, error)
	UpdateOrderPayment(ctx context.Context, id int64, paid float64, status money.PaymentStatus) error
	UpdateInvoicePayment(ctx context.Context, id int64, paid float64, status money.PaymentStatus) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	q    querier
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{q: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{q: tx})
	})
}

const paymentColumns = `id, number, target_kind, order_id, invoice_id, amount, method, received_by, created_at`

func (r *repository) Get(ctx context.Context, id int64) (*Payment, error) {
	var p Payment
	err := r.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id).Scan(
		&p.ID, &p.Number, &p.TargetKind, &p.OrderID, &p.InvoiceID, &p.Amount, &p.Method, &p.ReceivedBy, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, req ListPaymentsRequest) ([]Payment, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	argPos := 1

	if req.OrderID != nil {
		conditions = append(conditions, fmt.Sprintf("order_id = $%d", argPos))
		args = append(args, *req.OrderID)
		argPos++
	}
	if req.InvoiceID != nil {
		conditions = append(conditions, fmt.Sprintf("invoice_id = $%d", argPos))
		args = append(args, *req.InvoiceID)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM payments "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT "+paymentColumns+" FROM payments %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		whereClause, argPos, argPos+1,
	)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.Number, &p.TargetKind, &p.OrderID, &p.InvoiceID, &p.Amount, &p.Method, &p.ReceivedBy, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO payments (number, target_kind, order_id, invoice_id, amount, method, received_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id
	`, p.Number, string(p.TargetKind), p.OrderID, p.InvoiceID, p.Amount, p.Method, p.ReceivedBy).Scan(&id)
	return id, err
}

func (r *repository) ClaimKey(ctx context.Context, key string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, 'payments', $2)
	`, key, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

func (r *repository) OrderForUpdate(ctx context.Context, id int64) (*Target, error) {
	var t Target
	err := r.q.QueryRow(ctx, `
		SELECT id, status, total_amount, amount_paid FROM orders WHERE id = $1 FOR UPDATE
	`, id).Scan(&t.ID, &t.State, &t.TotalAmount, &t.PaidAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) InvoiceForUpdate(ctx context.Context, id int64) (*Target, error) {
	var t Target
	err := r.q.QueryRow(ctx, `
		SELECT id, approval_status, total_amount, paid_amount FROM invoices WHERE id = $1 FOR UPDATE
	`, id).Scan(&t.ID, &t.State, &t.TotalAmount, &t.PaidAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) UpdateOrderPayment(ctx context.Context, id int64, paid float64, status money.PaymentStatus) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET amount_paid = $1, payment_status = $2, updated_at = NOW() WHERE id = $3
	`, paid, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTargetNotFound
	}
	return nil
}

func (r *repository) UpdateInvoicePayment(ctx context.Context, id int64, paid float64, status money.PaymentStatus) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE invoices SET paid_amount = $1, payment_status = $2, updated_at = NOW() WHERE id = $3
	`, paid, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTargetNotFound
	}
	return nil
}
