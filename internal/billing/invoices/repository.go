package invoices

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
)

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetForUpdate(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]InvoiceWithDetails, int, error)
	// ListOutstanding returns unpaid, uncancelled invoices due on or before
	// the cutoff. Feeds the overdue scan job.
	ListOutstanding(ctx context.Context, cutoff time.Time) ([]InvoiceWithDetails, error)
	// SetApproval records the one-shot decision. Returns
	// ErrApprovalAlreadySet when a decision already exists.
	SetApproval(ctx context.Context, id int64, status ApprovalStatus) error
	UpdatePayment(ctx context.Context, id int64, paidAmount float64, status money.PaymentStatus) error
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

const invoiceColumns = `id, number, custom_order_id, customer_id, service_charge,
	total_amount, paid_amount, payment_status, approval_status, issued_at, due_date,
	created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	row := r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	inv.Lines, err = r.lines(ctx, id)
	return inv, err
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	row := r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	inv.Lines, err = r.lines(ctx, id)
	return inv, err
}

func (r *repository) lines(ctx context.Context, invoiceID int64) ([]InvoiceLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, invoice_id, material_id, material_name, quantity, unit_price, line_total
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InvoiceLine
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.MaterialID, &l.MaterialName, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]InvoiceWithDetails, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	argPos := 1

	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("i.customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.PaymentStatus != nil {
		conditions = append(conditions, fmt.Sprintf("i.payment_status = $%d", argPos))
		args = append(args, string(*req.PaymentStatus))
		argPos++
	}
	if req.ApprovalStatus != nil {
		conditions = append(conditions, fmt.Sprintf("i.approval_status = $%d", argPos))
		args = append(args, string(*req.ApprovalStatus))
		argPos++
	}
	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(i.number ILIKE $%d OR c.name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("i.issued_at >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("i.issued_at <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM invoices i JOIN customers c ON c.id = i.customer_id " + whereClause
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT i.id, i.number, i.custom_order_id, i.customer_id, i.service_charge,
			i.total_amount, i.paid_amount, i.payment_status, i.approval_status,
			i.issued_at, i.due_date, i.created_at, i.updated_at, c.name
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		%s
		ORDER BY i.issued_at DESC, i.id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := collectInvoices(rows)
	return out, total, err
}

func (r *repository) ListOutstanding(ctx context.Context, cutoff time.Time) ([]InvoiceWithDetails, error) {
	rows, err := r.q.Query(ctx, `
		SELECT i.id, i.number, i.custom_order_id, i.customer_id, i.service_charge,
			i.total_amount, i.paid_amount, i.payment_status, i.approval_status,
			i.issued_at, i.due_date, i.created_at, i.updated_at, c.name
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.due_date <= $1
			AND i.payment_status <> 'paid'
			AND i.approval_status <> 'cancelled'
		ORDER BY i.due_date, i.id
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func (r *repository) SetApproval(ctx context.Context, id int64, status ApprovalStatus) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE invoices SET approval_status = $1, updated_at = NOW()
		WHERE id = $2 AND approval_status = 'pending'
	`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM invoices WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrApprovalAlreadySet
	}
	return nil
}

func (r *repository) UpdatePayment(ctx context.Context, id int64, paidAmount float64, status money.PaymentStatus) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE invoices SET paid_amount = $1, payment_status = $2, updated_at = NOW() WHERE id = $3
	`, paidAmount, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectInvoices(rows pgx.Rows) ([]InvoiceWithDetails, error) {
	var out []InvoiceWithDetails
	for rows.Next() {
		var inv InvoiceWithDetails
		if err := rows.Scan(
			&inv.ID, &inv.Number, &inv.CustomOrderID, &inv.CustomerID, &inv.ServiceCharge,
			&inv.TotalAmount, &inv.PaidAmount, &inv.PaymentStatus, &inv.ApprovalStatus,
			&inv.IssuedAt, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt, &inv.CustomerName,
		); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.CustomOrderID, &inv.CustomerID, &inv.ServiceCharge,
		&inv.TotalAmount, &inv.PaidAmount, &inv.PaymentStatus, &inv.ApprovalStatus,
		&inv.IssuedAt, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}
