package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-oms/meridian-oms/internal/platform/db"
	"github.com/meridian-oms/meridian-oms/internal/sales/shared"
)

var ErrNotFound = errors.New("order not found")

type Repository interface {
	// WithTx runs fn against a repository bound to a single transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error
	Get(ctx context.Context, id int64) (*Order, error)
	// GetForUpdate locks the order row until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]OrderWithDetails, int, error)
	Create(ctx context.Context, o Order) (int64, error)
	InsertLine(ctx context.Context, line OrderLine) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OrderStatus) error
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
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
		// Already inside a transaction, reuse it.
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{q: tx})
	})
}

const orderColumns = `id, number, customer_id, order_date, status, payment_method,
	total_amount, amount_paid, payment_status, notes, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	row := r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	o.Lines, err = r.lines(ctx, id)
	return o, err
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	row := r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	o.Lines, err = r.lines(ctx, id)
	return o, err
}

func (r *repository) lines(ctx context.Context, orderID int64) ([]OrderLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, product_id, description, quantity, unit_price, line_total
		FROM order_lines WHERE order_id = $1 ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Description, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]OrderWithDetails, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	argPos := 1

	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("o.customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(o.number ILIKE $%d OR c.name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("o.order_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("o.order_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM orders o JOIN customers c ON c.id = o.customer_id " + whereClause
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT o.id, o.number, o.customer_id, o.order_date, o.status, o.payment_method,
			o.total_amount, o.amount_paid, o.payment_status, o.notes, o.created_by,
			o.created_at, o.updated_at, c.name
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		%s
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []OrderWithDetails
	for rows.Next() {
		var o OrderWithDetails
		if err := rows.Scan(
			&o.ID, &o.Number, &o.CustomerID, &o.OrderDate, &o.Status, &o.PaymentMethod,
			&o.TotalAmount, &o.AmountPaid, &o.PaymentStatus, &o.Notes, &o.CreatedBy,
			&o.CreatedAt, &o.UpdatedAt, &o.CustomerName,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO orders (number, customer_id, order_date, status, payment_method,
			total_amount, amount_paid, payment_status, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id
	`, o.Number, o.CustomerID, o.OrderDate, string(o.Status), string(o.PaymentMethod),
		o.TotalAmount, o.AmountPaid, string(o.PaymentStatus), o.Notes, o.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) InsertLine(ctx context.Context, line OrderLine) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO order_lines (order_id, product_id, description, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, line.OrderID, line.ProductID, line.Description, line.Quantity, line.UnitPrice, line.LineTotal).Scan(&id)
	return id, err
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status shared.OrderStatus) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2
	`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateNumber produces the next order number for the given day,
// e.g. ORD-20260115-0007.
func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	prefix := "ORD-" + date.Format("20060102")
	var seq int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) + 1 FROM orders WHERE number LIKE $1
	`, prefix+"-%").Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", prefix, seq), nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.Number, &o.CustomerID, &o.OrderDate, &o.Status, &o.PaymentMethod,
		&o.TotalAmount, &o.AmountPaid, &o.PaymentStatus, &o.Notes, &o.CreatedBy,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}
