package customorders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-oms/meridian-oms/internal/inventory"
	"github.com/meridian-oms/meridian-oms/internal/platform/db"
	"github.com/meridian-oms/meridian-oms/internal/sales/shared"
)

var ErrNotFound = errors.New("custom order not found")

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error
	Get(ctx context.Context, id int64) (*CustomOrder, error)
	GetForUpdate(ctx context.Context, id int64) (*CustomOrder, error)
	List(ctx context.Context, req ListCustomOrdersRequest) ([]CustomOrderWithDetails, int, error)
	Create(ctx context.Context, o CustomOrder) (int64, error)
	InsertRequirement(ctx context.Context, r MaterialRequirement) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status shared.CustomOrderStatus) error
	SetInvoice(ctx context.Context, id, invoiceID int64) error
	GenerateNumber(ctx context.Context, date time.Time) (string, error)

	// MaterialForUpdate locks a material row so the stock check and the
	// decrement see the same value.
	MaterialForUpdate(ctx context.Context, id int64) (*inventory.Material, error)
	// DecrementStock consumes stock with a non-negative guard. Returns
	// inventory.ErrInsufficientStock when the guard fails.
	DecrementStock(ctx context.Context, materialID int64, qty float64) error
	// InsertInvoice writes the invoice and its lines issued by the compound
	// transition. Returns the invoice id and number.
	InsertInvoice(ctx context.Context, draft InvoiceDraft) (int64, string, error)
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

const customOrderColumns = `id, number, customer_id, category, description, quantity,
	want_date, notes, design_files, status, invoice_id, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*CustomOrder, error) {
	row := r.q.QueryRow(ctx, `SELECT `+customOrderColumns+` FROM custom_orders WHERE id = $1`, id)
	o, err := scanCustomOrder(row)
	if err != nil {
		return nil, err
	}
	o.Requirements, err = r.requirements(ctx, id)
	return o, err
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*CustomOrder, error) {
	row := r.q.QueryRow(ctx, `SELECT `+customOrderColumns+` FROM custom_orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanCustomOrder(row)
	if err != nil {
		return nil, err
	}
	o.Requirements, err = r.requirements(ctx, id)
	return o, err
}

func (r *repository) requirements(ctx context.Context, orderID int64) ([]MaterialRequirement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, custom_order_id, material_id, quantity
		FROM custom_order_materials WHERE custom_order_id = $1 ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MaterialRequirement
	for rows.Next() {
		var m MaterialRequirement
		if err := rows.Scan(&m.ID, &m.CustomOrderID, &m.MaterialID, &m.Quantity); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListCustomOrdersRequest) ([]CustomOrderWithDetails, int, error) {
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
		conditions = append(conditions, fmt.Sprintf("(o.number ILIKE $%d OR c.name ILIKE $%d OR o.category ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("o.want_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("o.want_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM custom_orders o JOIN customers c ON c.id = o.customer_id " + whereClause
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT o.id, o.number, o.customer_id, o.category, o.description, o.quantity,
			o.want_date, o.notes, o.design_files, o.status, o.invoice_id, o.created_by,
			o.created_at, o.updated_at, c.name
		FROM custom_orders o
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

	var out []CustomOrderWithDetails
	for rows.Next() {
		var o CustomOrderWithDetails
		if err := rows.Scan(
			&o.ID, &o.Number, &o.CustomerID, &o.Category, &o.Description, &o.Quantity,
			&o.WantDate, &o.Notes, &o.DesignFiles, &o.Status, &o.InvoiceID, &o.CreatedBy,
			&o.CreatedAt, &o.UpdatedAt, &o.CustomerName,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, o CustomOrder) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO custom_orders (number, customer_id, category, description, quantity,
			want_date, notes, design_files, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id
	`, o.Number, o.CustomerID, o.Category, o.Description, o.Quantity,
		o.WantDate, o.Notes, o.DesignFiles, string(o.Status), o.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) InsertRequirement(ctx context.Context, m MaterialRequirement) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO custom_order_materials (custom_order_id, material_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id
	`, m.CustomOrderID, m.MaterialID, m.Quantity).Scan(&id)
	return id, err
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status shared.CustomOrderStatus) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE custom_orders SET status = $1, updated_at = NOW() WHERE id = $2
	`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetInvoice(ctx context.Context, id, invoiceID int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE custom_orders SET invoice_id = $1, updated_at = NOW() WHERE id = $2
	`, invoiceID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	prefix := "CO-" + date.Format("20060102")
	var seq int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) + 1 FROM custom_orders WHERE number LIKE $1
	`, prefix+"-%").Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", prefix, seq), nil
}

func (r *repository) MaterialForUpdate(ctx context.Context, id int64) (*inventory.Material, error) {
	var m inventory.Material
	err := r.q.QueryRow(ctx, `
		SELECT id, name, unit, unit_price, available_stock, reorder_level, created_at, updated_at
		FROM materials WHERE id = $1 FOR UPDATE
	`, id).Scan(&m.ID, &m.Name, &m.Unit, &m.UnitPrice, &m.AvailableStock, &m.ReorderLevel, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) DecrementStock(ctx context.Context, materialID int64, qty float64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE materials
		SET available_stock = available_stock - $1, updated_at = NOW()
		WHERE id = $2 AND available_stock - $1 >= 0
	`, qty, materialID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrInsufficientStock
	}
	return nil
}

func (r *repository) InsertInvoice(ctx context.Context, draft InvoiceDraft) (int64, string, error) {
	prefix := "INV-" + draft.IssuedAt.Format("20060102")
	var seq int
	if err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) + 1 FROM invoices WHERE number LIKE $1
	`, prefix+"-%").Scan(&seq); err != nil {
		return 0, "", err
	}
	number := fmt.Sprintf("%s-%04d", prefix, seq)

	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO invoices (number, custom_order_id, customer_id, service_charge,
			total_amount, paid_amount, payment_status, approval_status,
			issued_at, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 'pending', 'pending', $6, $7, NOW(), NOW())
		RETURNING id
	`, number, draft.CustomOrderID, draft.CustomerID, draft.ServiceCharge,
		draft.TotalAmount, draft.IssuedAt, draft.DueDate).Scan(&id)
	if err != nil {
		return 0, "", err
	}

	for _, line := range draft.Lines {
		if _, err := r.q.Exec(ctx, `
			INSERT INTO invoice_lines (invoice_id, material_id, material_name, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id, line.MaterialID, line.MaterialName, line.Quantity, line.UnitPrice, line.LineTotal); err != nil {
			return 0, "", err
		}
	}
	return id, number, nil
}

func scanCustomOrder(row pgx.Row) (*CustomOrder, error) {
	var o CustomOrder
	err := row.Scan(
		&o.ID, &o.Number, &o.CustomerID, &o.Category, &o.Description, &o.Quantity,
		&o.WantDate, &o.Notes, &o.DesignFiles, &o.Status, &o.InvoiceID, &o.CreatedBy,
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
