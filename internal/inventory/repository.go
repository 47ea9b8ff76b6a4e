package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Material, error)
	List(ctx context.Context, req ListMaterialsRequest) ([]Material, int, error)
	Create(ctx context.Context, m Material) (int64, error)
	UpdatePrice(ctx context.Context, id int64, unitPrice float64) error
	// AdjustStock applies a delta to available stock. The update is guarded
	// so stock never goes negative.
	AdjustStock(ctx context.Context, id int64, delta float64, note string, actorID int64) error
	ListLowStock(ctx context.Context) ([]Material, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const materialColumns = `id, name, unit, unit_price, available_stock, reorder_level, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Material, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id)
	return scanMaterial(row)
}

func (r *repository) List(ctx context.Context, req ListMaterialsRequest) ([]Material, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	argPos := 1

	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}
	if req.LowStock {
		conditions = append(conditions, "available_stock <= reorder_level")
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM materials "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT "+materialColumns+" FROM materials %s ORDER BY name, id LIMIT $%d OFFSET $%d",
		whereClause, argPos, argPos+1,
	)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Unit, &m.UnitPrice, &m.AvailableStock, &m.ReorderLevel, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, m Material) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO materials (name, unit, unit_price, available_stock, reorder_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id
	`, m.Name, m.Unit, m.UnitPrice, m.AvailableStock, m.ReorderLevel).Scan(&id)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.ConstraintName == "uq_materials_name" {
			return 0, ErrDuplicateName
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdatePrice(ctx context.Context, id int64, unitPrice float64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE materials SET unit_price = $1, updated_at = NOW() WHERE id = $2`, unitPrice, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) AdjustStock(ctx context.Context, id int64, delta float64, note string, actorID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE materials
		SET available_stock = available_stock + $1, updated_at = NOW()
		WHERE id = $2 AND available_stock + $1 >= 0
	`, delta, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrInsufficientStock
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO material_movements (material_id, quantity, note, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, delta, note, actorID, time.Now())
	return err
}

func (r *repository) ListLowStock(ctx context.Context) ([]Material, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+materialColumns+` FROM materials WHERE available_stock <= reorder_level ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Unit, &m.UnitPrice, &m.AvailableStock, &m.ReorderLevel, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMaterial(row pgx.Row) (*Material, error) {
	var m Material
	err := row.Scan(&m.ID, &m.Name, &m.Unit, &m.UnitPrice, &m.AvailableStock, &m.ReorderLevel, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
