package purchasing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manakshia-steel/manakshia/internal/platform/db"
)

// ErrDuplicateNumber is returned when the document number is already taken.
var ErrDuplicateNumber = errors.New("purchasing: duplicate order number")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	LockOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error)
	UpdateOrder(ctx context.Context, order PurchaseOrder) error
	ReplaceItems(ctx context.Context, orderID int64, items []LineItem) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const orderColumns = `id, number, supplier, po_date, status, discount_percentage, shipping, net_total, grand_total, created_at, updated_at`

// GetOrder returns the order and its items.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return loadOrder(ctx, r.pool, `SELECT `+orderColumns+` FROM local_purchase_orders WHERE id = $1`, id)
}

// ListOrders returns orders matching filters, newest first, without items.
func (r *Repository) ListOrders(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error) {
	var (
		where []string
		args  []any
	)
	if filters.Status != "" {
		args = append(args, strings.ToUpper(filters.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.Supplier != "" {
		args = append(args, filters.Supplier)
		where = append(where, fmt.Sprintf("supplier = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where = append(where, fmt.Sprintf("(number ILIKE $%d OR supplier ILIKE $%d)", len(args), len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM local_purchase_orders`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("purchasing: count orders: %w", err)
	}

	args = append(args, filters.Limit, filters.Offset)
	query := fmt.Sprintf(`SELECT %s FROM local_purchase_orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("purchasing: list orders: %w", err)
	}
	defer rows.Close()
	var orders []PurchaseOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	return orders, total, rows.Err()
}

func (t *txRepo) LockOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return loadOrder(ctx, t.tx, `SELECT `+orderColumns+` FROM local_purchase_orders WHERE id = $1 FOR UPDATE`, id)
}

func (t *txRepo) CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO local_purchase_orders (number, supplier, po_date, status, discount_percentage, shipping, net_total, grand_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		order.Number, order.Supplier, order.Date, string(order.Status),
		order.DiscountPercentage, order.Shipping, order.NetTotal, order.GrandTotal,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateNumber
		}
		return 0, fmt.Errorf("purchasing: insert order: %w", err)
	}
	return id, nil
}

func (t *txRepo) UpdateOrder(ctx context.Context, order PurchaseOrder) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE local_purchase_orders
		SET number = $2, supplier = $3, po_date = $4, discount_percentage = $5, shipping = $6,
		    net_total = $7, grand_total = $8, updated_at = NOW()
		WHERE id = $1`,
		order.ID, order.Number, order.Supplier, order.Date,
		order.DiscountPercentage, order.Shipping, order.NetTotal, order.GrandTotal,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateNumber
		}
		return fmt.Errorf("purchasing: update order %d: %w", order.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) ReplaceItems(ctx context.Context, orderID int64, items []LineItem) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM local_purchase_order_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("purchasing: clear items of %d: %w", orderID, err)
	}
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO local_purchase_order_items (order_id, idx, unit, description, qty, unit_cost, total_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			orderID, item.Idx, item.Unit, item.Description, item.Qty, item.UnitCost, item.TotalCost)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("purchasing: insert items of %d: %w", orderID, err)
	}
	return nil
}

func (t *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE local_purchase_orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("purchasing: update status of %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func loadOrder(ctx context.Context, q querier, query string, id int64) (PurchaseOrder, error) {
	order, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	rows, err := q.Query(ctx, `
		SELECT idx, unit, description, qty, unit_cost, total_cost
		FROM local_purchase_order_items WHERE order_id = $1 ORDER BY idx`, id)
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("purchasing: load items of %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.Idx, &item.Unit, &item.Description, &item.Qty, &item.UnitCost, &item.TotalCost); err != nil {
			return PurchaseOrder{}, err
		}
		order.Items = append(order.Items, item)
	}
	return order, rows.Err()
}

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var (
		order  PurchaseOrder
		status string
	)
	err := row.Scan(&order.ID, &order.Number, &order.Supplier, &order.Date, &status,
		&order.DiscountPercentage, &order.Shipping, &order.NetTotal, &order.GrandTotal,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return PurchaseOrder{}, err
	}
	order.Status = Status(status)
	return order, nil
}
