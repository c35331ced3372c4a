package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const idempotencyConstraint = "orders_user_idempotency_key"

// Repo is the Postgres order store. It holds no business rules.
type Repo struct{ DB *pgxpool.Pool }

// CreateOrder writes the order and all of its items in one transaction.
// On success o.ID, o.CreatedAt and every item ID/OrderID are set; on any failure nothing is kept.
func (r *Repo) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertOrder(ctx, tx, o); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == idempotencyConstraint {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert order: %w", err)
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		if err := insertOrderItem(ctx, tx, &o.Items[i]); err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}
	return tx.Commit(ctx)
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *Order) error {
	var key *string
	if o.IdempotencyKey != "" {
		key = &o.IdempotencyKey
	}
	return tx.QueryRow(ctx, `
		INSERT INTO orders(user_id, shipping_address, payment_method, total_amount, idempotency_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		o.UserID, o.ShippingAddress, string(o.PaymentMethod), o.TotalAmount, key,
	).Scan(&o.ID, &o.CreatedAt)
}

func insertOrderItem(ctx context.Context, tx pgx.Tx, it *OrderItem) error {
	return tx.QueryRow(ctx, `
		INSERT INTO order_items(order_id, product_id, title, image, price_minor_units, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		it.OrderID, it.ProductID, it.Title, it.Image, it.PriceMinorUnits, it.Quantity,
	).Scan(&it.ID)
}

const orderColumns = `id, user_id, shipping_address, payment_method, total_amount, COALESCE(idempotency_key, ''), created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o  Order
		pm string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.ShippingAddress, &pm, &o.TotalAmount, &o.IdempotencyKey, &o.CreatedAt); err != nil {
		return Order{}, err
	}
	o.PaymentMethod = PaymentMethod(pm)
	return o, nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID int64) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (r *Repo) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (Order, bool, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id=$1 AND idempotency_key=$2`, userID, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, false, err
	}
	return o, true, nil
}

// ListOrdersByUser returns the user's orders newest first, without items.
func (r *Repo) ListOrdersByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id=$1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanItems(rows pgx.Rows) ([]OrderItem, error) {
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Image, &it.PriceMinorUnits, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) ListItemsByOrder(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, title, image, price_minor_units, quantity
		FROM order_items
		WHERE order_id=$1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	items, err := scanItems(rows)
	if items == nil && err == nil {
		items = []OrderItem{}
	}
	return items, err
}

// ListItemsByOrders loads the items of many orders in one query, grouped by order id.
func (r *Repo) ListItemsByOrders(ctx context.Context, orderIDs []int64) (map[int64][]OrderItem, error) {
	out := make(map[int64][]OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, title, image, price_minor_units, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id`, orderIDs)
	if err != nil {
		return nil, err
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, nil
}
