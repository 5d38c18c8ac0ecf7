package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/moodshop-api/internal/model"
)

type OrderRepository interface {
	// Create stores the order and its items in one transaction and fills in
	// the generated number and timestamps. A preset ID is kept.
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, number, session_id, user_id, email, shipping, payment_method,
		                     transaction_id, status, total_amount, created_at)
		 VALUES ($1, 'MS-' || nextval('order_number_seq'), $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		 RETURNING number, created_at`,
		order.ID, order.SessionID, order.UserID, order.Email, order.Shipping, string(order.PaymentMethod),
		order.TransactionID, order.Status, order.Total,
	).Scan(&order.Number, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.ID = uuid.New()
		item.OrderID = order.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, name, image, quantity, price)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.OrderID, item.ProductID, item.Name, item.Image, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

const orderColumns = `id, number, session_id, user_id, email, shipping, payment_method,
	transaction_id, status, total_amount, created_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(&o.ID, &o.Number, &o.SessionID, &o.UserID, &o.Email, &o.Shipping, &o.PaymentMethod,
		&o.TransactionID, &o.Status, &o.Total, &o.CreatedAt)
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *pgOrderRepo) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = $1`, number)
}

func (r *pgOrderRepo) getOne(ctx context.Context, query string, arg any) (*model.Order, error) {
	order := &model.Order{}
	if err := scanOrder(r.pool.QueryRow(ctx, query, arg), order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, name, image, quantity, price FROM order_items WHERE order_id = $1 ORDER BY product_id`,
		order.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &item.Image, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.OrderID = order.ID
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	return order, nil
}

// ListByUserID returns the user's orders newest first, items aggregated in
// the same query.
func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.number, o.session_id, o.user_id, o.email, o.shipping, o.payment_method,
		        o.transaction_id, o.status, o.total_amount, o.created_at,
		        COALESCE(json_agg(json_build_object(
		            'id', oi.id, 'order_id', oi.order_id, 'product_id', oi.product_id,
		            'name', oi.name, 'image', oi.image, 'quantity', oi.quantity, 'price', oi.price
		        ) ORDER BY oi.product_id) FILTER (WHERE oi.id IS NOT NULL), '[]') AS items
		 FROM orders o
		 LEFT JOIN order_items oi ON oi.order_id = o.id
		 WHERE o.user_id = $1
		 GROUP BY o.id
		 ORDER BY o.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.Number, &o.SessionID, &o.UserID, &o.Email, &o.Shipping, &o.PaymentMethod,
			&o.TransactionID, &o.Status, &o.Total, &o.CreatedAt, &o.Items); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
