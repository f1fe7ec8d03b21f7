package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shopfront/internal/models"
	"shopfront/internal/store"
)

const orderSelect = `SELECT o.id, o.owner_user_id, o.total, o.status, o.created_at, o.updated_at,
		l.product_id, l.product_name, l.quantity, l.unit_price_at_purchase
	FROM orders o
	JOIN order_lines l ON l.order_id = o.id`

const orderOrdering = ` ORDER BY o.created_at DESC, o.id, l.position`

type Orders struct {
	db *sql.DB
}

func NewOrders(db *sql.DB) *Orders {
	return &Orders{db: db}
}

// WithinTx ouvre une transaction liée à ctx : une annulation avant Commit
// entraîne le rollback.
func (r *Orders) WithinTx(ctx context.Context, fn func(tx store.OrderTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("début transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&orderTx{tx: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type orderTx struct {
	tx *sql.Tx
}

func (t *orderTx) CreateOrder(ctx context.Context, h models.OrderHeader) (uuid.UUID, error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	if h.Status == "" {
		h.Status = models.OrderStatusPending
	}

	_, err := t.tx.ExecContext(ctx, `INSERT INTO orders (id, owner_user_id, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		h.ID, h.OwnerUserID, h.Total, h.Status, h.CreatedAt, h.CreatedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insertion commande: %w", err)
	}
	return h.ID, nil
}

func (t *orderTx) CreateOrderLines(ctx context.Context, orderID uuid.UUID, lines []models.OrderLine) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO order_lines
		(order_id, position, product_id, product_name, quantity, unit_price_at_purchase)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("préparation lignes: %w", err)
	}
	defer stmt.Close()

	for i, l := range lines {
		if _, err := stmt.ExecContext(ctx, orderID, i, l.ProductID, l.ProductName, l.Quantity, l.UnitPriceAtPurchase); err != nil {
			return fmt.Errorf("insertion ligne %d: %w", i, err)
		}
	}
	return nil
}

func (r *Orders) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	orders, err := r.query(ctx, orderSelect+` WHERE o.id = $1`+orderOrdering, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, store.ErrNotFound
	}
	return &orders[0], nil
}

func (r *Orders) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error) {
	return r.query(ctx, orderSelect+` WHERE o.owner_user_id = $1`+orderOrdering, ownerID)
}

func (r *Orders) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error) {
	return r.query(ctx, orderSelect+` WHERE o.id IN (
			SELECT sl.order_id FROM order_lines sl
			JOIN products p ON p.id = sl.product_id
			WHERE p.seller_id = $1
		)`+orderOrdering, sellerID)
}

func (r *Orders) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.query(ctx, orderSelect+orderOrdering)
}

func (r *Orders) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("mise à jour statut: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = $1`, id).Scan(&exists)
	if notFound(err) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lecture commande: %w", err)
	}
	return store.ErrConflict
}

// query regroupe les lignes jointes par commande en gardant l'ordre SQL.
func (r *Orders) query(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lecture commandes: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			o models.Order
			l models.OrderLine
		)
		err := rows.Scan(&o.ID, &o.OwnerUserID, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt,
			&l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPriceAtPurchase)
		if err != nil {
			return nil, fmt.Errorf("lecture commande: %w", err)
		}

		i, ok := index[o.ID]
		if !ok {
			i = len(orders)
			index[o.ID] = i
			orders = append(orders, o)
		}
		orders[i].Lines = append(orders[i].Lines, l)
	}
	return orders, rows.Err()
}
