package scyllastore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"gopkg.in/inf.v0"

	"shopfront/internal/models"
	"shopfront/internal/store"
)

const orderColumns = `order_id, owner_user_id, total, status, created_at, updated_at,
	position, product_id, product_name, quantity, unit_price`

// Orders range une commande dans une seule partition : l'en-tête en colonnes
// statiques, une ligne clusterisée par article.
type Orders struct {
	session  *gocql.Session
	products *Products
}

func NewOrders(session *gocql.Session, products *Products) *Orders {
	return &Orders{session: session, products: products}
}

// WithinTx accumule les écritures puis les envoie en un seul LOGGED BATCH :
// rien n'est écrit si fn échoue ou si ctx est annulé avant l'envoi.
func (s *Orders) WithinTx(ctx context.Context, fn func(tx store.OrderTx) error) error {
	tx := &orderTx{products: s.products}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.header == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stmts := orderStatements(*tx.header, tx.lines, tx.sellerIDs())
	if err := execBatch(ctx, s.session, gocql.LoggedBatch, stmts); err != nil {
		return fmt.Errorf("batch commande: %w", err)
	}
	return nil
}

type orderTx struct {
	products *Products
	header   *models.OrderHeader
	lines    []models.OrderLine
	sellers  map[uuid.UUID]struct{}
}

func (t *orderTx) CreateOrder(_ context.Context, h models.OrderHeader) (uuid.UUID, error) {
	if t.header != nil {
		return uuid.Nil, errors.New("commande déjà créée dans cette transaction")
	}
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	if h.Status == "" {
		h.Status = models.OrderStatusPending
	}
	t.header = &h
	return h.ID, nil
}

func (t *orderTx) CreateOrderLines(ctx context.Context, orderID uuid.UUID, lines []models.OrderLine) error {
	if t.header == nil || t.header.ID != orderID {
		return fmt.Errorf("commande %s absente de la transaction", orderID)
	}
	if t.sellers == nil {
		t.sellers = map[uuid.UUID]struct{}{}
	}

	for i, l := range lines {
		if l.Quantity < 1 {
			return fmt.Errorf("ligne %d: quantité invalide %d", i, l.Quantity)
		}
		p, err := t.products.FindByID(ctx, l.ProductID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// produit supprimé entre-temps : pas d'index vendeur
		case err != nil:
			return err
		default:
			t.sellers[p.SellerID] = struct{}{}
		}
	}
	t.lines = append(t.lines, lines...)
	return nil
}

func (t *orderTx) sellerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.sellers))
	for id := range t.sellers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// orderStatements construit le batch d'une commande : en-tête, lignes, index.
func orderStatements(h models.OrderHeader, lines []models.OrderLine, sellers []uuid.UUID) []statement {
	oid := toCQLUUID(h.ID)
	stmts := []statement{{
		cql: `INSERT INTO orders (order_id, owner_user_id, total, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
		args: []any{oid, toCQLUUID(h.OwnerUserID), toInfDec(h.Total), string(h.Status), h.CreatedAt, h.CreatedAt},
	}}

	for i, l := range lines {
		stmts = append(stmts, statement{
			cql: `INSERT INTO orders (order_id, position, product_id, product_name, quantity, unit_price)
				VALUES (?, ?, ?, ?, ?, ?)`,
			args: []any{oid, i, toCQLUUID(l.ProductID), l.ProductName, l.Quantity, toInfDec(l.UnitPriceAtPurchase)},
		})
	}

	stmts = append(stmts, statement{
		cql:  `INSERT INTO orders_by_owner (owner_user_id, created_at, order_id) VALUES (?, ?, ?)`,
		args: []any{toCQLUUID(h.OwnerUserID), h.CreatedAt, oid},
	})
	for _, sid := range sellers {
		stmts = append(stmts, statement{
			cql:  `INSERT INTO orders_by_seller (seller_id, created_at, order_id) VALUES (?, ?, ?)`,
			args: []any{toCQLUUID(sid), h.CreatedAt, oid},
		})
	}
	return stmts
}

func (s *Orders) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	orders, err := s.scan(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, toCQLUUID(id))
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, store.ErrNotFound
	}
	return &orders[0], nil
}

func (s *Orders) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error) {
	return s.fromIndex(ctx, `SELECT order_id FROM orders_by_owner WHERE owner_user_id = ?`, toCQLUUID(ownerID))
}

func (s *Orders) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error) {
	return s.fromIndex(ctx, `SELECT order_id FROM orders_by_seller WHERE seller_id = ?`, toCQLUUID(sellerID))
}

func (s *Orders) ListAll(ctx context.Context) ([]models.Order, error) {
	orders, err := s.scan(ctx, `SELECT `+orderColumns+` FROM orders`)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// UpdateStatus est une transaction légère sur la colonne statique status.
func (s *Orders) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) error {
	prev := map[string]any{}
	applied, err := s.session.Query(`UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ? IF status = ?`,
		string(to), time.Now().UTC(), toCQLUUID(id), string(from)).
		WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return fmt.Errorf("mise à jour statut: %w", err)
	}
	if applied {
		return nil
	}
	if current, _ := prev["status"].(string); current == "" {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func (s *Orders) fromIndex(ctx context.Context, cql string, args ...any) ([]models.Order, error) {
	iter := s.session.Query(cql, args...).WithContext(ctx).Iter()

	var ids []uuid.UUID
	var oid gocql.UUID
	for iter.Scan(&oid) {
		ids = append(ids, fromCQLUUID(oid))
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture index commandes: %w", err)
	}

	orders := []models.Order{}
	for _, id := range ids {
		o, err := s.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// scan regroupe les lignes par partition ; celles-ci arrivent contiguës.
func (s *Orders) scan(ctx context.Context, cql string, args ...any) ([]models.Order, error) {
	iter := s.session.Query(cql, args...).WithContext(ctx).Iter()

	orders := []models.Order{}
	var (
		oid, owner gocql.UUID
		pid        gocql.UUID
		total      *inf.Dec
		price      *inf.Dec
		status     string
		name       string
		created    time.Time
		updated    time.Time
		position   int
		quantity   int
	)
	for iter.Scan(&oid, &owner, &total, &status, &created, &updated, &position, &pid, &name, &quantity, &price) {
		id := fromCQLUUID(oid)
		if n := len(orders); n == 0 || orders[n-1].ID != id {
			orders = append(orders, models.Order{
				ID:          id,
				OwnerUserID: fromCQLUUID(owner),
				Total:       fromInfDec(total),
				Status:      models.OrderStatus(status),
				CreatedAt:   created,
				UpdatedAt:   updated,
			})
		}
		o := &orders[len(orders)-1]
		o.Lines = append(o.Lines, models.OrderLine{
			ProductID:           fromCQLUUID(pid),
			ProductName:         name,
			Quantity:            quantity,
			UnitPriceAtPurchase: fromInfDec(price),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture commandes: %w", err)
	}
	return orders, nil
}
