package scyllastore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"gopkg.in/inf.v0"

	"shopfront/internal/models"
	"shopfront/internal/store"
)

const productColumns = `product_id, seller_id, name, description, price, image_url, stock, created_at, updated_at`

type Products struct {
	session *gocql.Session
}

func NewProducts(session *gocql.Session) *Products {
	return &Products{session: session}
}

type productRow struct {
	id, sellerID gocql.UUID
	name, desc   string
	price        *inf.Dec
	imageURL     string
	stock        int
	created      time.Time
	updated      time.Time
}

func (r *productRow) dest() []any {
	return []any{&r.id, &r.sellerID, &r.name, &r.desc, &r.price, &r.imageURL, &r.stock, &r.created, &r.updated}
}

func (r *productRow) product() models.Product {
	return models.Product{
		ID:          fromCQLUUID(r.id),
		SellerID:    fromCQLUUID(r.sellerID),
		Name:        r.name,
		Description: r.desc,
		Price:       fromInfDec(r.price),
		ImageURL:    r.imageURL,
		Stock:       r.stock,
		CreatedAt:   r.created,
		UpdatedAt:   r.updated,
	}
}

func (s *Products) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var row productRow
	err := s.session.Query(`SELECT `+productColumns+` FROM products WHERE product_id = ?`, toCQLUUID(id)).
		WithContext(ctx).Scan(row.dest()...)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture produit: %w", err)
	}
	p := row.product()
	return &p, nil
}

// List parcourt toute la table ; le tri se fait côté application.
func (s *Products) List(ctx context.Context) ([]models.Product, error) {
	return s.scanAll(ctx, nil)
}

func (s *Products) Latest(ctx context.Context, n int) ([]models.Product, error) {
	all, err := s.scanAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (s *Products) Search(ctx context.Context, q string) ([]models.Product, error) {
	needle := strings.ToLower(strings.TrimSpace(q))
	return s.scanAll(ctx, func(p *models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle)
	})
}

func (s *Products) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	iter := s.session.Query(`SELECT product_id FROM products_by_seller WHERE seller_id = ?`, toCQLUUID(sellerID)).
		WithContext(ctx).Iter()

	var ids []uuid.UUID
	var id gocql.UUID
	for iter.Scan(&id) {
		ids = append(ids, fromCQLUUID(id))
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture produits vendeur: %w", err)
	}

	products := []models.Product{}
	for _, id := range ids {
		p, err := s.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

func (s *Products) Create(ctx context.Context, p *models.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	err := execBatch(ctx, s.session, gocql.LoggedBatch, []statement{
		{
			cql: `INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			args: []any{toCQLUUID(p.ID), toCQLUUID(p.SellerID), p.Name, p.Description, toInfDec(p.Price),
				p.ImageURL, p.Stock, p.CreatedAt, p.UpdatedAt},
		},
		{
			cql:  `INSERT INTO products_by_seller (seller_id, created_at, product_id) VALUES (?, ?, ?)`,
			args: []any{toCQLUUID(p.SellerID), p.CreatedAt, toCQLUUID(p.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("création produit: %w", err)
	}
	return nil
}

func (s *Products) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	err = execBatch(ctx, s.session, gocql.LoggedBatch, []statement{
		{cql: `DELETE FROM products WHERE product_id = ?`, args: []any{toCQLUUID(id)}},
		{
			cql:  `DELETE FROM products_by_seller WHERE seller_id = ? AND created_at = ? AND product_id = ?`,
			args: []any{toCQLUUID(p.SellerID), p.CreatedAt, toCQLUUID(id)},
		},
	})
	if err != nil {
		return fmt.Errorf("suppression produit: %w", err)
	}
	return nil
}

func (s *Products) scanAll(ctx context.Context, keep func(*models.Product) bool) ([]models.Product, error) {
	iter := s.session.Query(`SELECT ` + productColumns + ` FROM products`).WithContext(ctx).Iter()

	products := []models.Product{}
	var row productRow
	for iter.Scan(row.dest()...) {
		p := row.product()
		if keep == nil || keep(&p) {
			products = append(products, p)
		}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture produits: %w", err)
	}

	sortProducts(products)
	return products, nil
}

func sortProducts(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
}

