package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopfront/internal/models"
	"shopfront/internal/store"
)

const productColumns = `id, seller_id, name, description, price, image_url, stock, created_at, updated_at`

type Products struct {
	db *sql.DB
}

func NewProducts(db *sql.DB) *Products {
	return &Products{db: db}
}

func scanProduct(s scanner) (*models.Product, error) {
	p := &models.Product{}
	err := s.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Price,
		&p.ImageURL, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Products) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if notFound(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture produit: %w", err)
	}
	return p, nil
}

func (r *Products) List(ctx context.Context) ([]models.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id`)
}

func (r *Products) Latest(ctx context.Context, n int) ([]models.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id LIMIT $1`, n)
}

func (r *Products) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE seller_id = $1 ORDER BY created_at DESC, id`, sellerID)
}

func (r *Products) Search(ctx context.Context, q string) ([]models.Product, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	return r.query(ctx, `SELECT `+productColumns+` FROM products
		WHERE LOWER(name) LIKE $1 OR LOWER(description) LIKE $1
		ORDER BY created_at DESC, id`, pattern)
}

func (r *Products) Create(ctx context.Context, p *models.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.SellerID, p.Name, p.Description, p.Price, p.ImageURL, p.Stock, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("création produit: %w", err)
	}
	return nil
}

func (r *Products) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("suppression produit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Products) query(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lecture produits: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("lecture produit: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}
