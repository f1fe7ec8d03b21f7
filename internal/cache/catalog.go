package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shopfront/internal/models"
	"shopfront/internal/store"
)

const ProductCacheTTL = 10 * time.Minute

const (
	allProductsKey = "products:all"
	latestPrefix   = "products:latest:"
)

func productKey(id uuid.UUID) string {
	return "product:" + id.String()
}

// Catalog met en cache Redis les lectures chaudes du catalogue
// (fiche produit, liste complète, produits récents). Une erreur Redis
// n'est jamais bloquante : on retombe sur le store sous-jacent.
type Catalog struct {
	next store.Catalog
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCatalog(next store.Catalog, rdb *redis.Client, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = ProductCacheTTL
	}
	return &Catalog{next: next, rdb: rdb, ttl: ttl}
}

func (c *Catalog) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if c.get(ctx, productKey(id), &p) {
		return &p, nil
	}

	found, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, productKey(id), found)
	return found, nil
}

func (c *Catalog) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if c.get(ctx, allProductsKey, &products) {
		return products, nil
	}

	products, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, allProductsKey, products)
	return products, nil
}

func (c *Catalog) Latest(ctx context.Context, n int) ([]models.Product, error) {
	key := fmt.Sprintf("%s%d", latestPrefix, n)

	var products []models.Product
	if c.get(ctx, key, &products) {
		return products, nil
	}

	products, err := c.next.Latest(ctx, n)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, products)
	return products, nil
}

func (c *Catalog) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	return c.next.ListBySeller(ctx, sellerID)
}

func (c *Catalog) Search(ctx context.Context, q string) ([]models.Product, error) {
	return c.next.Search(ctx, q)
}

func (c *Catalog) Create(ctx context.Context, p *models.Product) error {
	if err := c.next.Create(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

func (c *Catalog) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.next.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *Catalog) get(ctx context.Context, key string, dst any) bool {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("⚠️ Cache Redis indisponible (%s): %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.rdb.Del(ctx, key)
		return false
	}
	return true
}

func (c *Catalog) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("⚠️ Mise en cache impossible (%s): %v", key, err)
	}
}

// invalidate supprime la fiche et toutes les listes dérivées.
func (c *Catalog) invalidate(ctx context.Context, id uuid.UUID) {
	keys := []string{productKey(id), allProductsKey}

	iter := c.rdb.Scan(ctx, 0, latestPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("⚠️ Scan du cache impossible: %v", err)
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("⚠️ Invalidation du cache impossible: %v", err)
	}
}
