// Package store définit les accès persistants : catalogue, utilisateurs et
// commandes. Les implémentations vivent dans sqlstore (sqlite, postgres) et
// scyllastore.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"shopfront/internal/models"
)

var (
	ErrNotFound  = errors.New("introuvable")
	ErrDuplicate = errors.New("existe déjà")
	// ErrConflict : le statut a changé entre la lecture et l'écriture.
	ErrConflict = errors.New("modification concurrente")
)

type Catalog interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	// Latest retourne les n produits les plus récents.
	Latest(ctx context.Context, n int) ([]models.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)
	// Search fait une recherche simple sur le nom et la description.
	Search(ctx context.Context, q string) ([]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Users interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByProvider(ctx context.Context, provider, providerID string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

// OrderTx est la portée transactionnelle d'une création de commande.
type OrderTx interface {
	CreateOrder(ctx context.Context, h models.OrderHeader) (uuid.UUID, error)
	CreateOrderLines(ctx context.Context, orderID uuid.UUID, lines []models.OrderLine) error
}

type Orders interface {
	// WithinTx exécute fn dans une transaction : validée si fn retourne nil,
	// annulée sinon (ou si ctx est annulé avant la validation).
	WithinTx(ctx context.Context, fn func(tx OrderTx) error) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error)
	// ListBySeller retourne les commandes contenant au moins un produit du vendeur.
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	// UpdateStatus passe de from à to seulement si le statut vaut encore from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) error
}
