package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shopfront/internal/models"
)

var ErrNoSession = errors.New("session absente")

// Engine applique les opérations du panier à la session indiquée.
// Chaque opération charge, modifie et sauvegarde le panier sous le verrou
// de la session, ce qui sérialise les requêtes concurrentes d'un même visiteur.
type Engine struct {
	store Store
	locks *locker
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, locks: newLocker()}
}

// Get retourne le panier courant (vide si aucun).
func (e *Engine) Get(ctx context.Context, sessionID string) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	unlock := e.locks.lock(sessionID)
	defer unlock()

	return e.load(ctx, sessionID)
}

// AddItem ajoute le produit (déjà résolu dans le catalogue par l'appelant).
func (e *Engine) AddItem(ctx context.Context, sessionID string, p *models.Product) (*Cart, error) {
	return e.update(ctx, sessionID, func(c *Cart) { c.AddProduct(p) })
}

func (e *Engine) SetQuantity(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*Cart, error) {
	return e.update(ctx, sessionID, func(c *Cart) { c.SetQuantity(productID, quantity) })
}

func (e *Engine) RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*Cart, error) {
	return e.update(ctx, sessionID, func(c *Cart) { c.RemoveItem(productID) })
}

// Clear vide le panier de la session ; idempotent.
func (e *Engine) Clear(ctx context.Context, sessionID string) error {
	_, err := e.update(ctx, sessionID, func(c *Cart) { c.Clear() })
	return err
}

// Snapshot fige les lignes du panier à l'instant de l'appel.
func (e *Engine) Snapshot(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	c, err := e.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return c.Snapshot(), nil
}

// Destroy supprime le panier à la fin de la session (logout).
func (e *Engine) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	unlock := e.locks.lock(sessionID)
	defer unlock()

	if err := e.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("suppression panier: %w", err)
	}
	return nil
}

func (e *Engine) update(ctx context.Context, sessionID string, fn func(*Cart)) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	unlock := e.locks.lock(sessionID)
	defer unlock()

	c, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	fn(c)

	if err := e.store.Save(ctx, sessionID, c); err != nil {
		return nil, fmt.Errorf("sauvegarde panier: %w", err)
	}
	return c, nil
}

func (e *Engine) load(ctx context.Context, sessionID string) (*Cart, error) {
	c, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lecture panier: %w", err)
	}
	return c, nil
}
