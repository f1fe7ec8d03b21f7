package cart

import (
	"context"
	"sync"

	"shopfront/internal/models"
)

// Store persiste le panier d'une session.
// Load retourne un panier vide (sans erreur) quand la session n'en a pas encore.
// Save d'un panier vide supprime l'entrée.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore garde les paniers dans le processus (dev sans Redis, tests).
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]models.CartLine
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]models.CartLine)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := &Cart{Lines: m.carts[sessionID]}
	c.Lines = c.Snapshot()
	return c, nil
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, c *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.IsEmpty() {
		delete(m.carts, sessionID)
		return nil
	}
	m.carts[sessionID] = c.Snapshot()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, sessionID)
	return nil
}
