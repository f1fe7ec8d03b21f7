// Package orders gère la consultation des commandes et l'évolution de leur statut.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopfront/internal/auth"
	"shopfront/internal/models"
	"shopfront/internal/store"
)

var ErrForbidden = errors.New("accès refusé")

// Nombre de relectures quand le statut change pendant une mise à jour
const maxStatusAttempts = 3

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Mailer interface {
	SendStatusUpdate(ctx context.Context, to *models.User, o *models.Order) error
}

type Service struct {
	orders   store.Orders
	products store.Catalog
	users    store.Users
	gate     auth.Gate
	events   Publisher
	mailer   Mailer

	wg sync.WaitGroup
}

func NewService(orders store.Orders, products store.Catalog, users store.Users, events Publisher, mailer Mailer) *Service {
	return &Service{orders: orders, products: products, users: users, events: events, mailer: mailer}
}

// ForCustomer liste les commandes du client, les plus récentes d'abord.
func (s *Service) ForCustomer(ctx context.Context, p *models.Principal) ([]models.Order, error) {
	return s.orders.ListByOwner(ctx, p.UserID)
}

// Get retourne une commande du client ; celle d'un autre est introuvable.
func (s *Service) Get(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.OwnerUserID != p.UserID && p.Role != models.RoleAdmin {
		return nil, store.ErrNotFound
	}
	return o, nil
}

func (s *Service) ForSeller(ctx context.Context, p *models.Principal) ([]models.Order, error) {
	return s.orders.ListBySeller(ctx, p.UserID)
}

func (s *Service) All(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListAll(ctx)
}

// UpdateStatus fait avancer le statut. Le même statut est un no-op ; un retour
// en arrière est refusé avec models.ErrInvalidTransition.
func (s *Service) UpdateStatus(ctx context.Context, actor *models.Principal, id uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	for attempt := 0; attempt < maxStatusAttempts; attempt++ {
		o, err := s.orders.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		allowed, err := s.canUpdate(ctx, actor, o)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrForbidden
		}

		if err := o.Status.CanTransition(next); err != nil {
			return nil, err
		}
		if o.Status == next {
			return o, nil
		}

		err = s.orders.UpdateStatus(ctx, id, o.Status, next)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		previous := o.Status
		o.Status = next
		o.UpdatedAt = time.Now().UTC()
		log.Printf("📦 Commande %s : %s → %s (par %s)", o.ID, previous, next, actor.Email)
		s.notify(o, previous)
		return o, nil
	}
	return nil, fmt.Errorf("commande %s: %w", id, store.ErrConflict)
}

func (s *Service) canUpdate(ctx context.Context, actor *models.Principal, o *models.Order) (bool, error) {
	if actor.Role != models.RoleSeller {
		return s.gate.CanUpdateOrder(actor, false), nil
	}
	sells, err := s.sellsIn(ctx, actor.UserID, o)
	if err != nil {
		return false, err
	}
	return s.gate.CanUpdateOrder(actor, sells), nil
}

// sellsIn indique si la commande contient au moins un produit du vendeur.
func (s *Service) sellsIn(ctx context.Context, sellerID uuid.UUID, o *models.Order) (bool, error) {
	for _, l := range o.Lines {
		p, err := s.products.FindByID(ctx, l.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if p.SellerID == sellerID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) notify(o *models.Order, previous models.OrderStatus) {
	snapshot := *o
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if s.events != nil {
			ev := models.NewOrderEvent(models.EventOrderStatusChanged, &snapshot)
			ev.PreviousStatus = previous
			if err := s.events.Publish(ctx, models.EventOrderStatusChanged, ev); err != nil {
				log.Printf("⚠️ Événement %s non publié pour %s: %v", models.EventOrderStatusChanged, snapshot.ID, err)
			}
		}
		if s.mailer != nil {
			owner, err := s.users.FindByID(ctx, snapshot.OwnerUserID)
			if err != nil {
				log.Printf("⚠️ Client introuvable pour la commande %s: %v", snapshot.ID, err)
				return
			}
			if err := s.mailer.SendStatusUpdate(ctx, owner, &snapshot); err != nil {
				log.Printf("⚠️ Email de statut non envoyé pour %s: %v", snapshot.ID, err)
			}
		}
	}()
}

// Wait attend la fin des notifications en cours.
func (s *Service) Wait() {
	s.wg.Wait()
}
