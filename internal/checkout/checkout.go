// Package checkout convertit le panier d'une session en commande durable.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"shopfront/internal/auth"
	"shopfront/internal/models"
	"shopfront/internal/session"
	"shopfront/internal/store"
)

var (
	ErrUnauthorized   = errors.New("connexion requise pour commander")
	ErrEmptyCart      = errors.New("panier vide")
	ErrCheckoutFailed = errors.New("échec de la commande")
)

type Identity interface {
	CurrentUser(ctx context.Context, s session.Session) (*models.Principal, error)
}

type Carts interface {
	Snapshot(ctx context.Context, sessionID string) ([]models.CartLine, error)
	Clear(ctx context.Context, sessionID string) error
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to *models.Principal, o *models.Order) error
}

type Config struct {
	Identity Identity
	Carts    Carts
	Orders   store.Orders
	Events   Publisher
	Mailer   Mailer
	// Timeout borne la transaction ; 0 = pas de limite propre.
	Timeout time.Duration
}

type Processor struct {
	identity Identity
	carts    Carts
	orders   store.Orders
	events   Publisher
	mailer   Mailer
	timeout  time.Duration

	wg sync.WaitGroup
}

func NewProcessor(cfg Config) *Processor {
	return &Processor{
		identity: cfg.Identity,
		carts:    cfg.Carts,
		orders:   cfg.Orders,
		events:   cfg.Events,
		mailer:   cfg.Mailer,
		timeout:  cfg.Timeout,
	}
}

// Checkout crée la commande (en-tête + lignes) dans une seule transaction,
// puis vide le panier. Le panier reste intact si la commande n'est pas validée.
func (p *Processor) Checkout(ctx context.Context, s session.Session) (*models.Order, error) {
	principal, err := p.identity.CurrentUser(ctx, s)
	if errors.Is(err, auth.ErrUnauthenticated) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	snapshot, err := p.carts.Snapshot(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	if len(snapshot) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]models.OrderLine, len(snapshot))
	for i, l := range snapshot {
		lines[i] = models.OrderLine{
			ProductID:           l.ProductID,
			ProductName:         l.Name,
			Quantity:            l.Quantity,
			UnitPriceAtPurchase: l.UnitPrice,
		}
	}

	order := &models.Order{
		OwnerUserID: principal.UserID,
		Lines:       lines,
		Total:       models.LinesTotal(lines),
		Status:      models.OrderStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	order.UpdatedAt = order.CreatedAt

	txCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err = p.orders.WithinTx(txCtx, func(tx store.OrderTx) error {
		id, err := tx.CreateOrder(txCtx, models.OrderHeader{
			OwnerUserID: order.OwnerUserID,
			Total:       order.Total,
			Status:      order.Status,
			CreatedAt:   order.CreatedAt,
		})
		if err != nil {
			return err
		}
		order.ID = id
		return tx.CreateOrderLines(txCtx, id, lines)
	})
	if err != nil {
		log.Printf("❌ Checkout échoué pour %s: %v", principal.Email, err)
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	// La commande est durable : un échec ici ne remet pas en cause le checkout
	if err := p.carts.Clear(context.WithoutCancel(ctx), s.ID); err != nil {
		log.Printf("⚠️ Commande %s créée mais panier non vidé: %v", order.ID, err)
	}

	log.Printf("📦 Commande %s créée pour %s (%s)", order.ID, principal.Email, order.Total.StringFixed(2))
	p.notify(principal, order)
	return order, nil
}

// notify publie l'événement et envoie l'email en arrière-plan.
func (p *Processor) notify(to *models.Principal, o *models.Order) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if p.events != nil {
			if err := p.events.Publish(ctx, models.EventOrderPlaced, models.NewOrderEvent(models.EventOrderPlaced, o)); err != nil {
				log.Printf("⚠️ Événement %s non publié pour %s: %v", models.EventOrderPlaced, o.ID, err)
			}
		}
		if p.mailer != nil {
			if err := p.mailer.SendOrderConfirmation(ctx, to, o); err != nil {
				log.Printf("⚠️ Email de confirmation non envoyé pour %s: %v", o.ID, err)
			}
		}
	}()
}

// Wait attend la fin des notifications en cours (arrêt du serveur, tests).
func (p *Processor) Wait() {
	p.wg.Wait()
}
