// Package handlers expose l'API HTTP (gin) : auth, catalogue, panier,
// commande et tableaux de bord vendeur / admin.
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shopfront/internal/auth"
	"shopfront/internal/cart"
	"shopfront/internal/checkout"
	"shopfront/internal/models"
	"shopfront/internal/orders"
	"shopfront/internal/services"
	"shopfront/internal/session"
	"shopfront/internal/store"
)

// ProductSearch est l'index plein texte du catalogue (Elasticsearch).
type ProductSearch interface {
	Index(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, q string) ([]uuid.UUID, error)
}

// CartEvents diffuse les changements de panier (pub/sub Redis).
type CartEvents interface {
	Subscribe(ctx context.Context, sessionID string) *redis.PubSub
}

type Config struct {
	Sessions *session.Manager
	Tokens   *auth.TokenIssuer
	Identity *auth.Identity
	Users    store.Users
	Catalog  store.Catalog
	Carts    *cart.Engine
	Checkout *checkout.Processor
	Orders   *orders.Service
	Uploads  services.Storage
	// Optionnels : nil désactive la fonctionnalité.
	Search     ProductSearch
	CartEvents CartEvents
}

type Handler struct {
	sessions *session.Manager
	tokens   *auth.TokenIssuer
	identity *auth.Identity
	users    store.Users
	catalog  store.Catalog
	carts    *cart.Engine
	checkout *checkout.Processor
	orders   *orders.Service
	uploads  services.Storage
	search   ProductSearch
	events   CartEvents
	gate     auth.Gate
}

func New(cfg Config) *Handler {
	return &Handler{
		sessions: cfg.Sessions,
		tokens:   cfg.Tokens,
		identity: cfg.Identity,
		users:    cfg.Users,
		catalog:  cfg.Catalog,
		carts:    cfg.Carts,
		checkout: cfg.Checkout,
		orders:   cfg.Orders,
		uploads:  cfg.Uploads,
		search:   cfg.Search,
		events:   cfg.CartEvents,
	}
}

// CartEventsEnabled indique si le websocket panier est disponible.
func (h *Handler) CartEventsEnabled() bool {
	return h.events != nil
}

// respondError traduit les erreurs métier en statut HTTP.
func respondError(c *gin.Context, err error) {
	switch {
	// La cause d'un échec de commande reste dans les logs
	case errors.Is(err, checkout.ErrCheckoutFailed):
		log.Printf("❌ %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de finaliser la commande, votre panier est conservé"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Introuvable"})
	case errors.Is(err, checkout.ErrUnauthorized), errors.Is(err, auth.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Connexion requise"})
	case errors.Is(err, orders.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Votre panier est vide", "redirect": "/api/cart"})
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUnknownStatus), errors.Is(err, auth.ErrInvalidInput), errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, services.ErrUnsupportedImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Un compte avec cet email existe déjà"})
	default:
		log.Printf("❌ Erreur serveur: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
	}
}

func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant invalide"})
		return uuid.Nil, false
	}
	return id, true
}

// currentSession retourne la session posée par le middleware Sessions.
func currentSession(c *gin.Context) (session.Session, bool) {
	s, err := session.Get(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session absente"})
		return session.Session{}, false
	}
	return s, true
}
