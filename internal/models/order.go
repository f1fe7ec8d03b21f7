package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
)

// Ordre de progression des statuts ; aucun retour en arrière possible
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusPaid:      1,
	OrderStatusShipped:   2,
	OrderStatusCompleted: 3,
}

// ValidOrderStatuses liste les statuts dans l'ordre du cycle de vie
var ValidOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusCompleted,
}

var (
	ErrUnknownStatus     = errors.New("statut de commande inconnu")
	ErrInvalidTransition = errors.New("transition de statut interdite")
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := orderStatusRank[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// CanTransition autorise uniquement les transitions vers l'avant.
// Rester sur le même statut est accepté (no-op).
func (s OrderStatus) CanTransition(next OrderStatus) error {
	from, ok := orderStatusRank[s]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	to, ok := orderStatusRank[next]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}
	if to < from {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, s, next)
	}
	return nil
}

type Order struct {
	ID          uuid.UUID       `json:"id"`
	OwnerUserID uuid.UUID       `json:"owner_user_id"`
	Lines       []OrderLine     `json:"lines"`
	Total       decimal.Decimal `json:"total"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type OrderLine struct {
	ProductID           uuid.UUID       `json:"product_id"`
	ProductName         string          `json:"product_name,omitempty"`
	Quantity            int             `json:"quantity"`
	UnitPriceAtPurchase decimal.Decimal `json:"unit_price_at_purchase"`
}

// OrderHeader est l'en-tête écrit avant les lignes dans la même transaction
type OrderHeader struct {
	ID          uuid.UUID
	OwnerUserID uuid.UUID
	Total       decimal.Decimal
	Status      OrderStatus
	CreatedAt   time.Time
}

// LinesTotal recalcule Σ quantité × prix ; sert uniquement à la création
func LinesTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPriceAtPurchase.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
