package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent est publié sur le bus après chaque changement durable d'une commande
type OrderEvent struct {
	Type           string          `json:"type"`
	OrderID        uuid.UUID       `json:"order_id"`
	OwnerUserID    uuid.UUID       `json:"owner_user_id"`
	Total          decimal.Decimal `json:"total"`
	Status         OrderStatus     `json:"status"`
	PreviousStatus OrderStatus     `json:"previous_status,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

func NewOrderEvent(eventType string, o *Order) OrderEvent {
	return OrderEvent{
		Type:        eventType,
		OrderID:     o.ID,
		OwnerUserID: o.OwnerUserID,
		Total:       o.Total,
		Status:      o.Status,
		OccurredAt:  time.Now().UTC(),
	}
}
