package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine est une ligne du panier ; le prix est figé au moment de l'ajout
type CartLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	ImageURL  string          `json:"image_url,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal = prix unitaire × quantité
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
