// Package cart gère le panier d'une session : fusion des lignes, quantités,
// total et instantané utilisé par le checkout.
package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shopfront/internal/models"
)

// MaxQuantity plafonne la quantité d'une ligne.
const MaxQuantity = 999

// Cart est la liste ordonnée des lignes d'une session.
// L'ordre est celui du premier ajout de chaque produit.
type Cart struct {
	Lines []models.CartLine `json:"lines"`
}

// AddItem incrémente la ligne existante ou en ajoute une nouvelle (quantité 1)
// avec le prix fourni. Le prix d'une ligne existante n'est jamais modifié.
func (c *Cart) AddItem(productID uuid.UUID, unitPrice decimal.Decimal) {
	c.add(models.CartLine{ProductID: productID, UnitPrice: unitPrice})
}

// AddProduct fait la même chose qu'AddItem en gardant aussi le nom et l'image
// du produit pour l'affichage.
func (c *Cart) AddProduct(p *models.Product) {
	c.add(models.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		UnitPrice: p.Price,
	})
}

func (c *Cart) add(line models.CartLine) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == line.ProductID {
			if c.Lines[i].Quantity < MaxQuantity {
				c.Lines[i].Quantity++
			}
			return
		}
	}
	line.Quantity = 1
	c.Lines = append(c.Lines, line)
}

// SetQuantity remplace la quantité d'une ligne, ramenée dans [1, MaxQuantity] :
// on ne supprime jamais par ce biais. Produit absent → no-op.
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) {
	quantity = min(max(quantity, 1), MaxQuantity)
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity = quantity
			return
		}
	}
}

// RemoveItem supprime la ligne si elle existe.
func (c *Cart) RemoveItem(productID uuid.UUID) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// Total retourne Σ prix unitaire × quantité, 0 pour un panier vide.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Snapshot retourne une copie des lignes, indépendante du panier vivant.
func (c *Cart) Snapshot() []models.CartLine {
	if len(c.Lines) == 0 {
		return nil
	}
	out := make([]models.CartLine, len(c.Lines))
	copy(out, c.Lines)
	return out
}

// Clear vide le panier.
func (c *Cart) Clear() {
	c.Lines = nil
}

// IsEmpty indique si le panier n'a aucune ligne.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Count retourne le nombre total d'articles (somme des quantités).
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Contains indique si le produit a une ligne dans le panier.
func (c *Cart) Contains(productID uuid.UUID) bool {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return true
		}
	}
	return false
}
