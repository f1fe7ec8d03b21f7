package auth

import (
	"shopfront/internal/models"
)

// Gate décide des accès par rôle.
type Gate struct{}

// Authorize est vrai si le principal a l'un des rôles donnés. Sans rôle
// demandé, être authentifié suffit.
func (Gate) Authorize(p *models.Principal, roles ...models.Role) bool {
	if p == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// CanManageProduct : l'admin gère tout, le vendeur ses propres produits.
func (g Gate) CanManageProduct(p *models.Principal, product *models.Product) bool {
	switch {
	case g.Authorize(p, models.RoleAdmin):
		return true
	case g.Authorize(p, models.RoleSeller):
		return product.SellerID == p.UserID
	default:
		return false
	}
}

// CanUpdateOrder : l'admin sur toute commande, le vendeur seulement si la
// commande contient un de ses produits (sellsInOrder).
func (g Gate) CanUpdateOrder(p *models.Principal, sellsInOrder bool) bool {
	switch {
	case g.Authorize(p, models.RoleAdmin):
		return true
	case g.Authorize(p, models.RoleSeller):
		return sellsInOrder
	default:
		return false
	}
}
