package models

import "strings"

// Role est le tag de rôle porté par chaque utilisateur
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSeller   Role = "seller"
	RoleCustomer Role = "customer"
)

// ParseRole normalise un rôle saisi ; vide ou inconnu → false
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleSeller:
		return RoleSeller, true
	case RoleCustomer:
		return RoleCustomer, true
	}
	return "", false
}

// DashboardPath retourne la page d'accueil propre à chaque rôle
func (r Role) DashboardPath() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleSeller:
		return "/seller/dashboard"
	default:
		return "/"
	}
}
