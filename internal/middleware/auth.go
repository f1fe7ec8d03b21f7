package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopfront/internal/auth"
	"shopfront/internal/models"
	"shopfront/internal/session"
)

const principalKey = "principal"

type Identity interface {
	CurrentUser(ctx context.Context, s session.Session) (*models.Principal, error)
}

// RequireAuth résout l'utilisateur de la session ; 401 si anonyme.
func RequireAuth(identity Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := session.Get(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
			return
		}

		p, err := identity.CurrentUser(c.Request.Context(), s)
		if errors.Is(err, auth.ErrUnauthenticated) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
			return
		}
		if err != nil {
			log.Printf("❌ Résolution utilisateur: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole s'utilise après RequireAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	gate := auth.Gate{}
	return func(c *gin.Context) {
		p := Principal(c)
		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
			return
		}
		if !gate.Authorize(p, roles...) {
			log.Printf("🚫 Accès refusé à %s (rôle %s)", p.Email, p.Role)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
			return
		}
		c.Next()
	}
}

// Principal retourne l'utilisateur posé par RequireAuth, nil sinon.
func Principal(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}
