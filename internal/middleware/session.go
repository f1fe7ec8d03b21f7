package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shopfront/internal/auth"
	"shopfront/internal/session"
)

// Sessions attache la session du visiteur à chaque requête : depuis le
// bearer token (claim sid) s'il est fourni, sinon depuis le cookie signé.
func Sessions(manager *session.Manager, tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Format Authorization invalide"})
				return
			}

			claims, userID, err := tokens.Parse(parts[1])
			if err != nil {
				log.Printf("❌ Token refusé: %v", err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token invalide"})
				return
			}

			session.Set(c, session.Session{ID: claims.SessionID, UserID: userID})
			c.Next()
			return
		}

		s, err := manager.Load(c.Writer, c.Request)
		if err != nil {
			log.Printf("❌ Session illisible: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
			return
		}
		session.Set(c, s)
		c.Next()
	}
}
