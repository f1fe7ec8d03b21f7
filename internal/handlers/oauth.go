package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"

	"shopfront/internal/auth"
)

func (h *Handler) BeginOAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "aucun provider spécifié"})
		return
	}

	c.Request = gothic.GetContextWithProvider(c.Request, provider)
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// OAuthCallback retrouve ou crée le compte puis ouvre la session.
func (h *Handler) OAuthCallback(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "aucun provider spécifié"})
		return
	}

	s, ok := currentSession(c)
	if !ok {
		return
	}

	c.Request = gothic.GetContextWithProvider(c.Request, provider)
	gu, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		log.Printf("❌ OAuth %s: %v", provider, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.identity.FindOrCreateExternal(c.Request.Context(), auth.ExternalAccount{
		Provider:   gu.Provider,
		ProviderID: gu.UserID,
		Email:      gu.Email,
		Name:       gu.Name,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.startSession(c, s.ID, u)
}
