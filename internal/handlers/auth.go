package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopfront/internal/auth"
	"shopfront/internal/middleware"
	"shopfront/internal/models"
)

type registerInput struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// Register crée un compte client ou vendeur.
func (h *Handler) Register(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.RoleCustomer
	if input.Role != "" {
		r, ok := models.ParseRole(input.Role)
		if !ok || r == models.RoleAdmin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Rôle invalide"})
			return
		}
		role = r
	}

	u, err := h.identity.Register(c.Request.Context(), auth.Registration{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     role,
	}, false)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("✅ Compte %s créé (%s)", u.Email, u.Role)
	c.JSON(http.StatusCreated, gin.H{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    u.Role,
	})
}

// Login ouvre la session sur le même sid : le panier anonyme est conservé.
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, ok := currentSession(c)
	if !ok {
		return
	}

	u, err := h.identity.Authenticate(c.Request.Context(), input.Email, input.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	h.startSession(c, s.ID, u)
}

func (h *Handler) startSession(c *gin.Context, sessionID string, u *models.User) {
	if err := h.sessions.SetUser(c.Writer, c.Request, sessionID, u.ID); err != nil {
		respondError(c, err)
		return
	}

	p := u.Principal()
	token, err := h.tokens.Issue(p, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("🔐 Connexion de %s", u.Email)
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"user":     p,
		"redirect": p.Role.DashboardPath(),
	})
}

// Logout détruit la session et le panier qui lui est rattaché.
func (h *Handler) Logout(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}

	if err := h.carts.Destroy(c.Request.Context(), s.ID); err != nil {
		log.Printf("⚠️ Panier %s non supprimé: %v", s.ID, err)
	}
	if err := h.sessions.Destroy(c.Writer, c.Request); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Déconnecté"})
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.Principal(c))
}
