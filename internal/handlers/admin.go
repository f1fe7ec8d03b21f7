package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopfront/internal/auth"
	"shopfront/internal/models"
)

func (h *Handler) AdminDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	sellers, err := h.users.ListByRole(ctx, models.RoleSeller)
	if err != nil {
		respondError(c, err)
		return
	}
	customers, err := h.users.ListByRole(ctx, models.RoleCustomer)
	if err != nil {
		respondError(c, err)
		return
	}
	products, err := h.catalog.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	all, err := h.orders.All(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sellers":   sellers,
		"customers": customers,
		"counts": gin.H{
			"sellers":   len(sellers),
			"customers": len(customers),
			"products":  len(products),
			"orders":    len(all),
		},
	})
}

// CreateSeller : l'admin ouvre un compte vendeur.
func (h *Handler) CreateSeller(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.identity.Register(c.Request.Context(), auth.Registration{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     models.RoleSeller,
	}, false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) AllOrders(c *gin.Context) {
	all, err := h.orders.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}
