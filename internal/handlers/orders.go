package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopfront/internal/middleware"
	"shopfront/internal/models"
)

func (h *Handler) MyOrders(c *gin.Context) {
	list, err := h.orders.ForCustomer(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.Get(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// UpdateOrderStatus sert aux routes vendeur et admin ; le service vérifie
// que le vendeur vend un produit de la commande.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	next, err := models.ParseOrderStatus(input.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	o, err := h.orders.UpdateStatus(c.Request.Context(), middleware.Principal(c), id, next)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
