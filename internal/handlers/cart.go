package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopfront/internal/cart"
	"shopfront/internal/models"
)

func cartResponse(c *cart.Cart) gin.H {
	items := c.Snapshot()
	if items == nil {
		items = []models.CartLine{}
	}
	return gin.H{
		"items": items,
		"total": c.Total(),
		"count": c.Count(),
	}
}

func (h *Handler) GetCart(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	ct, err := h.carts.Get(c.Request.Context(), s.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(ct))
}

// AddToCart ajoute une unité du produit ; le prix est figé à l'ajout.
func (h *Handler) AddToCart(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	p, err := h.catalog.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	ct, err := h.carts.AddItem(c.Request.Context(), s.ID, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(ct))
}

// UpdateCartItem fixe la quantité ; une quantité < 1 est ramenée à 1.
func (h *Handler) UpdateCartItem(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input struct {
		Qty int `json:"qty" form:"qty"`
	}
	// JSON ou champ de formulaire
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ct, err := h.carts.SetQuantity(c.Request.Context(), s.ID, id, input.Qty)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(ct))
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ct, err := h.carts.RemoveItem(c.Request.Context(), s.ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(ct))
}

func (h *Handler) ClearCart(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	if err := h.carts.Clear(c.Request.Context(), s.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Panier vidé"})
}
