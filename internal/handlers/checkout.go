package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Checkout(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}

	order, err := h.checkout.Checkout(c.Request.Context(), s)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}
