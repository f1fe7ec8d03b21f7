package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shopfront/internal/models"
	"shopfront/internal/store"
)

const featuredCount = 5

func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.catalog.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// FeaturedProducts retourne les derniers produits mis en ligne.
func (h *Handler) FeaturedProducts(c *gin.Context) {
	products, err := h.catalog.Latest(c.Request.Context(), featuredCount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.catalog.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SearchProducts interroge Elasticsearch et retombe sur la recherche SQL
// si l'index est absent ou en erreur.
func (h *Handler) SearchProducts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre q requis"})
		return
	}
	ctx := c.Request.Context()

	if h.search != nil {
		ids, err := h.search.Search(ctx, q)
		if err == nil {
			products := make([]models.Product, 0, len(ids))
			for _, id := range ids {
				p, err := h.catalog.FindByID(ctx, id)
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				if err != nil {
					respondError(c, err)
					return
				}
				products = append(products, *p)
			}
			c.JSON(http.StatusOK, products)
			return
		}
		log.Printf("⚠️ Recherche Elasticsearch indisponible, repli SQL: %v", err)
	}

	products, err := h.catalog.Search(ctx, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}
