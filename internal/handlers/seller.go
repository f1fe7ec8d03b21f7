package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"shopfront/internal/middleware"
	"shopfront/internal/models"
	"shopfront/internal/services"
)

const maxImageSize = 5 << 20 // 5 Mo

// SellerDashboard : produits du vendeur et commandes qui les contiennent.
func (h *Handler) SellerDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	p := middleware.Principal(c)

	products, err := h.catalog.ListBySeller(ctx, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	list, err := h.orders.ForSeller(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"orders":   list,
	})
}

// CreateProduct lit un formulaire multipart (name, description, price,
// stock, image).
func (h *Handler) CreateProduct(c *gin.Context) {
	seller := middleware.Principal(c)

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nom requis"})
		return
	}
	price, err := decimal.NewFromString(c.PostForm("price"))
	if err != nil || !price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prix invalide"})
		return
	}
	stock := 0
	if raw := c.PostForm("stock"); raw != "" {
		stock, err = strconv.Atoi(raw)
		if err != nil || stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Stock invalide"})
			return
		}
	}

	product := &models.Product{
		SellerID:    seller.UserID,
		Name:        name,
		Description: strings.TrimSpace(c.PostForm("description")),
		Price:       price.Round(2),
		Stock:       stock,
	}

	if file, err := c.FormFile("image"); err == nil {
		if file.Size > maxImageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Image trop volumineuse (5 Mo max)"})
			return
		}
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Image illisible"})
			return
		}
		defer src.Close()

		contentType, err := services.DetectImage(file.Filename, src)
		if err != nil {
			respondError(c, err)
			return
		}

		url, err := h.uploads.Save(c.Request.Context(), src, file.Size, contentType)
		if err != nil {
			respondError(c, err)
			return
		}
		product.ImageURL = url
	}

	if err := h.catalog.Create(c.Request.Context(), product); err != nil {
		respondError(c, err)
		return
	}

	h.indexProduct(c.Request.Context(), product)
	log.Printf("📦 Produit %s créé par %s", product.Name, seller.Email)
	c.JSON(http.StatusCreated, product)
}

// DeleteProduct : le vendeur supprime ses produits, l'admin tous.
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	product, err := h.catalog.FindByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.gate.CanManageProduct(middleware.Principal(c), product) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	if err := h.catalog.Delete(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	if h.search != nil {
		if err := h.search.Delete(ctx, id); err != nil {
			log.Printf("⚠️ Suppression de l'index impossible pour %s: %v", id, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé"})
}

// indexProduct est au mieux : le produit est déjà en base.
func (h *Handler) indexProduct(ctx context.Context, p *models.Product) {
	if h.search == nil {
		return
	}
	if err := h.search.Index(ctx, p); err != nil {
		log.Printf("⚠️ Indexation impossible pour %s: %v", p.ID, err)
	}
}
