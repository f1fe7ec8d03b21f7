package routes

import (
	"github.com/gin-gonic/gin"

	"shopfront/internal/auth"
	"shopfront/internal/handlers"
	"shopfront/internal/middleware"
	"shopfront/internal/models"
	"shopfront/internal/session"
)

type Options struct {
	Sessions    *session.Manager
	Tokens      *auth.TokenIssuer
	Identity    middleware.Identity
	CORSOrigins []string
	// Limiter nil : pas de rate limit (Redis absent).
	Limiter *middleware.RateLimiter
	// UploadDir est servi sous /uploads quand les images sont sur disque.
	UploadDir string
}

func Setup(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(opts.CORSOrigins))

	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.Sessions(opts.Sessions, opts.Tokens))

	requireAuth := middleware.RequireAuth(opts.Identity)

	pass := func(c *gin.Context) { c.Next() }
	login, register, search, cartAdds := pass, pass, pass, pass
	if l := opts.Limiter; l != nil {
		login, register, search = l.Login(), l.Register(), l.Search()
		cartAdds = l.CartAdds(func(c *gin.Context) string {
			s, _ := session.Get(c)
			return s.ID
		})
	}

	// Auth
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", register, h.Register)
		authGroup.POST("/login", login, h.Login)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/me", requireAuth, h.Me)
		authGroup.GET("/:provider", h.BeginOAuth)
		authGroup.GET("/:provider/callback", h.OAuthCallback)
	}

	// Catalogue
	products := api.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/featured", h.FeaturedProducts)
		products.GET("/search", search, h.SearchProducts)
		products.GET("/:id", h.GetProduct)
	}

	// Panier (anonyme ou connecté)
	cartGroup := api.Group("/cart")
	{
		cartGroup.GET("", h.GetCart)
		cartGroup.DELETE("", h.ClearCart)
		cartGroup.POST("/add/:id", cartAdds, h.AddToCart)
		cartGroup.POST("/update/:id", h.UpdateCartItem)
		cartGroup.DELETE("/:id", h.RemoveCartItem)
		if h.CartEventsEnabled() {
			cartGroup.GET("/ws", h.CartWebSocket)
		}
	}

	// La commande résout elle-même l'utilisateur (401 si anonyme)
	api.POST("/checkout", h.Checkout)

	ordersGroup := api.Group("/orders", requireAuth)
	{
		ordersGroup.GET("", h.MyOrders)
		ordersGroup.GET("/:id", h.GetOrder)
	}

	seller := api.Group("/seller", requireAuth, middleware.RequireRole(models.RoleSeller))
	{
		seller.GET("/dashboard", h.SellerDashboard)
		seller.POST("/products", h.CreateProduct)
		seller.DELETE("/products/:id", h.DeleteProduct)
		seller.POST("/orders/:id/status", h.UpdateOrderStatus)
	}

	admin := api.Group("/admin", requireAuth, middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/dashboard", h.AdminDashboard)
		admin.POST("/sellers", h.CreateSeller)
		admin.GET("/orders", h.AllOrders)
		admin.POST("/orders/:id/status", h.UpdateOrderStatus)
		admin.DELETE("/products/:id", h.DeleteProduct)
	}

	return r
}
