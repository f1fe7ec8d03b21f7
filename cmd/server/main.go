package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"shopfront/internal/auth"
	"shopfront/internal/cache"
	"shopfront/internal/cart"
	"shopfront/internal/checkout"
	"shopfront/internal/config"
	"shopfront/internal/database"
	"shopfront/internal/handlers"
	"shopfront/internal/middleware"
	"shopfront/internal/orders"
	"shopfront/internal/routes"
	"shopfront/internal/services"
	"shopfront/internal/session"
	"shopfront/internal/store"
	"shopfront/internal/store/scyllastore"
	"shopfront/internal/store/sqlstore"
)

type stores struct {
	catalog store.Catalog
	users   store.Users
	orders  store.Orders
	close   func()
}

func main() {
	config.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("❌ Configuration invalide: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Base de données: %v", err)
	}
	defer st.close()

	// Redis : paniers partagés, cache catalogue, rate limit, websocket
	var rdb *redis.Client
	if cfg.RedisHost != "" {
		rdb, err = cache.Connect(ctx, cfg.RedisHost, cfg.RedisPassword)
		if err != nil {
			log.Printf("⚠️ %v, paniers en mémoire", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	catalog := st.catalog
	var cartStore cart.Store = cart.NewMemoryStore()
	var cartEvents handlers.CartEvents
	var limiter *middleware.RateLimiter
	if rdb != nil {
		redisCarts := cart.NewRedisStore(rdb, cfg.CartTTL)
		cartStore, cartEvents = redisCarts, redisCarts
		catalog = cache.NewCatalog(catalog, rdb, cfg.ProductCacheTTL)
		limiter = middleware.NewRateLimiter(rdb)
	} else {
		log.Println("⚠️ Redis non configuré, paniers en mémoire, sans cache ni rate limit")
	}

	var search handlers.ProductSearch
	if cfg.ElasticURL != "" {
		idx, err := services.ConnectElastic(services.ElasticConfig{
			URL:      cfg.ElasticURL,
			Username: cfg.ElasticUser,
			Password: cfg.ElasticPassword,
		})
		if err != nil {
			log.Printf("⚠️ %v, recherche SQL", err)
		} else {
			search = idx
		}
	}

	var checkoutEvents checkout.Publisher
	var orderEvents orders.Publisher
	if cfg.RabbitMQURL != "" {
		pool, err := services.NewChannelPool(cfg.RabbitMQURL, cfg.RabbitMQQueue, cfg.ChannelPoolSize)
		if err != nil {
			log.Printf("⚠️ RabbitMQ indisponible: %v, événements désactivés", err)
		} else {
			defer pool.Close()
			events := services.NewEvents(pool)
			checkoutEvents, orderEvents = events, events
		}
	}

	var checkoutMailer checkout.Mailer
	var orderMailer orders.Mailer
	if cfg.SMTPHost != "" {
		mailer := services.NewMailer(services.MailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		checkoutMailer, orderMailer = mailer, mailer
	} else {
		log.Println("⚠️ SMTP non configuré, emails désactivés")
	}

	uploads, uploadDir, err := openUploads(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Stockage des images: %v", err)
	}

	manager := session.NewManager(session.Options{
		Secret: []byte(cfg.SessionSecret),
		Secure: cfg.CookieSecure,
		MaxAge: int(cfg.CartTTL.Seconds()),
	})
	config.SetupOAuth(cfg, manager.Store())

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour)
	identity := auth.NewIdentity(st.users)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := identity.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("❌ Compte administrateur: %v", err)
		}
	}

	carts := cart.NewEngine(cartStore)
	processor := checkout.NewProcessor(checkout.Config{
		Identity: identity,
		Carts:    carts,
		Orders:   st.orders,
		Events:   checkoutEvents,
		Mailer:   checkoutMailer,
		Timeout:  cfg.CheckoutTimeout,
	})
	orderService := orders.NewService(st.orders, catalog, st.users, orderEvents, orderMailer)

	h := handlers.New(handlers.Config{
		Sessions:   manager,
		Tokens:     tokens,
		Identity:   identity,
		Users:      st.users,
		Catalog:    catalog,
		Carts:      carts,
		Checkout:   processor,
		Orders:     orderService,
		Uploads:    uploads,
		Search:     search,
		CartEvents: cartEvents,
	})

	r := routes.Setup(h, routes.Options{
		Sessions:    manager,
		Tokens:      tokens,
		Identity:    identity,
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     limiter,
		UploadDir:   uploadDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("🚀 Serveur Shopfront lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Serveur: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Arrêt du serveur...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Arrêt forcé: %v", err)
	}

	// Laisser partir les emails et événements en cours
	processor.Wait()
	orderService.Wait()
	log.Println("✅ Serveur arrêté")
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreScylla:
		scylla, err := database.ConnectScylla(database.ScyllaConfig{
			Hosts:      cfg.ScyllaHosts,
			Keyspace:   cfg.ScyllaKeyspace,
			Username:   cfg.ScyllaUsername,
			Password:   cfg.ScyllaPassword,
			SSLEnabled: cfg.ScyllaSSL,
			CACertPath: cfg.ScyllaCACert,
			Timeout:    10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		if err := scyllastore.ApplySchema(ctx, scylla); err != nil {
			scylla.Close()
			return nil, err
		}
		products := scyllastore.NewProducts(scylla)
		return &stores{
			catalog: products,
			users:   scyllastore.NewUsers(scylla),
			orders:  scyllastore.NewOrders(scylla, products),
			close:   scylla.Close,
		}, nil

	default:
		driver := database.DriverSQLite
		if cfg.StoreDriver == config.StorePostgres {
			driver = database.DriverPostgres
		}
		db, err := database.OpenSQL(driver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &stores{
			catalog: sqlstore.NewProducts(db),
			users:   sqlstore.NewUsers(db),
			orders:  sqlstore.NewOrders(db),
			close:   func() { db.Close() },
		}, nil
	}
}

// openUploads retourne le stockage des images et, sur disque, le dossier à servir.
func openUploads(ctx context.Context, cfg *config.Config) (services.Storage, string, error) {
	if cfg.UploadDriver == config.UploadMinIO {
		m, err := services.ConnectMinIO(ctx, services.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.MinIOPublicURL,
		})
		if err != nil {
			return nil, "", err
		}
		return m, "", nil
	}

	d, err := services.NewDiskStorage(cfg.UploadDir, "/uploads")
	if err != nil {
		return nil, "", err
	}
	return d, d.Dir(), nil
}
