package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreScylla   = "scylla"

	UploadDisk  = "disk"
	UploadMinIO = "minio"
)

type Config struct {
	Port          string
	BaseURL       string
	SessionSecret string
	JWTSecret     string
	CookieSecure  bool
	CORSOrigins   []string

	StoreDriver string
	DatabaseURL string

	ScyllaHosts    []string
	ScyllaKeyspace string
	ScyllaUsername string
	ScyllaPassword string
	ScyllaSSL      bool
	ScyllaCACert   string

	RedisHost       string
	RedisPassword   string
	CartTTL         time.Duration
	ProductCacheTTL time.Duration

	UploadDriver   string
	UploadDir      string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIOPublicURL string

	ElasticURL      string
	ElasticUser     string
	ElasticPassword string

	RabbitMQURL     string
	RabbitMQQueue   string
	ChannelPoolSize int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string

	AdminEmail    string
	AdminPassword string

	CheckoutTimeout time.Duration
}

// Load charge le fichier .env s'il existe.
func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
}

// FromEnv lit la configuration depuis l'environnement.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		BaseURL:       strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		CookieSecure:  getEnvAsBool("COOKIE_SECURE", false),
		CORSOrigins:   getEnvAsList("CORS_ORIGINS"),

		StoreDriver: getEnv("STORE_DRIVER", StoreSQLite),
		DatabaseURL: getEnv("DATABASE_URL", "shopfront.db"),

		ScyllaHosts:    getEnvAsList("SCYLLA_HOSTS"),
		ScyllaKeyspace: getEnv("SCYLLA_KEYSPACE", "shopfront"),
		ScyllaUsername: os.Getenv("SCYLLA_USERNAME"),
		ScyllaPassword: os.Getenv("SCYLLA_PASSWORD"),
		ScyllaSSL:      getEnvAsBool("SCYLLA_SSL", false),
		ScyllaCACert:   os.Getenv("SCYLLA_CA_CERT"),

		RedisHost:       os.Getenv("REDIS_HOST"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		CartTTL:         time.Duration(getEnvAsInt("CART_TTL_HOURS", 24*30)) * time.Hour,
		ProductCacheTTL: time.Duration(getEnvAsInt("PRODUCT_CACHE_TTL_MINUTES", 10)) * time.Minute,

		UploadDriver:   getEnv("UPLOAD_DRIVER", UploadDisk),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		MinIOEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:    getEnv("MINIO_BUCKET", "products"),
		MinIOUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		MinIOPublicURL: os.Getenv("MINIO_PUBLIC_URL"),

		ElasticURL:      os.Getenv("ELASTIC_URL"),
		ElasticUser:     os.Getenv("ELASTIC_USER"),
		ElasticPassword: os.Getenv("ELASTIC_PASSWORD"),

		RabbitMQURL:     os.Getenv("RABBITMQ_URL"),
		RabbitMQQueue:   getEnv("RABBITMQ_QUEUE", "shopfront.orders.events"),
		ChannelPoolSize: getEnvAsInt("CHANNEL_POOL_SIZE", 10),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@shopfront.local"),

		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
		FacebookClientID:     os.Getenv("FACEBOOK_CLIENT_ID"),
		FacebookClientSecret: os.Getenv("FACEBOOK_CLIENT_SECRET"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		CheckoutTimeout: time.Duration(getEnvAsInt("CHECKOUT_TIMEOUT_SECONDS", 10)) * time.Second,
	}

	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET manquant")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.SessionSecret
	}

	switch cfg.StoreDriver {
	case StoreSQLite, StorePostgres:
	case StoreScylla:
		if len(cfg.ScyllaHosts) == 0 {
			return nil, errors.New("SCYLLA_HOSTS requis avec STORE_DRIVER=scylla")
		}
	default:
		return nil, errors.New("STORE_DRIVER inconnu: " + cfg.StoreDriver)
	}

	switch cfg.UploadDriver {
	case UploadDisk:
	case UploadMinIO:
		if cfg.MinIOEndpoint == "" {
			return nil, errors.New("MINIO_ENDPOINT requis avec UPLOAD_DRIVER=minio")
		}
	default:
		return nil, errors.New("UPLOAD_DRIVER inconnu: " + cfg.UploadDriver)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
