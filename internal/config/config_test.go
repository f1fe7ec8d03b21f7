package config

import (
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 30*24*time.Hour, cfg.CartTTL)
	assert.Equal(t, 10*time.Minute, cfg.ProductCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.CheckoutTimeout)
	assert.Equal(t, UploadDisk, cfg.UploadDriver)
	assert.Nil(t, cfg.CORSOrigins)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("BASE_URL", "https://shop.example.com/")
	t.Setenv("STORE_DRIVER", "scylla")
	t.Setenv("SCYLLA_HOSTS", "10.0.0.1, 10.0.0.2")
	t.Setenv("CART_TTL_HOURS", "2")
	t.Setenv("CHECKOUT_TIMEOUT_SECONDS", "pas-un-nombre")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "jwt", cfg.JWTSecret)
	assert.Equal(t, "https://shop.example.com", cfg.BaseURL)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.ScyllaHosts)
	assert.Equal(t, 2*time.Hour, cfg.CartTTL)
	assert.Equal(t, 10*time.Second, cfg.CheckoutTimeout)
	assert.True(t, cfg.CookieSecure)
	assert.Len(t, cfg.CORSOrigins, 2)
}

func TestFromEnv_Errors(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "mongo")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("STORE_DRIVER", "scylla")
	t.Setenv("SCYLLA_HOSTS", "")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("STORE_DRIVER", "")
	t.Setenv("UPLOAD_DRIVER", "minio")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestSetupOAuth(t *testing.T) {
	t.Cleanup(goth.ClearProviders)
	store := sessions.NewCookieStore([]byte("secret"))

	assert.Equal(t, 0, SetupOAuth(&Config{BaseURL: "http://localhost:8080"}, store))
	assert.Same(t, store, gothic.Store)

	n := SetupOAuth(&Config{BaseURL: "http://localhost:8080", GoogleClientID: "id", GoogleClientSecret: "secret"}, store)
	assert.Equal(t, 1, n)
	p, err := goth.GetProvider("google")
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())
}
