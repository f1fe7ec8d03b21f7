package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	LoginMaxAttempts    = 5
	RegisterMaxAttempts = 3
	CartMaxAdds         = 20
	SearchMaxRequests   = 30

	LoginCooldown    = 15 * time.Minute
	RegisterCooldown = 30 * time.Minute
	ShortWindow      = 1 * time.Minute
)

type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

// Login limite les tentatives échouées par email ; au-delà, cooldown.
func (l *RateLimiter) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Lire le body sans le consommer
		bodyBytes, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		var input struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal(bodyBytes, &input); err != nil || input.Email == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		email := strings.ToLower(strings.TrimSpace(input.Email))
		key := "login_attempts:" + email
		cooldownKey := "login_cooldown:" + email

		if ttl := l.rdb.TTL(ctx, cooldownKey).Val(); ttl > 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de tentatives échouées. Réessayez dans %d minutes", int(ttl.Minutes())),
				"retry_after": int(ttl.Seconds()),
			})
			return
		}

		attempts, _ := l.rdb.Get(ctx, key).Int()
		if attempts >= LoginMaxAttempts {
			l.rdb.Set(ctx, cooldownKey, "1", LoginCooldown)
			l.rdb.Del(ctx, key)

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de tentatives échouées. Compte bloqué pendant %d minutes", int(LoginCooldown.Minutes())),
				"retry_after": int(LoginCooldown.Seconds()),
			})
			return
		}

		// Le handler écrit sa réponse dans c.Next() : l'en-tête doit être posé avant
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", LoginMaxAttempts-attempts-1))
		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			pipe := l.rdb.Pipeline()
			pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, LoginCooldown)
			pipe.Exec(ctx)
		case http.StatusOK:
			l.rdb.Del(ctx, key, cooldownKey)
		}
	}
}

// Register limite les inscriptions réussies par IP.
func (l *RateLimiter) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()
		key := "register_attempts:" + ip

		attempts, _ := l.rdb.Get(ctx, key).Int()
		if attempts >= RegisterMaxAttempts {
			ttl := l.rdb.TTL(ctx, key).Val()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop d'inscriptions. Réessayez dans %d minutes", int(ttl.Minutes())),
				"retry_after": int(ttl.Seconds()),
			})
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusCreated {
			pipe := l.rdb.Pipeline()
			pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, RegisterCooldown)
			pipe.Exec(ctx)
		}
	}
}

// CartAdds limite les ajouts au panier par session (anti-spam).
func (l *RateLimiter) CartAdds(sessionKey func(*gin.Context) string) gin.HandlerFunc {
	return l.window("cart_add:", CartMaxAdds, "Trop d'ajouts au panier. Ralentissez un peu", sessionKey)
}

// Search limite les recherches par IP.
func (l *RateLimiter) Search() gin.HandlerFunc {
	return l.window("search_requests:", SearchMaxRequests, "Trop de recherches. Réessayez dans 1 minute", func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// window compte les requêtes sur une fenêtre fixe d'une minute.
func (l *RateLimiter) window(prefix string, max int, message string, id func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		who := id(c)
		if who == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := prefix + who

		requests, _ := l.rdb.Get(ctx, key).Int()
		if requests >= max {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       message,
				"retry_after": int(ShortWindow.Seconds()),
			})
			return
		}

		pipe := l.rdb.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ShortWindow)
		pipe.Exec(ctx)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", max))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", max-requests-1))
		c.Next()
	}
}
