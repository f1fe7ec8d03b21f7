package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/auth"
	"shopfront/internal/models"
	"shopfront/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeIdentity struct {
	users map[uuid.UUID]*models.Principal
}

func (f fakeIdentity) CurrentUser(_ context.Context, s session.Session) (*models.Principal, error) {
	p, ok := f.users[s.UserID]
	if !ok {
		return nil, auth.ErrUnauthenticated
	}
	return p, nil
}

func newManager() *session.Manager {
	return session.NewManager(session.Options{Secret: []byte("0123456789abcdef0123456789abcdef"), MaxAge: 3600})
}

func echoSession(c *gin.Context) {
	s, err := session.Get(c)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sid": s.ID, "user_id": s.UserID.String()})
}

func TestSessions_CookieCreatesSession(t *testing.T) {
	r := gin.New()
	r.Use(Sessions(newManager(), auth.NewTokenIssuer("secret", time.Hour)))
	r.GET("/", echoSession)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), session.CookieName)
	assert.Contains(t, w.Body.String(), uuid.Nil.String())
}

func TestSessions_BearerCarriesSessionID(t *testing.T) {
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	p := &models.Principal{UserID: uuid.New(), Email: "ana@example.com", Role: models.RoleCustomer}
	raw, err := tokens.Issue(p, "sid-123")
	require.NoError(t, err)

	r := gin.New()
	r.Use(Sessions(newManager(), tokens))
	r.GET("/", echoSession)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sid":"sid-123"`)
	assert.Contains(t, w.Body.String(), p.UserID.String())
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

func TestSessions_RejectsBadBearer(t *testing.T) {
	r := gin.New()
	r.Use(Sessions(newManager(), auth.NewTokenIssuer("secret", time.Hour)))
	r.GET("/", echoSession)

	for _, header := range []string{"Bearer nope", "Token abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func authRouter(identity Identity, s session.Session, roles ...models.Role) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) { session.Set(c, s) })
	r.GET("/", RequireAuth(identity), RequireRole(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, Principal(c).Email)
	})
	return r
}

func TestRequireAuthAndRole(t *testing.T) {
	seller := &models.Principal{UserID: uuid.New(), Email: "sel@example.com", Role: models.RoleSeller}
	identity := fakeIdentity{users: map[uuid.UUID]*models.Principal{seller.UserID: seller}}

	cases := []struct {
		name  string
		s     session.Session
		roles []models.Role
		code  int
	}{
		{"anonyme", session.Session{ID: "a"}, nil, http.StatusUnauthorized},
		{"compte supprimé", session.Session{ID: "a", UserID: uuid.New()}, nil, http.StatusUnauthorized},
		{"authentifié", session.Session{ID: "a", UserID: seller.UserID}, nil, http.StatusOK},
		{"bon rôle", session.Session{ID: "a", UserID: seller.UserID}, []models.Role{models.RoleSeller, models.RoleAdmin}, http.StatusOK},
		{"mauvais rôle", session.Session{ID: "a", UserID: seller.UserID}, []models.Role{models.RoleAdmin}, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			authRouter(identity, tc.s, tc.roles...).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.code, w.Code)
			if tc.code == http.StatusOK {
				assert.Equal(t, seller.Email, w.Body.String())
			}
		})
	}
}

func TestLoginRateLimit_CooldownAfterFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	status := http.StatusUnauthorized
	r := gin.New()
	r.POST("/login", NewRateLimiter(rdb).Login(), func(c *gin.Context) {
		c.Status(status)
	})

	login := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"Ana@Example.com"}`))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < LoginMaxAttempts; i++ {
		assert.Equal(t, http.StatusUnauthorized, login().Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, login().Code)
	assert.True(t, mr.Exists("login_cooldown:ana@example.com"))

	status = http.StatusOK
	assert.Equal(t, http.StatusTooManyRequests, login().Code)

	mr.FastForward(LoginCooldown + time.Second)
	assert.Equal(t, http.StatusOK, login().Code)
	assert.False(t, mr.Exists("login_attempts:ana@example.com"))
}

func TestLoginRateLimit_BodyStillReadable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	r := gin.New()
	r.POST("/login", NewRateLimiter(rdb).Login(), func(c *gin.Context) {
		var in struct {
			Email string `json:"email"`
		}
		require.NoError(t, c.ShouldBindJSON(&in))
		c.String(http.StatusOK, in.Email)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.c"}`)))
	assert.Equal(t, "a@b.c", w.Body.String())
}

func TestSearchRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	r := gin.New()
	r.GET("/search", NewRateLimiter(rdb).Search(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < SearchMaxRequests; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
