// Package session porte l'identifiant de session du visiteur et, une fois
// connecté, l'id de l'utilisateur. Le panier est rattaché à Session.ID.
package session

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	CookieName = "shopfront_session"

	keySessionID = "sid"
	keyUserID    = "user_id"
	contextKey   = "session"
)

var ErrNoSession = errors.New("aucune session")

// Session est la vue d'une requête sur la session du visiteur.
type Session struct {
	ID     string
	UserID uuid.UUID
}

func (s Session) Authenticated() bool {
	return s.UserID != uuid.Nil
}

type Options struct {
	Secret []byte
	Secure bool
	// MaxAge en secondes ; aligné sur la durée de vie du panier.
	MaxAge int
}

type Manager struct {
	store *sessions.CookieStore
}

func NewManager(opts Options) *Manager {
	store := sessions.NewCookieStore(opts.Secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store}
}

// Store expose le store gorilla (utilisé aussi par gothic).
func (m *Manager) Store() sessions.Store {
	return m.store
}

// Load lit la session du cookie et en crée une nouvelle au premier passage.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (Session, error) {
	// Un cookie illisible (secret changé) donne une session neuve
	gs, _ := m.store.Get(r, CookieName)

	sid, _ := gs.Values[keySessionID].(string)
	if sid == "" {
		sid = uuid.NewString()
		gs.Values[keySessionID] = sid
		delete(gs.Values, keyUserID)
		if err := gs.Save(r, w); err != nil {
			return Session{}, err
		}
	}

	s := Session{ID: sid}
	if raw, ok := gs.Values[keyUserID].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			s.UserID = id
		}
	}
	return s, nil
}

// SetUser attache l'utilisateur à la session sessionID sans en changer l'id,
// ce qui garde le panier constitué avant la connexion.
func (m *Manager) SetUser(w http.ResponseWriter, r *http.Request, sessionID string, userID uuid.UUID) error {
	gs, _ := m.store.Get(r, CookieName)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	gs.Values[keySessionID] = sessionID
	gs.Values[keyUserID] = userID.String()
	return gs.Save(r, w)
}

// Destroy expire le cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	gs, _ := m.store.Get(r, CookieName)
	gs.Values = map[any]any{}
	gs.Options.MaxAge = -1
	return gs.Save(r, w)
}

// Set attache la session au contexte gin.
func Set(c *gin.Context, s Session) {
	c.Set(contextKey, s)
}

// Get retourne la session attachée par le middleware.
func Get(c *gin.Context) (Session, error) {
	s, ok := c.Get(contextKey)
	if !ok {
		return Session{}, ErrNoSession
	}
	return s.(Session), nil
}
