// Package auth gère l'identité : inscription, connexion, hash des mots de
// passe, tokens et contrôle des rôles.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"shopfront/internal/models"
	"shopfront/internal/session"
	"shopfront/internal/store"
)

var (
	ErrUnauthenticated    = errors.New("non authentifié")
	ErrInvalidCredentials = errors.New("email ou mot de passe incorrect")
	ErrEmailTaken         = errors.New("email déjà utilisé")
	ErrInvalidRole        = errors.New("rôle non autorisé")
	ErrInvalidInput       = errors.New("données invalides")
)

const MinPasswordLength = 8

type Identity struct {
	users store.Users
}

func NewIdentity(users store.Users) *Identity {
	return &Identity{users: users}
}

// CurrentUser résout l'utilisateur de la session. Un compte supprimé depuis
// la connexion est traité comme une session anonyme.
func (i *Identity) CurrentUser(ctx context.Context, s session.Session) (*models.Principal, error) {
	if !s.Authenticated() {
		return nil, ErrUnauthenticated
	}
	u, err := i.users.FindByID(ctx, s.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return u.Principal(), nil
}

type Registration struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// Register crée un compte local. Seuls customer et seller sont ouverts à
// l'inscription ; allowAdmin sert à l'amorçage de l'administrateur.
func (i *Identity) Register(ctx context.Context, r Registration, allowAdmin bool) (*models.User, error) {
	email, err := normalizeEmail(r.Email)
	if err != nil {
		return nil, err
	}
	if len(r.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: mot de passe trop court (%d caractères minimum)", ErrInvalidInput, MinPasswordLength)
	}

	role := r.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if role == models.RoleAdmin && !allowAdmin {
		return nil, ErrInvalidRole
	}
	if _, ok := models.ParseRole(string(role)); !ok {
		return nil, ErrInvalidRole
	}

	hash, err := HashPassword(r.Password)
	if err != nil {
		return nil, fmt.Errorf("hash mot de passe: %w", err)
	}

	u := &models.User{
		Name:     strings.TrimSpace(r.Name),
		Email:    email,
		Password: hash,
		Role:     role,
		Provider: "local",
	}
	if err := i.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Authenticate vérifie les identifiants ; un hash ancien est remplacé par
// un hash Argon2id à la volée.
func (i *Identity) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	u, err := i.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.Password == "" {
		// compte créé via OAuth
		return nil, ErrInvalidCredentials
	}

	ok, err := VerifyPassword(password, u.Password)
	if err != nil {
		log.Printf("⚠️ Hash illisible pour %s: %v", u.Email, err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if NeedsRehash(u.Password) {
		if hash, err := HashPassword(password); err == nil {
			if err := i.users.UpdatePassword(ctx, u.ID, hash); err != nil {
				log.Printf("⚠️ Rehash impossible pour %s: %v", u.Email, err)
			} else {
				u.Password = hash
				log.Printf("🔐 Hash migré vers Argon2id pour %s", u.Email)
			}
		}
	}
	return u, nil
}

type ExternalAccount struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
}

// FindOrCreateExternal rattache un compte OAuth : par provider, puis par email
// (comptes clients uniquement), sinon création d'un client. Un compte vendeur
// ou admin portant le même email donne ErrEmailTaken.
func (i *Identity) FindOrCreateExternal(ctx context.Context, a ExternalAccount) (*models.User, error) {
	u, err := i.users.FindByProvider(ctx, a.Provider, a.ProviderID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	email, err := normalizeEmail(a.Email)
	if err != nil {
		return nil, err
	}
	u, err = i.users.FindByEmail(ctx, email)
	if err == nil {
		if u.Role != models.RoleCustomer {
			log.Printf("⚠️ Connexion %s refusée : %s est un compte %s", a.Provider, email, u.Role)
			return nil, ErrEmailTaken
		}
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	u = &models.User{
		Name:       a.Name,
		Email:      email,
		Role:       models.RoleCustomer,
		Provider:   a.Provider,
		ProviderID: a.ProviderID,
	}
	if err := i.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	log.Printf("✅ Compte %s créé pour %s", a.Provider, email)
	return u, nil
}

// EnsureAdmin crée le compte administrateur s'il n'existe pas.
func (i *Identity) EnsureAdmin(ctx context.Context, email, password string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	u, err := i.users.FindByEmail(ctx, normalized)
	if err == nil {
		if u.Role != models.RoleAdmin {
			return fmt.Errorf("%s existe déjà avec le rôle %s", normalized, u.Role)
		}
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	_, err = i.Register(ctx, Registration{Name: "Admin", Email: normalized, Password: password, Role: models.RoleAdmin}, true)
	if err == nil {
		log.Printf("👑 Administrateur %s créé", normalized)
	}
	return err
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: email invalide", ErrInvalidInput)
	}
	return email, nil
}
