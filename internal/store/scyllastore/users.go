package scyllastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"shopfront/internal/models"
	"shopfront/internal/store"
)

const userColumns = `user_id, name, email, password, role, provider, provider_id, created_at`

type Users struct {
	session *gocql.Session
}

func NewUsers(session *gocql.Session) *Users {
	return &Users{session: session}
}

func (s *Users) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var (
		uid  gocql.UUID
		role string
		u    models.User
	)
	err := s.session.Query(`SELECT `+userColumns+` FROM users WHERE user_id = ?`, toCQLUUID(id)).
		WithContext(ctx).
		Scan(&uid, &u.Name, &u.Email, &u.Password, &role, &u.Provider, &u.ProviderID, &u.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture utilisateur: %w", err)
	}
	u.ID = fromCQLUUID(uid)
	u.Role = models.Role(role)
	return &u, nil
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.lookup(ctx, `SELECT user_id FROM users_by_email WHERE email = ?`, email)
}

func (s *Users) FindByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	return s.lookup(ctx, `SELECT user_id FROM users_by_provider WHERE provider = ? AND provider_id = ?`, provider, providerID)
}

func (s *Users) lookup(ctx context.Context, cql string, args ...any) (*models.User, error) {
	var uid gocql.UUID
	err := s.session.Query(cql, args...).WithContext(ctx).Scan(&uid)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture index utilisateur: %w", err)
	}
	return s.FindByID(ctx, fromCQLUUID(uid))
}

// Create réserve l'email par une transaction légère avant d'écrire le reste.
func (s *Users) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	applied, err := s.session.Query(`INSERT INTO users_by_email (email, user_id) VALUES (?, ?) IF NOT EXISTS`,
		u.Email, toCQLUUID(u.ID)).WithContext(ctx).MapScanCAS(map[string]any{})
	if err != nil {
		return fmt.Errorf("réservation email: %w", err)
	}
	if !applied {
		return fmt.Errorf("email %s: %w", u.Email, store.ErrDuplicate)
	}

	err = execBatch(ctx, s.session, gocql.LoggedBatch, userStatements(u))
	if err != nil {
		return fmt.Errorf("création utilisateur: %w", err)
	}
	return nil
}

func userStatements(u *models.User) []statement {
	stmts := []statement{
		{
			cql: `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			args: []any{toCQLUUID(u.ID), u.Name, u.Email, u.Password, string(u.Role),
				u.Provider, u.ProviderID, u.CreatedAt},
		},
		{
			cql:  `INSERT INTO users_by_role (role, created_at, user_id) VALUES (?, ?, ?)`,
			args: []any{string(u.Role), u.CreatedAt, toCQLUUID(u.ID)},
		},
	}
	if u.Provider != "" {
		stmts = append(stmts, statement{
			cql:  `INSERT INTO users_by_provider (provider, provider_id, user_id) VALUES (?, ?, ?)`,
			args: []any{u.Provider, u.ProviderID, toCQLUUID(u.ID)},
		})
	}
	return stmts
}

func (s *Users) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	applied, err := s.session.Query(`UPDATE users SET password = ? WHERE user_id = ? IF EXISTS`, hash, toCQLUUID(id)).
		WithContext(ctx).MapScanCAS(map[string]any{})
	if err != nil {
		return fmt.Errorf("mise à jour mot de passe: %w", err)
	}
	if !applied {
		return store.ErrNotFound
	}
	return nil
}

func (s *Users) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	iter := s.session.Query(`SELECT user_id FROM users_by_role WHERE role = ?`, string(role)).WithContext(ctx).Iter()

	var ids []uuid.UUID
	var uid gocql.UUID
	for iter.Scan(&uid) {
		ids = append(ids, fromCQLUUID(uid))
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture utilisateurs: %w", err)
	}

	users := []models.User{}
	for _, id := range ids {
		u, err := s.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}
