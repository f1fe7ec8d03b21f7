package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shopfront/internal/models"
	"shopfront/internal/store"
)

const userColumns = `id, name, email, password, role, provider, provider_id, created_at`

type Users struct {
	db *sql.DB
}

func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

func scanUser(s scanner) (*models.User, error) {
	u := &models.User{}
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.Provider, &u.ProviderID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *Users) findOne(ctx context.Context, where string, args ...any) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...)
	u, err := scanUser(row)
	if notFound(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture utilisateur: %w", err)
	}
	return u, nil
}

func (r *Users) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `email = $1`, email)
}

func (r *Users) FindByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	return r.findOne(ctx, `provider = $1 AND provider_id = $2`, provider, providerID)
}

func (r *Users) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.Email, u.Password, u.Role, u.Provider, u.ProviderID, u.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", u.Email, store.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("création utilisateur: %w", err)
	}
	return nil
}

func (r *Users) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("mise à jour mot de passe: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Users) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at, id`, role)
	if err != nil {
		return nil, fmt.Errorf("lecture utilisateurs: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("lecture utilisateur: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
