package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID `json:"user_id"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email"`
	Password   string    `json:"-"`
	Role       Role      `json:"role"`
	Provider   string    `json:"provider,omitempty"`
	ProviderID string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Principal est l'identité authentifiée attachée à une requête
type Principal struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

func (u *User) Principal() *Principal {
	return &Principal{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
