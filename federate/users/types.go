package users

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// subset of pgxpool.Pool used by the repository
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// handles user database operations
type Repository struct {
	db DB
}

// represents a local account and every external identity linked to it
type User struct {
	ID              string            `json:"id"`
	Email           string            `json:"email"`
	PasswordHash    string            `json:"-"`
	DisplayName     string            `json:"displayName"`
	Picture         string            `json:"picture"`
	LinkedProviders map[string]string `json:"linkedProviders"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// contains data for updating a user's profile
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName" binding:"max=100"`
	Email       string `json:"email" binding:"omitempty,email,max=254"`
}
