package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// creates a new user repository
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// inserts a new user and returns the stored row
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	providers, err := encodeProviders(u.LinkedProviders)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(
		ctx,
		queryCreate,
		NormalizeEmail(u.Email),
		nullableString(u.PasswordHash),
		u.DisplayName,
		u.Picture,
		providers,
	)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// finds a user by their ID
func (r *Repository) FindByID(ctx context.Context, userID string) (*User, error) {
	// ids are issued by the database as uuids, anything else cannot match
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrNotFound
	}

	return r.findOne(ctx, queryFindByID, userID)
}

// finds the oldest user registered with email
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}

	return r.findOne(ctx, queryFindByEmail, email)
}

// finds the user that has providerUserID linked under provider
func (r *Repository) FindByProvider(ctx context.Context, provider, providerUserID string) (*User, error) {
	return r.findOne(ctx, queryFindByProvider, provider, providerUserID)
}

// writes email, profile fields and linked providers back to the store
func (r *Repository) Update(ctx context.Context, u *User) (*User, error) {
	providers, err := encodeProviders(u.LinkedProviders)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(
		ctx,
		queryUpdate,
		NormalizeEmail(u.Email),
		u.DisplayName,
		u.Picture,
		providers,
		u.ID,
	)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return user, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		user         User
		passwordHash *string
		providers    map[string]string
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&passwordHash,
		&user.DisplayName,
		&user.Picture,
		&providers,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}

	if providers == nil {
		providers = make(map[string]string)
	}

	user.LinkedProviders = providers

	return &user, nil
}

// jsonb parameters are sent as text so the simple protocol works behind poolers
func encodeProviders(providers map[string]string) (string, error) {
	if providers == nil {
		providers = map[string]string{}
	}

	b, err := json.Marshal(providers)
	if err != nil {
		return "", fmt.Errorf("failed to encode linked providers: %w", err)
	}

	return string(b), nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
