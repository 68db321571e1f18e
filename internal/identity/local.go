package identity

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/federate/server/federate/users"
	"golang.org/x/crypto/bcrypt"
)

// creates a password account; the email must not belong to any user yet
func (r *Resolver) Register(ctx context.Context, displayName, email, password string) (*users.User, error) {
	email = users.NormalizeEmail(email)

	var created *users.User

	err := r.withLock(ctx, emailKey(email), func(ctx context.Context) error {
		if err := r.ensureEmailFree(ctx, email, ""); err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		created, err = r.store.Create(ctx, &users.User{
			Email:        email,
			DisplayName:  displayName,
			PasswordHash: string(hash),
		})
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		return nil
	})

	return created, err
}

// checks an email and password pair against a password account
func (r *Resolver) Authenticate(ctx context.Context, email, password string) (*users.User, error) {
	u, err := r.store.FindByEmail(ctx, users.NormalizeEmail(email))
	if errors.Is(err, users.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	// federated-only accounts have no password to compare against
	if !u.HasPassword() {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}
