package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/federate/server/federate/users"
	"codeberg.org/federate/server/internal/lock"
	"codeberg.org/federate/server/internal/providers"
)

// finds, creates or merges local users for external identities.
// lock order is always email before user so nested locks never deadlock.
type Resolver struct {
	store   Store
	locker  lock.Locker
	maxHold time.Duration
}

// store calls made under a lock are cut off this long after it was taken
const maxLockHold = lock.DefaultTTL - 3*time.Second

func NewResolver(store Store, locker lock.Locker) *Resolver {
	return &Resolver{store: store, locker: locker, maxHold: maxLockHold}
}

// resolves profile, obtained from provider, to a local user.
// callerUserID is set when a signed-in user is linking another provider.
func (r *Resolver) Resolve(ctx context.Context, profile providers.Profile, provider, callerUserID string) (*Resolution, error) {
	if provider == "" || profile.ProviderID == "" {
		return nil, ErrInvalidProfile
	}

	profile.Email = users.NormalizeEmail(profile.Email)

	switch {
	case callerUserID != "":
		return r.link(ctx, callerUserID, profile, provider)
	case profile.Email != "":
		return r.resolveByEmail(ctx, profile, provider)
	default:
		return r.resolveByProvider(ctx, profile, provider)
	}
}

// the caller's account is the target whatever email the provider reports.
// the caller may adopt the email, so it is locked first like any other email write.
func (r *Resolver) link(ctx context.Context, userID string, profile providers.Profile, provider string) (*Resolution, error) {
	var res *Resolution

	linkUser := func(ctx context.Context) error {
		return r.withLock(ctx, userKey(userID), func(ctx context.Context) error {
			var err error
			res, err = r.attach(ctx, userID, profile, provider, OutcomeLinked)
			return err
		})
	}

	if profile.Email == "" {
		err := linkUser(ctx)
		return res, err
	}

	err := r.withLock(ctx, emailKey(profile.Email), func(ctx context.Context) error {
		// an email owned by another account stays with it
		switch err := r.ensureEmailFree(ctx, profile.Email, userID); {
		case errors.Is(err, users.ErrDuplicateEmail):
			profile.Email = ""
		case err != nil:
			return err
		}

		return linkUser(ctx)
	})

	return res, err
}

func (r *Resolver) resolveByEmail(ctx context.Context, profile providers.Profile, provider string) (*Resolution, error) {
	var res *Resolution

	err := r.withLock(ctx, emailKey(profile.Email), func(ctx context.Context) error {
		existing, err := r.store.FindByEmail(ctx, profile.Email)

		switch {
		case errors.Is(err, users.ErrNotFound):
			res, err = r.create(ctx, profile, provider)
			return err
		case err != nil:
			return fmt.Errorf("failed to find user by email: %w", err)
		}

		return r.withLock(ctx, userKey(existing.ID), func(ctx context.Context) error {
			res, err = r.attach(ctx, existing.ID, profile, provider, OutcomeMerged)
			return err
		})
	})

	return res, err
}

// the provider withheld the email, so the identity itself is the only key
func (r *Resolver) resolveByProvider(ctx context.Context, profile providers.Profile, provider string) (*Resolution, error) {
	var res *Resolution

	err := r.withLock(ctx, providerKey(provider, profile.ProviderID), func(ctx context.Context) error {
		existing, err := r.store.FindByProvider(ctx, provider, profile.ProviderID)

		switch {
		case err == nil:
			res = &Resolution{User: existing, Outcome: OutcomeUnchanged}
			return nil
		case errors.Is(err, users.ErrNotFound):
			res, err = r.create(ctx, profile, provider)
			return err
		default:
			return fmt.Errorf("failed to find user by provider: %w", err)
		}
	})

	return res, err
}

// re-reads userID under its lock and links the identity if it is not linked already
func (r *Resolver) attach(ctx context.Context, userID string, profile providers.Profile, provider string, outcome Outcome) (*Resolution, error) {
	u, err := r.store.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	// repeat logins keep the stored record as is
	if linked, ok := u.LinkedTo(provider); ok && linked == profile.ProviderID {
		return &Resolution{User: u, Outcome: OutcomeUnchanged}, nil
	}

	u.Link(provider, profile.ProviderID)
	fillEmpty(u, profile)

	updated, err := r.store.Update(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return &Resolution{User: updated, Outcome: outcome}, nil
}

func (r *Resolver) create(ctx context.Context, profile providers.Profile, provider string) (*Resolution, error) {
	u := &users.User{
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		Picture:     profile.PictureURL,
	}

	u.Link(provider, profile.ProviderID)

	created, err := r.store.Create(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &Resolution{User: created, Outcome: OutcomeCreated}, nil
}

// provider data never overwrites what the account already has
func fillEmpty(u *users.User, profile providers.Profile) {
	if u.DisplayName == "" {
		u.DisplayName = profile.DisplayName
	}

	if u.Picture == "" {
		u.Picture = profile.PictureURL
	}

	if u.Email == "" {
		u.Email = profile.Email
	}
}

// removes provider from the user's linked identities; a missing entry is not an error
func (r *Resolver) Unlink(ctx context.Context, userID, provider string) (*users.User, error) {
	var result *users.User

	err := r.withLock(ctx, userKey(userID), func(ctx context.Context) error {
		u, err := r.store.FindByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}

		if !u.Unlink(provider) {
			result = u
			return nil
		}

		result, err = r.store.Update(ctx, u)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		return nil
	})

	return result, err
}

// returns the user's own record
func (r *Resolver) Profile(ctx context.Context, userID string) (*users.User, error) {
	u, err := r.store.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return u, nil
}

// applies the non-empty fields of req to the user
func (r *Resolver) UpdateProfile(ctx context.Context, userID string, req users.UpdateProfileRequest) (*users.User, error) {
	email := users.NormalizeEmail(req.Email)

	update := func(ctx context.Context) (*users.User, error) {
		var result *users.User

		err := r.withLock(ctx, userKey(userID), func(ctx context.Context) error {
			u, err := r.store.FindByID(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to load user: %w", err)
			}

			if req.DisplayName != "" {
				u.DisplayName = req.DisplayName
			}

			if email != "" && email != u.Email {
				if err := r.ensureEmailFree(ctx, email, u.ID); err != nil {
					return err
				}

				u.Email = email
			}

			result, err = r.store.Update(ctx, u)
			if err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}

			return nil
		})

		return result, err
	}

	if email == "" {
		return update(ctx)
	}

	var result *users.User

	err := r.withLock(ctx, emailKey(email), func(ctx context.Context) error {
		var err error
		result, err = update(ctx)
		return err
	})

	return result, err
}

func (r *Resolver) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := r.store.FindByEmail(ctx, email)

	switch {
	case errors.Is(err, users.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to find user by email: %w", err)
	case existing.ID != ownerID:
		return users.ErrDuplicateEmail
	default:
		return nil
	}
}

// runs fn holding key; fn's context ends before the lock can expire under it
func (r *Resolver) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlock, err := r.locker.Acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	defer func() {
		// a lost release only delays the next holder until the lock's TTL
		_ = unlock(context.WithoutCancel(ctx))
	}()

	held, cancel := context.WithTimeout(ctx, r.maxHold)
	defer cancel()

	return fn(held)
}

func emailKey(email string) string {
	return "email:" + email
}

func userKey(userID string) string {
	return "user:" + userID
}

func providerKey(provider, providerUserID string) string {
	return "provider:" + provider + ":" + providerUserID
}
