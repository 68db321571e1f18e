// package identity maps external identities and local credentials onto user records.
package identity

import (
	"context"
	"errors"

	"codeberg.org/federate/server/federate/users"
)

var (
	ErrInvalidCredentials = errors.New("invalid email and/or password")
	ErrInvalidProfile     = errors.New("profile needs a provider and a provider user id")
)

// defines the user persistence the resolver needs
type Store interface {
	Create(ctx context.Context, u *users.User) (*users.User, error)
	FindByID(ctx context.Context, userID string) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	FindByProvider(ctx context.Context, provider, providerUserID string) (*users.User, error)
	Update(ctx context.Context, u *users.User) (*users.User, error)
}

// what a resolve did to the user store
type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged" // identity was already linked
	OutcomeMerged    Outcome = "merged"    // identity added to an account found by email
	OutcomeLinked    Outcome = "linked"    // identity added to the signed-in caller's account
	OutcomeCreated   Outcome = "created"
)

type Resolution struct {
	User    *users.User
	Outcome Outcome
}
