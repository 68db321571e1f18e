package users

import (
	"context"

	"codeberg.org/federate/server/federate/users"
)

// defines the interface for reading and editing the caller's own record
type ProfileService interface {
	Profile(ctx context.Context, userID string) (*users.User, error)
	UpdateProfile(ctx context.Context, userID string, req users.UpdateProfileRequest) (*users.User, error)
}
