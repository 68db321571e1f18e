package users

import "strings"

// lowercases and trims an email so it can be compared and stored
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// records providerUserID as the identity for provider, replacing any previous one
func (u *User) Link(provider, providerUserID string) {
	if u.LinkedProviders == nil {
		u.LinkedProviders = make(map[string]string)
	}

	u.LinkedProviders[provider] = providerUserID
}

// removes the provider entry and reports whether one existed
func (u *User) Unlink(provider string) bool {
	if _, ok := u.LinkedProviders[provider]; !ok {
		return false
	}

	delete(u.LinkedProviders, provider)
	return true
}

// returns the provider user id linked under provider
func (u *User) LinkedTo(provider string) (string, bool) {
	id, ok := u.LinkedProviders[provider]
	return id, ok
}

// true when the account was registered with a password
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// returns a deep copy so callers can mutate it freely
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	out := *u
	out.LinkedProviders = make(map[string]string, len(u.LinkedProviders))

	for k, v := range u.LinkedProviders {
		out.LinkedProviders[k] = v
	}

	return &out
}
