package auth

import (
	"fmt"
	"net/http"
	"strings"

	"codeberg.org/federate/server/internal/config"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/bitbucket"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	"github.com/markbates/goth/providers/linkedin"
	"github.com/markbates/goth/providers/spotify"
	"github.com/markbates/goth/providers/twitch"
	"github.com/markbates/goth/providers/twitter"
)

// sets up the server-driven redirect providers using goth and returns their names
func InitializeProviders(cfg *config.Config) ([]string, error) {
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET must be set")
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))

	// configure cookie for OAuth redirects
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300, // 5 minutes, enough for OAuth flow
		HttpOnly: true,
		Secure:   strings.HasPrefix(cfg.BaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	}

	gothic.Store = store

	callback := func(provider string) string {
		return cfg.BaseURL + "/auth/" + provider + "/callback"
	}

	var providers []goth.Provider

	if c := cfg.Google; configured(c) {
		providers = append(providers, google.New(c.ClientID, c.Secret, callback("google"), "email", "profile"))
	}

	if c := cfg.GitHub; configured(c) {
		providers = append(providers, github.New(c.ClientID, c.Secret, callback("github"), "user:email"))
	}

	if c := cfg.LinkedIn; configured(c) {
		providers = append(providers, linkedin.New(c.ClientID, c.Secret, callback("linkedin")))
	}

	if c := cfg.Facebook; configured(c) {
		providers = append(providers, facebook.New(c.ClientID, c.Secret, callback("facebook"), "email"))
	}

	if c := cfg.Twitch; configured(c) {
		providers = append(providers, twitch.New(c.ClientID, c.Secret, callback("twitch"), "user:read:email"))
	}

	if c := cfg.Bitbucket; configured(c) {
		providers = append(providers, bitbucket.New(c.ClientID, c.Secret, callback("bitbucket"), "account", "email"))
	}

	if c := cfg.Spotify; configured(c) {
		providers = append(providers, spotify.New(c.ClientID, c.Secret, callback("spotify"), "user-read-email"))
	}

	if cfg.Twitter.Key != "" && cfg.Twitter.Secret != "" {
		providers = append(providers, twitter.New(cfg.Twitter.Key, cfg.Twitter.Secret, callback("twitter")))
	}

	goth.UseProviders(providers...)

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}

	return names, nil
}

func configured(c config.Credentials) bool {
	return c.ClientID != "" && c.Secret != ""
}
