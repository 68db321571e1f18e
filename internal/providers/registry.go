package providers

import (
	"fmt"
	"net/http"
	"slices"
	"sort"

	"codeberg.org/federate/server/internal/config"
	"golang.org/x/time/rate"
)

// every provider the server knows how to talk to, configured or not
var supported = []string{
	"google",
	"github",
	"linkedin",
	"facebook",
	"yahoo",
	"twitter",
	"foursquare",
	"twitch",
	"bitbucket",
	"spotify",
}

// returns the names of all supported providers
func Names() []string {
	return slices.Clone(supported)
}

// reports whether name is a supported provider, regardless of configuration
func Known(name string) bool {
	return slices.Contains(supported, name)
}

// adapters keyed by provider name
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}

	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}

	return r
}

// returns the adapter registered for name
func (r *Registry) Lookup(name string) (Adapter, error) {
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	return adapter, nil
}

// returns the registered provider names, sorted
func (r *Registry) Enabled() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// builds adapters for every provider whose secret is configured
func NewRegistryFromConfig(cfg *config.Config, store RequestTokenStore, httpClient *http.Client) *Registry {
	limit := rate.Limit(cfg.ProviderRatePerSecond)
	if limit <= 0 {
		limit = rate.Inf
	}

	settings := func(creds config.Credentials) Settings {
		return Settings{
			ClientID:     creds.ClientID,
			ClientSecret: creds.Secret,
			HTTPClient:   httpClient,
			Timeout:      cfg.ProviderTimeout,
			Limiter:      rate.NewLimiter(limit, DefaultBurst),
		}
	}

	constructors := map[string]func(Settings) Adapter{
		"google":     func(s Settings) Adapter { return NewGoogle(s) },
		"github":     func(s Settings) Adapter { return NewGitHub(s) },
		"linkedin":   func(s Settings) Adapter { return NewLinkedIn(s) },
		"facebook":   func(s Settings) Adapter { return NewFacebook(s) },
		"yahoo":      func(s Settings) Adapter { return NewYahoo(s) },
		"foursquare": func(s Settings) Adapter { return NewFoursquare(s) },
		"twitch":     func(s Settings) Adapter { return NewTwitch(s) },
		"bitbucket":  func(s Settings) Adapter { return NewBitbucket(s) },
		"spotify":    func(s Settings) Adapter { return NewSpotify(s) },
	}

	var adapters []Adapter

	for name, creds := range cfg.OAuth2Credentials() {
		if creds.Secret == "" {
			continue
		}

		adapters = append(adapters, constructors[name](settings(creds)))
	}

	if cfg.Twitter.Key != "" && cfg.Twitter.Secret != "" {
		adapters = append(adapters, NewTwitter(settings(config.Credentials{
			ClientID: cfg.Twitter.Key,
			Secret:   cfg.Twitter.Secret,
		}), store))
	}

	return NewRegistry(adapters...)
}
