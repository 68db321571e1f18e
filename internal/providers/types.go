// package providers exchanges OAuth authorization codes with external identity
// providers and normalizes the profile each one returns.
package providers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultRate      = 20
	DefaultBurst     = 5
	defaultUserAgent = "federate-server"
)

// a provider's user profile mapped onto the fields the resolver needs
type Profile struct {
	ProviderID  string
	Email       string // may be empty when the provider withholds it
	DisplayName string
	PictureURL  string
}

// the values a client sends back after the provider redirected to it
type ExchangeRequest struct {
	Code        string
	ClientID    string
	RedirectURI string

	// oauth1 second phase
	OAuthToken    string
	OAuthVerifier string
}

// credentials obtained from the token endpoint
type Token struct {
	AccessToken string
	Secret      string            // oauth1 only
	Extra       map[string]string // provider-specific values needed by the profile call
}

// defines the interface every identity provider implements
type Adapter interface {
	Name() string
	ExchangeCode(ctx context.Context, req ExchangeRequest) (*Token, error)
	FetchProfile(ctx context.Context, tok *Token) (*Profile, error)
}

// implemented by oauth1 providers that need a request token before the user authorizes
type RequestTokenIssuer interface {
	RequestToken(ctx context.Context, callbackURL string) (*RequestToken, error)
}

// first-phase oauth1 response handed to the client; the secret stays server side
type RequestToken struct {
	OAuthToken             string `json:"oauth_token"`
	OAuthTokenSecret       string `json:"-"`
	OAuthCallbackConfirmed bool   `json:"oauth_callback_confirmed"`
}

// provider URLs; empty fields fall back to the production endpoints
type Endpoints struct {
	RequestToken string
	Authorize    string
	Token        string
	Profile      string
	Emails       string
}

// holds everything an adapter needs to talk to its provider
type Settings struct {
	ClientID     string // used when the request carries none
	ClientSecret string
	Endpoints    Endpoints
	HTTPClient   *http.Client
	Timeout      time.Duration
	Limiter      *rate.Limiter
	UserAgent    string
}

func (e Endpoints) merge(defaults Endpoints) Endpoints {
	pick := func(v, fallback string) string {
		if v != "" {
			return v
		}
		return fallback
	}

	return Endpoints{
		RequestToken: pick(e.RequestToken, defaults.RequestToken),
		Authorize:    pick(e.Authorize, defaults.Authorize),
		Token:        pick(e.Token, defaults.Token),
		Profile:      pick(e.Profile, defaults.Profile),
		Emails:       pick(e.Emails, defaults.Emails),
	}
}
