package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dghubble/oauth1"
)

var twitterEndpoints = Endpoints{
	RequestToken: "https://api.twitter.com/oauth/request_token",
	Authorize:    "https://api.twitter.com/oauth/authenticate",
	Token:        "https://api.twitter.com/oauth/access_token",
	Profile:      "https://api.twitter.com/1.1/account/verify_credentials.json",
}

// Twitter signs in over oauth1: a request token first, then the verifier exchange
type Twitter struct {
	client
	store RequestTokenStore
}

// settings.ClientID and ClientSecret carry the consumer key pair
func NewTwitter(settings Settings, store RequestTokenStore) *Twitter {
	if store == nil {
		store = NewMemoryRequestTokenStore()
	}

	return &Twitter{
		client: newClient("twitter", settings, twitterEndpoints),
		store:  store,
	}
}

func (t *Twitter) config(callbackURL string, httpClient *http.Client) *oauth1.Config {
	return &oauth1.Config{
		ConsumerKey:    t.settings.ClientID,
		ConsumerSecret: t.settings.ClientSecret,
		CallbackURL:    callbackURL,
		Endpoint: oauth1.Endpoint{
			RequestTokenURL: t.endpoints.RequestToken,
			AuthorizeURL:    t.endpoints.Authorize,
			AccessTokenURL:  t.endpoints.Token,
		},
		HTTPClient: httpClient,
	}
}

// obtains a request token for the authorization popup and keeps its secret for the second phase
func (t *Twitter) RequestToken(ctx context.Context, callbackURL string) (*RequestToken, error) {
	if callbackURL == "" {
		return nil, t.fail(http.StatusBadRequest, "missing redirect uri", nil)
	}

	callCtx, cancel, err := t.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	transport := t.handshakeTransport(callCtx)

	token, secret, err := t.config(callbackURL, &http.Client{Transport: transport}).RequestToken()
	if err != nil {
		return nil, t.handshakeError(callCtx, transport.status, err, "failed to obtain request token")
	}

	if err := t.store.Save(ctx, token, secret, DefaultRequestTokenTTL); err != nil {
		return nil, fmt.Errorf("failed to store request token: %w", err)
	}

	return &RequestToken{
		OAuthToken:             token,
		OAuthTokenSecret:       secret,
		OAuthCallbackConfirmed: true,
	}, nil
}

func (t *Twitter) ExchangeCode(ctx context.Context, req ExchangeRequest) (*Token, error) {
	if req.OAuthToken == "" || req.OAuthVerifier == "" {
		return nil, t.fail(http.StatusBadRequest, "missing oauth_token or oauth_verifier", nil)
	}

	// request tokens are single-use
	secret, err := t.store.Take(ctx, req.OAuthToken)
	if err != nil {
		return nil, t.fail(http.StatusBadRequest, "unknown or expired oauth_token", err)
	}

	callCtx, cancel, err := t.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	transport := t.handshakeTransport(callCtx)

	accessToken, accessSecret, err := t.config("", &http.Client{Transport: transport}).
		AccessToken(req.OAuthToken, secret, req.OAuthVerifier)
	if err != nil {
		return nil, t.handshakeError(callCtx, transport.status, err, "failed to obtain access token")
	}

	return &Token{AccessToken: accessToken, Secret: accessSecret}, nil
}

type twitterProfile struct {
	IDStr                string `json:"id_str"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
	ProfileImageURLHTTPS string `json:"profile_image_url_https"`
}

func (t *Twitter) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	baseCtx := context.WithValue(ctx, oauth1.HTTPClient, t.settings.HTTPClient)
	signed := t.config("", nil).Client(baseCtx, oauth1.NewToken(tok.AccessToken, tok.Secret))

	profileURL := withQuery(t.endpoints.Profile, url.Values{"include_email": {"true"}})

	var p twitterProfile
	if err := t.doJSON(ctx, signed, profileURL, nil, &p); err != nil {
		return nil, err
	}

	return t.profile(Profile{
		ProviderID:  p.IDStr,
		Email:       p.Email,
		DisplayName: p.Name,
		// _normal is the 48px variant
		PictureURL: strings.Replace(p.ProfileImageURLHTTPS, "_normal", "", 1),
	})
}

func (t *Twitter) handshakeTransport(ctx context.Context) *contextTransport {
	base := t.settings.HTTPClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	return &contextTransport{ctx: ctx, base: base}
}

func (t *Twitter) handshakeError(ctx context.Context, status int, err error, message string) *ProviderError {
	if status == 0 {
		return t.callError(ctx, err, message)
	}

	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}

	return t.fail(status, message, err)
}

// oauth1's token calls take no context, so the transport carries one and records the status
type contextTransport struct {
	ctx    context.Context
	base   http.RoundTripper
	status int
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req.WithContext(t.ctx))
	if resp != nil {
		t.status = resp.StatusCode
	}

	return resp, err
}
