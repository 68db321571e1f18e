package federation

import (
	"context"
	"fmt"

	"codeberg.org/federate/server/federate/users"
	"codeberg.org/federate/server/internal/logger"
	"codeberg.org/federate/server/internal/metrics"
	"codeberg.org/federate/server/internal/providers"
	"github.com/markbates/goth"
)

func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		providers: deps.Providers,
		resolver:  deps.Resolver,
		sessions:  deps.Sessions,
	}
}

// exchanges the client's authorization code with the provider and returns a session token.
// oauth1 providers called without a verifier stop after issuing a request token.
func (o *Orchestrator) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	adapter, err := o.lookup(req.Provider)
	if err != nil {
		return nil, o.fail(ctx, req.Provider, StateStart, KindUnknownProvider, err)
	}

	if issuer, ok := adapter.(providers.RequestTokenIssuer); ok && (req.OAuthToken == "" || req.OAuthVerifier == "") {
		return o.issueRequestToken(ctx, req, issuer)
	}

	exchange := providers.ExchangeRequest{
		Code:          req.Code,
		ClientID:      req.ClientID,
		RedirectURI:   req.RedirectURI,
		OAuthToken:    req.OAuthToken,
		OAuthVerifier: req.OAuthVerifier,
	}

	if err := validate(adapter, exchange); err != nil {
		return nil, o.fail(ctx, req.Provider, StateStart, KindValidation, err)
	}

	done := metrics.ObserveProviderCall(req.Provider, "exchange")
	tok, err := adapter.ExchangeCode(ctx, exchange)
	done()

	if err != nil {
		return nil, o.fail(ctx, req.Provider, StateStart, KindProvider, err)
	}

	done = metrics.ObserveProviderCall(req.Provider, "profile")
	profile, err := adapter.FetchProfile(ctx, tok)
	done()

	if err != nil {
		return nil, o.fail(ctx, req.Provider, StateTokenExchanged, KindProvider, err)
	}

	return o.complete(ctx, req.Provider, *profile, req.CallerUserID)
}

// continues a login whose profile was fetched by the goth redirect flow
func (o *Orchestrator) CompleteRedirect(ctx context.Context, gothUser goth.User) (*Result, error) {
	if !providers.Known(gothUser.Provider) {
		return nil, o.fail(ctx, gothUser.Provider, StateStart, KindUnknownProvider,
			fmt.Errorf("%w: %s", providers.ErrUnknownProvider, gothUser.Provider))
	}

	name := gothUser.Name
	if name == "" {
		name = gothUser.NickName
	}

	profile := providers.Profile{
		ProviderID:  gothUser.UserID,
		Email:       gothUser.Email,
		DisplayName: name,
		PictureURL:  gothUser.AvatarURL,
	}

	return o.complete(ctx, gothUser.Provider, profile, "")
}

// ProfileFetched -> IdentityResolved -> SessionIssued
func (o *Orchestrator) complete(ctx context.Context, provider string, profile providers.Profile, callerUserID string) (*Result, error) {
	resolution, err := o.resolver.Resolve(ctx, profile, provider, callerUserID)
	if err != nil {
		return nil, o.fail(ctx, provider, StateProfileFetched, KindResolve, err)
	}

	metrics.ResolveTotal.WithLabelValues(provider, string(resolution.Outcome)).Inc()

	token, err := o.sessions.Issue(resolution.User.ID)
	if err != nil {
		return nil, o.fail(ctx, provider, StateIdentityResolved, KindSession, err)
	}

	metrics.FederationTotal.WithLabelValues(provider, string(StateSessionIssued), "").Inc()

	logger.FromContext(ctx).Info("federated login",
		"provider", provider,
		"user_id", resolution.User.ID,
		"outcome", resolution.Outcome,
		"link", callerUserID != "",
	)

	return &Result{
		State:   StateSessionIssued,
		Token:   token,
		User:    resolution.User,
		Outcome: resolution.Outcome,
	}, nil
}

func (o *Orchestrator) issueRequestToken(ctx context.Context, req LoginRequest, issuer providers.RequestTokenIssuer) (*Result, error) {
	if req.RedirectURI == "" {
		return nil, o.fail(ctx, req.Provider, StateStart, KindValidation,
			fmt.Errorf("%w: redirectUri is required", ErrValidation))
	}

	done := metrics.ObserveProviderCall(req.Provider, "request_token")
	requestToken, err := issuer.RequestToken(ctx, req.RedirectURI)
	done()

	if err != nil {
		return nil, o.fail(ctx, req.Provider, StateStart, KindProvider, err)
	}

	metrics.FederationTotal.WithLabelValues(req.Provider, string(StateRequestTokenIssued), "").Inc()

	return &Result{
		State:        StateRequestTokenIssued,
		RequestToken: requestToken,
	}, nil
}

// removes provider from the caller's linked identities
func (o *Orchestrator) Unlink(ctx context.Context, callerUserID, provider string) (*users.User, error) {
	if !providers.Known(provider) {
		return nil, &Error{
			Kind:     KindUnknownProvider,
			Provider: provider,
			Step:     StateStart,
			Err:      fmt.Errorf("%w: %s", providers.ErrUnknownProvider, provider),
		}
	}

	u, err := o.resolver.Unlink(ctx, callerUserID, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to unlink %s: %w", provider, err)
	}

	logger.FromContext(ctx).Info("provider unlinked", "provider", provider, "user_id", callerUserID)

	return u, nil
}

// checks an email and password pair and returns a session token
func (o *Orchestrator) SignIn(ctx context.Context, email, password string) (*Result, error) {
	u, err := o.resolver.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return o.session(u)
}

// creates a password account and returns a session token for it
func (o *Orchestrator) SignUp(ctx context.Context, displayName, email, password string) (*Result, error) {
	u, err := o.resolver.Register(ctx, displayName, email, password)
	if err != nil {
		return nil, err
	}

	return o.session(u)
}

func (o *Orchestrator) session(u *users.User) (*Result, error) {
	token, err := o.sessions.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &Result{State: StateSessionIssued, Token: token, User: u}, nil
}

func (o *Orchestrator) lookup(provider string) (providers.Adapter, error) {
	if !providers.Known(provider) {
		return nil, fmt.Errorf("%w: %s", providers.ErrUnknownProvider, provider)
	}

	return o.providers.Lookup(provider)
}

// implemented by adapters that resolve a default client id from configuration
type clientIDResolver interface {
	ClientID(req providers.ExchangeRequest) string
}

// rejects requests that cannot succeed before any call leaves the process
func validate(adapter providers.Adapter, req providers.ExchangeRequest) error {
	if _, oauth1 := adapter.(providers.RequestTokenIssuer); oauth1 {
		return nil
	}

	if req.Code == "" {
		return fmt.Errorf("%w: code is required", ErrValidation)
	}

	clientID := req.ClientID
	if r, ok := adapter.(clientIDResolver); ok {
		clientID = r.ClientID(req)
	}

	if clientID == "" {
		return fmt.Errorf("%w: clientId is required", ErrValidation)
	}

	return nil
}

func (o *Orchestrator) fail(ctx context.Context, provider string, step State, kind FailureKind, err error) *Error {
	// caller-supplied names must not become label values
	label := provider
	if !providers.Known(label) {
		label = "unknown"
	}

	metrics.FederationTotal.WithLabelValues(label, string(StateFailed), string(kind)).Inc()

	logger.FromContext(ctx).Info("federated login failed",
		"provider", provider,
		"step", step,
		"kind", kind,
		"error", err,
	)

	return &Error{
		Kind:     kind,
		Provider: provider,
		Step:     step,
		Err:      err,
	}
}
