package federation

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"codeberg.org/federate/server/federate/users"
	"codeberg.org/federate/server/internal/auth"
	"codeberg.org/federate/server/internal/identity"
	"codeberg.org/federate/server/internal/lock"
	"codeberg.org/federate/server/internal/providers"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adapter returning canned results and recording what it was asked
type fakeAdapter struct {
	name             string
	configuredClient string
	profile          providers.Profile
	exchangeErr      error
	profileErr       error

	exchanges []providers.ExchangeRequest
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) ClientID(req providers.ExchangeRequest) string {
	if req.ClientID != "" {
		return req.ClientID
	}
	return f.configuredClient
}

func (f *fakeAdapter) ExchangeCode(_ context.Context, req providers.ExchangeRequest) (*providers.Token, error) {
	f.exchanges = append(f.exchanges, req)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &providers.Token{AccessToken: "access-" + req.Code}, nil
}

func (f *fakeAdapter) FetchProfile(context.Context, *providers.Token) (*providers.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	p := f.profile
	return &p, nil
}

// oauth1-style adapter
type fakeOAuth1Adapter struct {
	fakeAdapter
	callbacks []string
}

func (f *fakeOAuth1Adapter) RequestToken(_ context.Context, callbackURL string) (*providers.RequestToken, error) {
	f.callbacks = append(f.callbacks, callbackURL)
	return &providers.RequestToken{OAuthToken: "req-token", OAuthTokenSecret: "s", OAuthCallbackConfirmed: true}, nil
}

type failingIssuer struct{}

func (failingIssuer) Issue(string) (string, error) { return "", errors.New("signing key unavailable") }

type testEnv struct {
	orchestrator *Orchestrator
	store        *users.MemoryRepository
	issuer       *auth.TokenIssuer
	google       *fakeAdapter
	github       *fakeAdapter
	twitter      *fakeOAuth1Adapter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := users.NewMemoryRepository()
	locker := lock.NewMemoryLocker(lock.Options{Wait: time.Second, RetryInterval: time.Millisecond})
	t.Cleanup(func() { _ = locker.Close() })

	issuer, err := auth.NewTokenIssuer("orchestrator-test-secret", 0)
	require.NoError(t, err)

	env := &testEnv{
		store:  store,
		issuer: issuer,
		google: &fakeAdapter{
			name:             "google",
			configuredClient: "google-client",
			profile:          providers.Profile{ProviderID: "g1", Email: "a@example.com", DisplayName: "Ada"},
		},
		github: &fakeAdapter{
			name:    "github",
			profile: providers.Profile{ProviderID: "h1", Email: "a@example.com", DisplayName: "ada-gh", PictureURL: "gh.png"},
		},
		twitter: &fakeOAuth1Adapter{fakeAdapter: fakeAdapter{
			name:    "twitter",
			profile: providers.Profile{ProviderID: "tw1", DisplayName: "Tweety"},
		}},
	}

	env.orchestrator = New(Deps{
		Providers: providers.NewRegistry(env.google, env.github, env.twitter),
		Resolver:  identity.NewResolver(store, locker),
		Sessions:  issuer,
	})

	return env
}

func requireFederationError(t *testing.T, err error, kind FailureKind) *Error {
	t.Helper()

	ferr, ok := AsError(err)
	require.True(t, ok, "expected a federation error, got %v", err)
	assert.Equal(t, kind, ferr.Kind)

	return ferr
}

func TestLogin_IssuesSessionForResolvedUser(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.orchestrator.Login(context.Background(), LoginRequest{
		Provider:    "google",
		Code:        "code-1",
		RedirectURI: "https://app.example.com/cb",
	})
	require.NoError(t, err)

	assert.Equal(t, StateSessionIssued, res.State)
	assert.Equal(t, identity.OutcomeCreated, res.Outcome)

	userID, err := env.issuer.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)

	require.Len(t, env.google.exchanges, 1)
	assert.Equal(t, "code-1", env.google.exchanges[0].Code)
	assert.Equal(t, "https://app.example.com/cb", env.google.exchanges[0].RedirectURI)
}

func TestLogin_GoogleThenGitHubSameUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.orchestrator.Login(ctx, LoginRequest{Provider: "google", Code: "c"})
	require.NoError(t, err)

	second, err := env.orchestrator.Login(ctx, LoginRequest{Provider: "github", Code: "c", ClientID: "gh-client"})
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, identity.OutcomeMerged, second.Outcome)
	assert.Equal(t, map[string]string{"google": "g1", "github": "h1"}, second.User.LinkedProviders)
	assert.Equal(t, "Ada", second.User.DisplayName)
	assert.Equal(t, "gh.png", second.User.Picture)
	assert.Equal(t, 1, env.store.Len())
}

func TestLogin_UnknownProvider(t *testing.T) {
	env := newTestEnv(t)

	for _, provider := range []string{"myspace", "yahoo", ""} {
		_, err := env.orchestrator.Login(context.Background(), LoginRequest{Provider: provider, Code: "c"})

		ferr := requireFederationError(t, err, KindUnknownProvider)
		assert.Equal(t, StateStart, ferr.Step)
		assert.ErrorIs(t, err, providers.ErrUnknownProvider)
	}
}

func TestLogin_ValidationHappensBeforeAnyCall(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.orchestrator.Login(ctx, LoginRequest{Provider: "google"})
	requireFederationError(t, err, KindValidation)
	assert.ErrorIs(t, err, ErrValidation)

	// github has no configured client id, so the request must carry one
	_, err = env.orchestrator.Login(ctx, LoginRequest{Provider: "github", Code: "c"})
	requireFederationError(t, err, KindValidation)

	assert.Empty(t, env.google.exchanges)
	assert.Empty(t, env.github.exchanges)
}

func TestLogin_ProviderErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rejected := &providers.ProviderError{Provider: "google", Message: "Bad Request", Status: http.StatusBadRequest}
	env.google.exchangeErr = rejected

	_, err := env.orchestrator.Login(ctx, LoginRequest{Provider: "google", Code: "c"})

	ferr := requireFederationError(t, err, KindProvider)
	assert.Equal(t, StateStart, ferr.Step)

	perr, ok := providers.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "Bad Request", perr.Message)

	env.google.exchangeErr = nil
	env.google.profileErr = &providers.ProviderError{Provider: "google", Message: "Invalid Credentials", Status: http.StatusUnauthorized}

	_, err = env.orchestrator.Login(ctx, LoginRequest{Provider: "google", Code: "c"})

	ferr = requireFederationError(t, err, KindProvider)
	assert.Equal(t, StateTokenExchanged, ferr.Step)

	assert.Equal(t, 0, env.store.Len(), "a failed provider call never touches the store")
}

func TestLogin_LinkToCaller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	caller, err := env.orchestrator.Login(ctx, LoginRequest{Provider: "google", Code: "c"})
	require.NoError(t, err)

	env.github.profile.Email = "work@example.org"

	res, err := env.orchestrator.Login(ctx, LoginRequest{
		Provider:     "github",
		Code:         "c",
		ClientID:     "gh-client",
		CallerUserID: caller.User.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, identity.OutcomeLinked, res.Outcome)
	assert.Equal(t, caller.User.ID, res.User.ID)
	assert.Equal(t, "a@example.com", res.User.Email)
}

func TestLogin_LinkWithVanishedCaller(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orchestrator.Login(context.Background(), LoginRequest{
		Provider:     "google",
		Code:         "c",
		CallerUserID: "8a1f0c2e-5b7d-4e3a-9c6f-1d2e3f4a5b6c",
	})

	ferr := requireFederationError(t, err, KindResolve)
	assert.Equal(t, StateProfileFetched, ferr.Step)
	assert.ErrorIs(t, err, users.ErrNotFound)
}

func TestLogin_SessionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.orchestrator.sessions = failingIssuer{}

	_, err := env.orchestrator.Login(context.Background(), LoginRequest{Provider: "google", Code: "c"})

	ferr := requireFederationError(t, err, KindSession)
	assert.Equal(t, StateIdentityResolved, ferr.Step)
}

func TestLogin_OAuth1TwoPhases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.orchestrator.Login(ctx, LoginRequest{Provider: "twitter"})
	requireFederationError(t, err, KindValidation)

	first, err := env.orchestrator.Login(ctx, LoginRequest{Provider: "twitter", RedirectURI: "https://app.example.com/cb"})
	require.NoError(t, err)

	assert.Equal(t, StateRequestTokenIssued, first.State)
	assert.Equal(t, "req-token", first.RequestToken.OAuthToken)
	assert.Empty(t, first.Token)
	assert.Equal(t, []string{"https://app.example.com/cb"}, env.twitter.callbacks)
	assert.Empty(t, env.twitter.exchanges)

	second, err := env.orchestrator.Login(ctx, LoginRequest{
		Provider:      "twitter",
		OAuthToken:    "req-token",
		OAuthVerifier: "verifier",
	})
	require.NoError(t, err)

	assert.Equal(t, StateSessionIssued, second.State)
	assert.Empty(t, second.User.Email)
	assert.Equal(t, map[string]string{"twitter": "tw1"}, second.User.LinkedProviders)
}

func TestUnlink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.orchestrator.Login(ctx, LoginRequest{Provider: "google", Code: "c"})
	require.NoError(t, err)

	u, err := env.orchestrator.Unlink(ctx, res.User.ID, "google")
	require.NoError(t, err)
	assert.Empty(t, u.LinkedProviders)

	// spotify is supported even though it is not configured here
	_, err = env.orchestrator.Unlink(ctx, res.User.ID, "spotify")
	assert.NoError(t, err)

	_, err = env.orchestrator.Unlink(ctx, res.User.ID, "myspace")
	requireFederationError(t, err, KindUnknownProvider)

	_, err = env.orchestrator.Unlink(ctx, "8a1f0c2e-5b7d-4e3a-9c6f-1d2e3f4a5b6c", "google")
	assert.ErrorIs(t, err, users.ErrNotFound)
}

func TestCompleteRedirect(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.orchestrator.CompleteRedirect(context.Background(), goth.User{
		Provider:  "github",
		UserID:    "h1",
		Email:     "A@example.com",
		NickName:  "octo",
		AvatarURL: "https://avatars.example.com/h1",
	})
	require.NoError(t, err)

	assert.Equal(t, StateSessionIssued, res.State)
	assert.Equal(t, "a@example.com", res.User.Email)
	assert.Equal(t, "octo", res.User.DisplayName)
	assert.Equal(t, map[string]string{"github": "h1"}, res.User.LinkedProviders)

	_, err = env.orchestrator.CompleteRedirect(context.Background(), goth.User{Provider: "myspace", UserID: "x"})
	requireFederationError(t, err, KindUnknownProvider)
}

func TestSignUpAndSignIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	signedUp, err := env.orchestrator.SignUp(ctx, "Ada", "ada@example.com", "correct horse")
	require.NoError(t, err)

	signedIn, err := env.orchestrator.SignIn(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)

	userID, err := env.issuer.Verify(signedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, signedUp.User.ID, userID)

	_, err = env.orchestrator.SignUp(ctx, "Imposter", "ADA@example.com", "whatever")
	assert.ErrorIs(t, err, users.ErrDuplicateEmail)

	_, err = env.orchestrator.SignIn(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}
