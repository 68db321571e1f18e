package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "client-id"
	testClientSecret = "client-secret"
)

// fake provider with a token, profile and emails endpoint
type fakeProvider struct {
	server  *httptest.Server
	token   http.HandlerFunc
	profile http.HandlerFunc
	emails  http.HandlerFunc
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	f := &fakeProvider{}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) { f.token(w, r) })
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) { f.profile(w, r) })
	mux.HandleFunc("/emails", func(w http.ResponseWriter, r *http.Request) { f.emails(w, r) })
	mux.HandleFunc("/user/", func(w http.ResponseWriter, r *http.Request) { f.profile(w, r) })

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeProvider) settings() Settings {
	return Settings{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		HTTPClient:   f.server.Client(),
		Timeout:      2 * time.Second,
		Endpoints: Endpoints{
			Token:   f.server.URL + "/token",
			Profile: f.server.URL + "/profile",
			Emails:  f.server.URL + "/emails",
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func jsonToken(accessToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": accessToken, "token_type": "Bearer"})
	}
}

func login(t *testing.T, adapter Adapter, req ExchangeRequest) (*Profile, error) {
	t.Helper()

	ctx := context.Background()

	tok, err := adapter.ExchangeCode(ctx, req)
	if err != nil {
		return nil, err
	}

	return adapter.FetchProfile(ctx, tok)
}

func requireProviderError(t *testing.T, err error) *ProviderError {
	t.Helper()

	perr, ok := AsProviderError(err)
	require.True(t, ok, "expected a ProviderError, got %v", err)

	return perr
}

func TestGoogle_Login(t *testing.T) {
	f := newFakeProvider(t)

	f.token = func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "browser-client", r.PostForm.Get("client_id"))
		assert.Equal(t, testClientSecret, r.PostForm.Get("client_secret"))
		assert.Equal(t, "https://app.example.com/cb", r.PostForm.Get("redirect_uri"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))

		_, _, hasBasic := r.BasicAuth()
		assert.False(t, hasBasic)

		jsonToken("google-token")(w, r)
	}

	f.profile = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer google-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "g1",
			"email":   "a@example.com",
			"name":    "Ada",
			"picture": "https://lh3.example.com/photo.jpg?sz=50",
		})
	}

	profile, err := login(t, NewGoogle(f.settings()), ExchangeRequest{
		Code:        "the-code",
		ClientID:    "browser-client",
		RedirectURI: "https://app.example.com/cb",
	})
	require.NoError(t, err)

	assert.Equal(t, &Profile{
		ProviderID:  "g1",
		Email:       "a@example.com",
		DisplayName: "Ada",
		PictureURL:  "https://lh3.example.com/photo.jpg?sz=200",
	}, profile)
}

func TestGoogle_ConfiguredClientIDIsDefault(t *testing.T) {
	f := newFakeProvider(t)

	f.token = func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, testClientID, r.PostForm.Get("client_id"))
		jsonToken("tok")(w, r)
	}

	_, err := NewGoogle(f.settings()).ExchangeCode(context.Background(), ExchangeRequest{Code: "c"})
	assert.NoError(t, err)
}

func TestExchange_RejectedCode(t *testing.T) {
	f := newFakeProvider(t)

	f.token = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Bad Request",
		})
	}

	_, err := NewGoogle(f.settings()).ExchangeCode(context.Background(), ExchangeRequest{Code: "used"})

	perr := requireProviderError(t, err)
	assert.Equal(t, "google", perr.Provider)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
	assert.Equal(t, "Bad Request", perr.Message)
	assert.True(t, perr.ClientFault())
}

func TestExchange_MissingCode(t *testing.T) {
	f := newFakeProvider(t)
	f.token = func(http.ResponseWriter, *http.Request) { t.Error("token endpoint must not be called") }

	_, err := NewSpotify(f.settings()).ExchangeCode(context.Background(), ExchangeRequest{})

	perr := requireProviderError(t, err)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
}

func TestFetchProfile_ErrorPayload(t *testing.T) {
	f := newFakeProvider(t)

	f.profile = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"code": 401, "message": "Invalid Credentials"},
		})
	}

	_, err := NewGoogle(f.settings()).FetchProfile(context.Background(), &Token{AccessToken: "expired"})

	perr := requireProviderError(t, err)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Equal(t, "Invalid Credentials", perr.Message)
}

func TestFetchProfile_ErrorPayloadWithSuccessStatus(t *testing.T) {
	f := newFakeProvider(t)

	f.profile = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":    "g1",
			"error": map[string]any{"message": "quota exceeded"},
		})
	}

	profile, err := NewGoogle(f.settings()).FetchProfile(context.Background(), &Token{AccessToken: "t"})

	assert.Nil(t, profile)
	perr := requireProviderError(t, err)
	assert.Equal(t, "quota exceeded", perr.Message)
	assert.False(t, perr.ClientFault())
}

func TestFetchProfile_MissingUserID(t *testing.T) {
	f := newFakeProvider(t)

	f.profile = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"email": "a@example.com"})
	}

	_, err := NewSpotify(f.settings()).FetchProfile(context.Background(), &Token{AccessToken: "t"})

	perr := requireProviderError(t, err)
	assert.ErrorIs(t, perr, errMissingProviderUserID)
}

func TestFetchProfile_Timeout(t *testing.T) {
	f := newFakeProvider(t)

	f.profile = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}

	settings := f.settings()
	settings.Timeout = 20 * time.Millisecond

	start := time.Now()
	_, err := NewLinkedIn(settings).FetchProfile(context.Background(), &Token{AccessToken: "t"})

	perr := requireProviderError(t, err)
	assert.Equal(t, "request timed out", perr.Message)
	assert.Equal(t, 0, perr.Status)
	assert.False(t, perr.ClientFault())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestFetchProfile_CancelledContext(t *testing.T) {
	f := newFakeProvider(t)
	f.profile = func(http.ResponseWriter, *http.Request) {}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGoogle(f.settings()).FetchProfile(ctx, &Token{AccessToken: "t"})

	requireProviderError(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGitHub_Login(t *testing.T) {
	f := newFakeProvider(t)

	f.token = func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, testClientSecret, r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		_, _ = w.Write([]byte("access_token=gho_abc&scope=user%3Aemail&token_type=bearer"))
	}

	f.profile = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_abc", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		writeJSON(w, http.StatusOK, map[string]any{
			"id":         42,
			"login":      "octo",
			"name":       nil,
			"email":      nil,
			"avatar_url": "https://avatars.example.com/42",
		})
	}

	f.emails = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"email": "old@example.com", "primary": false, "verified": true},
			{"email": "octo@example.com", "primary": true, "verified": true},
		})
	}

	profile, err := login(t, NewGitHub(f.settings()), ExchangeRequest{Code: "c"})
	require.NoError(t, err)

	assert.Equal(t, &Profile{
		ProviderID:  "42",
		Email:       "octo@example.com",
		DisplayName: "octo",
		PictureURL:  "https://avatars.example.com/42",
	}, profile)
}

func TestGitHub_ErrorWithSuccessStatus(t *testing.T) {
	f := newFakeProvider(t)

	f.token = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		_, _ = w.Write([]byte("error=bad_verification_code&error_description=The+code+passed+is+incorrect+or+expired."))
	}

	_, err := NewGitHub(f.settings()).ExchangeCode(context.Background(), ExchangeRequest{Code: "stale"})

	perr := requireProviderError(t, err)
	assert.Equal(t, "The code passed is incorrect or expired.", perr.Message)
	assert.True(t, perr.ClientFault())
}

func TestGitHub_EmailScopeMissing(t *testing.T) {
	f := newFakeProvider(t)

	f.profile = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "login": "quiet"})
	}

	f.emails = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	}

	profile, err := NewGitHub(f.settings()).FetchProfile(context.Background(), &Token{AccessToken: "t"})
	require.NoError(t, err)

	assert.Equal(t, "7", profile.ProviderID)
	assert.Empty(t, profile.Email)
}

func TestLinkedIn_NameFallback(t *testing.T) {
	f := newFakeProvider(t)
	f.token = jsonToken("li")

	f.profile = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"sub":         "li-1",
			"given_name":  "Grace",
			"family_name": "Hopper",
			"email":       "grace@example.com",
			"picture":     "https://media.example.com/g.jpg",
		})
	}

	profile, err := login(t, NewLinkedIn(f.settings()), ExchangeRequest{Code: "c"})
	require.NoError(t, err)

	assert.Equal(t, "li-1", profile.ProviderID)
	assert.Equal(t, "Grace Hopper", profile.DisplayName)
}

func TestFacebook_Login(t *testing.T) {
	f := newFakeProvider(t)

	f.token = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)

		q := r.URL.Query()
		assert.Equal(t, "fb-code", q.Get("code"))
		assert.Equal(t, testClientID, q.Get("client_id"))
		assert.Equal(t, testClientSecret, q.Get("client_secret"))
		assert.Equal(t, "https://app.example.com/cb", q.Get("redirect_uri"))

		writeJSON(w, http.StatusOK, map[string]any{"access_token": "fb-token"})
	}

	f.profile = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fb-token", r.URL.Query().Get("access_token"))
		assert.Contains(t, r.URL.Query().Get("fields"), "picture")

		writeJSON(w, http.StatusOK, map[string]any{
			"id":    "fb1",
			"email": "f@example.com",
			"name":  "Fay",
			"picture": map[string]any{
				"data": map[string]any{"url": "https://fb.example.com/p.jpg"},
			},
		})
	}

	profile, err := login(t, NewFacebook(f.settings()), ExchangeRequest{
		Code:        "fb-code",
		RedirectURI: "https://app.example.com/cb",
	})
	require.NoError(t, err)

	assert.Equal(t, &Profile{
		ProviderID:  "fb1",
		Email:       "f@example.com",
		DisplayName: "Fay",
		PictureURL:  "https://fb.example.com/p.jpg",
	}, profile)
}

func TestFacebook_ErrorMessage(t *testing.T) {
	f := newFakeProvider(t)

	f.token = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{"message": "This authorization code has been used.", "type": "OAuthException"},
		})
	}

	_, err := NewFacebook(f.settings()).ExchangeCode(context.Background(), ExchangeRequest{Code: "used"})

	perr := requireProviderError(t, err)
	assert.Equal(t, "This authorization code has been used.", perr.Message)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
}

func TestYahoo_Login(t *testing.T) {
	f := newFakeProvider(t)

	f.token = func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok, "yahoo credentials go in the basic auth header")
		assert.Equal(t, testClientID, user)
		assert.Equal(t, testClientSecret, pass)

		assert.NoError(t, r.ParseForm())
		assert.Empty(t, r.PostForm.Get("client_secret"))

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":      "y-token",
			"token_type":        "bearer",
			"xoauth_yahoo_guid": "GUID123",
		})
	}

	f.profile = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/GUID123/profile", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "Bearer y-token", r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, map[string]any{
			"profile": map[string]any{
				"guid":     "GUID123",
				"nickname": "yoda",
				"image":    map[string]any{"imageUrl": "https://yahoo.example.com/y.png"},
				"emails": []map[string]any{
					{"handle": "alt@example.com"},
					{"handle": "yoda@example.com", "primary": true},
				},
			},
		})
	}

	settings := f.settings()
	settings.Endpoints.Profile = f.server.URL + "/user"

	profile, err := login(t, NewYahoo(settings), ExchangeRequest{Code: "c"})
	require.NoError(t, err)

	assert.Equal(t, &Profile{
		ProviderID:  "GUID123",
		Email:       "yoda@example.com",
		DisplayName: "yoda",
		PictureURL:  "https://yahoo.example.com/y.png",
	}, profile)
}

func TestYahoo_NoPrimaryEmailFallsBackToFirst(t *testing.T) {
	f := newFakeProvider(t)

	f.token = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":      "y-token",
			"token_type":        "bearer",
			"xoauth_yahoo_guid": "GUID123",
		})
	}

	f.profile = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"profile": map[string]any{
				"guid":     "GUID123",
				"nickname": "yoda",
				"emails": []map[string]any{
					{"handle": "first@example.com"},
					{"handle": "second@example.com"},
				},
			},
		})
	}

	settings := f.settings()
	settings.Endpoints.Profile = f.server.URL + "/user"

	profile, err := login(t, NewYahoo(settings), ExchangeRequest{Code: "c"})
	require.NoError(t, err)

	assert.Equal(t, "first@example.com", profile.Email)
}

func TestYahoo_MissingGUID(t *testing.T) {
	f := newFakeProvider(t)
	f.token = jsonToken("y-token")

	_, err := NewYahoo(f.settings()).ExchangeCode(context.Background(), ExchangeRequest{Code: "c"})

	perr := requireProviderError(t, err)
	assert.Contains(t, perr.Message, yahooGUID)
}

func TestFoursquare_Login(t *testing.T) {
	f := newFakeProvider(t)
	f.token = jsonToken("fsq")

	f.profile = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fsq", r.URL.Query().Get("oauth_token"))
		assert.Equal(t, foursquareVersion, r.URL.Query().Get("v"))

		writeJSON(w, http.StatusOK, map[string]any{
			"meta": map[string]any{"code": 200},
			"response": map[string]any{
				"user": map[string]any{
					"id":        "4sq1",
					"firstName": "Jane",
					"lastName":  "Doe",
					"photo":     map[string]any{"prefix": "https://igx.example.com/", "suffix": "/p.jpg"},
					"contact":   map[string]any{"email": "jane@example.com"},
				},
			},
		})
	}

	profile, err := login(t, NewFoursquare(f.settings()), ExchangeRequest{Code: "c"})
	require.NoError(t, err)

	assert.Equal(t, &Profile{
		ProviderID:  "4sq1",
		Email:       "jane@example.com",
		DisplayName: "Jane Doe",
		PictureURL:  "https://igx.example.com/300x300/p.jpg",
	}, profile)
}

func TestFoursquare_MetaError(t *testing.T) {
	f := newFakeProvider(t)

	f.profile = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"meta": map[string]any{"code": 401, "errorDetail": "OAuth token invalid or revoked."},
		})
	}

	_, err := NewFoursquare(f.settings()).FetchProfile(context.Background(), &Token{AccessToken: "t"})

	perr := requireProviderError(t, err)
	assert.Equal(t, "OAuth token invalid or revoked.", perr.Message)
}

func TestTwitch_SendsClientID(t *testing.T) {
	f := newFakeProvider(t)
	f.token = jsonToken("tw")

	f.profile = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "browser-client", r.Header.Get("Client-Id"))
		assert.Equal(t, "Bearer tw", r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{{
				"id":                "tv1",
				"login":             "streamer",
				"email":             "s@example.com",
				"profile_image_url": "https://tv.example.com/s.png",
			}},
		})
	}

	profile, err := login(t, NewTwitch(f.settings()), ExchangeRequest{Code: "c", ClientID: "browser-client"})
	require.NoError(t, err)

	assert.Equal(t, "tv1", profile.ProviderID)
	assert.Equal(t, "streamer", profile.DisplayName)
}

func TestTwitch_EmptyData(t *testing.T) {
	f := newFakeProvider(t)

	f.profile = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	}

	_, err := NewTwitch(f.settings()).FetchProfile(context.Background(), &Token{AccessToken: "t"})
	requireProviderError(t, err)
}

func TestBitbucket_Login(t *testing.T) {
	f := newFakeProvider(t)

	f.token = func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.True(t, ok)
		jsonToken("bb")(w, r)
	}

	f.profile = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bb", r.URL.Query().Get("access_token"))

		writeJSON(w, http.StatusOK, map[string]any{
			"uuid":         "{bb-1}",
			"display_name": "Bit Bucket",
			"links":        map[string]any{"avatar": map[string]any{"href": "https://bb.example.com/a.png"}},
		})
	}

	f.emails = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bb", r.URL.Query().Get("access_token"))

		writeJSON(w, http.StatusOK, map[string]any{
			"values": []map[string]any{
				{"email": "second@example.com", "is_primary": false},
				{"email": "primary@example.com", "is_primary": true},
			},
		})
	}

	profile, err := login(t, NewBitbucket(f.settings()), ExchangeRequest{Code: "c"})
	require.NoError(t, err)

	assert.Equal(t, &Profile{
		ProviderID:  "{bb-1}",
		Email:       "primary@example.com",
		DisplayName: "Bit Bucket",
		PictureURL:  "https://bb.example.com/a.png",
	}, profile)
}

func TestBitbucket_TokenError(t *testing.T) {
	f := newFakeProvider(t)

	f.token = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "The specified code is not valid.",
		})
	}

	_, err := NewBitbucket(f.settings()).ExchangeCode(context.Background(), ExchangeRequest{Code: "c"})

	perr := requireProviderError(t, err)
	assert.Equal(t, "The specified code is not valid.", perr.Message)
}

func TestSpotify_Login(t *testing.T) {
	f := newFakeProvider(t)

	f.token = func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, testClientID, user)
		assert.Equal(t, testClientSecret, pass)
		jsonToken("sp")(w, r)
	}

	f.profile = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":     "sp-user",
			"email":  "sp@example.com",
			"images": []map[string]any{{"url": "https://sp.example.com/1.jpg"}, {"url": "https://sp.example.com/2.jpg"}},
		})
	}

	profile, err := login(t, NewSpotify(f.settings()), ExchangeRequest{Code: "c"})
	require.NoError(t, err)

	assert.Equal(t, &Profile{
		ProviderID:  "sp-user",
		Email:       "sp@example.com",
		DisplayName: "sp-user",
		PictureURL:  "https://sp.example.com/1.jpg",
	}, profile)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":"invalid_grant","error_description":"expired"}`, "expired"},
		{`{"error":{"message":"Invalid Credentials"}}`, "Invalid Credentials"},
		{`{"error":"access_denied"}`, "access_denied"},
		{`{"meta":{"errorDetail":"revoked"}}`, "revoked"},
		{`{"message":"Bad credentials"}`, "Bad credentials"},
		{`not json`, ""},
		{`[1,2]`, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, errorMessage([]byte(tt.body)), tt.body)
	}
}

func TestWithQuery_KeepsExistingParams(t *testing.T) {
	got := withQuery("https://example.com/me?fields=id", map[string][]string{"access_token": {"a b"}})
	assert.Equal(t, "https://example.com/me?access_token=a+b&fields=id", got)
}
