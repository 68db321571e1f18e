package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

// shared HTTP client for provider calls
var providerHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// plumbing shared by every adapter: endpoints, throttling, timeouts and error mapping
type client struct {
	name      string
	settings  Settings
	endpoints Endpoints
}

func newClient(name string, settings Settings, defaults Endpoints) client {
	if settings.HTTPClient == nil {
		settings.HTTPClient = providerHTTPClient
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.Limiter == nil {
		settings.Limiter = rate.NewLimiter(DefaultRate, DefaultBurst)
	}

	if settings.UserAgent == "" {
		settings.UserAgent = defaultUserAgent
	}

	return client{
		name:      name,
		settings:  settings,
		endpoints: settings.Endpoints.merge(defaults),
	}
}

func (c *client) Name() string {
	return c.name
}

// the client id an exchange for req would use; the request's wins over the configured one
func (c *client) ClientID(req ExchangeRequest) string {
	if req.ClientID != "" {
		return req.ClientID
	}

	return c.settings.ClientID
}

func (c *client) fail(status int, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: c.name,
		Message:  message,
		Status:   status,
		Err:      err,
	}
}

// waits for the rate limiter, then bounds the call by the configured timeout
func (c *client) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.settings.Limiter.Wait(ctx); err != nil {
		return nil, nil, c.fail(0, "rate limiter error", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	return callCtx, cancel, nil
}

// maps a failure where no usable response arrived
func (c *client) callError(ctx context.Context, err error, message string) *ProviderError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return c.fail(0, "request timed out", err)
	case errors.Is(ctx.Err(), context.Canceled):
		return c.fail(0, "request cancelled", err)
	default:
		return c.fail(0, message, err)
	}
}

// runs the oauth2 authorization_code grant against the token endpoint
func (c *client) exchange(ctx context.Context, req ExchangeRequest, style oauth2.AuthStyle) (*oauth2.Token, error) {
	if req.Code == "" {
		return nil, c.fail(http.StatusBadRequest, "missing authorization code", nil)
	}

	conf := &oauth2.Config{
		ClientID:     c.ClientID(req),
		ClientSecret: c.settings.ClientSecret,
		RedirectURL:  req.RedirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.endpoints.Token,
			AuthStyle: style,
		},
	}

	callCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	callCtx = context.WithValue(callCtx, oauth2.HTTPClient, c.settings.HTTPClient)

	tok, err := conf.Exchange(callCtx, req.Code)
	if err != nil {
		return nil, c.exchangeError(callCtx, err)
	}

	return tok, nil
}

func (c *client) exchangeError(ctx context.Context, err error) *ProviderError {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return c.callError(ctx, err, "token exchange failed")
	}

	status := http.StatusBadGateway
	if re.Response != nil {
		status = re.Response.StatusCode
	}

	// some providers report a rejected code with a 200
	if status < http.StatusBadRequest {
		status = http.StatusBadRequest
	}

	message := re.ErrorDescription
	if message == "" {
		message = errorMessage(re.Body)
	}

	if message == "" {
		message = re.ErrorCode
	}

	if message == "" {
		message = "token exchange failed"
	}

	return c.fail(status, message, err)
}

// GETs rawURL with the adapter's HTTP client and decodes the JSON body into out
func (c *client) getJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	return c.doJSON(ctx, c.settings.HTTPClient, rawURL, header, out)
}

func (c *client) doJSON(ctx context.Context, httpClient *http.Client, rawURL string, header http.Header, out any) error {
	callCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return c.fail(0, "failed to create request", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.settings.UserAgent)

	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return c.callError(callCtx, err, "request failed")
	}

	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.callError(callCtx, err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := errorMessage(body)
		if message == "" {
			message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}

		return c.fail(resp.StatusCode, message, nil)
	}

	// an error payload is never read as a partial profile
	if hasErrorPayload(body) {
		message := errorMessage(body)
		if message == "" {
			message = "provider returned an error"
		}

		return c.fail(http.StatusBadGateway, message, nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(http.StatusBadGateway, "invalid response from provider", err)
	}

	return nil
}

// rejects profiles the resolver could not key on
func (c *client) profile(p Profile) (*Profile, error) {
	if p.ProviderID == "" {
		return nil, c.fail(http.StatusBadGateway, "profile has no user id", errMissingProviderUserID)
	}

	return &p, nil
}

// the shapes providers use to report errors, in order of preference
type errorEnvelope struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Message          string          `json:"message"`
	Meta             struct {
		ErrorDetail string `json:"errorDetail"`
	} `json:"meta"`
}

func errorMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}

	if env.ErrorDescription != "" {
		return env.ErrorDescription
	}

	if len(env.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}

		if err := json.Unmarshal(env.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}

		var code string
		if err := json.Unmarshal(env.Error, &code); err == nil && code != "" {
			return code
		}
	}

	if env.Meta.ErrorDetail != "" {
		return env.Meta.ErrorDetail
	}

	return env.Message
}

func hasErrorPayload(body []byte) bool {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}

	return len(env.Error) > 0 && string(env.Error) != "null" && string(env.Error) != `""`
}

func bearer(accessToken string) http.Header {
	return http.Header{"Authorization": {"Bearer " + accessToken}}
}

// adds params to rawURL, keeping any query it already has
func withQuery(rawURL string, params url.Values) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			q.Set(key, v)
		}
	}

	u.RawQuery = q.Encode()
	return u.String()
}
