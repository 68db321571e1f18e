package providers

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnknownProvider       = errors.New("unknown oauth provider")
	ErrRequestTokenNotFound  = errors.New("request token not found or expired")
	errMissingProviderUserID = errors.New("profile has no provider user id")
)

// a failed call to an identity provider
type ProviderError struct {
	Provider string
	Message  string // the provider's own message when it sent one
	Status   int    // upstream http status, 0 when no response arrived
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// true when the provider rejected what the client sent (bad or reused code)
func (e *ProviderError) ClientFault() bool {
	return e.Status >= http.StatusBadRequest && e.Status < http.StatusInternalServerError
}

// extracts a ProviderError from err's chain
func AsProviderError(err error) (*ProviderError, bool) {
	var perr *ProviderError
	ok := errors.As(err, &perr)
	return perr, ok
}
