package providers

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
)

var linkedinEndpoints = Endpoints{
	Token:   "https://www.linkedin.com/oauth/v2/accessToken",
	Profile: "https://api.linkedin.com/v2/userinfo",
}

type LinkedIn struct {
	client
}

func NewLinkedIn(settings Settings) *LinkedIn {
	return &LinkedIn{client: newClient("linkedin", settings, linkedinEndpoints)}
}

func (l *LinkedIn) ExchangeCode(ctx context.Context, req ExchangeRequest) (*Token, error) {
	tok, err := l.exchange(ctx, req, oauth2.AuthStyleInParams)
	if err != nil {
		return nil, err
	}

	return &Token{AccessToken: tok.AccessToken}, nil
}

// openid connect userinfo
type linkedinProfile struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func (l *LinkedIn) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	var p linkedinProfile
	if err := l.getJSON(ctx, l.endpoints.Profile, bearer(tok.AccessToken), &p); err != nil {
		return nil, err
	}

	name := p.Name
	if name == "" {
		name = strings.TrimSpace(p.GivenName + " " + p.FamilyName)
	}

	return l.profile(Profile{
		ProviderID:  p.Sub,
		Email:       p.Email,
		DisplayName: name,
		PictureURL:  p.Picture,
	})
}
