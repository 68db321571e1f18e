package providers

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
)

var googleEndpoints = Endpoints{
	Token:   "https://oauth2.googleapis.com/token",
	Profile: "https://www.googleapis.com/oauth2/v2/userinfo",
}

type Google struct {
	client
}

func NewGoogle(settings Settings) *Google {
	return &Google{client: newClient("google", settings, googleEndpoints)}
}

func (g *Google) ExchangeCode(ctx context.Context, req ExchangeRequest) (*Token, error) {
	tok, err := g.exchange(ctx, req, oauth2.AuthStyleInParams)
	if err != nil {
		return nil, err
	}

	return &Token{AccessToken: tok.AccessToken}, nil
}

type googleProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (g *Google) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	var p googleProfile
	if err := g.getJSON(ctx, g.endpoints.Profile, bearer(tok.AccessToken), &p); err != nil {
		return nil, err
	}

	return g.profile(Profile{
		ProviderID:  p.ID,
		Email:       p.Email,
		DisplayName: p.Name,
		// ask for the larger avatar
		PictureURL: strings.Replace(p.Picture, "sz=50", "sz=200", 1),
	})
}
