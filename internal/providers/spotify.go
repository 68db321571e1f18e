package providers

import (
	"context"

	"golang.org/x/oauth2"
)

var spotifyEndpoints = Endpoints{
	Token:   "https://accounts.spotify.com/api/token",
	Profile: "https://api.spotify.com/v1/me",
}

type Spotify struct {
	client
}

func NewSpotify(settings Settings) *Spotify {
	return &Spotify{client: newClient("spotify", settings, spotifyEndpoints)}
}

func (s *Spotify) ExchangeCode(ctx context.Context, req ExchangeRequest) (*Token, error) {
	tok, err := s.exchange(ctx, req, oauth2.AuthStyleInHeader)
	if err != nil {
		return nil, err
	}

	return &Token{AccessToken: tok.AccessToken}, nil
}

type spotifyProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
}

func (s *Spotify) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	var p spotifyProfile
	if err := s.getJSON(ctx, s.endpoints.Profile, bearer(tok.AccessToken), &p); err != nil {
		return nil, err
	}

	name := p.DisplayName
	if name == "" {
		name = p.ID
	}

	var picture string
	if len(p.Images) > 0 {
		picture = p.Images[0].URL
	}

	return s.profile(Profile{
		ProviderID:  p.ID,
		Email:       p.Email,
		DisplayName: name,
		PictureURL:  picture,
	})
}
