package providers

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// foursquare versions its api by date
const foursquareVersion = "20140806"

var foursquareEndpoints = Endpoints{
	Token:   "https://foursquare.com/oauth2/access_token",
	Profile: "https://api.foursquare.com/v2/users/self",
}

type Foursquare struct {
	client
}

func NewFoursquare(settings Settings) *Foursquare {
	return &Foursquare{client: newClient("foursquare", settings, foursquareEndpoints)}
}

func (f *Foursquare) ExchangeCode(ctx context.Context, req ExchangeRequest) (*Token, error) {
	tok, err := f.exchange(ctx, req, oauth2.AuthStyleInParams)
	if err != nil {
		return nil, err
	}

	return &Token{AccessToken: tok.AccessToken}, nil
}

type foursquareProfile struct {
	Response struct {
		User struct {
			ID        string `json:"id"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
			Photo     struct {
				Prefix string `json:"prefix"`
				Suffix string `json:"suffix"`
			} `json:"photo"`
			Contact struct {
				Email string `json:"email"`
			} `json:"contact"`
		} `json:"user"`
	} `json:"response"`
}

func (f *Foursquare) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	profileURL := withQuery(f.endpoints.Profile, url.Values{
		"v":           {foursquareVersion},
		"oauth_token": {tok.AccessToken},
	})

	var p foursquareProfile
	if err := f.getJSON(ctx, profileURL, nil, &p); err != nil {
		return nil, err
	}

	user := p.Response.User

	var picture string
	if user.Photo.Prefix != "" {
		picture = user.Photo.Prefix + "300x300" + user.Photo.Suffix
	}

	return f.profile(Profile{
		ProviderID:  user.ID,
		Email:       user.Contact.Email,
		DisplayName: strings.TrimSpace(user.FirstName + " " + user.LastName),
		PictureURL:  picture,
	})
}
