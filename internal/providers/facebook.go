package providers

import (
	"context"
	"net/http"
	"net/url"
)

var facebookEndpoints = Endpoints{
	Token:   "https://graph.facebook.com/v19.0/oauth/access_token",
	Profile: "https://graph.facebook.com/v19.0/me",
}

type Facebook struct {
	client
}

func NewFacebook(settings Settings) *Facebook {
	return &Facebook{client: newClient("facebook", settings, facebookEndpoints)}
}

// facebook takes the code exchange as a GET with query-string credentials
func (f *Facebook) ExchangeCode(ctx context.Context, req ExchangeRequest) (*Token, error) {
	if req.Code == "" {
		return nil, f.fail(http.StatusBadRequest, "missing authorization code", nil)
	}

	tokenURL := withQuery(f.endpoints.Token, url.Values{
		"code":          {req.Code},
		"client_id":     {f.ClientID(req)},
		"client_secret": {f.settings.ClientSecret},
		"redirect_uri":  {req.RedirectURI},
	})

	var body struct {
		AccessToken string `json:"access_token"`
	}

	if err := f.getJSON(ctx, tokenURL, nil, &body); err != nil {
		return nil, err
	}

	if body.AccessToken == "" {
		return nil, f.fail(http.StatusBadGateway, "token response has no access_token", nil)
	}

	return &Token{AccessToken: body.AccessToken}, nil
}

type facebookProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (f *Facebook) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	profileURL := withQuery(f.endpoints.Profile, url.Values{
		"fields":       {"id,email,name,picture.type(large)"},
		"access_token": {tok.AccessToken},
	})

	var p facebookProfile
	if err := f.getJSON(ctx, profileURL, nil, &p); err != nil {
		return nil, err
	}

	return f.profile(Profile{
		ProviderID:  p.ID,
		Email:       p.Email,
		DisplayName: p.Name,
		PictureURL:  p.Picture.Data.URL,
	})
}
