package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const yahooGUID = "xoauth_yahoo_guid"

var yahooEndpoints = Endpoints{
	Token: "https://api.login.yahoo.com/oauth2/get_token",
	// the profile path is <Profile>/<guid>/profile
	Profile: "https://social.yahooapis.com/v1/user",
}

type Yahoo struct {
	client
}

func NewYahoo(settings Settings) *Yahoo {
	return &Yahoo{client: newClient("yahoo", settings, yahooEndpoints)}
}

func (y *Yahoo) ExchangeCode(ctx context.Context, req ExchangeRequest) (*Token, error) {
	tok, err := y.exchange(ctx, req, oauth2.AuthStyleInHeader)
	if err != nil {
		return nil, err
	}

	guid, _ := tok.Extra(yahooGUID).(string)
	if guid == "" {
		return nil, y.fail(http.StatusBadGateway, "token response has no "+yahooGUID, nil)
	}

	return &Token{
		AccessToken: tok.AccessToken,
		Extra:       map[string]string{yahooGUID: guid},
	}, nil
}

type yahooProfile struct {
	Profile struct {
		GUID     string `json:"guid"`
		Nickname string `json:"nickname"`
		Image    struct {
			ImageURL string `json:"imageUrl"`
		} `json:"image"`
		Emails []struct {
			Handle  string `json:"handle"`
			Primary bool   `json:"primary"`
		} `json:"emails"`
	} `json:"profile"`
}

func (y *Yahoo) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	guid := tok.Extra[yahooGUID]
	if guid == "" {
		return nil, y.fail(http.StatusBadRequest, "token has no "+yahooGUID, nil)
	}

	profileURL := withQuery(
		fmt.Sprintf("%s/%s/profile", strings.TrimRight(y.endpoints.Profile, "/"), url.PathEscape(guid)),
		url.Values{"format": {"json"}},
	)

	var p yahooProfile
	if err := y.getJSON(ctx, profileURL, bearer(tok.AccessToken), &p); err != nil {
		return nil, err
	}

	var email string
	for _, e := range p.Profile.Emails {
		if e.Primary {
			email = e.Handle
			break
		}
	}

	if email == "" && len(p.Profile.Emails) > 0 {
		email = p.Profile.Emails[0].Handle
	}

	return y.profile(Profile{
		ProviderID:  p.Profile.GUID,
		Email:       email,
		DisplayName: p.Profile.Nickname,
		PictureURL:  p.Profile.Image.ImageURL,
	})
}
