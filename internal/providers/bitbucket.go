package providers

import (
	"context"
	"net/url"

	"golang.org/x/oauth2"
)

var bitbucketEndpoints = Endpoints{
	Token:   "https://bitbucket.org/site/oauth2/access_token",
	Profile: "https://api.bitbucket.org/2.0/user",
	Emails:  "https://api.bitbucket.org/2.0/user/emails",
}

type Bitbucket struct {
	client
}

func NewBitbucket(settings Settings) *Bitbucket {
	return &Bitbucket{client: newClient("bitbucket", settings, bitbucketEndpoints)}
}

func (b *Bitbucket) ExchangeCode(ctx context.Context, req ExchangeRequest) (*Token, error) {
	tok, err := b.exchange(ctx, req, oauth2.AuthStyleInHeader)
	if err != nil {
		return nil, err
	}

	return &Token{AccessToken: tok.AccessToken}, nil
}

type bitbucketProfile struct {
	UUID        string `json:"uuid"`
	DisplayName string `json:"display_name"`
	Links       struct {
		Avatar struct {
			Href string `json:"href"`
		} `json:"avatar"`
	} `json:"links"`
}

type bitbucketEmails struct {
	Values []struct {
		Email     string `json:"email"`
		IsPrimary bool   `json:"is_primary"`
	} `json:"values"`
}

func (b *Bitbucket) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	query := url.Values{"access_token": {tok.AccessToken}}

	var p bitbucketProfile
	if err := b.getJSON(ctx, withQuery(b.endpoints.Profile, query), nil, &p); err != nil {
		return nil, err
	}

	var emails bitbucketEmails
	if err := b.getJSON(ctx, withQuery(b.endpoints.Emails, query), nil, &emails); err != nil {
		// token lacks the email scope
		if perr, ok := AsProviderError(err); !ok || !perr.ClientFault() {
			return nil, err
		}
	}

	var email string
	for _, e := range emails.Values {
		if e.IsPrimary {
			email = e.Email
			break
		}
	}

	if email == "" && len(emails.Values) > 0 {
		email = emails.Values[0].Email
	}

	return b.profile(Profile{
		ProviderID:  p.UUID,
		Email:       email,
		DisplayName: p.DisplayName,
		PictureURL:  p.Links.Avatar.Href,
	})
}
