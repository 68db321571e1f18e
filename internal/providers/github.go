package providers

import (
	"context"
	"strconv"

	"golang.org/x/oauth2"
)

var githubEndpoints = Endpoints{
	Token:   "https://github.com/login/oauth/access_token",
	Profile: "https://api.github.com/user",
	Emails:  "https://api.github.com/user/emails",
}

type GitHub struct {
	client
}

func NewGitHub(settings Settings) *GitHub {
	return &GitHub{client: newClient("github", settings, githubEndpoints)}
}

func (g *GitHub) ExchangeCode(ctx context.Context, req ExchangeRequest) (*Token, error) {
	tok, err := g.exchange(ctx, req, oauth2.AuthStyleInParams)
	if err != nil {
		return nil, err
	}

	return &Token{AccessToken: tok.AccessToken}, nil
}

type githubProfile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GitHub) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	var p githubProfile
	if err := g.getJSON(ctx, g.endpoints.Profile, bearer(tok.AccessToken), &p); err != nil {
		return nil, err
	}

	if p.ID == 0 {
		return g.profile(Profile{})
	}

	email := p.Email
	if email == "" {
		// users with a private email only expose it through /user/emails
		primary, err := g.primaryEmail(ctx, tok)
		if err != nil {
			return nil, err
		}

		email = primary
	}

	name := p.Name
	if name == "" {
		name = p.Login
	}

	return g.profile(Profile{
		ProviderID:  strconv.FormatInt(p.ID, 10),
		Email:       email,
		DisplayName: name,
		PictureURL:  p.AvatarURL,
	})
}

func (g *GitHub) primaryEmail(ctx context.Context, tok *Token) (string, error) {
	var emails []githubEmail
	if err := g.getJSON(ctx, g.endpoints.Emails, bearer(tok.AccessToken), &emails); err != nil {
		// token lacks the user:email scope
		if perr, ok := AsProviderError(err); ok && perr.ClientFault() {
			return "", nil
		}

		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}

	return "", nil
}
