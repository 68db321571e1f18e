package providers

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

const twitchClientID = "client_id"

var twitchEndpoints = Endpoints{
	Token:   "https://id.twitch.tv/oauth2/token",
	Profile: "https://api.twitch.tv/helix/users",
}

type Twitch struct {
	client
}

func NewTwitch(settings Settings) *Twitch {
	return &Twitch{client: newClient("twitch", settings, twitchEndpoints)}
}

func (t *Twitch) ExchangeCode(ctx context.Context, req ExchangeRequest) (*Token, error) {
	tok, err := t.exchange(ctx, req, oauth2.AuthStyleInParams)
	if err != nil {
		return nil, err
	}

	// helix wants the client id that obtained the token on every call
	return &Token{
		AccessToken: tok.AccessToken,
		Extra:       map[string]string{twitchClientID: t.ClientID(req)},
	}, nil
}

type twitchUsers struct {
	Data []struct {
		ID              string `json:"id"`
		Login           string `json:"login"`
		DisplayName     string `json:"display_name"`
		Email           string `json:"email"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

func (t *Twitch) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	clientID := tok.Extra[twitchClientID]
	if clientID == "" {
		clientID = t.settings.ClientID
	}

	header := bearer(tok.AccessToken)
	header.Set("Client-Id", clientID)

	var users twitchUsers
	if err := t.getJSON(ctx, t.endpoints.Profile, header, &users); err != nil {
		return nil, err
	}

	if len(users.Data) == 0 {
		return nil, t.fail(http.StatusBadGateway, "no user in response", nil)
	}

	user := users.Data[0]

	name := user.DisplayName
	if name == "" {
		name = user.Login
	}

	return t.profile(Profile{
		ProviderID:  user.ID,
		Email:       user.Email,
		DisplayName: name,
		PictureURL:  user.ProfileImageURL,
	})
}
