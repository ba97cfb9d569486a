package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/s/campus/internal/models"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Provider is the identity provider seen by the sign-in handlers.
type Provider interface {
	AuthCodeURL(state string) string
	// Exchange trades the callback code for the signed-in identity.
	Exchange(ctx context.Context, code string) (models.Identity, error)
}

func InitGoogleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

type GoogleProvider struct {
	Config      *oauth2.Config
	UserInfoURL string
}

func NewGoogleProvider(cfg *oauth2.Config) *GoogleProvider {
	return &GoogleProvider{Config: cfg, UserInfoURL: googleUserInfoURL}
}

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *GoogleProvider) Exchange(ctx context.Context, code string) (models.Identity, error) {
	token, err := g.Config.Exchange(ctx, code)
	if err != nil {
		return models.Identity{}, fmt.Errorf("token exchange: %w", err)
	}
	return FetchIdentity(ctx, g.Config.Client(ctx, token), g.UserInfoURL)
}

// FetchIdentity reads the userinfo document with an authorized client.
func FetchIdentity(ctx context.Context, client *http.Client, url string) (models.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Identity{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.Identity{}, fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Identity{}, fmt.Errorf("userinfo: unexpected status %d", resp.StatusCode)
	}

	var id models.Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return models.Identity{}, fmt.Errorf("userinfo decode: %w", err)
	}
	if id.UID == "" || id.Email == "" {
		return models.Identity{}, errors.New("userinfo: missing id or email")
	}
	return id, nil
}
