package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/lordpluha/chronos/internal/config"
)

const userinfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProfile is the subset of the Google userinfo response the auth flow
// consumes.
type GoogleProfile struct {
	GoogleID      string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// DisplayName prefers the full name, falling back to given + family name.
func (p GoogleProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return strings.TrimSpace(p.GivenName + " " + p.FamilyName)
}

// GoogleVerifier exchanges an authorization code for the federated profile.
// The interface exists so the orchestrator can be tested without Google.
type GoogleVerifier interface {
	Exchange(ctx context.Context, code string) (GoogleProfile, error)
}

// GoogleService is the production GoogleVerifier backed by the standard
// oauth2 client. It also builds the consent-screen URL for GET /auth/google.
type GoogleService struct {
	oauth *oauth2.Config
}

func NewGoogleService(cfg config.Config) *GoogleService {
	return &GoogleService{
		oauth: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
		},
	}
}

// AuthURL returns the Google consent URL carrying the caller's CSRF state.
func (g *GoogleService) AuthURL(state string) string {
	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange swaps the authorization code for provider tokens and fetches the
// user's profile with the resulting access token.
func (g *GoogleService) Exchange(ctx context.Context, code string) (GoogleProfile, error) {
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	resp, err := g.oauth.Client(ctx, tok).Get(userinfoEndpoint)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return GoogleProfile{}, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return GoogleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return profile, nil
}
