// Package oauth wraps the Google OAuth2 code-exchange flow. The
// provider is treated as an opaque remote: a single attempt per call,
// failures surfaced to the caller, no retries.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jobportal/auth-service/internal/domain"
	"golang.org/x/oauth2"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	scopeEmail   = "https://www.googleapis.com/auth/userinfo.email"
	scopeProfile = "https://www.googleapis.com/auth/userinfo.profile"
)

// GoogleConfig configures the client. The URL fields default to the
// real Google endpoints and exist so tests can point at a local server.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

type UserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Google struct {
	conf        *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func NewGoogle(cfg GoogleConfig) *Google {
	if cfg.AuthURL == "" {
		cfg.AuthURL = googleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = googleTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = googleUserInfoURL
	}
	return &Google{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{scopeEmail, scopeProfile},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  &http.Client{},
	}
}

// AuthURL builds the provider authorization URL: response_type=code,
// access_type=offline, userinfo email+profile scopes.
func (g *Google) AuthURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the callback code for a provider access token.
// Returns domain.ErrOAuthExchange if the provider rejects the code or
// omits the token.
func (g *Google) Exchange(ctx context.Context, code string) (string, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrOAuthExchange, err)
	}
	if tok.AccessToken == "" {
		return "", domain.ErrOAuthExchange
	}
	return tok.AccessToken, nil
}

// UserInfo fetches the provider's userinfo with the bearer access
// token. Returns domain.ErrOAuthUserInfo if the call fails or the
// response carries no email.
func (g *Google) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOAuthUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo returned %d", domain.ErrOAuthUserInfo, resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOAuthUserInfo, err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("%w: no email in response", domain.ErrOAuthUserInfo)
	}
	return &info, nil
}
