// Package oauth talks to Google's OAuth 2.0 endpoints for sign-in.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"randomblog/internal/models"
	"randomblog/internal/observability"

	"golang.org/x/oauth2"
)

// Google endpoints.
const (
	GoogleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleTokenURL    = "https://oauth2.googleapis.com/token"
	GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

const (
	stateBytes     = 32
	defaultTimeout = 10 * time.Second
	maxProfileSize = 1 << 20
)

// Endpoints can be pointed at a fake server in tests.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// GoogleEndpoints returns the production endpoints.
func GoogleEndpoints() Endpoints {
	return Endpoints{
		AuthURL:     GoogleAuthURL,
		TokenURL:    GoogleTokenURL,
		UserInfoURL: GoogleUserInfoURL,
	}
}

// Config holds the client registration and transport settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Timeout      time.Duration
	Endpoints    Endpoints
	HTTPClient   *http.Client
}

// Profile is the subset of Google's userinfo response the blog uses.
type Profile struct {
	Email         string `json:"email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	VerifiedEmail bool   `json:"verified_email"`
}

// Provider performs the authorization-code flow against Google.
type Provider struct {
	oauth       oauth2.Config
	userInfoURL string
	timeout     time.Duration
	client      *http.Client
}

// NewGoogleProvider builds a provider; missing endpoints default to Google's.
func NewGoogleProvider(cfg Config) *Provider {
	endpoints := cfg.Endpoints
	defaults := GoogleEndpoints()
	if endpoints.AuthURL == "" {
		endpoints.AuthURL = defaults.AuthURL
	}
	if endpoints.TokenURL == "" {
		endpoints.TokenURL = defaults.TokenURL
	}
	if endpoints.UserInfoURL == "" {
		endpoints.UserInfoURL = defaults.UserInfoURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Provider{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   endpoints.AuthURL,
				TokenURL:  endpoints.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: endpoints.UserInfoURL,
		timeout:     timeout,
		client:      client,
	}
}

// Configured reports whether client credentials are present.
func (p *Provider) Configured() bool {
	return p.oauth.ClientID != "" && p.oauth.ClientSecret != ""
}

// CheckConfigured returns a configuration error when credentials are missing.
func (p *Provider) CheckConfigured() error {
	if !p.Configured() {
		return models.NewConfigurationError("Google OAuth requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables.")
	}
	return nil
}

// AuthCodeURL is where the browser is sent to pick a Google account.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange trades an authorization code for a token.
func (p *Provider) Exchange(ctx context.Context, code string) (tok *oauth2.Token, err error) {
	ctx, span := observability.StartClientSpan(ctx, "google", "token")
	defer func() { observability.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	tok, err = p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, models.NewUpstreamError("Unable to exchange code with Google.", err)
	}
	if tok.AccessToken == "" {
		return nil, models.NewUpstreamError("Google did not return an access token.", nil)
	}
	return tok, nil
}

// FetchProfile reads the userinfo document with the token as bearer credential.
func (p *Provider) FetchProfile(ctx context.Context, tok *oauth2.Token) (profile *Profile, err error) {
	ctx, span := observability.StartClientSpan(ctx, "google", "userinfo")
	defer func() { observability.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	tok.SetAuthHeader(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, models.NewUpstreamError("Unable to fetch Google profile information.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewUpstreamError("Unable to fetch Google profile information.",
			fmt.Errorf("userinfo returned status %d", resp.StatusCode))
	}

	profile = &Profile{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileSize)).Decode(profile); err != nil {
		return nil, models.NewUpstreamError("Unable to fetch Google profile information.", err)
	}
	return profile, nil
}

// NewState returns an unguessable value binding a callback to its session.
func NewState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
