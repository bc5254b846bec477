package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"randomblog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeGoogle struct {
	server       *httptest.Server
	tokenStatus  int
	tokenBody    string
	profileCode  int
	profileBody  string
	gotTokenForm url.Values
	gotAuth      string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"access-123","token_type":"Bearer","expires_in":3600}`,
		profileCode: http.StatusOK,
		profileBody: `{"email":"Jane.Doe@example.com","given_name":"Jane","family_name":"Doe","verified_email":true}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.gotTokenForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.tokenStatus)
		_, _ = w.Write([]byte(f.tokenBody))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		f.gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.profileCode)
		_, _ = w.Write([]byte(f.profileBody))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGoogle) provider() *Provider {
	return NewGoogleProvider(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8000/oauth/google/callback",
		Scopes:       []string{"openid", "email", "profile"},
		Timeout:      2 * time.Second,
		Endpoints: Endpoints{
			AuthURL:     f.server.URL + "/auth",
			TokenURL:    f.server.URL + "/token",
			UserInfoURL: f.server.URL + "/userinfo",
		},
	})
}

func TestProvider_AuthCodeURL(t *testing.T) {
	p := NewGoogleProvider(Config{
		ClientID:     "client-id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8000/oauth/google/callback",
		Scopes:       []string{"openid", "email", "profile"},
	})

	u, err := url.Parse(p.AuthCodeURL("state-xyz"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "/o/oauth2/v2/auth", u.Path)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8000/oauth/google/callback", q.Get("redirect_uri"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "state-xyz", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "select_account", q.Get("prompt"))
}

func TestProvider_CheckConfigured(t *testing.T) {
	p := NewGoogleProvider(Config{ClientID: "only-id"})
	err := p.CheckConfigured()
	assert.True(t, models.IsCode(err, models.CodeConfiguration))

	p = NewGoogleProvider(Config{ClientID: "id", ClientSecret: "secret"})
	assert.NoError(t, p.CheckConfigured())
}

func TestProvider_ExchangeAndFetchProfile(t *testing.T) {
	f := newFakeGoogle(t)
	p := f.provider()
	ctx := context.Background()

	tok, err := p.Exchange(ctx, "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok.AccessToken)
	assert.Equal(t, "auth-code", f.gotTokenForm.Get("code"))
	assert.Equal(t, "authorization_code", f.gotTokenForm.Get("grant_type"))
	assert.Equal(t, "client-id", f.gotTokenForm.Get("client_id"))
	assert.Equal(t, "client-secret", f.gotTokenForm.Get("client_secret"))

	profile, err := p.FetchProfile(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "Bearer access-123", f.gotAuth)
	assert.Equal(t, "Jane.Doe@example.com", profile.Email)
	assert.Equal(t, "Jane", profile.GivenName)
	assert.Equal(t, "Doe", profile.FamilyName)
	assert.True(t, profile.VerifiedEmail)
}

func TestProvider_ExchangeFailures(t *testing.T) {
	t.Run("Token endpoint error", func(t *testing.T) {
		f := newFakeGoogle(t)
		f.tokenStatus = http.StatusBadRequest
		f.tokenBody = `{"error":"invalid_grant"}`

		_, err := f.provider().Exchange(context.Background(), "bad")
		assert.True(t, models.IsCode(err, models.CodeUpstream))
	})

	t.Run("Missing access token", func(t *testing.T) {
		f := newFakeGoogle(t)
		f.tokenBody = `{"token_type":"Bearer"}`

		_, err := f.provider().Exchange(context.Background(), "code")
		assert.True(t, models.IsCode(err, models.CodeUpstream))
	})
}

func TestProvider_FetchProfileNon2xx(t *testing.T) {
	f := newFakeGoogle(t)
	f.profileCode = http.StatusUnauthorized
	f.profileBody = `{"error":"invalid_token"}`

	_, err := f.provider().FetchProfile(context.Background(), &oauth2.Token{AccessToken: "x", TokenType: "Bearer"})
	assert.True(t, models.IsCode(err, models.CodeUpstream))
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}
