package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"randomblog/internal/config"
	"randomblog/internal/database"
	"randomblog/internal/models"
	"randomblog/internal/oauth"
	"randomblog/internal/session"
	"randomblog/internal/slug"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "test-secret-at-least-32-characters!!"

type fakeGoogle struct {
	server      *httptest.Server
	tokenStatus int
	tokenBody   string
	profileBody string
	tokenCalls  int
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"access-123","token_type":"Bearer","expires_in":3600}`,
		profileBody: `{"email":"Jane.Doe@example.com","given_name":"Jane","family_name":"Doe","verified_email":true}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.tokenStatus)
		_, _ = w.Write([]byte(f.tokenBody))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.profileBody))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGoogle) provider(clientID, clientSecret string) *oauth.Provider {
	return oauth.NewGoogleProvider(oauth.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "http://localhost:8000/oauth/google/callback",
		Scopes:       []string{"openid", "email", "profile"},
		Timeout:      2 * time.Second,
		Endpoints: oauth.Endpoints{
			AuthURL:     f.server.URL + "/auth",
			TokenURL:    f.server.URL + "/token",
			UserInfoURL: f.server.URL + "/userinfo",
		},
	})
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	srv    *Server
	app    *fiber.App
	google *fakeGoogle
}

type testOptions struct {
	featureFlags     string
	googleConfigured bool
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWith(t, testOptions{featureFlags: "signup=on", googleConfigured: true})
}

func newTestServerWith(t *testing.T, opts testOptions) *testServer {
	t.Helper()

	db, err := database.Open(sqlite.Open("file::memory:?_foreign_keys=on"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Env:             "test",
		Port:            "0",
		SessionSecret:   testSecret,
		SessionTTLHours: 1,
		DBDriver:        "sqlite",
		DBPath:          ":memory:",
		FeatureFlags:    opts.featureFlags,
		GoogleScopes:    "openid email profile",
	}

	google := newFakeGoogle(t)
	clientID, clientSecret := "", ""
	if opts.googleConfigured {
		clientID, clientSecret = "client-id", "client-secret"
	}

	srv, err := NewServerWithDeps(cfg, db, nil,
		WithSessionStore(session.NewMemoryStore()),
		WithGoogleProvider(google.provider(clientID, clientSecret)),
	)
	require.NoError(t, err)

	return &testServer{t: t, db: db, srv: srv, app: srv.App(), google: google}
}

func (ts *testServer) do(req *http.Request, cookies ...*http.Cookie) *http.Response {
	ts.t.Helper()
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (ts *testServer) get(target string, cookies ...*http.Cookie) *http.Response {
	return ts.do(httptest.NewRequest(http.MethodGet, target, nil), cookies...)
}

func (ts *testServer) postForm(target string, form url.Values, cookies ...*http.Cookie) *http.Response {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ts.do(req, cookies...)
}

func (ts *testServer) postJSON(target string, body any, cookies ...*http.Cookie) *http.Response {
	ts.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(ts.t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return ts.do(req, cookies...)
}

func (ts *testServer) createUser(username, password string, staff bool) *models.User {
	ts.t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(ts.t, err)
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hashed),
		IsStaff:  staff,
	}
	require.NoError(ts.t, ts.db.Create(user).Error)
	return user
}

// login signs in through POST /login and returns the session cookie.
func (ts *testServer) login(username, password string) *http.Cookie {
	ts.t.Helper()
	resp := ts.postForm("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(ts.t, http.StatusFound, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(ts.t, cookie)
	return cookie
}

func (ts *testServer) createPost(title string, published bool) *models.Post {
	ts.t.Helper()
	post := &models.Post{
		Title:     title,
		Slug:      slug.Slugify(title),
		Body:      "Body of " + title,
		Published: published,
	}
	require.NoError(ts.t, ts.db.Create(post).Error)
	return post
}

func (ts *testServer) count(model any) int64 {
	ts.t.Helper()
	var n int64
	require.NoError(ts.t, ts.db.Model(model).Count(&n).Error)
	return n
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}
