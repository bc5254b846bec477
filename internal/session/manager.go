package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	CookieName = "blog_session"
	issuer     = "randomblog"
	audience   = "randomblog-web"
)

func sessionKey(sid string) string    { return "session:" + sid }
func oauthStateKey(sid string) string { return "oauth_state:" + sid }

// Session is the state carried by one browser.
type Session struct {
	ID     string
	UserID uint
}

// Authenticated reports whether a user is logged in on this session.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != 0
}

// Options configure a Manager.
type Options struct {
	Secret string
	TTL    time.Duration
	Secure bool
}

// Manager issues the session cookie and resolves it against the store.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	secure bool
}

func NewManager(store Store, opts Options) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &Manager{
		store:  store,
		secret: []byte(opts.Secret),
		ttl:    ttl,
		secure: opts.Secure,
	}
}

// Store exposes the backing store for health checks.
func (m *Manager) Store() Store {
	return m.store
}

// Current returns the session named by the request cookie, or nil when the
// cookie is absent or invalid. A user binding that was revoked server-side
// yields an anonymous session.
func (m *Manager) Current(c *fiber.Ctx) (*Session, error) {
	raw := c.Cookies(CookieName)
	if raw == "" {
		return nil, nil
	}
	claims, err := m.parse(raw)
	if err != nil {
		return nil, nil
	}

	sess := &Session{ID: claims.ID}
	if claims.Subject == "" {
		return sess, nil
	}

	stored, err := m.store.Get(c.UserContext(), sessionKey(claims.ID))
	if errors.Is(err, ErrNotFound) {
		return sess, nil
	}
	if err != nil {
		return nil, err
	}
	if stored != claims.Subject {
		return sess, nil
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return sess, nil
	}
	sess.UserID = uint(uid)
	return sess, nil
}

// Ensure returns the current session, starting an anonymous one if needed.
func (m *Manager) Ensure(c *fiber.Ctx) (*Session, error) {
	sess, err := m.Current(c)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return sess, nil
	}
	sess = &Session{ID: uuid.NewString()}
	if err := m.writeCookie(c, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Login binds userID to a fresh session id and drops the previous session.
func (m *Manager) Login(c *fiber.Ctx, userID uint) (*Session, error) {
	ctx := c.UserContext()
	if old, err := m.Current(c); err == nil && old != nil {
		if err := m.discard(ctx, old.ID); err != nil {
			return nil, fmt.Errorf("revoke previous session: %w", err)
		}
	}

	sess := &Session{ID: uuid.NewString(), UserID: userID}
	if err := m.store.Set(ctx, sessionKey(sess.ID), strconv.FormatUint(uint64(userID), 10), m.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if err := m.writeCookie(c, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Logout revokes the server-side binding and clears the cookie. The cookie
// is kept when the binding could not be revoked, so the client is not told
// it signed out while the session still works.
func (m *Manager) Logout(c *fiber.Ctx) error {
	sess, err := m.Current(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess != nil {
		if err := m.discard(c.UserContext(), sess.ID); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// PutOAuthState remembers state on the browser's session for one callback.
func (m *Manager) PutOAuthState(c *fiber.Ctx, state string) error {
	sess, err := m.Ensure(c)
	if err != nil {
		return err
	}
	return m.store.Set(c.UserContext(), oauthStateKey(sess.ID), state, m.ttl)
}

// ConsumeOAuthState returns and forgets the pending state. It returns ""
// when there is no session or no state.
func (m *Manager) ConsumeOAuthState(c *fiber.Ctx) (string, error) {
	sess, err := m.Current(c)
	if err != nil || sess == nil {
		return "", err
	}
	state, err := m.store.Pop(c.UserContext(), oauthStateKey(sess.ID))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return state, err
}

// discard drops the user binding of sid and its pending OAuth state. Only
// the binding failure is reported; a leftover state expires with the TTL.
func (m *Manager) discard(ctx context.Context, sid string) error {
	if err := m.store.Delete(ctx, sessionKey(sid)); err != nil {
		return err
	}
	_ = m.store.Delete(ctx, oauthStateKey(sid))
	return nil
}

func (m *Manager) writeCookie(c *fiber.Ctx, sess *Session) error {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	if sess.UserID != 0 {
		claims.Subject = strconv.FormatUint(uint64(sess.UserID), 10)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(m.ttl),
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	// Later reads in the same request see the new session.
	c.Request().Header.SetCookie(CookieName, signed)
	return nil
}

func (m *Manager) parse(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
	)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("session: missing id")
	}
	return claims, nil
}
