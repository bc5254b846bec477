package server

import (
	"crypto/subtle"
	"log/slog"

	"randomblog/internal/middleware"
	"randomblog/internal/models"
	"randomblog/internal/oauth"

	"github.com/gofiber/fiber/v2"
)

// Callback outcomes reported on the randomblog_oauth_callbacks_total counter.
const (
	outcomeSuccess       = "success"
	outcomeNotConfigured = "not_configured"
	outcomeInvalidState  = "invalid_state"
	outcomeMissingCode   = "missing_code"
	outcomeUpstream      = "upstream_error"
	outcomeMissingEmail  = "missing_email"
	outcomeError         = "error"
)

// GoogleStart handles GET /oauth/google
// @Summary Begin Google sign-in
// @Description Stores a one-time state on the session and redirects to Google
// @Tags oauth
// @Success 302 "Redirect to Google"
// @Failure 500 {object} models.ErrorResponse "Google OAuth is not configured"
// @Router /oauth/google [get]
func (s *Server) GoogleStart(c *fiber.Ctx) error {
	if err := s.google.CheckConfigured(); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "google sign-in is not configured")
		return models.Respond(c, err)
	}

	state, err := oauth.NewState()
	if err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}
	if err := s.sessions.PutOAuthState(c, state); err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}
	return c.Redirect(s.google.AuthCodeURL(state), fiber.StatusFound)
}

// GoogleCallback handles GET /oauth/google/callback
// @Summary Finish Google sign-in
// @Description Consumes the session state, exchanges the code, links or creates the account and starts a session
// @Tags oauth
// @Param state query string true "State issued by /oauth/google"
// @Param code query string true "Authorization code"
// @Success 302 "Redirect to /profile"
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse "Google OAuth is not configured"
// @Router /oauth/google/callback [get]
func (s *Server) GoogleCallback(c *fiber.Ctx) error {
	ctx := c.UserContext()
	fail := func(outcome string, err error) error {
		middleware.OAuthCallbacks.WithLabelValues(outcome).Inc()
		middleware.Logger.WarnContext(ctx, "google callback rejected",
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return models.Respond(c, err)
	}

	if err := s.google.CheckConfigured(); err != nil {
		return fail(outcomeNotConfigured, err)
	}

	// The state is consumed before anything else so a failed callback
	// cannot be replayed.
	expected, err := s.sessions.ConsumeOAuthState(c)
	if err != nil {
		return fail(outcomeError, models.NewInternalError(err))
	}
	state := c.Query("state")
	if expected == "" || state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		return fail(outcomeInvalidState, models.NewProtocolError("Invalid OAuth state."))
	}

	code := c.Query("code")
	if code == "" {
		return fail(outcomeMissingCode, models.NewProtocolError("Authorization code missing."))
	}

	tok, err := s.google.Exchange(ctx, code)
	if err != nil {
		return fail(outcomeUpstream, err)
	}
	profile, err := s.google.FetchProfile(ctx, tok)
	if err != nil {
		return fail(outcomeUpstream, err)
	}

	user, err := s.authService.ReconcileGoogleUser(ctx, profile)
	if err != nil {
		if models.IsCode(err, models.CodeProtocol) {
			return fail(outcomeMissingEmail, err)
		}
		return fail(outcomeError, err)
	}

	if _, err := s.sessions.Login(c, user.ID); err != nil {
		return fail(outcomeError, models.NewInternalError(err))
	}
	middleware.OAuthCallbacks.WithLabelValues(outcomeSuccess).Inc()
	middleware.SessionLogins.WithLabelValues("google").Inc()

	return c.Redirect(profilePath, fiber.StatusFound)
}
