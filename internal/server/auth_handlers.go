package server

import (
	"log/slog"

	"randomblog/internal/featureflags"
	"randomblog/internal/middleware"
	"randomblog/internal/models"

	"github.com/gofiber/fiber/v2"
)

const profilePath = "/profile"

// LoginPage handles GET /login
func (s *Server) LoginPage(c *fiber.Ctx) error {
	if currentUser(c) != nil {
		return c.Redirect(profilePath, fiber.StatusFound)
	}
	return c.JSON(fiber.Map{
		"fields":           []string{"username", "password"},
		"next":             c.Query("next"),
		"google_login_url": "/oauth/google",
		"signup_enabled":   s.featureFlags.EnabledForAll(featureflags.Signup),
	})
}

// Login handles POST /login
// @Summary Password login
// @Description Starts a session and redirects to next or the profile page
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Param request body object{username=string,password=string,next=string} true "Credentials"
// @Success 302 "Redirect"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	if currentUser(c) != nil {
		return c.Redirect(profilePath, fiber.StatusFound)
	}

	req, err := parseCredentials(c)
	if err != nil {
		return models.Respond(c, err)
	}

	user, err := s.authService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}
	if _, err := s.sessions.Login(c, user.ID); err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}
	middleware.SessionLogins.WithLabelValues("password").Inc()

	return c.Redirect(safeNext(req.Next, profilePath), fiber.StatusFound)
}

// SignupPage handles GET /signup
func (s *Server) SignupPage(c *fiber.Ctx) error {
	if !s.featureFlags.EnabledForAll(featureflags.Signup) {
		return fiber.ErrNotFound
	}
	if currentUser(c) != nil {
		return c.Redirect(profilePath, fiber.StatusFound)
	}
	return c.JSON(fiber.Map{
		"fields": []string{"username", "password1", "password2"},
	})
}

// Signup handles POST /signup
// @Summary Create a password account
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Param request body object{username=string,password1=string,password2=string} true "Signup form"
// @Success 302 "Redirect to /profile"
// @Failure 400 {object} models.ErrorResponse
// @Router /signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	if !s.featureFlags.EnabledForAll(featureflags.Signup) {
		return fiber.ErrNotFound
	}
	if currentUser(c) != nil {
		return c.Redirect(profilePath, fiber.StatusFound)
	}

	var req struct {
		Username  string `json:"username" form:"username"`
		Password1 string `json:"password1" form:"password1"`
		Password2 string `json:"password2" form:"password2"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Signup(c.UserContext(), req.Username, req.Password1, req.Password2)
	if err != nil {
		return models.Respond(c, err)
	}
	if _, err := s.sessions.Login(c, user.ID); err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}
	middleware.SessionLogins.WithLabelValues("signup").Inc()
	middleware.Logger.InfoContext(c.UserContext(), "user signed up",
		slog.Uint64("user_id", uint64(user.ID)),
	)

	return c.Redirect(profilePath, fiber.StatusFound)
}

// Logout handles POST /logout
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.sessions.Logout(c); err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}
	return c.Redirect("/", fiber.StatusFound)
}
