package server

import (
	"log/slog"
	"net/url"

	"randomblog/internal/middleware"
	"randomblog/internal/models"

	"github.com/gofiber/fiber/v2"
)

const localUser = "user"

// Decision is the outcome of checking a Policy against the current user.
type Decision int

const (
	Allow Decision = iota
	LoginRequired
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case LoginRequired:
		return "login_required"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Policy decides who may reach a route. Anonymous visitors are sent to
// LoginURL; signed-in users the policy rejects get a 403.
type Policy struct {
	Name     string
	LoginURL string
	Allows   func(user *models.User) bool
}

var (
	LoginPolicy = Policy{
		Name:     "login",
		LoginURL: "/login",
		Allows:   func(*models.User) bool { return true },
	}
	// ManageLoginPolicy only requires a session but sends anonymous
	// visitors to the staff login form.
	ManageLoginPolicy = Policy{
		Name:     "manage_login",
		LoginURL: "/manage/login",
		Allows:   func(*models.User) bool { return true },
	}
	StaffPolicy = Policy{
		Name:     "staff",
		LoginURL: "/manage/login",
		Allows:   func(u *models.User) bool { return u.IsStaff },
	}
)

// Authorize evaluates p for user, which is nil for anonymous visitors.
func Authorize(p Policy, user *models.User) Decision {
	if user == nil {
		return LoginRequired
	}
	if p.Allows != nil && !p.Allows(user) {
		return Forbidden
	}
	return Allow
}

// Guard renders the Decision for p: the next handler runs on Allow.
func (s *Server) Guard(p Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch decision := Authorize(p, currentUser(c)); decision {
		case Allow:
			return c.Next()
		case LoginRequired:
			return c.Redirect(p.LoginURL+"?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
		default:
			middleware.Logger.WarnContext(c.UserContext(), "access denied",
				slog.String("policy", p.Name),
				slog.String("path", c.Path()),
			)
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("You do not have permission to access this page."))
		}
	}
}

// LoadSession resolves the session cookie to a user and stores it in locals.
// A session whose user no longer exists, or a store outage, is treated as
// anonymous.
func (s *Server) LoadSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := s.sessions.Current(c)
		if err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "session lookup failed",
				slog.String("error", err.Error()),
			)
			return c.Next()
		}
		if !sess.Authenticated() {
			return c.Next()
		}

		user, err := s.authService.GetUser(c.UserContext(), sess.UserID)
		if err != nil {
			if !models.IsCode(err, models.CodeNotFound) {
				middleware.Logger.WarnContext(c.UserContext(), "session user lookup failed",
					slog.String("error", err.Error()),
				)
			}
			return c.Next()
		}

		c.Locals(middleware.LocalUserID, user.ID)
		c.Locals(localUser, user)
		return c.Next()
	}
}

// currentUser returns the signed-in user, or nil.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}
