package server

import (
	"errors"
	"net/url"
	"strings"
	"unicode"

	"randomblog/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 404 JSON response and returns errResponseWritten,
// matching how a non-numeric path segment would fail to route.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Post", c.Params(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// safeNext returns next when it is a local path, otherwise fallback.
// Browsers drop tabs and newlines while parsing a Location, so any control
// character is rejected before the "//" check can be trusted.
func safeNext(next, fallback string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	if strings.IndexFunc(next, unicode.IsControl) >= 0 {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// credentials is the username/password form shared by both login pages.
type credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Next     string `json:"next" form:"next"`
}

func parseCredentials(c *fiber.Ctx) (credentials, error) {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return req, models.NewValidationError("Invalid request body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return req, models.NewValidationError("Username and password are required")
	}
	if req.Next == "" {
		req.Next = c.Query("next")
	}
	return req, nil
}
