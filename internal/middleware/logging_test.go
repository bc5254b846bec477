package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtxHandler_AddsContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&ctxHandler{slog.NewTextHandler(&buf, nil)})

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = WithUserID(ctx, 42)
	logger.With("component", "test").InfoContext(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "user_id=42")
	assert.Contains(t, out, "component=test")
}

func TestContextMiddleware_PropagatesLocals(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(LocalRequestID, "abc")
		c.Locals(LocalUserID, uint(7))
		return c.Next()
	})
	app.Use(ContextMiddleware())

	var gotRID string
	var gotUID uint
	app.Get("/", func(c *fiber.Ctx) error {
		gotRID, _ = c.UserContext().Value(RequestIDKey).(string)
		gotUID, _ = c.UserContext().Value(UserIDKey).(uint)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "abc", gotRID)
	assert.Equal(t, uint(7), gotUID)
}
