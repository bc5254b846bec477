package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"randomblog/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func limitedApp(limiter *RateLimiter, l Limit, userID uint) *fiber.App {
	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals(LocalUserID, userID)
		}
		return c.Next()
	}, limiter.Handler(l), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func post(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	return resp
}

func TestNewRateLimiter_DisabledOutsideProduction(t *testing.T) {
	tight := Limit{Name: "login", Max: 1, Window: time.Minute}
	for _, env := range []string{"", "test", "development"} {
		t.Run(env, func(t *testing.T) {
			limiter := NewRateLimiter(nil, env)
			for i := 0; i < 3; i++ {
				ok, _, err := limiter.Allow(context.Background(), tight, "ip:1")
				require.NoError(t, err)
				assert.True(t, ok)
			}
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb, "production")
	ctx := context.Background()
	l := Limit{Name: "login", Max: 2, Window: time.Minute}

	for i := 0; i < 2; i++ {
		ok, _, err := limiter.Allow(ctx, l, "ip:1")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}

	ok, retryAfter, err := limiter.Allow(ctx, l, "ip:1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retryAfter)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:login:ip:1"))

	t.Run("another client has its own window", func(t *testing.T) {
		ok, _, err := limiter.Allow(ctx, l, "ip:2")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("window expiry resets the count", func(t *testing.T) {
		mr.FastForward(time.Minute + time.Second)
		ok, _, err := limiter.Allow(ctx, l, "ip:1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("later attempts do not extend the window", func(t *testing.T) {
		mr.FastForward(30 * time.Second)
		_, _, err := limiter.Allow(ctx, l, "ip:1")
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, mr.TTL("ratelimit:login:ip:1"))
	})
}

func TestRateLimiter_Handler(t *testing.T) {
	t.Run("rejects with retry hint once the limit is spent", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		app := limitedApp(NewRateLimiter(rdb, "production"), Limit{Name: "signup", Max: 1, Window: 10 * time.Minute}, 0)

		assert.Equal(t, fiber.StatusOK, post(t, app).StatusCode)

		resp := post(t, app)
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, strconv.Itoa(600), resp.Header.Get(fiber.HeaderRetryAfter))

		var body models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, CodeRateLimited, body.Code)
		assert.NotEmpty(t, body.Error)
	})

	t.Run("signed in callers are counted by user", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		limiter := NewRateLimiter(rdb, "production")
		l := Limit{Name: "login", Max: 1, Window: time.Minute}

		assert.Equal(t, fiber.StatusOK, post(t, limitedApp(limiter, l, 7)).StatusCode)
		assert.Equal(t, fiber.StatusOK, post(t, limitedApp(limiter, l, 0)).StatusCode)
		assert.True(t, mr.Exists("ratelimit:login:user:7"))
		assert.Equal(t, fiber.StatusTooManyRequests, post(t, limitedApp(limiter, l, 7)).StatusCode)
	})

	t.Run("store outage follows the limit's fail policy", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		limiter := NewRateLimiter(rdb, "production")
		mr.Close()

		assert.Equal(t, fiber.StatusServiceUnavailable, post(t, limitedApp(limiter, SignupLimit, 0)).StatusCode)
		assert.Equal(t, fiber.StatusOK, post(t, limitedApp(limiter, LoginLimit, 0)).StatusCode)
	})

	t.Run("missing store follows the limit's fail policy", func(t *testing.T) {
		limiter := NewRateLimiter(nil, "production")

		assert.Equal(t, fiber.StatusServiceUnavailable, post(t, limitedApp(limiter, SignupLimit, 0)).StatusCode)
		assert.Equal(t, fiber.StatusOK, post(t, limitedApp(limiter, OAuthCallbackLimit, 0)).StatusCode)
	})
}
