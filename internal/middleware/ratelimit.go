package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"randomblog/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// CodeRateLimited is the error code of a throttled request.
const CodeRateLimited = "RATE_LIMITED"

var errNoStore = errors.New("rate limit store is not configured")

// Limit is one throttled action of the blog, counted in a fixed window per
// client.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	OnFail FailPolicy
}

// Password guessing and callback replay fail open so a Redis outage does not
// lock readers out; account creation fails closed.
var (
	LoginLimit         = Limit{Name: "login", Max: 10, Window: 5 * time.Minute, OnFail: FailOpen}
	SignupLimit        = Limit{Name: "signup", Max: 3, Window: 10 * time.Minute, OnFail: FailClosed}
	OAuthCallbackLimit = Limit{Name: "oauth_callback", Max: 20, Window: 5 * time.Minute, OnFail: FailOpen}
)

func (l Limit) key(client string) string {
	return fmt.Sprintf("ratelimit:%s:%s", l.Name, client)
}

// RateLimiter enforces Limits against Redis. It is a no-op in the test and
// development environments.
type RateLimiter struct {
	rdb     *redis.Client
	enabled bool
}

func NewRateLimiter(rdb *redis.Client, env string) *RateLimiter {
	switch env {
	case "", "test", "development":
		return &RateLimiter{rdb: rdb}
	}
	return &RateLimiter{rdb: rdb, enabled: true}
}

// Allow records one attempt by client against l. When the window is used up
// it returns false and the time until the window resets.
func (r *RateLimiter) Allow(ctx context.Context, l Limit, client string) (bool, time.Duration, error) {
	if !r.enabled {
		return true, 0, nil
	}
	if r.rdb == nil {
		return false, 0, errNoStore
	}

	key := l.key(client)
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.Window)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	if incr.Val() <= int64(l.Max) {
		return true, 0, nil
	}
	return false, ttl.Val(), nil
}

// Handler throttles a route with l. Signed-in callers are counted by user id,
// everyone else by remote IP.
func (r *RateLimiter) Handler(l Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		client := "ip:" + c.IP()
		if uid, ok := c.Locals(LocalUserID).(uint); ok && uid != 0 {
			client = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		allowed, retryAfter, err := r.Allow(c.UserContext(), l, client)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
				slog.String("limit", l.Name),
				slog.String("error", err.Error()),
			)
			if l.OnFail == FailClosed {
				return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
					Error: "Please try again later.",
					Code:  CodeRateLimited,
				})
			}
			return c.Next()
		}

		if !allowed {
			RateLimited.WithLabelValues(l.Name).Inc()
			if secs := int(retryAfter.Round(time.Second) / time.Second); secs > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many attempts. Please wait and try again.",
				Code:  CodeRateLimited,
			})
		}
		return c.Next()
	}
}
