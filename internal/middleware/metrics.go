package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "randomblog_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// OAuthCallbacks counts Google callback outcomes.
	OAuthCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "randomblog_oauth_callbacks_total",
		Help: "Google OAuth callback outcomes",
	}, []string{"outcome"})

	// SlugCollisions counts candidate slugs rejected because they were taken.
	SlugCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "randomblog_slug_collisions_total",
		Help: "Slug candidates skipped because another post already uses them",
	})

	// PostVisitsRecorded counts visit rows written for authenticated readers.
	PostVisitsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "randomblog_post_visits_recorded_total",
		Help: "Post visits recorded for authenticated users",
	})

	// SessionLogins counts successful logins by method.
	SessionLogins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "randomblog_session_logins_total",
		Help: "Successful logins by method",
	}, []string{"method"})

	// RateLimited counts requests rejected by a named limit.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "randomblog_rate_limited_total",
		Help: "Requests rejected by rate limiting",
	}, []string{"limit"})
)
