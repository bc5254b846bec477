package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"randomblog/internal/cache"
	"randomblog/internal/config"
	"randomblog/internal/database"
	"randomblog/internal/middleware"
	"randomblog/internal/seed"
	"randomblog/internal/session"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemo bool
}

// Runtime holds the connections shared by the server and the CLIs.
type Runtime struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Sessions session.Store
}

// ErrSessionStoreUnavailable is returned in production when Redis cannot be reached.
var ErrSessionStoreUnavailable = errors.New("redis is required for sessions in production")

// InitRuntime connects to DB and Redis, picks the session store and
// optionally seeds demo content.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	store, err := sessionStore(cfg, r)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	if opts.SeedDemo {
		if cfg.IsProduction() {
			middleware.Logger.Warn("demo seeding is disabled in production")
		} else if _, err := seed.NewSeeder(db).Run(context.Background(), seed.Options{}); err != nil {
			return nil, fmt.Errorf("failed to seed demo content: %w", err)
		}
	}

	return &Runtime{DB: db, Redis: r, Sessions: store}, nil
}

func sessionStore(cfg *config.Config, r *redis.Client) (session.Store, error) {
	if r != nil {
		return session.NewRedisStore(r), nil
	}
	if cfg.IsProduction() {
		return nil, ErrSessionStoreUnavailable
	}
	middleware.Logger.Warn("using in-memory session store; sessions are lost on restart",
		slog.String("env", cfg.Env),
	)
	return session.NewMemoryStore(), nil
}

// Close releases the runtime connections.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	cache.Close()
	if rt.DB != nil {
		if err := database.Close(rt.DB); err != nil {
			middleware.Logger.Error("Error closing database", slog.String("error", err.Error()))
		}
	}
}
