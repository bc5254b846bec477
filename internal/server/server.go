// Package server contains the HTTP handlers and routing for the blog.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	_ "randomblog/docs" // swagger docs
	"randomblog/internal/config"
	"randomblog/internal/database"
	"randomblog/internal/featureflags"
	"randomblog/internal/middleware"
	"randomblog/internal/models"
	"randomblog/internal/oauth"
	"randomblog/internal/observability"
	"randomblog/internal/repository"
	"randomblog/internal/service"
	"randomblog/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	promOnce       sync.Once
	promMiddleware *fiberprometheus.FiberPrometheus
)

// httpMetrics registers the request collectors once per process so several
// servers (tests) can share the default registry.
func httpMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMiddleware = fiberprometheus.NewWithRegistry(
			prometheus.DefaultRegisterer, observability.ServiceName, "http", "", nil)
	})
	return promMiddleware
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *session.Manager
	google         *oauth.Provider
	featureFlags   *featureflags.Manager
	postService    *service.PostService
	visitService   *service.VisitService
	authService    *service.AuthService
}

// Option overrides a dependency NewServerWithDeps would otherwise build from config.
type Option func(*Server)

// WithSessionStore backs sessions with store instead of the Redis client.
func WithSessionStore(store session.Store) Option {
	return func(s *Server) {
		s.sessions = session.NewManager(store, s.sessionOptions())
	}
}

// WithGoogleProvider replaces the provider built from GOOGLE_* settings.
func WithGoogleProvider(p *oauth.Provider) Option {
	return func(s *Server) { s.google = p }
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Sessions live in Redis unless WithSessionStore says otherwise.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server: config and database are required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: httpMetrics(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		google: oauth.NewGoogleProvider(oauth.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes:       cfg.Scopes(),
			Timeout:      cfg.OAuthHTTPTimeout(),
		}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sessions == nil {
		if redisClient == nil {
			return nil, errors.New("server: a session store is required when Redis is unavailable")
		}
		s.sessions = session.NewManager(session.NewRedisStore(redisClient), s.sessionOptions())
	}

	s.postService = service.NewPostService(repository.NewPostRepository(db))
	s.visitService = service.NewVisitService(repository.NewVisitRepository(db))
	s.authService = service.NewAuthService(repository.NewUserRepository(db))

	return s, nil
}

func (s *Server) sessionOptions() session.Options {
	return session.Options{
		Secret: s.config.SessionSecret,
		TTL:    s.config.SessionTTL(),
		Secure: s.config.CookieSecure,
	}
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "randomblog",
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}

	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Resolve the session before the context middleware copies userID into
	// the request context for logging.
	app.Use(s.LoadSession())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8000,http://127.0.0.1:8000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	if s.featureFlags.EnabledForAll(featureflags.Swagger) {
		app.Get("/api/swagger/*", swagger.HandlerDefault)
	}

	// Public pages
	app.Get("/", s.ListPosts)
	app.Get("/post/:slug", s.GetPost)

	// Accounts
	attempts := middleware.NewRateLimiter(s.redis, s.config.Env)
	loginLimit := attempts.Handler(middleware.LoginLimit)
	app.Get("/login", s.LoginPage)
	app.Post("/login", loginLimit, s.Login)
	app.Get("/signup", s.SignupPage)
	app.Post("/signup", attempts.Handler(middleware.SignupLimit), s.Signup)
	app.Post("/logout", s.Logout)
	app.Get("/profile", s.Guard(LoginPolicy), s.Profile)

	// Google sign-in
	app.Get("/oauth/google", s.GoogleStart)
	app.Get("/oauth/google/callback", attempts.Handler(middleware.OAuthCallbackLimit), s.GoogleCallback)

	// Staff area
	app.Get("/manage/login", s.ManageLoginPage)
	app.Post("/manage/login", loginLimit, s.ManageLogin)
	app.Post("/manage/logout", s.Guard(ManageLoginPolicy), s.ManageLogout)

	staff := s.Guard(StaffPolicy)
	app.Get("/manage", staff, s.ManageDashboard)
	app.Get("/manage/posts/new", staff, s.NewPostForm)
	app.Post("/manage/posts/new", staff, s.CreatePost)
	app.Get("/manage/posts/:id/edit", staff, s.EditPostForm)
	app.Post("/manage/posts/:id/edit", staff, s.UpdatePost)
	app.Get("/manage/posts/:id/delete", staff, s.DeletePostConfirm)
	app.Post("/manage/posts/:id/delete", staff, s.DeletePost)
}

// LivenessCheck handles liveness check requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports the database and session store. Redis is only
// checked when configured; the in-memory session store is always ready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	sessionStatus := "healthy"
	if err := s.sessions.Store().Ping(ctx); err != nil {
		sessionStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || sessionStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"sessions": sessionStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and closes the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
