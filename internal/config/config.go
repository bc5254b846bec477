// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultSessionSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env                      string  `mapstructure:"APP_ENV"`
	Port                     string  `mapstructure:"PORT"`
	SessionSecret            string  `mapstructure:"SESSION_SECRET"`
	SessionTTLHours          int     `mapstructure:"SESSION_TTL_HOURS"`
	CookieSecure             bool    `mapstructure:"COOKIE_SECURE"`
	DBDriver                 string  `mapstructure:"DB_DRIVER"`
	DBHost                   string  `mapstructure:"DB_HOST"`
	DBPort                   string  `mapstructure:"DB_PORT"`
	DBUser                   string  `mapstructure:"DB_USER"`
	DBPassword               string  `mapstructure:"DB_PASSWORD"`
	DBName                   string  `mapstructure:"DB_NAME"`
	DBSSLMode                string  `mapstructure:"DB_SSLMODE"`
	DBPath                   string  `mapstructure:"DB_PATH"`
	DBMaxOpenConns           int     `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int     `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int     `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	RedisURL                 string  `mapstructure:"REDIS_URL"`
	AllowedOrigins           string  `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags             string  `mapstructure:"FEATURE_FLAGS"`
	GoogleClientID           string  `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret       string  `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI        string  `mapstructure:"GOOGLE_REDIRECT_URI"`
	GoogleScopes             string  `mapstructure:"GOOGLE_SCOPES"`
	OAuthHTTPTimeoutSeconds  int     `mapstructure:"OAUTH_HTTP_TIMEOUT_SECONDS"`
	TracingEnabled           bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter          string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint             string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio      float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// Initial read to get APP_ENV if set in base config
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "8000")
	viper.SetDefault("SESSION_SECRET", defaultSessionSecret)
	viper.SetDefault("SESSION_TTL_HOURS", 24*14)
	viper.SetDefault("COOKIE_SECURE", false)
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "randomblog")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "randomblog.db")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:8000,http://127.0.0.1:8000")
	viper.SetDefault("FEATURE_FLAGS", "signup=on,swagger=on")
	viper.SetDefault("GOOGLE_CLIENT_ID", "")
	viper.SetDefault("GOOGLE_CLIENT_SECRET", "")
	viper.SetDefault("GOOGLE_REDIRECT_URI", "http://localhost:8000/oauth/google/callback")
	viper.SetDefault("GOOGLE_SCOPES", "openid email profile")
	viper.SetDefault("OAUTH_HTTP_TIMEOUT_SECONDS", 10)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.GoogleClientID = strings.TrimSpace(c.GoogleClientID)
	c.GoogleClientSecret = strings.TrimSpace(c.GoogleClientSecret)
}

// IsProduction reports whether strict production checks apply.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// SessionTTL is the lifetime of a browser session and everything scoped to it.
func (c *Config) SessionTTL() time.Duration {
	if c.SessionTTLHours <= 0 {
		return 14 * 24 * time.Hour
	}
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// OAuthHTTPTimeout bounds each outbound call to the identity provider.
func (c *Config) OAuthHTTPTimeout() time.Duration {
	if c.OAuthHTTPTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.OAuthHTTPTimeoutSeconds) * time.Second
}

// Scopes returns GOOGLE_SCOPES split on commas and whitespace.
func (c *Config) Scopes() []string {
	return strings.FieldsFunc(c.GoogleScopes, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// GoogleOAuthConfigured reports whether the Google client credentials are present.
func (c *Config) GoogleOAuthConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.DBDriver == "sqlite" && c.DBPath == "" {
		return errors.New("DB_PATH is required when DB_DRIVER is sqlite")
	}

	if c.IsProduction() {
		if c.SessionSecret == defaultSessionSecret {
			return errors.New("SESSION_SECRET must be changed from the default value in production")
		}
		if len(c.SessionSecret) < 32 {
			return errors.New("SESSION_SECRET must be at least 32 characters in production")
		}
		if c.DBDriver == "postgres" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBDriver == "postgres" && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			return errors.New("DB_SSLMODE must not be 'disable' in production")
		}
		if !c.CookieSecure {
			log.Println("WARNING: COOKIE_SECURE is false in production. Session cookies will be sent over plain HTTP.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.SessionSecret) < 32 {
		log.Println("WARNING: SESSION_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	if !c.GoogleOAuthConfigured() {
		log.Println("WARNING: GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET are not set; Google sign-in will fail with a configuration error.")
	}

	return nil
}
