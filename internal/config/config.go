// Package config loads the API server settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/apperr"
)

const (
	DefaultPort         = "5000"
	DefaultTokenTTL     = 7 * 24 * time.Hour
	DefaultBcryptCost   = 10
	DefaultMaxBodyBytes = 1 << 20
)

// Config holds runtime settings for the portfolio API.
//
// JWTSecret is the HMAC key for session tokens and has no default.
type Config struct {
	Port         string
	JWTSecret    string
	TokenTTL     time.Duration
	BcryptCost   int
	CookieSecure bool
	CORSOrigins  []string
	MaxBodyBytes int64
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return "0.0.0.0:" + c.Port
}

// LoadDotenv loads a .env file if present so os.Getenv picks values from it.
// This is best-effort: without a .env the real environment is used as-is.
func LoadDotenv(files ...string) {
	_ = godotenv.Load(files...)
}

// Load reads Config from the environment. A missing JWT_SECRET is a
// configuration error; callers should refuse to start.
func Load() (Config, error) {
	cfg := Config{
		Port:         envOr("PORT", DefaultPort),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		TokenTTL:     DefaultTokenTTL,
		BcryptCost:   DefaultBcryptCost,
		CookieSecure: true,
		CORSOrigins:  []string{"*"},
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
	if cfg.JWTSecret == "" {
		return Config{}, oops.Code(apperr.CodeConfiguration).Errorf("JWT_SECRET is not defined in environment variables")
	}

	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, oops.Code(apperr.CodeConfiguration).With("TOKEN_TTL", v).Errorf("invalid TOKEN_TTL")
		}
		cfg.TokenTTL = d
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < bcrypt.MinCost || n > bcrypt.MaxCost {
			return Config{}, oops.Code(apperr.CodeConfiguration).With("BCRYPT_COST", v).
				Errorf("invalid BCRYPT_COST: must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
		cfg.BcryptCost = n
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, oops.Code(apperr.CodeConfiguration).With("COOKIE_SECURE", v).Errorf("invalid COOKIE_SECURE")
		}
		cfg.CookieSecure = b
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, oops.Code(apperr.CodeConfiguration).With("MAX_BODY_BYTES", v).Errorf("invalid MAX_BODY_BYTES")
		}
		cfg.MaxBodyBytes = n
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
