package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/neoschool/internal/envx"
	"github.com/aussiebroadwan/neoschool/internal/schoold/service"
	"github.com/aussiebroadwan/neoschool/pkg/jwtx"
)

type Config struct {
	Issuer     string        // Optional: issuer claim for tokens (default: neoschool)
	JWTSecret  string        // Required: HS512 secret, at least 32 bytes
	AccessTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL time.Duration // Optional: refresh token lifetime (default: 7d)
	ClockSkew  time.Duration // Optional: leeway when verifying tokens (default: 30s)

	AdminUsername   string // Optional: seeded admin account (default: admin)
	AdminPassword   string // Required: seeded admin password
	TeacherUsername string // Optional: seeded teacher account
	TeacherPassword string // Optional: seeded teacher password

	PepperFile           string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 24h)
}

func LoadConfig() Config {
	envx.LoadDotEnv()

	return Config{
		Issuer:     envx.GetOrDefault("SCHOOLD_ISSUER", "neoschool"),
		JWTSecret:  envx.GetOrDefault("SCHOOLD_JWT_SECRET", ""),
		AccessTTL:  envx.DurationOrDefault("SCHOOLD_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: envx.DurationOrDefault("SCHOOLD_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		ClockSkew:  envx.DurationOrDefault("SCHOOLD_CLOCK_SKEW", 30*time.Second),

		AdminUsername:   envx.GetOrDefault("SCHOOLD_ADMIN_USERNAME", "admin"),
		AdminPassword:   envx.GetOrDefault("SCHOOLD_ADMIN_PASSWORD", ""),
		TeacherUsername: envx.GetOrDefault("SCHOOLD_TEACHER_USERNAME", ""),
		TeacherPassword: envx.GetOrDefault("SCHOOLD_TEACHER_PASSWORD", ""),

		PepperFile:           envx.GetOrDefault("SCHOOLD_PEPPER_FILE", "pepper"),
		Env:                  envx.GetOrDefault("ENV", "dev"),
		LogLevel:             envx.GetOrDefault("LOG_LEVEL", "info"),
		LogFormat:            envx.GetOrDefault("LOG_FORMAT", "json"),
		Port:                 envx.IntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  envx.DurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: envx.DurationOrDefault("HOUSEKEEPING_INTERVAL", service.DefaultHousekeepingInterval),
	}
}

// Validate reports configuration the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < jwtx.MinSecretLen {
		errs = append(errs, fmt.Errorf("SCHOOLD_JWT_SECRET must be at least %d bytes", jwtx.MinSecretLen))
	}
	if c.AdminPassword == "" {
		errs = append(errs, errors.New("SCHOOLD_ADMIN_PASSWORD is required"))
	}
	if (c.TeacherUsername == "") != (c.TeacherPassword == "") {
		errs = append(errs, errors.New("SCHOOLD_TEACHER_USERNAME and SCHOOLD_TEACHER_PASSWORD must be set together"))
	}
	if c.ClockSkew < 0 {
		errs = append(errs, errors.New("SCHOOLD_CLOCK_SKEW must not be negative"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= c.AccessTTL {
		errs = append(errs, errors.New("token lifetimes must satisfy 0 < access < refresh"))
	}
	return errors.Join(errs...)
}
