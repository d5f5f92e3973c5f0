package schoolctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aussiebroadwan/neoschool/internal/envx"
	"github.com/aussiebroadwan/neoschool/pkg/schoolsdk"
)

// State backends for remembered sessions.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	APIURL      string        // Optional: backend base URL (default: http://localhost:8080/api)
	HTTPTimeout time.Duration // Optional: per-request timeout (default: 30s)
	RateLimit   float64       // Optional: client-side requests per second, 0 disables

	StateBackend string // Optional: sqlite or redis (default: sqlite)
	StateFile    string // Optional: sqlite state file (default: <user config dir>/neoschool/state.db)
	RedisURL     string // Required for the redis backend: redis://[:password@]host:port/db
	SecretKey    string // Optional: seals the remembered record at rest (either backend)

	IdleTimeout  time.Duration // Optional: shell idle timeout (default: 30m)
	RefreshEvery time.Duration // Optional: shell refresh cadence (default: 5m)

	Password string // Optional: login password, read from stdin when empty
	Remember bool   // Optional: default for login -remember (default: false)

	Env       string // Environment (dev, prod) (default: prod)
	LogLevel  string // Log level (debug, info, warn, error) (default: warn)
	LogFormat string // Log format (json, text) (default: text)
}

func LoadConfig() Config {
	envx.LoadDotEnv()

	return Config{
		APIURL:      envx.GetOrDefault("NEOSCHOOL_API_URL", "http://localhost:8080/api"),
		HTTPTimeout: envx.DurationOrDefault("NEOSCHOOL_HTTP_TIMEOUT", schoolsdk.DefaultTimeout),
		RateLimit:   envx.FloatOrDefault("NEOSCHOOL_RATE_LIMIT", 0),

		StateBackend: envx.GetOrDefault("NEOSCHOOL_STATE_BACKEND", BackendSQLite),
		StateFile:    envx.GetOrDefault("NEOSCHOOL_STATE_FILE", defaultStateFile()),
		RedisURL:     envx.GetOrDefault("NEOSCHOOL_REDIS_URL", ""),
		SecretKey:    envx.GetOrDefault("NEOSCHOOL_SECRET_KEY", ""),

		IdleTimeout:  envx.DurationOrDefault("NEOSCHOOL_IDLE_TIMEOUT", schoolsdk.DefaultIdleTimeout),
		RefreshEvery: envx.DurationOrDefault("NEOSCHOOL_REFRESH_EVERY", schoolsdk.DefaultRefreshEvery),

		Password: envx.GetOrDefault("NEOSCHOOL_PASSWORD", ""),
		Remember: envx.BoolOrDefault("NEOSCHOOL_REMEMBER", false),

		Env:       envx.GetOrDefault("ENV", "prod"),
		LogLevel:  envx.GetOrDefault("LOG_LEVEL", "warn"),
		LogFormat: envx.GetOrDefault("LOG_FORMAT", "text"),
	}
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "neoschool", "state.db")
}

// Validate reports configuration the CLI cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("NEOSCHOOL_API_URL is required"))
	}
	switch c.StateBackend {
	case BackendSQLite:
		if c.StateFile == "" {
			errs = append(errs, errors.New("NEOSCHOOL_STATE_FILE is required for the sqlite backend"))
		}
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("NEOSCHOOL_REDIS_URL is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NEOSCHOOL_STATE_BACKEND %q", c.StateBackend))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("NEOSCHOOL_RATE_LIMIT must not be negative"))
	}
	return errors.Join(errs...)
}
