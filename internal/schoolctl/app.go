// Package schoolctl is a command-line front end for the school dashboard
// API. It plays the part of the dashboard UI: it logs staff in and out,
// works with the resource collections, and in shell mode keeps the
// session alive the way an open browser tab would.
package schoolctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aussiebroadwan/neoschool/pkg/credstore"
	redistier "github.com/aussiebroadwan/neoschool/pkg/credstore/drivers/redis"
	"github.com/aussiebroadwan/neoschool/pkg/credstore/drivers/sqlite"
	"github.com/aussiebroadwan/neoschool/pkg/cryptox"
	"github.com/aussiebroadwan/neoschool/pkg/schoolsdk"
	"github.com/aussiebroadwan/neoschool/pkg/slogx"
	"golang.org/x/time/rate"
)

// Version is reported by the version command.
const Version = "v0.1.0"

// ErrUsage is returned for malformed command lines. The usage text has
// already been written to stderr.
var ErrUsage = errors.New("usage error")

// App runs schoolctl commands against one SDK client.
type App struct {
	cfg    Config
	logger *slog.Logger
	client *schoolsdk.SDKClient

	durable io.Closer

	lines  *bufio.Scanner
	stdout io.Writer
	stderr io.Writer

	unsubscribe func()
}

// New opens the state backend and builds the SDK client. Close releases
// the state backend.
func New(ctx context.Context, cfg Config, stdin io.Reader, stdout, stderr io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slogx.New(slogx.Config{
		Service: "schoolctl",
		Version: Version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  stderr,
	})

	durable, closer, err := openDurable(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := credstore.New(nil, durable, credstore.WithLogger(logger))

	opts := []schoolsdk.Option{
		schoolsdk.WithLogger(logger),
		schoolsdk.WithTimeout(cfg.HTTPTimeout),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, schoolsdk.WithRateLimit(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit))))
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		client:  schoolsdk.NewSDKClient(cfg.APIURL, store, opts...),
		durable: closer,
		lines:   bufio.NewScanner(stdin),
		stdout:  stdout,
		stderr:  stderr,
	}
	a.unsubscribe = a.client.OnSessionEnded(a.reportSessionEnd)
	return a, nil
}

// Client returns the underlying SDK client.
func (a *App) Client() *schoolsdk.SDKClient { return a.client }

// Close releases the state backend.
func (a *App) Close() error {
	a.unsubscribe()
	return a.durable.Close()
}

// openDurable opens the tier that holds remembered sessions.
// Both backends seal the record when a secret key is configured.
func openDurable(ctx context.Context, cfg Config) (credstore.Tier, io.Closer, error) {
	var sealer credstore.Sealer
	if cfg.SecretKey != "" {
		s, err := cryptox.NewSealer([]byte(cfg.SecretKey))
		if err != nil {
			return nil, nil, fmt.Errorf("init state sealer: %w", err)
		}
		sealer = s
	}

	switch cfg.StateBackend {
	case BackendRedis:
		tier, err := redistier.Open(ctx, cfg.RedisURL, "", 0, sealer)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis state: %w", err)
		}
		return tier, tier, nil

	default:
		dsn, err := sqlite.FileDSN(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		tier, err := sqlite.Open(dsn, sealer)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite state: %w", err)
		}
		return tier, tier, nil
	}
}

// reportSessionEnd tells the user why they were signed out. An explicit
// logout reports itself.
func (a *App) reportSessionEnd(ev schoolsdk.SessionEnd) {
	switch ev.Reason {
	case schoolsdk.EndIdleTimeout:
		fmt.Fprintln(a.stderr, "session expired after inactivity, please log in again")
	case schoolsdk.EndRefreshFailed:
		fmt.Fprintln(a.stderr, "session expired, please log in again")
	case schoolsdk.EndRevoked:
		fmt.Fprintln(a.stderr, "session is no longer valid, please log in again")
	}
}

// readLine returns the next input line. Commands and password prompts
// share one scanner so the shell never loses buffered input.
func (a *App) readLine() (string, error) {
	if a.lines.Scan() {
		return a.lines.Text(), nil
	}
	if err := a.lines.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
