package schoolctl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("NEOSCHOOL_API_URL", "https://school.example/api")
	t.Setenv("NEOSCHOOL_IDLE_TIMEOUT", "10")
	t.Setenv("NEOSCHOOL_REFRESH_EVERY", "90s")
	t.Setenv("NEOSCHOOL_RATE_LIMIT", "2.5")
	t.Setenv("NEOSCHOOL_STATE_BACKEND", "redis")
	t.Setenv("NEOSCHOOL_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("NEOSCHOOL_REMEMBER", "true")

	cfg := LoadConfig()
	require.Equal(t, "https://school.example/api", cfg.APIURL)
	require.Equal(t, 10*time.Minute, cfg.IdleTimeout)
	require.Equal(t, 90*time.Second, cfg.RefreshEvery)
	require.InDelta(t, 2.5, cfg.RateLimit, 1e-9)
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	require.True(t, cfg.Remember)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	base := Config{APIURL: "http://localhost:8080/api", StateBackend: BackendSQLite, StateFile: "state.db"}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no api url", func(c *Config) { c.APIURL = "" }, "NEOSCHOOL_API_URL"},
		{"no state file", func(c *Config) { c.StateFile = "" }, "NEOSCHOOL_STATE_FILE"},
		{"redis without url", func(c *Config) { c.StateBackend = BackendRedis }, "NEOSCHOOL_REDIS_URL"},
		{"unknown backend", func(c *Config) { c.StateBackend = "etcd" }, "NEOSCHOOL_STATE_BACKEND"},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "NEOSCHOOL_RATE_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
