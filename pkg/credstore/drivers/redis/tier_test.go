package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/neoschool/pkg/credstore"
	credredis "github.com/aussiebroadwan/neoschool/pkg/credstore/drivers/redis"
	"github.com/aussiebroadwan/neoschool/pkg/cryptox"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in -short mode")
	}

	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisTier(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	tier, err := credredis.Open(ctx, url, "test:", time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tier.Close() })

	_, err = tier.Load(ctx, "user")
	require.ErrorIs(t, err, credstore.ErrNotFound)

	require.NoError(t, tier.Save(ctx, "user", []byte(`{"username":"alice"}`)))
	got, err := tier.Load(ctx, "user")
	require.NoError(t, err)
	require.JSONEq(t, `{"username":"alice"}`, string(got))

	require.NoError(t, tier.Delete(ctx, "user"))
	require.NoError(t, tier.Delete(ctx, "user"))
	_, err = tier.Load(ctx, "user")
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestRedisTierSealed(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	newSealer := func(key string) credstore.Sealer {
		s, err := cryptox.NewSealer([]byte(key))
		require.NoError(t, err)
		return s
	}
	openTier := func(sealer credstore.Sealer) *credredis.Tier {
		tier, err := credredis.Open(ctx, url, "sealed:", time.Minute, sealer)
		require.NoError(t, err)
		t.Cleanup(func() { _ = tier.Close() })
		return tier
	}

	sealed := openTier(newSealer("state-key"))
	require.NoError(t, sealed.Save(ctx, "user", []byte(`{"username":"alice","refreshToken":"opaque"}`)))

	t.Run("round trip", func(t *testing.T) {
		got, err := sealed.Load(ctx, "user")
		require.NoError(t, err)
		require.JSONEq(t, `{"username":"alice","refreshToken":"opaque"}`, string(got))
	})

	t.Run("stored value is not plaintext", func(t *testing.T) {
		opts, err := goredis.ParseURL(url)
		require.NoError(t, err)
		raw := goredis.NewClient(opts)
		t.Cleanup(func() { _ = raw.Close() })

		stored, err := raw.Get(ctx, "sealed:user").Bytes()
		require.NoError(t, err)
		require.NotContains(t, string(stored), "alice")
		require.NotContains(t, string(stored), "opaque")
	})

	t.Run("wrong key fails", func(t *testing.T) {
		_, err := openTier(newSealer("another-key")).Load(ctx, "user")
		require.Error(t, err)
	})

	t.Run("missing key fails", func(t *testing.T) {
		_, err := openTier(nil).Load(ctx, "user")
		require.ErrorIs(t, err, credredis.ErrSealed)
	})
}

func TestOpenRejectsBadURL(t *testing.T) {
	t.Parallel()
	_, err := credredis.Open(context.Background(), "not a url", "", 0, nil)
	require.Error(t, err)
}
