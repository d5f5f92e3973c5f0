// Package redis is a shared durable tier for credstore, for operators who
// run several schoolctl hosts against one remembered session.
package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/neoschool/pkg/credstore"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a remembered record lives without a refresh.
// It matches the backend's refresh token lifetime.
const DefaultTTL = 7 * 24 * time.Hour

// sealedPrefix marks values written through a Sealer. Plain values are
// JSON objects and never start with it.
var sealedPrefix = []byte("sealed:v1:")

// ErrSealed is returned by Load for a sealed value when the tier has no
// Sealer to open it with.
var ErrSealed = errors.New("credential is sealed but no key is configured")

// Tier stores records as string values under a key prefix, sealed when a
// Sealer is configured.
type Tier struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	sealer credstore.Sealer
}

// Open connects to rawURL (redis://[:password@]host:port/db) and pings it.
// A nil sealer stores records in the clear.
func Open(ctx context.Context, rawURL, prefix string, ttl time.Duration, sealer credstore.Sealer) (*Tier, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, prefix, ttl, sealer), nil
}

// New wraps an existing client. A non-positive ttl uses DefaultTTL.
func New(client *redis.Client, prefix string, ttl time.Duration, sealer credstore.Sealer) *Tier {
	if prefix == "" {
		prefix = "neoschool:credentials:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tier{client: client, prefix: prefix, ttl: ttl, sealer: sealer}
}

func (t *Tier) Close() error { return t.client.Close() }

func (t *Tier) Name() string { return "durable" }

func (t *Tier) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := t.client.Get(ctx, t.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, credstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	sealed, ok := bytes.CutPrefix(data, sealedPrefix)
	if !ok {
		return data, nil
	}
	if t.sealer == nil {
		return nil, ErrSealed
	}
	plain, err := t.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("open credential: %w", err)
	}
	return plain, nil
}

func (t *Tier) Save(ctx context.Context, key string, data []byte) error {
	if t.sealer != nil {
		sealed, err := t.sealer.Seal(data)
		if err != nil {
			return fmt.Errorf("seal credential: %w", err)
		}
		data = append(append([]byte{}, sealedPrefix...), sealed...)
	}

	if err := t.client.Set(ctx, t.prefix+key, data, t.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (t *Tier) Delete(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, t.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
