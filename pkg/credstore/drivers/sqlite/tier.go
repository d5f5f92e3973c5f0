// Package sqlite is the file-backed durable tier for credstore.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/neoschool/pkg/credstore"
	_ "modernc.org/sqlite"
)

type Sealer = credstore.Sealer

// Tier stores records in a single sqlite table.
type Tier struct {
	db     *sql.DB
	sealer Sealer
}

// FileDSN builds a DSN for a state file, creating its directory.
func FileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path), nil
}

// Open opens dsn, applies migrations and returns the tier. A nil sealer
// stores payloads in the clear.
func Open(dsn string, sealer Sealer) (*Tier, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer avoids SQLITE_BUSY between the monitor and request goroutines.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := ApplyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Tier{db: db, sealer: sealer}, nil
}

func (t *Tier) Close() error { return t.db.Close() }

func (t *Tier) Name() string { return "durable" }

func (t *Tier) Load(ctx context.Context, key string) ([]byte, error) {
	var (
		payload []byte
		sealed  bool
	)
	err := t.db.QueryRowContext(ctx,
		`SELECT payload, sealed FROM credentials WHERE key = ?`, key,
	).Scan(&payload, &sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, credstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select credential: %w", err)
	}

	if !sealed {
		return payload, nil
	}
	if t.sealer == nil {
		return nil, errors.New("credential is sealed but no key is configured")
	}
	plain, err := t.sealer.Open(payload)
	if err != nil {
		return nil, fmt.Errorf("open credential: %w", err)
	}
	return plain, nil
}

func (t *Tier) Save(ctx context.Context, key string, data []byte) error {
	payload, sealed := data, false
	if t.sealer != nil {
		var err error
		if payload, err = t.sealer.Seal(data); err != nil {
			return fmt.Errorf("seal credential: %w", err)
		}
		sealed = true
	}

	_, err := t.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO credentials (key, payload, sealed, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		key, payload, sealed,
	)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

func (t *Tier) Delete(ctx context.Context, key string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
