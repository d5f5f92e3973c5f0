package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultKey is the single logical key records are stored under.
const DefaultKey = "user"

// Store owns the current Record. All methods are safe for concurrent use.
type Store struct {
	session Tier
	durable Tier
	key     string
	now     func() time.Time
	log     *slog.Logger

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now, used to derive ExpiresAt.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithLogger sets the logger used for swallowed storage errors.
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.log = l } }

// New returns a Store over the given tiers. A nil durable tier falls back
// to a second in-memory tier, so "remember me" only lasts for the process.
func New(session, durable Tier, opts ...Option) *Store {
	if session == nil {
		session = NewMemoryTier()
	}
	if durable == nil {
		durable = NewMemoryTier()
	}
	s := &Store{
		session: session,
		durable: durable,
		key:     DefaultKey,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current record. Missing, unreadable or invalid state is
// reported as absent; invalid state is also cleared from both tiers.
func (s *Store) Get(ctx context.Context) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range []Tier{s.session, s.durable} {
		data, err := t.Load(ctx, s.key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			s.log.WarnContext(ctx, "credential tier read failed", "tier", t.Name(), "err", err)
			continue
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err == nil {
			err = rec.Validate()
		}
		if err != nil {
			s.log.WarnContext(ctx, "discarding corrupt credential record", "tier", t.Name(), "err", err)
			if err := s.clearLocked(ctx); err != nil {
				s.log.WarnContext(ctx, "clearing corrupt credential record failed", "err", err)
			}
			return Record{}, false
		}

		rec.Persistent = t == s.durable
		return rec, true
	}

	return Record{}, false
}

// Set replaces the record wholesale. persistent selects the durable tier;
// the other tier is emptied first so only one tier ever holds a record.
func (s *Store) Set(ctx context.Context, rec Record, persistent bool) error {
	rec = rec.normalize(s.now())
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.Persistent = persistent

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("credstore: encode record: %w", err)
	}

	target, other := s.session, s.durable
	if persistent {
		target, other = s.durable, s.session
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := other.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("credstore: clear %s tier: %w", other.Name(), err)
	}
	if err := target.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("credstore: write %s tier: %w", target.Name(), err)
	}
	return nil
}

// Clear removes the record from both tiers. Clearing an empty store is a
// no-op.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) error {
	return errors.Join(
		s.session.Delete(ctx, s.key),
		s.durable.Delete(ctx, s.key),
	)
}
