package credstore

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("credstore: not found")

// Sealer encrypts payloads before a durable tier writes them.
// *cryptox.Sealer satisfies it.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Tier is one storage backend for serialized records.
type Tier interface {
	// Load returns ErrNotFound when key holds nothing.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
	Name() string
}

// MemoryTier is the session tier: it lives as long as the process.
type MemoryTier struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryTier returns an empty MemoryTier.
func NewMemoryTier() *MemoryTier {
	return &MemoryTier{data: make(map[string][]byte)}
}

func (m *MemoryTier) Name() string { return "session" }

func (m *MemoryTier) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryTier) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryTier) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
