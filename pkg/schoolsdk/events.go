package schoolsdk

import (
	"fmt"
	"sync"
)

// EndReason says why a session ended.
type EndReason int

const (
	// EndLoggedOut follows an explicit Logout.
	EndLoggedOut EndReason = iota + 1
	// EndRefreshFailed follows a refresh that could not produce a new token.
	EndRefreshFailed
	// EndIdleTimeout follows a Monitor idle expiry.
	EndIdleTimeout
	// EndRevoked follows a check-session call the backend answered with false.
	EndRevoked
)

func (r EndReason) String() string {
	switch r {
	case EndLoggedOut:
		return "logged_out"
	case EndRefreshFailed:
		return "refresh_failed"
	case EndIdleTimeout:
		return "idle_timeout"
	case EndRevoked:
		return "revoked"
	default:
		return fmt.Sprintf("EndReason(%d)", int(r))
	}
}

// SessionEnd is delivered to OnSessionEnded subscribers after the
// credential record has been cleared.
type SessionEnd struct {
	Reason EndReason
	Err    error
}

// broadcaster fans SessionEnd events out to subscribers. Handlers run
// synchronously on the goroutine that ended the session, outside any lock,
// so they may unsubscribe or call back into the client.
type broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]func(SessionEnd)
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]func(SessionEnd))}
}

func (b *broadcaster) subscribe(fn func(SessionEnd)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *broadcaster) emit(ev SessionEnd) {
	b.mu.Lock()
	fns := make([]func(SessionEnd), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
