package schoolsdk

import (
	"context"
	"sync"
	"time"
)

// Monitor defaults.
const (
	DefaultIdleTimeout  = 30 * time.Minute
	DefaultRefreshEvery = 5 * time.Minute
)

// Timer is the part of *time.Timer the Monitor uses.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The zero MonitorConfig uses the wall clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// MonitorConfig tunes a Monitor. Zero fields take the defaults.
type MonitorConfig struct {
	IdleTimeout  time.Duration
	RefreshEvery time.Duration
	Clock        Clock
}

// Monitor ends the session after a period without user activity and
// refreshes the access token on a fixed cadence while the user is active.
//
// A Monitor only runs while a credential record exists. It stops itself
// when the session ends for any reason, and no callback it scheduled has
// any effect after Stop returns.
type Monitor struct {
	client *SDKClient
	cfg    MonitorConfig

	mu          sync.Mutex
	ctx         context.Context
	running     bool
	gen         uint64
	idle        Timer
	refresh     Timer
	unsubscribe func()
}

// NewMonitor returns a stopped Monitor for c.
func (c *SDKClient) NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.RefreshEvery <= 0 {
		cfg.RefreshEvery = DefaultRefreshEvery
	}
	if cfg.Clock == nil {
		cfg.Clock = wallClock{}
	}
	return &Monitor{client: c, cfg: cfg}
}

// Start arms both timers. It reports false, and does nothing, when no
// credential record is present. Starting a running Monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) bool {
	if _, ok := m.client.store.Get(ctx); !ok {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return true
	}
	m.running = true
	m.gen++
	m.ctx = context.WithoutCancel(ctx)

	gen := m.gen
	m.idle = m.cfg.Clock.AfterFunc(m.cfg.IdleTimeout, func() { m.onIdle(gen) })
	m.refresh = m.cfg.Clock.AfterFunc(m.cfg.RefreshEvery, func() { m.onRefresh(gen) })
	m.unsubscribe = m.client.OnSessionEnded(func(SessionEnd) { m.Stop() })

	m.client.log.DebugContext(ctx, "session monitor started",
		"idle_timeout", m.cfg.IdleTimeout,
		"refresh_every", m.cfg.RefreshEvery,
	)
	return true
}

// Touch records user activity and restarts the idle countdown.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.idle.Stop()
	gen := m.gen
	m.idle = m.cfg.Clock.AfterFunc(m.cfg.IdleTimeout, func() { m.onIdle(gen) })
}

// Running reports whether the timers are armed.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Stop cancels both timers. It is safe to call more than once and from
// within a session-ended handler.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.gen++
	m.idle.Stop()
	m.refresh.Stop()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// current reports whether a callback scheduled under gen may still act.
func (m *Monitor) current(gen uint64) (context.Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx, m.running && m.gen == gen
}

func (m *Monitor) onIdle(gen uint64) {
	ctx, ok := m.current(gen)
	if !ok {
		return
	}
	// Revoke server-side too, so the refresh token cannot outlive the
	// idle session. The session-ended event stops this Monitor.
	m.client.signOut(ctx, EndIdleTimeout)
}

func (m *Monitor) onRefresh(gen uint64) {
	ctx, ok := m.current(gen)
	if !ok {
		return
	}

	if _, err := m.client.coordinator.EnsureFreshToken(ctx); err != nil {
		// The coordinator already cleared the record, so there is nothing
		// left to revoke; its event stops us.
		m.client.log.InfoContext(ctx, "proactive refresh failed", "err", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running && m.gen == gen {
		m.refresh = m.cfg.Clock.AfterFunc(m.cfg.RefreshEvery, func() { m.onRefresh(gen) })
	}
}
