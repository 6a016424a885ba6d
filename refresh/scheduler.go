// Package refresh keeps an authenticated session's token from silently
// expiring. A one-shot timer fires a proactive refresh a fixed lead time
// before the token's expiry, and a low-frequency tick continuously re-derives
// that timer from the currently stored token, so a token refreshed elsewhere
// never leaves a stale timer pending.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cakradana/go-session-client/token"
)

const (
	// DefaultLead is how long before expiry a refresh is attempted.
	DefaultLead = 5 * time.Minute
	// DefaultTick is the period of the self-healing re-arm loop.
	DefaultTick = time.Minute

	refreshTimeout = 30 * time.Second
)

// TokenSource yields the raw bearer token the scheduler derives expiry from.
// store.Store satisfies it.
type TokenSource interface {
	Token() (string, bool)
}

// Refresher performs the actual token renewal. session.Service satisfies it.
type Refresher interface {
	RefreshToken(ctx context.Context) error
}

// Scheduler arms at most one pending refresh timer at a time. It holds no
// timers at all while stopped.
type Scheduler struct {
	source    TokenSource
	refresher Refresher
	lead      time.Duration
	tick      time.Duration

	lock    sync.Mutex
	timer   *time.Timer
	ticker  *time.Ticker
	done    chan struct{}
	running bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLead overrides the refresh lead time.
func WithLead(lead time.Duration) Option {
	return func(s *Scheduler) {
		s.lead = lead
	}
}

// WithTick overrides the re-arm tick period.
func WithTick(tick time.Duration) Option {
	return func(s *Scheduler) {
		s.tick = tick
	}
}

// New builds a Scheduler. It is inert until Start is called.
func New(source TokenSource, refresher Refresher, options ...Option) *Scheduler {
	s := &Scheduler{
		source:    source,
		refresher: refresher,
		lead:      DefaultLead,
		tick:      DefaultTick,
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// Start arms the scheduler. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.done = make(chan struct{})
	s.ticker = time.NewTicker(s.tick)
	go s.loop(s.done, s.ticker.C)
	s.rearmLocked()
}

// Stop cancels the pending one-shot timer and the periodic tick. Safe to
// call repeatedly and before Start; no timers survive a Stop.
func (s *Scheduler) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.done)
	s.ticker.Stop()
	s.ticker = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Lead computes the delay before a proactive refresh should fire, clamped at
// zero so an already-expired token refreshes immediately rather than being
// scheduled in the past.
func Lead(expiresAt, now time.Time, lead time.Duration) time.Duration {
	delay := expiresAt.Sub(now) - lead
	if delay < 0 {
		return 0
	}
	return delay
}

// loop is the self-healing tick: every period it re-derives the one-shot
// timer from whatever token is currently stored.
func (s *Scheduler) loop(done chan struct{}, tick <-chan time.Time) {
	for {
		select {
		case <-done:
			return
		case <-tick:
			s.lock.Lock()
			if s.running {
				s.rearmLocked()
			}
			s.lock.Unlock()
		}
	}
}

// rearmLocked cancels any pending one-shot timer and arms a new one from the
// stored token's expiry. Caller holds lock.
func (s *Scheduler) rearmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	raw, ok := s.source.Token()
	if !ok {
		return
	}

	claims, err := token.Decode(raw)
	if err != nil {
		// Skip arming; the next tick will find a valid token or the session
		// layer's own checks will tear things down.
		log.Debug().Err(err).Msg("stored token not decodable, refresh not armed")
		return
	}

	delay := Lead(claims.ExpiresAt(), token.NowTimeFunc(), s.lead)
	s.timer = time.AfterFunc(delay, s.fire)
}

// fire runs the refresh and, when it succeeds, re-arms from the new token.
// Errors are logged and swallowed: the session layer decides what a failed
// refresh means, not the scheduler.
func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := s.refresher.RefreshToken(ctx); err != nil {
		log.Warn().Err(err).Msg("scheduled token refresh failed")
		return
	}

	s.lock.Lock()
	if s.running {
		s.rearmLocked()
	}
	s.lock.Unlock()
}
