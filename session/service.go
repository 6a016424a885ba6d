// Package session is the single source of truth for the client's
// authentication state. It mediates every auth API call and keeps a reactive
// snapshot of {email, status, loading} consistent for observers.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/cakradana/go-session-client/client"
)

// Status labels the session state machine.
type Status string

const (
	StatusInitializing  Status = "initializing"
	StatusAnonymous     Status = "anonymous"
	StatusAuthenticated Status = "authenticated"
)

// ErrNotAuthenticated is returned when an operation requires a live session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Snapshot is one observable point-in-time view of the session.
type Snapshot struct {
	Email   string // User email, empty while anonymous
	Status  Status
	Loading bool // True while a mutating operation is in flight
}

// Authenticated reports whether the snapshot represents a live session.
func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Listener observes snapshot changes.
type Listener func(Snapshot)

// AuthAPI is the subset of the HTTP auth client the session service drives.
type AuthAPI interface {
	Login(ctx context.Context, req client.LoginRequest) (*client.AuthResult, error)
	Register(ctx context.Context, req client.RegisterRequest) (*client.AuthResult, error)
	ForgotPassword(ctx context.Context, req client.ForgotPasswordRequest) (*client.StatusResult, error)
	ChangePassword(ctx context.Context, req client.ChangePasswordRequest) (*client.StatusResult, error)
	RefreshToken(ctx context.Context) (*client.RefreshResult, error)
	IsAuthenticated() bool
	CurrentUserEmail() (string, bool)
	Logout()
}

// Service runs the session state machine:
//
//	Initializing → Anonymous ⇄ Authenticated
//
// Both steady states can be re-entered indefinitely; there is no terminal
// state. Only login, register, and refresh change the authenticated state,
// and only on success — with the one exception that a failed refresh forces
// the session down to Anonymous, because an unrefreshable session must not
// be presented as live.
type Service struct {
	api AuthAPI

	lock      sync.RWMutex
	snapshot  Snapshot
	listeners []Listener

	// Navigation side effects, injected by the composition root.
	onLogin  func()
	onLogout func()

	// Serializes refresh attempts so two racing schedulers cannot both hit
	// the network with the same token.
	refreshLock sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLoginRedirect sets the side effect run after a successful login or
// registration (the dashboard redirect, in UI terms).
func WithLoginRedirect(fn func()) Option {
	return func(s *Service) {
		s.onLogin = fn
	}
}

// WithLogoutRedirect sets the side effect run after logout, including the
// forced logout on a failed refresh.
func WithLogoutRedirect(fn func()) Option {
	return func(s *Service) {
		s.onLogout = fn
	}
}

// New builds a Service and performs the startup auth check. The startup
// check never fails outward: any internal problem lands the session in
// Anonymous.
func New(api AuthAPI, options ...Option) (*Service, error) {
	if api == nil {
		return nil, errors.New("[session.New] auth API is required")
	}

	s := &Service{
		api:      api,
		snapshot: Snapshot{Status: StatusInitializing},
	}

	for _, opt := range options {
		opt(s)
	}

	s.initialize()
	return s, nil
}

func (s *Service) initialize() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("session startup check panicked, forcing anonymous")
			s.setSnapshot(Snapshot{Status: StatusAnonymous})
		}
	}()

	if s.api.IsAuthenticated() {
		email, _ := s.api.CurrentUserEmail()
		s.setSnapshot(Snapshot{Email: email, Status: StatusAuthenticated})
		return
	}
	s.setSnapshot(Snapshot{Status: StatusAnonymous})
}

// State returns the current snapshot.
func (s *Service) State() Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.snapshot
}

// Subscribe registers a listener for snapshot changes. The listener is
// invoked synchronously on each change, after the change is visible via
// State.
func (s *Service) Subscribe(listener Listener) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Login authenticates with email and password. On failure the error is
// returned for display and the session state is left untouched.
func (s *Service) Login(ctx context.Context, req client.LoginRequest) error {
	s.setLoading(true)

	result, err := s.api.Login(ctx, req)
	if err != nil {
		s.setLoading(false)
		return err
	}

	s.setSnapshot(Snapshot{Email: result.Email, Status: StatusAuthenticated})
	if s.onLogin != nil {
		s.onLogin()
	}
	return nil
}

// Register creates an account and, on success, enters the authenticated
// state exactly as Login does.
func (s *Service) Register(ctx context.Context, req client.RegisterRequest) error {
	s.setLoading(true)

	result, err := s.api.Register(ctx, req)
	if err != nil {
		s.setLoading(false)
		return err
	}

	s.setSnapshot(Snapshot{Email: result.Email, Status: StatusAuthenticated})
	if s.onLogin != nil {
		s.onLogin()
	}
	return nil
}

// ForgotPassword starts a password reset. Does not change the session state.
func (s *Service) ForgotPassword(ctx context.Context, req client.ForgotPasswordRequest) (*client.StatusResult, error) {
	s.setLoading(true)
	defer s.setLoading(false)
	return s.api.ForgotPassword(ctx, req)
}

// ChangePassword completes a password reset. Does not change the session
// state; the one-time reset token in the request is the credential, not the
// session's bearer token.
func (s *Service) ChangePassword(ctx context.Context, req client.ChangePasswordRequest) (*client.StatusResult, error) {
	s.setLoading(true)
	defer s.setLoading(false)
	return s.api.ChangePassword(ctx, req)
}

// Logout clears the stored credentials and returns to Anonymous. Always
// succeeds.
func (s *Service) Logout() {
	s.api.Logout()
	s.setSnapshot(Snapshot{Status: StatusAnonymous})
	if s.onLogout != nil {
		s.onLogout()
	}
}

// RefreshToken renews the bearer token in place (an Authenticated
// self-loop). A rejected refresh is fatal: the session is torn down rather
// than left stale, so callers observing the error will also observe an
// anonymous session.
func (s *Service) RefreshToken(ctx context.Context) error {
	s.refreshLock.Lock()
	defer s.refreshLock.Unlock()

	if !s.State().Authenticated() {
		return ErrNotAuthenticated
	}

	if _, err := s.api.RefreshToken(ctx); err != nil {
		log.Warn().Err(err).Msg("token refresh rejected, tearing down session")
		s.Logout()
		return err
	}
	return nil
}

func (s *Service) setLoading(loading bool) {
	s.lock.Lock()
	s.snapshot.Loading = loading
	snapshot := s.snapshot
	listeners := s.listeners
	s.lock.Unlock()
	notify(listeners, snapshot)
}

func (s *Service) setSnapshot(snapshot Snapshot) {
	s.lock.Lock()
	s.snapshot = snapshot
	listeners := s.listeners
	s.lock.Unlock()
	notify(listeners, snapshot)
}

// notify runs outside the state lock so listeners may read State or trigger
// further operations without deadlocking.
func notify(listeners []Listener, snapshot Snapshot) {
	for _, listener := range listeners {
		listener(snapshot)
	}
}
