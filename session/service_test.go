package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/cakradana/go-session-client/client"
	"github.com/cakradana/go-session-client/session"
)

// fakeAuthAPI mimics the HTTP auth client, tracking the store-side effects
// the real client would have.
type fakeAuthAPI struct {
	lock sync.Mutex

	authenticated bool
	email         string

	loginErr    error
	registerErr error
	forgotErr   error
	changeErr   error
	refreshErr  error

	refreshCalls int
	logoutCalls  int
}

var _ session.AuthAPI = (*fakeAuthAPI)(nil)

func (f *fakeAuthAPI) Login(_ context.Context, req client.LoginRequest) (*client.AuthResult, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.authenticated = true
	f.email = req.Email
	return &client.AuthResult{Email: req.Email, Token: "issued-token"}, nil
}

func (f *fakeAuthAPI) Register(_ context.Context, req client.RegisterRequest) (*client.AuthResult, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.authenticated = true
	f.email = req.Email
	return &client.AuthResult{Email: req.Email, Token: "issued-token"}, nil
}

func (f *fakeAuthAPI) ForgotPassword(_ context.Context, _ client.ForgotPasswordRequest) (*client.StatusResult, error) {
	if f.forgotErr != nil {
		return nil, f.forgotErr
	}
	return &client.StatusResult{Status: "success", Message: "Reset email sent"}, nil
}

func (f *fakeAuthAPI) ChangePassword(_ context.Context, _ client.ChangePasswordRequest) (*client.StatusResult, error) {
	if f.changeErr != nil {
		return nil, f.changeErr
	}
	return &client.StatusResult{Status: "success", Message: "Password updated"}, nil
}

func (f *fakeAuthAPI) RefreshToken(_ context.Context) (*client.RefreshResult, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &client.RefreshResult{Token: "renewed-token"}, nil
}

func (f *fakeAuthAPI) IsAuthenticated() bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.authenticated
}

func (f *fakeAuthAPI) CurrentUserEmail() (string, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.email, f.email != ""
}

func (f *fakeAuthAPI) Logout() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.logoutCalls++
	f.authenticated = false
	f.email = ""
}

func TestNew_StartsAnonymous(t *testing.T) {
	svc, err := session.New(&fakeAuthAPI{})
	require.NoError(t, err)

	snapshot := svc.State()
	require.Equal(t, session.StatusAnonymous, snapshot.Status)
	require.False(t, snapshot.Authenticated())
	require.Empty(t, snapshot.Email)
}

func TestNew_StartsAuthenticatedFromStoredSession(t *testing.T) {
	api := &fakeAuthAPI{authenticated: true, email: "a@b.com"}
	svc, err := session.New(api)
	require.NoError(t, err)

	snapshot := svc.State()
	require.Equal(t, session.StatusAuthenticated, snapshot.Status)
	require.Equal(t, "a@b.com", snapshot.Email)
}

func TestNew_RequiresAPI(t *testing.T) {
	_, err := session.New(nil)
	require.Error(t, err)
}

func TestLogin_Success(t *testing.T) {
	loginRedirects := 0
	svc, err := session.New(&fakeAuthAPI{},
		session.WithLoginRedirect(func() { loginRedirects++ }),
	)
	require.NoError(t, err)

	err = svc.Login(context.Background(), client.LoginRequest{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)

	snapshot := svc.State()
	require.True(t, snapshot.Authenticated())
	require.Equal(t, "a@b.com", snapshot.Email)
	require.False(t, snapshot.Loading)
	require.Equal(t, 1, loginRedirects)
}

func TestLogin_FailureLeavesStateUntouched(t *testing.T) {
	authErr := &client.AuthError{Kind: client.KindAuthRejected, Message: "Invalid credentials"}
	svc, err := session.New(&fakeAuthAPI{loginErr: authErr})
	require.NoError(t, err)

	err = svc.Login(context.Background(), client.LoginRequest{Email: "a@b.com", Password: "wrong"})
	require.Error(t, err)
	require.Equal(t, "Invalid credentials", err.Error())

	snapshot := svc.State()
	require.Equal(t, session.StatusAnonymous, snapshot.Status)
	require.False(t, snapshot.Loading)
}

func TestRegister_Success(t *testing.T) {
	loginRedirects := 0
	svc, err := session.New(&fakeAuthAPI{},
		session.WithLoginRedirect(func() { loginRedirects++ }),
	)
	require.NoError(t, err)

	err = svc.Register(context.Background(), client.RegisterRequest{
		Name:        "Jane Doe",
		Email:       "jane@b.com",
		Password:    "x",
		AccountType: client.AccountTypeCandidate,
	})
	require.NoError(t, err)

	snapshot := svc.State()
	require.True(t, snapshot.Authenticated())
	require.Equal(t, "jane@b.com", snapshot.Email)
	require.Equal(t, 1, loginRedirects)
}

func TestLogout_RoundTrip(t *testing.T) {
	logoutRedirects := 0
	api := &fakeAuthAPI{authenticated: true, email: "a@b.com"}
	svc, err := session.New(api,
		session.WithLogoutRedirect(func() { logoutRedirects++ }),
	)
	require.NoError(t, err)
	require.True(t, svc.State().Authenticated())

	svc.Logout()

	snapshot := svc.State()
	require.Equal(t, session.StatusAnonymous, snapshot.Status)
	require.Empty(t, snapshot.Email)
	require.Equal(t, 1, logoutRedirects)
	require.Equal(t, 1, api.logoutCalls)
	require.False(t, api.IsAuthenticated())
}

func TestForgotPassword_DoesNotChangeState(t *testing.T) {
	svc, err := session.New(&fakeAuthAPI{})
	require.NoError(t, err)

	result, err := svc.ForgotPassword(context.Background(), client.ForgotPasswordRequest{Email: "a@b.com"})
	require.NoError(t, err)
	require.Equal(t, "Reset email sent", result.Message)

	snapshot := svc.State()
	require.Equal(t, session.StatusAnonymous, snapshot.Status)
	require.False(t, snapshot.Loading)
}

func TestForgotPassword_PropagatesError(t *testing.T) {
	authErr := &client.AuthError{Kind: client.KindAuthRejected, Message: "Unknown email"}
	svc, err := session.New(&fakeAuthAPI{forgotErr: authErr})
	require.NoError(t, err)

	_, err = svc.ForgotPassword(context.Background(), client.ForgotPasswordRequest{Email: "a@b.com"})
	require.Error(t, err)
	require.Equal(t, "Unknown email", err.Error())
	require.False(t, svc.State().Loading)
}

func TestChangePassword_DoesNotChangeState(t *testing.T) {
	api := &fakeAuthAPI{authenticated: true, email: "a@b.com"}
	svc, err := session.New(api)
	require.NoError(t, err)

	result, err := svc.ChangePassword(context.Background(), client.ChangePasswordRequest{
		NewPassword: "new-password",
		ResetToken:  "one-time-reset-token",
	})
	require.NoError(t, err)
	require.Equal(t, "Password updated", result.Message)
	require.True(t, svc.State().Authenticated())
}

func TestRefreshToken_Success(t *testing.T) {
	api := &fakeAuthAPI{authenticated: true, email: "a@b.com"}
	svc, err := session.New(api)
	require.NoError(t, err)

	require.NoError(t, svc.RefreshToken(context.Background()))

	// Self-loop: still authenticated as the same user.
	snapshot := svc.State()
	require.True(t, snapshot.Authenticated())
	require.Equal(t, "a@b.com", snapshot.Email)
	require.Equal(t, 1, api.refreshCalls)
}

func TestRefreshToken_FailureForcesLogout(t *testing.T) {
	logoutRedirects := 0
	authErr := &client.AuthError{Kind: client.KindRefreshRejected, Message: "Token revoked"}
	api := &fakeAuthAPI{authenticated: true, email: "a@b.com", refreshErr: authErr}
	svc, err := session.New(api,
		session.WithLogoutRedirect(func() { logoutRedirects++ }),
	)
	require.NoError(t, err)

	err = svc.RefreshToken(context.Background())
	require.Error(t, err)
	require.Equal(t, "Token revoked", err.Error())

	// The token held before the attempt had not expired, but a rejected
	// refresh still tears the session down.
	snapshot := svc.State()
	require.Equal(t, session.StatusAnonymous, snapshot.Status)
	require.Equal(t, 1, logoutRedirects)
	require.Equal(t, 1, api.logoutCalls)
	require.False(t, api.IsAuthenticated())
}

func TestRefreshToken_WhileAnonymous(t *testing.T) {
	api := &fakeAuthAPI{}
	svc, err := session.New(api)
	require.NoError(t, err)

	err = svc.RefreshToken(context.Background())
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	require.Equal(t, 0, api.refreshCalls)
}

func TestSubscribe_ObservesTransitions(t *testing.T) {
	svc, err := session.New(&fakeAuthAPI{})
	require.NoError(t, err)

	var seen []session.Snapshot
	svc.Subscribe(func(snapshot session.Snapshot) {
		seen = append(seen, snapshot)
	})

	require.NoError(t, svc.Login(context.Background(), client.LoginRequest{Email: "a@b.com", Password: "x"}))

	require.NotEmpty(t, seen)
	last := seen[len(seen)-1]
	require.True(t, last.Authenticated())
	require.Equal(t, "a@b.com", last.Email)

	// The loading flag was observable while the login was in flight.
	require.True(t, seen[0].Loading)
}

func TestLogin_ErrorIsSameInstance(t *testing.T) {
	authErr := &client.AuthError{Kind: client.KindAuthRejected, Message: "Invalid credentials"}
	svc, err := session.New(&fakeAuthAPI{loginErr: authErr})
	require.NoError(t, err)

	err = svc.Login(context.Background(), client.LoginRequest{Email: "a@b.com", Password: "x"})

	var got *client.AuthError
	require.ErrorAs(t, err, &got)
	require.Same(t, authErr, got)
}

func TestConcurrentRefresh_Serialized(t *testing.T) {
	api := &fakeAuthAPI{authenticated: true, email: "a@b.com"}
	svc, err := session.New(api)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.RefreshToken(context.Background())
		}()
	}
	wg.Wait()

	require.True(t, svc.State().Authenticated())
	require.Equal(t, 4, api.refreshCalls)
}

func TestRefreshToken_ErrorWrapping(t *testing.T) {
	base := errors.New("connection reset")
	api := &fakeAuthAPI{authenticated: true, email: "a@b.com", refreshErr: base}
	svc, err := session.New(api)
	require.NoError(t, err)

	err = svc.RefreshToken(context.Background())
	require.ErrorIs(t, err, base)
}
