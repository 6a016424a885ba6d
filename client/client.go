// Package client wraps the remote Dextektif authentication API behind typed
// request/response contracts. Successful login, register, and refresh
// exchanges write the issued token through the store before returning, so
// callers always observe store state consistent with the result they got.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/cakradana/go-session-client/store"
	"github.com/cakradana/go-session-client/token"
)

const (
	loginPath          = "/user/auth/email/login"
	registerPath       = "/user/auth/email/register"
	forgotPasswordPath = "/user/auth/email/forgot-password"
	changePasswordPath = "/user/auth/email/change-password"
	refreshTokenPath   = "/user/auth/refresh-token"

	statusSuccess   = "success"
	contentTypeJSON = "application/json"

	defaultTimeout = 30 * time.Second
)

// Client performs the network exchange for each authentication operation.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      store.Store
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for tests).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a Client for the API at baseURL, writing issued credentials
// through tokenStore.
func New(baseURL string, tokenStore store.Store, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[client.New] baseURL is required")
	}
	if tokenStore == nil {
		return nil, errors.New("[client.New] token store is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		store:      tokenStore,
	}

	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// Login exchanges credentials for a bearer token and persists token and
// email before returning.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	env, err := c.post(ctx, loginPath, req, "", KindAuthRejected)
	if err != nil {
		return nil, err
	}

	data, err := decodeAuthData(env, KindAuthRejected)
	if err != nil {
		return nil, err
	}

	c.store.Set(data.AccessToken, data.Email)
	return &AuthResult{Email: data.Email, Token: data.AccessToken}, nil
}

// Register creates an account and, like Login, persists the issued token and
// email before returning.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	env, err := c.post(ctx, registerPath, req, "", KindAuthRejected)
	if err != nil {
		return nil, err
	}

	data, err := decodeAuthData(env, KindAuthRejected)
	if err != nil {
		return nil, err
	}

	c.store.Set(data.AccessToken, data.Email)
	return &AuthResult{Email: data.Email, Token: data.AccessToken}, nil
}

// ForgotPassword asks the server to start a password reset. Never touches
// the store.
func (c *Client) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*StatusResult, error) {
	env, err := c.post(ctx, forgotPasswordPath, req, "", KindAuthRejected)
	if err != nil {
		return nil, err
	}
	return &StatusResult{Status: env.Status, Message: env.Message}, nil
}

// ChangePassword completes a password reset using the one-time reset token
// carried in the request body. Never touches the store.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*StatusResult, error) {
	env, err := c.post(ctx, changePasswordPath, req, "", KindAuthRejected)
	if err != nil {
		return nil, err
	}
	return &StatusResult{Status: env.Status, Message: env.Message}, nil
}

// RefreshToken sends the currently stored bearer token as the authorization
// credential and, on success, overwrites only the token field in the store,
// leaving the email unchanged. Failing here means the session can no longer
// be trusted; callers must treat it as fatal.
func (c *Client) RefreshToken(ctx context.Context) (*RefreshResult, error) {
	current, ok := c.store.Token()
	if !ok {
		return nil, &AuthError{Kind: KindRefreshRejected, Message: "no session to refresh"}
	}

	env, err := c.post(ctx, refreshTokenPath, nil, current, KindRefreshRejected)
	if err != nil {
		return nil, err
	}

	data, err := decodeAuthData(env, KindRefreshRejected)
	if err != nil {
		return nil, err
	}

	c.store.SetToken(data.AccessToken)
	return &RefreshResult{Token: data.AccessToken}, nil
}

// IsAuthenticated reports whether a structurally valid, unexpired token is
// stored. The check is a local unverified read of the exp claim. An expired
// or undecodable token found here is cleared from the store, so every later
// read fails closed the same way.
func (c *Client) IsAuthenticated() bool {
	raw, ok := c.store.Token()
	if !ok {
		return false
	}

	claims, err := token.Decode(raw)
	if err != nil || claims.Expired() {
		c.store.Clear()
		return false
	}

	return true
}

// CurrentUserEmail returns the stored user email, if any.
func (c *Client) CurrentUserEmail() (string, bool) {
	return c.store.Email()
}

// Logout discards the stored credentials. Purely local; the server holds no
// session state for this client beyond the token itself.
func (c *Client) Logout() {
	c.store.Clear()
}

// post performs one JSON exchange. A transport failure, a non-2xx status,
// and a body whose status field is not the success marker are all surfaced
// as a single AuthError, preferring the server's message when there is one.
func (c *Client) post(ctx context.Context, path string, body any, bearer string, rejectionKind Kind) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "[post] marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "[post] build request")
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("X-Request-ID", uuid.New().String())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("auth request transport failure")
		return nil, &AuthError{Kind: KindNetworkFailure, Message: networkFailureMessage}
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		log.Debug().Err(err).Str("path", path).Int("code", resp.StatusCode).Msg("undecodable auth response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices || env.Status != statusSuccess {
		message := env.Message
		if message == "" {
			message = networkFailureMessage
		}
		log.Debug().Str("path", path).Int("code", resp.StatusCode).Str("status", env.Status).Msg("auth request rejected")
		return nil, &AuthError{Kind: rejectionKind, Message: message}
	}

	return &env, nil
}

// decodeAuthData unpacks the token-bearing payload of a successful response.
func decodeAuthData(env *envelope, rejectionKind Kind) (*authData, error) {
	var data authData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.AccessToken == "" {
		return nil, &AuthError{Kind: rejectionKind, Message: networkFailureMessage}
	}
	return &data, nil
}
