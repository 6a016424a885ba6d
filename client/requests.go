package client

import "encoding/json"

// AccountType distinguishes the kinds of accounts the platform registers.
type AccountType string

const (
	AccountTypeCandidate    AccountType = "candidate"
	AccountTypeOrganization AccountType = "organization"
)

// LoginRequest carries the credentials for an email/password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest carries the fields for a new account signup.
type RegisterRequest struct {
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	AccountType AccountType `json:"type"`
}

// ForgotPasswordRequest asks the server to email a password-reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ChangePasswordRequest completes a password reset. The token is the one-time
// reset token from the reset email, not the session's bearer token.
type ChangePasswordRequest struct {
	NewPassword string `json:"password"`
	ResetToken  string `json:"token"`
}

// envelope is the response wrapper every endpoint uses.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// authData is the payload of login, register, and refresh responses.
type authData struct {
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
}

// AuthResult is returned by Login and Register.
type AuthResult struct {
	Email string
	Token string
}

// RefreshResult is returned by RefreshToken.
type RefreshResult struct {
	Token string
}

// StatusResult is returned by the password-reset operations.
type StatusResult struct {
	Status  string
	Message string
}
