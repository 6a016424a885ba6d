// Package store persists the client's bearer token and the associated user
// email — exactly two fields, nothing else. Implementations never surface
// storage failures: reads degrade to absent so the session layer fails closed
// into an anonymous state instead of crashing the caller.
package store

// Store is the durable key-value home of the session credentials.
type Store interface {
	// Token returns the stored raw bearer token, or false if never set or
	// previously cleared.
	Token() (string, bool)

	// Email returns the stored user email, or false when absent.
	Email() (string, bool)

	// Set overwrites both fields. Callers never observe a partial write.
	Set(token, email string)

	// SetToken overwrites only the token, leaving the email untouched.
	// Used by token refresh, which re-issues the credential for the same user.
	SetToken(token string)

	// Clear removes both fields. Idempotent.
	Clear()
}
