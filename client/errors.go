package client

// Kind classifies an authentication failure.
type Kind string

const (
	// KindNetworkFailure - the server could not be reached at all.
	KindNetworkFailure Kind = "network_failure"
	// KindAuthRejected - the server answered and refused the operation.
	KindAuthRejected Kind = "auth_rejected"
	// KindRefreshRejected - a token refresh specifically failed; the session
	// can no longer be trusted and must be torn down by the caller.
	KindRefreshRejected Kind = "refresh_rejected"
)

// networkFailureMessage is shown when the server never answered or answered
// with something undecodable; server-provided messages take priority over it.
const networkFailureMessage = "unable to reach the authentication service"

// AuthError carries the user-displayable message for a failed authentication
// operation. The message is taken from the server payload when the server
// sent one, otherwise it is a generic network-failure message.
type AuthError struct {
	Kind    Kind
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
