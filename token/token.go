package token

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrMissingExpiry  = errors.New("token missing exp claim")
)

// Claims is the locally decoded payload of a bearer token. Decoding is an
// untrusted read of the claims for UX and scheduling purposes only — the
// server remains the authority on token validity, so no signature
// verification is performed here and none should be added.
type Claims struct {
	Exp   int64            // Expiry, Unix seconds
	Email string           // Subject email, when the server includes one
	Raw   jwtlib.MapClaims // All decoded claims
}

// Decode parses the middle segment of a JWT without verifying its signature
// and extracts the claims this client relies on. Any structural problem —
// wrong segment count, bad base64url, missing exp — is an error; callers
// treat all of them as "not authenticated".
func Decode(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMalformedToken
	}

	unverified, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(ErrMalformedToken, err.Error())
	}

	claims, ok := unverified.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, ErrMalformedToken
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrMissingExpiry
	}

	email, _ := claims["email"].(string)

	return &Claims{
		Exp:   int64(exp),
		Email: email,
		Raw:   claims,
	}, nil
}

// ExpiresAt returns the expiry as a time.Time.
func (c *Claims) ExpiresAt() time.Time {
	return time.Unix(c.Exp, 0)
}

// Expired reports whether the token's exp claim is in the past.
func (c *Claims) Expired() bool {
	return NowTimeFunc().Unix() > c.Exp
}

// TimeToExpiry returns how long until the token expires. Negative when the
// token has already expired.
func (c *Claims) TimeToExpiry() time.Duration {
	return c.ExpiresAt().Sub(NowTimeFunc())
}
