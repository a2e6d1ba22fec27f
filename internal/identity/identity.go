// Package identity talks to the external identity provider (Google) and issues
// the admin tokens used by the management routes.
//
// It provides:
//   - GoogleClient: OAuth2 code exchange, token refresh, tokeninfo
//     verification, revocation, profile and connections lookups
//   - TokenSet: access/refresh token pair with issue and expiry times
//   - AdminTokenIssuer: issues and verifies HS256 admin JWTs
//   - RequireAdmin: Gin middleware enforcing an admin Bearer token
package identity

import (
	"errors"
	"time"
)

var (
	// ErrMalformedCode is returned when the client supplied an empty or
	// rejected authorization code.
	ErrMalformedCode = errors.New("malformed authorization code")

	// ErrExchangeFailed is returned when the provider could not be reached or
	// answered the code exchange with a protocol error.
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrVerificationFailed is returned when tokeninfo could not be fetched or
	// the token was issued to a different client.
	ErrVerificationFailed = errors.New("token verification failed")

	// ErrRevokeFailed is returned when the revoke endpoint rejects the call.
	ErrRevokeFailed = errors.New("token revocation failed")

	// ErrTokenExpired is returned by Refresh when the access token is expired
	// and no refresh token is available.
	ErrTokenExpired = errors.New("access token expired and no refresh token available")
)

// TokenSet is an access token, an optional refresh token and the times the
// access token was issued and expires.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiresIn returns the token lifetime in whole seconds.
func (t TokenSet) ExpiresIn() int {
	return int(t.ExpiresAt.Sub(t.IssuedAt).Seconds())
}

// Expired reports whether the access token is unusable at now.
func (t TokenSet) Expired(now time.Time) bool {
	return t.AccessToken == "" || !now.Before(t.ExpiresAt)
}

// NewTokenSet builds a TokenSet for a token issued now with the given lifetime.
func NewTokenSet(accessToken, refreshToken string, expiresIn int64) TokenSet {
	now := time.Now().UTC()
	return TokenSet{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IssuedAt:     now,
		ExpiresAt:    now.Add(time.Duration(expiresIn) * time.Second),
	}
}

// Profile is the subset of the provider's person resource the app stores.
type Profile struct {
	ID          string
	DisplayName string
	ProfileURL  string
	PhotoURL    string
	Email       string
}
