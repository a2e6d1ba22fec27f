package users

import (
	"time"

	"github.com/jmerrifield20/photohunt/internal/identity"
)

// User is a PhotoHunt account, keyed by the Google user id.
// The JSON form is what the session store keeps; API responses use Public.
type User struct {
	ID                          int64     `json:"id"                          db:"id"`
	Email                       string    `json:"email"                       db:"email"`
	GoogleUserID                string    `json:"googleUserId"                db:"google_user_id"`
	GoogleDisplayName           string    `json:"googleDisplayName"           db:"google_display_name"`
	GooglePublicProfileURL      string    `json:"googlePublicProfileUrl"      db:"google_public_profile_url"`
	GooglePublicProfilePhotoURL string    `json:"googlePublicProfilePhotoUrl" db:"google_public_profile_photo_url"`
	GoogleAccessToken           string    `json:"googleAccessToken"           db:"google_access_token"`
	GoogleRefreshToken          string    `json:"googleRefreshToken"          db:"google_refresh_token"`
	GoogleExpiresIn             int       `json:"googleExpiresIn"             db:"google_expires_in"`
	GoogleExpiresAt             time.Time `json:"googleExpiresAt"             db:"google_expires_at"`
	CreatedAt                   time.Time `json:"createdAt"                   db:"created_at"`
}

// Tokens returns the user's stored credentials as a TokenSet.
func (u *User) Tokens() identity.TokenSet {
	return identity.TokenSet{
		AccessToken:  u.GoogleAccessToken,
		RefreshToken: u.GoogleRefreshToken,
		IssuedAt:     u.GoogleExpiresAt.Add(-time.Duration(u.GoogleExpiresIn) * time.Second),
		ExpiresAt:    u.GoogleExpiresAt,
	}
}

// SetTokens copies ts onto the user. An empty refresh token keeps the stored one:
// the provider only issues it on the first authorization.
func (u *User) SetTokens(ts identity.TokenSet) {
	u.GoogleAccessToken = ts.AccessToken
	if ts.RefreshToken != "" {
		u.GoogleRefreshToken = ts.RefreshToken
	}
	u.GoogleExpiresIn = ts.ExpiresIn()
	u.GoogleExpiresAt = ts.ExpiresAt
}

// PublicUser is the user representation returned by the API. It never carries
// tokens or the email address.
type PublicUser struct {
	ID                          int64  `json:"id"`
	GoogleUserID                string `json:"googleUserId"`
	GoogleDisplayName           string `json:"googleDisplayName"`
	GooglePublicProfileURL      string `json:"googlePublicProfileUrl"`
	GooglePublicProfilePhotoURL string `json:"googlePublicProfilePhotoUrl"`
	// GoogleExpiresAt is milliseconds since the Unix epoch.
	GoogleExpiresAt int64 `json:"googleExpiresAt"`
}

// Public converts u to its API representation.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                          u.ID,
		GoogleUserID:                u.GoogleUserID,
		GoogleDisplayName:           u.GoogleDisplayName,
		GooglePublicProfileURL:      u.GooglePublicProfileURL,
		GooglePublicProfilePhotoURL: u.GooglePublicProfilePhotoURL,
		GoogleExpiresAt:             u.GoogleExpiresAt.UnixMilli(),
	}
}
