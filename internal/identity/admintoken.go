package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidAdminSecret is returned when the presented admin secret does not
// match the configured hash, or no hash is configured.
var ErrInvalidAdminSecret = errors.New("invalid admin secret")

// AdminClaims are the JWT claims carried by an admin token.
type AdminClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// AdminTokenIssuer exchanges the static admin secret for short-lived HS256
// admin tokens and verifies them.
type AdminTokenIssuer struct {
	secretHash []byte
	key        []byte
	issuer     string
	ttl        time.Duration
}

// NewAdminTokenIssuer creates an AdminTokenIssuer.
//
//	secretHash: bcrypt hash of the admin secret; empty disables Exchange.
//	signingKey: HMAC key for the tokens.
//	ttl: token lifetime (default: 8 hours).
func NewAdminTokenIssuer(secretHash string, signingKey []byte, issuer string, ttl time.Duration) *AdminTokenIssuer {
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	return &AdminTokenIssuer{
		secretHash: []byte(secretHash),
		key:        signingKey,
		issuer:     issuer,
		ttl:        ttl,
	}
}

// Exchange checks secret against the configured bcrypt hash and returns a
// signed admin token.
func (a *AdminTokenIssuer) Exchange(secret string) (string, error) {
	if len(a.secretHash) == 0 || len(a.key) == 0 {
		return "", ErrInvalidAdminSecret
	}
	if err := bcrypt.CompareHashAndPassword(a.secretHash, []byte(secret)); err != nil {
		return "", ErrInvalidAdminSecret
	}
	return a.issue()
}

func (a *AdminTokenIssuer) issue() (string, error) {
	now := time.Now().UTC()
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			ID:        uuid.New().String(),
		},
		Role: "admin",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an admin token.
func (a *AdminTokenIssuer) Verify(tokenStr string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&AdminClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return a.key, nil
		},
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify admin token: %w", err)
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid admin token claims")
	}
	if claims.Role != "admin" {
		return nil, fmt.Errorf("not an admin token")
	}
	return claims, nil
}
