package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a user lookup finds no matching record.
var ErrNotFound = errors.New("user not found")

// Columns is the canonical column list scanned by ScanUser.
const Columns = `id, email, google_user_id, google_display_name, google_public_profile_url,
	google_public_profile_photo_url, google_access_token, google_refresh_token,
	google_expires_in, google_expires_at, created_at`

// UserRepository provides persistence for users against PostgreSQL.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts u keyed by its Google user id. When the id is already
// registered only the token fields are updated, and the stored refresh token
// is kept unless u carries a new one. u is overwritten with the stored row.
// Returns true when the row was created.
func (r *UserRepository) Upsert(ctx context.Context, u *User) (bool, error) {
	q := `
		INSERT INTO users (email, google_user_id, google_display_name, google_public_profile_url,
			google_public_profile_photo_url, google_access_token, google_refresh_token,
			google_expires_in, google_expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (google_user_id) DO UPDATE SET
			google_access_token  = EXCLUDED.google_access_token,
			google_refresh_token = COALESCE(NULLIF(EXCLUDED.google_refresh_token, ''), users.google_refresh_token),
			google_expires_in    = EXCLUDED.google_expires_in,
			google_expires_at    = EXCLUDED.google_expires_at
		RETURNING ` + Columns + `, (xmax = 0) AS inserted`

	row := r.db.QueryRow(ctx, q,
		u.Email, u.GoogleUserID, u.GoogleDisplayName, u.GooglePublicProfileURL,
		u.GooglePublicProfilePhotoURL, u.GoogleAccessToken, u.GoogleRefreshToken,
		u.GoogleExpiresIn, u.GoogleExpiresAt, time.Now().UTC(),
	)

	var inserted bool
	if err := row.Scan(append(scanTargets(u), &inserted)...); err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	return inserted, nil
}

// GetByID retrieves a user by local id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.scanOne(ctx, `SELECT `+Columns+` FROM users WHERE id = $1`, id)
}

// GetByGoogleID retrieves a user by their Google user id.
func (r *UserRepository) GetByGoogleID(ctx context.Context, googleUserID string) (*User, error) {
	return r.scanOne(ctx, `SELECT `+Columns+` FROM users WHERE google_user_id = $1`, googleUserID)
}

// UpdateTokens stores refreshed credentials for a user. An empty refresh token
// leaves the stored one in place.
func (r *UserRepository) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresIn int, expiresAt time.Time) error {
	q := `
		UPDATE users SET
			google_access_token  = $2,
			google_refresh_token = COALESCE(NULLIF($3, ''), google_refresh_token),
			google_expires_in    = $4,
			google_expires_at    = $5
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, id, accessToken, refreshToken, expiresIn, expiresAt)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of registered users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}

func (r *UserRepository) scanOne(ctx context.Context, q string, args ...any) (*User, error) {
	u, err := ScanUser(r.db.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// ScanUser scans one row selected with Columns.
func ScanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(scanTargets(&u)...); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanTargets(u *User) []any {
	return []any{
		&u.ID, &u.Email, &u.GoogleUserID, &u.GoogleDisplayName, &u.GooglePublicProfileURL,
		&u.GooglePublicProfilePhotoURL, &u.GoogleAccessToken, &u.GoogleRefreshToken,
		&u.GoogleExpiresIn, &u.GoogleExpiresAt, &u.CreatedAt,
	}
}
