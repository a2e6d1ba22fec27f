package votes

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/photohunt/internal/photos"
)

// Repository persists votes in PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new vote Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CanVote reports whether userID neither owns photoID nor has voted on it.
// A missing photo reports true; Cast reports it as not found.
func (r *Repository) CanVote(ctx context.Context, userID, photoID int64) (bool, error) {
	var blocked bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM photos WHERE id = $2 AND owner_user_id = $1)
		    OR EXISTS (SELECT 1 FROM votes WHERE photo_id = $2 AND owner_user_id = $1)`,
		userID, photoID,
	).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return !blocked, nil
}

// Cast inserts the vote and increments the photo's counter in one
// transaction. The insert only happens for a photo the voter does not own
// and the unique (voter, photo) index turns a duplicate into a no-op, so
// both rules hold under concurrent requests.
func (r *Repository) Cast(ctx context.Context, userID, photoID int64) (*photos.Photo, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		INSERT INTO votes (owner_user_id, photo_id)
		SELECT $1, p.id FROM photos p WHERE p.id = $2 AND p.owner_user_id <> $1
		ON CONFLICT (owner_user_id, photo_id) DO NOTHING`,
		userID, photoID,
	)
	if err != nil {
		if isVoterGone(err) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("insert vote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM photos WHERE id = $1)`, photoID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check photo: %w", err)
		}
		if !exists {
			return nil, photos.ErrNotFound
		}
		return nil, ErrUnauthorized
	}

	p, err := photos.ScanPhoto(tx.QueryRow(ctx,
		`UPDATE photos AS p SET num_votes = p.num_votes + 1 WHERE p.id = $1
		 RETURNING `+photos.Columns+`, true`,
		photoID,
	))
	if err != nil {
		return nil, fmt.Errorf("increment vote counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit vote: %w", err)
	}
	return p, nil
}

// isVoterGone reports whether err is the voter foreign key failing, which
// happens when a session outlives its user's disconnect.
func isVoterGone(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503" && pgErr.ConstraintName == "votes_voter_fk"
}

// Count returns the number of votes.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM votes`).Scan(&n)
	return n, err
}
