package disconnect

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository deletes a user's rows from PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new disconnect Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// PurgeUser removes every row referencing userID in one transaction.
func (r *Repository) PurgeUser(ctx context.Context, userID int64) (Purged, error) {
	var out Purged

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return out, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`DELETE FROM edges WHERE photohunt_user_id = $1 OR friend_user_id = $1`, userID)
	if err != nil {
		return out, fmt.Errorf("delete edges: %w", err)
	}
	out.Edges = tag.RowsAffected()

	// One vote per (voter, photo), so each voted photo loses exactly one.
	if _, err := tx.Exec(ctx, `
		UPDATE photos SET num_votes = GREATEST(num_votes - 1, 0)
		WHERE id IN (SELECT photo_id FROM votes WHERE owner_user_id = $1)`, userID); err != nil {
		return out, fmt.Errorf("decrement vote counters: %w", err)
	}
	tag, err = tx.Exec(ctx, `DELETE FROM votes WHERE owner_user_id = $1`, userID)
	if err != nil {
		return out, fmt.Errorf("delete votes: %w", err)
	}
	out.Votes = tag.RowsAffected()

	if _, err := tx.Exec(ctx, `
		DELETE FROM votes WHERE photo_id IN (SELECT id FROM photos WHERE owner_user_id = $1)`, userID); err != nil {
		return out, fmt.Errorf("delete votes on owned photos: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE themes SET preview_photo_id = NULL
		WHERE preview_photo_id IN (SELECT id FROM photos WHERE owner_user_id = $1)`, userID); err != nil {
		return out, fmt.Errorf("clear theme previews: %w", err)
	}
	tag, err = tx.Exec(ctx, `DELETE FROM photos WHERE owner_user_id = $1`, userID)
	if err != nil {
		return out, fmt.Errorf("delete photos: %w", err)
	}
	out.Photos = tag.RowsAffected()

	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return out, fmt.Errorf("delete user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return out, fmt.Errorf("commit purge: %w", err)
	}
	return out, nil
}
