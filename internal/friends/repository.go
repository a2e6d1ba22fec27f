package friends

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/photohunt/internal/users"
)

// EdgeRepository stores directed friend edges in PostgreSQL.
type EdgeRepository struct {
	db *pgxpool.Pool
}

// NewEdgeRepository creates a new EdgeRepository.
func NewEdgeRepository(db *pgxpool.Pool) *EdgeRepository {
	return &EdgeRepository{db: db}
}

// UserIDByGoogleID returns the local id of a registered user.
func (r *EdgeRepository) UserIDByGoogleID(ctx context.Context, googleUserID string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE google_user_id = $1`, googleUserID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, users.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup user id: %w", err)
	}
	return id, nil
}

// EdgeExists reports whether ownerID has an edge to friendID.
func (r *EdgeRepository) EdgeExists(ctx context.Context, ownerID, friendID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM edges WHERE photohunt_user_id = $1 AND friend_user_id = $2)`,
		ownerID, friendID,
	).Scan(&exists)
	return exists, err
}

// CreatePair inserts a→b and b→a in one transaction. A pair that already
// exists, even partially, is completed without error. Returns true when at
// least one row was written.
func (r *EdgeRepository) CreatePair(ctx context.Context, a, b int64) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const q = `
		INSERT INTO edges (photohunt_user_id, friend_user_id)
		VALUES ($1, $2)
		ON CONFLICT (photohunt_user_id, friend_user_id) DO NOTHING`

	var written int64
	for _, pair := range [][2]int64{{a, b}, {b, a}} {
		tag, err := tx.Exec(ctx, q, pair[0], pair[1])
		if err != nil {
			return false, fmt.Errorf("insert edge: %w", err)
		}
		written += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit edge pair: %w", err)
	}
	return written > 0, nil
}

// ListFriends returns every user userID has an edge to, ordered by name.
func (r *EdgeRepository) ListFriends(ctx context.Context, userID int64) ([]users.User, error) {
	q := `SELECT ` + users.Columns + ` FROM users
		WHERE id IN (SELECT friend_user_id FROM edges WHERE photohunt_user_id = $1)
		ORDER BY google_display_name, id`

	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var out []users.User
	for rows.Next() {
		u, err := users.ScanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Count returns the number of directed edges.
func (r *EdgeRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM edges`).Scan(&n)
	return n, err
}
