package photos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Columns is the photo column list for queries that alias photos as p.
// ScanPhoto expects these followed by one boolean voted column.
const Columns = `p.id, p.owner_user_id, p.owner_display_name, p.owner_profile_url, p.owner_profile_photo,
	p.theme_id, p.theme_display_name, p.num_votes, p.created_at, p.fullsize_url, p.thumbnail_url`

// VotedExpr returns the SQL expression for the Voted flag of the viewer bound
// to param. A photo counts as voted for its owner, who can never vote on it.
func VotedExpr(param string) string {
	return `(p.owner_user_id = ` + param +
		` OR EXISTS (SELECT 1 FROM votes v WHERE v.photo_id = p.id AND v.owner_user_id = ` + param + `))`
}

// ScanPhoto scans Columns plus the voted flag.
func ScanPhoto(row pgx.Row) (*Photo, error) {
	var p Photo
	err := row.Scan(
		&p.ID, &p.OwnerUserID, &p.OwnerDisplayName, &p.OwnerProfileURL, &p.OwnerProfilePhoto,
		&p.ThemeID, &p.ThemeDisplayName, &p.NumVotes, &p.CreatedAt, &p.FullsizeURL, &p.ThumbnailURL,
		&p.Voted,
	)
	if err != nil {
		return nil, err
	}
	p.Created = p.CreatedAt.Unix()
	return &p, nil
}

// Repository persists photos in PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new photo Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// List returns the photos matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Photo, error) {
	args := []any{f.ViewerID}
	var where []string
	if f.ThemeID != 0 {
		args = append(args, f.ThemeID)
		where = append(where, fmt.Sprintf("p.theme_id = $%d", len(args)))
	}
	if f.OwnerID != 0 {
		args = append(args, f.OwnerID)
		where = append(where, fmt.Sprintf("p.owner_user_id = $%d", len(args)))
	}
	if f.FriendsOf != 0 {
		args = append(args, f.FriendsOf)
		where = append(where, fmt.Sprintf(
			"p.owner_user_id IN (SELECT friend_user_id FROM edges WHERE photohunt_user_id = $%d)", len(args)))
	}

	q := `SELECT ` + Columns + `, ` + VotedExpr("$1") + ` FROM photos p`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var out []Photo
	for rows.Next() {
		p, err := ScanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Get returns the photo with id as seen by viewerID.
func (r *Repository) Get(ctx context.Context, id, viewerID int64) (*Photo, error) {
	q := `SELECT ` + Columns + `, ` + VotedExpr("$2") + ` FROM photos p WHERE p.id = $1`
	p, err := ScanPhoto(r.db.QueryRow(ctx, q, id, viewerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return p, nil
}

// Create inserts p and sets its ID and creation time.
func (r *Repository) Create(ctx context.Context, p *Photo) error {
	q := `
		INSERT INTO photos (owner_user_id, owner_display_name, owner_profile_url, owner_profile_photo,
			theme_id, theme_display_name, fullsize_url, thumbnail_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, num_votes, created_at`
	err := r.db.QueryRow(ctx, q,
		p.OwnerUserID, p.OwnerDisplayName, p.OwnerProfileURL, p.OwnerProfilePhoto,
		p.ThemeID, p.ThemeDisplayName, p.FullsizeURL, p.ThumbnailURL,
	).Scan(&p.ID, &p.NumVotes, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" && pgErr.ConstraintName == "photos_owner_fk" {
			return ErrUnauthorized
		}
		return fmt.Errorf("insert photo: %w", err)
	}
	p.Created = p.CreatedAt.Unix()
	return nil
}

// Delete removes ownerID's photo id, its votes and any theme preview pointing at it.
func (r *Repository) Delete(ctx context.Context, id, ownerID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM votes WHERE photo_id = $1`, id); err != nil {
		return fmt.Errorf("delete photo votes: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE themes SET preview_photo_id = NULL WHERE preview_photo_id = $1`, id); err != nil {
		return fmt.Errorf("clear theme preview: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM photos WHERE id = $1 AND owner_user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// Count returns the number of photos.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM photos`).Scan(&n)
	return n, err
}
