package themes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `id, display_name, created_time, created, start, COALESCE(preview_photo_id, 0)`

// Repository persists themes in PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new theme Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts t and sets its ID.
func (r *Repository) Create(ctx context.Context, t *Theme) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO themes (display_name, created_time, created, start)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		t.DisplayName, t.CreatedTime, t.Created, t.Start,
	).Scan(&t.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("insert theme: %w", err)
	}
	return nil
}

// GetByID returns the theme with id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Theme, error) {
	return r.scanOne(ctx, `SELECT `+columns+` FROM themes WHERE id = $1`, id)
}

// StartingBetween returns the theme whose start lies in [from, to).
func (r *Repository) StartingBetween(ctx context.Context, from, to time.Time) (*Theme, error) {
	return r.scanOne(ctx,
		`SELECT `+columns+` FROM themes WHERE start >= $1 AND start < $2 ORDER BY start LIMIT 1`,
		from, to)
}

// StartedBefore returns themes that started before t, newest first.
func (r *Repository) StartedBefore(ctx context.Context, t time.Time) ([]Theme, error) {
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM themes WHERE start < $1 ORDER BY start DESC`, t)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	var out []Theme
	for rows.Next() {
		th, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *th)
	}
	return out, rows.Err()
}

// SetPreview points the theme's preview at photoID.
func (r *Repository) SetPreview(ctx context.Context, themeID, photoID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE themes SET preview_photo_id = $2 WHERE id = $1`, themeID, photoID)
	if err != nil {
		return fmt.Errorf("set theme preview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of themes.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM themes`).Scan(&n)
	return n, err
}

func (r *Repository) scanOne(ctx context.Context, q string, args ...any) (*Theme, error) {
	t, err := scan(r.db.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func scan(row pgx.Row) (*Theme, error) {
	var t Theme
	if err := row.Scan(&t.ID, &t.DisplayName, &t.CreatedTime, &t.Created, &t.Start, &t.PreviewPhotoID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan theme: %w", err)
	}
	return &t, nil
}
