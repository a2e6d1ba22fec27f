// Package themes manages the dated photo challenges photos are tagged with.
package themes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultDisplayName is the theme created when no theme starts today.
const DefaultDisplayName = "Beautiful"

var (
	// ErrNotFound is returned when no theme matches.
	ErrNotFound = errors.New("theme not found")
	// ErrDuplicate is returned when a theme already starts on the same day.
	ErrDuplicate = errors.New("a theme already starts on that day")
)

// Theme is a photo challenge active from its start day.
type Theme struct {
	ID             int64
	DisplayName    string
	CreatedTime    time.Time
	Created        string // human readable creation date
	Start          time.Time
	PreviewPhotoID int64
}

// APITheme is the JSON representation of a theme. Times are Unix seconds.
type APITheme struct {
	ID             int64  `json:"id"`
	DisplayName    string `json:"displayName"`
	Created        int64  `json:"created"`
	Start          int64  `json:"start"`
	PreviewPhotoID int64  `json:"previewPhotoId,omitempty"`
}

// API converts t to its JSON representation.
func (t *Theme) API() APITheme {
	return APITheme{
		ID:             t.ID,
		DisplayName:    t.DisplayName,
		Created:        t.CreatedTime.Unix(),
		Start:          t.Start.Unix(),
		PreviewPhotoID: t.PreviewPhotoID,
	}
}

type themeRepo interface {
	Create(ctx context.Context, t *Theme) error
	GetByID(ctx context.Context, id int64) (*Theme, error)
	StartingBetween(ctx context.Context, from, to time.Time) (*Theme, error)
	StartedBefore(ctx context.Context, t time.Time) ([]Theme, error)
	SetPreview(ctx context.Context, themeID, photoID int64) error
}

// Service implements theme selection.
type Service struct {
	repo   themeRepo
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new theme Service.
func NewService(repo themeRepo, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) today() (time.Time, time.Time) {
	n := s.now().UTC()
	day := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return day, day.AddDate(0, 0, 1)
}

// Add creates a theme starting on start's day.
func (s *Service) Add(ctx context.Context, displayName string, start time.Time) (*Theme, error) {
	if displayName == "" {
		return nil, fmt.Errorf("display name is required")
	}
	created := s.now().UTC()
	st := start.UTC()
	t := &Theme{
		DisplayName: displayName,
		CreatedTime: created,
		Created:     created.Format("January 2, 2006"),
		Start:       time.Date(st.Year(), st.Month(), st.Day(), 0, 0, 0, 0, time.UTC),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("theme added", zap.Int64("theme_id", t.ID), zap.String("display_name", t.DisplayName))
	return t, nil
}

// Current returns the theme starting today, creating the default theme when
// none exists.
func (s *Service) Current(ctx context.Context) (*Theme, error) {
	from, to := s.today()
	t, err := s.repo.StartingBetween(ctx, from, to)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	t, err = s.Add(ctx, DefaultDisplayName, from)
	if errors.Is(err, ErrDuplicate) {
		// Another request created today's theme first.
		return s.repo.StartingBetween(ctx, from, to)
	}
	return t, err
}

// Selected returns the theme with id, or the current theme when id is 0.
func (s *Service) Selected(ctx context.Context, id int64) (*Theme, error) {
	if id == 0 {
		return s.Current(ctx)
	}
	return s.repo.GetByID(ctx, id)
}

// List returns every theme that has started, newest first. When no theme
// starts today the default theme is created and included.
func (s *Service) List(ctx context.Context) ([]Theme, error) {
	from, to := s.today()
	list, err := s.repo.StartedBefore(ctx, s.now().UTC())
	if err != nil {
		return nil, err
	}
	for _, t := range list {
		if !t.Start.Before(from) && t.Start.Before(to) {
			return list, nil
		}
	}

	cur, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return append([]Theme{*cur}, list...), nil
}

// SetPreview records photoID as the representative photo of themeID.
func (s *Service) SetPreview(ctx context.Context, themeID, photoID int64) error {
	return s.repo.SetPreview(ctx, themeID, photoID)
}
