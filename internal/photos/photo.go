// Package photos stores the photos users submit for a theme.
//
// Owner and theme fields on a Photo are copied when it is created and are
// never updated afterwards.
package photos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmerrifield20/photohunt/internal/themes"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when no photo matches.
	ErrNotFound = errors.New("photo not found")
	// ErrUnauthorized is returned when the caller may not modify the photo.
	ErrUnauthorized = errors.New("unauthorized")
)

// Photo is a submitted photo with its denormalized owner and theme fields.
type Photo struct {
	ID                int64     `json:"id"`
	OwnerUserID       int64     `json:"ownerUserId"`
	OwnerDisplayName  string    `json:"ownerDisplayName"`
	OwnerProfileURL   string    `json:"ownerProfileUrl"`
	OwnerProfilePhoto string    `json:"ownerProfilePhoto"`
	ThemeID           int64     `json:"themeId"`
	ThemeDisplayName  string    `json:"themeDisplayName"`
	NumVotes          int       `json:"numVotes"`
	Voted             bool      `json:"voted"`
	Created           int64     `json:"created"`
	FullsizeURL       string    `json:"fullsizeUrl"`
	ThumbnailURL      string    `json:"thumbnailUrl"`
	VoteCtaURL        string    `json:"voteCtaUrl"`
	PhotoContentURL   string    `json:"photoContentUrl"`
	CreatedAt         time.Time `json:"-"`
}

// SetLinks derives the content and vote call-to-action URLs from baseURL.
func (p *Photo) SetLinks(baseURL string) {
	base := strings.TrimRight(baseURL, "/")
	p.PhotoContentURL = fmt.Sprintf("%s/photo.html?photoId=%d", base, p.ID)
	p.VoteCtaURL = p.PhotoContentURL + "&action=vote"
}

// Filter selects photos. Zero fields are ignored.
type Filter struct {
	ThemeID int64
	OwnerID int64
	// FriendsOf restricts results to photos owned by friends of this user.
	FriendsOf int64
	// ViewerID decides each photo's Voted flag.
	ViewerID int64
}

// Notifier is told about newly submitted photos.
type Notifier interface {
	PhotoAdded(ctx context.Context, u *users.User, p *Photo) error
}

type photoRepo interface {
	List(ctx context.Context, f Filter) ([]Photo, error)
	Get(ctx context.Context, id, viewerID int64) (*Photo, error)
	Create(ctx context.Context, p *Photo) error
	Delete(ctx context.Context, id, ownerID int64) error
}

type previewSetter interface {
	SetPreview(ctx context.Context, themeID, photoID int64) error
}

// Service implements photo listing, submission and deletion.
type Service struct {
	repo     photoRepo
	themes   previewSetter
	notifier Notifier
	baseURL  string
	logger   *zap.Logger
}

// NewService creates a new photo Service. notifier may be nil.
func NewService(repo photoRepo, themes previewSetter, notifier Notifier, baseURL string, logger *zap.Logger) *Service {
	return &Service{repo: repo, themes: themes, notifier: notifier, baseURL: baseURL, logger: logger}
}

// List returns the photos matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Photo, error) {
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].SetLinks(s.baseURL)
	}
	return list, nil
}

// Get returns one photo as seen by viewerID.
func (s *Service) Get(ctx context.Context, id, viewerID int64) (*Photo, error) {
	p, err := s.repo.Get(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	p.SetLinks(s.baseURL)
	return p, nil
}

// Create stores a photo for owner in theme, makes it the theme's preview and
// notifies the provider. Preview and notification failures are logged only.
func (s *Service) Create(ctx context.Context, owner *users.User, theme *themes.Theme, fullsizeURL, thumbnailURL string) (*Photo, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	if fullsizeURL == "" {
		return nil, fmt.Errorf("fullsize URL is required")
	}
	if thumbnailURL == "" {
		thumbnailURL = fullsizeURL
	}

	p := &Photo{
		OwnerUserID:       owner.ID,
		OwnerDisplayName:  owner.GoogleDisplayName,
		OwnerProfileURL:   owner.GooglePublicProfileURL,
		OwnerProfilePhoto: owner.GooglePublicProfilePhotoURL,
		ThemeID:           theme.ID,
		ThemeDisplayName:  theme.DisplayName,
		FullsizeURL:       fullsizeURL,
		ThumbnailURL:      thumbnailURL,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	p.SetLinks(s.baseURL)

	if s.themes != nil {
		if err := s.themes.SetPreview(ctx, theme.ID, p.ID); err != nil {
			s.logger.Warn("set theme preview", zap.Int64("theme_id", theme.ID), zap.Error(err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.PhotoAdded(ctx, owner, p); err != nil {
			s.logger.Warn("photo activity not written", zap.Int64("photo_id", p.ID), zap.Error(err))
		}
	}
	return p, nil
}

// Delete removes one of u's photos together with its votes.
func (s *Service) Delete(ctx context.Context, u *users.User, id int64) (*Photo, error) {
	if u == nil {
		return nil, ErrUnauthorized
	}
	p, err := s.repo.Get(ctx, id, u.ID)
	if err != nil {
		return nil, err
	}
	if p.OwnerUserID != u.ID {
		return nil, ErrUnauthorized
	}
	if err := s.repo.Delete(ctx, id, u.ID); err != nil {
		return nil, err
	}
	p.SetLinks(s.baseURL)
	return p, nil
}
