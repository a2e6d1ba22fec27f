// Package activity reports user actions outside PhotoHunt: app activities
// ("moments") written to the identity provider and events published to a
// message queue. Delivery is best effort; callers log failures.
package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/photohunt/internal/photos"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

// Activity types understood by the provider's moments endpoint.
const (
	AddActivityType    = "http://schemas.google.com/AddActivity"
	ReviewActivityType = "http://schemas.google.com/ReviewActivity"
	SchemaReviewType   = "http://schema.org/Review"
)

// Notifier is told about photos added and votes cast.
type Notifier interface {
	PhotoAdded(ctx context.Context, u *users.User, p *photos.Photo) error
	VoteCast(ctx context.Context, u *users.User, p *photos.Photo) error
}

// Event is the queue message describing one activity.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     int64     `json:"userId"`
	PhotoID    int64     `json:"photoId"`
	ThemeID    int64     `json:"themeId"`
	TargetURL  string    `json:"targetUrl"`
	OccurredAt time.Time `json:"occurredAt"`
}

func newEvent(kind string, u *users.User, p *photos.Photo) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       kind,
		UserID:     u.ID,
		PhotoID:    p.ID,
		ThemeID:    p.ThemeID,
		TargetURL:  p.PhotoContentURL,
		OccurredAt: time.Now().UTC(),
	}
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

// PhotoAdded implements Notifier.
func (m Multi) PhotoAdded(ctx context.Context, u *users.User, p *photos.Photo) error {
	var errs []error
	for _, n := range m {
		if err := n.PhotoAdded(ctx, u, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// VoteCast implements Notifier.
func (m Multi) VoteCast(ctx context.Context, u *users.User, p *photos.Photo) error {
	var errs []error
	for _, n := range m {
		if err := n.VoteCast(ctx, u, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Noop logs activities at debug level and delivers nothing.
type Noop struct {
	Logger *zap.Logger
}

// PhotoAdded implements Notifier.
func (n Noop) PhotoAdded(_ context.Context, u *users.User, p *photos.Photo) error {
	n.Logger.Debug("photo added", zap.Int64("user_id", u.ID), zap.Int64("photo_id", p.ID))
	return nil
}

// VoteCast implements Notifier.
func (n Noop) VoteCast(_ context.Context, u *users.User, p *photos.Photo) error {
	n.Logger.Debug("vote cast", zap.Int64("user_id", u.ID), zap.Int64("photo_id", p.ID))
	return nil
}
