// Package votes records votes on photos: at most one per user and photo, never
// on the voter's own photo, with the photo's vote counter kept in step.
package votes

import (
	"context"
	"errors"

	"github.com/jmerrifield20/photohunt/internal/activity"
	"github.com/jmerrifield20/photohunt/internal/photos"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

// ErrUnauthorized is returned when there is no voter or the vote is not allowed.
var ErrUnauthorized = errors.New("unauthorized")

type voteRepo interface {
	CanVote(ctx context.Context, userID, photoID int64) (bool, error)
	Cast(ctx context.Context, userID, photoID int64) (*photos.Photo, error)
}

// Ledger casts votes.
type Ledger struct {
	repo     voteRepo
	notifier activity.Notifier
	baseURL  string
	logger   *zap.Logger
}

// NewLedger creates a Ledger. notifier may be nil.
func NewLedger(repo voteRepo, notifier activity.Notifier, baseURL string, logger *zap.Logger) *Ledger {
	return &Ledger{repo: repo, notifier: notifier, baseURL: baseURL, logger: logger}
}

// CanVote reports whether userID may vote on photoID: the photo is not the
// user's own and the user has not voted on it yet.
func (l *Ledger) CanVote(ctx context.Context, userID, photoID int64) (bool, error) {
	return l.repo.CanVote(ctx, userID, photoID)
}

// DoVote records u's vote on photoID and returns the updated photo with
// Voted set. A nil user, a self vote or a repeated vote yields ErrUnauthorized.
// The provider is notified afterwards; a notification failure is only logged.
func (l *Ledger) DoVote(ctx context.Context, u *users.User, photoID int64) (*photos.Photo, error) {
	if u == nil {
		return nil, ErrUnauthorized
	}
	ok, err := l.repo.CanVote(ctx, u.ID, photoID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorized
	}

	// Cast re-checks both rules atomically; a concurrent duplicate loses here.
	p, err := l.repo.Cast(ctx, u.ID, photoID)
	if err != nil {
		return nil, err
	}
	p.Voted = true
	p.SetLinks(l.baseURL)

	l.logger.Info("vote cast", zap.Int64("user_id", u.ID), zap.Int64("photo_id", p.ID), zap.Int("num_votes", p.NumVotes))

	if l.notifier != nil {
		if err := l.notifier.VoteCast(ctx, u, p); err != nil {
			l.logger.Warn("vote activity not written", zap.Int64("photo_id", p.ID), zap.Error(err))
		}
	}
	return p, nil
}
