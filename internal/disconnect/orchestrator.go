// Package disconnect removes a user from PhotoHunt and revokes the
// credentials the user granted.
package disconnect

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmerrifield20/photohunt/internal/identity"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

// Purged counts the rows removed for one user.
type Purged struct {
	Edges  int64
	Votes  int64
	Photos int64
}

type purger interface {
	PurgeUser(ctx context.Context, userID int64) (Purged, error)
}

// Revoker revokes a provider token.
type Revoker interface {
	RevokeToken(ctx context.Context, token string) error
}

// Orchestrator runs the disconnect sequence.
type Orchestrator struct {
	repo    purger
	revoker Revoker
	logger  *zap.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(repo purger, revoker Revoker, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{repo: repo, revoker: revoker, logger: logger}
}

// Disconnect deletes u's edges, votes (decrementing the voted photos'
// counters), photos with their votes, and the user row, all in one
// transaction. It then calls clearSession and finally revokes the refresh
// token, or the access token when no refresh token was issued.
//
// Local data is gone once the transaction commits; a revoke failure is
// returned as identity.ErrRevokeFailed but does not restore anything.
func (o *Orchestrator) Disconnect(ctx context.Context, u *users.User, clearSession func()) error {
	if u == nil {
		return errors.New("disconnect: no user")
	}

	purged, err := o.repo.PurgeUser(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("purge user %d: %w", u.ID, err)
	}
	o.logger.Info("user data deleted",
		zap.Int64("user_id", u.ID),
		zap.Int64("edges", purged.Edges),
		zap.Int64("votes", purged.Votes),
		zap.Int64("photos", purged.Photos),
	)

	if clearSession != nil {
		clearSession()
	}

	token := u.GoogleRefreshToken
	if token == "" {
		token = u.GoogleAccessToken
	}
	if err := o.revoker.RevokeToken(ctx, token); err != nil {
		o.logger.Warn("token revocation failed", zap.Int64("user_id", u.ID), zap.Error(err))
		if !errors.Is(err, identity.ErrRevokeFailed) {
			err = fmt.Errorf("%w: %v", identity.ErrRevokeFailed, err)
		}
		return err
	}
	return nil
}
