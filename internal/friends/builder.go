// Package friends maintains the local friend graph: mutual edges between
// PhotoHunt users who can see each other on the identity provider.
package friends

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

// PageFetcher returns one page of external connection ids and the token of
// the next page. An empty next token ends the feed.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageToken string) (ids []string, next string, err error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, pageToken string) ([]string, string, error)

// FetchPage implements PageFetcher.
func (f PageFetcherFunc) FetchPage(ctx context.Context, pageToken string) ([]string, string, error) {
	return f(ctx, pageToken)
}

// ConnectionLister lists a user's visible connections on the provider.
type ConnectionLister interface {
	ListConnections(ctx context.Context, accessToken, pageToken string) ([]string, string, error)
}

// Connections returns a PageFetcher over the connections visible to accessToken.
func Connections(l ConnectionLister, accessToken string) PageFetcher {
	return PageFetcherFunc(func(ctx context.Context, pageToken string) ([]string, string, error) {
		return l.ListConnections(ctx, accessToken, pageToken)
	})
}

type edgeRepo interface {
	UserIDByGoogleID(ctx context.Context, googleUserID string) (int64, error)
	EdgeExists(ctx context.Context, ownerID, friendID int64) (bool, error)
	CreatePair(ctx context.Context, a, b int64) (bool, error)
	ListFriends(ctx context.Context, userID int64) ([]users.User, error)
}

// Builder synchronizes edges from the provider's connection feed.
type Builder struct {
	repo   edgeRepo
	lister ConnectionLister
	logger *zap.Logger
}

// NewBuilder creates a Builder. lister is used by SyncUser and may be nil when
// only SyncFriends is called.
func NewBuilder(repo edgeRepo, lister ConnectionLister, logger *zap.Logger) *Builder {
	return &Builder{repo: repo, lister: lister, logger: logger}
}

// SyncFriends pages through fetch and creates an edge pair between u and every
// connection that is already a registered user. Re-running it with an
// unchanged feed creates nothing. Returns the number of pairs created.
func (b *Builder) SyncFriends(ctx context.Context, u *users.User, fetch PageFetcher) (int, error) {
	created := 0
	token := ""
	for {
		ids, next, err := fetch.FetchPage(ctx, token)
		if err != nil {
			return created, fmt.Errorf("fetch connections page: %w", err)
		}

		for _, gid := range ids {
			ok, err := b.link(ctx, u, gid)
			if err != nil {
				return created, err
			}
			if ok {
				created++
			}
		}

		if next == "" || next == token {
			break
		}
		token = next
	}

	if created > 0 {
		b.logger.Debug("friend graph synced", zap.Int64("user_id", u.ID), zap.Int("pairs", created))
	}
	return created, nil
}

// SyncUser runs SyncFriends against the provider using u's access token.
func (b *Builder) SyncUser(ctx context.Context, u *users.User) (int, error) {
	if b.lister == nil {
		return 0, errors.New("no connection lister configured")
	}
	return b.SyncFriends(ctx, u, Connections(b.lister, u.GoogleAccessToken))
}

// ListFriends returns the users u has an edge to.
func (b *Builder) ListFriends(ctx context.Context, userID int64) ([]users.User, error) {
	return b.repo.ListFriends(ctx, userID)
}

func (b *Builder) link(ctx context.Context, u *users.User, googleID string) (bool, error) {
	friendID, err := b.repo.UserIDByGoogleID(ctx, googleID)
	if errors.Is(err, users.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up connection %s: %w", googleID, err)
	}
	if friendID == u.ID {
		return false, nil
	}

	exists, err := b.repo.EdgeExists(ctx, u.ID, friendID)
	if err != nil {
		return false, fmt.Errorf("check edge: %w", err)
	}
	if exists {
		return false, nil
	}

	ok, err := b.repo.CreatePair(ctx, u.ID, friendID)
	if err != nil {
		return false, fmt.Errorf("create edge pair: %w", err)
	}
	return ok, nil
}
