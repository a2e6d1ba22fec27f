package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jmerrifield20/photohunt/internal/identity"
	"github.com/jmerrifield20/photohunt/internal/photos"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

// ItemScope is a schema.org item inside a moment.
type ItemScope struct {
	URL  string `json:"url,omitempty"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

// Moment is the body posted to the provider's moments endpoint.
type Moment struct {
	Type   string     `json:"type"`
	Target ItemScope  `json:"target"`
	Result *ItemScope `json:"result,omitempty"`
}

type momentClient interface {
	Refresh(ctx context.Context, ts identity.TokenSet) (*identity.TokenSet, error)
	PostJSON(ctx context.Context, endpoint, accessToken string, body any) error
}

type tokenStore interface {
	StoreTokens(ctx context.Context, u *users.User, ts identity.TokenSet) error
}

// ProviderNotifier writes app activities to the identity provider on behalf
// of the acting user, refreshing the user's access token first when needed.
type ProviderNotifier struct {
	client     momentClient
	tokens     tokenStore
	momentsURL string
	logger     *zap.Logger
	now        func() time.Time
}

// NewProviderNotifier creates a ProviderNotifier posting to momentsURL.
// tokens persists refreshed credentials and may be nil.
func NewProviderNotifier(client momentClient, tokens tokenStore, momentsURL string, logger *zap.Logger) *ProviderNotifier {
	return &ProviderNotifier{client: client, tokens: tokens, momentsURL: momentsURL, logger: logger, now: time.Now}
}

// PhotoAdded implements Notifier.
func (n *ProviderNotifier) PhotoAdded(ctx context.Context, u *users.User, p *photos.Photo) error {
	return n.write(ctx, u, Moment{
		Type:   AddActivityType,
		Target: ItemScope{URL: p.PhotoContentURL},
	})
}

// VoteCast implements Notifier.
func (n *ProviderNotifier) VoteCast(ctx context.Context, u *users.User, p *photos.Photo) error {
	return n.write(ctx, u, Moment{
		Type:   ReviewActivityType,
		Target: ItemScope{URL: p.PhotoContentURL},
		Result: &ItemScope{
			Type: SchemaReviewType,
			Name: "A vote for this PhotoHunt photo.",
			URL:  p.PhotoContentURL,
			Text: "This photo embodies " + p.ThemeDisplayName,
		},
	})
}

func (n *ProviderNotifier) write(ctx context.Context, u *users.User, m Moment) error {
	token, err := n.accessToken(ctx, u)
	if err != nil {
		return err
	}
	if err := n.client.PostJSON(ctx, n.momentsURL, token, m); err != nil {
		return fmt.Errorf("write %s: %w", m.Type, err)
	}
	return nil
}

func (n *ProviderNotifier) accessToken(ctx context.Context, u *users.User) (string, error) {
	ts := u.Tokens()
	if !ts.Expired(n.now()) {
		return ts.AccessToken, nil
	}

	fresh, err := n.client.Refresh(ctx, ts)
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	if n.tokens != nil {
		if err := n.tokens.StoreTokens(ctx, u, *fresh); err != nil {
			n.logger.Warn("store refreshed tokens", zap.Int64("user_id", u.ID), zap.Error(err))
		}
	} else {
		u.SetTokens(*fresh)
	}
	return fresh.AccessToken, nil
}
