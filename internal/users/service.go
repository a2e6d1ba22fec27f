package users

import (
	"context"
	"fmt"
	"time"

	"github.com/jmerrifield20/photohunt/internal/identity"
	"go.uber.org/zap"
)

// userRepo is the storage interface consumed by ConnectService.
type userRepo interface {
	Upsert(ctx context.Context, u *User) (bool, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByGoogleID(ctx context.Context, googleUserID string) (*User, error)
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresIn int, expiresAt time.Time) error
}

// Provider is the subset of the identity provider client used to connect users.
type Provider interface {
	ExchangeCode(ctx context.Context, code string) (*identity.TokenSet, error)
	VerifyToken(ctx context.Context, accessToken string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*identity.Profile, error)
}

// FriendSyncer builds the friend graph of a newly registered user.
type FriendSyncer interface {
	SyncUser(ctx context.Context, u *User) (int, error)
}

// TokenRequest is the body accepted by the connect endpoint. Either Code is
// set, or the client already holds an access token.
type TokenRequest struct {
	Code         string `json:"code"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ConnectService turns provider credentials into a stored User.
type ConnectService struct {
	repo     userRepo
	provider Provider
	friends  FriendSyncer
	logger   *zap.Logger
}

// NewConnectService creates a new ConnectService. friends may be nil.
func NewConnectService(repo userRepo, provider Provider, friends FriendSyncer, logger *zap.Logger) *ConnectService {
	return &ConnectService{repo: repo, provider: provider, friends: friends, logger: logger}
}

// Connect exchanges or accepts the supplied credentials, verifies that they were
// issued to this application, and upserts the matching user. On first
// registration the user's friend graph is built; sync failures are logged only.
func (s *ConnectService) Connect(ctx context.Context, req TokenRequest) (*User, error) {
	tokens, err := s.tokens(ctx, req)
	if err != nil {
		return nil, err
	}

	googleID, err := s.provider.VerifyToken(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	profile, err := s.provider.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrVerificationFailed, err)
	}
	if profile.ID != googleID {
		return nil, fmt.Errorf("%w: profile does not belong to token subject", identity.ErrVerificationFailed)
	}

	u := &User{
		Email:                       profile.Email,
		GoogleUserID:                profile.ID,
		GoogleDisplayName:           profile.DisplayName,
		GooglePublicProfileURL:      profile.ProfileURL,
		GooglePublicProfilePhotoURL: profile.PhotoURL,
	}
	u.SetTokens(*tokens)

	created, err := s.repo.Upsert(ctx, u)
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.Info("user registered", zap.Int64("user_id", u.ID), zap.String("google_user_id", u.GoogleUserID))
		if s.friends != nil {
			n, err := s.friends.SyncUser(ctx, u)
			if err != nil {
				s.logger.Warn("friend sync failed", zap.Int64("user_id", u.ID), zap.Error(err))
			} else {
				s.logger.Info("friend edges created", zap.Int64("user_id", u.ID), zap.Int("pairs", n))
			}
		}
	}
	return u, nil
}

// Reload fetches the stored copy of a user, e.g. after a session was restored.
func (s *ConnectService) Reload(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Lookup finds a registered user by Google user id.
func (s *ConnectService) Lookup(ctx context.Context, googleUserID string) (*User, error) {
	return s.repo.GetByGoogleID(ctx, googleUserID)
}

// StoreTokens persists credentials obtained by a token refresh.
func (s *ConnectService) StoreTokens(ctx context.Context, u *User, ts identity.TokenSet) error {
	u.SetTokens(ts)
	return s.repo.UpdateTokens(ctx, u.ID, u.GoogleAccessToken, ts.RefreshToken, u.GoogleExpiresIn, u.GoogleExpiresAt)
}

func (s *ConnectService) tokens(ctx context.Context, req TokenRequest) (*identity.TokenSet, error) {
	if req.Code != "" {
		return s.provider.ExchangeCode(ctx, req.Code)
	}
	if req.AccessToken == "" {
		return nil, fmt.Errorf("%w: neither code nor access_token supplied", identity.ErrMalformedCode)
	}
	ts := identity.NewTokenSet(req.AccessToken, req.RefreshToken, req.ExpiresIn)
	return &ts, nil
}
