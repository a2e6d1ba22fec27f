package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultTokenInfoURL   = "https://www.googleapis.com/oauth2/v1/tokeninfo"
	defaultRevokeURL      = "https://oauth2.googleapis.com/revoke"
	defaultProfileURL     = "https://people.googleapis.com/v1/people/me?personFields=names,photos,emailAddresses,urls"
	defaultConnectionsURL = "https://people.googleapis.com/v1/people/me/connections?personFields=metadata&pageSize=100"
)

// GoogleConfig holds the OAuth client registration and the provider endpoints.
// Zero-valued endpoints fall back to Google's public URLs.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// RedirectURL is "postmessage" for codes obtained by the JavaScript
	// sign-in button.
	RedirectURL string
	Scopes      []string

	Endpoint       oauth2.Endpoint
	TokenInfoURL   string
	RevokeURL      string
	ProfileURL     string
	ConnectionsURL string

	// Timeout bounds every call to the provider (default 10s).
	Timeout time.Duration
}

// GoogleClient wraps the provider's OAuth2 and People endpoints.
type GoogleClient struct {
	oauth *oauth2.Config
	cfg   GoogleConfig
	http  *http.Client
}

// NewGoogleClient creates a GoogleClient from cfg.
func NewGoogleClient(cfg GoogleConfig) *GoogleClient {
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = "postmessage"
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "email", "profile", "https://www.googleapis.com/auth/contacts.readonly"}
	}
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = google.Endpoint
	}
	if cfg.TokenInfoURL == "" {
		cfg.TokenInfoURL = defaultTokenInfoURL
	}
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = defaultRevokeURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaultProfileURL
	}
	if cfg.ConnectionsURL == "" {
		cfg.ConnectionsURL = defaultConnectionsURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &GoogleClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     cfg.Endpoint,
		},
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// ClientID returns the registered OAuth client identifier.
func (g *GoogleClient) ClientID() string {
	return g.cfg.ClientID
}

// oauthCtx makes the oauth2 package use the client's bounded http.Client.
func (g *GoogleClient) oauthCtx(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, g.http)
}

// ExchangeCode trades a one-time authorization code for a TokenSet.
// A code the provider rejects as invalid yields ErrMalformedCode; every other
// failure yields ErrExchangeFailed.
func (g *GoogleClient) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrMalformedCode
	}

	tok, err := g.oauth.Exchange(g.oauthCtx(ctx), code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && (re.ErrorCode == "invalid_grant" || re.ErrorCode == "invalid_request") {
			return nil, fmt.Errorf("%w: %s", ErrMalformedCode, re.ErrorCode)
		}
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	ts := tokenSetFrom(tok, "")
	return &ts, nil
}

// Refresh returns ts unchanged while its access token is valid. Otherwise it
// uses the refresh token to obtain a new access token; the refresh token is
// carried over when the provider does not rotate it.
func (g *GoogleClient) Refresh(ctx context.Context, ts TokenSet) (*TokenSet, error) {
	if !ts.Expired(time.Now()) {
		return &ts, nil
	}
	if ts.RefreshToken == "" {
		return nil, ErrTokenExpired
	}

	src := g.oauth.TokenSource(g.oauthCtx(ctx), &oauth2.Token{
		AccessToken:  ts.AccessToken,
		RefreshToken: ts.RefreshToken,
		Expiry:       ts.ExpiresAt,
	})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	fresh := tokenSetFrom(tok, ts.RefreshToken)
	return &fresh, nil
}

func tokenSetFrom(tok *oauth2.Token, fallbackRefresh string) TokenSet {
	now := time.Now().UTC()
	expiry := tok.Expiry.UTC()
	if tok.Expiry.IsZero() {
		expiry = now.Add(time.Hour)
	}
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = fallbackRefresh
	}
	return TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		IssuedAt:     now,
		ExpiresAt:    expiry,
	}
}

// clientPattern captures the numeric project prefix of a Google client id.
// Web and mobile clients of one project share the prefix but not the suffix.
var clientPattern = regexp.MustCompile(`^(\d+)(.*)\.apps\.googleusercontent\.com$`)

// SameClient reports whether issuedTo belongs to the same project as clientID.
// When either value is not a Google client id the full strings are compared.
func SameClient(issuedTo, clientID string) bool {
	a := clientPattern.FindStringSubmatch(issuedTo)
	b := clientPattern.FindStringSubmatch(clientID)
	if a == nil || b == nil {
		return issuedTo != "" && issuedTo == clientID
	}
	return a[1] == b[1]
}

type tokenInfo struct {
	IssuedTo  string `json:"issued_to"`
	Audience  string `json:"audience"`
	UserID    string `json:"user_id"`
	ExpiresIn int64  `json:"expires_in"`
	Error     string `json:"error"`
}

// VerifyToken asks tokeninfo who accessToken was issued to and returns the
// provider's user id when it belongs to this application.
func (g *GoogleClient) VerifyToken(ctx context.Context, accessToken string) (string, error) {
	u := g.cfg.TokenInfoURL + "?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	body, err := g.do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	var info tokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("%w: parse tokeninfo: %v", ErrVerificationFailed, err)
	}
	if info.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrVerificationFailed, info.Error)
	}
	if !SameClient(info.IssuedTo, g.cfg.ClientID) {
		return "", fmt.Errorf("%w: issuer other than current client", ErrVerificationFailed)
	}
	if info.UserID == "" {
		return "", fmt.Errorf("%w: tokeninfo has no user id", ErrVerificationFailed)
	}
	return info.UserID, nil
}

// RevokeToken revokes token (refresh or access) at the provider. The
// provider's error text is included in the returned error.
func (g *GoogleClient) RevokeToken(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRevokeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if _, err := g.do(req); err != nil {
		return fmt.Errorf("%w: %v", ErrRevokeFailed, err)
	}
	return nil
}

// person is the subset of the People API person resource we read.
type person struct {
	ResourceName string `json:"resourceName"`
	Names        []struct {
		DisplayName string `json:"displayName"`
	} `json:"names"`
	Photos []struct {
		URL string `json:"url"`
	} `json:"photos"`
	EmailAddresses []struct {
		Value string `json:"value"`
	} `json:"emailAddresses"`
	URLs []struct {
		Value string `json:"value"`
	} `json:"urls"`
	Metadata struct {
		Sources []struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		} `json:"sources"`
	} `json:"metadata"`
}

func (p person) id() string {
	return strings.TrimPrefix(p.ResourceName, "people/")
}

// profileID returns the account id of a connection. Contacts carry a
// "people/c..." resource name, so only a PROFILE source matches the id
// stored for registered users; "" when the connection has none.
func (p person) profileID() string {
	for _, src := range p.Metadata.Sources {
		if src.Type == "PROFILE" && src.ID != "" {
			return src.ID
		}
	}
	return ""
}

// FetchProfile returns the profile of the user that owns accessToken.
func (g *GoogleClient) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	body, err := g.apiGet(ctx, g.cfg.ProfileURL, accessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	var p person
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	prof := &Profile{ID: p.id()}
	if len(p.Names) > 0 {
		prof.DisplayName = p.Names[0].DisplayName
	}
	if len(p.Photos) > 0 {
		prof.PhotoURL = p.Photos[0].URL
	}
	if len(p.EmailAddresses) > 0 {
		prof.Email = p.EmailAddresses[0].Value
	}
	if len(p.URLs) > 0 {
		prof.ProfileURL = p.URLs[0].Value
	}
	return prof, nil
}

// ListConnections returns one page of the account ids of people visible to
// the owner of accessToken, plus the continuation token ("" on the last page).
// Connections without a Google profile are skipped.
func (g *GoogleClient) ListConnections(ctx context.Context, accessToken, pageToken string) ([]string, string, error) {
	u := g.cfg.ConnectionsURL
	if pageToken != "" {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + "pageToken=" + url.QueryEscape(pageToken)
	}

	body, err := g.apiGet(ctx, u, accessToken)
	if err != nil {
		return nil, "", fmt.Errorf("list connections: %w", err)
	}
	var page struct {
		Connections   []person `json:"connections"`
		NextPageToken string   `json:"nextPageToken"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", fmt.Errorf("parse connections: %w", err)
	}

	ids := make([]string, 0, len(page.Connections))
	for _, p := range page.Connections {
		if id := p.profileID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, page.NextPageToken, nil
}

// PostJSON sends body to an authenticated provider endpoint.
func (g *GoogleClient) PostJSON(ctx context.Context, endpoint, accessToken string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	_, err = g.do(req)
	return err
}

func (g *GoogleClient) apiGet(ctx context.Context, endpoint, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	return g.do(req)
}

func (g *GoogleClient) do(req *http.Request) ([]byte, error) {
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
