// Package session binds an authenticated PhotoHunt user to a request.
//
// The Binder resolves the caller once per request into an immutable Identity
// stored on the gin context. Handlers read it with Current or RequireUser and
// change it only through Save, Mirror and Clear.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

const (
	// ServerCookie carries the session id for browsers.
	ServerCookie = "photohunt_session"
	// MobileCookie carries the same id for clients that cannot keep server
	// session cookies. It is readable by client code.
	MobileCookie = "photohunt_mobile_session"

	identityKey = "photohunt_identity"
	savedKey    = "photohunt_session_saved"
)

// ErrUnauthorized is returned by RequireUser for an anonymous request.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the caller resolved for one request. The zero value is Anonymous.
type Identity struct {
	SessionID string
	User      *users.User
}

// Authenticated reports whether the request carries a valid session.
func (i Identity) Authenticated() bool { return i.User != nil }

// Config controls cookie attributes and store timing.
type Config struct {
	TTL           time.Duration
	Secure        bool
	Path          string
	LookupTimeout time.Duration
}

func (c *Config) withDefaults() {
	if c.TTL == 0 {
		c.TTL = 24 * time.Hour
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.LookupTimeout == 0 {
		c.LookupTimeout = 500 * time.Millisecond
	}
}

// Binder moves users between the Anonymous and Authenticated states.
type Binder struct {
	store  Store
	cfg    Config
	logger *zap.Logger
}

// NewBinder creates a Binder over store.
func NewBinder(store Store, cfg Config, logger *zap.Logger) *Binder {
	cfg.withDefaults()
	return &Binder{store: store, cfg: cfg, logger: logger}
}

// Middleware resolves the request's Identity and stores it on the context.
// It never aborts: every failure resolves to Anonymous.
func (b *Binder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(identityKey, b.resolve(c))
		c.Next()
	}
}

func (b *Binder) resolve(c *gin.Context) Identity {
	id := requestSessionID(c.Request)
	if id == "" {
		return Identity{}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), b.cfg.LookupTimeout)
	defer cancel()

	raw, err := b.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			b.logger.Debug("session lookup failed", zap.Error(err))
		}
		return Identity{}
	}

	var u users.User
	if err := json.Unmarshal(raw, &u); err != nil || u.ID == 0 {
		b.logger.Debug("discarding unreadable session value")
		return Identity{}
	}
	return Identity{SessionID: id, User: &u}
}

func requestSessionID(r *http.Request) string {
	for _, name := range []string{ServerCookie, MobileCookie} {
		if ck, err := r.Cookie(name); err == nil && ck.Value != "" {
			return ck.Value
		}
	}
	return ""
}

// Current returns the Identity resolved for c.
func Current(c *gin.Context) Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}
	}
	id, _ := v.(Identity)
	return id
}

// RequireUser returns the authenticated user or ErrUnauthorized.
func RequireUser(c *gin.Context) (*users.User, error) {
	id := Current(c)
	if !id.Authenticated() {
		return nil, ErrUnauthorized
	}
	return id.User, nil
}

// Save authenticates the request as u under a fresh session id and sets the
// server cookie.
func (b *Binder) Save(c *gin.Context, u *users.User) error {
	id, err := newSessionID()
	if err != nil {
		return err
	}
	if err := b.put(c.Request.Context(), id, u); err != nil {
		return err
	}
	b.setCookie(c, ServerCookie, id, true, int(b.cfg.TTL.Seconds()))
	c.Set(savedKey, true)
	c.Set(identityKey, Identity{SessionID: id, User: u})
	return nil
}

// Update rewrites the stored value of the current session, e.g. after the
// user's provider tokens were refreshed. Anonymous requests are ignored.
func (b *Binder) Update(c *gin.Context, u *users.User) error {
	cur := Current(c)
	if cur.SessionID == "" {
		return nil
	}
	if err := b.put(c.Request.Context(), cur.SessionID, u); err != nil {
		return err
	}
	c.Set(identityKey, Identity{SessionID: cur.SessionID, User: u})
	return nil
}

// Mirror copies the session id into the mobile cookie and drops the server
// cookie so the response leaves exactly one session cookie on the client.
func (b *Binder) Mirror(c *gin.Context) {
	cur := Current(c)
	if cur.SessionID == "" {
		return
	}
	dropSetCookie(c.Writer.Header(), MobileCookie)
	b.setCookie(c, MobileCookie, cur.SessionID, false, int(b.cfg.TTL.Seconds()))

	if c.GetBool(savedKey) {
		dropSetCookie(c.Writer.Header(), ServerCookie)
	}
	if _, err := c.Request.Cookie(ServerCookie); err == nil {
		b.setCookie(c, ServerCookie, "", true, -1)
	}
}

// Clear returns the request to Anonymous: the stored session is deleted and
// both cookies are expired.
func (b *Binder) Clear(c *gin.Context) {
	if id := Current(c).SessionID; id != "" {
		if err := b.store.Delete(c.Request.Context(), id); err != nil {
			b.logger.Warn("delete session", zap.Error(err))
		}
	}
	dropSetCookie(c.Writer.Header(), ServerCookie)
	dropSetCookie(c.Writer.Header(), MobileCookie)
	b.setCookie(c, ServerCookie, "", true, -1)
	b.setCookie(c, MobileCookie, "", false, -1)
	c.Set(savedKey, false)
	c.Set(identityKey, Identity{})
}

func (b *Binder) put(ctx context.Context, id string, u *users.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := b.store.Set(ctx, id, raw, b.cfg.TTL); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (b *Binder) setCookie(c *gin.Context, name, value string, httpOnly bool, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     b.cfg.Path,
		MaxAge:   maxAge,
		Secure:   b.cfg.Secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	})
}

// dropSetCookie removes any Set-Cookie header already queued for name.
func dropSetCookie(h http.Header, name string) {
	prefix := name + "="
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
