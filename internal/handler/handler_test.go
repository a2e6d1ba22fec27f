package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/photohunt/internal/session"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type registrar interface {
	Register(rg *gin.RouterGroup)
}

// newTestRouter mounts handlers under /api behind the session middleware.
func newTestRouter(b *session.Binder, hs ...registrar) *gin.Engine {
	r := gin.New()
	r.Use(b.Middleware())
	api := r.Group("/api")
	for _, h := range hs {
		h.Register(api)
	}
	return r
}

func newTestBinder() (*session.Binder, *session.MemoryStore) {
	store := session.NewMemoryStore()
	return session.NewBinder(store, session.Config{}, zap.NewNop()), store
}

// signIn stores u under a session and returns the cookie that selects it.
func signIn(t *testing.T, store *session.MemoryStore, u *users.User) *http.Cookie {
	t.Helper()
	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	id := "test-session-" + u.GoogleUserID
	if err := store.Set(context.Background(), id, raw, time.Hour); err != nil {
		t.Fatal(err)
	}
	return &http.Cookie{Name: session.ServerCookie, Value: id}
}

func doRequest(r http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func alice() *users.User {
	return &users.User{
		ID:                 1,
		GoogleUserID:       "g-alice",
		GoogleDisplayName:  "Alice",
		GoogleAccessToken:  "alice-access",
		GoogleRefreshToken: "alice-refresh",
	}
}

func bob() *users.User {
	return &users.User{ID: 2, GoogleUserID: "g-bob", GoogleDisplayName: "Bob", GoogleAccessToken: "bob-access"}
}

// doBearer sends a JSON request carrying an Authorization bearer token.
func doBearer(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
