package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/photohunt/internal/handler"
	"github.com/jmerrifield20/photohunt/internal/identity"
	"github.com/jmerrifield20/photohunt/internal/themes"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type stubThemeAdder struct {
	added []themes.Theme
}

func (s *stubThemeAdder) Add(_ context.Context, name string, start time.Time) (*themes.Theme, error) {
	for _, t := range s.added {
		if t.Start.Equal(start) {
			return nil, themes.ErrDuplicate
		}
	}
	t := themes.Theme{ID: int64(len(s.added) + 1), DisplayName: name, Start: start}
	s.added = append(s.added, t)
	return &t, nil
}

func newAdminRouter(t *testing.T) (*gin.Engine, *stubThemeAdder) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	tokens := identity.NewAdminTokenIssuer(string(hash), []byte("test-key"), "http://test", time.Hour)
	adder := &stubThemeAdder{}
	r := gin.New()
	handler.NewAdminHandler(tokens, adder, zap.NewNop()).Register(r.Group("/api"))
	return r, adder
}

func adminToken(t *testing.T, r http.Handler) string {
	t.Helper()
	w := doRequest(r, http.MethodPost, "/api/admin/token", `{"secret":"s3cret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("token: expected 200, got %d", w.Code)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("token response: %v %q", err, w.Body.String())
	}
	return resp.Token
}

func TestAdmin_tokenWrongSecret(t *testing.T) {
	r, _ := newAdminRouter(t)
	if w := doRequest(r, http.MethodPost, "/api/admin/token", `{"secret":"nope"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAdmin_addTheme(t *testing.T) {
	r, adder := newAdminRouter(t)
	body := `{"displayName":"Water","start":"2026-10-20"}`

	if w := doRequest(r, http.MethodPost, "/api/admin/themes", body); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", w.Code)
	}

	tok := adminToken(t, r)
	send := func(body string) int {
		return doBearer(r, http.MethodPost, "/api/admin/themes", body, tok).Code
	}

	if code := send(body); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if len(adder.added) != 1 || !adder.added[0].Start.Equal(time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected themes: %+v", adder.added)
	}
	if code := send(body); code != http.StatusConflict {
		t.Errorf("same day: expected 409, got %d", code)
	}
	if code := send(`{"displayName":"Fire","start":"20 Oct"}`); code != http.StatusBadRequest {
		t.Errorf("bad date: expected 400, got %d", code)
	}
}
