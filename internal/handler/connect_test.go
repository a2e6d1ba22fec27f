package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/jmerrifield20/photohunt/internal/handler"
	"github.com/jmerrifield20/photohunt/internal/identity"
	"github.com/jmerrifield20/photohunt/internal/session"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

type stubConnector struct {
	user    *users.User
	err     error
	calls   int
	req     users.TokenRequest
	removed map[int64]bool
}

func (s *stubConnector) Connect(_ context.Context, req users.TokenRequest) (*users.User, error) {
	s.calls++
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func (s *stubConnector) Reload(_ context.Context, id int64) (*users.User, error) {
	if s.removed[id] || s.user == nil || s.user.ID != id {
		return nil, users.ErrNotFound
	}
	return s.user, nil
}

func TestConnect_createsSessionAndMirrorsCookie(t *testing.T) {
	b, store := newTestBinder()
	conn := &stubConnector{user: alice()}
	r := newTestRouter(b, handler.NewConnectHandler(conn, b, zap.NewNop()))

	w := doRequest(r, http.MethodPost, "/api/connect", `{"code":"4/abc"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if conn.req.Code != "4/abc" {
		t.Errorf("code not forwarded: %+v", conn.req)
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["googleUserId"] != "g-alice" {
		t.Errorf("unexpected body: %v", got)
	}
	if _, ok := got["googleAccessToken"]; ok {
		t.Error("response must not expose tokens")
	}

	mobile := responseCookie(w, session.MobileCookie)
	if mobile == nil || mobile.Value == "" {
		t.Fatal("expected mobile session cookie")
	}
	if responseCookie(w, session.ServerCookie) != nil {
		t.Error("server cookie should be replaced by the mobile cookie")
	}
	if store.Len() != 1 {
		t.Errorf("store has %d sessions, want 1", store.Len())
	}

	// The mobile cookie alone authenticates the next request.
	w = doRequest(r, http.MethodPost, "/api/connect", `{}`, mobile)
	if w.Code != http.StatusOK || conn.calls != 1 {
		t.Errorf("signed-in connect: status %d, calls %d", w.Code, conn.calls)
	}
}

func TestConnect_errorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: token issued to another app", identity.ErrVerificationFailed), http.StatusUnauthorized},
		{identity.ErrMalformedCode, http.StatusBadRequest},
		{fmt.Errorf("%w: invalid_grant", identity.ErrExchangeFailed), http.StatusInternalServerError},
		{fmt.Errorf("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		b, store := newTestBinder()
		r := newTestRouter(b, handler.NewConnectHandler(&stubConnector{err: tc.err}, b, zap.NewNop()))

		w := doRequest(r, http.MethodPost, "/api/connect", `{"code":"x"}`)
		if w.Code != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, w.Code)
		}
		if store.Len() != 0 {
			t.Errorf("%v: no session should be created", tc.err)
		}
	}
}

func TestConnect_malformedBody(t *testing.T) {
	b, _ := newTestBinder()
	conn := &stubConnector{user: alice()}
	r := newTestRouter(b, handler.NewConnectHandler(conn, b, zap.NewNop()))

	w := doRequest(r, http.MethodPost, "/api/connect", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if conn.calls != 0 {
		t.Error("connector must not run for a malformed body")
	}
}

func TestConnect_sessionOfRemovedUserSignsInAgain(t *testing.T) {
	b, store := newTestBinder()
	conn := &stubConnector{user: bob(), removed: map[int64]bool{1: true}}
	r := newTestRouter(b, handler.NewConnectHandler(conn, b, zap.NewNop()))
	stale := signIn(t, store, alice())

	w := doRequest(r, http.MethodPost, "/api/connect", `{"code":"4/bob"}`, stale)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if conn.calls != 1 {
		t.Errorf("connector calls = %d, want a fresh sign-in", conn.calls)
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["googleUserId"] != "g-bob" {
		t.Errorf("removed user returned: %v", got)
	}
	if _, err := store.Get(context.Background(), stale.Value); err == nil {
		t.Error("stale session should be deleted")
	}
}
