package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jmerrifield20/photohunt/internal/handler"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

type stubFriendLister map[int64][]users.User

func (s stubFriendLister) ListFriends(_ context.Context, userID int64) ([]users.User, error) {
	return s[userID], nil
}

func TestFriends(t *testing.T) {
	b, store := newTestBinder()
	friends := stubFriendLister{1: {*bob()}}
	r := newTestRouter(b, handler.NewFriendsHandler(friends, b, zap.NewNop()))

	if w := doRequest(r, http.MethodGet, "/api/friends", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", w.Code)
	}

	ck := signIn(t, store, alice())
	w := doRequest(r, http.MethodGet, "/api/friends", "", ck)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []users.PublicUser
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].GoogleUserID != "g-bob" {
		t.Errorf("unexpected friends: %+v", list)
	}

	w = doRequest(r, http.MethodGet, "/api/friends?items=true", "", ck)
	var env struct {
		Kind  string             `json:"kind"`
		Items []users.PublicUser `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Kind != "photohunt#friends" || len(env.Items) != 1 {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestFriends_emptyListIsArray(t *testing.T) {
	b, store := newTestBinder()
	r := newTestRouter(b, handler.NewFriendsHandler(stubFriendLister{}, b, zap.NewNop()))

	w := doRequest(r, http.MethodGet, "/api/friends", "", signIn(t, store, bob()))
	if w.Body.String() != "[]" {
		t.Errorf("expected [], got %q", w.Body.String())
	}
}
