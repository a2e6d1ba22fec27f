package friends_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/jmerrifield20/photohunt/internal/friends"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

// ── Stub repo ─────────────────────────────────────────────────────────────

type edge struct{ owner, friend int64 }

type stubEdgeRepo struct {
	mu       sync.Mutex
	byGoogle map[string]int64
	users    map[int64]users.User
	edges    map[edge]int // edge → batch number
	batch    int
}

func newStubEdgeRepo(registered ...users.User) *stubEdgeRepo {
	r := &stubEdgeRepo{
		byGoogle: make(map[string]int64),
		users:    make(map[int64]users.User),
		edges:    make(map[edge]int),
	}
	for _, u := range registered {
		r.byGoogle[u.GoogleUserID] = u.ID
		r.users[u.ID] = u
	}
	return r
}

func (r *stubEdgeRepo) UserIDByGoogleID(_ context.Context, gid string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byGoogle[gid]
	if !ok {
		return 0, users.ErrNotFound
	}
	return id, nil
}

func (r *stubEdgeRepo) EdgeExists(_ context.Context, owner, friend int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.edges[edge{owner, friend}]
	return ok, nil
}

func (r *stubEdgeRepo) CreatePair(_ context.Context, a, b int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch++
	written := false
	for _, e := range []edge{{a, b}, {b, a}} {
		if _, ok := r.edges[e]; !ok {
			r.edges[e] = r.batch
			written = true
		}
	}
	return written, nil
}

func (r *stubEdgeRepo) ListFriends(_ context.Context, userID int64) ([]users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []users.User
	for e := range r.edges {
		if e.owner == userID {
			out = append(out, r.users[e.friend])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ── Stub feed ─────────────────────────────────────────────────────────────

// pagedFeed serves pages in order; page i's next token is "p<i+1>".
type pagedFeed struct {
	pages  [][]string
	tokens []string
	err    error
}

func (f *pagedFeed) FetchPage(_ context.Context, token string) ([]string, string, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, "", f.err
	}
	idx := 0
	if token != "" {
		idx = int(token[1] - '0')
	}
	next := ""
	if idx+1 < len(f.pages) {
		next = "p" + string(rune('0'+idx+1))
	}
	return f.pages[idx], next, nil
}

func registered() []users.User {
	return []users.User{
		{ID: 1, GoogleUserID: "g1"},
		{ID: 2, GoogleUserID: "g2"},
		{ID: 3, GoogleUserID: "g3"},
		{ID: 4, GoogleUserID: "g4"},
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────

func TestSyncFriends_createsMutualPairs(t *testing.T) {
	repo := newStubEdgeRepo(registered()...)
	b := friends.NewBuilder(repo, nil, zap.NewNop())
	me := &users.User{ID: 1, GoogleUserID: "g1"}

	feed := &pagedFeed{pages: [][]string{{"g2", "stranger"}, {"g1", "g3"}}}
	n, err := b.SyncFriends(context.Background(), me, feed)
	if err != nil {
		t.Fatalf("SyncFriends: %v", err)
	}
	if n != 2 {
		t.Errorf("pairs created = %d, want 2", n)
	}
	if len(repo.edges) != 4 {
		t.Fatalf("expected 4 directed edges, got %d: %v", len(repo.edges), repo.edges)
	}
	for e, batch := range repo.edges {
		if e.owner == e.friend {
			t.Errorf("self edge %v", e)
		}
		back, ok := repo.edges[edge{e.friend, e.owner}]
		if !ok {
			t.Errorf("edge %v has no reverse", e)
		} else if back != batch {
			t.Errorf("edge %v created in batch %d, reverse in %d", e, batch, back)
		}
	}
}

func TestSyncFriends_idempotent(t *testing.T) {
	repo := newStubEdgeRepo(registered()...)
	b := friends.NewBuilder(repo, nil, zap.NewNop())
	me := &users.User{ID: 1, GoogleUserID: "g1"}
	pages := [][]string{{"g2"}, {"g3", "g4"}}

	if _, err := b.SyncFriends(context.Background(), me, &pagedFeed{pages: pages}); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	before := make(map[edge]int, len(repo.edges))
	for e, v := range repo.edges {
		before[e] = v
	}

	n, err := b.SyncFriends(context.Background(), me, &pagedFeed{pages: pages})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if n != 0 {
		t.Errorf("second sync created %d pairs", n)
	}
	if len(repo.edges) != len(before) {
		t.Fatalf("edge set changed: %d → %d", len(before), len(repo.edges))
	}
	for e := range before {
		if _, ok := repo.edges[e]; !ok {
			t.Errorf("edge %v missing after second sync", e)
		}
	}
}

func TestSyncFriends_processesEveryPage(t *testing.T) {
	repo := newStubEdgeRepo(registered()...)
	b := friends.NewBuilder(repo, nil, zap.NewNop())
	feed := &pagedFeed{pages: [][]string{{}, {"g2"}, {"g4"}}}

	n, err := b.SyncFriends(context.Background(), &users.User{ID: 1}, feed)
	if err != nil {
		t.Fatalf("SyncFriends: %v", err)
	}
	if n != 2 {
		t.Errorf("pairs = %d, want 2 (last page must be processed)", n)
	}
	want := []string{"", "p1", "p2"}
	if len(feed.tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", feed.tokens, want)
	}
	for i := range want {
		if feed.tokens[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, feed.tokens[i], want[i])
		}
	}
}

func TestSyncFriends_fetchError(t *testing.T) {
	b := friends.NewBuilder(newStubEdgeRepo(), nil, zap.NewNop())
	feed := &pagedFeed{err: errors.New("quota exceeded")}
	if _, err := b.SyncFriends(context.Background(), &users.User{ID: 1}, feed); err == nil {
		t.Error("expected fetch error to propagate")
	}
}

type stubLister struct{ token string }

func (l *stubLister) ListConnections(_ context.Context, accessToken, _ string) ([]string, string, error) {
	l.token = accessToken
	return []string{"g3"}, "", nil
}

func TestSyncUser_usesAccessToken(t *testing.T) {
	repo := newStubEdgeRepo(registered()...)
	lister := &stubLister{}
	b := friends.NewBuilder(repo, lister, zap.NewNop())

	n, err := b.SyncUser(context.Background(), &users.User{ID: 2, GoogleAccessToken: "tok-2"})
	if err != nil {
		t.Fatalf("SyncUser: %v", err)
	}
	if n != 1 || lister.token != "tok-2" {
		t.Errorf("n=%d token=%q", n, lister.token)
	}

	got, _ := b.ListFriends(context.Background(), 3)
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("friends of 3 = %+v", got)
	}
}
