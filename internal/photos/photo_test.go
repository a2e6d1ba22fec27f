package photos_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmerrifield20/photohunt/internal/photos"
	"github.com/jmerrifield20/photohunt/internal/themes"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

type stubPhotoRepo struct {
	nextID int64
	photos map[int64]*photos.Photo
}

func newStubPhotoRepo() *stubPhotoRepo {
	return &stubPhotoRepo{photos: make(map[int64]*photos.Photo)}
}

func (r *stubPhotoRepo) List(_ context.Context, f photos.Filter) ([]photos.Photo, error) {
	var out []photos.Photo
	for _, p := range r.photos {
		if f.ThemeID != 0 && p.ThemeID != f.ThemeID {
			continue
		}
		if f.OwnerID != 0 && p.OwnerUserID != f.OwnerID {
			continue
		}
		cp := *p
		cp.Voted = p.OwnerUserID == f.ViewerID
		out = append(out, cp)
	}
	return out, nil
}

func (r *stubPhotoRepo) Get(_ context.Context, id, viewerID int64) (*photos.Photo, error) {
	p, ok := r.photos[id]
	if !ok {
		return nil, photos.ErrNotFound
	}
	cp := *p
	cp.Voted = p.OwnerUserID == viewerID
	return &cp, nil
}

func (r *stubPhotoRepo) Create(_ context.Context, p *photos.Photo) error {
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	p.Created = p.CreatedAt.Unix()
	cp := *p
	r.photos[p.ID] = &cp
	return nil
}

func (r *stubPhotoRepo) Delete(_ context.Context, id, ownerID int64) error {
	p, ok := r.photos[id]
	if !ok || p.OwnerUserID != ownerID {
		return photos.ErrNotFound
	}
	delete(r.photos, id)
	return nil
}

type previewRecorder struct{ themeID, photoID int64 }

func (p *previewRecorder) SetPreview(_ context.Context, themeID, photoID int64) error {
	p.themeID, p.photoID = themeID, photoID
	return nil
}

type failingNotifier struct{ calls int }

func (n *failingNotifier) PhotoAdded(context.Context, *users.User, *photos.Photo) error {
	n.calls++
	return errors.New("moments endpoint unavailable")
}

var (
	alice = &users.User{
		ID:                          1,
		GoogleDisplayName:           "Alice",
		GooglePublicProfileURL:      "https://plus.example/alice",
		GooglePublicProfilePhotoURL: "https://img.example/alice.jpg",
	}
	bob   = &users.User{ID: 2, GoogleDisplayName: "Bob"}
	theme = &themes.Theme{ID: 5, DisplayName: "Beautiful"}
)

func TestCreate_snapshotsOwnerAndTheme(t *testing.T) {
	repo := newStubPhotoRepo()
	preview := &previewRecorder{}
	notifier := &failingNotifier{}
	svc := photos.NewService(repo, preview, notifier, "https://photohunt.example/", zap.NewNop())

	p, err := svc.Create(context.Background(), alice, theme, "https://cdn.example/a.jpg", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.OwnerDisplayName != "Alice" || p.OwnerProfilePhoto != alice.GooglePublicProfilePhotoURL {
		t.Errorf("owner fields not copied: %+v", p)
	}
	if p.ThemeID != 5 || p.ThemeDisplayName != "Beautiful" {
		t.Errorf("theme fields not copied: %+v", p)
	}
	if p.ThumbnailURL != p.FullsizeURL {
		t.Errorf("thumbnail should default to fullsize URL, got %q", p.ThumbnailURL)
	}
	want := "https://photohunt.example/photo.html?photoId=1"
	if p.PhotoContentURL != want || p.VoteCtaURL != want+"&action=vote" {
		t.Errorf("links = %q / %q", p.PhotoContentURL, p.VoteCtaURL)
	}
	if preview.themeID != 5 || preview.photoID != p.ID {
		t.Errorf("theme preview not set: %+v", preview)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d", notifier.calls)
	}

	got, _ := svc.Get(context.Background(), p.ID, bob.ID)
	if got.OwnerDisplayName != "Alice" {
		t.Errorf("snapshot changed: %q", got.OwnerDisplayName)
	}
}

func TestCreate_requiresOwner(t *testing.T) {
	svc := photos.NewService(newStubPhotoRepo(), nil, nil, "", zap.NewNop())
	if _, err := svc.Create(context.Background(), nil, theme, "u", ""); !errors.Is(err, photos.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDelete_ownerOnly(t *testing.T) {
	repo := newStubPhotoRepo()
	svc := photos.NewService(repo, nil, nil, "", zap.NewNop())
	ctx := context.Background()

	p, _ := svc.Create(ctx, alice, theme, "https://cdn.example/a.jpg", "")

	if _, err := svc.Delete(ctx, bob, p.ID); !errors.Is(err, photos.ErrUnauthorized) {
		t.Errorf("non-owner delete: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Delete(ctx, nil, p.ID); !errors.Is(err, photos.ErrUnauthorized) {
		t.Errorf("anonymous delete: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Delete(ctx, alice, p.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := svc.Get(ctx, p.ID, alice.ID); !errors.Is(err, photos.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestList_setsLinksAndVoted(t *testing.T) {
	repo := newStubPhotoRepo()
	svc := photos.NewService(repo, nil, nil, "http://localhost:8080", zap.NewNop())
	ctx := context.Background()
	svc.Create(ctx, alice, theme, "https://cdn.example/a.jpg", "") //nolint:errcheck
	svc.Create(ctx, bob, theme, "https://cdn.example/b.jpg", "")   //nolint:errcheck

	list, err := svc.List(ctx, photos.Filter{ThemeID: theme.ID, ViewerID: alice.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(list))
	}
	for _, p := range list {
		if p.PhotoContentURL == "" {
			t.Errorf("photo %d has no content URL", p.ID)
		}
		if p.Voted != (p.OwnerUserID == alice.ID) {
			t.Errorf("photo %d voted = %v", p.ID, p.Voted)
		}
	}
}
