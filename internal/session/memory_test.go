package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_expiry(t *testing.T) {
	m := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Set(ctx, "a", []byte("1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Set(ctx, "b", []byte("2"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if v, err := m.Get(ctx, "a"); err != nil || string(v) != "1" {
		t.Fatalf("Get a: %q %v", v, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := m.Get(ctx, "a"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession for expired entry, got %v", err)
	}
	if n := m.Evict(); n != 1 {
		t.Errorf("evicted %d, want 1", n)
	}
	if m.Len() != 1 {
		t.Errorf("len = %d, want 1", m.Len())
	}
}

func TestMemoryStore_getReturnsCopy(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	m.Set(ctx, "k", []byte("abc"), time.Minute) //nolint:errcheck

	v, _ := m.Get(ctx, "k")
	v[0] = 'X'
	again, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %q", again)
	}
}

func TestMemoryStore_deleteUnknown(t *testing.T) {
	if err := NewMemoryStore().Delete(context.Background(), "nope"); err != nil {
		t.Errorf("Delete unknown: %v", err)
	}
}
