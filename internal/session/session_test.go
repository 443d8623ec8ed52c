package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/internal/intake/gate"
)

func sample() Session {
	s := New(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	s.State = domain.ConversationState{}.
		WithService(domain.ServiceHardscaping).
		WithDimensions(10, 5).
		WithMessage(domain.RoleUser, "patio 10x5").
		WithLastAsked(domain.FieldMaterialTier)
	s.Gate = gate.Gate{Phase: gate.PhaseDimensions}
	return s
}

func checkRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	want := sample()

	if err := store.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(ctx, want.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State.Area == nil || *got.State.Area != 50 {
		t.Errorf("area = %v, want 50", got.State.Area)
	}
	if got.State.LastAsked != domain.FieldMaterialTier {
		t.Errorf("lastAsked = %v", got.State.LastAsked)
	}
	if got.Gate.Phase != gate.PhaseDimensions {
		t.Errorf("gate phase = %v", got.Gate.Phase)
	}
	if len(got.State.History) != 1 {
		t.Errorf("history = %v", got.State.History)
	}

	if err := store.Delete(ctx, want.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, want.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	checkRoundTrip(t, NewMemoryStore(time.Hour))
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checkRoundTrip(t, NewRedisStore(client, time.Hour))
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	s := sample()
	if err := store.Put(context.Background(), s); err != nil {
		t.Fatalf("Put: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.Get(context.Background(), s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after expiry", err)
	}
}

func TestRedisStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, time.Minute)

	s := sample()
	if err := store.Put(context.Background(), s); err != nil {
		t.Fatalf("Put: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(context.Background(), s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after expiry", err)
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	s := sample()
	if err := store.Put(context.Background(), s); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s.State.History[0].Text = "changed"

	got, err := store.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State.History[0].Text != "patio 10x5" {
		t.Fatalf("stored history was mutated through the caller's copy")
	}
}
