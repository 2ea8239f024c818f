package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/ichigozero/gtdweb/authsvc"
)

func TestStore_CreateGetDestroy(t *testing.T) {
	s := NewStore(time.Hour)
	ctx := context.Background()

	session, err := s.Create(ctx, 42, "alice")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if session.Token == "" {
		t.Fatal("Create() returned an empty token")
	}

	got, err := s.Get(ctx, session.Token)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != 42 || got.Username != "alice" {
		t.Errorf("Get() = %+v, want user 42 alice", got)
	}

	if err := s.Destroy(ctx, session.Token); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if _, err := s.Get(ctx, session.Token); err != authsvc.ErrSessionNotFound {
		t.Errorf("Get() after Destroy error = %v, want %v", err, authsvc.ErrSessionNotFound)
	}
}

func TestStore_TokensAreDistinct(t *testing.T) {
	s := NewStore(time.Hour)
	ctx := context.Background()

	a, _ := s.Create(ctx, 1, "a")
	b, _ := s.Create(ctx, 1, "a")
	if a.Token == b.Token {
		t.Error("two logins produced the same token")
	}
}

func TestStore_RejectsZeroUser(t *testing.T) {
	if _, err := NewStore(time.Hour).Create(context.Background(), 0, "x"); err != authsvc.ErrInvalidArgument {
		t.Errorf("Create() error = %v, want %v", err, authsvc.ErrInvalidArgument)
	}
}

func TestStore_Expiry(t *testing.T) {
	s := NewStore(time.Minute).(*store)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	session, err := s.Create(ctx, 1, "a")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	now = now.Add(59 * time.Second)
	if _, err := s.Get(ctx, session.Token); err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}

	now = now.Add(time.Second)
	if _, err := s.Get(ctx, session.Token); err != authsvc.ErrSessionNotFound {
		t.Errorf("Get() at expiry error = %v, want %v", err, authsvc.ErrSessionNotFound)
	}

	// Creating another session purges the expired one.
	if _, err := s.Create(ctx, 2, "b"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, ok := s.entries[session.Token]; ok {
		t.Error("expired session was not purged")
	}
}

func TestStore_FlashesAreOneShot(t *testing.T) {
	s := NewStore(time.Hour)
	ctx := context.Background()

	session, _ := s.Create(ctx, 1, "a")
	if err := s.AddFlash(ctx, session.Token, authsvc.Flash{Kind: authsvc.FlashSuccess, Message: "Task deleted successfully!"}); err != nil {
		t.Fatalf("AddFlash() error = %v", err)
	}

	flashes, err := s.PopFlashes(ctx, session.Token)
	if err != nil {
		t.Fatalf("PopFlashes() error = %v", err)
	}
	if len(flashes) != 1 || flashes[0].Message != "Task deleted successfully!" {
		t.Fatalf("PopFlashes() = %+v, want one delete message", flashes)
	}

	flashes, err = s.PopFlashes(ctx, session.Token)
	if err != nil {
		t.Fatalf("second PopFlashes() error = %v", err)
	}
	if len(flashes) != 0 {
		t.Errorf("second PopFlashes() = %+v, want none", flashes)
	}

	if err := s.AddFlash(ctx, "unknown", authsvc.Flash{}); err != authsvc.ErrSessionNotFound {
		t.Errorf("AddFlash() unknown token error = %v, want %v", err, authsvc.ErrSessionNotFound)
	}
}
