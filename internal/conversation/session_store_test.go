package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, 30*time.Minute), mr
}

func TestSessionRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if st, err := store.Get(ctx, "+1555"); err != nil || st != nil {
		t.Fatalf("expected absent session, got %+v err=%v", st, err)
	}

	in := &State{Step: StepLastName, Data: Draft{FirstName: "Rahul"}}
	if err := store.Put(ctx, "+1555", in); err != nil {
		t.Fatalf("put: %v", err)
	}

	out, err := store.Get(ctx, "+1555")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out == nil || out.Step != StepLastName || out.Data.FirstName != "Rahul" {
		t.Fatalf("unexpected state: %+v", out)
	}
	if out.LastActive.IsZero() {
		t.Error("Put should stamp LastActive")
	}
}

func TestSessionIsolationPerSender(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_ = store.Put(ctx, "+1555", &State{Step: StepGender, Data: Draft{FirstName: "A"}})
	_ = store.Put(ctx, "+1666", &State{Step: StepEmail, Data: Draft{FirstName: "B"}})

	a, _ := store.Get(ctx, "+1555")
	b, _ := store.Get(ctx, "+1666")
	if a.Step != StepGender || b.Step != StepEmail {
		t.Fatalf("sessions bled across senders: %+v %+v", a, b)
	}
}

func TestSessionIdleExpiry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	if err := store.Put(ctx, "+1555", &State{Step: StepGender}); err != nil {
		t.Fatalf("put: %v", err)
	}

	// 29 minutes idle: still there.
	store.now = func() time.Time { return base.Add(29 * time.Minute) }
	if st, err := store.Get(ctx, "+1555"); err != nil || st == nil {
		t.Fatalf("session expired too early: %+v err=%v", st, err)
	}

	// Past 30 minutes idle: treated as absent and removed.
	store.now = func() time.Time { return base.Add(31 * time.Minute) }
	if st, err := store.Get(ctx, "+1555"); err != nil || st != nil {
		t.Fatalf("expected expired session to be absent, got %+v err=%v", st, err)
	}

	// The record itself is gone, not just masked.
	store.now = func() time.Time { return base }
	if st, _ := store.Get(ctx, "+1555"); st != nil {
		t.Fatalf("expired session should have been deleted, got %+v", st)
	}
}

func TestSessionDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_ = store.Put(ctx, "+1555", &State{Step: StepAddress})
	if err := store.Delete(ctx, "+1555"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if st, _ := store.Get(ctx, "+1555"); st != nil {
		t.Fatalf("expected deleted session, got %+v", st)
	}

	// Deleting an absent session is not an error.
	if err := store.Delete(ctx, "+1555"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
}

func TestSessionCorruptedRecordTreatedAsAbsent(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	mr.Set(sessionKey("+1555"), "{not json")
	if st, err := store.Get(ctx, "+1555"); err != nil || st != nil {
		t.Fatalf("corrupted session should read as absent, got %+v err=%v", st, err)
	}
}
