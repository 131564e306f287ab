package convo_test

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/taskbot/internal/convo"
	"github.com/nhle/taskbot/tests/testutil"
)

func TestMemoryStoreExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewClock()
	s := convo.NewMemoryStore(clock.Now)

	if err := s.Set(ctx, 1, convo.StateAwaitingTaskTitle, convo.DefaultTTL); err != nil {
		t.Fatalf("Set: %v", err)
	}

	clock.Advance(convo.DefaultTTL - time.Second)
	if got, _ := s.Get(ctx, 1); got != convo.StateAwaitingTaskTitle {
		t.Fatalf("state before expiry = %q", got)
	}

	clock.Advance(time.Second)
	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get after expiry returned error: %v", err)
	}
	if got != convo.StateNone {
		t.Fatalf("state after expiry = %q, want none", got)
	}
}

func TestMemoryStoreLatestWriteWins(t *testing.T) {
	ctx := context.Background()
	s := convo.NewMemoryStore(nil)

	_ = s.SetScratch(ctx, 1, convo.ScratchTitle, "first", time.Minute)
	_ = s.SetScratch(ctx, 1, convo.ScratchTitle, "second", time.Minute)

	v, ok, err := s.GetScratch(ctx, 1, convo.ScratchTitle)
	if err != nil || !ok || v != "second" {
		t.Fatalf("GetScratch = %q, %v, %v", v, ok, err)
	}

	if _, ok, _ := s.GetScratch(ctx, 2, convo.ScratchTitle); ok {
		t.Fatal("scratch leaked across users")
	}
}

func TestBeginReplacesStaleFlow(t *testing.T) {
	ctx := context.Background()
	s := convo.NewMemoryStore(nil)

	_ = s.Set(ctx, 1, convo.StateAwaitingFileUpload, time.Minute)
	_ = s.SetScratch(ctx, 1, convo.ScratchAttachTaskID, "42", time.Minute)

	if err := convo.Begin(ctx, s, 1, convo.StateAwaitingTaskTitle, time.Minute); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if got, _ := s.Get(ctx, 1); got != convo.StateAwaitingTaskTitle {
		t.Fatalf("state = %q", got)
	}
	if _, ok, _ := s.GetScratch(ctx, 1, convo.ScratchAttachTaskID); ok {
		t.Fatal("stale scratch survived Begin")
	}
}

func TestResetClearsEverything(t *testing.T) {
	ctx := context.Background()
	s := convo.NewMemoryStore(nil)

	_ = s.Set(ctx, 1, convo.StateAwaitingTaskDesc, time.Minute)
	_ = s.SetScratch(ctx, 1, convo.ScratchTitle, "Report", time.Minute)

	if err := convo.Reset(ctx, s, 1); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got, _ := s.Get(ctx, 1); got != convo.StateNone {
		t.Fatalf("state = %q", got)
	}
	if _, ok, _ := s.GetScratch(ctx, 1, convo.ScratchTitle); ok {
		t.Fatal("scratch survived Reset")
	}
}

func TestSetNoneClearsState(t *testing.T) {
	ctx := context.Background()
	s := convo.NewMemoryStore(nil)

	_ = s.Set(ctx, 1, convo.StateAwaitingSearchQuery, time.Minute)
	_ = s.Set(ctx, 1, convo.StateNone, time.Minute)

	if got, _ := s.Get(ctx, 1); got != convo.StateNone {
		t.Fatalf("state = %q", got)
	}
}

func TestSweepDropsExpired(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewClock()
	s := convo.NewMemoryStore(clock.Now)

	_ = s.SetScratch(ctx, 1, convo.ScratchTitle, "a", time.Minute)
	_ = s.SetScratch(ctx, 2, convo.ScratchTitle, "b", time.Hour)

	clock.Advance(2 * time.Minute)
	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d entries, want 1", n)
	}
	if _, ok, _ := s.GetScratch(ctx, 2, convo.ScratchTitle); !ok {
		t.Fatal("live entry was swept")
	}
}

func TestStateValid(t *testing.T) {
	if !convo.StateAwaitingEditDesc.Valid() || !convo.StateNone.Valid() {
		t.Fatal("known states must be valid")
	}
	if convo.State("awaiting_lunch").Valid() {
		t.Fatal("unknown state reported valid")
	}
}
