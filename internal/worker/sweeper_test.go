package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/convo"
	"github.com/nhle/taskbot/internal/worker"
	"github.com/nhle/taskbot/tests/testutil"
)

type countingSweeper struct {
	calls atomic.Int64
	err   error
}

func (c *countingSweeper) Sweep(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestSweepOncePurgesExpiredState(t *testing.T) {
	clock := testutil.NewClock()
	states := convo.NewMemoryStore(clock.Now)
	ctx := context.Background()

	if err := convo.Begin(ctx, states, 1, convo.StateAwaitingTaskTitle, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := convo.Begin(ctx, states, 2, convo.StateAwaitingSearchQuery, time.Hour); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Minute)

	w := worker.NewStateSweeper(states, zap.NewNop(), time.Hour)
	if n := w.SweepOnce(); n != 1 {
		t.Errorf("swept %d entries, want 1", n)
	}

	got, err := states.Get(ctx, 2)
	if err != nil || got != convo.StateAwaitingSearchQuery {
		t.Errorf("live state = %q, %v", got, err)
	}
}

func TestSweepOnceSwallowsErrors(t *testing.T) {
	s := &countingSweeper{err: errors.New("db locked")}
	w := worker.NewStateSweeper(s, zap.NewNop(), time.Hour)

	if n := w.SweepOnce(); n != 0 {
		t.Errorf("swept %d, want 0 on error", n)
	}
}

func TestStateSweeperRunsOnTicker(t *testing.T) {
	s := &countingSweeper{}
	w := worker.NewStateSweeper(s, zap.NewNop(), 5*time.Millisecond)
	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for s.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if s.calls.Load() < 2 {
		t.Errorf("sweeps = %d, want at least 2", s.calls.Load())
	}
}
