// Package worker holds background maintenance loops.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes expired entries and reports how many it dropped.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// StateSweeper periodically purges expired conversation state.
type StateSweeper struct {
	store    Sweeper
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewStateSweeper creates a sweeper that runs every interval.
func NewStateSweeper(s Sweeper, logger *zap.Logger, interval time.Duration) *StateSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &StateSweeper{
		store:    s,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *StateSweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("state sweeper started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *StateSweeper) Stop() {
	w.once.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("state sweeper stopped")
}

func (w *StateSweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.SweepOnce()
		}
	}
}

// SweepOnce runs a single sweep and returns the number of purged entries.
func (w *StateSweeper) SweepOnce() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.store.Sweep(ctx)
	if err != nil {
		w.log.Error("failed to sweep conversation state", zap.Error(err))
		return 0
	}

	if count > 0 {
		w.log.Debug("swept expired conversation state", zap.Int64("count", count))
	}
	return count
}
