// Package poller drives the bot from getUpdates long polling, for
// deployments that cannot receive webhooks.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/telegram"
)

// State is the current state of the polling loop.
type State int

const (
	Idle State = iota
	Running
	Failing
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Failing:
		return "failing"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the loop.
type Status struct {
	State     State
	Offset    int64
	Processed int
	LastPoll  time.Time
	Error     error
}

// Source fetches updates from the Bot API.
type Source interface {
	DeleteWebhook(ctx context.Context) error
	GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]telegram.Update, error)
}

// Handler consumes one update.
type Handler interface {
	Handle(ctx context.Context, u telegram.Update)
}

// ErrStopped is returned by Start once the loop has already run.
var ErrStopped = errors.New("poller already stopped")

// Options tune the loop. Zero values select defaults.
type Options struct {
	// Wait is the long-poll timeout sent to getUpdates.
	Wait time.Duration
	// ErrorBackoff is the pause after a failed getUpdates call.
	ErrorBackoff time.Duration
	// HandlerTimeout bounds the processing of a single update.
	HandlerTimeout time.Duration
}

// Poller fetches updates and hands them to a Handler one at a time, in
// update_id order. A Poller runs at most once.
type Poller struct {
	src  Source
	h    Handler
	log  *zap.Logger
	opts Options

	mu       sync.Mutex
	status   Status
	started  bool
	running  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New creates a Poller.
func New(src Source, h Handler, log *zap.Logger, opts Options) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Wait <= 0 {
		opts.Wait = 30 * time.Second
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = 3 * time.Second
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 25 * time.Second
	}
	return &Poller{
		src:    src,
		h:      h,
		log:    log,
		opts:   opts,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start removes any registered webhook, since Telegram refuses
// getUpdates while one is set, and starts the loop in the background.
// Start on a running Poller is a no-op; after the loop has exited it
// returns ErrStopped.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		running := p.running
		p.mu.Unlock()
		if running {
			return nil
		}
		return ErrStopped
	}
	p.started = true
	p.running = true
	p.mu.Unlock()

	if err := p.src.DeleteWebhook(ctx); err != nil {
		p.mu.Lock()
		p.running = false
		p.status.State = Failing
		p.status.Error = err
		p.mu.Unlock()
		close(p.done)
		return err
	}

	go p.run()
	p.log.Info("update poller started", zap.Duration("wait", p.opts.Wait))
	return nil
}

// Stop halts the loop and waits for the in-flight update to finish.
// Stop is safe to call more than once and after the loop has exited on
// its own.
func (p *Poller) Stop() {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return
	}

	p.stopOnce.Do(func() {
		close(p.stopCh)
		<-p.done
		p.log.Info("update poller stopped")
	})
	<-p.done
}

// Done is closed once the loop has exited, either through Stop, because
// the token was rejected, or because Start failed.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Status returns a snapshot of the loop.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) run() {
	defer close(p.done)
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-p.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-p.stopCh:
			p.setState(Stopped, nil)
			return
		default:
		}

		if !p.pollOnce(ctx) {
			return
		}
	}
}

// pollOnce performs one getUpdates round. It reports false when the loop
// must end.
func (p *Poller) pollOnce(ctx context.Context) bool {
	p.setState(Running, nil)

	p.mu.Lock()
	offset := p.status.Offset
	p.mu.Unlock()

	updates, err := p.src.GetUpdates(ctx, offset, p.opts.Wait)
	if err != nil {
		if ctx.Err() != nil {
			p.setState(Stopped, nil)
			return false
		}
		p.setState(Failing, err)

		if telegram.IsUnauthorized(err) {
			p.log.Error("bot token rejected, stopping poller", zap.Error(err))
			return false
		}

		p.log.Warn("getUpdates failed", zap.Error(err), zap.Duration("retry_in", p.opts.ErrorBackoff))
		select {
		case <-p.stopCh:
			p.setState(Stopped, nil)
			return false
		case <-time.After(p.opts.ErrorBackoff):
		}
		return true
	}

	for _, u := range updates {
		hctx, hcancel := context.WithTimeout(context.Background(), p.opts.HandlerTimeout)
		p.h.Handle(hctx, u)
		hcancel()

		p.mu.Lock()
		if u.UpdateID >= p.status.Offset {
			p.status.Offset = u.UpdateID + 1
		}
		p.status.Processed++
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.status.State = Idle
	p.status.Error = nil
	p.status.LastPoll = time.Now()
	p.mu.Unlock()
	return true
}

func (p *Poller) setState(s State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = s
	p.status.Error = err
}
