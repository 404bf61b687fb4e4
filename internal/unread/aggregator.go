package unread

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/marketlane/chatlink/internal/metrics"
	"github.com/marketlane/chatlink/internal/model"
	"github.com/marketlane/chatlink/internal/signal"
)

// ErrNotRunning is returned by Refresh when the aggregator is stopped.
var ErrNotRunning = errors.New("aggregator not running")

// RoomLister fetches the room list for a user. *api.Client satisfies this.
type RoomLister interface {
	ListRooms(ctx context.Context, userID int64) ([]model.RoomSummary, error)
}

// Config holds aggregator settings.
type Config struct {
	Interval       time.Duration // Poll interval while visible
	RequestTimeout time.Duration // Per-request deadline
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:       20 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// Aggregator maintains the total unread badge by polling the room list.
//
// Polling only runs while the aggregator is marked visible, so a backgrounded
// view costs nothing. Concurrent refresh triggers collapse into a single
// in-flight request. A failed refresh keeps the previous badge value; Stop
// resets the badge and discards any in-flight result.
type Aggregator struct {
	cfg    Config
	lister RoomLister
	logger *slog.Logger

	readSignal *signal.Signal

	sf   singleflight.Group
	kick chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	visible bool
	userID  int64
	badge   int
	gen     uint64 // Bumped on Stop so stale results are discarded
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithReadSignal subscribes the aggregator to read-activity broadcasts, so
// marking messages read in any open context refreshes the badge promptly.
func WithReadSignal(sig *signal.Signal) Option {
	return func(a *Aggregator) { a.readSignal = sig }
}

// New creates an Aggregator. Nothing polls until Start.
func New(cfg Config, lister RoomLister, logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}

	a := &Aggregator{
		cfg:    cfg,
		lister: lister,
		logger: logger,
		kick:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start begins polling for the given user. Idempotent while running.
func (a *Aggregator) Start(ctx context.Context, userID int64) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.visible = true
	a.userID = userID
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.mu.Unlock()

	a.wg.Add(1)
	go a.run()

	a.logger.Info("unread aggregation started", "user_id", userID, "interval", a.cfg.Interval)
}

// Stop halts polling and resets the badge. Any in-flight refresh result is
// discarded, so a slow response from before logout can never repopulate the
// badge for the next user.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.gen++
	a.badge = 0
	cancel := a.cancel
	a.mu.Unlock()

	cancel()
	a.wg.Wait()

	metrics.UnreadBadge.Set(0)
	a.logger.Info("unread aggregation stopped")
}

// Badge returns the current total unread count.
func (a *Aggregator) Badge() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.badge
}

// SetVisible marks the view visible or hidden. The poll timer only fires
// while visible; becoming visible triggers an immediate refresh to catch up.
func (a *Aggregator) SetVisible(visible bool) {
	a.mu.Lock()
	wasVisible := a.visible
	a.visible = visible
	running := a.running
	a.mu.Unlock()

	if visible && !wasVisible && running {
		a.RequestRefresh()
	}
}

// RequestRefresh asks the poll loop for an immediate refresh. Non-blocking;
// bursts coalesce. Wired to focus and visibility hooks.
func (a *Aggregator) RequestRefresh() {
	select {
	case a.kick <- struct{}{}:
	default:
	}
}

// Refresh fetches the room list and recomputes the badge. Concurrent callers
// share one in-flight request. On error the previous badge is kept.
func (a *Aggregator) Refresh(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return ErrNotRunning
	}
	gen := a.gen
	userID := a.userID
	a.mu.Unlock()

	_, err, _ := a.sf.Do("refresh", func() (interface{}, error) {
		reqCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
		defer cancel()

		rooms, err := a.lister.ListRooms(reqCtx, userID)
		if err != nil {
			metrics.BadgeRefreshes.WithLabelValues("error").Inc()
			// Keep the stale badge rather than flashing zero
			return nil, err
		}

		total := 0
		for _, room := range rooms {
			total += room.UnreadCount
		}

		a.mu.Lock()
		if a.gen != gen {
			// Stopped while the request was in flight
			a.mu.Unlock()
			metrics.BadgeRefreshes.WithLabelValues("stale").Inc()
			return nil, nil
		}
		a.badge = total
		a.mu.Unlock()

		metrics.UnreadBadge.Set(float64(total))
		metrics.BadgeRefreshes.WithLabelValues("ok").Inc()
		return total, nil
	})
	return err
}

// run is the poll loop: an immediate first refresh, then interval ticks
// gated on visibility, plus kicks from focus hooks and read broadcasts.
func (a *Aggregator) run() {
	defer a.wg.Done()

	var readCh <-chan struct{}
	if a.readSignal != nil {
		ch, cancel := a.readSignal.Subscribe()
		defer cancel()
		readCh = ch
	}

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	a.refreshAsync()

	for {
		select {
		case <-a.ctx.Done():
			return

		case <-ticker.C:
			a.mu.Lock()
			visible := a.visible
			a.mu.Unlock()
			if visible {
				a.refreshAsync()
			}

		case <-a.kick:
			a.refreshAsync()

		case <-readCh:
			a.refreshAsync()
		}
	}
}

func (a *Aggregator) refreshAsync() {
	ctx := a.ctx
	go func() {
		if err := a.Refresh(ctx); err != nil &&
			!errors.Is(err, context.Canceled) && !errors.Is(err, ErrNotRunning) {
			a.logger.Warn("badge refresh failed", "error", err)
		}
	}()
}
