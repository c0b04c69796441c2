package app

import (
	"context"
	"sync"
	"time"

	"github.com/five82/lattice/internal/logging"
	"github.com/five82/lattice/internal/notify"
)

const (
	defaultPollInterval = 2 * time.Second
	maxBackoff          = 30 * time.Second
)

// RowCounter is the part of the grid the poller drives.
type RowCounter interface {
	RowCount(ctx context.Context) (int, error)
	Invalidate()
}

// countRefresher is implemented by grids whose cached row count can be
// dropped without discarding rows.
type countRefresher interface {
	RefreshRowCount()
}

// Poller periodically refreshes the row count of a grid. When the count
// changes the grid's cached rows are invalidated and subscribers are told.
type Poller struct {
	target   RowCounter
	interval time.Duration
	log      *logging.Logger

	mu       sync.Mutex
	last     int
	known    bool
	failures int

	changed notify.Listeners[int]
	failed  notify.Listeners[error]
}

// NewPoller builds a poller; it does nothing until Start.
func NewPoller(target RowCounter, interval time.Duration, log *logging.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{target: target, interval: interval, log: log.With("poller")}
}

// Start launches a background goroutine that refreshes at the poll interval,
// backing off after failures. It returns immediately.
func (p *Poller) Start(ctx context.Context) {
	go func() {
		for {
			wait := p.interval
			if err := p.Refresh(ctx); err != nil {
				wait = calculateBackoff(p.Failures(), p.interval)
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// Refresh fetches the row count once. Concurrent calls are serialized.
func (p *Poller) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if r, ok := p.target.(countRefresher); ok {
		r.RefreshRowCount()
	}
	n, err := p.target.RowCount(ctx)
	if err != nil {
		if ctx.Err() != nil {
			p.mu.Unlock()
			return err
		}
		p.failures++
		failures := p.failures
		p.mu.Unlock()
		p.log.Warn("row count poll failed", map[string]any{"error": err.Error(), "failures": failures})
		p.failed.Emit(err)
		return err
	}
	p.failures = 0
	if p.known && n == p.last {
		p.mu.Unlock()
		return nil
	}
	if p.known {
		p.log.Info("row count changed", map[string]any{"from": p.last, "to": n})
		p.target.Invalidate()
	}
	p.last, p.known = n, true
	p.mu.Unlock()

	p.changed.Emit(n)
	return nil
}

// Failures returns the number of consecutive failed polls.
func (p *Poller) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// OnChange subscribes fn to row count changes, including the first count.
func (p *Poller) OnChange(fn func(count int)) func() {
	return p.changed.Add(fn)
}

// OnError subscribes fn to failed polls.
func (p *Poller) OnError(fn func(error)) func() {
	return p.failed.Add(fn)
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for range failures {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
