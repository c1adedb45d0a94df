// Package refresh keeps the in-memory catalog in step with its files.
package refresh

import (
	"context"
	"log/slog"
	"time"
)

// Reloader re-reads a catalog and reports the occupations that changed
type Reloader interface {
	Reload() ([]string, error)
}

// Refresher periodically reloads the catalog. Compositions built against an
// occupation that changed are refused on submission as stale.
type Refresher struct {
	reloader Reloader
	interval time.Duration
	done     chan struct{}
}

// NewRefresher creates a new refresh worker
func NewRefresher(reloader Reloader, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Refresher{
		reloader: reloader,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the refresh worker in a goroutine
func (r *Refresher) Start(ctx context.Context) {
	go r.run(ctx)
}

// Done is closed when the worker has stopped
func (r *Refresher) Done() <-chan struct{} {
	return r.done
}

func (r *Refresher) run(ctx context.Context) {
	defer close(r.done)
	slog.Info("catalog refresher started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("catalog refresher stopped")
			return
		case <-ticker.C:
			r.Refresh()
		}
	}
}

// Refresh reloads the catalog once. A failed reload keeps the previous
// catalog in place.
func (r *Refresher) Refresh() []string {
	slog.Debug("running catalog refresh")

	changed, err := r.reloader.Reload()
	if err != nil {
		slog.Error("failed to reload catalog, keeping previous version", "error", err)
		return nil
	}

	if len(changed) == 0 {
		slog.Debug("catalog unchanged")
		return nil
	}

	slog.Info("catalog changed", "occupations", changed, "count", len(changed))
	return changed
}
