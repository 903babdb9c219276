package storage

import (
	"context"
	"log/slog"
	"time"
)

// Evicter drops expired entries.
type Evicter interface {
	Evict(now time.Time) int
}

// Janitor periodically evicts expired runs.
type Janitor struct {
	store    Evicter
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// JanitorInterval is a quarter of the retention, at least one second.
func JanitorInterval(retention time.Duration) time.Duration {
	interval := retention / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func NewJanitor(store Evicter, interval time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = JanitorInterval(DefaultRetention)
	}
	return &Janitor{store: store, interval: interval, logger: logger, now: time.Now}
}

// Sweep evicts once and returns the number of runs removed.
func (j *Janitor) Sweep() int {
	n := j.store.Evict(j.now())
	if n > 0 {
		j.logger.Debug("evicted expired runs", "count", n)
	}
	return n
}

// Run sweeps on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}
