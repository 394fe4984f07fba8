package service

import (
	"context"
	"log/slog"
	"time"
)

// sessionSweeper is the slice of the database the reaper needs.
type sessionSweeper interface {
	DeleteSessionTokensBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionReaper deletes session records for users that never logged out.
// Without it a record would live forever, since logout is the only other
// path that removes one.
type SessionReaper struct {
	store     sessionSweeper
	log       *slog.Logger
	retention time.Duration
	interval  time.Duration
}

func NewSessionReaper(store sessionSweeper, log *slog.Logger, retention, interval time.Duration) *SessionReaper {
	return &SessionReaper{
		store:     store,
		log:       log,
		retention: retention,
		interval:  interval,
	}
}

// Run sweeps on every tick until the context is canceled. Sweep faults are
// logged and retried on the next tick.
func (r *SessionReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *SessionReaper) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, defaultStoreTimeout)
	defer cancel()

	cutoff := time.Now().Add(-r.retention)
	swept, err := r.store.DeleteSessionTokensBefore(ctx, cutoff)
	if err != nil {
		r.log.Error("session sweep failed", "error", classifyStoreError(err))
		return
	}
	if swept > 0 {
		r.log.Info("swept stale session records", "count", swept, "cutoff", cutoff)
	}
}
