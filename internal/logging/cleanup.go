package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/irrelevantclub/toolkit-backend/internal/store"
)

const cleanupInterval = 24 * time.Hour

// StartCleanup prunes system logs older than retention once a day until done
// is closed.
func StartCleanup(sink store.LogSink, retention time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pruneOnce(sink, retention, time.Now())
			case <-done:
				return
			}
		}
	}()
}

func pruneOnce(sink store.LogSink, retention time.Duration, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := sink.PruneLogs(ctx, now.Add(-retention))
	if err != nil {
		slog.Error("log cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("log cleanup completed", "deleted", deleted)
	}
}
