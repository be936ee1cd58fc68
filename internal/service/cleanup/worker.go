package cleanup

import (
	"context"
	"log"
	"time"
)

// HistoryPurger deletes audit entries older than a cutoff.
type HistoryPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Worker enforces the login-history retention window in the background,
// standing in for a document-store TTL index.
type Worker struct {
	History   HistoryPurger
	Retention time.Duration
	Interval  time.Duration
}

func NewWorker(history HistoryPurger, retention, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{History: history, Retention: retention, Interval: interval}
}

// Start runs the purge loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	log.Println("[CLEANUP] Background worker started")
	w.runPurge(ctx)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("[CLEANUP] Background worker stopped")
			return
		case <-ticker.C:
			w.runPurge(ctx)
		}
	}
}

func (w *Worker) runPurge(ctx context.Context) {
	cutoff := time.Now().Add(-w.Retention)
	deleted, err := w.History.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("[CLEANUP] Error purging login history: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[CLEANUP] Removed %d expired login history entries", deleted)
	}
}
