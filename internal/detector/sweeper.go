package detector

import (
	"context"
	"log/slog"
	"time"

	"tradewatch/internal/store"
)

// RunSweeper evicts stale account history on a fixed period, independent of
// the ingestion loop's per-write trimming. It blocks until ctx is done, so
// callers run it in its own goroutine and wait for it during shutdown.
func RunSweeper(ctx context.Context, st *store.Store, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			removed := st.Sweep()
			if logger != nil {
				logger.Debug("history sweep complete", "accounts_removed", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}
