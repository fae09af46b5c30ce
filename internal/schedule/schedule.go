// Package schedule drives periodic monitoring runs as a Go ticker loop.
// Replaces an external cron trigger — the API server is already a
// persistent, long-running process.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/speettolab/speetto-monitor/internal/monitor"
)

// Start runs the monitor on a fixed interval until ctx is cancelled.
// Blocks; intended to be called with `go`. A zero interval disables the loop.
func Start(ctx context.Context, m *monitor.Monitor, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		logger.Info("Monitoring schedule disabled")
		return
	}
	logger.Info("Monitoring schedule started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			result := m.Run(ctx)
			if result.Outcome != monitor.RunSuccess {
				logger.Warn("scheduled run had errors",
					"summary", result.Summary(), "errors", result.Errors)
			}
		case <-ctx.Done():
			logger.Info("Monitoring schedule stopped")
			return
		}
	}
}
