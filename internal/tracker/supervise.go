package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sbconlon/mlb-scraper/internal/pkg/metrics"
)

// Supervise keeps a scrape loop alive until ctx is done. When a driver
// fails, the error is logged and sent to notifier, and after delay a new
// driver from newDriver takes over. The new driver starts with empty
// buckets; only what the sinks persisted survives.
func Supervise(ctx context.Context, newDriver func() *Driver, notifier Notifier, delay time.Duration, m *metrics.Metrics) error {
	for {
		err := newDriver().Run(ctx)
		if ctx.Err() != nil {
			slog.Info("Scrape loop stopped")
			return nil
		}
		if err == nil {
			return nil
		}

		m.RecordRestart()
		slog.Error("Scrape loop failed, restarting", "error", err, "fatal", IsFatal(err), "delay", delay)
		if notifier != nil {
			msg := fmt.Sprintf("WARNING: exception encountered, restarting scrape process.\n%v", err)
			if nerr := notifier.Notify(ctx, msg); nerr != nil {
				slog.Warn("Failed to send notification", "error", nerr)
			}
		}
		if err := SleepContext(ctx, delay); err != nil {
			slog.Info("Scrape loop stopped")
			return nil
		}
	}
}
