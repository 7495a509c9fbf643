package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/khanghh/quill/internal/clock"
)

type RequestLogPurger interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// RequestLogRetentionJob deletes captured request logs older than retention.
func RequestLogRetentionJob(purger RequestLogPurger, retention time.Duration, clk clock.Clock, logger *slog.Logger) Job {
	return NewJob("request-log-retention", 5*time.Minute, func(ctx context.Context) error {
		before := clk.Now().Add(-retention)
		deleted, err := purger.DeleteBefore(ctx, before)
		if err != nil {
			return err
		}
		logger.Info("Purged request logs", "before", before, "deleted", deleted)
		return nil
	})
}
