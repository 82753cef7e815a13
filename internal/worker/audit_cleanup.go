package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/account-policy/internal/repository"
	"github.com/jwalitptl/account-policy/pkg/logger"
)

// AuditCleanupWorker deletes audit entries older than the retention window.
type AuditCleanupWorker struct {
	repo      repository.AuditRepository
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

func NewAuditCleanupWorker(repo repository.AuditRepository, retention, interval time.Duration, log *logger.Logger) *AuditCleanupWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &AuditCleanupWorker{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    log,
		now:       time.Now,
	}
}

// Start blocks until ctx is cancelled.
func (w *AuditCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *AuditCleanupWorker) cleanup(ctx context.Context) {
	cutoff := w.now().Add(-w.retention)

	rows, err := w.repo.Cleanup(ctx, cutoff)
	if err != nil {
		w.logger.Error(err, "failed to clean up audit logs")
		return
	}
	if rows > 0 {
		w.logger.Info("cleaned up audit logs", "rows", rows, "cutoff", cutoff)
	}
}
