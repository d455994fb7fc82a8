package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"chatdocs-rag/internal/logger"
)

// StaleScanner lists conversation ids whose newest chunk is older than the
// cutoff. MongoStore provides the production implementation.
type StaleScanner interface {
	StaleConversations(ctx context.Context, collection string, before time.Time) ([]string, error)
}

// RetentionSweeper periodically purges conversation partitions that have
// outlived the retention window, removing vectors and stored files through
// the same cascade a user-initiated delete takes.
type RetentionSweeper struct {
	scanner    StaleScanner
	lifecycle  *LifecycleBinder
	collection string
	maxAge     time.Duration
	scheduler  *gocron.Scheduler
}

func NewRetentionSweeper(scanner StaleScanner, lifecycle *LifecycleBinder, collection string, maxAge time.Duration) *RetentionSweeper {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &RetentionSweeper{
		scanner:    scanner,
		lifecycle:  lifecycle,
		collection: collection,
		maxAge:     maxAge,
		scheduler:  s,
	}
}

// Start schedules the sweep at the given interval and runs the scheduler in
// the background. A non-positive retention window disables sweeping.
func (r *RetentionSweeper) Start(interval time.Duration) error {
	if r.maxAge <= 0 {
		logger.Info("Retention sweeping disabled")
		return nil
	}

	_, err := r.scheduler.Every(interval).Tag("retention-sweep").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		r.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	r.scheduler.StartAsync()
	logger.Info("Retention sweeper started", "interval", interval, "max_age", r.maxAge)
	return nil
}

func (r *RetentionSweeper) Stop() {
	r.scheduler.Stop()
}

// Sweep runs one pass: find conversations past the window, cascade-delete
// each one. Individual failures are logged and skipped so one bad partition
// cannot stall the rest.
func (r *RetentionSweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.maxAge)

	ids, err := r.scanner.StaleConversations(ctx, r.collection, cutoff)
	if err != nil {
		logger.Error("Retention scan failed", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	purged := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if err := r.lifecycle.OnConversationDeleted(ctx, id); err != nil {
			logger.Warn("Retention purge failed for conversation", "conversation_id", id, "error", err)
			continue
		}
		purged++
	}

	logger.Info("Retention sweep completed", "stale", len(ids), "purged", purged, "cutoff", cutoff)
}
