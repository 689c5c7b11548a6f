package discovery

import (
	"context"
	"log"
	"time"
)

// Scheduler runs the engine's maintenance jobs. Both are storage hygiene:
// the candidate filter is correct whether or not they ever run.
type Scheduler struct {
	service            Service
	skipPruneInterval  time.Duration
	boostSweepInterval time.Duration
}

func NewScheduler(service Service, skipPruneInterval, boostSweepInterval time.Duration) *Scheduler {
	return &Scheduler{
		service:            service,
		skipPruneInterval:  skipPruneInterval,
		boostSweepInterval: boostSweepInterval,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go s.runEvery(ctx, s.skipPruneInterval, "temp-skip prune", s.service.PruneExpiredSkips)
	go s.runEvery(ctx, s.boostSweepInterval, "stale-boost sweep", s.service.SweepStaleBoosts)
}

func (s *Scheduler) runEvery(ctx context.Context, interval time.Duration, name string, task func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			taskCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if err := task(taskCtx); err != nil {
				log.Printf("Scheduled task %q failed: %v", name, err)
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}
}
