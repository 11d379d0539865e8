// Package scheduler runs periodic maintenance on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const runTimeout = 2 * time.Minute

// OrphanCleaner removes scores whose exam no longer exists.
type OrphanCleaner interface {
	CleanupOrphans(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	cleaner OrphanCleaner
}

// New registers the orphan score cleanup under spec. Overlapping runs are
// skipped.
func New(spec string, cleaner OrphanCleaner) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		cleaner: cleaner,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	log.Printf("Maintenance scheduler started with %d job(s)", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Println("WARN: maintenance job still running at shutdown")
	}
}

// RunOnce performs one cleanup pass.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	n, err := s.cleaner.CleanupOrphans(ctx)
	if err != nil {
		log.Printf("ERROR: orphan score cleanup failed: %v", err)
		return
	}
	log.Printf("Orphan score cleanup removed %d score(s)", n)
}
