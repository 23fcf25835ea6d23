package cleanup

import (
	"context"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"framed/internal/config"
	"framed/internal/frames"
	"framed/internal/logging"
)

// Scheduler periodically reaps expired answers, expired and orphaned frame
// files, and stale player runs. All sweeps within a pass run concurrently
// except the two image sweeps, which share the frames directory and run in
// sequence on one goroutine.
type Scheduler struct {
	interval   time.Duration
	listingGap time.Duration
	threshold  int
	stores     *frames.Stores
	paths      frames.Paths
	logger     *slog.Logger

	// betweenListings runs after the orphan sweep's first listing. Tests
	// use it to interleave writes; it is nil in production.
	betweenListings func()

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler builds a cleanup scheduler from configuration.
func NewScheduler(cfg *config.Config, stores *frames.Stores, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		interval:   time.Duration(cfg.Cleanup.Interval) * time.Second,
		listingGap: time.Second,
		threshold:  cfg.Cleanup.RunHistoryThreshold,
		stores:     stores,
		paths:      frames.NewPaths(cfg),
		logger:     logging.WithComponent(logger, "cleanup"),
	}
}

// Start launches the sweep loop. The first pass runs one interval after
// startup, not immediately; the startup scan has just reconciled the stores.
func (s *Scheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.Sweep(runCtx)
			}
		}
	}()
}

// Stop halts the sweep loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Sweep runs one cleanup pass. Failures are logged and never abort the pass;
// anything a sweep misses is picked up by a later pass or the next restart.
func (s *Scheduler) Sweep(ctx context.Context) {
	started := time.Now()
	var group errgroup.Group
	group.Go(func() error {
		s.sweepAnswers(ctx)
		return nil
	})
	group.Go(func() error {
		s.sweepExpiredImages(ctx)
		s.sweepOrphans(ctx)
		return nil
	})
	group.Go(func() error {
		s.sweepRuns(ctx)
		return nil
	})
	_ = group.Wait()
	s.logger.Debug("cleanup pass finished", "elapsed", time.Since(started))
}

// sweepAnswers deletes answers whose served expiry has elapsed.
func (s *Scheduler) sweepAnswers(ctx context.Context) {
	keys, err := s.stores.Answers.Keys(ctx)
	if err != nil {
		s.logger.Warn("answer sweep listing failed", logging.Error(err))
		return
	}
	now := time.Now()
	for _, id := range keys {
		answer, err := s.stores.Answers.Get(ctx, id)
		if err != nil {
			s.logger.Warn("answer sweep read failed", logging.FieldImageID, id, logging.Error(err))
			continue
		}
		if answer == nil || !answer.Expired(now) {
			continue
		}
		if err := s.stores.Answers.Remove(ctx, id); err != nil {
			s.logger.Warn("answer sweep remove failed", logging.FieldImageID, id, logging.Error(err))
		}
	}
}

// sweepExpiredImages deletes tracking records whose served expiry has elapsed
// along with their files. A file that is already gone is not an error here.
func (s *Scheduler) sweepExpiredImages(ctx context.Context) {
	keys, err := s.stores.States.Keys(ctx)
	if err != nil {
		s.logger.Warn("expired image sweep listing failed", logging.Error(err))
		return
	}
	now := time.Now()
	for _, id := range keys {
		state, err := s.stores.States.Get(ctx, id)
		if err != nil {
			s.logger.Warn("expired image sweep read failed", logging.FieldImageID, id, logging.Error(err))
			continue
		}
		if state == nil || !state.Expired(now) {
			continue
		}
		if err := s.stores.States.Remove(ctx, id); err != nil {
			s.logger.Warn("expired image sweep remove failed", logging.FieldImageID, id, logging.Error(err))
			continue
		}
		if err := os.Remove(s.paths.ImagePath(id)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("expired image delete failed", logging.FieldImageID, id, logging.Error(err))
		}
	}
}

// sweepOrphans deletes frame files no tracking record claims. The directory
// is listed twice with a gap in between and only files present in both
// listings qualify, which tolerates a generation whose tracking write landed
// after the first listing.
func (s *Scheduler) sweepOrphans(ctx context.Context) {
	first, err := s.paths.ListIDs()
	if err != nil {
		s.logger.Warn("orphan sweep first listing failed", logging.Error(err))
		return
	}
	if len(first) == 0 {
		return
	}
	if s.betweenListings != nil {
		s.betweenListings()
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.listingGap):
	}
	second, err := s.paths.ListIDs()
	if err != nil {
		s.logger.Warn("orphan sweep second listing failed", logging.Error(err))
		return
	}

	inFirst := make(map[string]struct{}, len(first))
	for _, id := range first {
		inFirst[id] = struct{}{}
	}
	for _, id := range second {
		if _, ok := inFirst[id]; !ok {
			continue
		}
		state, err := s.stores.States.Get(ctx, id)
		if err != nil {
			s.logger.Warn("orphan sweep read failed", logging.FieldImageID, id, logging.Error(err))
			continue
		}
		if state != nil {
			continue
		}
		if err := os.Remove(s.paths.ImagePath(id)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("orphan delete failed", logging.FieldImageID, id, logging.Error(err))
			continue
		}
		s.logger.Info("deleted orphaned frame file", logging.FieldImageID, id)
	}
}

// sweepRuns reaps expired player runs. Runs with enough history are archived
// with their expiry cleared before the live record goes away; the rest are
// dropped.
func (s *Scheduler) sweepRuns(ctx context.Context) {
	keys, err := s.stores.Runs.Keys(ctx)
	if err != nil {
		s.logger.Warn("run sweep listing failed", logging.Error(err))
		return
	}
	now := time.Now()
	for _, id := range keys {
		run, err := s.stores.Runs.Get(ctx, id)
		if err != nil {
			s.logger.Warn("run sweep read failed", logging.FieldRunID, id, logging.Error(err))
			continue
		}
		if run == nil || !run.Expired(now) {
			continue
		}
		if len(run.History) >= s.threshold {
			archived := *run
			archived.ExpiresAt = nil
			if err := s.stores.Archive.Set(ctx, id, archived); err != nil {
				s.logger.Warn("run archival failed, keeping live record", logging.FieldRunID, id, logging.Error(err))
				continue
			}
		}
		if err := s.stores.Runs.Remove(ctx, id); err != nil {
			s.logger.Warn("run sweep remove failed", logging.FieldRunID, id, logging.Error(err))
		}
	}
}
