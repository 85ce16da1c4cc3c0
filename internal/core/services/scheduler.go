package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
	"github.com/custodia-labs/kacey/internal/logger"
)

// Ensure RepairScheduler implements the interface.
var _ driving.Scheduler = (*RepairScheduler)(nil)

// RepairScheduler runs the embedding repair sweep on a fixed interval.
// Sweeps never overlap: the next tick is only observed after the current
// sweep returns.
type RepairScheduler struct {
	ingestion driving.IngestionService
	interval  time.Duration
	batchSize int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}

	// onSweep observes each sweep outcome. Used by tests.
	onSweep func(*domain.RepairResult, error)
}

// NewRepairScheduler creates a scheduler that repairs up to batchSize
// chunks every interval.
func NewRepairScheduler(ingestion driving.IngestionService, interval time.Duration, batchSize int) *RepairScheduler {
	return &RepairScheduler{
		ingestion: ingestion,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start runs one sweep immediately and then one per interval. It blocks
// until ctx is cancelled or Stop is called. A non-positive interval
// disables the scheduler and Start returns at once.
func (s *RepairScheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		logger.Debug("Repair scheduler disabled")
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	defer close(done)
	return s.run(ctx, stopCh)
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (s *RepairScheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}

func (s *RepairScheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	logger.Info("Repair scheduler running every %s", s.interval)
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.markStopped()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RepairScheduler) sweep(ctx context.Context) {
	result, err := s.ingestion.RepairMissingEmbeddings(ctx, s.batchSize)
	switch {
	case err != nil:
		logger.Warn("Repair sweep failed: %v", err)
	case result.Scanned > 0:
		logger.Info("Repair sweep: %d repaired, %d still missing", result.Repaired, result.Failed)
	}
	if s.onSweep != nil {
		s.onSweep(result, err)
	}
}

// markStopped resets state after the context ends the loop, so a later
// Stop call does not block.
func (s *RepairScheduler) markStopped() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
}
