package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadloom/leadloom/internal/config"
)

// DueProcessor is the work the scheduler runs on every tick.
type DueProcessor interface {
	ProcessDueItems(ctx context.Context) (*ProcessResult, error)
}

// Scheduler is the periodic caller of ProcessDueItems.
type Scheduler struct {
	config    *config.SchedulerConfig
	logger    *zap.Logger
	processor DueProcessor
	lock      RunLock
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewScheduler(cfg *config.SchedulerConfig, logger *zap.Logger, processor DueProcessor, lock RunLock) *Scheduler {
	if lock == nil {
		lock = NewLocalLock()
	}
	return &Scheduler{
		config:    cfg,
		logger:    logger,
		processor: processor,
		lock:      lock,
		stopCh:    make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	interval, err := time.ParseDuration(s.config.Interval)
	if err != nil {
		s.logger.Error("Invalid scheduler interval", zap.String("interval", s.config.Interval), zap.Error(err))
		return err
	}

	s.logger.Info("Starting scheduler", zap.String("interval", s.config.Interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.tick(ctx)
		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-s.stopCh:
				s.logger.Info("Scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Scheduler context cancelled")
				return
			}
		}
	}()

	return nil
}

// Stop ends the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	s.logger.Info("Scheduler shutdown completed")
}

// RunOnce processes due items while holding the run lock. It returns
// ErrRunInProgress when another run holds it. The HTTP and CLI triggers go
// through here too.
func (s *Scheduler) RunOnce(ctx context.Context) (*ProcessResult, error) {
	release, err := s.lock.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	if release == nil {
		return nil, ErrRunInProgress
	}
	defer release()

	start := time.Now()
	result, err := s.processor.ProcessDueItems(ctx)
	duration := time.Since(start)
	if err != nil {
		return nil, err
	}

	if result.Processed > 0 {
		s.logger.Info("Scheduled run completed",
			zap.Int("processed", result.Processed),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
			zap.Duration("duration", duration))
	}
	return result, nil
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.RunOnce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrRunInProgress):
		s.logger.Debug("Skipping run, another run holds the lock")
	default:
		s.logger.Error("Scheduled run failed", zap.Error(err))
	}
}
