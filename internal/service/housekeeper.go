package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Housekeeper periodically prunes monitoring data and warms the analytics cache.
type Housekeeper struct {
	monitoringService *MonitoringService
	analyticsService  *AnalyticsService
	logger            *zap.Logger
	interval          time.Duration
	retentionDays     int
	done              chan struct{}
	stopOnce          sync.Once
	wg                sync.WaitGroup
}

func NewHousekeeper(monitoringService *MonitoringService, analyticsService *AnalyticsService, logger *zap.Logger, interval time.Duration, retentionDays int) *Housekeeper {
	return &Housekeeper{
		monitoringService: monitoringService,
		analyticsService:  analyticsService,
		logger:            logger,
		interval:          interval,
		retentionDays:     retentionDays,
		done:              make(chan struct{}),
	}
}

func (h *Housekeeper) Start(ctx context.Context) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		h.logger.Info("Starting housekeeper", zap.Duration("interval", h.interval))
		for {
			select {
			case <-h.done:
				h.logger.Info("Housekeeper stopped")
				return
			case <-ctx.Done():
				h.logger.Info("Housekeeper stopped due to context cancellation")
				return
			case <-ticker.C:
				h.RunOnce(ctx)
			}
		}
	}()
}

func (h *Housekeeper) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
}

func (h *Housekeeper) RunOnce(ctx context.Context) {
	h.logger.Debug("Running housekeeping")

	if h.monitoringService != nil {
		if err := h.monitoringService.CleanupOldData(ctx, h.retentionDays); err != nil {
			h.logger.Error("Failed to cleanup old data", zap.Error(err))
		}
	}

	if h.analyticsService != nil {
		if _, err := h.analyticsService.Refresh(ctx); err != nil {
			h.logger.Error("Failed to refresh analytics", zap.Error(err))
		}
	}
}
