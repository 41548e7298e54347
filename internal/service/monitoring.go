package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/leadloom/leadloom/internal/models"
)

const (
	LevelError = "ERROR"
	LevelWarn  = "WARN"
	LevelInfo  = "INFO"

	SourcePublisher = "publisher"
	SourceScheduler = "scheduler"
	SourceGenerator = "generator"

	MetricCounter = "counter"
	MetricGauge   = "gauge"
)

type MonitoringService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewMonitoringService(db *gorm.DB, logger *zap.Logger) *MonitoringService {
	return &MonitoringService{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// RecordError stores an error log row.
func (m *MonitoringService) RecordError(ctx context.Context, level, source, title, message string, options ...ErrorLogOption) error {
	errorLog := &models.ErrorLog{
		Level:   level,
		Source:  source,
		Title:   title,
		Message: message,
	}

	for _, option := range options {
		option(errorLog)
	}

	if err := m.db.WithContext(ctx).Create(errorLog).Error; err != nil {
		return storeError("record error log", err)
	}
	return nil
}

// ErrorLogOption configures an error log before it is stored.
type ErrorLogOption func(*models.ErrorLog)

func WithContentItem(itemID uint) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.ContentItemID = &itemID
	}
}

func WithContext(context map[string]any) ErrorLogOption {
	return func(e *models.ErrorLog) {
		if contextBytes, err := json.Marshal(context); err == nil {
			e.Context = datatypes.JSON(contextBytes)
		}
	}
}

func (m *MonitoringService) RecordMetric(ctx context.Context, name, metricType string, value float64, tags map[string]any) error {
	metric := &models.MetricsSample{
		MetricName: name,
		MetricType: metricType,
		Value:      value,
		Timestamp:  m.now().UTC(),
	}
	if tags != nil {
		if tagsBytes, err := json.Marshal(tags); err == nil {
			metric.Tags = datatypes.JSON(tagsBytes)
		}
	}

	if err := m.db.WithContext(ctx).Create(metric).Error; err != nil {
		return storeError("record metric", err)
	}
	return nil
}

// ErrorFilter narrows GetRecentErrors.
type ErrorFilter struct {
	Source         string
	UnresolvedOnly bool
	Limit          int
}

// GetRecentErrors returns error logs newest first.
func (m *MonitoringService) GetRecentErrors(ctx context.Context, filter ErrorFilter) ([]models.ErrorLog, error) {
	query := m.db.WithContext(ctx).Model(&models.ErrorLog{})
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.UnresolvedOnly {
		query = query.Where("resolved = ?", false)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var errorLogs []models.ErrorLog
	if err := query.Order("created_at desc, id desc").Find(&errorLogs).Error; err != nil {
		return nil, storeError("list error logs", err)
	}
	return errorLogs, nil
}

// ResolveErrors marks every unresolved error for the item as resolved.
func (m *MonitoringService) ResolveErrors(ctx context.Context, itemID uint) error {
	now := m.now().UTC()
	err := m.db.WithContext(ctx).Model(&models.ErrorLog{}).
		Where("content_item_id = ? AND resolved = ?", itemID, false).
		Updates(map[string]any{"resolved": true, "resolved_at": now}).Error
	if err != nil {
		return storeError("resolve error logs", err)
	}
	return nil
}

// CleanupOldData drops metrics and resolved errors older than daysToKeep.
func (m *MonitoringService) CleanupOldData(ctx context.Context, daysToKeep int) error {
	cutoffDate := m.now().UTC().AddDate(0, 0, -daysToKeep)
	db := m.db.WithContext(ctx)

	if err := db.Where("timestamp < ?", cutoffDate).Delete(&models.MetricsSample{}).Error; err != nil {
		return fmt.Errorf("failed to cleanup metrics samples: %w", err)
	}

	if err := db.Where("created_at < ? AND resolved = ?", cutoffDate, true).Delete(&models.ErrorLog{}).Error; err != nil {
		return fmt.Errorf("failed to cleanup resolved errors: %w", err)
	}

	return nil
}
