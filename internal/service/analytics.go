package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leadloom/leadloom/internal/models"
	"github.com/leadloom/leadloom/pkg/cache"
)

const (
	analyticsCacheKey = "analytics:summary"
	topDimensionLimit = 10
)

type DimensionCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type CtaUsage struct {
	CtaID uint   `json:"cta_id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type AnalyticsSummary struct {
	StatusCounts  map[models.ContentStatus]int64 `json:"status_counts"`
	TopPersonas   []DimensionCount               `json:"top_personas"`
	TopIndustries []DimensionCount               `json:"top_industries"`
	CtaUsage      []CtaUsage                     `json:"cta_usage"`
	GeneratedAt   time.Time                      `json:"generated_at"`
}

// AnalyticsService aggregates read-only counts over content items.
type AnalyticsService struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
	now    func() time.Time
}

func NewAnalyticsService(db *gorm.DB, c cache.Cache, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		db:     db,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

// Summary returns the cached summary when one is fresh.
func (s *AnalyticsService) Summary(ctx context.Context) (*AnalyticsSummary, error) {
	if s.cache != nil {
		var cached AnalyticsSummary
		ok, err := cache.GetJSON(ctx, s.cache, analyticsCacheKey, &cached)
		if err != nil {
			s.logger.Warn("Failed to read analytics cache", zap.Error(err))
		} else if ok {
			return &cached, nil
		}
	}
	return s.Refresh(ctx)
}

// Refresh recomputes the summary and stores it in the cache.
func (s *AnalyticsService) Refresh(ctx context.Context) (*AnalyticsSummary, error) {
	summary, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, analyticsCacheKey, summary); err != nil {
			s.logger.Warn("Failed to write analytics cache", zap.Error(err))
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary.
func (s *AnalyticsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, analyticsCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate analytics cache", zap.Error(err))
	}
}

func (s *AnalyticsService) compute(ctx context.Context) (*AnalyticsSummary, error) {
	db := s.db.WithContext(ctx)

	summary := &AnalyticsSummary{
		StatusCounts: make(map[models.ContentStatus]int64, len(models.AllStatuses)),
		GeneratedAt:  s.now().UTC(),
	}
	for _, status := range models.AllStatuses {
		summary.StatusCounts[status] = 0
	}

	var statusRows []struct {
		Status models.ContentStatus
		Count  int64
	}
	err := db.Model(&models.ContentItem{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusRows).Error
	if err != nil {
		return nil, storeError("count items by status", err)
	}
	for _, row := range statusRows {
		summary.StatusCounts[row.Status] = row.Count
	}

	if summary.TopPersonas, err = s.topPosted(ctx, "persona"); err != nil {
		return nil, err
	}
	if summary.TopIndustries, err = s.topPosted(ctx, "industry"); err != nil {
		return nil, err
	}

	summary.CtaUsage = []CtaUsage{}
	err = db.Table("cta_templates AS ct").
		Select("ct.id AS cta_id, ct.name AS name, COUNT(ci.id) AS count").
		Joins("LEFT JOIN content_items ci ON ci.cta_id = ct.id").
		Group("ct.id, ct.name").
		Order("count DESC, ct.name ASC").
		Scan(&summary.CtaUsage).Error
	if err != nil {
		return nil, storeError("count cta usage", err)
	}

	return summary, nil
}

// topPosted ranks non-empty values of column among POSTED items.
func (s *AnalyticsService) topPosted(ctx context.Context, column string) ([]DimensionCount, error) {
	rows := []DimensionCount{}
	err := s.db.WithContext(ctx).Model(&models.ContentItem{}).
		Select(column+" AS name, COUNT(*) AS count").
		Where("status = ? AND "+column+" IS NOT NULL AND "+column+" <> ''", models.StatusPosted).
		Group(column).
		Order("count DESC, name ASC").
		Limit(topDimensionLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, storeError("rank posted "+column, err)
	}
	return rows, nil
}
