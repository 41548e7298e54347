package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leadloom/leadloom/internal/config"
	"github.com/leadloom/leadloom/internal/models"
	"github.com/leadloom/leadloom/internal/service/publisher"
)

// Publisher hands one post to the external collaborators.
type Publisher interface {
	Publish(ctx context.Context, content publisher.PublishContent, agentID string) (*publisher.PublishResult, error)
}

// NewPublishManager wires the Google Sheets sink and the PhantomBuster agent
// from configuration.
func NewPublishManager(ctx context.Context, cfg *config.PublisherConfig, logger *zap.Logger) (*publisher.Manager, error) {
	sink, err := publisher.NewSheetsSink(ctx, publisher.SheetsConfig{
		BaseURL:         cfg.Sheets.BaseURL,
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		Range:           cfg.Sheets.Range,
		CredentialsFile: cfg.Sheets.CredentialsFile,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets sink: %w", err)
	}
	agent := publisher.NewPhantomBusterAgent(publisher.PhantomBusterConfig{
		BaseURL: cfg.PhantomBuster.BaseURL,
		APIKey:  cfg.PhantomBuster.APIKey,
	}, logger)
	return publisher.NewPublishManager(sink, agent, logger), nil
}

type ItemResult struct {
	ItemID      uint   `json:"item_id"`
	Success     bool   `json:"success"`
	ContainerID string `json:"container_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

type ProcessResult struct {
	Processed int          `json:"processed"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Items     []ItemResult `json:"items"`
}

// PublishService moves due and approved items to POSTED through the
// collaborators.
type PublishService struct {
	db            *gorm.DB
	publisher     Publisher
	notifications *NotificationService
	monitoring    *MonitoringService
	analytics     *AnalyticsService
	agentID       string
	timeout       time.Duration
	claimTTL      time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

func NewPublishService(cfg *config.PublisherConfig, db *gorm.DB, pub Publisher, notifications *NotificationService, monitoring *MonitoringService, analytics *AnalyticsService, logger *zap.Logger) *PublishService {
	timeout := config.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PublishService{
		db:            db,
		publisher:     pub,
		notifications: notifications,
		monitoring:    monitoring,
		analytics:     analytics,
		agentID:       cfg.PhantomBuster.AgentID,
		timeout:       timeout,
		claimTTL:      2 * timeout,
		logger:        logger,
		now:           time.Now,
	}
}

// ProcessDueItems publishes every SCHEDULED item whose time has come, oldest
// schedule first. A failed item stays SCHEDULED with its error message set
// and is retried on the next run. Items claimed by a concurrent run are
// skipped. Only the due query can fail the batch.
func (s *PublishService) ProcessDueItems(ctx context.Context) (*ProcessResult, error) {
	now := s.now().UTC()

	var due []models.ContentItem
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", models.StatusScheduled, now).
		Where("(claim_token IS NULL OR claimed_until < ?)", now).
		Order("scheduled_at ASC, id ASC").
		Find(&due).Error
	if err != nil {
		return nil, storeError("query due items", err)
	}

	result := &ProcessResult{Items: []ItemResult{}}
	if len(due) == 0 {
		return result, nil
	}

	s.logger.Info("Processing due items", zap.Int("count", len(due)))

	for i := range due {
		if ctx.Err() != nil {
			s.logger.Warn("Stopping due item processing", zap.Error(ctx.Err()))
			break
		}
		itemResult, ok := s.processItem(ctx, &due[i])
		if !ok {
			result.Skipped++
			continue
		}
		result.Processed++
		if itemResult.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Items = append(result.Items, itemResult)
	}

	s.logger.Info("Processed due items",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// processItem returns false when the item was not claimed and nothing was
// sent.
func (s *PublishService) processItem(ctx context.Context, item *models.ContentItem) (ItemResult, bool) {
	token, err := s.claim(ctx, item)
	if err != nil {
		s.logger.Error("Failed to claim item", zap.Uint("item_id", item.ID), zap.Error(err))
		return ItemResult{ItemID: item.ID, Error: err.Error()}, true
	}
	if token == "" {
		s.logger.Info("Skipping item claimed by another run", zap.Uint("item_id", item.ID))
		return ItemResult{}, false
	}

	pub, err := s.sendToCollaborator(ctx, item)
	if err != nil {
		s.recordFailure(ctx, item, token, err)
		return ItemResult{ItemID: item.ID, Error: err.Error()}, true
	}

	if err := s.markPosted(ctx, item, token, pub); err != nil {
		s.holdUnconfirmed(ctx, item, token, pub, err)
		return ItemResult{ItemID: item.ID, ContainerID: pub.ContainerID, Error: err.Error()}, true
	}

	return ItemResult{ItemID: item.ID, Success: true, ContainerID: pub.ContainerID}, true
}

// SendNow publishes an APPROVED or SCHEDULED item immediately.
func (s *PublishService) SendNow(ctx context.Context, id uint) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("content item %d: %w", id, ErrNotFound)
		}
		return nil, storeError("load content item", err)
	}

	if item.Status != models.StatusApproved && item.Status != models.StatusScheduled {
		return nil, fmt.Errorf("%w: item %d is %s, only APPROVED or SCHEDULED items can be sent",
			ErrInvalidState, id, item.Status)
	}
	if !hasContent(&item) {
		return nil, fmt.Errorf("item %d: %w", id, ErrEmptyContent)
	}

	token, err := s.claim(ctx, &item)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("content item %d is being published: %w", id, ErrConflict)
	}

	pub, err := s.sendToCollaborator(ctx, &item)
	if err != nil {
		s.release(ctx, &item, token)
		s.recordError(ctx, &item, "Failed to send item", err)
		return nil, fmt.Errorf("failed to send item %d: %w", id, err)
	}

	if err := s.markPosted(ctx, &item, token, pub); err != nil {
		s.holdUnconfirmed(ctx, &item, token, pub, err)
		return nil, err
	}

	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, storeError("reload content item", err)
	}
	return &item, nil
}

// claim takes a publish lease on the item while it is still in the status it
// was loaded with. It returns an empty token when the item moved on or
// another attempt holds a live lease.
func (s *PublishService) claim(ctx context.Context, item *models.ContentItem) (string, error) {
	now := s.now().UTC()
	token := uuid.NewString()

	result := s.db.WithContext(ctx).Model(&models.ContentItem{}).
		Where("id = ? AND status = ?", item.ID, item.Status).
		Where("(claim_token IS NULL OR claimed_until < ?)", now).
		Updates(map[string]any{
			"claim_token":   token,
			"claimed_until": now.Add(s.claimTTL),
		})
	if result.Error != nil {
		return "", storeError("claim content item", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", nil
	}
	return token, nil
}

// release drops our lease without touching anything else.
func (s *PublishService) release(ctx context.Context, item *models.ContentItem, token string) {
	err := s.db.WithContext(ctx).Model(&models.ContentItem{}).
		Where("id = ? AND claim_token = ?", item.ID, token).
		Updates(map[string]any{"claim_token": nil, "claimed_until": nil}).Error
	if err != nil {
		s.logger.Error("Failed to release item claim", zap.Uint("item_id", item.ID), zap.Error(err))
	}
}

// sendToCollaborator appends the post to the sheet and launches the agent.
func (s *PublishService) sendToCollaborator(ctx context.Context, item *models.ContentItem) (*publisher.PublishResult, error) {
	if s.agentID == "" {
		return nil, fmt.Errorf("%w: publisher.phantombuster.agent_id", ErrMissingConfig)
	}
	if !hasContent(item) {
		return nil, fmt.Errorf("item %d: %w", item.ID, ErrEmptyContent)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.publisher.Publish(ctx, publisher.PublishContent{
		ItemID:   item.ID,
		Title:    item.Title,
		Content:  item.EffectiveContent(),
		Persona:  item.Persona,
		Industry: item.Industry,
		QueuedAt: s.now().UTC(),
	}, s.agentID)
}

// markPosted moves the claimed item to POSTED and drops the claim.
func (s *PublishService) markPosted(ctx context.Context, item *models.ContentItem, token string, pub *publisher.PublishResult) error {
	from := item.Status
	postedAt := pub.PublishedAt.UTC()
	if pub.PublishedAt.IsZero() {
		postedAt = s.now().UTC()
	}

	result := s.db.WithContext(ctx).Model(&models.ContentItem{}).
		Where("id = ? AND status = ? AND claim_token = ?", item.ID, from, token).
		Updates(map[string]any{
			"status":               models.StatusPosted,
			"posted_at":            postedAt,
			"post_url":             pub.URL,
			"phantom_container_id": pub.ContainerID,
			"error_message":        nil,
			"claim_token":          nil,
			"claimed_until":        nil,
		})
	if result.Error != nil {
		return storeError("mark item posted", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("content item %d left %s: %w", item.ID, from, ErrConflict)
	}

	writeHistory(ctx, s.db, s.logger, item.ID, &from, models.StatusPosted,
		fmt.Sprintf("Published via agent, container %s", pub.ContainerID))

	s.logger.Info("Content item posted",
		zap.Uint("item_id", item.ID),
		zap.String("container_id", pub.ContainerID))

	s.notifyPosted(ctx, item, pub)
	if s.analytics != nil {
		s.analytics.Invalidate(ctx)
	}
	if s.monitoring != nil {
		if err := s.monitoring.RecordMetric(ctx, "publish_success", MetricCounter, 1, map[string]any{"item_id": item.ID}); err != nil {
			s.logger.Warn("Failed to record metric", zap.Error(err))
		}
		if err := s.monitoring.ResolveErrors(ctx, item.ID); err != nil {
			s.logger.Warn("Failed to resolve error logs", zap.Uint("item_id", item.ID), zap.Error(err))
		}
	}
	return nil
}

// holdUnconfirmed handles a post that went out but could not be recorded.
// The claim is kept with no deadline so no run sends the item again, and the
// container id is stored next to the error for an operator to reconcile.
func (s *PublishService) holdUnconfirmed(ctx context.Context, item *models.ContentItem, token string, pub *publisher.PublishResult, cause error) {
	s.logger.Error("Published item could not be marked as posted",
		zap.Uint("item_id", item.ID),
		zap.String("container_id", pub.ContainerID),
		zap.Error(cause))

	updates := map[string]any{
		"phantom_container_id": pub.ContainerID,
		"claimed_until":        nil,
	}
	if item.Status == models.StatusScheduled {
		updates["error_message"] = fmt.Sprintf("published as container %s but not marked posted: %v", pub.ContainerID, cause)
	}
	err := s.db.WithContext(ctx).Model(&models.ContentItem{}).
		Where("id = ? AND status = ? AND claim_token = ?", item.ID, item.Status, token).
		Updates(updates).Error
	if err != nil {
		s.logger.Error("Failed to hold unconfirmed item", zap.Uint("item_id", item.ID), zap.Error(err))
	}
	s.recordError(ctx, item, "Failed to mark item as posted", cause)
}

func (s *PublishService) notifyPosted(ctx context.Context, item *models.ContentItem, pub *publisher.PublishResult) {
	if s.notifications == nil {
		return
	}
	_, err := s.notifications.Create(ctx, NotificationInput{
		Type:    models.NotificationContentPosted,
		Title:   "Post published",
		Message: fmt.Sprintf("%q was sent to LinkedIn", item.Title),
		Data: map[string]any{
			"item_id":      item.ID,
			"container_id": pub.ContainerID,
			"post_url":     pub.URL,
		},
	})
	if err != nil {
		s.logger.Warn("Failed to create notification", zap.Uint("item_id", item.ID), zap.Error(err))
	}
}

// recordFailure stores the reason on the item without moving it and drops
// the claim so the next run retries.
func (s *PublishService) recordFailure(ctx context.Context, item *models.ContentItem, token string, cause error) {
	message := cause.Error()
	err := s.db.WithContext(ctx).Model(&models.ContentItem{}).
		Where("id = ? AND status = ? AND claim_token = ?", item.ID, models.StatusScheduled, token).
		Updates(map[string]any{
			"error_message": message,
			"claim_token":   nil,
			"claimed_until": nil,
		}).Error
	if err != nil {
		s.logger.Error("Failed to store publish error", zap.Uint("item_id", item.ID), zap.Error(err))
	}

	s.logger.Warn("Failed to publish item",
		zap.Uint("item_id", item.ID),
		zap.String("reason", failureReason(cause)),
		zap.Error(cause))
	s.recordError(ctx, item, "Failed to publish scheduled item", cause)

	if s.monitoring != nil {
		if err := s.monitoring.RecordMetric(ctx, "publish_failure", MetricCounter, 1, map[string]any{
			"item_id": item.ID,
			"reason":  failureReason(cause),
		}); err != nil {
			s.logger.Warn("Failed to record metric", zap.Error(err))
		}
	}
}

func (s *PublishService) recordError(ctx context.Context, item *models.ContentItem, title string, cause error) {
	if s.monitoring == nil {
		return
	}
	err := s.monitoring.RecordError(ctx, LevelError, SourcePublisher, title, cause.Error(),
		WithContentItem(item.ID),
		WithContext(map[string]any{
			"title":  item.Title,
			"status": item.Status,
			"reason": failureReason(cause),
		}))
	if err != nil {
		s.logger.Warn("Failed to record error log", zap.Error(err))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, publisher.ErrSinkWrite):
		return "sink_write"
	case errors.Is(err, publisher.ErrAgentLaunch):
		return "agent_launch"
	case errors.Is(err, ErrMissingConfig):
		return "missing_config"
	case errors.Is(err, ErrEmptyContent):
		return "empty_content"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "unknown"
}

func hasContent(item *models.ContentItem) bool {
	return strings.TrimSpace(item.EffectiveContent()) != ""
}
