package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/leadloom/leadloom/internal/models"
)

type NotificationInput struct {
	Type    string
	Title   string
	Message string
	Data    map[string]any
}

type NotificationService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewNotificationService(db *gorm.DB, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		db:     db,
		logger: logger,
	}
}

func (s *NotificationService) Create(ctx context.Context, input NotificationInput) (*models.Notification, error) {
	notification := &models.Notification{
		Type:    input.Type,
		Title:   input.Title,
		Message: input.Message,
		Data:    datatypes.JSONMap(input.Data),
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, storeError("create notification", err)
	}

	s.logger.Debug("Created notification",
		zap.Uint("notification_id", notification.ID),
		zap.String("type", notification.Type))
	return notification, nil
}

// List returns notifications newest first.
func (s *NotificationService) List(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{})
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var notifications []models.Notification
	if err := query.Order("created_at desc, id desc").Find(&notifications).Error; err != nil {
		return nil, storeError("list notifications", err)
	}
	return notifications, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		return storeError("mark notification read", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
