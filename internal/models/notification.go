package models

import (
	"time"

	"gorm.io/datatypes"
)

const NotificationContentPosted = "content_posted"

type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Type      string            `gorm:"size:100;not null;index" json:"type"`
	Title     string            `gorm:"size:500;not null" json:"title"`
	Message   string            `gorm:"type:text" json:"message"`
	Data      datatypes.JSONMap `json:"data"`
	Read      bool              `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}
