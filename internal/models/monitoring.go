package models

import (
	"time"

	"gorm.io/datatypes"
)

// ErrorLog records a failure worth surfacing outside the process log.
type ErrorLog struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Level         string         `gorm:"size:20;not null;index" json:"level"`   // ERROR, WARN, INFO
	Source        string         `gorm:"size:100;not null;index" json:"source"` // publisher, scheduler, generator
	ContentItemID *uint          `gorm:"index" json:"content_item_id"`
	Title         string         `gorm:"size:500;not null" json:"title"`
	Message       string         `gorm:"type:text;not null" json:"message"`
	Context       datatypes.JSON `json:"context"`
	Resolved      bool           `gorm:"default:false;index" json:"resolved"`
	ResolvedAt    *time.Time     `json:"resolved_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// MetricsSample is a single counter or gauge observation.
type MetricsSample struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	MetricName string         `gorm:"size:100;not null;index" json:"metric_name"`
	MetricType string         `gorm:"size:50;not null" json:"metric_type"` // gauge, counter
	Value      float64        `gorm:"not null" json:"value"`
	Tags       datatypes.JSON `json:"tags"`
	Timestamp  time.Time      `gorm:"not null;index" json:"timestamp"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
