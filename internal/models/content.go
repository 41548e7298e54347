package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Source types.
const (
	SourceTypeManual = "manual"
	SourceTypeFeed   = "feed"
	SourceTypeNotion = "notion"
)

// ContentSource is a named origin for post ideas.
type ContentSource struct {
	ID        uint                        `gorm:"primaryKey" json:"id"`
	Name      string                      `gorm:"size:255;not null" json:"name"`
	Type      string                      `gorm:"size:50;not null" json:"type"`
	URL       string                      `gorm:"size:1000" json:"url"`
	Summary   string                      `gorm:"type:text" json:"summary"`
	Keywords  datatypes.JSONSlice[string] `json:"keywords"`
	Industry  string                      `gorm:"size:255" json:"industry"`
	Persona   string                      `gorm:"size:255" json:"persona"`
	Active    bool                        `gorm:"not null" json:"active"`
	CreatedAt time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

// CtaTemplate is a reusable call-to-action block.
type CtaTemplate struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	TemplateText string    `gorm:"type:text;not null" json:"template_text"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ContentItem is one post candidate moving through the publishing workflow.
//
// GeneratedContent is written once at creation. ErrorMessage is only set while
// the item sits in SCHEDULED after a failed publish attempt.
//
// ClaimToken is set while a publish attempt owns the item and ClaimedUntil
// ends that ownership. A token with no deadline marks a post that went out
// but was never recorded; it blocks every run until the item is moved by hand.
type ContentItem struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	SourceID           *uint         `gorm:"index" json:"source_id"`
	Title              string        `gorm:"size:500;not null" json:"title"`
	GeneratedContent   string        `gorm:"type:text" json:"generated_content"`
	EditedContent      string        `gorm:"type:text" json:"edited_content"`
	Persona            string        `gorm:"size:255;index" json:"persona"`
	Industry           string        `gorm:"size:255;index" json:"industry"`
	Objective          string        `gorm:"size:100" json:"objective"`
	CtaID              *uint         `gorm:"index" json:"cta_id"`
	Status             ContentStatus `gorm:"size:20;not null;index" json:"status"`
	ScheduledAt        *time.Time    `gorm:"index" json:"scheduled_at"`
	PostedAt           *time.Time    `json:"posted_at"`
	PostURL            string        `gorm:"size:1000" json:"post_url"`
	PhantomContainerID string        `gorm:"size:255" json:"phantom_container_id"`
	ErrorMessage       *string       `gorm:"type:text" json:"error_message"`
	ClaimToken         *string       `gorm:"size:64;index" json:"-"`
	ClaimedUntil       *time.Time    `json:"-"`
	CreatedAt          time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// EffectiveContent is the text that gets published: the edited copy when it
// has anything in it, the generated copy otherwise.
func (c *ContentItem) EffectiveContent() string {
	if hasText(c.EditedContent) {
		return c.EditedContent
	}
	return c.GeneratedContent
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// ContentItemView is a ContentItem joined with its source and CTA names.
type ContentItemView struct {
	ContentItem
	SourceName *string `json:"source_name"`
	CtaName    *string `json:"cta_name"`
	CtaText    *string `json:"cta_text"`
}

// ContentItemHistory is an append-only audit row. FromStatus is nil for the
// creation row.
type ContentItemHistory struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ContentItemID uint           `gorm:"not null;index" json:"content_item_id"`
	FromStatus    *ContentStatus `gorm:"size:20" json:"from_status"`
	ToStatus      ContentStatus  `gorm:"size:20;not null" json:"to_status"`
	Note          string         `gorm:"type:text" json:"note"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`

	ContentItem *ContentItem `gorm:"foreignKey:ContentItemID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ContentItemHistory) TableName() string {
	return "content_item_history"
}
