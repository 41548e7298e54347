package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leadloom/leadloom/internal/models"
	"github.com/leadloom/leadloom/internal/service/ai"
	"github.com/leadloom/leadloom/internal/service/notion"
	"github.com/leadloom/leadloom/pkg/util"
)

// SeedSource lists idea seeds stored outside the database.
type SeedSource interface {
	IsConfigured() bool
	FetchSeeds(ctx context.Context, databaseID string) ([]notion.Seed, error)
}

type ContentFilter struct {
	// Status is a status name, "ALL" or empty.
	Status    string
	Persona   string
	Industry  string
	Objective string
	SourceID  *uint
	Limit     int
}

type GenerateIdeaParams struct {
	SourceID  *uint  `json:"source_id"`
	Topic     string `json:"topic"`
	Context   string `json:"context"`
	Persona   string `json:"persona"`
	Industry  string `json:"industry"`
	Objective string `json:"objective"`
	CtaID     *uint  `json:"cta_id"`
	Style     string `json:"style"`
}

type CreateManualParams struct {
	SourceID  *uint  `json:"source_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Persona   string `json:"persona"`
	Industry  string `json:"industry"`
	Objective string `json:"objective"`
	CtaID     *uint  `json:"cta_id"`
}

type TransitionOptions struct {
	ScheduledAt *time.Time
	Note        string
}

type ContentService struct {
	db        *gorm.DB
	generator ai.Generator
	seeds     SeedSource
	logger    *zap.Logger
	now       func() time.Time
}

func NewContentService(db *gorm.DB, generator ai.Generator, seeds SeedSource, logger *zap.Logger) *ContentService {
	return &ContentService{
		db:        db,
		generator: generator,
		seeds:     seeds,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ContentService) viewQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("content_items AS ci").
		Select("ci.*, cs.name AS source_name, ct.name AS cta_name, ct.template_text AS cta_text").
		Joins("LEFT JOIN content_sources cs ON cs.id = ci.source_id").
		Joins("LEFT JOIN cta_templates ct ON ct.id = ci.cta_id")
}

// ListItems returns matching items newest first.
func (s *ContentService) ListItems(ctx context.Context, filter ContentFilter) ([]models.ContentItemView, error) {
	query := s.viewQuery(ctx)

	if status := strings.TrimSpace(filter.Status); status != "" && !strings.EqualFold(status, "ALL") {
		parsed, err := models.ParseContentStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
		}
		query = query.Where("ci.status = ?", parsed)
	}
	if persona := strings.TrimSpace(filter.Persona); persona != "" {
		query = query.Where("LOWER(ci.persona) LIKE ?", "%"+strings.ToLower(persona)+"%")
	}
	if industry := strings.TrimSpace(filter.Industry); industry != "" {
		query = query.Where("LOWER(ci.industry) LIKE ?", "%"+strings.ToLower(industry)+"%")
	}
	if filter.Objective != "" {
		query = query.Where("ci.objective = ?", filter.Objective)
	}
	if filter.SourceID != nil {
		query = query.Where("ci.source_id = ?", *filter.SourceID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	items := []models.ContentItemView{}
	if err := query.Order("ci.created_at DESC, ci.id DESC").Scan(&items).Error; err != nil {
		return nil, storeError("list content items", err)
	}
	return items, nil
}

// GetItem returns nil, nil when the item does not exist.
func (s *ContentService) GetItem(ctx context.Context, id uint) (*models.ContentItemView, error) {
	var items []models.ContentItemView
	if err := s.viewQuery(ctx).Where("ci.id = ?", id).Limit(1).Scan(&items).Error; err != nil {
		return nil, storeError("get content item", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (s *ContentService) loadItem(ctx context.Context, id uint) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("content item %d: %w", id, ErrNotFound)
		}
		return nil, storeError("load content item", err)
	}
	return &item, nil
}

func (s *ContentService) loadSource(ctx context.Context, id *uint) (*models.ContentSource, error) {
	if id == nil {
		return nil, nil
	}
	var source models.ContentSource
	if err := s.db.WithContext(ctx).First(&source, *id).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("content source %d: %w", *id, ErrNotFound)
		}
		return nil, storeError("load content source", err)
	}
	return &source, nil
}

func (s *ContentService) loadCta(ctx context.Context, id *uint) (*models.CtaTemplate, error) {
	if id == nil {
		return nil, nil
	}
	var cta models.CtaTemplate
	if err := s.db.WithContext(ctx).First(&cta, *id).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("cta template %d: %w", *id, ErrNotFound)
		}
		return nil, storeError("load cta template", err)
	}
	return &cta, nil
}

// GenerateIdea creates an IDEA item from a topic or source, using the AI
// generator when it is configured and the built-in template otherwise.
func (s *ContentService) GenerateIdea(ctx context.Context, params GenerateIdeaParams) (*models.ContentItem, error) {
	cta, err := s.loadCta(ctx, params.CtaID)
	if err != nil {
		return nil, err
	}
	source, err := s.loadSource(ctx, params.SourceID)
	if err != nil {
		return nil, err
	}

	persona := strings.TrimSpace(params.Persona)
	industry := strings.TrimSpace(params.Industry)
	if source != nil {
		if persona == "" {
			persona = source.Persona
		}
		if industry == "" {
			industry = source.Industry
		}
	}

	title := resolveTitle(params.Topic, source, persona, industry)
	promptContext := buildPromptContext(params.Topic, source, params.Context, persona, industry, params.Objective)

	body := s.generateBody(ctx, promptContext, params.Style)
	if body == "" {
		body = templatePost(title, persona, industry, params.Objective)
	}
	if cta != nil {
		body = appendCallToAction(body, cta.TemplateText)
	}

	item := &models.ContentItem{
		SourceID:         params.SourceID,
		Title:            title,
		GeneratedContent: body,
		EditedContent:    body,
		Persona:          persona,
		Industry:         industry,
		Objective:        params.Objective,
		CtaID:            params.CtaID,
		Status:           models.StatusIdea,
	}
	if err := s.createItem(ctx, item, "Idea generated"); err != nil {
		return nil, err
	}

	s.logger.Info("Generated content idea",
		zap.Uint("item_id", item.ID),
		zap.String("title", item.Title))
	return item, nil
}

// generateBody returns "" whenever the template should be used instead.
func (s *ContentService) generateBody(ctx context.Context, promptContext, style string) string {
	if s.generator == nil || !s.generator.IsConfigured() {
		return ""
	}
	text, err := s.generator.GenerateThoughtLeadershipPost(ctx, promptContext, style)
	if err != nil {
		s.logger.Warn("AI generation failed, using template", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(text)
}

// CreateManual creates an IDEA item from caller-supplied text.
func (s *ContentService) CreateManual(ctx context.Context, params CreateManualParams) (*models.ContentItem, error) {
	cta, err := s.loadCta(ctx, params.CtaID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadSource(ctx, params.SourceID); err != nil {
		return nil, err
	}

	title := util.Truncate(strings.TrimSpace(params.Title), maxTitleRunes)
	if title == "" {
		title = "Untitled"
	}
	body := params.Content
	if cta != nil {
		body = appendCallToAction(body, cta.TemplateText)
	}

	item := &models.ContentItem{
		SourceID:         params.SourceID,
		Title:            title,
		GeneratedContent: body,
		EditedContent:    body,
		Persona:          strings.TrimSpace(params.Persona),
		Industry:         strings.TrimSpace(params.Industry),
		Objective:        params.Objective,
		CtaID:            params.CtaID,
		Status:           models.StatusIdea,
	}
	if err := s.createItem(ctx, item, "Created manually"); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ContentService) createItem(ctx context.Context, item *models.ContentItem, note string) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return storeError("create content item", err)
	}
	s.recordHistory(ctx, item.ID, nil, item.Status, note)
	return nil
}

// UpdateContent replaces the edited copy. The generated copy is never touched.
func (s *ContentService) UpdateContent(ctx context.Context, id uint, text string) (*models.ContentItem, error) {
	if _, err := s.loadItem(ctx, id); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Model(&models.ContentItem{}).
		Where("id = ?", id).
		Update("edited_content", text).Error
	if err != nil {
		return nil, storeError("update content", err)
	}
	return s.loadItem(ctx, id)
}

// Transition moves an item along one edge of the workflow.
func (s *ContentService) Transition(ctx context.Context, id uint, to models.ContentStatus, opts TransitionOptions) (*models.ContentItem, error) {
	item, err := s.loadItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(item.Status, to); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updates := map[string]any{
		"status":        to,
		"claim_token":   nil,
		"claimed_until": nil,
	}

	if to == models.StatusScheduled {
		if opts.ScheduledAt == nil {
			return nil, fmt.Errorf("%w: scheduled_at is required to schedule an item", ErrMissingParameter)
		}
		if !opts.ScheduledAt.After(now) {
			return nil, fmt.Errorf("%w: scheduled_at %s is not in the future",
				ErrInvalidSchedule, opts.ScheduledAt.UTC().Format(time.RFC3339))
		}
		updates["scheduled_at"] = opts.ScheduledAt.UTC()
	}
	if item.Status == models.StatusScheduled {
		updates["error_message"] = nil
	}
	if to == models.StatusPosted {
		updates["posted_at"] = now
	}

	// An item with a live publish claim is being sent right now.
	result := s.db.WithContext(ctx).Model(&models.ContentItem{}).
		Where("id = ? AND status = ?", id, item.Status).
		Where("(claimed_until IS NULL OR claimed_until < ?)", now).
		Updates(updates)
	if result.Error != nil {
		return nil, storeError("update status", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("content item %d left %s or is being published: %w", id, item.Status, ErrConflict)
	}

	from := item.Status
	s.recordHistory(ctx, id, &from, to, opts.Note)

	s.logger.Info("Content item transitioned",
		zap.Uint("item_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return s.loadItem(ctx, id)
}

// DeleteItem removes the item and its history in one transaction.
func (s *ContentService) DeleteItem(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_item_id = ?", id).Delete(&models.ContentItemHistory{}).Error; err != nil {
			return storeError("delete history", err)
		}
		result := tx.Delete(&models.ContentItem{}, id)
		if result.Error != nil {
			return storeError("delete content item", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("content item %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// GetHistory returns the item's history oldest first.
func (s *ContentService) GetHistory(ctx context.Context, id uint) ([]models.ContentItemHistory, error) {
	history := []models.ContentItemHistory{}
	err := s.db.WithContext(ctx).
		Where("content_item_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&history).Error
	if err != nil {
		return nil, storeError("get history", err)
	}
	return history, nil
}

// recordHistory never fails the caller; a lost audit row is only logged.
func (s *ContentService) recordHistory(ctx context.Context, itemID uint, from *models.ContentStatus, to models.ContentStatus, note string) {
	writeHistory(ctx, s.db, s.logger, itemID, from, to, note)
}

func writeHistory(ctx context.Context, db *gorm.DB, logger *zap.Logger, itemID uint, from *models.ContentStatus, to models.ContentStatus, note string) {
	entry := &models.ContentItemHistory{
		ContentItemID: itemID,
		FromStatus:    from,
		ToStatus:      to,
		Note:          note,
	}
	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.Warn("Failed to record content history",
			zap.Uint("item_id", itemID),
			zap.String("to", string(to)),
			zap.Error(err))
	}
}

// ImportFromSource turns every new page of a Notion source into an IDEA item.
// Pages whose title already exists as an item of the source are skipped.
func (s *ContentService) ImportFromSource(ctx context.Context, sourceID uint) ([]models.ContentItem, error) {
	source, err := s.loadSource(ctx, &sourceID)
	if err != nil {
		return nil, err
	}
	if source.Type != models.SourceTypeNotion {
		return nil, fmt.Errorf("%w: source %d has type %s, only %s sources can be imported",
			ErrInvalidState, sourceID, source.Type, models.SourceTypeNotion)
	}
	if !source.Active {
		return nil, fmt.Errorf("%w: source %d is inactive", ErrInvalidState, sourceID)
	}
	if s.seeds == nil || !s.seeds.IsConfigured() {
		return nil, fmt.Errorf("%w: notion token", ErrMissingConfig)
	}

	seeds, err := s.seeds.FetchSeeds(ctx, source.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seeds for source %d: %w", sourceID, err)
	}

	var existing []string
	err = s.db.WithContext(ctx).Model(&models.ContentItem{}).
		Where("source_id = ?", sourceID).
		Pluck("title", &existing).Error
	if err != nil {
		return nil, storeError("load existing titles", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, title := range existing {
		seen[title] = true
	}

	created := []models.ContentItem{}
	for _, seed := range seeds {
		title := strings.TrimSpace(seed.Title)
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true

		item, err := s.GenerateIdea(ctx, GenerateIdeaParams{
			SourceID: &sourceID,
			Topic:    title,
			Context:  seed.Summary,
			Persona:  seed.Persona,
			Industry: seed.Industry,
		})
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				return created, err
			}
			s.logger.Warn("Failed to import seed",
				zap.String("page_id", seed.PageID),
				zap.Error(err))
			continue
		}
		created = append(created, *item)
	}

	s.logger.Info("Imported ideas from source",
		zap.Uint("source_id", sourceID),
		zap.Int("seeds", len(seeds)),
		zap.Int("created", len(created)))
	return created, nil
}
