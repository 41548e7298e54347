package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/leadloom/leadloom/internal/models"
)

type SourceInput struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	URL      string   `json:"url"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Industry string   `json:"industry"`
	Persona  string   `json:"persona"`
	Active   *bool    `json:"active"`
}

type CtaInput struct {
	Name         string `json:"name"`
	TemplateText string `json:"template_text"`
}

// SourceService manages the catalogue of content sources and CTA templates.
type SourceService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSourceService(db *gorm.DB, logger *zap.Logger) *SourceService {
	return &SourceService{
		db:     db,
		logger: logger,
	}
}

func validateSourceInput(input SourceInput) (string, error) {
	if strings.TrimSpace(input.Name) == "" {
		return "", fmt.Errorf("%w: name", ErrMissingParameter)
	}
	sourceType := strings.ToLower(strings.TrimSpace(input.Type))
	switch sourceType {
	case "":
		sourceType = models.SourceTypeManual
	case models.SourceTypeManual, models.SourceTypeFeed:
	case models.SourceTypeNotion:
		if strings.TrimSpace(input.URL) == "" {
			return "", fmt.Errorf("%w: url must hold the notion database id", ErrMissingParameter)
		}
	default:
		return "", fmt.Errorf("%w: unknown source type %q", ErrInvalidParameter, input.Type)
	}
	return sourceType, nil
}

// ListSources returns sources ordered by name. activeOnly hides inactive ones.
func (s *SourceService) ListSources(ctx context.Context, activeOnly bool) ([]models.ContentSource, error) {
	query := s.db.WithContext(ctx).Model(&models.ContentSource{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	sources := []models.ContentSource{}
	if err := query.Order("name ASC, id ASC").Find(&sources).Error; err != nil {
		return nil, storeError("list sources", err)
	}
	return sources, nil
}

func (s *SourceService) GetSource(ctx context.Context, id uint) (*models.ContentSource, error) {
	var source models.ContentSource
	if err := s.db.WithContext(ctx).First(&source, id).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("content source %d: %w", id, ErrNotFound)
		}
		return nil, storeError("get source", err)
	}
	return &source, nil
}

func (s *SourceService) CreateSource(ctx context.Context, input SourceInput) (*models.ContentSource, error) {
	sourceType, err := validateSourceInput(input)
	if err != nil {
		return nil, err
	}

	source := &models.ContentSource{
		Name:     strings.TrimSpace(input.Name),
		Type:     sourceType,
		URL:      strings.TrimSpace(input.URL),
		Summary:  input.Summary,
		Keywords: datatypes.JSONSlice[string](nonNilStrings(input.Keywords)),
		Industry: strings.TrimSpace(input.Industry),
		Persona:  strings.TrimSpace(input.Persona),
		Active:   input.Active == nil || *input.Active,
	}
	if err := s.db.WithContext(ctx).Create(source).Error; err != nil {
		return nil, storeError("create source", err)
	}

	s.logger.Info("Created content source",
		zap.Uint("source_id", source.ID),
		zap.String("type", source.Type))
	return source, nil
}

func (s *SourceService) UpdateSource(ctx context.Context, id uint, input SourceInput) (*models.ContentSource, error) {
	source, err := s.GetSource(ctx, id)
	if err != nil {
		return nil, err
	}
	sourceType, err := validateSourceInput(input)
	if err != nil {
		return nil, err
	}

	source.Name = strings.TrimSpace(input.Name)
	source.Type = sourceType
	source.URL = strings.TrimSpace(input.URL)
	source.Summary = input.Summary
	source.Keywords = datatypes.JSONSlice[string](nonNilStrings(input.Keywords))
	source.Industry = strings.TrimSpace(input.Industry)
	source.Persona = strings.TrimSpace(input.Persona)
	if input.Active != nil {
		source.Active = *input.Active
	}

	if err := s.db.WithContext(ctx).Save(source).Error; err != nil {
		return nil, storeError("update source", err)
	}
	return source, nil
}

// DeleteSource removes the source. Items keep their dangling source_id.
func (s *SourceService) DeleteSource(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.ContentSource{}, id)
	if result.Error != nil {
		return storeError("delete source", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("content source %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SourceService) ListCtas(ctx context.Context) ([]models.CtaTemplate, error) {
	ctas := []models.CtaTemplate{}
	if err := s.db.WithContext(ctx).Order("name ASC, id ASC").Find(&ctas).Error; err != nil {
		return nil, storeError("list cta templates", err)
	}
	return ctas, nil
}

func (s *SourceService) GetCta(ctx context.Context, id uint) (*models.CtaTemplate, error) {
	var cta models.CtaTemplate
	if err := s.db.WithContext(ctx).First(&cta, id).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("cta template %d: %w", id, ErrNotFound)
		}
		return nil, storeError("get cta template", err)
	}
	return &cta, nil
}

func validateCtaInput(input CtaInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name", ErrMissingParameter)
	}
	if strings.TrimSpace(input.TemplateText) == "" {
		return fmt.Errorf("%w: template_text", ErrMissingParameter)
	}
	return nil
}

func (s *SourceService) CreateCta(ctx context.Context, input CtaInput) (*models.CtaTemplate, error) {
	if err := validateCtaInput(input); err != nil {
		return nil, err
	}
	cta := &models.CtaTemplate{
		Name:         strings.TrimSpace(input.Name),
		TemplateText: strings.TrimSpace(input.TemplateText),
	}
	if err := s.db.WithContext(ctx).Create(cta).Error; err != nil {
		return nil, storeError("create cta template", err)
	}
	return cta, nil
}

func (s *SourceService) UpdateCta(ctx context.Context, id uint, input CtaInput) (*models.CtaTemplate, error) {
	cta, err := s.GetCta(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateCtaInput(input); err != nil {
		return nil, err
	}
	cta.Name = strings.TrimSpace(input.Name)
	cta.TemplateText = strings.TrimSpace(input.TemplateText)
	if err := s.db.WithContext(ctx).Save(cta).Error; err != nil {
		return nil, storeError("update cta template", err)
	}
	return cta, nil
}

// DeleteCta removes the template. Items that referenced it keep their copy of
// the text in their content.
func (s *SourceService) DeleteCta(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.CtaTemplate{}, id)
	if result.Error != nil {
		return storeError("delete cta template", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("cta template %d: %w", id, ErrNotFound)
	}
	return nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
