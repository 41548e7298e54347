package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

var ErrNotConfigured = errors.New("ai generator is not configured")

// Generator writes LinkedIn posts from a short prompt context.
type Generator interface {
	IsConfigured() bool
	GenerateThoughtLeadershipPost(ctx context.Context, promptContext, style string) (string, error)
}

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int32
	Timeout     time.Duration
}

const (
	DefaultModel = "gemini-2.5-flash"
	DefaultStyle = "thought_leadership"
)

// GeminiGenerator generates posts with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	config Config
	logger *zap.Logger
}

// NewGeminiGenerator returns a generator that reports IsConfigured() == false
// when no API key is set. Creating the client is the only failure path.
func NewGeminiGenerator(ctx context.Context, cfg Config, logger *zap.Logger) (*GeminiGenerator, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	g := &GeminiGenerator{config: cfg, logger: logger}
	if cfg.APIKey == "" {
		logger.Info("AI generator disabled, no API key configured")
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *GeminiGenerator) IsConfigured() bool {
	return g != nil && g.client != nil
}

func (g *GeminiGenerator) GenerateThoughtLeadershipPost(ctx context.Context, promptContext, style string) (string, error) {
	if !g.IsConfigured() {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	if g.config.Temperature > 0 {
		temperature := g.config.Temperature
		config.Temperature = &temperature
	}
	if g.config.MaxTokens > 0 {
		config.MaxOutputTokens = g.config.MaxTokens
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx,
		g.config.Model,
		[]*genai.Content{genai.NewContentFromText(BuildPrompt(promptContext, style), genai.RoleUser)},
		config,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate post: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	g.logger.Debug("Generated post",
		zap.String("model", g.config.Model),
		zap.Int("length", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

const systemPrompt = `You write LinkedIn posts for B2B founders and sales leaders.
Write in first person, plain language, no emojis, at most 1300 characters.
Use short paragraphs and end with one question that invites replies.`

// BuildPrompt turns the generation context and style into the user prompt.
func BuildPrompt(promptContext, style string) string {
	if style == "" {
		style = DefaultStyle
	}
	var sb strings.Builder
	sb.WriteString("Style: ")
	sb.WriteString(strings.ReplaceAll(style, "_", " "))
	sb.WriteString("\n\nContext:\n")
	sb.WriteString(strings.TrimSpace(promptContext))
	sb.WriteString("\n\nReturn only the post text.")
	return sb.String()
}
