package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = "https://api.notion.com"
	DefaultAPIVersion = "2022-06-28"
)

type Config struct {
	BaseURL    string
	Token      string
	APIVersion string
	// StatusFilter limits database queries to pages whose Status equals it.
	StatusFilter string
}

type (
	DatabaseResponse struct {
		Results    []PageResponse `json:"results"`
		NextCursor string         `json:"next_cursor"`
		HasMore    bool           `json:"has_more"`
	}

	PageResponse struct {
		ID             string         `json:"id"`
		CreatedTime    string         `json:"created_time"`
		LastEditedTime string         `json:"last_edited_time"`
		Properties     map[string]any `json:"properties"`
	}
)

// Seed is one Notion page reduced to what idea generation needs.
type Seed struct {
	PageID     string
	Title      string
	Summary    string
	Tags       []string
	Persona    string
	Industry   string
	LastEdited time.Time
}

// Client reads idea seeds out of a Notion database.
type Client struct {
	config Config
	logger *zap.Logger
	client *http.Client
}

func NewClient(config Config, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.APIVersion == "" {
		config.APIVersion = DefaultAPIVersion
	}
	tr := &http.Transport{
		IdleConnTimeout:       120 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   10,
		TLSHandshakeTimeout:   20 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
	}
	return &Client{
		config: config,
		logger: logger,
		client: &http.Client{
			Transport: tr,
			Timeout:   30 * time.Second,
		},
	}
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.config.Token != ""
}

var ErrNotConfigured = errors.New("notion token is not configured")

// FetchSeeds walks every page of the database and returns one seed per page.
// Pages without a summary property fall back to the text of their blocks.
func (c *Client) FetchSeeds(ctx context.Context, databaseID string) ([]Seed, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if databaseID == "" {
		return nil, fmt.Errorf("notion database id is required")
	}

	c.logger.Info("Fetching Notion seeds", zap.String("database_id", databaseID))

	var seeds []Seed
	cursor := ""
	for {
		response, err := c.queryDatabase(ctx, databaseID, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to query database: %w", err)
		}

		for _, page := range response.Results {
			seed := pageToSeed(page)
			if seed.Summary == "" {
				text, err := c.pageText(ctx, page.ID)
				if err != nil {
					c.logger.Warn("Failed to get page content", zap.String("page_id", page.ID), zap.Error(err))
				}
				seed.Summary = text
			}
			seeds = append(seeds, seed)
		}

		if !response.HasMore {
			break
		}
		cursor = response.NextCursor
	}

	c.logger.Info("Fetched Notion seeds",
		zap.String("database_id", databaseID),
		zap.Int("count", len(seeds)))
	return seeds, nil
}

func pageToSeed(page PageResponse) Seed {
	seed := Seed{
		PageID:   page.ID,
		Title:    extractTitle(page.Properties),
		Summary:  extractRichText(page.Properties, "Summary"),
		Tags:     extractMultiSelect(page.Properties, "Tags"),
		Persona:  extractSelect(page.Properties, "Persona"),
		Industry: extractSelect(page.Properties, "Industry"),
	}
	if t, err := time.Parse(time.RFC3339, page.LastEditedTime); err == nil {
		seed.LastEdited = t
	}
	return seed
}

// pageText concatenates the plain text of the page's text-bearing blocks.
func (c *Client) pageText(ctx context.Context, pageID string) (string, error) {
	blocks, err := c.getAllBlocksRecursively(ctx, pageID)
	if err != nil {
		return "", fmt.Errorf("failed to get page blocks recursively: %w", err)
	}

	var lines []string
	for _, block := range blocks {
		if text := blockPlainText(block); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}
