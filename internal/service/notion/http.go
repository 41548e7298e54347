package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

func (c *Client) queryDatabase(ctx context.Context, databaseID, cursor string) (*DatabaseResponse, error) {
	endpoint := fmt.Sprintf("%s/v1/databases/%s/query", c.config.BaseURL, url.PathEscape(databaseID))

	body := map[string]any{
		"page_size": 100,
	}
	if c.config.StatusFilter != "" {
		body["filter"] = map[string]any{
			"property": "Status",
			"status": map[string]any{
				"equals": c.config.StatusFilter,
			},
		}
	}
	if cursor != "" {
		body["start_cursor"] = cursor
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	var response DatabaseResponse
	if err := c.do(req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// getAllBlocksRecursively fetches all blocks including children of blocks that have has_children: true
func (c *Client) getAllBlocksRecursively(ctx context.Context, blockID string) ([]map[string]any, error) {
	var allBlocks []map[string]any
	cursor := ""

	for {
		blocks, nextCursor, hasMore, err := c.getPageBlocks(ctx, blockID, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to get page blocks: %w", err)
		}

		for _, block := range blocks {
			allBlocks = append(allBlocks, block)

			if hasChildren, ok := block["has_children"].(bool); ok && hasChildren {
				if childID, ok := block["id"].(string); ok {
					children, err := c.getAllBlocksRecursively(ctx, childID)
					if err != nil {
						c.logger.Warn("Failed to fetch children blocks",
							zap.String("block_id", childID),
							zap.Error(err))
						continue
					}
					allBlocks = append(allBlocks, children...)
				}
			}
		}

		if !hasMore {
			break
		}
		cursor = nextCursor
	}

	return allBlocks, nil
}

func (c *Client) getPageBlocks(ctx context.Context, pageID, cursor string) ([]map[string]any, string, bool, error) {
	endpoint := fmt.Sprintf("%s/v1/blocks/%s/children", c.config.BaseURL, url.PathEscape(pageID))
	if cursor != "" {
		endpoint += "?start_cursor=" + url.QueryEscape(cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	var response struct {
		Results    []map[string]any `json:"results"`
		NextCursor string           `json:"next_cursor"`
		HasMore    bool             `json:"has_more"`
	}
	if err := c.do(req, &response); err != nil {
		return nil, "", false, err
	}
	return response.Results, response.NextCursor, response.HasMore, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Notion-Version", c.config.APIVersion)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notion API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
