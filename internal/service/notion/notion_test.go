package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func titleProp(text string) map[string]any {
	return map[string]any{
		"type":  "title",
		"title": []any{map[string]any{"plain_text": text}},
	}
}

func richTextProp(text string) map[string]any {
	return map[string]any{
		"type":      "rich_text",
		"rich_text": []any{map[string]any{"plain_text": text}},
	}
}

func newNotionServer(t *testing.T) (*httptest.Server, *[]map[string]any) {
	var queries []map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/databases/db-1/query", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultAPIVersion, r.Header.Get("Notion-Version"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		queries = append(queries, body)

		if body["start_cursor"] == nil {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []any{map[string]any{
					"id":               "page-1",
					"last_edited_time": "2026-02-01T10:00:00Z",
					"properties": map[string]any{
						"Name":     titleProp("Working capital"),
						"Summary":  richTextProp("Why CFOs watch inventory days"),
						"Industry": map[string]any{"type": "select", "select": map[string]any{"name": "Chemical"}},
						"Tags": map[string]any{"type": "multi_select", "multi_select": []any{
							map[string]any{"name": "finance"},
							map[string]any{"name": "ops"},
						}},
					},
				}},
				"has_more":    true,
				"next_cursor": "cursor-2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []any{map[string]any{
				"id":         "page-2",
				"properties": map[string]any{"Name": titleProp("Plant safety")},
			}},
			"has_more": false,
		})
	})
	mux.HandleFunc("/v1/blocks/page-2/children", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []any{
				map[string]any{"id": "b1", "type": "paragraph", "paragraph": map[string]any{
					"rich_text": []any{map[string]any{"plain_text": "First line"}},
				}},
				map[string]any{"id": "b2", "type": "divider", "divider": map[string]any{}},
				map[string]any{"id": "b3", "type": "toggle", "has_children": true, "toggle": map[string]any{}},
			},
		})
	})
	mux.HandleFunc("/v1/blocks/b3/children", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []any{
				map[string]any{"id": "b4", "type": "bulleted_list_item", "bulleted_list_item": map[string]any{
					"rich_text": []any{map[string]any{"plain_text": "Nested point"}},
				}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &queries
}

func TestFetchSeedsPaginatesAndExtracts(t *testing.T) {
	srv, queries := newNotionServer(t)
	c := NewClient(Config{BaseURL: srv.URL, Token: "secret", StatusFilter: "Ready"}, zaptest.NewLogger(t))

	seeds, err := c.FetchSeeds(context.Background(), "db-1")
	require.NoError(t, err)
	require.Len(t, seeds, 2)

	assert.Equal(t, "page-1", seeds[0].PageID)
	assert.Equal(t, "Working capital", seeds[0].Title)
	assert.Equal(t, "Why CFOs watch inventory days", seeds[0].Summary)
	assert.Equal(t, "Chemical", seeds[0].Industry)
	assert.Equal(t, []string{"finance", "ops"}, seeds[0].Tags)
	assert.Equal(t, 2026, seeds[0].LastEdited.Year())

	assert.Equal(t, "Plant safety", seeds[1].Title)
	assert.Equal(t, "First line\nNested point", seeds[1].Summary)

	require.Len(t, *queries, 2)
	assert.Equal(t, "cursor-2", (*queries)[1]["start_cursor"])
	filter, ok := (*queries)[0]["filter"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Status", filter["property"])
}

func TestFetchSeedsErrors(t *testing.T) {
	unconfigured := NewClient(Config{}, zaptest.NewLogger(t))
	_, err := unconfigured.FetchSeeds(context.Background(), "db-1")
	assert.ErrorIs(t, err, ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Token: "bad"}, zaptest.NewLogger(t))
	_, err = c.FetchSeeds(context.Background(), "db-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")

	_, err = c.FetchSeeds(context.Background(), "")
	assert.Error(t, err)
}

func TestExtractMultiSelectFromRichText(t *testing.T) {
	properties := map[string]any{
		"Tags":   richTextProp(`[finance, "ops", ]`),
		"Status": map[string]any{"type": "status"},
	}
	assert.Equal(t, []string{"finance", "ops"}, extractMultiSelect(properties, "Tags"))
	assert.Nil(t, extractMultiSelect(properties, "Status"))
	assert.Nil(t, extractMultiSelect(properties, "Missing"))
}
