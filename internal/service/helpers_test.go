package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/leadloom/leadloom/internal/config"
	"github.com/leadloom/leadloom/internal/models"
	"github.com/leadloom/leadloom/internal/service/notion"
	"github.com/leadloom/leadloom/internal/service/publisher"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// forceState puts an item straight into a status, bypassing the workflow.
func forceState(t *testing.T, db *gorm.DB, id uint, status models.ContentStatus, scheduledAt *time.Time) {
	t.Helper()
	updates := map[string]any{"status": status}
	if scheduledAt != nil {
		updates["scheduled_at"] = scheduledAt.UTC()
	}
	require.NoError(t, db.Model(&models.ContentItem{}).Where("id = ?", id).Updates(updates).Error)
}

func loadTestItem(t *testing.T, db *gorm.DB, id uint) models.ContentItem {
	t.Helper()
	var item models.ContentItem
	require.NoError(t, db.First(&item, id).Error)
	return item
}

func countHistory(t *testing.T, db *gorm.DB, id uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ContentItemHistory{}).Where("content_item_id = ?", id).Count(&n).Error)
	return n
}

type fakeGenerator struct {
	configured bool
	text       string
	err        error
	prompts    []string
}

func (g *fakeGenerator) IsConfigured() bool { return g.configured }

func (g *fakeGenerator) GenerateThoughtLeadershipPost(_ context.Context, promptContext, _ string) (string, error) {
	g.prompts = append(g.prompts, promptContext)
	return g.text, g.err
}

type fakeSeeds struct {
	seeds      []notion.Seed
	err        error
	databaseID string
}

func (f *fakeSeeds) IsConfigured() bool { return true }

func (f *fakeSeeds) FetchSeeds(_ context.Context, databaseID string) ([]notion.Seed, error) {
	f.databaseID = databaseID
	return f.seeds, f.err
}

type fakePublisher struct {
	mu        sync.Mutex
	calls     []uint
	contents  []publisher.PublishContent
	fail      map[uint]error
	onPublish func(publisher.PublishContent)
}

func (f *fakePublisher) Publish(_ context.Context, content publisher.PublishContent, agentID string) (*publisher.PublishResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, content.ItemID)
	f.contents = append(f.contents, content)
	f.mu.Unlock()

	if f.onPublish != nil {
		f.onPublish(content)
	}
	if err := f.fail[content.ItemID]; err != nil {
		return nil, err
	}
	return &publisher.PublishResult{
		ContainerID: fmt.Sprintf("container-%d", content.ItemID),
		URL:         fmt.Sprintf("https://www.linkedin.com/feed/update/%d", content.ItemID),
		PublishedAt: content.QueuedAt,
	}, nil
}
