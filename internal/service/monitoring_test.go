package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/leadloom/leadloom/internal/models"
)

func TestMonitoringRecordAndResolve(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	m := NewMonitoringService(db, zaptest.NewLogger(t))

	require.NoError(t, m.RecordError(ctx, LevelError, SourcePublisher, "Failed to publish", "sink down",
		WithContentItem(7),
		WithContext(map[string]any{"reason": "sink_write"})))
	require.NoError(t, m.RecordError(ctx, LevelWarn, SourceGenerator, "AI fallback", "quota"))

	all, err := m.GetRecentErrors(ctx, ErrorFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	publisherErrs, err := m.GetRecentErrors(ctx, ErrorFilter{Source: SourcePublisher})
	require.NoError(t, err)
	require.Len(t, publisherErrs, 1)
	require.NotNil(t, publisherErrs[0].ContentItemID)
	assert.EqualValues(t, 7, *publisherErrs[0].ContentItemID)

	var errContext map[string]any
	require.NoError(t, json.Unmarshal(publisherErrs[0].Context, &errContext))
	assert.Equal(t, "sink_write", errContext["reason"])

	require.NoError(t, m.ResolveErrors(ctx, 7))
	open, err := m.GetRecentErrors(ctx, ErrorFilter{UnresolvedOnly: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, SourceGenerator, open[0].Source)
}

func TestMonitoringCleanupOldData(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	m := NewMonitoringService(db, zaptest.NewLogger(t))

	m.now = func() time.Time { return testNow.AddDate(0, 0, -40) }
	require.NoError(t, m.RecordMetric(ctx, "publish_success", MetricCounter, 1, map[string]any{"item_id": 1}))

	m.now = func() time.Time { return testNow }
	require.NoError(t, m.RecordMetric(ctx, "publish_success", MetricCounter, 1, nil))
	require.NoError(t, m.CleanupOldData(ctx, 30))

	var samples []models.MetricsSample
	require.NoError(t, db.Find(&samples).Error)
	require.Len(t, samples, 1)
	assert.True(t, samples[0].Timestamp.Equal(testNow))
}
