package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/leadloom/leadloom/internal/models"
)

func TestSourceCatalogue(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewSourceService(db, zaptest.NewLogger(t))

	_, err := svc.CreateSource(ctx, SourceInput{Type: "feed"})
	assert.ErrorIs(t, err, ErrMissingParameter)
	_, err = svc.CreateSource(ctx, SourceInput{Name: "X", Type: "podcast"})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = svc.CreateSource(ctx, SourceInput{Name: "X", Type: "notion"})
	assert.ErrorIs(t, err, ErrMissingParameter)

	blog, err := svc.CreateSource(ctx, SourceInput{Name: "Blog", Type: "FEED", Keywords: []string{"cash", "ops"}})
	require.NoError(t, err)
	assert.Equal(t, models.SourceTypeFeed, blog.Type)
	assert.True(t, blog.Active)

	off := false
	archive, err := svc.CreateSource(ctx, SourceInput{Name: "Archive", Active: &off})
	require.NoError(t, err)
	assert.Equal(t, models.SourceTypeManual, archive.Type)

	active, err := svc.ListSources(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, []string{"cash", "ops"}, []string(active[0].Keywords))

	all, err := svc.ListSources(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	updated, err := svc.UpdateSource(ctx, archive.ID, SourceInput{Name: "Archive 2024", Summary: "Old posts"})
	require.NoError(t, err)
	assert.Equal(t, "Archive 2024", updated.Name)
	assert.False(t, updated.Active)

	require.NoError(t, svc.DeleteSource(ctx, archive.ID))
	_, err = svc.GetSource(ctx, archive.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteSource(ctx, archive.ID), ErrNotFound)
}

func TestSourceDeleteLeavesItemsDangling(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	logger := zaptest.NewLogger(t)
	sources := NewSourceService(db, logger)
	content := NewContentService(db, nil, nil, logger)

	source, err := sources.CreateSource(ctx, SourceInput{Name: "Blog"})
	require.NoError(t, err)
	item, err := content.CreateManual(ctx, CreateManualParams{Title: "A", SourceID: &source.ID})
	require.NoError(t, err)

	require.NoError(t, sources.DeleteSource(ctx, source.ID))

	view, err := content.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	require.NotNil(t, view.SourceID)
	assert.Equal(t, source.ID, *view.SourceID)
	assert.Nil(t, view.SourceName)
}

func TestCtaCatalogue(t *testing.T) {
	ctx := context.Background()
	svc := NewSourceService(newTestDB(t), zaptest.NewLogger(t))

	_, err := svc.CreateCta(ctx, CtaInput{Name: "Empty"})
	assert.ErrorIs(t, err, ErrMissingParameter)

	cta, err := svc.CreateCta(ctx, CtaInput{Name: " Demo ", TemplateText: " Book a demo. "})
	require.NoError(t, err)
	assert.Equal(t, "Demo", cta.Name)
	assert.Equal(t, "Book a demo.", cta.TemplateText)

	updated, err := svc.UpdateCta(ctx, cta.ID, CtaInput{Name: "Demo", TemplateText: "Grab 15 minutes."})
	require.NoError(t, err)
	assert.Equal(t, "Grab 15 minutes.", updated.TemplateText)

	list, err := svc.ListCtas(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteCta(ctx, cta.ID))
	_, err = svc.GetCta(ctx, cta.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
