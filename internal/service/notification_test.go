package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/leadloom/leadloom/internal/models"
)

func TestNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewNotificationService(newTestDB(t), zaptest.NewLogger(t))

	first, err := svc.Create(ctx, NotificationInput{
		Type:  models.NotificationContentPosted,
		Title: "Post published",
		Data:  map[string]any{"item_id": 3},
	})
	require.NoError(t, err)
	second, err := svc.Create(ctx, NotificationInput{Type: "import_finished", Title: "Import done"})
	require.NoError(t, err)

	all, err := svc.List(ctx, false, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.EqualValues(t, 3, all[1].Data["item_id"])

	require.NoError(t, svc.MarkRead(ctx, first.ID))
	unread, err := svc.List(ctx, true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, second.ID, unread[0].ID)

	assert.ErrorIs(t, svc.MarkRead(ctx, 999), ErrNotFound)
}
