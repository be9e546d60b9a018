package service

import (
	"context"
	"testing"

	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestNotificationService_ListDecodesMetadata(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	repo := repository.NewNotificationRepository(env.db)
	svc := NewNotificationService(repo)

	cv := env.openConversation(t, 1001, sellerUID, "hello")
	req.NoError(repo.Create(ctx, &model.Notification{
		UserUID: sellerUID, Type: "new_message", Title: "New message",
		Metadata: datatypes.JSON(`{"conversation_id":` + uintString(cv.ID) + `,"property_id":1001}`),
	}))
	req.NoError(repo.Create(ctx, &model.Notification{
		UserUID: sellerUID, Type: "listing_approved", Title: "Listing live",
		Metadata: datatypes.JSON(`[]`),
	}))
	req.NoError(repo.Create(ctx, &model.Notification{UserUID: buyerUID, Type: "new_message", Title: "other user"}))

	page, err := svc.List(ctx, sellerUID, true, 10)
	req.NoError(err)
	req.EqualValues(2, page.Unread)
	req.Len(page.Items, 2)

	referring := 0
	for _, n := range page.Items {
		if n.RefersTo(cv.ID) {
			referring++
			req.EqualValues(1001, n.Meta.PropertyID)
		}
	}
	req.Equal(1, referring)

	req.NoError(svc.MarkAllRead(ctx, sellerUID))
	page, err = svc.List(ctx, sellerUID, true, 10)
	req.NoError(err)
	req.Zero(page.Unread)
	req.Empty(page.Items)

	page, err = svc.List(ctx, sellerUID, false, 10)
	req.NoError(err)
	req.Len(page.Items, 2)

	_, err = svc.List(ctx, "", true, 10)
	req.ErrorIs(err, ErrInvalidInput)
}

func TestConversationNotification_RefersTo(t *testing.T) {
	n := ConversationNotification{Meta: model.NotificationMetadata{ConversationID: 3}}
	require.True(t, n.RefersTo(3))
	require.False(t, n.RefersTo(4))
	require.False(t, ConversationNotification{}.RefersTo(0))
}
