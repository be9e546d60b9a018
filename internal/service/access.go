package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shinyyama/estate-backend/internal/changefeed"
	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/repository"
	"gorm.io/gorm"
)

// loadForParticipant returns the conversation only if uid is its buyer or seller.
func loadForParticipant(ctx context.Context, convs repository.ConversationRepository, convID uint64, uid string) (*model.Conversation, error) {
	cv, err := convs.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !cv.HasParticipant(uid) {
		return nil, ErrForbidden
	}
	return cv, nil
}

// changeNotifier invalidates both participants' lists and announces the change on the feed.
type changeNotifier struct {
	store  *ConversationStore
	feed   changefeed.Feed
	logger *slog.Logger
}

func (n *changeNotifier) changed(ctx context.Context, table changefeed.Table, op changefeed.Op, cv *model.Conversation) {
	if n == nil {
		return
	}
	n.store.Invalidate(ctx, cv.BuyerUID)
	n.store.Invalidate(ctx, cv.SellerUID)
	if n.feed == nil {
		return
	}
	ev := changefeed.NewEvent(table, op, cv.ID, cv.BuyerUID, cv.SellerUID)
	if err := n.feed.Publish(ctx, ev); err != nil {
		n.logger.Warn("change event not published", "conversation_id", cv.ID, "table", table, "op", op, "error", err)
	}
}
