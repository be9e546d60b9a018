package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shinyyama/estate-backend/internal/changefeed"
	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/repository"
	"gorm.io/gorm"
)

// UnreadTracker owns the read/unread flags. Marking read is bulk; marking unread only
// flips the latest reply from the other party.
type UnreadTracker struct {
	convs         repository.ConversationRepository
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
	notifier      *changeNotifier
	logger        *slog.Logger
}

func NewUnreadTracker(convs repository.ConversationRepository, messages repository.MessageRepository, notifications repository.NotificationRepository, logger *slog.Logger) *UnreadTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnreadTracker{convs: convs, messages: messages, notifications: notifications, logger: logger}
}

// MarkAsRead marks every message of the conversation not sent by viewer as read, along with the
// viewer's unread notifications that reference the conversation. Repeated calls succeed.
func (t *UnreadTracker) MarkAsRead(ctx context.Context, convID uint64, viewerUID string) error {
	cv, err := loadForParticipant(ctx, t.convs, convID, viewerUID)
	if err != nil {
		return err
	}
	changed, err := t.messages.MarkReadForViewer(ctx, convID, viewerUID)
	if err != nil {
		t.logger.Error("mark read failed", "uid", viewerUID, "conversation_id", convID, "error", err)
		return err
	}
	if _, err := t.notifications.MarkByConversation(ctx, viewerUID, convID); err != nil {
		t.logger.Error("mark notifications read failed", "uid", viewerUID, "conversation_id", convID, "error", err)
		return err
	}
	t.afterChange(ctx, cv, viewerUID, changed > 0)
	return nil
}

// MarkAsUnread flags the most recent message from the other party as unread.
// It succeeds without changes when the other party has not written yet.
func (t *UnreadTracker) MarkAsUnread(ctx context.Context, convID uint64, viewerUID string) error {
	cv, err := loadForParticipant(ctx, t.convs, convID, viewerUID)
	if err != nil {
		return err
	}
	last, err := t.messages.LatestFromOthers(ctx, convID, viewerUID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !last.IsRead {
		return nil
	}
	if err := t.messages.SetRead(ctx, last.ID, false); err != nil {
		t.logger.Error("mark unread failed", "uid", viewerUID, "conversation_id", convID, "message_id", last.ID, "error", err)
		return err
	}
	t.afterChange(ctx, cv, viewerUID, true)
	return nil
}

func (t *UnreadTracker) afterChange(ctx context.Context, cv *model.Conversation, viewerUID string, changed bool) {
	if !changed {
		if t.notifier == nil {
			return
		}
		// nothing to announce; only the viewer's notifications may have moved
		t.notifier.store.Invalidate(ctx, viewerUID)
		return
	}
	t.notifier.changed(ctx, changefeed.TableMessages, changefeed.OpUpdate, cv)
}

// Counts returns unread counts for viewer in one query; conversations without unread messages map to 0.
func (t *UnreadTracker) Counts(ctx context.Context, convIDs []uint64, viewerUID string) (map[uint64]int, error) {
	counts, err := t.messages.UnreadCounts(ctx, convIDs, viewerUID)
	if err != nil {
		return nil, err
	}
	for _, id := range convIDs {
		if _, ok := counts[id]; !ok {
			counts[id] = 0
		}
	}
	return counts, nil
}

// TotalUnread sums the unread counts of the given list. Callers pass active conversations only.
func TotalUnread(active []model.ConversationWithDetails) int {
	return lo.SumBy(active, func(c model.ConversationWithDetails) int { return c.UnreadCount })
}
