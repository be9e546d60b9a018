package repository

import (
	"context"

	"github.com/shinyyama/estate-backend/internal/model"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	ListByConversation(ctx context.Context, convID uint64) ([]model.Message, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]model.Message, error)
	LatestByConversations(ctx context.Context, convIDs []uint64) (map[uint64]model.Message, error)
	UnreadCounts(ctx context.Context, convIDs []uint64, viewerUID string) (map[uint64]int, error)
	MarkReadForViewer(ctx context.Context, convID uint64, viewerUID string) (int64, error)
	LatestFromOthers(ctx context.Context, convID uint64, viewerUID string) (*model.Message, error)
	SetRead(ctx context.Context, id uint64, read bool) error
	SetArchived(ctx context.Context, convID uint64, archived bool) (int64, error)
	DeleteByIDs(ctx context.Context, ids []uint64) ([]model.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) ListByConversation(ctx context.Context, convID uint64) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) FindByIDs(ctx context.Context, ids []uint64) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// LatestByConversations loads the most recent message of each conversation in one query.
func (r *messageRepository) LatestByConversations(ctx context.Context, convIDs []uint64) (map[uint64]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	out := make(map[uint64]model.Message, len(convIDs))
	if len(convIDs) == 0 {
		return out, nil
	}
	latest := r.db.Model(&model.Message{}).
		Select("MAX(id)").
		Where("conversation_id IN ?", convIDs).
		Group("conversation_id")
	var msgs []model.Message
	if err := r.db.WithContext(ctx).Where("id IN (?)", latest).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for _, m := range msgs {
		out[m.ConversationID] = m
	}
	return out, nil
}

// UnreadCounts counts, per conversation, the unread messages not sent by viewerUID.
// Conversations without unread messages are absent from the result.
func (r *messageRepository) UnreadCounts(ctx context.Context, convIDs []uint64, viewerUID string) (map[uint64]int, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	out := make(map[uint64]int, len(convIDs))
	if len(convIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ConversationID uint64
		Unread         int64
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("conversation_id IN ? AND is_read = ? AND sender_uid <> ?", convIDs, false, viewerUID).
		Group("conversation_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ConversationID] = int(row.Unread)
	}
	return out, nil
}

func (r *messageRepository) MarkReadForViewer(ctx context.Context, convID uint64, viewerUID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND sender_uid <> ? AND is_read = ?", convID, viewerUID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *messageRepository) LatestFromOthers(ctx context.Context, convID uint64, viewerUID string) (*model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msg model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND sender_uid <> ?", convID, viewerUID).
		Order("id DESC").
		First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) SetRead(ctx context.Context, id uint64, read bool) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		Update("is_read", read).Error
}

func (r *messageRepository) SetArchived(ctx context.Context, convID uint64, archived bool) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ?", convID).
		Update("is_archived", archived)
	return res.RowsAffected, res.Error
}

// DeleteByIDs deletes the given messages and returns the rows that existed.
// Parent conversations are left in place even when they become empty.
func (r *messageRepository) DeleteByIDs(ctx context.Context, ids []uint64) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var deleted []model.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id IN ?", ids).Find(&deleted).Error; err != nil {
			return err
		}
		if len(deleted) == 0 {
			return nil
		}
		return tx.Where("id IN ?", ids).Delete(&model.Message{}).Error
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
