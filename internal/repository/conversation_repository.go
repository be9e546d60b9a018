package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/estate-backend/internal/model"
	"gorm.io/gorm"
)

type ConversationRepository interface {
	FindOrCreate(ctx context.Context, propertyID uint64, propertyTitle, buyerUID, sellerUID string) (*model.Conversation, bool, error)
	FindByUser(ctx context.Context, uid string) ([]model.Conversation, error)
	FindByID(ctx context.Context, id uint64) (*model.Conversation, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]model.Conversation, error)
	TouchLastMessageAt(ctx context.Context, id uint64, at time.Time) error
	Delete(ctx context.Context, id uint64) error
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// FindOrCreate returns the conversation keyed by (propertyID, buyerUID, sellerUID), creating it when
// missing. A concurrent insert that loses on the unique index re-reads the winning row.
func (r *conversationRepository) FindOrCreate(ctx context.Context, propertyID uint64, propertyTitle, buyerUID, sellerUID string) (*model.Conversation, bool, error) {
	if r.db == nil {
		return nil, false, ErrDBNotReady
	}
	cv, err := r.findByKey(ctx, propertyID, buyerUID, sellerUID)
	if err == nil {
		return cv, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	cv = &model.Conversation{
		PropertyID:    propertyID,
		PropertyTitle: propertyTitle,
		BuyerUID:      buyerUID,
		SellerUID:     sellerUID,
	}
	if err := r.db.WithContext(ctx).Create(cv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			cv, err = r.findByKey(ctx, propertyID, buyerUID, sellerUID)
			return cv, false, err
		}
		return nil, false, err
	}
	return cv, true, nil
}

func (r *conversationRepository) findByKey(ctx context.Context, propertyID uint64, buyerUID, sellerUID string) (*model.Conversation, error) {
	// a miss is the normal first-contact path; Find keeps it out of the error log
	var list []model.Conversation
	res := r.db.WithContext(ctx).
		Where("property_id = ? AND buyer_uid = ? AND seller_uid = ?", propertyID, buyerUID, sellerUID).
		Limit(1).
		Find(&list)
	if res.Error != nil {
		return nil, res.Error
	}
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &list[0], nil
}

func (r *conversationRepository) FindByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("buyer_uid = ? OR seller_uid = ?", uid, uid).
		Order("last_message_at IS NULL").
		Order("last_message_at DESC").
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint64) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).First(&cv, id).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) FindByIDs(ctx context.Context, ids []uint64) ([]model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var list []model.Conversation
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *conversationRepository) TouchLastMessageAt(ctx context.Context, id uint64, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("last_message_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes every message of the conversation, then the conversation itself.
func (r *conversationRepository) Delete(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Conversation{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
