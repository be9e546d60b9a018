package service

import (
	"context"
	"encoding/json"

	"github.com/samber/lo"
	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/repository"
)

// ConversationNotification is a notification with its metadata decoded. Notifications are produced by
// other subsystems; messaging only reads them and marks them read.
type ConversationNotification struct {
	model.Notification
	Meta model.NotificationMetadata
}

// RefersTo reports whether the notification points at convID.
func (n ConversationNotification) RefersTo(convID uint64) bool {
	return convID != 0 && n.Meta.ConversationID == convID
}

type NotificationPage struct {
	Items  []ConversationNotification
	Unread int64
}

type NotificationService interface {
	List(ctx context.Context, userUID string, unreadOnly bool, limit int) (*NotificationPage, error)
	MarkAllRead(ctx context.Context, userUID string) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) List(ctx context.Context, userUID string, unreadOnly bool, limit int) (*NotificationPage, error) {
	if userUID == "" {
		return nil, ErrInvalidInput
	}
	list, err := s.repo.ListByUser(ctx, userUID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	cnt, err := s.repo.CountUnread(ctx, userUID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Items:  lo.Map(list, func(n model.Notification, _ int) ConversationNotification { return decodeNotification(n) }),
		Unread: cnt,
	}, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userUID string) error {
	if userUID == "" {
		return ErrInvalidInput
	}
	return s.repo.MarkAllRead(ctx, userUID)
}

// decodeNotification tolerates missing or malformed metadata; such rows simply reference nothing.
func decodeNotification(n model.Notification) ConversationNotification {
	out := ConversationNotification{Notification: n}
	if len(n.Metadata) > 0 {
		_ = json.Unmarshal(n.Metadata, &out.Meta)
	}
	return out
}
