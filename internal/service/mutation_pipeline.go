package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shinyyama/estate-backend/internal/changefeed"
	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/repository"
)

// MutationPipeline performs every write on conversations and messages. A successful write
// invalidates both participants' lists and publishes a change event. Nothing is retried.
//
// Writes run on a context detached from the caller's cancellation: a client that goes away
// mid-request does not abort a half-applied mutation.
type MutationPipeline struct {
	convs    repository.ConversationRepository
	messages repository.MessageRepository
	notifier *changeNotifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewMutationPipeline(convs repository.ConversationRepository, messages repository.MessageRepository, logger *slog.Logger) *MutationPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &MutationPipeline{convs: convs, messages: messages, logger: logger, now: time.Now}
}

func normalizeMessage(content string, typ model.MessageType) (string, model.MessageType, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", "", ErrInvalidInput
	}
	if typ == "" {
		typ = model.MessageTypeBuyerToSeller
	}
	if !typ.Valid() {
		return "", "", ErrInvalidInput
	}
	return content, typ, nil
}

// SendMessage appends a message and bumps the conversation's last_message_at.
func (p *MutationPipeline) SendMessage(ctx context.Context, senderUID string, convID uint64, content string, typ model.MessageType) (*model.Message, error) {
	ctx = context.WithoutCancel(ctx)
	content, typ, err := normalizeMessage(content, typ)
	if err != nil {
		return nil, &SendError{ConversationID: convID, Err: err}
	}
	cv, err := loadForParticipant(ctx, p.convs, convID, senderUID)
	if err != nil {
		return nil, &SendError{ConversationID: convID, Err: err}
	}
	msg := &model.Message{
		ConversationID: convID,
		SenderUID:      senderUID,
		Content:        content,
		MessageType:    typ,
	}
	if err := p.messages.Create(ctx, msg); err != nil {
		p.logger.Error("message insert failed", "uid", senderUID, "conversation_id", convID, "error", err)
		return nil, &SendError{ConversationID: convID, Err: err}
	}
	if err := p.convs.TouchLastMessageAt(ctx, convID, p.now().UTC()); err != nil {
		p.logger.Error("conversation timestamp update failed", "uid", senderUID, "conversation_id", convID, "message_id", msg.ID, "error", err)
		p.notifier.changed(ctx, changefeed.TableMessages, changefeed.OpInsert, cv)
		return msg, &SendError{ConversationID: convID, Err: err}
	}
	p.notifier.changed(ctx, changefeed.TableMessages, changefeed.OpInsert, cv)
	return msg, nil
}

// CreateConversationAndSendMessage reuses the conversation keyed by (propertyID, buyer, seller) or
// creates it, then sends the first message. The unique index on that key settles concurrent creates.
func (p *MutationPipeline) CreateConversationAndSendMessage(ctx context.Context, buyerUID string, propertyID uint64, sellerUID, content, propertyTitle string, typ model.MessageType) (*model.Conversation, *model.Message, error) {
	ctx = context.WithoutCancel(ctx)
	sellerUID = strings.TrimSpace(sellerUID)
	if buyerUID == "" || sellerUID == "" || buyerUID == sellerUID {
		return nil, nil, &CreateConversationError{PropertyID: propertyID, SellerUID: sellerUID, Err: ErrInvalidInput}
	}
	if _, _, err := normalizeMessage(content, typ); err != nil {
		return nil, nil, &CreateConversationError{PropertyID: propertyID, SellerUID: sellerUID, Err: err}
	}
	cv, created, err := p.convs.FindOrCreate(ctx, propertyID, strings.TrimSpace(propertyTitle), buyerUID, sellerUID)
	if err != nil {
		p.logger.Error("find or create conversation failed", "uid", buyerUID, "seller_uid", sellerUID, "property_id", propertyID, "error", err)
		return nil, nil, &CreateConversationError{PropertyID: propertyID, SellerUID: sellerUID, Err: err}
	}
	if created {
		p.notifier.changed(ctx, changefeed.TableConversations, changefeed.OpInsert, cv)
	}
	msg, err := p.SendMessage(ctx, buyerUID, cv.ID, content, typ)
	if err != nil {
		return cv, msg, err
	}
	if fresh, err := p.convs.FindByID(ctx, cv.ID); err == nil {
		cv = fresh
	}
	return cv, msg, nil
}

func (p *MutationPipeline) ArchiveConversation(ctx context.Context, uid string, convID uint64) error {
	return p.setArchived(ctx, uid, convID, true)
}

func (p *MutationPipeline) UnarchiveConversation(ctx context.Context, uid string, convID uint64) error {
	return p.setArchived(ctx, uid, convID, false)
}

// setArchived flags every message of the conversation so the latest-message rule stays consistent.
func (p *MutationPipeline) setArchived(ctx context.Context, uid string, convID uint64, archived bool) error {
	ctx = context.WithoutCancel(ctx)
	cv, err := loadForParticipant(ctx, p.convs, convID, uid)
	if err != nil {
		return &ArchiveError{ConversationID: convID, Archived: archived, Err: err}
	}
	if _, err := p.messages.SetArchived(ctx, convID, archived); err != nil {
		p.logger.Error("archive update failed", "uid", uid, "conversation_id", convID, "archived", archived, "error", err)
		return &ArchiveError{ConversationID: convID, Archived: archived, Err: err}
	}
	p.notifier.changed(ctx, changefeed.TableMessages, changefeed.OpUpdate, cv)
	return nil
}

// DeleteConversation removes the conversation and all of its messages. It cannot be undone.
func (p *MutationPipeline) DeleteConversation(ctx context.Context, uid string, convID uint64) error {
	ctx = context.WithoutCancel(ctx)
	cv, err := loadForParticipant(ctx, p.convs, convID, uid)
	if err != nil {
		return &DeleteError{ConversationID: convID, Err: err}
	}
	if err := p.convs.Delete(ctx, convID); err != nil {
		p.logger.Error("conversation delete failed", "uid", uid, "conversation_id", convID, "error", err)
		return &DeleteError{ConversationID: convID, Err: err}
	}
	p.notifier.changed(ctx, changefeed.TableConversations, changefeed.OpDelete, cv)
	return nil
}

// DeleteMessages bulk-deletes messages from conversations uid takes part in. Unknown ids are ignored
// and conversations left empty are kept.
func (p *MutationPipeline) DeleteMessages(ctx context.Context, uid string, ids []uint64) error {
	ctx = context.WithoutCancel(ctx)
	ids = lo.Uniq(lo.Compact(ids))
	if len(ids) == 0 {
		return &DeleteError{MessageIDs: ids, Err: ErrInvalidInput}
	}
	msgs, err := p.messages.FindByIDs(ctx, ids)
	if err != nil {
		return &DeleteError{MessageIDs: ids, Err: err}
	}
	convIDs := lo.Uniq(lo.Map(msgs, func(m model.Message, _ int) uint64 { return m.ConversationID }))
	convs, err := p.convs.FindByIDs(ctx, convIDs)
	if err != nil {
		return &DeleteError{MessageIDs: ids, Err: err}
	}
	if len(convs) != len(convIDs) {
		return &DeleteError{MessageIDs: ids, Err: ErrNotFound}
	}
	for _, cv := range convs {
		if !cv.HasParticipant(uid) {
			return &DeleteError{MessageIDs: ids, Err: ErrForbidden}
		}
	}
	if _, err := p.messages.DeleteByIDs(ctx, ids); err != nil {
		p.logger.Error("message delete failed", "uid", uid, "count", len(ids), "error", err)
		return &DeleteError{MessageIDs: ids, Err: err}
	}
	for i := range convs {
		p.notifier.changed(ctx, changefeed.TableMessages, changefeed.OpDelete, &convs[i])
	}
	return nil
}

// IsClientError reports whether err was caused by the caller rather than the backing store.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound)
}
