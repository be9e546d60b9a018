package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

// FetchError means the conversation list could not be derived. Any previously cached list stays intact.
type FetchError struct {
	UserID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch conversations for %s: %v", e.UserID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type SendError struct {
	ConversationID uint64
	Err            error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send message to conversation %d: %v", e.ConversationID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

type CreateConversationError struct {
	PropertyID uint64
	SellerUID  string
	Err        error
}

func (e *CreateConversationError) Error() string {
	return fmt.Sprintf("create conversation with %s (property %d): %v", e.SellerUID, e.PropertyID, e.Err)
}

func (e *CreateConversationError) Unwrap() error { return e.Err }

type ArchiveError struct {
	ConversationID uint64
	Archived       bool
	Err            error
}

func (e *ArchiveError) Error() string {
	op := "archive"
	if !e.Archived {
		op = "unarchive"
	}
	return fmt.Sprintf("%s conversation %d: %v", op, e.ConversationID, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// DeleteError covers both conversation deletion and bulk message deletion.
type DeleteError struct {
	ConversationID uint64
	MessageIDs     []uint64
	Err            error
}

func (e *DeleteError) Error() string {
	if e.ConversationID != 0 {
		return fmt.Sprintf("delete conversation %d: %v", e.ConversationID, e.Err)
	}
	return fmt.Sprintf("delete %d messages: %v", len(e.MessageIDs), e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }
