package model

import "time"

// SenderType labels the other side of a conversation in list views.
type SenderType string

const (
	SenderTypeBuyer        SenderType = "buyer"
	SenderTypeProfessional SenderType = "professional"
)

// Participant is the display identity of the non-viewing party.
type Participant struct {
	UserID           string  `json:"userId"`
	Name             string  `json:"name"`
	IsProfessional   bool    `json:"isProfessional"`
	ProfessionalArea string  `json:"professionalArea,omitempty"`
	IsVerified       bool    `json:"isVerified"`
	ProfessionalID   *uint64 `json:"professionalId,omitempty"`
}

// ConversationWithDetails is derived on every refresh and never persisted.
type ConversationWithDetails struct {
	Conversation
	LastMessage      *Message     `json:"lastMessage,omitempty"`
	UnreadCount      int          `json:"unreadCount"`
	OtherParticipant *Participant `json:"otherParticipant"`
	SenderType       SenderType   `json:"senderType"`
	IsArchived       bool         `json:"isArchived"`
}

// All lists every model that belongs to the messaging schema.
func All() []any {
	return []any{&Conversation{}, &Message{}, &Profile{}, &Professional{}, &Notification{}}
}

// ConversationList is one user's derived inbox at a point in time.
type ConversationList struct {
	UserID      string                    `json:"userId"`
	Active      []ConversationWithDetails `json:"conversations"`
	Archived    []ConversationWithDetails `json:"archivedConversations"`
	TotalUnread int                       `json:"totalUnread"`
	FetchedAt   time.Time                 `json:"fetchedAt"`
}
