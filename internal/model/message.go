package model

import "time"

type MessageType string

const (
	MessageTypeBuyerToSeller       MessageType = "buyer_to_seller"
	MessageTypeScheduling          MessageType = "scheduling"
	MessageTypeProfessionalContact MessageType = "professional_contact"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeBuyerToSeller, MessageTypeScheduling, MessageTypeProfessionalContact:
		return true
	}
	return false
}

// Message is a single entry in a conversation. IsRead refers to the non-sender party.
// IsArchived is shared by both parties; the conversation's archive state is read from its latest message.
type Message struct {
	ID             uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64      `gorm:"column:conversation_id;not null;index" json:"conversationId"`
	SenderUID      string      `gorm:"column:sender_uid;size:128;not null;index" json:"senderUid"`
	Content        string      `gorm:"column:content;type:text;not null" json:"content"`
	MessageType    MessageType `gorm:"column:message_type;size:32;not null" json:"messageType"`
	IsRead         bool        `gorm:"column:is_read;not null;default:false" json:"isRead"`
	IsArchived     bool        `gorm:"column:is_archived;not null;default:false" json:"isArchived"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}
