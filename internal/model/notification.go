package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationMetadata is the JSON payload stored in notifications.metadata.
type NotificationMetadata struct {
	ConversationID uint64 `json:"conversation_id,omitempty"`
	PropertyID     uint64 `json:"property_id,omitempty"`
}

type Notification struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	UserUID   string         `gorm:"column:user_uid;size:128;index;not null"`
	Type      string         `gorm:"column:type;size:64;not null"`
	Title     string         `gorm:"column:title;size:255"`
	Body      string         `gorm:"column:body;type:text"`
	Metadata  datatypes.JSON `gorm:"column:metadata"`
	ReadAt    *time.Time     `gorm:"column:read_at"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
