package model

import "time"

// Conversation is a two-party thread between a buyer and a seller, optionally about a property.
// PropertyID is 0 when the conversation is not tied to a listing (e.g. professional contact).
type Conversation struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID    uint64     `gorm:"column:property_id;not null;default:0;uniqueIndex:uniq_conv_property_buyer_seller" json:"propertyId,omitempty"`
	PropertyTitle string     `gorm:"column:property_title;size:255" json:"propertyTitle,omitempty"`
	BuyerUID      string     `gorm:"column:buyer_uid;size:128;not null;index;uniqueIndex:uniq_conv_property_buyer_seller" json:"buyerUid"`
	SellerUID     string     `gorm:"column:seller_uid;size:128;not null;index;uniqueIndex:uniq_conv_property_buyer_seller" json:"sellerUid"`
	LastMessageAt *time.Time `gorm:"column:last_message_at;index" json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// OtherParticipant returns the uid on the opposite side of uid.
func (c Conversation) OtherParticipant(uid string) string {
	if c.BuyerUID == uid {
		return c.SellerUID
	}
	return c.BuyerUID
}

func (c Conversation) HasParticipant(uid string) bool {
	return uid != "" && (c.BuyerUID == uid || c.SellerUID == uid)
}
