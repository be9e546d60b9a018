package model

import "time"

type Professional struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	UID          string    `gorm:"column:uid;size:128;not null;uniqueIndex"`
	BusinessName string    `gorm:"column:business_name;size:255;not null"`
	ServiceType  string    `gorm:"column:service_type;size:64"`
	IsVerified   bool      `gorm:"column:is_verified;not null;default:false"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Professional) TableName() string {
	return "professionals"
}
