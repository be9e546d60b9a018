package model

import "time"

type Profile struct {
	UID         string    `gorm:"column:uid;primaryKey;size:128"`
	DisplayName *string   `gorm:"column:display_name;size:255"`
	Email       string    `gorm:"column:email;size:255"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}
