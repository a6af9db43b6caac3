package model

import "time"

// User 用户资料（认证由外部服务负责，这里只保存展示字段）
type User struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)"`
	Username  string  `gorm:"type:varchar(64);uniqueIndex"`
	FullName  string  `gorm:"type:varchar(128)"`
	AvatarURL *string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }
