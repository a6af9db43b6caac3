package model

import "time"

// Like 点赞关系，(post_id, user_id) 唯一
type Like struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `gorm:"type:varchar(36);not null;index:idx_like_pair,unique"`
	UserID    string    `gorm:"type:varchar(36);not null;index:idx_like_pair,unique;index:idx_like_user"`
	CreatedAt time.Time
}

func (Like) TableName() string { return "likes" }
