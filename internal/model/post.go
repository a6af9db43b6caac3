package model

import "time"

// Post 帖子（计数字段由点赞/评论事件维护，永不为负）
type Post struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)"`
	AuthorID      string    `gorm:"type:varchar(36);index:idx_post_author_created,priority:1;not null"`
	Author        *User     `gorm:"foreignKey:AuthorID"`
	Content       string    `gorm:"type:text"`
	ImageURL      string    `gorm:"type:text"`
	Kind          string    `gorm:"type:varchar(16);default:outfit"` // outfit, virtual-tryon, inspiration
	LikesCount    int64     `gorm:"not null;default:0;index:idx_post_engagement,priority:1,sort:desc"`
	CommentsCount int64     `gorm:"not null;default:0;index:idx_post_engagement,priority:2,sort:desc"`
	SharesCount   int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"index:idx_post_author_created,priority:2,sort:desc;index:idx_post_created"`
	UpdatedAt     time.Time
}

func (Post) TableName() string { return "posts" }
