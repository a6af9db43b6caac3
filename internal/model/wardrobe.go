package model

import "time"

// WardrobeItem 衣橱单品（仅保留列表页所需字段）
type WardrobeItem struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string    `gorm:"type:varchar(36);index:idx_wardrobe_user;not null" json:"user_id"`
	Name       string    `gorm:"type:varchar(128);not null" json:"name"`
	Category   string    `gorm:"type:varchar(32);index;not null" json:"category"`
	Brand      string    `gorm:"type:varchar(64)" json:"brand,omitempty"`
	Color      string    `gorm:"type:varchar(32)" json:"color"`
	ImageURL   string    `gorm:"type:text" json:"image_url,omitempty"`
	IsFavorite bool      `gorm:"not null;default:false" json:"is_favorite"`
	WearCount  int       `gorm:"not null;default:0" json:"wear_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (WardrobeItem) TableName() string { return "wardrobe_items" }
