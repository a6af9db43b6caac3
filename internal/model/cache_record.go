package model

import "time"

// CacheRecord 本地快照缓存（离线兜底用，payload 为 JSON 信封）
type CacheRecord struct {
	Namespace string    `gorm:"primaryKey;type:varchar(32)"`
	Key       string    `gorm:"primaryKey;column:cache_key;type:varchar(128)"`
	Payload   []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"index"`
}

func (CacheRecord) TableName() string { return "cache_records" }
