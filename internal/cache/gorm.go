package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/feedmix/internal/model"
)

// GormBackend 把快照存进 cache_records 表，一般用本地 sqlite 文件，重启后仍可回退
type GormBackend struct {
	db *gorm.DB
}

func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{db: db}
}

func (g *GormBackend) Load(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var rec model.CacheRecord
	err := g.db.WithContext(ctx).
		Where("namespace = ? AND cache_key = ?", namespace, key).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec.Payload, true, nil
}

func (g *GormBackend) Save(ctx context.Context, namespace, key string, payload []byte) error {
	rec := model.CacheRecord{Namespace: namespace, Key: key, Payload: payload, UpdatedAt: time.Now()}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
}

func (g *GormBackend) Delete(ctx context.Context, namespace, key string) error {
	return g.db.WithContext(ctx).
		Where("namespace = ? AND cache_key = ?", namespace, key).
		Delete(&model.CacheRecord{}).Error
}

// Purge 删除 before 之前写入的记录
func (g *GormBackend) Purge(ctx context.Context, before time.Time) (int64, error) {
	res := g.db.WithContext(ctx).Where("updated_at < ?", before).Delete(&model.CacheRecord{})
	return res.RowsAffected, res.Error
}
