package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
)

// AnnouncementRepository 公告数据访问
type AnnouncementRepository struct {
	db *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

func (r *AnnouncementRepository) Create(ctx context.Context, announcement *entity.Announcement) error {
	return r.db.WithContext(ctx).Create(announcement).Error
}

func (r *AnnouncementRepository) FindLatest(ctx context.Context, limit int) ([]entity.Announcement, error) {
	if limit <= 0 {
		limit = 10
	}
	var announcements []entity.Announcement
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&announcements).Error
	return announcements, err
}

func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Announcement{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
