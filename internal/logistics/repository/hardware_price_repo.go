package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
)

// HardwarePriceRepository 型号单价数据访问
type HardwarePriceRepository struct {
	db *gorm.DB
}

func NewHardwarePriceRepository(db *gorm.DB) *HardwarePriceRepository {
	return &HardwarePriceRepository{db: db}
}

func (r *HardwarePriceRepository) Create(ctx context.Context, price *entity.HardwarePrice) error {
	return r.db.WithContext(ctx).Create(price).Error
}

func (r *HardwarePriceRepository) Save(ctx context.Context, price *entity.HardwarePrice) error {
	return r.db.WithContext(ctx).Save(price).Error
}

func (r *HardwarePriceRepository) FindByID(ctx context.Context, id string) (*entity.HardwarePrice, error) {
	var price entity.HardwarePrice
	err := Active(r.db.WithContext(ctx)).Where("id = ?", id).First(&price).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &price, nil
}

// LatestByItemName 按型号取价格日期最新的一条
func (r *HardwarePriceRepository) LatestByItemName(ctx context.Context, itemName string) (*entity.HardwarePrice, error) {
	var price entity.HardwarePrice
	err := Active(r.db.WithContext(ctx)).
		Where("item_name = ?", itemName).
		Order("price_date DESC, created_at DESC").
		First(&price).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &price, nil
}

func (r *HardwarePriceRepository) FindAll(ctx context.Context, page, pageSize int, itemName string) ([]entity.HardwarePrice, int64, error) {
	query := Active(r.db.WithContext(ctx).Model(&entity.HardwarePrice{}))
	if itemName != "" {
		query = query.Where("item_name LIKE ?", itemName+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var prices []entity.HardwarePrice
	err := query.Order("price_date DESC, created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&prices).Error
	return prices, total, err
}

func (r *HardwarePriceRepository) SoftDelete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&entity.HardwarePrice{}).
		Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]interface{}{"deleted": true, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
