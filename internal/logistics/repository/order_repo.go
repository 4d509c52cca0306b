package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
)

// OrderRepository 订单数据访问
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.OrderRecord) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) Save(ctx context.Context, order *entity.OrderRecord) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// UpdateFields 按字段更新，跳过零值歧义
func (r *OrderRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&entity.OrderRecord{}).
		Where("id = ?", id).Updates(fields).Error
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.OrderRecord, error) {
	var order entity.OrderRecord
	err := Active(r.db.WithContext(ctx)).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &order, nil
}

// FindBySN 按序列号精确查找，导入去重的依据
func (r *OrderRepository) FindBySN(ctx context.Context, sn string) (*entity.OrderRecord, error) {
	var order entity.OrderRecord
	err := Active(r.db.WithContext(ctx)).Where("sn = ?", sn).First(&order).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &order, nil
}

// FindByTrackingIn 按运单号集合精确匹配。调用方负责去重/去空，
// 空集合直接返回空结果，不发起空谓词查询。
func (r *OrderRepository) FindByTrackingIn(ctx context.Context, trackingNumbers []string) ([]entity.OrderRecord, error) {
	if len(trackingNumbers) == 0 {
		return nil, nil
	}
	var orders []entity.OrderRecord
	err := Active(r.db.WithContext(ctx)).
		Where("tracking_number IN ?", trackingNumbers).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

// LatestByTracking 同一运单号取创建时间最新的一条
func (r *OrderRepository) LatestByTracking(ctx context.Context, trackingNumber string) (*entity.OrderRecord, error) {
	var order entity.OrderRecord
	err := Active(r.db.WithContext(ctx)).
		Where("tracking_number = ?", trackingNumber).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &order, nil
}

// Search 前缀模糊检索运单号/序列号/型号
func (r *OrderRepository) Search(ctx context.Context, keyword string, limit int) ([]entity.OrderRecord, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	pattern := keyword + "%"
	var orders []entity.OrderRecord
	err := Active(r.db.WithContext(ctx)).
		Where("tracking_number LIKE ? OR sn LIKE ? OR model LIKE ?", pattern, pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// FindAll 分页查询，filters 支持 status/category/tracking_number/sn/start_date/end_date/keyword
func (r *OrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.OrderRecord, int64, error) {
	query := Active(r.db.WithContext(ctx).Model(&entity.OrderRecord{}))

	if v := filters["status"]; v != "" {
		query = query.Where("status = ?", v)
	}
	if v := filters["category"]; v != "" {
		query = query.Where("category = ?", v)
	}
	if v := filters["tracking_number"]; v != "" {
		query = query.Where("tracking_number = ?", v)
	}
	if v := filters["sn"]; v != "" {
		query = query.Where("sn = ?", v)
	}
	if v := filters["start_date"]; v != "" {
		query = query.Where("order_date >= ?", v)
	}
	if v := filters["end_date"]; v != "" {
		query = query.Where("order_date <= ?", v)
	}
	if v := filters["keyword"]; v != "" {
		pattern := v + "%"
		query = query.Where("tracking_number LIKE ? OR sn LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []entity.OrderRecord
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	return orders, total, err
}

// SoftDelete 订单永不硬删
func (r *OrderRepository) SoftDelete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&entity.OrderRecord{}).
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

// AggregateByOrderDate 按下单日期区间统计订单条数和金额合计，报表用。
// start/end 为 nil 时该侧不设边界。
func (r *OrderRepository) AggregateByOrderDate(ctx context.Context, start, end *time.Time) (int64, float64, error) {
	query := Active(r.db.WithContext(ctx).Model(&entity.OrderRecord{}))
	if start != nil {
		query = query.Where("order_date >= ?", *start)
	}
	if end != nil {
		query = query.Where("order_date <= ?", *end)
	}
	var agg struct {
		Cnt   int64
		Total float64
	}
	err := query.Select("COUNT(*) AS cnt, COALESCE(SUM(amount), 0) AS total").Scan(&agg).Error
	return agg.Cnt, agg.Total, err
}

// CategoryStat 分类统计行
type CategoryStat struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

func (r *OrderRepository) CategoryStats(ctx context.Context) ([]CategoryStat, error) {
	var stats []CategoryStat
	err := Active(r.db.WithContext(ctx).Model(&entity.OrderRecord{})).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("count DESC").
		Find(&stats).Error
	return stats, err
}
