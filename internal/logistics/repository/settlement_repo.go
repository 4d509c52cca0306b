package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
)

// SettlementRepository 结算数据访问
type SettlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

func (r *SettlementRepository) Create(ctx context.Context, record *entity.SettlementRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *SettlementRepository) Save(ctx context.Context, record *entity.SettlementRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *SettlementRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&entity.SettlementRecord{}).
		Where("id = ?", id).Updates(fields).Error
}

func (r *SettlementRepository) FindByID(ctx context.Context, id string) (*entity.SettlementRecord, error) {
	var record entity.SettlementRecord
	err := Active(r.db.WithContext(ctx)).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &record, nil
}

// FindByTrackingIn 取运单号集合下的全部有效结算，防重复记账的判断依据
func (r *SettlementRepository) FindByTrackingIn(ctx context.Context, trackingNumbers []string) ([]entity.SettlementRecord, error) {
	if len(trackingNumbers) == 0 {
		return nil, nil
	}
	var records []entity.SettlementRecord
	err := Active(r.db.WithContext(ctx)).
		Where("tracking_number IN ?", trackingNumbers).
		Find(&records).Error
	return records, err
}

func (r *SettlementRepository) FindByOrderID(ctx context.Context, orderID string) ([]entity.SettlementRecord, error) {
	var records []entity.SettlementRecord
	err := Active(r.db.WithContext(ctx)).
		Where("order_id = ?", orderID).
		Find(&records).Error
	return records, err
}

// FindPendingByModel 批量定价对象：指定型号的全部待确认结算
func (r *SettlementRepository) FindPendingByModel(ctx context.Context, model string) ([]entity.SettlementRecord, error) {
	var records []entity.SettlementRecord
	err := Active(r.db.WithContext(ctx)).
		Where("model = ? AND status = ?", model, entity.SettlementStatusPending).
		Find(&records).Error
	return records, err
}

// CountNonConfirmedByTracking 级联完成的判定：该运单号下还剩多少未确认结算
func (r *SettlementRepository) CountNonConfirmedByTracking(ctx context.Context, trackingNumber string) (int64, error) {
	var count int64
	err := Active(r.db.WithContext(ctx).Model(&entity.SettlementRecord{})).
		Where("tracking_number = ? AND status <> ?", trackingNumber, entity.SettlementStatusConfirmed).
		Count(&count).Error
	return count, err
}

func (r *SettlementRepository) applyFilters(query *gorm.DB, filters map[string]string) *gorm.DB {
	if v := filters["status"]; v != "" {
		query = query.Where("status = ?", v)
	}
	if v := filters["settle_batch"]; v != "" {
		query = query.Where("settle_batch = ?", v)
	}
	if v := filters["tracking_number"]; v != "" {
		query = query.Where("tracking_number = ?", v)
	}
	if v := filters["owner_username"]; v != "" {
		query = query.Where("owner_username = ?", v)
	}
	if v := filters["warning"]; v != "" {
		query = query.Where("warning = ?", v == "true")
	}
	if v := filters["start_date"]; v != "" {
		query = query.Where("created_at >= ?", v)
	}
	if v := filters["end_date"]; v != "" {
		query = query.Where("created_at <= ?", v)
	}
	return query
}

// FindAll 分页查询，创建时间倒序
func (r *SettlementRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.SettlementRecord, int64, error) {
	query := Active(r.db.WithContext(ctx).Model(&entity.SettlementRecord{}))
	query = r.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []entity.SettlementRecord
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	return records, total, err
}

// FindByFilters 不分页取全量，一键确认入口使用
func (r *SettlementRepository) FindByFilters(ctx context.Context, filters map[string]string) ([]entity.SettlementRecord, error) {
	query := Active(r.db.WithContext(ctx).Model(&entity.SettlementRecord{}))
	query = r.applyFilters(query, filters)

	var records []entity.SettlementRecord
	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

// AggregatePending 待确认结算的条数和金额合计，报表用
func (r *SettlementRepository) AggregatePending(ctx context.Context) (int64, float64, error) {
	var agg struct {
		Cnt   int64
		Total float64
	}
	err := Active(r.db.WithContext(ctx).Model(&entity.SettlementRecord{})).
		Where("status = ?", entity.SettlementStatusPending).
		Select("COUNT(*) AS cnt, COALESCE(SUM(amount), 0) AS total").
		Scan(&agg).Error
	return agg.Cnt, agg.Total, err
}

// FindForExport 导出与列表同一套过滤条件，行数受配置上限约束
func (r *SettlementRepository) FindForExport(ctx context.Context, filters map[string]string, maxRows int) ([]entity.SettlementRecord, error) {
	query := Active(r.db.WithContext(ctx).Model(&entity.SettlementRecord{}))
	query = r.applyFilters(query, filters)

	var records []entity.SettlementRecord
	err := query.Order("created_at DESC").Limit(maxRows).Find(&records).Error
	return records, err
}

// SoftDeleteByOrderID 删除订单级联时使用
func (r *SettlementRepository) SoftDeleteByOrderID(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Model(&entity.SettlementRecord{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{"deleted": true, "updated_at": time.Now()}).Error
}

// HardDelete 批量物理删除，结算侧唯一不可逆操作，不级联订单和提报
func (r *SettlementRepository) HardDelete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&entity.SettlementRecord{})
	return result.RowsAffected, result.Error
}
