package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
)

// SubmissionRepository 用户提报数据访问
type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Create(ctx context.Context, submission *entity.UserSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// FindActiveByTracking 查找该运单号下未完成的有效提报，重复提报的判定依据
func (r *SubmissionRepository) FindActiveByTracking(ctx context.Context, trackingNumber string) (*entity.UserSubmission, error) {
	var submission entity.UserSubmission
	err := Active(r.db.WithContext(ctx)).
		Where("tracking_number = ? AND status <> ?", trackingNumber, entity.SubmissionStatusCompleted).
		First(&submission).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &submission, nil
}

// MarkCompletedByTracking 将该运单号下所有未完成提报置为 COMPLETED
func (r *SubmissionRepository) MarkCompletedByTracking(ctx context.Context, trackingNumber string) (int64, error) {
	result := Active(r.db.WithContext(ctx).Model(&entity.UserSubmission{})).
		Where("tracking_number = ? AND status <> ?", trackingNumber, entity.SubmissionStatusCompleted).
		Updates(map[string]interface{}{
			"status":     entity.SubmissionStatusCompleted,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// FindPage 分页查询，username 为空时查全部（管理视图）
func (r *SubmissionRepository) FindPage(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.UserSubmission, int64, error) {
	query := Active(r.db.WithContext(ctx).Model(&entity.UserSubmission{}))

	if v := filters["username"]; v != "" {
		query = query.Where("username = ?", v)
	}
	if v := filters["status"]; v != "" {
		query = query.Where("status = ?", v)
	}
	if v := filters["tracking_number"]; v != "" {
		query = query.Where("tracking_number = ?", v)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var submissions []entity.UserSubmission
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&submissions).Error
	return submissions, total, err
}

func (r *SubmissionRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&entity.UserSubmission{}).
		Where("id = ?", id).Updates(fields).Error
}

// SoftDeleteByTracking 删除订单级联时使用
func (r *SubmissionRepository) SoftDeleteByTracking(ctx context.Context, trackingNumber string) error {
	return r.db.WithContext(ctx).Model(&entity.UserSubmission{}).
		Where("tracking_number = ?", trackingNumber).
		Updates(map[string]interface{}{"deleted": true, "updated_at": time.Now()}).Error
}

// SubmissionLogRepository 提报流水数据访问
type SubmissionLogRepository struct {
	db *gorm.DB
}

func NewSubmissionLogRepository(db *gorm.DB) *SubmissionLogRepository {
	return &SubmissionLogRepository{db: db}
}

func (r *SubmissionLogRepository) Create(ctx context.Context, log *entity.SubmissionLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *SubmissionLogRepository) FindPage(ctx context.Context, page, pageSize int, username, trackingNumber string) ([]entity.SubmissionLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.SubmissionLog{})
	if username != "" {
		query = query.Where("username = ?", username)
	}
	if trackingNumber != "" {
		query = query.Where("tracking_number = ?", trackingNumber)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []entity.SubmissionLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}
