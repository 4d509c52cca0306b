package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"

	"github.com/leiakito/wuliu-sub000/internal/logistics/bizerr"
	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
	"github.com/leiakito/wuliu-sub000/internal/logistics/excel"
	"github.com/leiakito/wuliu-sub000/internal/logistics/repository"
	"github.com/leiakito/wuliu-sub000/internal/ownerstore"
)

// SubmissionCreateRequest 提报请求
type SubmissionCreateRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required"`
	Remark         string `json:"remark"`
}

// SubmissionBatchRequest 批量提报请求
type SubmissionBatchRequest struct {
	Items []SubmissionCreateRequest `json:"items" binding:"required"`
}

// SubmissionBatchItemResult 批量提报单条结果
type SubmissionBatchItemResult struct {
	TrackingNumber string `json:"tracking_number"`
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
}

// SubmissionService 用户提报台账。提报成功即触发结算侧的待确认生成，
// 并开启重复记账告警；提报的完成只能由结算确认级联触发。
type SubmissionService struct {
	db          *gorm.DB
	repo        *repository.SubmissionRepository
	logRepo     *repository.SubmissionLogRepository
	orderRepo   *repository.OrderRepository
	settlements *SettlementService
	owners      ownerstore.Store
}

func NewSubmissionService(
	db *gorm.DB,
	repo *repository.SubmissionRepository,
	logRepo *repository.SubmissionLogRepository,
	orderRepo *repository.OrderRepository,
	settlements *SettlementService,
	owners ownerstore.Store,
) *SubmissionService {
	return &SubmissionService{
		db:          db,
		repo:        repo,
		logRepo:     logRepo,
		orderRepo:   orderRepo,
		settlements: settlements,
		owners:      owners,
	}
}

// Create 新建提报。同一运单号存在未完成提报时直接拒绝（中文描述型"单号"除外），
// 提报金额快照自同单号最新订单；事务提交后登记归属关系。
func (s *SubmissionService) Create(ctx context.Context, req *SubmissionCreateRequest, username string) (*entity.UserSubmission, error) {
	trackingNumber := excel.NormalizeTracking(req.TrackingNumber)
	if trackingNumber == "" {
		return nil, bizerr.BadRequest("单号不能为空")
	}

	trackingNumber = s.resolveTracking(ctx, trackingNumber)

	existing, err := s.repo.FindActiveByTracking(ctx, trackingNumber)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && !containsChinese(trackingNumber) {
		return nil, bizerr.BadRequest("该单号已被提交，请勿重复提交")
	}

	now := time.Now()
	today := dateOf(now)
	submission := &entity.UserSubmission{
		ID:             newID(),
		Username:       username,
		TrackingNumber: trackingNumber,
		Status:         entity.SubmissionStatusPending,
		SubmissionDate: &today,
		Remark:         req.Remark,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewSubmissionRepository(tx)
		logRepo := repository.NewSubmissionLogRepository(tx)
		orderRepo := repository.NewOrderRepository(tx)

		order, err := orderRepo.LatestByTracking(ctx, trackingNumber)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if order != nil {
			submission.Amount = order.Amount
		}
		if err := repo.Create(ctx, submission); err != nil {
			return err
		}
		if err := logRepo.Create(ctx, &entity.SubmissionLog{
			ID:             newID(),
			Username:       username,
			TrackingNumber: trackingNumber,
			Action:         "CREATE",
			Detail:         "用户提报运单",
		}); err != nil {
			return err
		}

		if order != nil {
			matched, err := orderRepo.FindByTrackingIn(ctx, []string{trackingNumber})
			if err != nil {
				return err
			}
			if _, err := s.settlements.createPendingTx(ctx, tx, matched, s.settlements.Options().WarnDoubleBilling); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 归属关系不在库事务里，写失败不回滚提报
	_ = s.owners.Set(ctx, trackingNumber, username)
	return submission, nil
}

// BatchCreate 逐条提报，单条失败不中断
func (s *SubmissionService) BatchCreate(ctx context.Context, req *SubmissionBatchRequest, username string) []SubmissionBatchItemResult {
	results := make([]SubmissionBatchItemResult, 0, len(req.Items))
	for i := range req.Items {
		item := req.Items[i]
		result := SubmissionBatchItemResult{TrackingNumber: item.TrackingNumber}
		if _, err := s.Create(ctx, &item, username); err != nil {
			result.Message = err.Error()
		} else {
			result.Success = true
		}
		results = append(results, result)
	}
	return results
}

// PageMine 用户自己的提报
func (s *SubmissionService) PageMine(ctx context.Context, username string, page, pageSize int, filters map[string]string) ([]entity.UserSubmission, int64, error) {
	if filters == nil {
		filters = map[string]string{}
	}
	filters["username"] = username
	return s.page(ctx, page, pageSize, filters)
}

// PageAll 管理视图，可按用户名过滤
func (s *SubmissionService) PageAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.UserSubmission, int64, error) {
	return s.page(ctx, page, pageSize, filters)
}

func (s *SubmissionService) page(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.UserSubmission, int64, error) {
	submissions, total, err := s.repo.FindPage(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, err
	}
	for i := range submissions {
		sub := &submissions[i]
		order, err := s.orderRepo.LatestByTracking(ctx, strings.TrimSpace(sub.TrackingNumber))
		if err != nil {
			continue
		}
		sub.Order = order
		if order.Amount != nil {
			sub.Amount = order.Amount
		}
	}
	return submissions, total, nil
}

// Logs 提报操作流水
func (s *SubmissionService) Logs(ctx context.Context, page, pageSize int, username, trackingNumber string) ([]entity.SubmissionLog, int64, error) {
	return s.logRepo.FindPage(ctx, page, pageSize, username, trackingNumber)
}

// resolveTracking 用户输入容错：先精确匹配订单，再前缀匹配，都不中用原值
func (s *SubmissionService) resolveTracking(ctx context.Context, trackingNumber string) string {
	if _, err := s.orderRepo.LatestByTracking(ctx, trackingNumber); err == nil {
		return trackingNumber
	}
	matches, err := s.orderRepo.Search(ctx, trackingNumber, 1)
	if err == nil && len(matches) > 0 {
		return strings.TrimSpace(matches[0].TrackingNumber)
	}
	return trackingNumber
}

func containsChinese(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
