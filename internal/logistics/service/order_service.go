package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leiakito/wuliu-sub000/internal/logistics/bizerr"
	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
	"github.com/leiakito/wuliu-sub000/internal/logistics/repository"
	"github.com/leiakito/wuliu-sub000/internal/logistics/tracking"
	"github.com/leiakito/wuliu-sub000/internal/ownerstore"
)

// OrderCreateRequest 手工建单请求。下单时间和下单日期互为兜底：
// 只给日期时时间取当天零点，只给时间时日期从时间截取。
type OrderCreateRequest struct {
	TrackingNumber string     `json:"tracking_number" binding:"required"`
	SN             string     `json:"sn" binding:"required"`
	Model          string     `json:"model"`
	OrderTime      *time.Time `json:"order_time"`
	OrderDate      *time.Time `json:"order_date"`
	Amount         *float64   `json:"amount"`
	Weight         *float64   `json:"weight"`
	CustomerName   string     `json:"customer_name"`
	Remark         string     `json:"remark"`
}

// OrderUpdateRequest 部分更新：只覆盖有值字段
type OrderUpdateRequest struct {
	TrackingNumber string     `json:"tracking_number"`
	SN             string     `json:"sn"`
	Model          string     `json:"model"`
	OrderTime      *time.Time `json:"order_time"`
	Amount         *float64   `json:"amount"`
	Weight         *float64   `json:"weight"`
	CustomerName   string     `json:"customer_name"`
	Remark         string     `json:"remark"`
}

// OrderStatusRequest 状态流转请求
type OrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderAmountRequest 金额调整请求
type OrderAmountRequest struct {
	Amount *float64 `json:"amount" binding:"required"`
}

// BatchFetchRequest 第三方抓单请求
type BatchFetchRequest struct {
	TrackingNumbers []string `json:"tracking_numbers" binding:"required"`
}

// ImportResult 导入结果统计
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// OrderService 订单台账。序列号是导入去重键，运单号是对账关联键。
type OrderService struct {
	db          *gorm.DB
	repo        *repository.OrderRepository
	owners      ownerstore.Store
	settlements *SettlementService
}

func NewOrderService(db *gorm.DB, repo *repository.OrderRepository, owners ownerstore.Store) *OrderService {
	return &OrderService{db: db, repo: repo, owners: owners}
}

// BindSettlements 订单编辑后需要把最新字段推送到结算侧，双向依赖在装配时闭合
func (s *OrderService) BindSettlements(settlements *SettlementService) {
	s.settlements = settlements
}

// ImportOrders 批量导入，按序列号幂等覆盖：同一 SN 重复导入只保留最后一次的字段
func (s *OrderService) ImportOrders(ctx context.Context, records []entity.OrderRecord) (*ImportResult, error) {
	result := &ImportResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewOrderRepository(tx)
		for i := range records {
			record := records[i]
			if record.SN == "" || record.TrackingNumber == "" {
				result.Skipped++
				continue
			}
			existing, err := repo.FindBySN(ctx, record.SN)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if existing == nil {
				record.ID = newID()
				if err := repo.Create(ctx, &record); err != nil {
					return err
				}
				result.Created++
				continue
			}
			record.ID = existing.ID
			record.CreatedAt = existing.CreatedAt
			record.CreatedBy = existing.CreatedBy
			if err := repo.Save(ctx, &record); err != nil {
				return err
			}
			result.Updated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Create 手工建单，序列号重复直接拒绝
func (s *OrderService) Create(ctx context.Context, req *OrderCreateRequest, operator string) (*entity.OrderRecord, error) {
	sn := strings.TrimSpace(req.SN)
	trackingNumber := strings.TrimSpace(req.TrackingNumber)
	if sn == "" || trackingNumber == "" {
		return nil, bizerr.BadRequest("单号和SN不能为空")
	}

	existing, err := s.repo.FindBySN(ctx, sn)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, bizerr.Duplicate("SN已存在: " + sn)
	}

	orderTime := req.OrderTime
	if orderTime == nil && req.OrderDate != nil {
		t := dateOf(*req.OrderDate)
		orderTime = &t
	}
	if orderTime == nil {
		now := time.Now()
		orderTime = &now
	}
	orderDate := dateOf(*orderTime)
	if req.OrderDate != nil {
		orderDate = dateOf(*req.OrderDate)
	}

	order := &entity.OrderRecord{
		ID:             newID(),
		OrderTime:      orderTime,
		OrderDate:      &orderDate,
		TrackingNumber: trackingNumber,
		SN:             sn,
		Model:          strings.TrimSpace(req.Model),
		Category:       tracking.Classify(trackingNumber),
		Status:         entity.OrderStatusUnpaid,
		Amount:         req.Amount,
		Currency:       "CNY",
		Weight:         req.Weight,
		CustomerName:   strings.TrimSpace(req.CustomerName),
		Remark:         req.Remark,
		CreatedBy:      operator,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*entity.OrderRecord, error) {
	if status == "" {
		return nil, bizerr.BadRequest("状态不能为空")
	}
	if _, err := s.findExisting(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"status": status}); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *OrderService) UpdateAmount(ctx context.Context, id string, req *OrderAmountRequest) (*entity.OrderRecord, error) {
	if _, err := s.findExisting(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"amount": req.Amount}); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// Update 部分更新。运单号变化时重新识别分类，币种统一重置为 CNY，
// 同一事务内把最新字段同步到关联结算记录。
func (s *OrderService) Update(ctx context.Context, id string, req *OrderUpdateRequest, operator string) (*entity.OrderRecord, error) {
	order, err := s.findExisting(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"currency":   "CNY",
		"updated_by": operator,
	}
	if v := strings.TrimSpace(req.TrackingNumber); v != "" && v != order.TrackingNumber {
		fields["tracking_number"] = v
		fields["category"] = tracking.Classify(v)
	}
	if v := strings.TrimSpace(req.SN); v != "" {
		fields["sn"] = v
	}
	if v := strings.TrimSpace(req.Model); v != "" {
		fields["model"] = v
	}
	if req.OrderTime != nil {
		fields["order_time"] = req.OrderTime
		fields["order_date"] = dateOf(*req.OrderTime)
	}
	if req.Amount != nil {
		fields["amount"] = req.Amount
	}
	if req.Weight != nil {
		fields["weight"] = req.Weight
	}
	if v := strings.TrimSpace(req.CustomerName); v != "" {
		fields["customer_name"] = v
	}
	if v := strings.TrimSpace(req.Remark); v != "" {
		fields["remark"] = v
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewOrderRepository(tx)
		if err := repo.UpdateFields(ctx, id, fields); err != nil {
			return err
		}
		updated, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		order = updated
		return s.settlements.syncFromOrderTx(ctx, tx, updated)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Delete 软删订单本身，不动结算和提报
func (s *OrderService) Delete(ctx context.Context, id string) error {
	err := s.repo.SoftDelete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return bizerr.NotFound("订单不存在")
	}
	return err
}

// DeleteWithRelations 连同该订单的结算记录和同单号提报一起软删
func (s *OrderService) DeleteWithRelations(ctx context.Context, id string) error {
	order, err := s.findExisting(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := repository.NewOrderRepository(tx)
		settlementRepo := repository.NewSettlementRepository(tx)
		submissionRepo := repository.NewSubmissionRepository(tx)

		if err := orderRepo.SoftDelete(ctx, id); err != nil {
			return err
		}
		if err := settlementRepo.SoftDeleteByOrderID(ctx, id); err != nil {
			return err
		}
		return submissionRepo.SoftDeleteByTracking(ctx, strings.TrimSpace(order.TrackingNumber))
	})
}

// FindByTracking 批量精确查询。入参去重、去空白，空集合不触发查询。
func (s *OrderService) FindByTracking(ctx context.Context, trackingNumbers []string) ([]entity.OrderRecord, error) {
	seen := make(map[string]bool, len(trackingNumbers))
	cleaned := make([]string, 0, len(trackingNumbers))
	for _, t := range trackingNumbers {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		cleaned = append(cleaned, t)
	}
	if len(cleaned) == 0 {
		return nil, nil
	}
	return s.repo.FindByTrackingIn(ctx, cleaned)
}

func (s *OrderService) Search(ctx context.Context, keyword string, limit int) ([]entity.OrderRecord, error) {
	return s.repo.Search(ctx, keyword, limit)
}

// List 分页查询并回填归属人展示字段
func (s *OrderService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.OrderRecord, int64, error) {
	orders, total, err := s.repo.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		if owner, ok := s.owners.Lookup(strings.TrimSpace(orders[i].TrackingNumber)); ok {
			orders[i].OwnerUsername = owner
		}
	}
	return orders, total, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*entity.OrderRecord, error) {
	return s.findExisting(ctx, id)
}

func (s *OrderService) CategoryStats(ctx context.Context) ([]repository.CategoryStat, error) {
	return s.repo.CategoryStats(ctx)
}

// SyncFromThirdParty 按运单号批量补单：库里没有的单号生成抓取占位订单
func (s *OrderService) SyncFromThirdParty(ctx context.Context, trackingNumbers []string, operator string) (*ImportResult, error) {
	result := &ImportResult{}
	existing, err := s.FindByTracking(ctx, trackingNumbers)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, o := range existing {
		known[o.TrackingNumber] = true
	}

	now := time.Now()
	today := dateOf(now)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewOrderRepository(tx)
		seen := make(map[string]bool)
		for _, raw := range trackingNumbers {
			t := strings.TrimSpace(raw)
			if t == "" || known[t] || seen[t] {
				result.Skipped++
				continue
			}
			seen[t] = true
			order := &entity.OrderRecord{
				ID:             newID(),
				OrderTime:      &now,
				OrderDate:      &today,
				TrackingNumber: t,
				SN:             "AUTO-" + newID()[:12],
				Category:       tracking.Classify(t),
				Status:         entity.OrderStatusUnpaid,
				Currency:       "CNY",
				Remark:         "自动抓取生成",
				Imported:       true,
				CreatedBy:      operator,
			}
			if err := repo.Create(ctx, order); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// markPaidTx 结算确认回写：状态置 PAID 并带上确认金额。
// 走订单自己的更新入口，保证币种等内部约束不被绕过。
func (s *OrderService) markPaidTx(ctx context.Context, tx *gorm.DB, orderID string, amount *float64) error {
	repo := repository.NewOrderRepository(tx)
	fields := map[string]interface{}{
		"status":   entity.OrderStatusPaid,
		"currency": "CNY",
	}
	if amount != nil {
		fields["amount"] = amount
	}
	return repo.UpdateFields(ctx, orderID, fields)
}

func (s *OrderService) findExisting(ctx context.Context, id string) (*entity.OrderRecord, error) {
	order, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, bizerr.NotFound("订单不存在")
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
