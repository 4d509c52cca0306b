package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/leiakito/wuliu-sub000/internal/logistics/archive"
	"github.com/leiakito/wuliu-sub000/internal/logistics/bizerr"
	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
	"github.com/leiakito/wuliu-sub000/internal/logistics/excel"
	"github.com/leiakito/wuliu-sub000/internal/logistics/repository"
	"github.com/leiakito/wuliu-sub000/internal/ownerstore"
)

// SettlementConfirmRequest 确认请求
type SettlementConfirmRequest struct {
	Amount *float64 `json:"amount"`
	Remark string   `json:"remark"`
}

// SettlementBatchConfirmRequest 批量确认请求
type SettlementBatchConfirmRequest struct {
	IDs    []string `json:"ids" binding:"required"`
	Remark string   `json:"remark"`
}

// SettlementAmountRequest 金额调整请求
type SettlementAmountRequest struct {
	Amount *float64 `json:"amount" binding:"required"`
}

// SettlementBatchPriceRequest 按型号批量定价，金额缺省时查型号单价表
type SettlementBatchPriceRequest struct {
	Model  string   `json:"model" binding:"required"`
	Amount *float64 `json:"amount"`
}

// SettlementDeleteRequest 批量删除请求
type SettlementDeleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// SettlementOptions 结算侧业务开关
type SettlementOptions struct {
	WarnDoubleBilling bool
	ExportMaxRows     int
}

// SettlementService 结算台账，三方对账的核心状态机：
// 同一运单号稳态下最多一条有效 PENDING 结算，二次请求打告警标记而不是再插一行；
// 确认操作在同一事务内级联回写订单和提报。
type SettlementService struct {
	db        *gorm.DB
	repo      *repository.SettlementRepository
	orderRepo *repository.OrderRepository
	priceRepo *repository.HardwarePriceRepository
	owners    ownerstore.Store
	orders    *OrderService
	uploader  *archive.Uploader
	opts      SettlementOptions
}

func NewSettlementService(
	db *gorm.DB,
	repo *repository.SettlementRepository,
	orderRepo *repository.OrderRepository,
	priceRepo *repository.HardwarePriceRepository,
	owners ownerstore.Store,
	orders *OrderService,
	uploader *archive.Uploader,
	opts SettlementOptions,
) *SettlementService {
	if opts.ExportMaxRows <= 0 {
		opts.ExportMaxRows = 10000
	}
	return &SettlementService{
		db:        db,
		repo:      repo,
		orderRepo: orderRepo,
		priceRepo: priceRepo,
		owners:    owners,
		orders:    orders,
		uploader:  uploader,
		opts:      opts,
	}
}

// Options 当前生效的业务开关
func (s *SettlementService) Options() SettlementOptions {
	return s.opts
}

// CreatePending 为一批订单生成待确认结算，幂等。
// 运单号已有结算时不再插行，warnOnDouble 开启时给已有记录打重复记账告警。
func (s *SettlementService) CreatePending(ctx context.Context, orders []entity.OrderRecord, warnOnDouble bool) ([]entity.SettlementRecord, error) {
	var result []entity.SettlementRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		records, err := s.createPendingTx(ctx, tx, orders, warnOnDouble)
		if err != nil {
			return err
		}
		result = records
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.enrichFromOrders(ctx, result)
	return result, nil
}

// CreatePendingByTracking 运单号入口：先找到名下订单再走批量生成
func (s *SettlementService) CreatePendingByTracking(ctx context.Context, trackingNumbers []string) ([]entity.SettlementRecord, error) {
	orders, err := s.orders.FindByTracking(ctx, trackingNumbers)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, bizerr.NotFound("运单号下没有可结算的订单")
	}
	return s.CreatePending(ctx, orders, s.opts.WarnDoubleBilling)
}

func (s *SettlementService) createPendingTx(ctx context.Context, tx *gorm.DB, orders []entity.OrderRecord, warnOnDouble bool) ([]entity.SettlementRecord, error) {
	repo := repository.NewSettlementRepository(tx)

	trackingSet := make(map[string]bool)
	var trackingNumbers []string
	for _, o := range orders {
		t := strings.TrimSpace(o.TrackingNumber)
		if t == "" || trackingSet[t] {
			continue
		}
		trackingSet[t] = true
		trackingNumbers = append(trackingNumbers, t)
	}
	// 并发的 createPending 对同一运单号做先查后插，靠按单号加事务级咨询锁
	// 串行化，锁按字典序获取避免互相等待。单机 sqlite 写本身串行，无需加锁。
	if tx.Dialector.Name() == "postgres" {
		locked := append([]string(nil), trackingNumbers...)
		sort.Strings(locked)
		for _, t := range locked {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", t).Error; err != nil {
				return nil, err
			}
		}
	}

	existing, err := repo.FindByTrackingIn(ctx, trackingNumbers)
	if err != nil {
		return nil, err
	}
	byTracking := make(map[string][]entity.SettlementRecord)
	for _, r := range existing {
		byTracking[r.TrackingNumber] = append(byTracking[r.TrackingNumber], r)
	}

	var result []entity.SettlementRecord
	for i := range orders {
		order := orders[i]
		t := strings.TrimSpace(order.TrackingNumber)
		if t == "" {
			continue
		}

		if rows, ok := byTracking[t]; ok {
			if warnOnDouble {
				for _, row := range rows {
					if row.Warning {
						continue
					}
					if err := repo.UpdateFields(ctx, row.ID, map[string]interface{}{"warning": true}); err != nil {
						return nil, err
					}
				}
			}
			result = append(result, rows...)
			continue
		}

		record := entity.SettlementRecord{
			ID:             newID(),
			OrderID:        &order.ID,
			TrackingNumber: t,
			Model:          order.Model,
			Amount:         order.Amount,
			Currency:       defaultCurrency(order.Currency),
			Status:         entity.SettlementStatusPending,
			Remark:         order.Remark,
			OrderTime:      order.OrderTime,
		}
		if owner, ok := s.owners.Lookup(t); ok {
			record.OwnerUsername = owner
		}
		if err := repo.Create(ctx, &record); err != nil {
			return nil, err
		}
		byTracking[t] = []entity.SettlementRecord{record}
		result = append(result, record)
	}
	return result, nil
}

// Confirm 确认结算。结算状态、订单回写、提报级联在同一事务内提交：
// 订单按 orderId 回查，缺失时按去空格运单号兜底查一次，仍未命中则静默跳过；
// 该运单号下不再有未确认结算时，所有未完成提报一并置为 COMPLETED。
func (s *SettlementService) Confirm(ctx context.Context, id string, req *SettlementConfirmRequest, operator string) (*entity.SettlementRecord, error) {
	var confirmed *entity.SettlementRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewSettlementRepository(tx)
		record, err := repo.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return bizerr.NotFound("结算记录不存在")
		}
		if err != nil {
			return err
		}

		now := time.Now()
		today := dateOf(now)
		amount := record.Amount
		if req.Amount != nil {
			amount = req.Amount
		}

		fields := map[string]interface{}{
			"status":       entity.SettlementStatusConfirmed,
			"settle_batch": "BATCH-" + today.Format("2006-01-02"),
			"payable_at":   today,
			"confirmed_by": operator,
			"confirmed_at": now,
		}
		if req.Amount != nil {
			fields["amount"] = req.Amount
		}
		// 备注整体以请求为准，空串即清空
		fields["remark"] = req.Remark
		if err := repo.UpdateFields(ctx, id, fields); err != nil {
			return err
		}

		if err := s.pushToOrderTx(ctx, tx, record, amount); err != nil {
			return err
		}

		trackingNumber := strings.TrimSpace(record.TrackingNumber)
		remaining, err := repo.CountNonConfirmedByTracking(ctx, trackingNumber)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := s.completeSubmissionsTx(ctx, tx, trackingNumber, operator); err != nil {
				return err
			}
		}

		confirmed, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// pushToOrderTx 把确认结果推回订单：PAID + 确认金额。
// orderId 未命中时只按运单号兜底查一次，再未命中视为软性不一致，不让确认失败。
func (s *SettlementService) pushToOrderTx(ctx context.Context, tx *gorm.DB, record *entity.SettlementRecord, amount *float64) error {
	orderRepo := repository.NewOrderRepository(tx)

	var order *entity.OrderRecord
	if record.OrderID != nil && *record.OrderID != "" {
		found, err := orderRepo.FindByID(ctx, *record.OrderID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		order = found
	}
	if order == nil {
		found, err := orderRepo.LatestByTracking(ctx, strings.TrimSpace(record.TrackingNumber))
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		order = found
	}
	if order == nil {
		return nil
	}
	return s.orders.markPaidTx(ctx, tx, order.ID, amount)
}

func (s *SettlementService) completeSubmissionsTx(ctx context.Context, tx *gorm.DB, trackingNumber, operator string) error {
	submissionRepo := repository.NewSubmissionRepository(tx)
	logRepo := repository.NewSubmissionLogRepository(tx)

	affected, err := submissionRepo.MarkCompletedByTracking(ctx, trackingNumber)
	if err != nil {
		return err
	}
	if affected == 0 {
		return nil
	}
	return logRepo.Create(ctx, &entity.SubmissionLog{
		ID:             newID(),
		Username:       operator,
		TrackingNumber: trackingNumber,
		Action:         "COMPLETE",
		Detail:         fmt.Sprintf("结算全部确认，%d 条提报自动完成", affected),
	})
}

// ConfirmBatch 逐条确认，单条失败不影响其余
func (s *SettlementService) ConfirmBatch(ctx context.Context, req *SettlementBatchConfirmRequest, operator string) (confirmed int, failed []string, err error) {
	for _, id := range req.IDs {
		if _, err := s.Confirm(ctx, id, &SettlementConfirmRequest{Remark: req.Remark}, operator); err != nil {
			failed = append(failed, id)
			continue
		}
		confirmed++
	}
	return confirmed, failed, nil
}

// ConfirmAll 把满足过滤条件且金额为正的待确认结算一次性全部确认，
// 复用单条确认的级联逻辑。金额缺失或非正的记录跳过，单条失败不中断。
func (s *SettlementService) ConfirmAll(ctx context.Context, filters map[string]string, operator string) (int, error) {
	if filters == nil {
		filters = map[string]string{}
	}
	if filters["status"] == "" {
		filters["status"] = entity.SettlementStatusPending
	}
	records, err := s.repo.FindByFilters(ctx, filters)
	if err != nil {
		return 0, err
	}

	confirmed := 0
	for _, record := range records {
		if record.Amount == nil || *record.Amount <= 0 {
			continue
		}
		if _, err := s.Confirm(ctx, record.ID, &SettlementConfirmRequest{Remark: record.Remark}, operator); err != nil {
			continue
		}
		confirmed++
	}
	return confirmed, nil
}

// List 分页查询并从订单侧回填展示字段
func (s *SettlementService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.SettlementRecord, int64, error) {
	records, total, err := s.repo.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, err
	}
	s.enrichFromOrders(ctx, records)
	return records, total, nil
}

// Export 与列表同一套过滤条件，行数受配置上限约束。
// 配置了对象存储时顺带归档一份，归档失败不影响导出本身。
func (s *SettlementService) Export(ctx context.Context, filters map[string]string) ([]byte, string, error) {
	records, err := s.repo.FindForExport(ctx, filters, s.opts.ExportMaxRows)
	if err != nil {
		return nil, "", err
	}
	s.enrichFromOrders(ctx, records)

	f, err := excel.WriteSettlements(records)
	if err != nil {
		return nil, "", bizerr.System("导出文件生成失败")
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", bizerr.System("导出文件生成失败")
	}
	data := buf.Bytes()

	objectName := ""
	if s.uploader != nil {
		name := fmt.Sprintf("settlements-%s.xlsx", time.Now().Format("20060102-150405"))
		if uploaded, err := s.uploader.UploadExport(ctx, name, data); err == nil {
			objectName = uploaded
		}
	}
	return data, objectName, nil
}

func (s *SettlementService) UpdateAmount(ctx context.Context, id string, req *SettlementAmountRequest) (*entity.SettlementRecord, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, bizerr.NotFound("结算记录不存在")
		}
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"amount": req.Amount, "manual_input": true}); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// UpdateAmountByModel 按型号批量定价。显式金额优先，否则取型号单价表最新价。
func (s *SettlementService) UpdateAmountByModel(ctx context.Context, req *SettlementBatchPriceRequest) (int, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return 0, bizerr.BadRequest("型号不能为空")
	}

	amount := req.Amount
	if amount == nil {
		price, err := s.priceRepo.LatestByItemName(ctx, model)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && price.Price == nil) {
			return 0, bizerr.BadRequest("型号无可用单价: " + model)
		}
		if err != nil {
			return 0, err
		}
		amount = price.Price
	}

	updated := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewSettlementRepository(tx)
		records, err := repo.FindPendingByModel(ctx, model)
		if err != nil {
			return err
		}
		for _, r := range records {
			if err := repo.UpdateFields(ctx, r.ID, map[string]interface{}{"amount": amount}); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// Delete 批量物理删除，结算侧唯一不可逆操作
func (s *SettlementService) Delete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, bizerr.BadRequest("请选择要删除的记录")
	}
	return s.repo.HardDelete(ctx, ids)
}

// SyncFromOrder 订单编辑后把最新字段推给名下所有结算记录
func (s *SettlementService) SyncFromOrder(ctx context.Context, order *entity.OrderRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.syncFromOrderTx(ctx, tx, order)
	})
}

func (s *SettlementService) syncFromOrderTx(ctx context.Context, tx *gorm.DB, order *entity.OrderRecord) error {
	repo := repository.NewSettlementRepository(tx)
	records, err := repo.FindByOrderID(ctx, order.ID)
	if err != nil {
		return err
	}
	for _, r := range records {
		fields := map[string]interface{}{
			"tracking_number": strings.TrimSpace(order.TrackingNumber),
			"model":           order.Model,
			"amount":          order.Amount,
			"currency":        defaultCurrency(order.Currency),
			"remark":          order.Remark,
			"order_time":      order.OrderTime,
		}
		if err := repo.UpdateFields(ctx, r.ID, fields); err != nil {
			return err
		}
	}
	return nil
}

// enrichFromOrders 读取订单侧当前状态/金额回填展示字段，只读不落库。
// 结算自身型号为空时兜底用订单型号。
func (s *SettlementService) enrichFromOrders(ctx context.Context, records []entity.SettlementRecord) {
	if len(records) == 0 {
		return
	}
	trackingNumbers := make([]string, 0, len(records))
	for _, r := range records {
		trackingNumbers = append(trackingNumbers, strings.TrimSpace(r.TrackingNumber))
	}
	orders, err := s.orders.FindByTracking(ctx, trackingNumbers)
	if err != nil {
		return
	}
	byID := make(map[string]*entity.OrderRecord, len(orders))
	byTracking := make(map[string]*entity.OrderRecord, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
		t := strings.TrimSpace(orders[i].TrackingNumber)
		if _, ok := byTracking[t]; !ok {
			byTracking[t] = &orders[i]
		}
	}

	for i := range records {
		r := &records[i]
		var order *entity.OrderRecord
		if r.OrderID != nil {
			order = byID[*r.OrderID]
		}
		if order == nil {
			order = byTracking[strings.TrimSpace(r.TrackingNumber)]
		}
		if order == nil {
			continue
		}
		r.OrderStatus = order.Status
		r.OrderAmount = order.Amount
		r.OrderSN = order.SN
		if r.Model == "" {
			r.Model = order.Model
		}
		if r.OwnerUsername == "" {
			if owner, ok := s.owners.Lookup(strings.TrimSpace(r.TrackingNumber)); ok {
				r.OwnerUsername = owner
			}
		}
	}
}

func defaultCurrency(currency string) string {
	if currency == "" {
		return "CNY"
	}
	return currency
}
