package service

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
	"github.com/leiakito/wuliu-sub000/internal/logistics/repository"
	"github.com/leiakito/wuliu-sub000/internal/logistics/testutil"
	"github.com/leiakito/wuliu-sub000/internal/ownerstore"
)

// 测试用服务装配，与 main 的接线保持一致
type testServices struct {
	db          *gorm.DB
	owners      ownerstore.Store
	orders      *OrderService
	settlements *SettlementService
	submissions *SubmissionService
	orderRepo   *repository.OrderRepository
	settleRepo  *repository.SettlementRepository
	subRepo     *repository.SubmissionRepository
	priceRepo   *repository.HardwarePriceRepository
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	db := testutil.SetupTestDB(t)

	owners := ownerstore.NewMemoryStore()
	orderRepo := repository.NewOrderRepository(db)
	settleRepo := repository.NewSettlementRepository(db)
	subRepo := repository.NewSubmissionRepository(db)
	subLogRepo := repository.NewSubmissionLogRepository(db)
	priceRepo := repository.NewHardwarePriceRepository(db)

	orders := NewOrderService(db, orderRepo, owners)
	settlements := NewSettlementService(db, settleRepo, orderRepo, priceRepo, owners, orders, nil, SettlementOptions{
		WarnDoubleBilling: true,
		ExportMaxRows:     10000,
	})
	orders.BindSettlements(settlements)
	submissions := NewSubmissionService(db, subRepo, subLogRepo, orderRepo, settlements, owners)

	return &testServices{
		db:          db,
		owners:      owners,
		orders:      orders,
		settlements: settlements,
		submissions: submissions,
		orderRepo:   orderRepo,
		settleRepo:  settleRepo,
		subRepo:     subRepo,
		priceRepo:   priceRepo,
	}
}

func ptrFloat(v float64) *float64 { return &v }

func ptrTime(t time.Time) *time.Time { return &t }

func importedOrder(trackingNumber, sn, model string) entity.OrderRecord {
	now := time.Now()
	today := dateOf(now)
	return entity.OrderRecord{
		OrderTime:      &now,
		OrderDate:      &today,
		TrackingNumber: trackingNumber,
		SN:             sn,
		Model:          model,
		Status:         entity.OrderStatusUnpaid,
		Currency:       "CNY",
		Imported:       true,
		CreatedBy:      "importer",
	}
}
