package service

import (
	"context"
	"time"

	"github.com/leiakito/wuliu-sub000/internal/logistics/repository"
)

// DashboardStats 仪表盘汇总：区间内订单量与金额、全局待确认结算量与金额
type DashboardStats struct {
	OrderCount             int64   `json:"order_count"`
	TotalAmount            float64 `json:"total_amount"`
	WaitingSettlementCount int64   `json:"waiting_settlement_count"`
	PendingAmount          float64 `json:"pending_amount"`
}

// ReportService 报表统计，只读聚合
type ReportService struct {
	orderRepo  *repository.OrderRepository
	settleRepo *repository.SettlementRepository
}

func NewReportService(orderRepo *repository.OrderRepository, settleRepo *repository.SettlementRepository) *ReportService {
	return &ReportService{orderRepo: orderRepo, settleRepo: settleRepo}
}

// Dashboard 订单侧按下单日期区间统计，待确认结算不受区间限制取全量
func (s *ReportService) Dashboard(ctx context.Context, start, end *time.Time) (*DashboardStats, error) {
	orderCount, totalAmount, err := s.orderRepo.AggregateByOrderDate(ctx, start, end)
	if err != nil {
		return nil, err
	}
	pendingCount, pendingAmount, err := s.settleRepo.AggregatePending(ctx)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{
		OrderCount:             orderCount,
		TotalAmount:            totalAmount,
		WaitingSettlementCount: pendingCount,
		PendingAmount:          pendingAmount,
	}, nil
}
