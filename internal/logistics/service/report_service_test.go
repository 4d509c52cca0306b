package service

import (
	"context"
	"testing"
	"time"

	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
)

func TestDashboardAggregates(t *testing.T) {
	s := newTestServices(t)
	reports := NewReportService(s.orderRepo, s.settleRepo)
	ctx := context.Background()

	jan := time.Date(2025, 1, 10, 9, 30, 0, 0, time.Local)
	feb := time.Date(2025, 2, 10, 14, 0, 0, 0, time.Local)
	mar := time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local)

	order1, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "SF1111111111", SN: "SN001", OrderTime: &jan, Amount: ptrFloat(100)}, "tester")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "YT2222222222", SN: "SN002", OrderTime: &feb, Amount: ptrFloat(50)}, "tester"); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	// 金额缺失的订单只计条数不计金额
	if _, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "JT3333333333", SN: "SN003", OrderTime: &mar}, "tester"); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := s.settlements.CreatePending(ctx, []entity.OrderRecord{*order1}, false); err != nil {
		t.Fatalf("create pending failed: %v", err)
	}
	// 已确认的结算不计入待结账
	confirmedRecord := entity.SettlementRecord{
		ID:             newID(),
		TrackingNumber: "YT2222222222",
		Status:         entity.SettlementStatusConfirmed,
		Amount:         ptrFloat(999),
	}
	if err := s.settleRepo.Create(ctx, &confirmedRecord); err != nil {
		t.Fatalf("settlement create failed: %v", err)
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, 2, 28, 0, 0, 0, 0, time.Local)
	stats, err := reports.Dashboard(ctx, &start, &end)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if stats.OrderCount != 2 {
		t.Fatalf("expected 2 orders in range, got %d", stats.OrderCount)
	}
	if stats.TotalAmount != 150 {
		t.Fatalf("expected total 150, got %v", stats.TotalAmount)
	}
	if stats.WaitingSettlementCount != 1 {
		t.Fatalf("expected 1 pending settlement, got %d", stats.WaitingSettlementCount)
	}
	if stats.PendingAmount != 100 {
		t.Fatalf("expected pending amount 100, got %v", stats.PendingAmount)
	}

	// 不带区间取全量
	all, err := reports.Dashboard(ctx, nil, nil)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if all.OrderCount != 3 || all.TotalAmount != 150 {
		t.Fatalf("expected 3 orders totalling 150, got %d / %v", all.OrderCount, all.TotalAmount)
	}
}
