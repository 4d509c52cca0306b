package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leiakito/wuliu-sub000/internal/logistics/bizerr"
	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
)

func TestCreatePendingIsIdempotent(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	order, err := s.orders.Create(ctx, &OrderCreateRequest{
		TrackingNumber: "SF1111111111",
		SN:             "SN001",
		Amount:         ptrFloat(120),
	}, "tester")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	first, err := s.settlements.CreatePending(ctx, []entity.OrderRecord{*order}, true)
	if err != nil {
		t.Fatalf("first create pending failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(first))
	}
	if first[0].Warning {
		t.Fatal("first settlement should not carry a warning")
	}
	if first[0].Status != entity.SettlementStatusPending {
		t.Fatalf("expected PENDING, got %q", first[0].Status)
	}
	if first[0].Amount == nil || *first[0].Amount != 120 {
		t.Fatalf("expected amount seeded from order, got %v", first[0].Amount)
	}

	// 二次生成不插新行，已有记录打重复记账告警
	second, err := s.settlements.CreatePending(ctx, []entity.OrderRecord{*order}, true)
	if err != nil {
		t.Fatalf("second create pending failed: %v", err)
	}
	if len(second) != 1 || second[0].ID != first[0].ID {
		t.Fatalf("expected same settlement back, got %+v", second)
	}

	stored, err := s.settleRepo.FindByID(ctx, first[0].ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !stored.Warning {
		t.Fatal("expected warning flag after double billing")
	}

	var count int64
	s.db.Model(&entity.SettlementRecord{}).Where("tracking_number = ?", "SF1111111111").Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly 1 settlement row, got %d", count)
	}
}

func TestCreatePendingWithoutWarnFlag(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	order, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "SF1111111111", SN: "SN001"}, "tester")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := s.settlements.CreatePending(ctx, []entity.OrderRecord{*order}, false); err != nil {
		t.Fatalf("first create pending failed: %v", err)
	}
	if _, err := s.settlements.CreatePending(ctx, []entity.OrderRecord{*order}, false); err != nil {
		t.Fatalf("second create pending failed: %v", err)
	}

	records, err := s.settleRepo.FindByTrackingIn(ctx, []string{"SF1111111111"})
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if len(records) != 1 || records[0].Warning {
		t.Fatalf("expected single record without warning, got %+v", records)
	}
}

func TestCreatePendingByTrackingWithoutOrders(t *testing.T) {
	s := newTestServices(t)

	_, err := s.settlements.CreatePendingByTracking(context.Background(), []string{"SF0000000000"})
	if !bizerr.Is(err, bizerr.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConfirmCascades(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	order, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "SF1111111111", SN: "SN001"}, "tester")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	submission, err := s.submissions.Create(ctx, &SubmissionCreateRequest{TrackingNumber: "SF1111111111"}, "alice")
	if err != nil {
		t.Fatalf("submission create failed: %v", err)
	}

	records, err := s.settleRepo.FindByTrackingIn(ctx, []string{"SF1111111111"})
	if err != nil || len(records) != 1 {
		t.Fatalf("expected 1 pending settlement, got %d (err %v)", len(records), err)
	}

	confirmed, err := s.settlements.Confirm(ctx, records[0].ID, &SettlementConfirmRequest{Amount: ptrFloat(88)}, "admin")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != entity.SettlementStatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %q", confirmed.Status)
	}
	if !strings.HasPrefix(confirmed.SettleBatch, "BATCH-") {
		t.Fatalf("expected batch id, got %q", confirmed.SettleBatch)
	}
	if confirmed.PayableAt == nil || confirmed.ConfirmedAt == nil || confirmed.ConfirmedBy != "admin" {
		t.Fatalf("expected confirmation metadata, got %+v", confirmed)
	}

	// 订单回写 PAID + 金额
	updatedOrder, err := s.orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("order lookup failed: %v", err)
	}
	if updatedOrder.Status != entity.OrderStatusPaid {
		t.Fatalf("expected PAID, got %q", updatedOrder.Status)
	}
	if updatedOrder.Amount == nil || *updatedOrder.Amount != 88 {
		t.Fatalf("expected amount 88, got %v", updatedOrder.Amount)
	}

	// 提报级联完成
	var stored entity.UserSubmission
	if err := s.db.First(&stored, "id = ?", submission.ID).Error; err != nil {
		t.Fatalf("submission lookup failed: %v", err)
	}
	if stored.Status != entity.SubmissionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %q", stored.Status)
	}
}

func TestConfirmWithSiblingPendingKeepsSubmissionOpen(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	order, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "SF1111111111", SN: "SN001"}, "tester")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	submission, err := s.submissions.Create(ctx, &SubmissionCreateRequest{TrackingNumber: "SF1111111111"}, "alice")
	if err != nil {
		t.Fatalf("submission create failed: %v", err)
	}

	// 历史数据可能存在同单号的第二条 PENDING，直接落一条构造这种状态
	sibling := entity.SettlementRecord{
		ID:             newID(),
		OrderID:        &order.ID,
		TrackingNumber: "SF1111111111",
		Status:         entity.SettlementStatusPending,
	}
	if err := s.settleRepo.Create(ctx, &sibling); err != nil {
		t.Fatalf("sibling create failed: %v", err)
	}

	records, err := s.settleRepo.FindByTrackingIn(ctx, []string{"SF1111111111"})
	if err != nil || len(records) != 2 {
		t.Fatalf("expected 2 settlements, got %d (err %v)", len(records), err)
	}

	first := records[0]
	if first.ID == sibling.ID {
		first = records[1]
	}
	if _, err := s.settlements.Confirm(ctx, first.ID, &SettlementConfirmRequest{}, "admin"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// 还剩一条未确认，提报不能完成
	var stored entity.UserSubmission
	if err := s.db.First(&stored, "id = ?", submission.ID).Error; err != nil {
		t.Fatalf("submission lookup failed: %v", err)
	}
	if stored.Status != entity.SubmissionStatusPending {
		t.Fatalf("expected submission to stay PENDING, got %q", stored.Status)
	}

	// 确认最后一条后提报完成
	if _, err := s.settlements.Confirm(ctx, sibling.ID, &SettlementConfirmRequest{}, "admin"); err != nil {
		t.Fatalf("second confirm failed: %v", err)
	}
	if err := s.db.First(&stored, "id = ?", submission.ID).Error; err != nil {
		t.Fatalf("submission lookup failed: %v", err)
	}
	if stored.Status != entity.SubmissionStatusCompleted {
		t.Fatalf("expected COMPLETED after final confirm, got %q", stored.Status)
	}
}

func TestConfirmFallsBackToTrackingWhenOrderIDMissing(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	order, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "SF1111111111", SN: "SN001"}, "tester")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// orderId 悬空的结算记录，确认时按运单号兜底回查
	record := entity.SettlementRecord{
		ID:             newID(),
		TrackingNumber: "SF1111111111",
		Status:         entity.SettlementStatusPending,
	}
	if err := s.settleRepo.Create(ctx, &record); err != nil {
		t.Fatalf("settlement create failed: %v", err)
	}

	if _, err := s.settlements.Confirm(ctx, record.ID, &SettlementConfirmRequest{Amount: ptrFloat(66)}, "admin"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	updated, err := s.orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("order lookup failed: %v", err)
	}
	if updated.Status != entity.OrderStatusPaid || updated.Amount == nil || *updated.Amount != 66 {
		t.Fatalf("expected fallback order update, got %+v", updated)
	}
}

func TestConfirmMissingOrderIsTolerated(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	record := entity.SettlementRecord{
		ID:             newID(),
		TrackingNumber: "SF9999999999",
		Status:         entity.SettlementStatusPending,
	}
	if err := s.settleRepo.Create(ctx, &record); err != nil {
		t.Fatalf("settlement create failed: %v", err)
	}

	confirmed, err := s.settlements.Confirm(ctx, record.ID, &SettlementConfirmRequest{}, "admin")
	if err != nil {
		t.Fatalf("confirm should tolerate missing order: %v", err)
	}
	if confirmed.Status != entity.SettlementStatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %q", confirmed.Status)
	}
}

func TestConfirmNotFound(t *testing.T) {
	s := newTestServices(t)

	_, err := s.settlements.Confirm(context.Background(), "missing-id", &SettlementConfirmRequest{}, "admin")
	if !bizerr.Is(err, bizerr.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConfirmBatchCollectsFailures(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	order, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "SF1111111111", SN: "SN001"}, "tester")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	pending, err := s.settlements.CreatePending(ctx, []entity.OrderRecord{*order}, false)
	if err != nil {
		t.Fatalf("create pending failed: %v", err)
	}

	confirmed, failed, err := s.settlements.ConfirmBatch(ctx, &SettlementBatchConfirmRequest{
		IDs: []string{pending[0].ID, "missing-id"},
	}, "admin")
	if err != nil {
		t.Fatalf("batch confirm failed: %v", err)
	}
	if confirmed != 1 {
		t.Fatalf("expected 1 confirmed, got %d", confirmed)
	}
	if len(failed) != 1 || failed[0] != "missing-id" {
		t.Fatalf("unexpected failures: %v", failed)
	}
}

func TestConfirmAllSkipsRecordsWithoutAmount(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	order1, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "SF1111111111", SN: "SN001", Amount: ptrFloat(100), Remark: "加急"}, "tester")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	order2, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "YT2222222222", SN: "SN002", Amount: ptrFloat(200)}, "tester")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := s.settlements.CreatePending(ctx, []entity.OrderRecord{*order1, *order2}, false); err != nil {
		t.Fatalf("create pending failed: %v", err)
	}

	// 没有金额的记录不参与一键确认
	noAmount := entity.SettlementRecord{
		ID:             newID(),
		TrackingNumber: "JT3333333333",
		Status:         entity.SettlementStatusPending,
	}
	if err := s.settleRepo.Create(ctx, &noAmount); err != nil {
		t.Fatalf("settlement create failed: %v", err)
	}

	confirmed, err := s.settlements.ConfirmAll(ctx, nil, "admin")
	if err != nil {
		t.Fatalf("confirm all failed: %v", err)
	}
	if confirmed != 2 {
		t.Fatalf("expected 2 confirmed, got %d", confirmed)
	}

	records, err := s.settleRepo.FindByTrackingIn(ctx, []string{"SF1111111111", "YT2222222222", "JT3333333333"})
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	for _, r := range records {
		switch r.TrackingNumber {
		case "JT3333333333":
			if r.Status != entity.SettlementStatusPending {
				t.Fatalf("expected record without amount to stay PENDING, got %q", r.Status)
			}
		default:
			if r.Status != entity.SettlementStatusConfirmed || r.ConfirmedBy != "admin" {
				t.Fatalf("expected CONFIRMED by admin, got %+v", r)
			}
		}
		if r.TrackingNumber == "SF1111111111" && r.Remark != "加急" {
			t.Fatalf("expected remark kept on bulk confirm, got %q", r.Remark)
		}
	}

	// 订单侧级联回写
	updated, err := s.orderRepo.FindByID(ctx, order1.ID)
	if err != nil {
		t.Fatalf("order lookup failed: %v", err)
	}
	if updated.Status != entity.OrderStatusPaid || updated.Amount == nil || *updated.Amount != 100 {
		t.Fatalf("expected PAID with amount 100, got %+v", updated)
	}
}

func TestConfirmAllHonorsFilters(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	for i, tracking := range []string{"SF1111111111", "YT2222222222"} {
		record := entity.SettlementRecord{
			ID:             newID(),
			TrackingNumber: tracking,
			Status:         entity.SettlementStatusPending,
			Amount:         ptrFloat(float64(100 + i)),
			OwnerUsername:  "alice",
		}
		if i == 1 {
			record.OwnerUsername = "bob"
		}
		if err := s.settleRepo.Create(ctx, &record); err != nil {
			t.Fatalf("settlement create failed: %v", err)
		}
	}

	confirmed, err := s.settlements.ConfirmAll(ctx, map[string]string{"owner_username": "alice"}, "admin")
	if err != nil {
		t.Fatalf("confirm all failed: %v", err)
	}
	if confirmed != 1 {
		t.Fatalf("expected 1 confirmed, got %d", confirmed)
	}

	records, err := s.settleRepo.FindByTrackingIn(ctx, []string{"YT2222222222"})
	if err != nil || len(records) != 1 {
		t.Fatalf("lookup failed: %d (err %v)", len(records), err)
	}
	if records[0].Status != entity.SettlementStatusPending {
		t.Fatalf("expected other owner to stay PENDING, got %q", records[0].Status)
	}
}

func TestConfirmOverwritesRemark(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	record := entity.SettlementRecord{
		ID:             newID(),
		TrackingNumber: "SF1111111111",
		Status:         entity.SettlementStatusPending,
		Remark:         "旧备注",
	}
	if err := s.settleRepo.Create(ctx, &record); err != nil {
		t.Fatalf("settlement create failed: %v", err)
	}

	// 确认请求的备注整体覆盖，空串即清空
	confirmed, err := s.settlements.Confirm(ctx, record.ID, &SettlementConfirmRequest{Remark: ""}, "admin")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Remark != "" {
		t.Fatalf("expected remark cleared, got %q", confirmed.Remark)
	}
}

func TestUpdateAmountByModel(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	order1, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "SF1111111111", SN: "SN001", Model: "iPhone 15"}, "tester")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	order2, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "YT2222222222", SN: "SN002", Model: "iPhone 15"}, "tester")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := s.settlements.CreatePending(ctx, []entity.OrderRecord{*order1, *order2}, false); err != nil {
		t.Fatalf("create pending failed: %v", err)
	}

	// 无显式金额也无单价表记录
	if _, err := s.settlements.UpdateAmountByModel(ctx, &SettlementBatchPriceRequest{Model: "iPhone 15"}); !bizerr.Is(err, bizerr.CodeBadRequest) {
		t.Fatalf("expected bad request without price, got %v", err)
	}

	// 落一条单价后按单价表定价
	priceDate := time.Now()
	if err := s.priceRepo.Create(ctx, &entity.HardwarePrice{
		ID:        newID(),
		PriceDate: &priceDate,
		ItemName:  "iPhone 15",
		Price:     ptrFloat(4500),
	}); err != nil {
		t.Fatalf("price create failed: %v", err)
	}

	updated, err := s.settlements.UpdateAmountByModel(ctx, &SettlementBatchPriceRequest{Model: "iPhone 15"})
	if err != nil {
		t.Fatalf("update by model failed: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updated, got %d", updated)
	}

	records, err := s.settleRepo.FindByTrackingIn(ctx, []string{"SF1111111111", "YT2222222222"})
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	for _, r := range records {
		if r.Amount == nil || *r.Amount != 4500 {
			t.Fatalf("expected amount 4500, got %v", r.Amount)
		}
	}

	// 显式金额优先于单价表
	if _, err := s.settlements.UpdateAmountByModel(ctx, &SettlementBatchPriceRequest{Model: "iPhone 15", Amount: ptrFloat(4999)}); err != nil {
		t.Fatalf("explicit amount update failed: %v", err)
	}
	record, err := s.settleRepo.FindByID(ctx, records[0].ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if record.Amount == nil || *record.Amount != 4999 {
		t.Fatalf("expected explicit amount, got %v", record.Amount)
	}
}

func TestUpdateSettlementAmountMarksManual(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	order, err := s.orders.Create(ctx, &OrderCreateRequest{TrackingNumber: "SF1111111111", SN: "SN001"}, "tester")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	pending, err := s.settlements.CreatePending(ctx, []entity.OrderRecord{*order}, false)
	if err != nil {
		t.Fatalf("create pending failed: %v", err)
	}

	updated, err := s.settlements.UpdateAmount(ctx, pending[0].ID, &SettlementAmountRequest{Amount: ptrFloat(77)})
	if err != nil {
		t.Fatalf("update amount failed: %v", err)
	}
	if updated.Amount == nil || *updated.Amount != 77 || !updated.ManualInput {
		t.Fatalf("expected manual amount, got %+v", updated)
	}
}

func TestExportRespectsRowCap(t *testing.T) {
	s := newTestServices(t)
	s.settlements.opts.ExportMaxRows = 2
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		record := entity.SettlementRecord{
			ID:             newID(),
			TrackingNumber: fmt.Sprintf("SF00000000%d", i),
			Status:         entity.SettlementStatusPending,
			OwnerUsername:  "alice",
		}
		if err := s.settleRepo.Create(ctx, &record); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	data, objectName, err := s.settlements.Export(ctx, nil)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected workbook bytes")
	}
	if objectName != "" {
		t.Fatalf("no uploader configured, got object %q", objectName)
	}

	records, err := s.settleRepo.FindForExport(ctx, nil, s.settlements.opts.ExportMaxRows)
	if err != nil {
		t.Fatalf("FindForExport failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(records))
	}
}

func TestDeleteSettlements(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	record := entity.SettlementRecord{
		ID:             newID(),
		TrackingNumber: "SF1111111111",
		Status:         entity.SettlementStatusPending,
	}
	if err := s.settleRepo.Create(ctx, &record); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := s.settlements.Delete(ctx, nil); !bizerr.Is(err, bizerr.CodeBadRequest) {
		t.Fatalf("expected bad request for empty ids, got %v", err)
	}

	deleted, err := s.settlements.Delete(ctx, []string{record.ID})
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	var count int64
	s.db.Model(&entity.SettlementRecord{}).Where("id = ?", record.ID).Count(&count)
	if count != 0 {
		t.Fatal("expected hard delete")
	}
}
