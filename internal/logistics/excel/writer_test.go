package excel

import (
	"fmt"
	"testing"
	"time"

	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
)

func timePtr(t time.Time) *time.Time { return &t }

func floatPtr(v float64) *float64 { return &v }

func TestWriteSettlements(t *testing.T) {
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local)
	records := []entity.SettlementRecord{
		{
			ID:             "s1",
			TrackingNumber: "SF1111111111",
			Model:          "iPhone 15",
			OrderSN:        "SN001",
			Amount:         floatPtr(4500),
			Remark:         "急件",
			OwnerUsername:  "alice",
			OrderTime:      timePtr(base),
		},
		{
			ID:             "s2",
			TrackingNumber: "SF1111111111",
			Model:          "iPad Air",
			OrderSN:        "SN002",
			OwnerUsername:  "alice",
			OrderTime:      timePtr(base),
		},
		{
			ID:             "s3",
			TrackingNumber: "YT2222222222",
			Model:          "MacBook",
			OrderSN:        "SN003",
			Amount:         floatPtr(8000),
			OwnerUsername:  "bob",
			OrderTime:      timePtr(base.Add(time.Hour)),
		},
	}

	f, err := WriteSettlements(records)
	if err != nil {
		t.Fatalf("WriteSettlements failed: %v", err)
	}
	defer f.Close()

	cell := func(axis string) string {
		v, err := f.GetCellValue(exportSheet, axis)
		if err != nil {
			t.Fatalf("failed to read %s: %v", axis, err)
		}
		return v
	}

	// 表头
	if cell("A1") != "时间" || cell("B1") != "订单号" || cell("J1") != "归属人" {
		t.Fatalf("unexpected headers: A1=%q B1=%q J1=%q", cell("A1"), cell("B1"), cell("J1"))
	}

	// alice 组在前（归属人字典序），同单号组只有首行带时间和单号
	if cell("A2") != "2024/03/15 10:00" || cell("B2") != "SF1111111111" {
		t.Fatalf("unexpected first group row: A2=%q B2=%q", cell("A2"), cell("B2"))
	}
	if cell("C2") != "iPhone 15" || cell("D2") != "SN001" || cell("J2") != "alice" {
		t.Fatalf("unexpected first data row: C2=%q D2=%q J2=%q", cell("C2"), cell("D2"), cell("J2"))
	}
	if cell("A3") != "" || cell("B3") != "" {
		t.Fatalf("expected blank time/tracking on second group row, got A3=%q B3=%q", cell("A3"), cell("B3"))
	}
	if cell("C3") != "iPad Air" {
		t.Fatalf("unexpected second data row: C3=%q", cell("C3"))
	}
	// 金额缺省写 0
	if cell("E3") != "0" {
		t.Fatalf("expected zero amount, got %q", cell("E3"))
	}

	// bob 组与 alice 组之间空三行：alice 占第 2、3 行，bob 从第 7 行开始
	for row := 4; row <= 6; row++ {
		if cell(fmt.Sprintf("B%d", row)) != "" {
			t.Fatalf("expected blank separator at row %d", row)
		}
	}
	if cell("B7") != "YT2222222222" || cell("J7") != "bob" {
		t.Fatalf("unexpected bob group: B7=%q J7=%q", cell("B7"), cell("J7"))
	}
	if cell("E7") != "8000" {
		t.Fatalf("unexpected bob amount: %q", cell("E7"))
	}
}

func TestWriteSettlementsOrdersGroupsByTime(t *testing.T) {
	early := time.Date(2024, 3, 10, 8, 0, 0, 0, time.Local)
	late := time.Date(2024, 3, 20, 8, 0, 0, 0, time.Local)
	records := []entity.SettlementRecord{
		{ID: "s1", TrackingNumber: "SF2222222222", OrderSN: "SN-LATE", OwnerUsername: "alice", OrderTime: timePtr(late)},
		{ID: "s2", TrackingNumber: "SF1111111111", OrderSN: "SN-EARLY", OwnerUsername: "alice", OrderTime: timePtr(early)},
	}

	f, err := WriteSettlements(records)
	if err != nil {
		t.Fatalf("WriteSettlements failed: %v", err)
	}
	defer f.Close()

	b2, _ := f.GetCellValue(exportSheet, "B2")
	b3, _ := f.GetCellValue(exportSheet, "B3")
	if b2 != "SF1111111111" || b3 != "SF2222222222" {
		t.Fatalf("expected groups sorted by time, got B2=%q B3=%q", b2, b3)
	}
}

func TestCandidateTimeFallback(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

	r := entity.SettlementRecord{OrderTime: timePtr(now)}
	if !candidateTime(r).Equal(now) {
		t.Fatal("order time should win")
	}

	r = entity.SettlementRecord{ConfirmedAt: timePtr(now), CreatedAt: now.Add(time.Hour)}
	if !candidateTime(r).Equal(now) {
		t.Fatal("confirmed time should win over created time")
	}

	r = entity.SettlementRecord{CreatedAt: now}
	if !candidateTime(r).Equal(now) {
		t.Fatal("created time fallback failed")
	}

	r = entity.SettlementRecord{}
	if !candidateTime(r).IsZero() {
		t.Fatal("expected zero time when nothing is set")
	}
}
