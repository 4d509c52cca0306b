package excel

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
)

const exportSheet = "待结账"

var exportHeaders = []string{"时间", "订单号", "商品名", "SN/条码", "价格", "备注", " ", " ", " ", "归属人"}

// WriteSettlements 生成待结账工作簿。先按归属人分组（组间空三行），
// 组内再按「时间+单号」聚合并按时间排序，每个单号组只有首行显示时间和单号。
func WriteSettlements(records []entity.SettlementRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	for i, label := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(exportSheet, cell, label)
		f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}
	f.SetColWidth(exportSheet, "A", "A", 18)
	f.SetColWidth(exportSheet, "B", "B", 22)
	f.SetColWidth(exportSheet, "C", "D", 20)
	f.SetColWidth(exportSheet, "F", "F", 24)

	byOwner := make(map[string][]entity.SettlementRecord)
	for _, r := range records {
		byOwner[r.OwnerUsername] = append(byOwner[r.OwnerUsername], r)
	}
	owners := make([]string, 0, len(byOwner))
	for owner := range byOwner {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	rowIndex := 2
	for oi, owner := range owners {
		if oi > 0 {
			rowIndex += 3
		}
		for _, group := range groupByTracking(byOwner[owner]) {
			for i, r := range group.records {
				if i == 0 {
					f.SetCellValue(exportSheet, fmt.Sprintf("A%d", rowIndex), formatGroupTime(group.time))
					f.SetCellValue(exportSheet, fmt.Sprintf("B%d", rowIndex), group.tracking)
				}
				f.SetCellValue(exportSheet, fmt.Sprintf("C%d", rowIndex), r.Model)
				f.SetCellValue(exportSheet, fmt.Sprintf("D%d", rowIndex), r.OrderSN)
				if r.Amount != nil {
					f.SetCellValue(exportSheet, fmt.Sprintf("E%d", rowIndex), *r.Amount)
				} else {
					f.SetCellValue(exportSheet, fmt.Sprintf("E%d", rowIndex), 0)
				}
				f.SetCellValue(exportSheet, fmt.Sprintf("F%d", rowIndex), r.Remark)
				f.SetCellValue(exportSheet, fmt.Sprintf("J%d", rowIndex), owner)
				rowIndex++
			}
		}
	}
	return f, nil
}

type trackingGroup struct {
	tracking string
	time     time.Time
	records  []entity.SettlementRecord
}

func groupByTracking(records []entity.SettlementRecord) []trackingGroup {
	groups := make(map[string]*trackingGroup)
	var order []string
	for _, r := range records {
		if r.TrackingNumber == "" {
			continue
		}
		t := candidateTime(r)
		key := r.TrackingNumber + "|" + t.Format(time.RFC3339)
		g, ok := groups[key]
		if !ok {
			g = &trackingGroup{tracking: r.TrackingNumber, time: t}
			groups[key] = g
			order = append(order, key)
		}
		g.records = append(g.records, r)
	}

	result := make([]trackingGroup, 0, len(order))
	for _, key := range order {
		result = append(result, *groups[key])
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].time.Equal(result[j].time) {
			return result[i].time.Before(result[j].time)
		}
		return result[i].tracking < result[j].tracking
	})
	return result
}

// 导出排序/展示的候选时间：orderTime 优先，其次确认、创建、更新时间，最后应付日期
func candidateTime(r entity.SettlementRecord) time.Time {
	switch {
	case r.OrderTime != nil:
		return *r.OrderTime
	case r.ConfirmedAt != nil:
		return *r.ConfirmedAt
	case !r.CreatedAt.IsZero():
		return r.CreatedAt
	case !r.UpdatedAt.IsZero():
		return r.UpdatedAt
	case r.PayableAt != nil:
		return *r.PayableAt
	}
	return time.Time{}
}

func formatGroupTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006/01/02 15:04")
}
