package excel

import (
	"bytes"
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
	"github.com/leiakito/wuliu-sub000/internal/logistics/tracking"
)

// Excel 防公式前缀与零宽字符
var textPrefixPattern = regexp.MustCompile(`^[='‘’“”"]+`)

var zeroWidthReplacer = strings.NewReplacer(
	"\ufeff", "", "​", "", "‌", "", "‍", "", "‎", "",
	"‪", "", "‫", "", "‬", "", "‭", "", "‮", "",
)

var trailingHyphenPattern = regexp.MustCompile(`-+$`)

// ReadOrders 从 xlsx 输入解析订单。表头行自动识别后跳过；
// 单元格级别的脏数据跳行处理，文件本身打不开才整体失败。
func ReadOrders(r io.Reader, operator string) ([]entity.OrderRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	fillMergedCells(f, sheet, rows)
	return ParseOrderRows(rows, operator), nil
}

// ReadOrdersCSV CSV 导入，容忍 GBK 编码的导出文件
func ReadOrdersCSV(r io.Reader, operator string) ([]entity.OrderRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
		if err == nil {
			data = decoded
		}
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return ParseOrderRows(rows, operator), nil
}

// ParseOrderRows 两种列布局自动识别：
// 简单布局（≤5 列）：时间/单号/型号/SN/备注；
// 扩展布局（>5 列）：备注分布在 E、F 两列，客户名在第 9 列。
// 时间与单号空白时沿用上一行的值（兼容合并单元格导出），
// 沿用后 SN 或单号仍为空的行丢弃。
func ParseOrderRows(rows [][]string, operator string) []entity.OrderRecord {
	var result []entity.OrderRecord
	var lastTime *time.Time
	var lastTracking string

	start := detectDataStartRow(rows)
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 {
			continue
		}

		orderTime := ParseDateTime(cellAt(row, 0))
		if orderTime == nil {
			orderTime = lastTime
		} else {
			lastTime = orderTime
		}

		trackingNumber := NormalizeTracking(cellAt(row, 1))
		if trackingNumber == "" {
			trackingNumber = lastTracking
		} else {
			lastTracking = trackingNumber
		}

		model := cleanText(cellAt(row, 2))
		sn := cleanText(cellAt(row, 3))
		if sn == "" || trackingNumber == "" {
			continue
		}

		record := entity.OrderRecord{
			OrderTime:      orderTime,
			TrackingNumber: trackingNumber,
			Model:          model,
			SN:             sn,
			Status:         entity.OrderStatusUnpaid,
			Currency:       "CNY",
			Category:       tracking.Classify(trackingNumber),
			Imported:       true,
			CreatedBy:      operator,
		}
		if orderTime != nil {
			day := time.Date(orderTime.Year(), orderTime.Month(), orderTime.Day(), 0, 0, 0, 0, orderTime.Location())
			record.OrderDate = &day
		}

		if len(row) <= 5 {
			record.Remark = cleanText(cellAt(row, 4))
		} else {
			remarkE := cleanText(cellAt(row, 4))
			remarkF := cleanText(cellAt(row, 5))
			switch {
			case remarkE == "":
				record.Remark = remarkF
			case remarkF == "":
				record.Remark = remarkE
			default:
				record.Remark = remarkE + " " + remarkF
			}
			record.CustomerName = cleanText(cellAt(row, 8))
		}

		// 金额不从导入文件读取，由结账侧写入
		result = append(result, record)
	}
	return result
}

// ReadHardwarePrices 解析型号单价表：A 列型号，B 列单价
func ReadHardwarePrices(r io.Reader, priceDate time.Time, operator string) ([]entity.HardwarePrice, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	var result []entity.HardwarePrice
	for _, row := range rows {
		itemName := strings.TrimSpace(cleanText(cellAt(row, 0)))
		priceText := strings.TrimSpace(cellAt(row, 1))
		if itemName == "" && priceText == "" {
			continue
		}
		if strings.EqualFold(itemName, "型号") || itemName == "" {
			continue
		}
		var price *float64
		if v, err := strconv.ParseFloat(priceText, 64); err == nil {
			price = &v
		}
		date := priceDate
		result = append(result, entity.HardwarePrice{
			PriceDate: &date,
			ItemName:  itemName,
			Price:     price,
			CreatedBy: operator,
		})
	}
	return result, nil
}

// NormalizeTracking 去除 Excel 防公式前缀、零宽字符与末尾连字符
func NormalizeTracking(s string) string {
	v := strings.TrimSpace(cleanText(s))
	v = trailingHyphenPattern.ReplaceAllString(v, "")
	return v
}

// ParseDateTime 解析单元格时间：优先按 Excel 日期序列值，
// 再尝试常见中文/分隔符文本格式；解析失败返回 nil 而不是报错。
func ParseDateTime(raw string) *time.Time {
	s := strings.TrimSpace(cleanText(raw))
	if s == "" {
		return nil
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial > 20000 && serial < 80000 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return &t
			}
		}
		return nil
	}

	normalized := strings.NewReplacer(
		"年", "-", "月", "-", "日", " ",
		"/", "-", ".", "-", "T", " ",
	).Replace(s)
	normalized = strings.Join(strings.Fields(normalized), " ")

	layouts := []string{
		"2006-1-2 15:04:05",
		"2006-1-2 15:04",
		"2006-1-2",
		"06-1-2 15:04:05",
		"06-1-2 15:04",
		"06-1-2",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, normalized, time.Local); err == nil {
			return &t
		}
	}
	return nil
}

func cleanText(s string) string {
	if s == "" {
		return ""
	}
	v := zeroWidthReplacer.Replace(s)
	return textPrefixPattern.ReplaceAllString(v, "")
}

func cellAt(row []string, index int) string {
	if index < len(row) {
		return row[index]
	}
	return ""
}

// 首行至少出现两个典型表头时视为表头行，从第二行开始取数
func detectDataStartRow(rows [][]string) int {
	if len(rows) == 0 {
		return 0
	}
	headerLabels := map[string]bool{
		"日期": true, "时间": true, "下单日期": true, "下单时间": true,
		"单号": true, "运单号": true, "型号": true, "sn": true,
		"备注": true, "金额": true, "状态": true, "物流": true, "分类": true,
	}
	score := 0
	limit := len(rows[0])
	if limit > 10 {
		limit = 10
	}
	for c := 0; c < limit; c++ {
		text := strings.ToLower(strings.TrimSpace(cleanText(rows[0][c])))
		if headerLabels[text] {
			score++
		}
	}
	if score >= 2 {
		return 1
	}
	return 0
}

// 合并单元格的值回填到整个区域，空白沿用规则才能覆盖合并导出
func fillMergedCells(f *excelize.File, sheet string, rows [][]string) {
	merged, err := f.GetMergeCells(sheet)
	if err != nil {
		return
	}
	for _, cell := range merged {
		startCol, startRow, err1 := excelize.CellNameToCoordinates(cell.GetStartAxis())
		endCol, endRow, err2 := excelize.CellNameToCoordinates(cell.GetEndAxis())
		if err1 != nil || err2 != nil {
			continue
		}
		value := cell.GetCellValue()
		for r := startRow; r <= endRow; r++ {
			for c := startCol; c <= endCol; c++ {
				if r-1 < len(rows) && c-1 < len(rows[r-1]) && rows[r-1][c-1] == "" {
					rows[r-1][c-1] = value
				}
			}
		}
	}
}
