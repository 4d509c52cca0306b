package tracking

import "strings"

// CategoryOther 未识别承运方的兜底分类
const CategoryOther = "其他"

// Classify 根据运单号前缀/长度规则识别承运方分类。
// 规则按声明顺序匹配，先命中先返回；空白或无法识别的单号返回"其他"。
func Classify(trackingNumber string) string {
	upper := strings.ToUpper(strings.TrimSpace(trackingNumber))
	if upper == "" {
		return CategoryOther
	}
	switch {
	case strings.HasPrefix(upper, "SF"):
		return "顺丰"
	case strings.HasPrefix(upper, "JDX"), strings.HasPrefix(upper, "JDA"), strings.HasPrefix(upper, "JD"):
		return "京东"
	case strings.HasPrefix(upper, "YT"):
		return "圆通"
	case strings.HasPrefix(upper, "7353"):
		return "中通"
	case strings.HasPrefix(upper, "77203"):
		return "申通"
	case strings.HasPrefix(upper, "43415"), strings.HasPrefix(upper, "31250"):
		return "韵达"
	case strings.HasPrefix(upper, "JT"):
		return "极兔"
	case strings.HasPrefix(upper, "DPK"):
		return "德邦快递"
	case strings.HasPrefix(upper, "DPL"):
		return "德邦物流"
	case strings.HasPrefix(upper, "KYE"):
		return "跨越速运"
	case strings.HasPrefix(upper, "EMS"), isNumeric(upper) && len(upper) == 13:
		return "EMS"
	case (strings.HasPrefix(upper, "6") || strings.HasPrefix(upper, "5") || strings.HasPrefix(upper, "00")) &&
		isNumeric(upper) && len(upper) == 14:
		return "天天快递"
	}
	return CategoryOther
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
