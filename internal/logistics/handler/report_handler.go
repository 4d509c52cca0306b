package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leiakito/wuliu-sub000/internal/logistics/service"
)

// ReportHandler 报表统计处理器
type ReportHandler struct {
	svc *service.ReportService
}

func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// Dashboard 仪表盘汇总，start/end 为可选的 yyyy-MM-dd 日期区间
func (h *ReportHandler) Dashboard(c *gin.Context) {
	start, err := parseDateQuery(c, "start")
	if err != nil {
		BadRequest(c, "开始日期格式错误，应为 yyyy-MM-dd")
		return
	}
	end, err := parseDateQuery(c, "end")
	if err != nil {
		BadRequest(c, "结束日期格式错误，应为 yyyy-MM-dd")
		return
	}

	stats, err := h.svc.Dashboard(c.Request.Context(), start, end)
	if err != nil {
		InternalError(c, "获取统计数据失败: "+err.Error())
		return
	}
	Success(c, stats)
}

func parseDateQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
