package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leiakito/wuliu-sub000/internal/logistics/service"
)

// SettlementHandler 结算处理器
type SettlementHandler struct {
	svc *service.SettlementService
}

func NewSettlementHandler(svc *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{svc: svc}
}

func settlementFilters(c *gin.Context) map[string]string {
	return map[string]string{
		"status":          c.Query("status"),
		"settle_batch":    c.Query("settle_batch"),
		"tracking_number": c.Query("tracking_number"),
		"owner_username":  c.Query("owner_username"),
		"warning":         c.Query("warning"),
		"start_date":      c.Query("start_date"),
		"end_date":        c.Query("end_date"),
	}
}

// ListSettlements 结算列表
func (h *SettlementHandler) ListSettlements(c *gin.Context) {
	page, pageSize := GetPagination(c)

	records, total, err := h.svc.List(c.Request.Context(), page, pageSize, settlementFilters(c))
	if err != nil {
		InternalError(c, "获取结算列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items:      records,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// GeneratePending 按运单号为订单批量生成待确认结算
func (h *SettlementHandler) GeneratePending(c *gin.Context) {
	var req struct {
		TrackingNumbers []string `json:"tracking_numbers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	records, err := h.svc.CreatePendingByTracking(c.Request.Context(), req.TrackingNumbers)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, records)
}

// ConfirmSettlement 确认结算
func (h *SettlementHandler) ConfirmSettlement(c *gin.Context) {
	var req service.SettlementConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	record, err := h.svc.Confirm(c.Request.Context(), c.Param("id"), &req, GetUsername(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, record)
}

// ConfirmBatch 批量确认
func (h *SettlementHandler) ConfirmBatch(c *gin.Context) {
	var req service.SettlementBatchConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	confirmed, failed, err := h.svc.ConfirmBatch(c.Request.Context(), &req, GetUsername(c))
	if err != nil {
		InternalError(c, "批量确认失败: "+err.Error())
		return
	}
	Success(c, gin.H{"confirmed": confirmed, "failed": failed})
}

// ConfirmAllSettlements 按当前筛选条件一键确认
func (h *SettlementHandler) ConfirmAllSettlements(c *gin.Context) {
	confirmed, err := h.svc.ConfirmAll(c.Request.Context(), settlementFilters(c), GetUsername(c))
	if err != nil {
		InternalError(c, "全部确认失败: "+err.Error())
		return
	}
	Success(c, gin.H{"confirmed": confirmed})
}

// UpdateSettlementAmount 金额调整
func (h *SettlementHandler) UpdateSettlementAmount(c *gin.Context) {
	var req service.SettlementAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	record, err := h.svc.UpdateAmount(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, record)
}

// PriceByModel 按型号批量定价
func (h *SettlementHandler) PriceByModel(c *gin.Context) {
	var req service.SettlementBatchPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	updated, err := h.svc.UpdateAmountByModel(c.Request.Context(), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"updated": updated})
}

// ExportSettlements 导出待结账表格
func (h *SettlementHandler) ExportSettlements(c *gin.Context) {
	data, objectName, err := h.svc.Export(c.Request.Context(), settlementFilters(c))
	if err != nil {
		Fail(c, err)
		return
	}

	filename := fmt.Sprintf("settlements-%s.xlsx", time.Now().Format("20060102-150405"))
	if objectName != "" {
		c.Header("X-Archive-Object", objectName)
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// DeleteSettlements 批量删除
func (h *SettlementHandler) DeleteSettlements(c *gin.Context) {
	var req service.SettlementDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	deleted, err := h.svc.Delete(c.Request.Context(), req.IDs)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"deleted": deleted})
}
