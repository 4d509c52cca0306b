package handler

import (
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
	"github.com/leiakito/wuliu-sub000/internal/logistics/excel"
	"github.com/leiakito/wuliu-sub000/internal/logistics/service"
)

// OrderHandler 订单处理器
type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// ListOrders 订单列表
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":          c.Query("status"),
		"category":        c.Query("category"),
		"tracking_number": c.Query("tracking_number"),
		"sn":              c.Query("sn"),
		"start_date":      c.Query("start_date"),
		"end_date":        c.Query("end_date"),
		"keyword":         c.Query("keyword"),
	}

	orders, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取订单列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items:      orders,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// GetOrder 订单详情
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// CreateOrder 手工建单
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.OrderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.Create(c.Request.Context(), &req, GetUsername(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, order)
}

// ImportOrders 上传表格批量导入
func (h *OrderHandler) ImportOrders(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "请上传文件")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, "文件无法读取")
		return
	}
	defer file.Close()

	operator := GetUsername(c)
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	var parsed []entity.OrderRecord
	switch ext {
	case ".csv":
		rows, err := excel.ReadOrdersCSV(file, operator)
		if err != nil {
			BadRequest(c, "导入文件无法解析")
			return
		}
		parsed = rows
	default:
		rows, err := excel.ReadOrders(file, operator)
		if err != nil {
			BadRequest(c, "导入文件无法解析")
			return
		}
		parsed = rows
	}

	result, err := h.svc.ImportOrders(c.Request.Context(), parsed)
	if err != nil {
		InternalError(c, "导入失败: "+err.Error())
		return
	}
	Success(c, result)
}

// UpdateOrder 编辑订单
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req service.OrderUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, GetUsername(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// UpdateOrderStatus 状态流转
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	var req service.OrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// UpdateOrderAmount 金额调整
func (h *OrderHandler) UpdateOrderAmount(c *gin.Context) {
	var req service.OrderAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.UpdateAmount(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, order)
}

// DeleteOrder 删除订单（连带结算与提报）
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	if err := h.svc.DeleteWithRelations(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// SearchOrders 前缀检索
func (h *OrderHandler) SearchOrders(c *gin.Context) {
	orders, err := h.svc.Search(c.Request.Context(), c.Query("keyword"), 50)
	if err != nil {
		InternalError(c, "检索失败: "+err.Error())
		return
	}
	Success(c, orders)
}

// CategoryStats 物流分类统计
func (h *OrderHandler) CategoryStats(c *gin.Context) {
	stats, err := h.svc.CategoryStats(c.Request.Context())
	if err != nil {
		InternalError(c, "统计失败: "+err.Error())
		return
	}
	Success(c, stats)
}

// FetchOrders 第三方抓单补录
func (h *OrderHandler) FetchOrders(c *gin.Context) {
	var req service.BatchFetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.SyncFromThirdParty(c.Request.Context(), req.TrackingNumbers, GetUsername(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, result)
}
