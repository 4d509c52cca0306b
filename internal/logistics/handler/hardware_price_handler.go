package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leiakito/wuliu-sub000/internal/logistics/service"
)

// HardwarePriceHandler 型号单价处理器
type HardwarePriceHandler struct {
	svc *service.HardwarePriceService
}

func NewHardwarePriceHandler(svc *service.HardwarePriceService) *HardwarePriceHandler {
	return &HardwarePriceHandler{svc: svc}
}

// ListPrices 单价列表
func (h *HardwarePriceHandler) ListPrices(c *gin.Context) {
	page, pageSize := GetPagination(c)

	prices, total, err := h.svc.List(c.Request.Context(), page, pageSize, c.Query("item_name"))
	if err != nil {
		InternalError(c, "获取单价列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items:      prices,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// CreatePrice 新增单价
func (h *HardwarePriceHandler) CreatePrice(c *gin.Context) {
	var req service.HardwarePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	price, err := h.svc.Create(c.Request.Context(), &req, GetUsername(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, price)
}

// ImportPrices 上传单价表
func (h *HardwarePriceHandler) ImportPrices(c *gin.Context) {
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

	priceDate := time.Now()
	if v := c.PostForm("price_date"); v != "" {
		if parsed, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			priceDate = parsed
		}
	}

	created, err := h.svc.Import(c.Request.Context(), file, priceDate, GetUsername(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"created": created})
}

// GetLatestPrice 型号当前单价
func (h *HardwarePriceHandler) GetLatestPrice(c *gin.Context) {
	price, err := h.svc.Latest(c.Request.Context(), c.Query("item_name"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, price)
}

// DeletePrice 删除单价
func (h *HardwarePriceHandler) DeletePrice(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}
