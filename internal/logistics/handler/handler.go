package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/leiakito/wuliu-sub000/internal/logistics/bizerr"
	"github.com/leiakito/wuliu-sub000/internal/logistics/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth         *AuthHandler
	Order        *OrderHandler
	Settlement   *SettlementHandler
	Submission   *SubmissionHandler
	Hardware     *HardwarePriceHandler
	Announcement *AnnouncementHandler
	Owner        *OwnerHandler
	Report       *ReportHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(
	authSvc *service.AuthService,
	orderSvc *service.OrderService,
	settlementSvc *service.SettlementService,
	submissionSvc *service.SubmissionService,
	hardwareSvc *service.HardwarePriceService,
	announcementSvc *service.AnnouncementService,
	reportSvc *service.ReportService,
	ownerHandler *OwnerHandler,
) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(authSvc),
		Order:        NewOrderHandler(orderSvc),
		Settlement:   NewSettlementHandler(settlementSvc),
		Submission:   NewSubmissionHandler(submissionSvc),
		Hardware:     NewHardwarePriceHandler(hardwareSvc),
		Announcement: NewAnnouncementHandler(announcementSvc),
		Owner:        ownerHandler,
		Report:       NewReportHandler(reportSvc),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(page, pageSize int, total int64) *Pagination {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      int(total),
		TotalPages: totalPages,
	}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// Fail 按业务错误码映射响应，未知错误统一按系统错误处理
func Fail(c *gin.Context, err error) {
	message := err.Error()
	switch bizerr.CodeOf(err) {
	case bizerr.CodeNotFound:
		Error(c, 40400, message)
	case bizerr.CodeDuplicate:
		Error(c, 40900, message)
	case bizerr.CodeBadRequest:
		Error(c, 40000, message)
	case bizerr.CodeUnauthorized:
		Error(c, 40100, message)
	case bizerr.CodeForbidden:
		Error(c, 40300, message)
	default:
		Error(c, 50000, "系统繁忙，请稍后重试")
	}
}

func GetUsername(c *gin.Context) string {
	username, _ := c.Get("username")
	if name, ok := username.(string); ok {
		return name
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
