package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/leiakito/wuliu-sub000/internal/logistics/service"
)

// SubmissionHandler 用户提报处理器
type SubmissionHandler struct {
	svc *service.SubmissionService
}

func NewSubmissionHandler(svc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{svc: svc}
}

// CreateSubmission 提报运单
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	var req service.SubmissionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	submission, err := h.svc.Create(c.Request.Context(), &req, GetUsername(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, submission)
}

// BatchCreateSubmissions 批量提报
func (h *SubmissionHandler) BatchCreateSubmissions(c *gin.Context) {
	var req service.SubmissionBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	results := h.svc.BatchCreate(c.Request.Context(), &req, GetUsername(c))
	Success(c, results)
}

// ListMine 我的提报
func (h *SubmissionHandler) ListMine(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":          c.Query("status"),
		"tracking_number": c.Query("tracking_number"),
	}

	submissions, total, err := h.svc.PageMine(c.Request.Context(), GetUsername(c), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取提报列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items:      submissions,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// ListAll 管理视图，支持按用户名过滤
func (h *SubmissionHandler) ListAll(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"username":        c.Query("username"),
		"status":          c.Query("status"),
		"tracking_number": c.Query("tracking_number"),
	}

	submissions, total, err := h.svc.PageAll(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取提报列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items:      submissions,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// ListLogs 提报操作流水
func (h *SubmissionHandler) ListLogs(c *gin.Context) {
	page, pageSize := GetPagination(c)

	logs, total, err := h.svc.Logs(c.Request.Context(), page, pageSize, c.Query("username"), c.Query("tracking_number"))
	if err != nil {
		InternalError(c, "获取提报流水失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items:      logs,
		Pagination: NewPagination(page, pageSize, total),
	})
}
