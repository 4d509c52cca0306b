package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/leiakito/wuliu-sub000/internal/logistics/service"
)

// AnnouncementHandler 公告处理器
type AnnouncementHandler struct {
	svc *service.AnnouncementService
}

func NewAnnouncementHandler(svc *service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{svc: svc}
}

// ListAnnouncements 最新公告
func (h *AnnouncementHandler) ListAnnouncements(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	announcements, err := h.svc.Latest(c.Request.Context(), limit)
	if err != nil {
		InternalError(c, "获取公告失败: "+err.Error())
		return
	}
	Success(c, announcements)
}

// CreateAnnouncement 发布公告
func (h *AnnouncementHandler) CreateAnnouncement(c *gin.Context) {
	var req service.AnnouncementCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	announcement, err := h.svc.Create(c.Request.Context(), &req, GetUsername(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, announcement)
}

// DeleteAnnouncement 删除公告
func (h *AnnouncementHandler) DeleteAnnouncement(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}
