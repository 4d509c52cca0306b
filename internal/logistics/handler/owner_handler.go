package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leiakito/wuliu-sub000/internal/ownerstore"
)

// OwnerHandler 运单归属关系维护
type OwnerHandler struct {
	store ownerstore.Store
}

func NewOwnerHandler(store ownerstore.Store) *OwnerHandler {
	return &OwnerHandler{store: store}
}

// ListOwners 全量归属关系
func (h *OwnerHandler) ListOwners(c *gin.Context) {
	Success(c, h.store.List())
}

// GetOwner 单号归属查询
func (h *OwnerHandler) GetOwner(c *gin.Context) {
	trackingNumber := strings.TrimSpace(c.Param("tracking"))
	owner, ok := h.store.Lookup(trackingNumber)
	if !ok {
		NotFound(c, "该单号暂无归属记录")
		return
	}
	Success(c, gin.H{"tracking_number": trackingNumber, "owner": owner})
}

// SetOwner 登记/调整归属
func (h *OwnerHandler) SetOwner(c *gin.Context) {
	var req struct {
		Owner string `json:"owner" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	trackingNumber := strings.TrimSpace(c.Param("tracking"))
	if trackingNumber == "" {
		BadRequest(c, "单号不能为空")
		return
	}
	if err := h.store.Set(c.Request.Context(), trackingNumber, req.Owner); err != nil {
		InternalError(c, "保存归属关系失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// RemoveOwner 解除归属
func (h *OwnerHandler) RemoveOwner(c *gin.Context) {
	trackingNumber := strings.TrimSpace(c.Param("tracking"))
	if err := h.store.Remove(c.Request.Context(), trackingNumber); err != nil {
		InternalError(c, "删除归属关系失败: "+err.Error())
		return
	}
	Success(c, nil)
}
