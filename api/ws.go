package api

import (
	"log"

	"finpalette/middleware"
	"finpalette/service"

	"github.com/gin-gonic/gin"
)

// WSHandler 账本变更推送
type WSHandler struct {
	broadcaster *service.Broadcaster
}

// NewWSHandler 创建推送处理器
func NewWSHandler(b *service.Broadcaster) *WSHandler {
	return &WSHandler{broadcaster: b}
}

// Subscribe 订阅账本交易变更
// @Summary 订阅账本变更
// @Description WebSocket 连接，成员新增、修改、删除交易时推送 {type, palette_id, user_id}
// @Tags 账本
// @Security BearerAuth
// @Param paletteId path string true "账本 ID"
// @Router /api/v1/palettes/{paletteId}/ws [get]
func (h *WSHandler) Subscribe(c *gin.Context) {
	err := h.broadcaster.Serve(c.Writer, c.Request, c.Param("paletteId"), middleware.GetCurrentUserID(c))
	if err != nil {
		log.Printf("[broadcast] 建立连接失败: %v", err)
	}
}
