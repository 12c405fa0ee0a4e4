package api

import (
	"finpalette/localstore"
	"finpalette/middleware"

	"github.com/gin-gonic/gin"
)

// PreferenceHandler 设备偏好（最近使用账本与主题），按游客标识保存
type PreferenceHandler struct {
	local *localstore.Registry
}

// NewPreferenceHandler 创建偏好处理器
func NewPreferenceHandler(local *localstore.Registry) *PreferenceHandler {
	return &PreferenceHandler{local: local}
}

// PreferenceRequest 修改偏好，nil 表示不修改，空字符串表示清除
type PreferenceRequest struct {
	LastPaletteID *string `json:"last_palette_id" example:"6f1c2a8e-5b7d-4c19-9e0a-2d6b8f4e1a77"`
	Theme         *string `json:"theme" example:"dark"`
}

var validThemes = map[string]bool{"": true, "light": true, "dark": true, "system": true}

func (h *PreferenceHandler) store(c *gin.Context) (*localstore.Store, bool) {
	key := middleware.GetGuestKey(c)
	if key == "" {
		BadRequest(c, "缺少游客标识 X-Guest-ID")
		return nil, false
	}
	store, err := h.local.Store(key)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "打开本地存储失败"))
		return nil, false
	}
	return store, true
}

// Get 读取偏好
// @Summary 获取偏好设置
// @Tags 偏好
// @Produce json
// @Param X-Guest-ID header string true "游客标识"
// @Success 200 {object} Response{data=localstore.Preferences} "获取成功"
// @Router /api/v1/preferences [get]
func (h *PreferenceHandler) Get(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	prefs, err := store.Preferences()
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "读取偏好失败"))
		return
	}
	Success(c, prefs)
}

// Update 修改偏好
// @Summary 修改偏好设置
// @Tags 偏好
// @Accept json
// @Produce json
// @Param X-Guest-ID header string true "游客标识"
// @Param request body PreferenceRequest true "偏好"
// @Success 200 {object} Response{data=localstore.Preferences} "更新成功"
// @Router /api/v1/preferences [put]
func (h *PreferenceHandler) Update(c *gin.Context) {
	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if req.Theme != nil && !validThemes[*req.Theme] {
		BadRequest(c, "主题只能是 light、dark 或 system")
		return
	}
	if req.LastPaletteID != nil && len(*req.LastPaletteID) > 36 {
		BadRequest(c, "账本 ID 无效")
		return
	}
	store, ok := h.store(c)
	if !ok {
		return
	}
	if req.LastPaletteID != nil {
		if err := store.SetLastPalette(*req.LastPaletteID); err != nil {
			InternalError(c, SafeErrorMessage(err, "保存偏好失败"))
			return
		}
	}
	if req.Theme != nil {
		if err := store.SetTheme(*req.Theme); err != nil {
			InternalError(c, SafeErrorMessage(err, "保存偏好失败"))
			return
		}
	}
	prefs, err := store.Preferences()
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "读取偏好失败"))
		return
	}
	SuccessWithMessage(c, "保存成功", prefs)
}
