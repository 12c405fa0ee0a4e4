package api

import (
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finpalette/config"
	"finpalette/dataaccess"
	"finpalette/middleware"
	"finpalette/models"
	"finpalette/remotestore"
	"finpalette/service"

	"github.com/gin-gonic/gin"
)

// PaletteHandler 账本、成员与邀请
type PaletteHandler struct {
	cfg   *config.Config
	store *remotestore.Store
	data  *dataaccess.Service
	email *service.EmailService
	now   func() time.Time
}

// NewPaletteHandler 创建账本处理器
func NewPaletteHandler(cfg *config.Config, store *remotestore.Store, data *dataaccess.Service) *PaletteHandler {
	return &PaletteHandler{
		cfg:   cfg,
		store: store,
		data:  data,
		email: service.NewEmailService(&cfg.Email),
		now:   time.Now,
	}
}

// PaletteRequest 新建或修改账本
type PaletteRequest struct {
	Name       string `json:"name" binding:"omitempty,max=50" example:"家庭账本"`
	ThemeColor string `json:"theme_color" binding:"omitempty,max=20" example:"#6366F1"`
}

// RoleRequest 修改成员角色
type RoleRequest struct {
	Role string `json:"role" binding:"required" example:"viewer"`
}

// InvitationRequest 创建邀请，填写邮箱时发送邀请邮件
type InvitationRequest struct {
	Email string `json:"email" binding:"omitempty,email" example:"friend@example.com"`
}

// InvitationResponse 邀请信息
type InvitationResponse struct {
	models.PaletteInvitation
	Link      string `json:"link"`
	EmailSent bool   `json:"email_sent"`
}

// AcceptRequest 接受邀请
type AcceptRequest struct {
	Code string `json:"code" binding:"required" example:"0b6f3c1e-7f0e-4b8a-9a55-1d2f7c1f2e10"`
}

// List 我参与的账本
// @Summary 账本列表
// @Description 通过成员关系查询，按创建时间升序
// @Tags 账本
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Palette} "获取成功"
// @Router /api/v1/palettes [get]
func (h *PaletteHandler) List(c *gin.Context) {
	palettes, err := h.store.ListPalettes(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		respondError(c, err, "获取账本失败")
		return
	}
	Success(c, palettes)
}

// Create 新建账本
// @Summary 新建账本
// @Description 当前用户成为所有者，并写入默认类别
// @Tags 账本
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PaletteRequest true "账本信息"
// @Success 200 {object} Response{data=models.Palette} "创建成功"
// @Router /api/v1/palettes [post]
func (h *PaletteHandler) Create(c *gin.Context) {
	var req PaletteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	userID := middleware.GetCurrentUserID(c)
	p, err := h.store.CreatePalette(c.Request.Context(), userID, req.Name, req.ThemeColor)
	if err != nil {
		respondError(c, err, "创建账本失败")
		return
	}
	h.data.InvalidateUser(userID)
	SuccessWithMessage(c, "创建成功", p)
}

// Update 修改账本
// @Summary 修改账本
// @Tags 账本
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paletteId path string true "账本 ID"
// @Param request body PaletteRequest true "账本信息"
// @Success 200 {object} Response{data=models.Palette} "更新成功"
// @Failure 403 {object} Response "仅所有者可操作"
// @Router /api/v1/palettes/{paletteId} [put]
func (h *PaletteHandler) Update(c *gin.Context) {
	var req PaletteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	p, err := h.store.UpdatePalette(c.Request.Context(), c.Param("paletteId"), req.Name, req.ThemeColor)
	if err != nil {
		respondError(c, err, "更新账本失败")
		return
	}
	SuccessWithMessage(c, "更新成功", p)
}

// Delete 删除账本及其全部数据
// @Summary 删除账本
// @Tags 账本
// @Produce json
// @Security BearerAuth
// @Param paletteId path string true "账本 ID"
// @Success 200 {object} Response "删除成功"
// @Failure 403 {object} Response "仅所有者可操作"
// @Router /api/v1/palettes/{paletteId} [delete]
func (h *PaletteHandler) Delete(c *gin.Context) {
	paletteID := c.Param("paletteId")
	if err := h.store.DeletePalette(c.Request.Context(), paletteID); err != nil {
		respondError(c, err, "删除账本失败")
		return
	}
	h.data.InvalidatePalette(paletteID)
	SuccessWithMessage(c, "删除成功", nil)
}

// Members 成员列表
// @Summary 成员列表
// @Tags 成员
// @Produce json
// @Security BearerAuth
// @Param paletteId path string true "账本 ID"
// @Success 200 {object} Response{data=[]models.Member} "获取成功"
// @Router /api/v1/palettes/{paletteId}/members [get]
func (h *PaletteHandler) Members(c *gin.Context) {
	members, err := h.store.ListMembers(c.Request.Context(), c.Param("paletteId"))
	if err != nil {
		respondError(c, err, "获取成员失败")
		return
	}
	Success(c, members)
}

func memberParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "无效的用户 ID")
		return 0, false
	}
	return uint(id), true
}

// UpdateRole 修改成员角色
// @Summary 修改成员角色
// @Description 角色可选 admin / editor / viewer，所有者角色不可授予或变更
// @Tags 成员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paletteId path string true "账本 ID"
// @Param userId path int true "用户 ID"
// @Param request body RoleRequest true "角色"
// @Success 200 {object} Response{data=models.PaletteMember} "更新成功"
// @Router /api/v1/palettes/{paletteId}/members/{userId} [put]
func (h *PaletteHandler) UpdateRole(c *gin.Context) {
	userID, ok := memberParam(c)
	if !ok {
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	m, err := h.store.UpdateMemberRole(c.Request.Context(), c.Param("paletteId"), userID, strings.TrimSpace(req.Role))
	if err != nil {
		respondError(c, err, "修改角色失败")
		return
	}
	SuccessWithMessage(c, "更新成功", m)
}

// RemoveMember 移除成员或自己退出
// @Summary 移除成员
// @Description 成员可以退出，所有者和管理员可以移除他人；所有者不能退出
// @Tags 成员
// @Produce json
// @Security BearerAuth
// @Param paletteId path string true "账本 ID"
// @Param userId path int true "用户 ID"
// @Success 200 {object} Response "移除成功"
// @Router /api/v1/palettes/{paletteId}/members/{userId} [delete]
func (h *PaletteHandler) RemoveMember(c *gin.Context) {
	userID, ok := memberParam(c)
	if !ok {
		return
	}
	role := middleware.GetPaletteRole(c)
	if userID != middleware.GetCurrentUserID(c) && role != models.RoleOwner && role != models.RoleAdmin {
		Forbidden(c, "权限不足")
		return
	}
	paletteID := c.Param("paletteId")
	if err := h.store.RemoveMember(c.Request.Context(), paletteID, userID); err != nil {
		respondError(c, err, "移除成员失败")
		return
	}
	h.data.InvalidateUser(userID)
	SuccessWithMessage(c, "移除成功", nil)
}

// inviteLink 邀请链接
func (h *PaletteHandler) inviteLink(code string) string {
	base := strings.TrimRight(h.cfg.Server.BaseURL, "/")
	return fmt.Sprintf("%s/invite?code=%s", base, url.QueryEscape(code))
}

// CreateInvitation 创建邀请
// @Summary 创建邀请
// @Description 邀请码 24 小时内有效，只能使用一次
// @Tags 成员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paletteId path string true "账本 ID"
// @Param request body InvitationRequest false "邀请邮箱"
// @Success 200 {object} Response{data=InvitationResponse} "创建成功"
// @Router /api/v1/palettes/{paletteId}/invitations [post]
func (h *PaletteHandler) CreateInvitation(c *gin.Context) {
	var req InvitationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}
	ctx := c.Request.Context()
	paletteID := c.Param("paletteId")
	inviterID := middleware.GetCurrentUserID(c)

	inv, err := h.store.CreateInvitation(ctx, paletteID, inviterID, h.now())
	if err != nil {
		respondError(c, err, "创建邀请失败")
		return
	}
	resp := InvitationResponse{PaletteInvitation: inv, Link: h.inviteLink(inv.Code)}

	if req.Email != "" && h.email.Enabled() {
		inviter, _ := h.store.GetUser(ctx, inviterID)
		palette, _ := h.store.GetPalette(ctx, paletteID)
		if err := h.email.SendInvitationEmail(req.Email, inviter.Name(), palette.Name, resp.Link); err != nil {
			log.Printf("[palette] 发送邀请邮件失败: %v", err)
		} else {
			resp.EmailSent = true
		}
	}

	SuccessWithMessage(c, "邀请已创建", resp)
}

// AcceptInvitation 接受邀请
// @Summary 接受邀请
// @Description 成为账本的 editor；已是成员时直接返回账本 ID
// @Tags 成员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AcceptRequest true "邀请码"
// @Success 200 {object} Response{data=map[string]string} "加入成功"
// @Failure 400 {object} Response "邀请码无效或已过期"
// @Router /api/v1/invitations/accept [post]
func (h *PaletteHandler) AcceptInvitation(c *gin.Context) {
	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	userID := middleware.GetCurrentUserID(c)
	paletteID, err := h.store.AcceptInvitation(c.Request.Context(), strings.TrimSpace(req.Code), userID, h.now())
	if err != nil {
		respondError(c, err, "接受邀请失败")
		return
	}
	h.data.InvalidateUser(userID)
	SuccessWithMessage(c, "加入成功", gin.H{"palette_id": paletteID})
}
