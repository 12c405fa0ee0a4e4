package api

import (
	"strings"

	"finpalette/dataaccess"
	"finpalette/models"
	"finpalette/remotestore"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 类别处理器
type CategoryHandler struct {
	resolver *SessionResolver
	data     *dataaccess.Service
	store    *remotestore.Store
}

// NewCategoryHandler 创建类别处理器
func NewCategoryHandler(resolver *SessionResolver, data *dataaccess.Service, store *remotestore.Store) *CategoryHandler {
	return &CategoryHandler{resolver: resolver, data: data, store: store}
}

// CategoryCreateRequest 新增类别请求
type CategoryCreateRequest struct {
	Code  string `json:"code" binding:"required,max=16" example:"c11"`
	Name  string `json:"name" binding:"required,min=1,max=50" example:"宠物"`
	Color string `json:"color" binding:"omitempty,max=20" example:"#FF7043"`
	Icon  string `json:"icon" binding:"omitempty,max=32" example:"PawPrint"`
}

// Current 当前会话可用的类别
// @Summary 获取类别列表
// @Description 游客返回默认类别；已登录返回当前账本的类别
// @Tags 类别
// @Produce json
// @Param X-Palette-ID header string false "账本 ID"
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Router /api/v1/categories [get]
func (h *CategoryHandler) Current(c *gin.Context) {
	session, ok := h.resolver.resolveOrAbort(c)
	if !ok {
		return
	}
	cats, err := h.data.For(session).Categories(c.Request.Context())
	if err != nil {
		respondError(c, err, "获取类别失败")
		return
	}
	Success(c, cats)
}

// List 账本类别列表
// @Summary 账本类别列表
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param paletteId path string true "账本 ID"
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Router /api/v1/palettes/{paletteId}/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	cats, err := h.store.ListCategories(c.Request.Context(), c.Param("paletteId"))
	if err != nil {
		respondError(c, err, "获取类别失败")
		return
	}
	Success(c, cats)
}

// Create 新增类别
// @Summary 新增类别
// @Description 编码以 i 开头为收入类别，以 c 开头为支出类别
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paletteId path string true "账本 ID"
// @Param request body CategoryCreateRequest true "类别信息"
// @Success 200 {object} Response{data=models.Category} "创建成功"
// @Failure 409 {object} Response "类别编码已存在"
// @Router /api/v1/palettes/{paletteId}/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	code := strings.TrimSpace(req.Code)
	if !strings.HasPrefix(code, models.IncomeCodePrefix) && !strings.HasPrefix(code, models.ExpenseCodePrefix) {
		BadRequest(c, "类别编码必须以 i 或 c 开头")
		return
	}

	cat, err := h.store.AddCategory(c.Request.Context(), models.Category{
		PaletteID: c.Param("paletteId"),
		Code:      code,
		Name:      req.Name,
		Color:     req.Color,
		Icon:      req.Icon,
	})
	if err != nil {
		respondError(c, err, "创建类别失败")
		return
	}
	SuccessWithMessage(c, "创建成功", cat)
}

// Update 修改类别（含隐藏）
// @Summary 修改类别
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paletteId path string true "账本 ID"
// @Param code path string true "类别编码"
// @Param request body models.CategoryUpdate true "修改字段"
// @Success 200 {object} Response{data=models.Category} "更新成功"
// @Router /api/v1/palettes/{paletteId}/categories/{code} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	var req models.CategoryUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	cat, err := h.store.UpdateCategory(c.Request.Context(), c.Param("paletteId"), c.Param("code"), req)
	if err != nil {
		respondError(c, err, "更新类别失败")
		return
	}
	SuccessWithMessage(c, "更新成功", cat)
}

// Delete 删除类别，已有交易显示为未分类
// @Summary 删除类别
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param paletteId path string true "账本 ID"
// @Param code path string true "类别编码"
// @Success 200 {object} Response "删除成功"
// @Router /api/v1/palettes/{paletteId}/categories/{code} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.store.DeleteCategory(c.Request.Context(), c.Param("paletteId"), c.Param("code")); err != nil {
		respondError(c, err, "删除类别失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
