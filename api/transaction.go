package api

import (
	"finpalette/dataaccess"
	"finpalette/models"

	"github.com/gin-gonic/gin"
)

// TransactionHandler 交易处理器，游客与已登录用户共用
type TransactionHandler struct {
	resolver *SessionResolver
	data     *dataaccess.Service
}

// NewTransactionHandler 创建交易处理器
func NewTransactionHandler(resolver *SessionResolver, data *dataaccess.Service) *TransactionHandler {
	return &TransactionHandler{resolver: resolver, data: data}
}

func (h *TransactionHandler) access(c *gin.Context) (*dataaccess.Access, bool) {
	session, ok := h.resolver.resolveOrAbort(c)
	if !ok {
		return nil, false
	}
	return h.data.For(session), true
}

func (h *TransactionHandler) writer(c *gin.Context) (*dataaccess.Access, bool) {
	session, ok := h.resolver.resolveOrAbort(c)
	if !ok || !h.resolver.requireWriter(c, session) {
		return nil, false
	}
	return h.data.For(session), true
}

// List 交易列表
// @Summary 交易列表
// @Description 游客读取本地数据；已登录读取当前账本，每页 20 条，more=true 时加载下一页
// @Tags 交易
// @Produce json
// @Param X-Guest-ID header string false "游客标识"
// @Param X-Palette-ID header string false "账本 ID"
// @Param more query bool false "加载下一页"
// @Success 200 {object} Response{data=FeedResponse} "获取成功"
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	a, ok := h.access(c)
	if !ok {
		return
	}

	var (
		feed dataaccess.Feed
		err  error
	)
	if c.Query("more") == "true" {
		feed, err = a.FetchMore(c.Request.Context())
	} else {
		feed, err = a.List(c.Request.Context())
	}
	if err != nil {
		respondError(c, err, "获取交易失败")
		return
	}

	Success(c, FeedResponse{
		Mode:    a.Mode().String(),
		Pages:   feed.Pages,
		HasMore: feed.HasMore,
		List:    feed.Items,
	})
}

// Create 新增交易
// @Summary 新增交易
// @Tags 交易
// @Accept json
// @Produce json
// @Param request body models.TransactionInput true "交易信息"
// @Success 200 {object} Response{data=models.Transaction} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "未选择账本"
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var req models.TransactionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	a, ok := h.writer(c)
	if !ok {
		return
	}

	tx, err := a.Add(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "创建交易失败")
		return
	}
	SuccessWithMessage(c, "创建成功", tx)
}

// Update 更新交易
// @Summary 更新交易
// @Description 本地数据使用 local_id，服务端数据使用数字 id
// @Tags 交易
// @Accept json
// @Produce json
// @Param id path string true "交易 ID"
// @Param request body models.TransactionPatch true "修改字段"
// @Success 200 {object} Response{data=models.Transaction} "更新成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	var patch models.TransactionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	a, ok := h.writer(c)
	if !ok {
		return
	}

	tx, err := a.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err, "更新交易失败")
		return
	}
	SuccessWithMessage(c, "更新成功", tx)
}

// Delete 删除交易
// @Summary 删除交易
// @Tags 交易
// @Produce json
// @Param id path string true "交易 ID"
// @Success 200 {object} Response "删除成功"
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	a, ok := h.writer(c)
	if !ok {
		return
	}
	if err := a.Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "删除交易失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
