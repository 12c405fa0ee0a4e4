package api

import (
	"fmt"
	"net/url"
	"time"

	"finpalette/middleware"
	"finpalette/remotestore"
	"finpalette/service"

	"github.com/gin-gonic/gin"
)

// 导出全部交易时使用的日期范围
const (
	exportFrom = "0001-01-01"
	exportTo   = "9999-12-31"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	store *remotestore.Store
}

// NewExportHandler 创建导出处理器
func NewExportHandler(store *remotestore.Store) *ExportHandler {
	return &ExportHandler{store: store}
}

// ExportExcel 导出账本交易为 Excel
// @Summary 导出账本交易
// @Description 导出账本的全部交易为 xlsx，末行为合计
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param paletteId path string true "账本 ID"
// @Success 200 {file} file "Excel 文件"
// @Failure 403 {object} Response "不是账本成员"
// @Router /api/v1/palettes/{paletteId}/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	ctx := c.Request.Context()
	paletteID := c.Param("paletteId")

	palette, err := h.store.GetPalette(ctx, paletteID)
	if err != nil {
		respondError(c, err, "获取账本失败")
		return
	}
	txs, err := h.store.ListTransactionsBetween(ctx, paletteID, exportFrom, exportTo, middleware.GetCurrentUserID(c))
	if err != nil {
		respondError(c, err, "查询交易失败")
		return
	}
	cats, err := h.store.ListCategories(ctx, paletteID)
	if err != nil {
		respondError(c, err, "查询类别失败")
		return
	}

	f, err := service.ExportWorkbook(palette, txs, cats)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "生成 Excel 失败"))
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("%s_%s.xlsx", palette.Name, time.Now().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, SafeErrorMessage(err, "写入 Excel 失败"))
	}
}
