package api

import (
	"strconv"
	"time"

	"finpalette/dataaccess"
	"finpalette/localstore"
	"finpalette/summary"

	"github.com/gin-gonic/gin"
)

// SummaryHandler 月度统计
type SummaryHandler struct {
	resolver *SessionResolver
	data     *dataaccess.Service
	now      func() time.Time
}

// NewSummaryHandler 创建统计处理器
func NewSummaryHandler(resolver *SessionResolver, data *dataaccess.Service) *SummaryHandler {
	return &SummaryHandler{resolver: resolver, data: data, now: time.Now}
}

// MonthlySummaryResponse 月度统计返回
type MonthlySummaryResponse struct {
	Year      int                      `json:"year" example:"2024"`
	Month     int                      `json:"month" example:"5"`
	Summary   summary.Summary          `json:"summary"`
	Breakdown []summary.CategoryAmount `json:"breakdown"`
	Groups    []summary.DateGroup      `json:"groups"`
	Usage     *localstore.Usage        `json:"usage,omitempty"`
}

// monthParam 解析 year/month，缺省为当前月
func monthParam(c *gin.Context, now time.Time) (int, int, bool) {
	year, month := now.Year(), int(now.Month())
	if v := c.Query("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return 0, 0, false
		}
		year = y
	}
	if v := c.Query("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, false
		}
		month = m
	}
	return year, month, true
}

// Monthly 月度汇总、类别占比与按日分组
// @Summary 月度统计
// @Description 金额为整数最小货币单位；游客额外返回本地存储占用
// @Tags 统计
// @Produce json
// @Param year query int false "年份，默认当前年"
// @Param month query int false "月份 1-12，默认当前月"
// @Success 200 {object} Response{data=MonthlySummaryResponse} "获取成功"
// @Failure 400 {object} Response "参数错误"
// @Router /api/v1/summary [get]
func (h *SummaryHandler) Monthly(c *gin.Context) {
	now := h.now()
	year, month, ok := monthParam(c, now)
	if !ok {
		BadRequest(c, "年份或月份无效")
		return
	}
	session, ok := h.resolver.resolveOrAbort(c)
	if !ok {
		return
	}
	a := h.data.For(session)

	txs, err := a.Month(c.Request.Context(), year, month)
	if err != nil {
		respondError(c, err, "获取统计失败")
		return
	}
	cats, err := a.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err, "获取类别失败")
		return
	}

	resp := MonthlySummaryResponse{
		Year:      year,
		Month:     month,
		Summary:   summary.Summarize(txs),
		Breakdown: summary.CategoryBreakdown(txs, cats),
		Groups:    summary.GroupByDate(txs, now),
	}
	if a.Mode() == dataaccess.ModeLocal && session.GuestKey != "" {
		if usage, err := a.Usage(); err == nil {
			resp.Usage = &usage
		}
	}
	Success(c, resp)
}
