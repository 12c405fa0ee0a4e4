package api

import (
	"errors"
	"net/http"

	"finpalette/dataaccess"
	"finpalette/localstore"
	"finpalette/models"
	"finpalette/remotestore"

	"github.com/gin-gonic/gin"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// FeedResponse 交易流响应结构
type FeedResponse struct {
	Mode    string               `json:"mode"`
	Pages   int                  `json:"pages"`
	HasMore bool                 `json:"has_more"`
	List    []models.Transaction `json:"list"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 401 错误响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// Forbidden 403 错误响应
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

// Conflict 409 错误响应
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

// InternalError 500 错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// respondError 按领域错误选择状态码，未识别的错误按 500 处理
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, dataaccess.ErrInvalidID),
		errors.Is(err, remotestore.ErrInvalidRole):
		BadRequest(c, err.Error())
	case errors.Is(err, dataaccess.ErrNoGuestKey):
		BadRequest(c, "缺少游客标识 X-Guest-ID")
	case errors.Is(err, remotestore.ErrInvitationInvalid):
		BadRequest(c, "邀请码无效或已过期")
	case errors.Is(err, remotestore.ErrNotFound),
		errors.Is(err, localstore.ErrNotFound):
		NotFound(c, "记录不存在")
	case errors.Is(err, remotestore.ErrOwnerCannotLeave),
		errors.Is(err, remotestore.ErrOwnerImmutable):
		Forbidden(c, "不能修改或移除账本所有者")
	case errors.Is(err, dataaccess.ErrNoActiveLedger):
		Conflict(c, "请先选择账本")
	case errors.Is(err, remotestore.ErrDuplicateCategory):
		Conflict(c, "类别编码已存在")
	case errors.Is(err, remotestore.ErrDuplicateUser):
		Conflict(c, "用户名已存在")
	default:
		InternalError(c, SafeErrorMessage(err, fallback))
	}
}
