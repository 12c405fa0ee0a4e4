package api

import (
	"errors"
	"strings"

	"finpalette/config"
	"finpalette/middleware"
	"finpalette/migration"
	"finpalette/models"
	"finpalette/remotestore"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg        *config.Config
	store      *remotestore.Store
	dispatcher *migration.Dispatcher
}

// NewAuthHandler 创建认证处理器；dispatcher 为 nil 时登录不触发迁移
func NewAuthHandler(cfg *config.Config, store *remotestore.Store, dispatcher *migration.Dispatcher) *AuthHandler {
	return &AuthHandler{cfg: cfg, store: store, dispatcher: dispatcher}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=50" example:"testuser"`
	Password    string `json:"password" binding:"required,min=6,max=50" example:"password123"`
	Email       string `json:"email" binding:"omitempty,email" example:"test@example.com"`
	DisplayName string `json:"display_name" binding:"omitempty,max=50" example:"小明"`
}

// LoginRequest 登录请求（支持用户名或邮箱）
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"testuser"` // 可为用户名或邮箱
	Password string `json:"password" binding:"required" example:"password123"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string            `json:"token"`
	UserInfo  models.User       `json:"user_info"`
	Migrated  bool              `json:"migrated"`
	Migration *migration.Result `json:"migration,omitempty"`
}

// Register 用户注册
// @Summary 用户注册
// @Description 创建新用户账号，密码使用 bcrypt 保存
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册信息"
// @Success 200 {object} Response{data=models.User} "注册成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "用户名已存在"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "密码加密失败")
		return
	}

	user := models.User{
		Username:    strings.TrimSpace(req.Username),
		Password:    string(hashedPassword),
		Email:       strings.TrimSpace(req.Email),
		DisplayName: strings.TrimSpace(req.DisplayName),
	}
	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		respondError(c, err, "创建用户失败")
		return
	}

	SuccessWithMessage(c, "注册成功", user)
}

// Login 用户登录
// @Summary 用户登录
// @Description 登录获取 JWT。携带 X-Guest-ID 时把该游客的本地交易导入个人账本，结果见 migrated
// @Tags 认证
// @Accept json
// @Produce json
// @Param X-Guest-ID header string false "游客标识"
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "用户名或密码错误"
// @Failure 429 {object} Response "请求过于频繁"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.store.FindUserByLogin(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, remotestore.ErrNotFound) {
			Unauthorized(c, "用户名或密码错误")
			return
		}
		InternalError(c, SafeErrorMessage(err, "登录失败"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		Unauthorized(c, "用户名或密码错误")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Username, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}

	resp := LoginResponse{Token: token, UserInfo: user}
	// 每次登录都确保个人账本存在；没有游客标识时只建账本不迁移。
	// 迁移失败不影响登录，本地数据保留到下次登录
	if h.dispatcher != nil {
		if result, ok := h.dispatcher.OnSignIn(c.Request.Context(), user.ID, middleware.GetGuestKey(c)); ok {
			resp.Migrated = result.Migrated
			resp.Migration = &result
		}
	}

	Success(c, resp)
}

// GetProfile 获取用户信息
// @Summary 获取当前用户信息
// @Description 获取当前登录用户的详细信息
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.User} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := h.store.GetUser(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		respondError(c, err, "获取用户失败")
		return
	}
	Success(c, user)
}
