package api

import (
	"errors"
	"strings"

	"finpalette/dataaccess"
	"finpalette/localstore"
	"finpalette/middleware"
	"finpalette/models"
	"finpalette/remotestore"

	"github.com/gin-gonic/gin"
)

// HeaderPaletteID 指定当前账本的请求头
const HeaderPaletteID = "X-Palette-ID"

var errNotMember = errors.New("not a member of the requested palette")

// SessionResolver 从请求中解析 dataaccess.Session
type SessionResolver struct {
	remote *remotestore.Store
	local  *localstore.Registry
}

// NewSessionResolver 创建会话解析器
func NewSessionResolver(remote *remotestore.Store, local *localstore.Registry) *SessionResolver {
	return &SessionResolver{remote: remote, local: local}
}

// lastUsed 读取设备上记录的最近使用账本，没有游客标识时为空
func (r *SessionResolver) lastUsed(guestKey string) string {
	if guestKey == "" {
		return ""
	}
	store, err := r.local.Store(guestKey)
	if err != nil {
		return ""
	}
	prefs, err := store.Preferences()
	if err != nil {
		return ""
	}
	return prefs.LastPaletteID
}

// Resolve 当前账本：X-Palette-ID 或 palette_id 参数 > 最近使用 > 第一个账本
func (r *SessionResolver) Resolve(c *gin.Context) (dataaccess.Session, error) {
	session := dataaccess.Session{
		UserID:   middleware.GetCurrentUserID(c),
		GuestKey: middleware.GetGuestKey(c),
	}
	if session.UserID == 0 {
		return session, nil
	}

	palettes, err := r.remote.ListPalettes(c.Request.Context(), session.UserID)
	if err != nil {
		return session, err
	}
	ids := make([]string, 0, len(palettes))
	for _, p := range palettes {
		ids = append(ids, p.ID)
	}

	requested := strings.TrimSpace(c.GetHeader(HeaderPaletteID))
	if requested == "" {
		requested = strings.TrimSpace(c.Query("palette_id"))
	}
	session.PaletteID = dataaccess.ResolvePalette(ids, requested, r.lastUsed(session.GuestKey))
	if requested != "" && session.PaletteID != requested {
		return session, errNotMember
	}
	return session, nil
}

// resolveOrAbort 解析失败时直接写入错误响应
func (r *SessionResolver) resolveOrAbort(c *gin.Context) (dataaccess.Session, bool) {
	session, err := r.Resolve(c)
	if err == nil {
		return session, true
	}
	if errors.Is(err, errNotMember) {
		Forbidden(c, "您不是该账本的成员")
		return session, false
	}
	InternalError(c, SafeErrorMessage(err, "获取账本失败"))
	return session, false
}

// requireWriter 远程模式下写入需要 editor 及以上角色
func (r *SessionResolver) requireWriter(c *gin.Context, session dataaccess.Session) bool {
	if session.Mode() != dataaccess.ModeRemote {
		return true
	}
	m, err := r.remote.GetMembership(c.Request.Context(), session.PaletteID, session.UserID)
	if err != nil {
		respondError(c, err, "查询成员关系失败")
		return false
	}
	if m.Role == models.RoleViewer {
		Forbidden(c, "只读成员不能修改交易")
		return false
	}
	return true
}
