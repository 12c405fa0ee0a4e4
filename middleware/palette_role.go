package middleware

import (
	"context"
	"errors"
	"net/http"

	"finpalette/models"
	"finpalette/remotestore"

	"github.com/gin-gonic/gin"
)

const contextPaletteRole = "paletteRole"

// MembershipLookup 查询成员关系
type MembershipLookup interface {
	GetMembership(ctx context.Context, paletteID string, userID uint) (models.PaletteMember, error)
}

// 各操作允许的角色
var (
	ReadRoles   = []string{models.RoleOwner, models.RoleAdmin, models.RoleEditor, models.RoleViewer}
	WriteRoles  = []string{models.RoleOwner, models.RoleAdmin, models.RoleEditor}
	ManageRoles = []string{models.RoleOwner, models.RoleAdmin}
	OwnerRoles  = []string{models.RoleOwner}
)

// RequirePaletteRole 校验当前用户在 :paletteId 账本中的角色。
// 需在 JWTAuth 之后使用；非成员和角色不在 roles 中的请求返回 403。
func RequirePaletteRole(lookup MembershipLookup, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetCurrentUserID(c)
		if userID == 0 {
			abortUnauthorized(c, "请先登录")
			return
		}
		paletteID := c.Param("paletteId")

		m, err := lookup.GetMembership(c.Request.Context(), paletteID, userID)
		if err != nil {
			if errors.Is(err, remotestore.ErrNotFound) {
				abortForbidden(c, "您不是该账本的成员")
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询成员关系失败"})
			c.Abort()
			return
		}
		if !hasRole(m.Role, roles) {
			abortForbidden(c, "权限不足")
			return
		}
		c.Set(contextPaletteRole, m.Role)
		c.Next()
	}
}

func hasRole(role string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func abortForbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": message})
	c.Abort()
}

// GetPaletteRole 当前用户在账本中的角色
func GetPaletteRole(c *gin.Context) string {
	return c.GetString(contextPaletteRole)
}
