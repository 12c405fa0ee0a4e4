package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderGuestID 游客标识请求头
const HeaderGuestID = "X-Guest-ID"

const contextGuestKey = "guestKey"

// GuestKey 读取 X-Guest-ID，非 UUID 的值直接忽略
func GuestKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderGuestID))
		if raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				c.Set(contextGuestKey, id.String())
			}
		}
		c.Next()
	}
}

// GetGuestKey 当前请求的游客标识，没有时为空
func GetGuestKey(c *gin.Context) string {
	return c.GetString(contextGuestKey)
}
