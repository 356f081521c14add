package middleware

import (
	"net/http"

	"yourmind-go/internal/model"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware 检查用户是否具有管理员权限。
// 此中间件必须在 AuthMiddleware 之后使用。
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			// AuthMiddleware 未能成功解析，这是一个服务器内部错误
			abort(c, http.StatusInternalServerError, "사용자 정보를 가져올 수 없습니다.")
			return
		}

		currentUser, ok := user.(*model.UserProfile)
		if !ok {
			abort(c, http.StatusInternalServerError, "사용자 데이터 형식이 올바르지 않습니다.")
			return
		}

		if currentUser.Role != "ADMIN" {
			abort(c, http.StatusForbidden, "관리자 권한이 필요합니다.")
			return
		}

		c.Next()
	}
}
