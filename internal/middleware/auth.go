// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"yourmind-go/internal/service"
	"yourmind-go/pkg/log"
	"yourmind-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它会从请求头中提取 token，验证其有效性，并将完整的 UserProfile 存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager, userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "인증 정보가 없습니다.")
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			abort(c, http.StatusUnauthorized, "잘못된 인증 헤더 형식입니다.")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil || claims.Refresh {
			abort(c, http.StatusUnauthorized, "유효하지 않거나 만료된 토큰입니다.")
			return
		}

		// 已登出的 token 在黑名单中
		revoked, err := userService.IsTokenRevoked(c.Request.Context(), tokenString)
		if err != nil {
			log.Errorf("检查 token 黑名单失败: %v", err)
			abort(c, http.StatusInternalServerError, "인증 확인 중 오류가 발생했습니다.")
			return
		}
		if revoked {
			abort(c, http.StatusUnauthorized, "로그아웃된 토큰입니다.")
			return
		}

		// 用户可能已被删除
		user, err := userService.GetProfile(c.Request.Context(), claims.UserID)
		if err != nil {
			abort(c, http.StatusUnauthorized, "사용자를 찾을 수 없습니다.")
			return
		}

		c.Set("user", user)
		c.Set("claims", claims)
		c.Set("token", tokenString)
		c.Next()
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": status, "message": message, "data": nil})
}
