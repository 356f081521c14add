package handler

import (
	"net/http"

	"yourmind-go/internal/service"
	"yourmind-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AuthHandler 负责处理认证相关的 API 请求，例如刷新 token。
type AuthHandler struct {
	userService service.UserService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(userService service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// RefreshTokenRequest 定义了刷新 token API 的请求体结构。
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken 用 refresh token 换取新的一对 token，旧的 refresh token 随即失效。
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("RefreshToken: Invalid request payload, error: %v", err)
		respondError(c, http.StatusBadRequest, "refreshToken이 필요합니다.")
		return
	}

	newAccessToken, newRefreshToken, err := h.userService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		log.Warnf("RefreshToken: Failed to refresh token, error: %v", err)
		respondError(c, http.StatusUnauthorized, "유효하지 않은 refresh token입니다.")
		return
	}

	log.Info("Token refreshed successfully")
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Token refreshed successfully",
		"data": gin.H{
			"token":        newAccessToken,
			"refreshToken": newRefreshToken,
		},
	})
}
