package handler

import (
	"net/http"

	"yourmind-go/internal/service"
	"yourmind-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理所有与用户资料相关的 API 请求。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Register 处理用户注册请求。字段校验在 service 层完成。
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Register: 请求体无效, error: %v", err)
		respondError(c, http.StatusBadRequest, "잘못된 요청입니다.")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		log.Warnf("Register: 注册失败, email: %s, error: %v", req.Email, err)
		fail(c, "Register", err)
		return
	}

	log.Infof("用户注册成功, id: %s", user.ID)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "회원가입이 완료되었습니다.", "data": user})
}

// LoginRequest 定义了用户登录 API 的请求体结构。
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理用户登录请求。
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: 请求体无效, error: %v", err)
		respondError(c, http.StatusBadRequest, "이메일과 비밀번호를 입력해주세요.")
		return
	}

	user, accessToken, refreshToken, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Warnf("Login: 认证失败, email: %s, error: %v", req.Email, err)
		fail(c, "Login", err)
		return
	}

	log.Infof("用户登录成功, id: %s", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Login successful",
		"data": gin.H{
			"user":         user,
			"token":        accessToken,
			"refreshToken": refreshToken,
		},
	})
}

// GetProfile 返回当前登录用户的资料，用户已由 AuthMiddleware 注入。
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	respondOK(c, user)
}

// UpdateProfile 部分更新当前用户的资料。
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var upd service.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		respondError(c, http.StatusBadRequest, "잘못된 요청입니다.")
		return
	}

	updated, err := h.userService.UpdateProfile(c.Request.Context(), user.ID, upd)
	if err != nil {
		fail(c, "UpdateProfile", err)
		return
	}
	respondOK(c, updated)
}

// DeleteProfile 删除当前用户及其全部会话，并注销当前 token。
func (h *UserHandler) DeleteProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.userService.DeleteProfile(c.Request.Context(), user.ID); err != nil {
		fail(c, "DeleteProfile", err)
		return
	}
	if err := h.userService.Logout(c.Request.Context(), c.GetString("token")); err != nil {
		log.Warnf("DeleteProfile: token 注销失败, user: %s, error: %v", user.ID, err)
	}
	log.Infof("用户已删除, id: %s", user.ID)
	respondOK(c, nil)
}

// Logout 处理用户登出逻辑。
func (h *UserHandler) Logout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.userService.Logout(c.Request.Context(), c.GetString("token")); err != nil {
		log.Error("Logout: Failed to logout", err)
		respondError(c, http.StatusInternalServerError, "로그아웃에 실패했습니다.")
		return
	}
	log.Infof("用户登出成功, id: %s", user.ID)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "로그아웃되었습니다.", "data": nil})
}
