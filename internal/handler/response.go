// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"yourmind-go/internal/model"
	"yourmind-go/internal/repository"
	"yourmind-go/internal/service"
	"yourmind-go/pkg/log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message, "data": nil})
}

// statusFor 把业务错误映射为 HTTP 状态码和展示给用户的提示。
func statusFor(err error) (int, string) {
	var inputErr *service.InputError
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, inputErr.Message
	case errors.Is(err, service.ErrEmptyMessage):
		return http.StatusBadRequest, "메시지를 입력해주세요."
	case errors.Is(err, service.ErrEmptyTitle):
		return http.StatusBadRequest, "제목을 입력해주세요."
	case errors.Is(err, service.ErrUnknownMode):
		return http.StatusBadRequest, "알 수 없는 상담 모드입니다."
	case errors.Is(err, service.ErrUnknownTest):
		return http.StatusBadRequest, "알 수 없는 심리 테스트입니다."
	case errors.Is(err, service.ErrEmptySession):
		return http.StatusBadRequest, "요약할 대화가 없습니다."
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "채팅을 찾을 수 없습니다."
	case errors.Is(err, repository.ErrConversationNotFound):
		return http.StatusNotFound, "대화 기록을 찾을 수 없습니다."
	case errors.Is(err, service.ErrSessionBusy):
		return http.StatusConflict, service.NoticeSessionBusy
	case errors.Is(err, service.ErrChatUnavailable):
		return http.StatusBadGateway, service.NoticeChatUnavailable
	case errors.Is(err, service.ErrExportUnavailable):
		return http.StatusServiceUnavailable, "보고서 내보내기를 사용할 수 없습니다."
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, "이미 사용 중인 이메일입니다."
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "로그인 정보가 올바르지 않습니다."
	default:
		return http.StatusInternalServerError, "서버 오류가 발생했습니다."
	}
}

// fail 统一写出错误响应，5xx 记录日志
func fail(c *gin.Context, op string, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("[%s] 请求处理失败, path: %s, error: %v", op, c.Request.URL.Path, err)
	}
	respondError(c, status, message)
}

// currentUser 取出 AuthMiddleware 放入上下文的用户。
func currentUser(c *gin.Context) (*model.UserProfile, bool) {
	v, exists := c.Get("user")
	if !exists {
		respondError(c, http.StatusUnauthorized, "인증이 필요합니다.")
		return nil, false
	}
	user, ok := v.(*model.UserProfile)
	if !ok || user == nil {
		respondError(c, http.StatusUnauthorized, "인증이 필요합니다.")
		return nil, false
	}
	return user, true
}
