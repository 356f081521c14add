package handler

import (
	"errors"
	"net/http"
	"strings"

	"yourmind-go/internal/service"
	"yourmind-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// CompletionHandler 直接暴露模型对话接口，上下文按 sessionToken 保存在 Redis。
type CompletionHandler struct {
	completionService service.CompletionService
}

// NewCompletionHandler 创建一个新的 CompletionHandler。
func NewCompletionHandler(completionService service.CompletionService) *CompletionHandler {
	return &CompletionHandler{completionService: completionService}
}

// Start 开始一段新的对话。
func (h *CompletionHandler) Start(c *gin.Context) {
	sessionToken, greeting, err := h.completionService.StartConversation(c.Request.Context())
	if err != nil {
		fail(c, "CompletionStart", err)
		return
	}
	respondOK(c, gin.H{"sessionToken": sessionToken, "message": greeting})
}

// SendRequest 是发送消息的请求体。
type SendRequest struct {
	Message      string `json:"message"`
	SessionToken string `json:"sessionToken"`
	SystemPrompt string `json:"systemPrompt"`
}

// Send 发送一条消息并返回回复和风险评估。
func (h *CompletionHandler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "잘못된 요청입니다.")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(c, http.StatusBadRequest, "메시지를 입력해주세요.")
		return
	}
	if req.SessionToken == "" {
		respondError(c, http.StatusBadRequest, "sessionToken이 필요합니다.")
		return
	}

	reply, err := h.completionService.SendMessage(c.Request.Context(), req.SessionToken, req.Message, req.SystemPrompt)
	if err != nil {
		if errors.Is(err, service.ErrChatUnavailable) {
			log.Warnf("[CompletionHandler] 模型调用失败, token: %s, error: %v", req.SessionToken, err)
		}
		fail(c, "CompletionSend", err)
		return
	}
	respondOK(c, reply)
}

// History 返回对话上下文，不含系统提示词。
func (h *CompletionHandler) History(c *gin.Context) {
	history, err := h.completionService.History(c.Request.Context(), c.Param("token"))
	if err != nil {
		fail(c, "CompletionHistory", err)
		return
	}
	respondOK(c, history)
}

// Clear 删除对话上下文。
func (h *CompletionHandler) Clear(c *gin.Context) {
	if err := h.completionService.Clear(c.Request.Context(), c.Param("token")); err != nil {
		fail(c, "CompletionClear", err)
		return
	}
	respondOK(c, nil)
}
