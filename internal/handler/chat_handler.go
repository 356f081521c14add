package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"yourmind-go/internal/model"
	"yourmind-go/internal/service"
	"yourmind-go/pkg/log"
	"yourmind-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 来源由 CORS 配置和 token 控制
		},
	}
)

// ChatHandler 负责咨询会话的 HTTP 接口和 WebSocket 连接。
type ChatHandler struct {
	chatService    service.ChatService
	summaryService service.SummaryService
	userService    service.UserService
	jwtManager     *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, summaryService service.SummaryService, userService service.UserService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		summaryService: summaryService,
		userService:    userService,
		jwtManager:     jwtManager,
	}
}

// Catalog 返回可选的人设和心理测试。
func (h *ChatHandler) Catalog(c *gin.Context) {
	respondOK(c, h.chatService.Catalog())
}

// StartSessionRequest 是新建会话的请求体，两个字段都可为空。
type StartSessionRequest struct {
	ModeID string `json:"modeId"`
	TestID string `json:"testId"`
}

// StartSession 新建会话并写入开场消息。
func (h *ChatHandler) StartSession(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req StartSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "잘못된 요청입니다.")
			return
		}
	}

	result, err := h.chatService.StartSession(c.Request.Context(), user.ID, req.ModeID, req.TestID)
	if err != nil {
		fail(c, "StartSession", err)
		return
	}
	respondOK(c, result)
}

// SendTurn 处理一次用户发言。模型不可用时返回 502，data 中仍带有已保存的内容。
func (h *ChatHandler) SendTurn(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "잘못된 요청입니다.")
		return
	}

	result, err := h.chatService.SendTurn(c.Request.Context(), user.ID, req)
	if err != nil {
		if errors.Is(err, service.ErrChatUnavailable) && result != nil {
			log.Warnf("[ChatHandler] 模型调用失败, session: %s, error: %v", result.Session.ID, err)
			c.JSON(http.StatusBadGateway, gin.H{"code": http.StatusBadGateway, "message": service.NoticeChatUnavailable, "data": result})
			return
		}
		fail(c, "SendTurn", err)
		return
	}
	respondOK(c, result)
}

// ListSessions 列出当前用户的会话，最新的在前。
func (h *ChatHandler) ListSessions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	sessions, err := h.chatService.ListSessions(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, "ListSessions", err)
		return
	}
	respondOK(c, sessions)
}

// GetMessages 返回会话消息，最早的在前。
func (h *ChatHandler) GetMessages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	messages, err := h.chatService.GetMessages(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		fail(c, "GetMessages", err)
		return
	}
	respondOK(c, messages)
}

// RenameSessionRequest 是重命名会话的请求体。
type RenameSessionRequest struct {
	Title string `json:"title"`
}

// RenameSession 修改会话标题。
func (h *ChatHandler) RenameSession(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "잘못된 요청입니다.")
		return
	}
	session, err := h.chatService.RenameSession(c.Request.Context(), user.ID, c.Param("id"), req.Title)
	if err != nil {
		fail(c, "RenameSession", err)
		return
	}
	respondOK(c, session)
}

// DeleteSession 删除会话及其全部消息。
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.chatService.DeleteSession(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		fail(c, "DeleteSession", err)
		return
	}
	respondOK(c, nil)
}

// Summary 生成会话总结。
func (h *ChatHandler) Summary(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	result, err := h.summaryService.Summarize(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		fail(c, "Summary", err)
		return
	}
	respondOK(c, result)
}

// Export 生成总结报告并上传到对象存储。
func (h *ChatHandler) Export(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	result, err := h.summaryService.Export(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		fail(c, "Export", err)
		return
	}
	respondOK(c, result)
}

// wsRequest 是客户端发来的一帧。Type 为 start 时新建会话，否则视为一次发言。
type wsRequest struct {
	Type string `json:"type"`
	service.TurnRequest
}

// wsFrame 是服务端回发的一帧。
type wsFrame struct {
	Type      string      `json:"type"`
	Code      int         `json:"code"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Handle 处理一个传入的 WebSocket 连接。同一连接上的发言按顺序处理，
// 未指定 sessionId 时沿用该连接最近一次使用的会话。
func (h *ChatHandler) Handle(c *gin.Context) {
	user, ok := h.authenticateSocket(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，用户: %s", user.ID)

	var currentSession string
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			break
		}

		var req wsRequest
		if err := json.Unmarshal(message, &req); err != nil {
			writeFrame(conn, wsFrame{Type: "error", Code: http.StatusBadRequest, Message: "잘못된 요청입니다."})
			continue
		}

		var result *service.TurnResult
		switch req.Type {
		case "start":
			result, err = h.chatService.StartSession(c.Request.Context(), user.ID, req.ModeID, req.TestID)
		default:
			if req.SessionID == "" {
				req.SessionID = currentSession
			}
			result, err = h.chatService.SendTurn(c.Request.Context(), user.ID, req.TurnRequest)
		}
		if result != nil && result.Session != nil {
			currentSession = result.Session.ID
		}

		if err != nil {
			status, msg := statusFor(err)
			if status >= http.StatusInternalServerError && !errors.Is(err, service.ErrChatUnavailable) {
				log.Errorf("[ChatHandler] WebSocket 处理失败, user: %s, error: %v", user.ID, err)
			}
			if result != nil {
				// 用户消息已保存，附带结果让客户端展示
				writeFrame(conn, wsFrame{Type: "turn", Code: status, Message: msg, Data: result})
				continue
			}
			writeFrame(conn, wsFrame{Type: "error", Code: status, Message: msg})
			continue
		}
		writeFrame(conn, wsFrame{Type: "turn", Code: http.StatusOK, Message: "success", Data: result})
	}
}

// authenticateSocket 校验路径中的 access token，失败时直接写出响应。
func (h *ChatHandler) authenticateSocket(c *gin.Context) (*model.UserProfile, bool) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil || claims.Refresh {
		respondError(c, http.StatusUnauthorized, "유효하지 않은 토큰입니다.")
		return nil, false
	}
	revoked, err := h.userService.IsTokenRevoked(c.Request.Context(), tokenString)
	if err != nil {
		log.Errorf("[ChatHandler] 检查 token 黑名单失败, error: %v", err)
		respondError(c, http.StatusInternalServerError, "서버 오류가 발생했습니다.")
		return nil, false
	}
	if revoked {
		respondError(c, http.StatusUnauthorized, "유효하지 않은 토큰입니다.")
		return nil, false
	}
	user, err := h.userService.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "사용자를 찾을 수 없습니다.")
		return nil, false
	}
	return user, true
}

func writeFrame(conn *websocket.Conn, frame wsFrame) {
	frame.Timestamp = time.Now().UnixMilli()
	b, err := json.Marshal(frame)
	if err != nil {
		log.Errorf("WebSocket 帧序列化失败: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warnf("WebSocket 写入失败: %v", err)
	}
}
