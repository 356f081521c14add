// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yourmind-go/internal/counsel"
	"yourmind-go/internal/model"
	"yourmind-go/internal/repository"
	"yourmind-go/pkg/log"
	"yourmind-go/pkg/tasks"

	"gorm.io/gorm"
)

const (
	previewMessages = 3
	previewRunes    = 50
	excerptRunes    = 200
)

// CatalogView 是可选人设和心理测试的列表。
type CatalogView struct {
	Modes []counsel.AIMode    `json:"modes"`
	Tests []counsel.PsychTest `json:"tests"`
}

// TurnRequest 是一次用户发言。SessionID 为空时按 ModeID/TestID 新建会话。
type TurnRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	ModeID    string `json:"modeId,omitempty"`
	TestID    string `json:"testId,omitempty"`
}

// TurnResult 是一次发言产生的全部变化。Messages 按写入顺序排列。
type TurnResult struct {
	Session        *model.ChatSession      `json:"session"`
	SessionCreated bool                    `json:"sessionCreated"`
	Messages       []model.ChatMessage     `json:"messages"`
	Risk           *counsel.RiskAssessment `json:"risk,omitempty"`
	TestRun        *counsel.TestRun        `json:"testRun,omitempty"`
	TestResult     *counsel.TestResult     `json:"testResult,omitempty"`
	Notice         string                  `json:"notice,omitempty"`
}

// SessionPreview 是会话列表项，Preview 为前三条消息的摘录。
type SessionPreview struct {
	model.ChatSession
	Preview string `json:"preview"`
}

// ChatService 定义了咨询会话的业务操作。
type ChatService interface {
	Catalog() CatalogView
	StartSession(ctx context.Context, userID, modeID, testID string) (*TurnResult, error)
	// SendTurn 处理一次用户发言。模型调用失败时同时返回带 Notice 的结果和 ErrChatUnavailable，
	// 此时用户消息已经保存。
	SendTurn(ctx context.Context, userID string, req TurnRequest) (*TurnResult, error)
	ListSessions(ctx context.Context, userID string) ([]SessionPreview, error)
	GetMessages(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error)
	RenameSession(ctx context.Context, userID, sessionID, title string) (*model.ChatSession, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
}

type chatService struct {
	sessions   repository.SessionRepository
	state      repository.SessionStateRepository
	completion CompletionService
	alerts     RiskAlertPublisher
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(sessions repository.SessionRepository, state repository.SessionStateRepository, completion CompletionService, alerts RiskAlertPublisher) ChatService {
	return &chatService{
		sessions:   sessions,
		state:      state,
		completion: completion,
		alerts:     alerts,
	}
}

func (s *chatService) Catalog() CatalogView {
	return CatalogView{Modes: counsel.Modes(), Tests: counsel.Tests()}
}

// StartSession 新建会话并写入开场白。同时指定人设和测试时以测试为准。
func (s *chatService) StartSession(ctx context.Context, userID, modeID, testID string) (*TurnResult, error) {
	var (
		mode *counsel.AIMode
		test *counsel.PsychTest
	)
	if testID != "" {
		t, ok := counsel.FindTest(testID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTest, testID)
		}
		test = &t
		modeID = ""
	}
	if modeID != "" {
		m, ok := counsel.FindMode(modeID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMode, modeID)
		}
		mode = &m
	}

	count, err := s.sessions.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	token, _, err := s.completion.StartConversation(ctx)
	if err != nil {
		return nil, err
	}
	session := &model.ChatSession{
		UserID:          userID,
		Title:           counsel.DeriveTitle(modeID, testID, int(count)),
		ModeID:          modeID,
		TestID:          testID,
		CompletionToken: token,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	log.Infow("chat session created", "session", session.ID, "user", userID, "title", session.Title)

	result := &TurnResult{Session: session, SessionCreated: true}
	intro := counsel.DefaultIntro
	switch {
	case test != nil:
		run, text, err := counsel.SelectTest(test.ID)
		if err != nil {
			return nil, err
		}
		if err := s.state.SaveTestRun(ctx, session.ID, run); err != nil {
			return nil, fmt.Errorf("failed to save test run: %w", err)
		}
		intro = text
		result.TestRun = &run
	case mode != nil:
		intro = counsel.ModeIntro(*mode)
	}

	msg, err := s.appendMessage(ctx, session.ID, counsel.SenderAI, counsel.KindIntro, intro, nil)
	if err != nil {
		return nil, err
	}
	result.Messages = append(result.Messages, *msg)
	return result, nil
}

func (s *chatService) SendTurn(ctx context.Context, userID string, req TurnRequest) (*TurnResult, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	var result *TurnResult
	if req.SessionID == "" {
		started, err := s.StartSession(ctx, userID, req.ModeID, req.TestID)
		if err != nil {
			return nil, err
		}
		result = started
	} else {
		session, err := ownedSession(ctx, s.sessions, userID, req.SessionID)
		if err != nil {
			return nil, err
		}
		result = &TurnResult{Session: session}
	}
	session := result.Session

	lease, acquired, err := s.state.AcquireBusy(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrSessionBusy
	}
	defer func() {
		if err := s.state.ReleaseBusy(context.Background(), session.ID, lease); err != nil {
			log.Errorf("[ChatService] 释放会话标记失败, session: %s, error: %v", session.ID, err)
		}
	}()

	run, err := s.state.GetTestRun(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	if turn, handled := routeTestTurn(text, run); handled {
		if err := s.finishTestTurn(ctx, session, text, run, turn, result); err != nil {
			return nil, err
		}
		return result, nil
	}
	if run.IsActive {
		// 进度无法继续，丢弃后按普通对话处理
		log.Warnf("[ChatService] 测试进度无效，已清除, session: %s, test: %s", session.ID, run.TestID)
		if err := s.state.ClearTestRun(ctx, session.ID); err != nil {
			return nil, err
		}
		run = counsel.TestRun{}
	}
	if run.Selected() {
		result.TestRun = &run
	}
	return s.chatTurn(ctx, session, text, result)
}

// testTurn 是测试流程对一次发言的处理结果。
type testTurn struct {
	reply  string
	run    counsel.TestRun
	result *counsel.TestResult
}

// routeTestTurn 判断发言是否由测试流程处理，优先级：
// 作答 > 点名另一个测试 > 开始 > 选择测试。
func routeTestTurn(text string, run counsel.TestRun) (testTurn, bool) {
	if run.IsActive {
		outcome, next, err := counsel.SubmitAnswer(text, run)
		if err != nil {
			return testTurn{}, false
		}
		return testTurn{reply: outcome.Prompt, run: next, result: outcome.Result}, true
	}

	trigger := counsel.MatchTestTrigger(text)
	// 等待开始时点名了另一个测试，即使带有"시작"也切换到新测试
	if trigger.Test != nil && trigger.Test.ID != run.TestID {
		return selectTestTurn(trigger.Test.ID)
	}
	if next, question, ok := counsel.BeginIfTriggered(text, run); ok {
		return testTurn{reply: question, run: next}, true
	}

	if !trigger.Triggered {
		return testTurn{}, false
	}
	if trigger.Test == nil {
		return testTurn{reply: counsel.CatalogText(), run: run}, true
	}
	return selectTestTurn(trigger.Test.ID)
}

func selectTestTurn(testID string) (testTurn, bool) {
	next, intro, err := counsel.SelectTest(testID)
	if err != nil {
		return testTurn{}, false
	}
	return testTurn{reply: intro, run: next}, true
}

// finishTestTurn 保存双方消息和新进度。AI 消息保存失败时恢复 prev，
// 保证用户下次回答的仍是最后看到的问题。
func (s *chatService) finishTestTurn(ctx context.Context, session *model.ChatSession, text string, prev counsel.TestRun, turn testTurn, result *TurnResult) error {
	userMsg, err := s.appendMessage(ctx, session.ID, counsel.SenderUser, counsel.KindTest, text, nil)
	if err != nil {
		return err
	}
	result.Messages = append(result.Messages, *userMsg)

	if err := s.state.SaveTestRun(ctx, session.ID, turn.run); err != nil {
		return fmt.Errorf("failed to save test run: %w", err)
	}
	if turn.run.Selected() {
		run := turn.run
		result.TestRun = &run
	} else {
		result.TestRun = nil
	}
	result.TestResult = turn.result

	aiMsg, err := s.appendMessage(ctx, session.ID, counsel.SenderAI, counsel.KindTest, turn.reply, nil)
	if err != nil {
		if rerr := s.state.SaveTestRun(context.Background(), session.ID, prev); rerr != nil {
			log.Errorf("[ChatService] 恢复测试进度失败, session: %s, error: %v", session.ID, rerr)
		}
		return err
	}
	result.Messages = append(result.Messages, *aiMsg)
	if turn.result != nil {
		log.Infow("psych test completed", "session", session.ID, "test", turn.result.TestID, "score", turn.result.TotalScore)
	}
	return nil
}

func (s *chatService) chatTurn(ctx context.Context, session *model.ChatSession, text string, result *TurnResult) (*TurnResult, error) {
	userMsg, err := s.appendMessage(ctx, session.ID, counsel.SenderUser, counsel.KindChat, text, nil)
	if err != nil {
		return nil, err
	}
	result.Messages = append(result.Messages, *userMsg)

	if session.CompletionToken == "" {
		token, _, err := s.completion.StartConversation(ctx)
		if err != nil {
			return s.chatUnavailable(session, result, err)
		}
		if err := s.sessions.UpdateCompletionToken(ctx, session.ID, token); err != nil {
			return nil, fmt.Errorf("failed to update completion token: %w", err)
		}
		session.CompletionToken = token
	}

	reply, err := s.completion.SendMessage(ctx, session.CompletionToken, text, counsel.SystemPromptFor(session.ModeID, session.TestID))
	if err != nil {
		return s.chatUnavailable(session, result, err)
	}

	risk := reply.Risk
	aiMsg, err := s.appendMessage(ctx, session.ID, counsel.SenderAI, counsel.KindChat, reply.Reply, &risk)
	if err != nil {
		return nil, err
	}
	result.Messages = append(result.Messages, *aiMsg)
	result.Risk = &risk

	if offer, ok := s.suggestion(ctx, session.ID); ok {
		msg, err := s.appendMessage(ctx, session.ID, offer.Sender, offer.Kind, offer.Text, nil)
		if err != nil {
			log.Errorf("[ChatService] 保存测试推荐失败, session: %s, error: %v", session.ID, err)
		} else {
			result.Messages = append(result.Messages, *msg)
		}
	}

	if risk.RequiresImmediateAttention {
		s.publishAlert(ctx, session, aiMsg.ID, text, risk)
	}
	return result, nil
}

func (s *chatService) chatUnavailable(session *model.ChatSession, result *TurnResult, cause error) (*TurnResult, error) {
	log.Errorf("[ChatService] 调用对话服务失败, session: %s, error: %v", session.ID, cause)
	result.Notice = NoticeChatUnavailable
	return result, fmt.Errorf("%w: %v", ErrChatUnavailable, cause)
}

// suggestion 基于会话中的普通对话内容检测是否需要推荐测试，每个会话最多一次。
func (s *chatService) suggestion(ctx context.Context, sessionID string) (counsel.Turn, bool) {
	history, err := s.sessions.ListMessages(ctx, sessionID)
	if err != nil {
		log.Errorf("[ChatService] 读取会话消息失败, session: %s, error: %v", sessionID, err)
		return counsel.Turn{}, false
	}
	turns := model.Turns(history)
	chat := make([]counsel.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Kind == counsel.KindChat {
			chat = append(chat, t)
		}
	}
	return counsel.MaybeOfferSuggestion(turns, counsel.SuggestTests(counsel.Transcript(chat)))
}

// publishAlert 投递高风险告警，失败只记录日志，不影响本次回复。
func (s *chatService) publishAlert(ctx context.Context, session *model.ChatSession, messageID, text string, risk counsel.RiskAssessment) {
	if s.alerts == nil {
		return
	}
	task := tasks.RiskAlertTask{
		UserID:    session.UserID,
		SessionID: session.ID,
		MessageID: messageID,
		Level:     string(risk.Level),
		Advisory:  risk.Message,
		Excerpt:   truncateRunes(text, excerptRunes),
		CreatedAt: time.Now(),
	}
	if err := s.alerts.Publish(ctx, task); err != nil {
		log.Errorf("[ChatService] 投递风险告警失败, session: %s, error: %v", session.ID, err)
		return
	}
	log.Warnw("high risk conversation detected", "session", session.ID, "user", session.UserID)
}

func (s *chatService) ListSessions(ctx context.Context, userID string) ([]SessionPreview, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	out := make([]SessionPreview, 0, len(sessions))
	for _, sess := range sessions {
		first, err := s.sessions.FirstMessages(ctx, sess.ID, previewMessages)
		if err != nil {
			return nil, fmt.Errorf("failed to load session preview: %w", err)
		}
		out = append(out, SessionPreview{ChatSession: sess, Preview: buildPreview(first)})
	}
	return out, nil
}

// GetMessages 按时间顺序返回会话消息，空会话返回固定的欢迎问题（不落库）。
func (s *chatService) GetMessages(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error) {
	if _, err := ownedSession(ctx, s.sessions, userID, sessionID); err != nil {
		return nil, err
	}
	msgs, err := s.sessions.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if len(msgs) > 0 {
		return msgs, nil
	}
	now := time.Now()
	for _, t := range counsel.WelcomeTurns() {
		msgs = append(msgs, model.ChatMessage{
			ID:        t.ID,
			SessionID: sessionID,
			Sender:    string(t.Sender),
			Kind:      string(t.Kind),
			Content:   t.Text,
			Timestamp: now,
		})
	}
	return msgs, nil
}

func (s *chatService) RenameSession(ctx context.Context, userID, sessionID, title string) (*model.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	session, err := ownedSession(ctx, s.sessions, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateTitle(ctx, sessionID, title); err != nil {
		return nil, fmt.Errorf("failed to rename session: %w", err)
	}
	session.Title = title
	return session, nil
}

// DeleteSession 删除会话及其消息，并清理 Redis 中的测试进度和对话上下文。
func (s *chatService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	session, err := ownedSession(ctx, s.sessions, userID, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := s.state.ClearTestRun(ctx, sessionID); err != nil {
		log.Errorf("[ChatService] 清除测试进度失败, session: %s, error: %v", sessionID, err)
	}
	if session.CompletionToken != "" {
		if err := s.completion.Clear(ctx, session.CompletionToken); err != nil && !errors.Is(err, repository.ErrConversationNotFound) {
			log.Errorf("[ChatService] 清除对话上下文失败, session: %s, error: %v", sessionID, err)
		}
	}
	return nil
}

func (s *chatService) appendMessage(ctx context.Context, sessionID string, sender counsel.Sender, kind counsel.Kind, text string, risk *counsel.RiskAssessment) (*model.ChatMessage, error) {
	msg := &model.ChatMessage{
		SessionID: sessionID,
		Sender:    string(sender),
		Kind:      string(kind),
		Content:   text,
		RiskLevel: model.EncodeRisk(risk),
	}
	if err := s.sessions.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return msg, nil
}

// ownedSession 查找属于 userID 的会话，不存在或不属于该用户时都返回 ErrSessionNotFound。
func ownedSession(ctx context.Context, repo repository.SessionRepository, userID, sessionID string) (*model.ChatSession, error) {
	session, err := repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func buildPreview(msgs []model.ChatMessage) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		speaker := "AI"
		if m.Sender == string(counsel.SenderUser) {
			speaker = "사용자"
		}
		lines = append(lines, speaker+": "+truncateRunes(m.Content, previewRunes))
	}
	return strings.Join(lines, "\n")
}

// truncateRunes 按字符截断，超出时追加 "..."。
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
