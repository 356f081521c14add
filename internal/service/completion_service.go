// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yourmind-go/internal/config"
	"yourmind-go/internal/counsel"
	"yourmind-go/internal/model"
	"yourmind-go/internal/repository"
	"yourmind-go/pkg/llm"
	"yourmind-go/pkg/log"

	"github.com/google/uuid"
)

// Greeting 是新建对话上下文时返回的问候语。
const Greeting = "새로운 상담이 시작되었습니다. 어떤 고민이 있으신가요?"

const defaultHistoryLimit = 20

// CompletionReply 是一次模型调用的结果以及对本轮对话的风险评估。
type CompletionReply struct {
	Reply string                 `json:"reply"`
	Risk  counsel.RiskAssessment `json:"riskLevel"`
}

// CompletionService 管理与大模型的对话上下文，上下文按 token 存放在 Redis 中。
type CompletionService interface {
	StartConversation(ctx context.Context) (token, greeting string, err error)
	// SendMessage 发送一条用户消息。systemPrompt 非空时替换上下文中的系统提示词。
	// 只有模型调用成功时才会写入本轮的 user/assistant 消息。
	SendMessage(ctx context.Context, token, text, systemPrompt string) (*CompletionReply, error)
	// History 返回除系统提示词以外的上下文
	History(ctx context.Context, token string) ([]model.CompletionTurn, error)
	Clear(ctx context.Context, token string) error
	// Complete 在独立的上下文中执行一次性调用，不读写任何历史。
	Complete(ctx context.Context, prompt string) (string, error)
}

type completionService struct {
	repo      repository.ConversationRepository
	llmClient llm.Client
	cfg       config.LLMConfig
}

// NewCompletionService 创建一个新的 CompletionService。
func NewCompletionService(repo repository.ConversationRepository, llmClient llm.Client, cfg config.LLMConfig) CompletionService {
	return &completionService{repo: repo, llmClient: llmClient, cfg: cfg}
}

// StartConversation 生成新的 token 并写入默认系统提示词。
func (s *completionService) StartConversation(ctx context.Context) (string, string, error) {
	token := newSessionToken(time.Now())
	seed := []model.CompletionTurn{{Role: "system", Content: counsel.SystemPromptFor("", ""), Timestamp: time.Now()}}
	if err := s.repo.Create(ctx, token, seed); err != nil {
		return "", "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return token, Greeting, nil
}

func (s *completionService) SendMessage(ctx context.Context, token, text, systemPrompt string) (*CompletionReply, error) {
	history, err := s.repo.Get(ctx, token)
	if errors.Is(err, repository.ErrConversationNotFound) {
		history = nil
	} else if err != nil {
		return nil, err
	}
	history = applySystemPrompt(history, systemPrompt)

	messages := make([]llm.Message, 0, len(history)+1)
	for _, t := range history {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: text})

	reply, err := s.llmClient.Chat(ctx, messages, s.generationParams())
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	now := time.Now()
	history = append(history,
		model.CompletionTurn{Role: "user", Content: text, Timestamp: now},
		model.CompletionTurn{Role: "assistant", Content: reply, Timestamp: now},
	)
	history = trimHistory(history, s.historyLimit())
	// 回复已经生成，保存失败只记录日志
	if err := s.repo.Save(context.Background(), token, history); err != nil {
		log.Errorf("[CompletionService] 保存对话上下文失败, token: %s, error: %v", token, err)
	}

	return &CompletionReply{Reply: reply, Risk: counsel.ClassifyRisk(text, reply)}, nil
}

func (s *completionService) History(ctx context.Context, token string) ([]model.CompletionTurn, error) {
	history, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	out := make([]model.CompletionTurn, 0, len(history))
	for _, t := range history {
		if t.Role != "system" {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *completionService) Clear(ctx context.Context, token string) error {
	return s.repo.Delete(ctx, token)
}

func (s *completionService) Complete(ctx context.Context, prompt string) (string, error) {
	reply, err := s.llmClient.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, s.generationParams())
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return reply, nil
}

func (s *completionService) historyLimit() int {
	if s.cfg.HistoryLimit > 1 {
		return s.cfg.HistoryLimit
	}
	return defaultHistoryLimit
}

func (s *completionService) generationParams() *llm.GenerationParams {
	g := s.cfg.Generation
	var gp llm.GenerationParams
	if g.Temperature != 0 {
		t := g.Temperature
		gp.Temperature = &t
	}
	if g.MaxTokens != 0 {
		m := g.MaxTokens
		gp.MaxTokens = &m
	}
	if g.PresencePenalty != 0 {
		p := g.PresencePenalty
		gp.PresencePenalty = &p
	}
	if g.FrequencyPenalty != 0 {
		f := g.FrequencyPenalty
		gp.FrequencyPenalty = &f
	}
	if gp.Temperature == nil && gp.MaxTokens == nil && gp.PresencePenalty == nil && gp.FrequencyPenalty == nil {
		return nil
	}
	return &gp
}

// applySystemPrompt 保证上下文以且仅以一条系统提示词开头。
// prompt 为空时保留已有的系统提示词，没有则使用默认人设。
func applySystemPrompt(history []model.CompletionTurn, prompt string) []model.CompletionTurn {
	rest := make([]model.CompletionTurn, 0, len(history))
	current := ""
	for _, t := range history {
		if t.Role == "system" {
			current = t.Content
			continue
		}
		rest = append(rest, t)
	}
	switch {
	case prompt != "":
		current = prompt
	case current == "":
		current = counsel.SystemPromptFor("", "")
	}
	return append([]model.CompletionTurn{{Role: "system", Content: current, Timestamp: time.Now()}}, rest...)
}

// trimHistory 保留系统提示词和最近 limit-1 条消息。
func trimHistory(history []model.CompletionTurn, limit int) []model.CompletionTurn {
	if len(history) <= limit {
		return history
	}
	if len(history) > 0 && history[0].Role == "system" {
		out := make([]model.CompletionTurn, 0, limit)
		out = append(out, history[0])
		return append(out, history[len(history)-(limit-1):]...)
	}
	return history[len(history)-limit:]
}

// newSessionToken 生成 "session_<毫秒时间戳>_<9 位随机串>" 格式的 token。
func newSessionToken(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}
