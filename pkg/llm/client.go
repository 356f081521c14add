// Package llm provides a client for OpenAI-compatible chat completion APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"yourmind-go/internal/config"
)

// ErrEmptyReply is returned when the provider answers without any choice.
var ErrEmptyReply = errors.New("chat api returned no choices")

// Client defines the interface for an LLM client.
type Client interface {
	// Chat 以 role-based 消息与可选生成参数调用聊天接口，返回完整回复文本。
	Chat(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为，nil 字段使用配置中的默认值
type GenerationParams struct {
	Temperature      *float64
	MaxTokens        *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
}

type chatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Stream           bool      `json:"stream"`
	Temperature      *float64  `json:"temperature,omitempty"`
	MaxTokens        *int      `json:"max_tokens,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new LLM client. Without an API key it falls back to canned replies.
func NewClient(cfg config.LLMConfig) Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return NewMockClient()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &openAIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *openAIClient) Chat(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	reqBody := chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   false,
	}
	c.applyGeneration(&reqBody, gen)

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return parsed.Choices[0].Message.Content, nil
}

// applyGeneration 从传参或全局配置注入生成参数（传参优先生效）
func (c *openAIClient) applyGeneration(req *chatRequest, gen *GenerationParams) {
	g := c.cfg.Generation
	if g.Temperature != 0 {
		t := g.Temperature
		req.Temperature = &t
	}
	if g.MaxTokens != 0 {
		m := g.MaxTokens
		req.MaxTokens = &m
	}
	if g.PresencePenalty != 0 {
		p := g.PresencePenalty
		req.PresencePenalty = &p
	}
	if g.FrequencyPenalty != 0 {
		f := g.FrequencyPenalty
		req.FrequencyPenalty = &f
	}
	if gen == nil {
		return
	}
	if gen.Temperature != nil {
		req.Temperature = gen.Temperature
	}
	if gen.MaxTokens != nil {
		req.MaxTokens = gen.MaxTokens
	}
	if gen.PresencePenalty != nil {
		req.PresencePenalty = gen.PresencePenalty
	}
	if gen.FrequencyPenalty != nil {
		req.FrequencyPenalty = gen.FrequencyPenalty
	}
}
