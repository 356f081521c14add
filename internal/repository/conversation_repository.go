// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"yourmind-go/internal/model"

	"github.com/go-redis/redis/v8"
)

// ErrConversationNotFound 表示 Redis 中不存在该对话上下文（从未创建或已过期）。
var ErrConversationNotFound = errors.New("conversation not found")

const conversationTTL = 7 * 24 * time.Hour

// ConversationRepository 定义了大模型对话上下文的存取接口。
type ConversationRepository interface {
	Create(ctx context.Context, token string, turns []model.CompletionTurn) error
	Get(ctx context.Context, token string) ([]model.CompletionTurn, error)
	Save(ctx context.Context, token string, turns []model.CompletionTurn) error
	Delete(ctx context.Context, token string) error
}

type redisConversationRepository struct {
	redisClient *redis.Client
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(redisClient *redis.Client) ConversationRepository {
	return &redisConversationRepository{redisClient: redisClient}
}

func conversationKey(token string) string {
	return fmt.Sprintf("conversation:%s", token)
}

// Create 写入初始上下文，token 已存在时覆盖。
func (r *redisConversationRepository) Create(ctx context.Context, token string, turns []model.CompletionTurn) error {
	return r.Save(ctx, token, turns)
}

// Get 从 Redis 获取对话上下文。
func (r *redisConversationRepository) Get(ctx context.Context, token string) ([]model.CompletionTurn, error) {
	jsonData, err := r.redisClient.Get(ctx, conversationKey(token)).Result()
	if err == redis.Nil {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	var turns []model.CompletionTurn
	if err := json.Unmarshal([]byte(jsonData), &turns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation history: %w", err)
	}
	return turns, nil
}

// Save 覆盖写入上下文并刷新过期时间，裁剪由调用方负责。
func (r *redisConversationRepository) Save(ctx context.Context, token string, turns []model.CompletionTurn) error {
	jsonData, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation history: %w", err)
	}
	if err := r.redisClient.Set(ctx, conversationKey(token), jsonData, conversationTTL).Err(); err != nil {
		return fmt.Errorf("failed to set conversation history: %w", err)
	}
	return nil
}

func (r *redisConversationRepository) Delete(ctx context.Context, token string) error {
	n, err := r.redisClient.Del(ctx, conversationKey(token)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete conversation history: %w", err)
	}
	if n == 0 {
		return ErrConversationNotFound
	}
	return nil
}
